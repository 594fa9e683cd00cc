package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront-gateway/internal/model"
)

const testSecret = "test-secret"

func newTestVerifier() *Verifier {
	return NewVerifier(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}
	return s
}

func TestRequired(t *testing.T) {
	v := newTestVerifier()
	valid, err := v.Issue(42, "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	// The storefront's login flow signs userId as a JSON number.
	mapClaims := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"userId": 7,
		"email":  "x@example.com",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	stringID := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"userId": "8"})
	expired, _ := v.Issue(42, "", -time.Minute)
	otherKey := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"userId": 42})
	noUser := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"email": "x@example.com"})
	noneAlg := signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"userId": 42})

	tests := []struct {
		name    string
		header  string
		wantID  int
		wantErr bool
	}{
		{"issued", "Bearer " + valid, 42, false},
		{"numeric userId", "Bearer " + mapClaims, 7, false},
		{"string userId", "bearer " + stringID, 8, false},
		{"missing", "", 0, true},
		{"not bearer", "Basic abc", 0, true},
		{"expired", "Bearer " + expired, 0, true},
		{"wrong key", "Bearer " + otherKey, 0, true},
		{"no userId", "Bearer " + noUser, 0, true},
		{"alg none", "Bearer " + noneAlg, 0, true},
		{"garbage", "Bearer not.a.jwt", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/auth/orders", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			claims, err := v.Required(r)
			if tt.wantErr {
				if !errors.Is(err, model.ErrUnauthorized) {
					t.Errorf("Required() error = %v, want ErrUnauthorized", err)
				}
				if got := v.Optional(r); got != 0 {
					t.Errorf("Optional() = %d, want 0", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Required() error: %v", err)
			}
			if int(claims.UserID) != tt.wantID {
				t.Errorf("UserID = %d, want %d", claims.UserID, tt.wantID)
			}
			if got := v.Optional(r); got != tt.wantID {
				t.Errorf("Optional() = %d, want %d", got, tt.wantID)
			}
		})
	}
}

func TestRequiredExpiredMessage(t *testing.T) {
	v := newTestVerifier()
	expired, _ := v.Issue(42, "", -time.Minute)
	r := httptest.NewRequest("GET", "/auth/orders", nil)
	r.Header.Set("Authorization", "Bearer "+expired)

	_, err := v.Required(r)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Required() error = %v, want *APIError", err)
	}
	if apiErr.Message != "token has expired" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "token has expired")
	}
}
