// Package auth verifies the storefront's bearer tokens. Tokens are HS256
// JWTs issued by the storefront's login flow, carrying the WooCommerce
// customer id as userId.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront-gateway/internal/model"
)

// Claims is the token payload.
type Claims struct {
	UserID model.FlexInt `json:"userId"`
	Email  string        `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
	logger *slog.Logger
	parser *jwt.Parser
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret string, logger *slog.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		logger: logger,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Issue signs a token for customerID valid for ttl.
func (v *Verifier) Issue(customerID int, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: model.FlexInt(customerID),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse verifies a raw token string.
func (v *Verifier) Parse(raw string) (*Claims, error) {
	token, err := v.parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token has no userId")
	}
	return claims, nil
}

// Required returns the request's claims or a 401 error.
func (v *Verifier) Required(r *http.Request) (*Claims, error) {
	raw, ok := bearer(r)
	if !ok {
		return nil, model.NewUnauthorizedError("missing Authorization header")
	}
	claims, err := v.Parse(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.NewUnauthorizedError("token has expired")
		}
		return nil, model.NewUnauthorizedError("invalid or expired token")
	}
	return claims, nil
}

// Optional returns the customer id of a valid bearer token, or 0. A bad
// token is logged and treated as a guest.
func (v *Verifier) Optional(r *http.Request) int {
	raw, ok := bearer(r)
	if !ok {
		return 0
	}
	claims, err := v.Parse(raw)
	if err != nil {
		v.logger.DebugContext(r.Context(), "ignoring invalid bearer token", slog.String("error", err.Error()))
		return 0
	}
	return int(claims.UserID)
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
