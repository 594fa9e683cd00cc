package storecart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/session"
	"storefront-gateway/internal/woocommerce"
)

type fakeStore struct {
	seen    []woocommerce.StoreSession
	added   []woocommerce.WooCartAddRequest
	updated map[string]int
	removed []string
	cleared int
	cookies []*http.Cookie
	err     error
}

func (f *fakeStore) reply(sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
	f.seen = append(f.seen, sess)
	if f.err != nil {
		return nil, f.err
	}
	return &woocommerce.StoreResponse{
		Raw:     json.RawMessage(`{"items":[],"items_count":0}`),
		Nonce:   "n-2",
		Cookies: f.cookies,
	}, nil
}

func (f *fakeStore) GetCart(ctx context.Context, sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
	return f.reply(sess)
}

func (f *fakeStore) AddCartItem(ctx context.Context, sess woocommerce.StoreSession, item woocommerce.WooCartAddRequest) (*woocommerce.StoreResponse, error) {
	f.added = append(f.added, item)
	return f.reply(sess)
}

func (f *fakeStore) UpdateCartItem(ctx context.Context, sess woocommerce.StoreSession, key string, quantity int) (*woocommerce.StoreResponse, error) {
	if f.updated == nil {
		f.updated = map[string]int{}
	}
	f.updated[key] = quantity
	return f.reply(sess)
}

func (f *fakeStore) RemoveCartItem(ctx context.Context, sess woocommerce.StoreSession, key string) (*woocommerce.StoreResponse, error) {
	f.removed = append(f.removed, key)
	return f.reply(sess)
}

func (f *fakeStore) ClearCart(ctx context.Context, sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
	f.cleared++
	return f.reply(sess)
}

func newTestService() (*Service, *fakeStore, *session.MemoryStore) {
	api := &fakeStore{}
	sessions := session.NewMemoryStore()
	svc := NewService(api, sessions, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.UnixMilli(1718000000123) }
	return svc, api, sessions
}

func decodeInto(t *testing.T, body string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func TestNonceMintsSession(t *testing.T) {
	svc, api, sessions := newTestService()
	api.cookies = []*http.Cookie{{Name: "wp_woocommerce_session_abc", Value: "1||2"}}

	got, err := svc.Nonce(context.Background(), Call{})
	if err != nil {
		t.Fatalf("Nonce() error: %v", err)
	}
	want := &NonceResult{Nonce: "n-2", SessionID: "1718000000123"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Nonce() mismatch (-want +got):\n%s", diff)
	}

	sess, err := sessions.Lookup(context.Background(), "1718000000123")
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if sess.CookieHeader() != "wp_woocommerce_session_abc=1||2" {
		t.Errorf("CookieHeader() = %q", sess.CookieHeader())
	}
}

func TestNonceKeepsExistingSession(t *testing.T) {
	svc, api, sessions := newTestService()
	ctx := context.Background()
	_ = sessions.MergeCookies(ctx, "abc", []*http.Cookie{{Name: "k", Value: "v"}})

	got, err := svc.Nonce(ctx, Call{SessionID: "abc"})
	if err != nil {
		t.Fatalf("Nonce() error: %v", err)
	}
	if got.SessionID != "abc" {
		t.Errorf("SessionID = %q, want abc", got.SessionID)
	}
	if api.seen[0].Cookie != "k=v" {
		t.Errorf("forwarded cookie = %q, want k=v", api.seen[0].Cookie)
	}
}

func TestSessionRequired(t *testing.T) {
	svc, api, _ := newTestService()
	ctx := context.Background()

	calls := map[string]func() error{
		"get": func() error {
			_, err := svc.Get(ctx, Call{})
			return err
		},
		"clear": func() error {
			_, err := svc.Clear(ctx, Call{})
			return err
		},
		"malformed": func() error {
			_, err := svc.Get(ctx, Call{SessionID: "../etc"})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, model.ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
	if len(api.seen) != 0 {
		t.Errorf("upstream called %d times, want 0", len(api.seen))
	}
}

func TestGetForwardsCookiesAndNonce(t *testing.T) {
	svc, api, sessions := newTestService()
	ctx := context.Background()
	_ = sessions.MergeCookies(ctx, "s1", []*http.Cookie{{Name: "a", Value: "1"}})
	api.cookies = []*http.Cookie{{Name: "b", Value: "2"}}

	reply, err := svc.Get(ctx, Call{SessionID: "s1", Nonce: "n-1"})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if diff := cmp.Diff(woocommerce.StoreSession{Cookie: "a=1", Nonce: "n-1"}, api.seen[0]); diff != "" {
		t.Errorf("forwarded session mismatch (-want +got):\n%s", diff)
	}
	if string(reply.Cart) != `{"items":[],"items_count":0}` {
		t.Errorf("Cart = %s", reply.Cart)
	}

	sess, _ := sessions.Lookup(ctx, "s1")
	if sess.CookieHeader() != "a=1; b=2" {
		t.Errorf("CookieHeader() = %q, want merged jar", sess.CookieHeader())
	}
}

func TestAddItemDerivesArea(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"from pa_sizemm", `{"id":1045,"quantity":10,"variation":[{"attribute":"pa_sizemm","value":"305x305x10"}]}`, "0.930"},
		{"from size-like attribute", `{"id":1045,"quantity":4,"variation":[{"attribute":"Tile Size","value":"600x600"}]}`, "1.440"},
		{"explicit wins", `{"id":1045,"quantity":10,"m2_quantity":"2.5","variation":[{"attribute":"pa_sizemm","value":"305x305x10"}]}`, "2.500"},
		{"no size", `{"id":1045,"quantity":1,"variation":[{"attribute":"pa_colour","value":"grey"}]}`, ""},
		{"bad size", `{"id":1045,"quantity":1,"variation":[{"attribute":"pa_sizemm","value":"large"}]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, api, _ := newTestService()
			var req model.StoreCartAddRequest
			decodeInto(t, tt.body, &req)

			reply, err := svc.AddItem(context.Background(), Call{SessionID: "s1"}, &req)
			if err != nil {
				t.Fatalf("AddItem() error: %v", err)
			}
			if reply.M2Quantity != tt.want {
				t.Errorf("M2Quantity = %q, want %q", reply.M2Quantity, tt.want)
			}
			if api.added[0].ID != 1045 {
				t.Errorf("forwarded id = %d, want 1045", api.added[0].ID)
			}
		})
	}
}

func TestAddItemForwardsVariation(t *testing.T) {
	svc, api, _ := newTestService()
	var req model.StoreCartAddRequest
	decodeInto(t, `{"id":"1045","quantity":"3","variation":[{"attribute":"pa_sizemm","value":"305x305x10"}]}`, &req)

	if _, err := svc.AddItem(context.Background(), Call{SessionID: "s1"}, &req); err != nil {
		t.Fatalf("AddItem() error: %v", err)
	}
	want := woocommerce.WooCartAddRequest{
		ID:        1045,
		Quantity:  3,
		Variation: []woocommerce.WooVariant{{Attribute: "pa_sizemm", Value: "305x305x10"}},
	}
	if diff := cmp.Diff(want, api.added[0]); diff != "" {
		t.Errorf("add request mismatch (-want +got):\n%s", diff)
	}
}

func TestAddItemValidatesFirst(t *testing.T) {
	svc, api, _ := newTestService()
	var req model.StoreCartAddRequest
	decodeInto(t, `{"id":1045}`, &req)

	if _, err := svc.AddItem(context.Background(), Call{SessionID: "s1"}, &req); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("AddItem() error = %v, want ErrInvalidRequest", err)
	}
	if len(api.seen) != 0 {
		t.Error("upstream should not be called")
	}
}

func TestUpdateAndRemove(t *testing.T) {
	svc, api, _ := newTestService()
	ctx := context.Background()

	var upd model.StoreCartUpdateRequest
	decodeInto(t, `{"key":"a1b2","quantity":0}`, &upd)
	if _, err := svc.UpdateItem(ctx, Call{SessionID: "s1"}, &upd); err != nil {
		t.Fatalf("UpdateItem() error: %v", err)
	}
	if q, ok := api.updated["a1b2"]; !ok || q != 0 {
		t.Errorf("updated = %v, want a1b2:0", api.updated)
	}

	if _, err := svc.RemoveItem(ctx, Call{SessionID: "s1"}, &model.StoreCartRemoveRequest{}); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("RemoveItem(no key) error = %v, want ErrInvalidRequest", err)
	}
	if _, err := svc.RemoveItem(ctx, Call{SessionID: "s1"}, &model.StoreCartRemoveRequest{Key: "a1b2"}); err != nil {
		t.Fatalf("RemoveItem() error: %v", err)
	}
	if diff := cmp.Diff([]string{"a1b2"}, api.removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestClearDestroysSession(t *testing.T) {
	svc, api, sessions := newTestService()
	ctx := context.Background()
	_ = sessions.MergeCookies(ctx, "s1", []*http.Cookie{{Name: "a", Value: "1"}})

	if _, err := svc.Clear(ctx, Call{SessionID: "s1"}); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if api.cleared != 1 {
		t.Errorf("cleared = %d, want 1", api.cleared)
	}
	if _, err := sessions.Lookup(ctx, "s1"); !errors.Is(err, model.ErrNotFound) {
		t.Error("session should be deleted")
	}
}

func TestUpstreamErrorKeepsSession(t *testing.T) {
	svc, api, sessions := newTestService()
	ctx := context.Background()
	_ = sessions.MergeCookies(ctx, "s1", []*http.Cookie{{Name: "a", Value: "1"}})
	api.err = model.NewUpstreamStatusError("WooCommerce", http.StatusForbidden, []byte(`{"code":"woocommerce_rest_missing_nonce","message":"Missing the Nonce header."}`))

	_, err := svc.Clear(ctx, Call{SessionID: "s1"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("Clear() error = %v, want proxied 403", err)
	}
	if _, err := sessions.Lookup(ctx, "s1"); err != nil {
		t.Errorf("session should survive a failed clear: %v", err)
	}
}

func TestCalculateM2Price(t *testing.T) {
	svc, _, _ := newTestService()
	var req model.M2PriceRequest
	decodeInto(t, `{"quantity":10,"dimensions":"305x305x10","price_per_m2":"25"}`, &req)

	got, err := svc.CalculateM2Price(&req)
	if err != nil {
		t.Fatalf("CalculateM2Price() error: %v", err)
	}
	want := &M2Price{
		Quantity:   10,
		Dimensions: "305x305x10",
		M2PerTile:  "0.093025",
		TotalM2:    "0.9303",
		PricePerM2: "25",
		TotalPrice: "23.26",
		Currency:   "GBP",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CalculateM2Price() mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateM2PriceInvalid(t *testing.T) {
	svc, _, _ := newTestService()
	bodies := []string{
		`{"quantity":10,"dimensions":"305","price_per_m2":25}`,
		`{"quantity":10,"dimensions":"axb","price_per_m2":25}`,
		`{"quantity":0,"dimensions":"305x305","price_per_m2":25}`,
		`{"quantity":1,"dimensions":"305x305"}`,
	}
	for _, body := range bodies {
		var req model.M2PriceRequest
		decodeInto(t, body, &req)
		if _, err := svc.CalculateM2Price(&req); !errors.Is(err, model.ErrInvalidRequest) {
			t.Errorf("CalculateM2Price(%s) error = %v, want ErrInvalidRequest", body, err)
		}
	}
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		in     string
		w, h   string
		wantOK bool
	}{
		{"305x305x10", "305", "305", true},
		{"600X300", "600", "300", true},
		{"600mm x 300mm", "600", "300", true},
		{"300", "", "", false},
		{"0x300", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		w, h, ok := parseDimensions(tt.in)
		if ok != tt.wantOK {
			t.Errorf("parseDimensions(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && (w.String() != tt.w || h.String() != tt.h) {
			t.Errorf("parseDimensions(%q) = %s, %s; want %s, %s", tt.in, w, h, tt.w, tt.h)
		}
	}
}
