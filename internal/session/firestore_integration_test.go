//go:build integration
// +build integration

// Integration tests for the Firestore session store.
// Run against the emulator with:
//
//	gcloud emulators firestore start --host-port=localhost:8081
//	FIRESTORE_EMULATOR_HOST=localhost:8081 go test -tags=integration ./internal/session/... -v
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"storefront-gateway/internal/model"
)

func newEmulatorStore(t *testing.T) *FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "storefront-gateway-test")
	if err != nil {
		t.Fatalf("firestore.NewClient() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	collection := fmt.Sprintf("sessions_%d", time.Now().UnixNano())
	store, err := NewFirestoreStore(client, collection, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewFirestoreStore() error: %v", err)
	}
	return store
}

func TestFirestoreStoreLifecycle(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	if _, err := store.Lookup(ctx, "absent"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Lookup(absent) error = %v, want ErrNotFound", err)
	}

	if err := store.MergeCookies(ctx, "s1", []*http.Cookie{{Name: "woocommerce_cart_hash", Value: "abc"}}); err != nil {
		t.Fatalf("MergeCookies() error: %v", err)
	}
	sess, err := store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if sess.CookieHeader() != "woocommerce_cart_hash=abc" {
		t.Errorf("CookieHeader() = %q", sess.CookieHeader())
	}

	bound, err := store.BindOrder(ctx, "s1", 501)
	if err != nil || bound != 501 {
		t.Fatalf("BindOrder() = %d, %v", bound, err)
	}
	bound, _ = store.BindOrder(ctx, "s1", 502)
	if bound != 501 {
		t.Errorf("second BindOrder() = %d, want 501", bound)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}
}

func TestFirestoreStoreExpire(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base.Add(-48 * time.Hour) }
	if _, err := store.GetOrCreate(ctx, "old"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	store.now = func() time.Time { return base }
	if _, err := store.GetOrCreate(ctx, "fresh"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	n, err := store.ExpireOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("ExpireOlderThan() error: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
}
