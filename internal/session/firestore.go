package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront-gateway/internal/model"
)

// FirestoreStore keeps one document per session in a Firestore collection.
//
// Document layout (doc id = session id):
//
//	cookies   map[string]string
//	orderId   int
//	createdAt timestamp
//	updatedAt timestamp
//	expiresAt timestamp  (updatedAt + ttl; point a Firestore TTL policy here)
//
// Read-modify-write operations run in transactions, so BindOrder is
// first-write-wins across instances.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	ttl        time.Duration
	now        func() time.Time
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore creates a store over collection. ttl sets expiresAt.
func NewFirestoreStore(client *firestore.Client, collection string, ttl time.Duration) (*FirestoreStore, error) {
	if client == nil {
		return nil, errors.New("firestore client is nil")
	}
	if collection == "" {
		return nil, errors.New("session collection is required")
	}
	return &FirestoreStore{client: client, collection: collection, ttl: ttl, now: time.Now}, nil
}

type sessionDoc struct {
	Cookies   map[string]string `firestore:"cookies"`
	OrderID   int               `firestore:"orderId"`
	CreatedAt time.Time         `firestore:"createdAt"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
	ExpiresAt time.Time         `firestore:"expiresAt"`
}

func (d sessionDoc) toSession(id string) *Session {
	cookies := d.Cookies
	if cookies == nil {
		cookies = map[string]string{}
	}
	return &Session{
		ID:        id,
		Cookies:   cookies,
		OrderID:   d.OrderID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (f *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(id)
}

func (f *FirestoreStore) newDoc() sessionDoc {
	now := f.now().UTC()
	return sessionDoc{
		Cookies:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(f.ttl),
	}
}

func (f *FirestoreStore) touch(d *sessionDoc) {
	now := f.now().UTC()
	d.UpdatedAt = now
	d.ExpiresAt = now.Add(f.ttl)
}

// readTx loads a session inside a transaction. found is false when the
// document does not exist.
func readTx(tx *firestore.Transaction, ref *firestore.DocumentRef) (doc sessionDoc, found bool, err error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return sessionDoc{}, false, nil
		}
		return sessionDoc{}, false, err
	}
	if err := snap.DataTo(&doc); err != nil {
		return sessionDoc{}, false, fmt.Errorf("decoding session %s: %w", ref.ID, err)
	}
	return doc, true, nil
}

func (f *FirestoreStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	ref := f.doc(id)
	var out sessionDoc
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, found, err := readTx(tx, ref)
		if err != nil {
			return err
		}
		if found {
			out = doc
			return nil
		}
		out = f.newDoc()
		return tx.Create(ref, out)
	})
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}
	return out.toSession(id), nil
}

func (f *FirestoreStore) Lookup(ctx context.Context, id string) (*Session, error) {
	snap, err := f.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, model.NewNotFoundError("cart session")
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return doc.toSession(id), nil
}

func (f *FirestoreStore) MergeCookies(ctx context.Context, id string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	ref := f.doc(id)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, found, err := readTx(tx, ref)
		if err != nil {
			return err
		}
		if !found {
			doc = f.newDoc()
		}
		if doc.Cookies == nil {
			doc.Cookies = map[string]string{}
		}
		mergeInto(doc.Cookies, cookies, f.now())
		f.touch(&doc)
		return tx.Set(ref, doc)
	})
	if err != nil {
		return fmt.Errorf("merge session cookies: %w", err)
	}
	return nil
}

func (f *FirestoreStore) BindOrder(ctx context.Context, id string, orderID int) (int, error) {
	ref := f.doc(id)
	var bound int
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, found, err := readTx(tx, ref)
		if err != nil {
			return err
		}
		if !found {
			return model.NewNotFoundError("cart session")
		}
		if doc.OrderID != 0 {
			bound = doc.OrderID
			return nil
		}
		f.touch(&doc)
		bound = orderID
		return tx.Update(ref, []firestore.Update{
			{Path: "orderId", Value: orderID},
			{Path: "updatedAt", Value: doc.UpdatedAt},
			{Path: "expiresAt", Value: doc.ExpiresAt},
		})
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return 0, err
		}
		return 0, fmt.Errorf("bind session order: %w", err)
	}
	return bound, nil
}

func (f *FirestoreStore) Unbind(ctx context.Context, id string) error {
	now := f.now().UTC()
	_, err := f.doc(id).Update(ctx, []firestore.Update{
		{Path: "orderId", Value: 0},
		{Path: "updatedAt", Value: now},
		{Path: "expiresAt", Value: now.Add(f.ttl)},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("unbind session: %w", err)
	}
	return nil
}

func (f *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := f.doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ExpireOlderThan deletes sessions whose updatedAt is older than maxAge.
// A TTL policy on expiresAt does the same server-side, but TTL deletion can
// lag by up to a day.
func (f *FirestoreStore) ExpireOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := f.now().UTC().Add(-maxAge)
	iter := f.client.Collection(f.collection).Where("updatedAt", "<", cutoff).Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("listing expired sessions: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
			return n, fmt.Errorf("deleting session %s: %w", snap.Ref.ID, err)
		}
		n++
	}
}
