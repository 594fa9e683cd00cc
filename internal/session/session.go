// Package session keeps the per-storefront-session state the gateway needs
// between requests: the WooCommerce Store API cookie jar and the order a
// checkout created for the session.
package session

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Session is one storefront cart session. ID is chosen by the client.
// OrderID is 0 until a checkout binds an order.
type Session struct {
	ID        string
	Cookies   map[string]string
	OrderID   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists sessions. Every method is atomic for a single session;
// nothing orders concurrent calls for the same id beyond that.
type Store interface {
	// GetOrCreate returns the session, creating an empty one when unseen.
	GetOrCreate(ctx context.Context, id string) (*Session, error)

	// Lookup returns the session or a model.ErrNotFound error.
	Lookup(ctx context.Context, id string) (*Session, error)

	// MergeCookies folds Set-Cookie values into the jar, creating the
	// session when needed. Same-name cookies take the newer value; expired
	// or deleted cookies are dropped.
	MergeCookies(ctx context.Context, id string, cookies []*http.Cookie) error

	// BindOrder records orderID for the session unless one is already
	// bound, and returns whichever id is bound afterwards.
	BindOrder(ctx context.Context, id string, orderID int) (int, error)

	// Unbind clears the bound order.
	Unbind(ctx context.Context, id string) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// ExpireOlderThan deletes sessions idle for longer than maxAge and
	// returns how many were removed.
	ExpireOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// CookieHeader renders the jar as a Cookie request header, names sorted.
func (s *Session) CookieHeader() string {
	if len(s.Cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+s.Cookies[name])
	}
	return strings.Join(parts, "; ")
}

// HasCookies reports whether the upstream has issued any cookie.
func (s *Session) HasCookies() bool {
	return len(s.Cookies) > 0
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Cookies = make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		cp.Cookies[k] = v
	}
	return &cp
}

// mergeInto applies Set-Cookie values to jar.
func mergeInto(jar map[string]string, cookies []*http.Cookie, now time.Time) {
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			delete(jar, c.Name)
			continue
		}
		jar[c.Name] = c.Value
	}
}

// ValidID reports whether id is usable as a session id: 1 to 128
// characters from [A-Za-z0-9._-], and not "." or "..".
func ValidID(id string) bool {
	if id == "" || len(id) > 128 || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
