package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// AttributeLister lists global product attributes.
type AttributeLister interface {
	ListAttributes(ctx context.Context) ([]woocommerce.Attribute, error)
}

// SlugCache maps attribute slugs to ids. A miss lists every attribute once
// and caches all of them; concurrent misses share that one fetch.
type SlugCache struct {
	api   AttributeLister
	cache *expirable.LRU[string, int]
	group singleflight.Group
}

// NewSlugCache creates a cache holding up to size slugs for ttl each.
func NewSlugCache(api AttributeLister, size int, ttl time.Duration) *SlugCache {
	if size <= 0 {
		size = 256
	}
	return &SlugCache{
		api:   api,
		cache: expirable.NewLRU[string, int](size, nil, ttl),
	}
}

// Resolve returns the attribute id for slug.
func (c *SlugCache) Resolve(ctx context.Context, slug string) (int, error) {
	if id, ok := c.cache.Get(slug); ok {
		return id, nil
	}

	// Waiters share this fill; it is not bound to the first caller's request.
	fillCtx := context.WithoutCancel(ctx)
	_, err, _ := c.group.Do("attributes", func() (any, error) {
		attrs, err := c.api.ListAttributes(fillCtx)
		if err != nil {
			return nil, err
		}
		c.Store(attrs)
		return nil, nil
	})
	if err != nil {
		return 0, err
	}

	if id, ok := c.cache.Get(slug); ok {
		return id, nil
	}
	return 0, model.NewNotFoundError("attribute " + slug)
}

// Store caches the slug of every attribute in attrs.
func (c *SlugCache) Store(attrs []woocommerce.Attribute) {
	for _, a := range attrs {
		c.cache.Add(a.Slug, a.ID)
	}
}

// Len returns the number of cached slugs.
func (c *SlugCache) Len() int {
	return c.cache.Len()
}
