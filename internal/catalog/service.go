// Package catalog exposes the product attributes the storefront filters on.
package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"storefront-gateway/internal/woocommerce"
)

const (
	defaultTermsPage    = 1
	defaultTermsPerPage = 100
	// WooCommerce rejects per_page above 100.
	maxTermsPerPage = 100
)

// DefaultAllowedAttributes are the attribute slugs shown when none are
// configured.
var DefaultAllowedAttributes = []string{"pa_material", "pa_room-type-usage", "pa_finish", "pa_colour"}

// Upstream is the subset of the WooCommerce client catalog uses.
type Upstream interface {
	AttributeLister
	ListAttributeTerms(ctx context.Context, attributeID int, params url.Values) ([]woocommerce.AttributeTerm, woocommerce.Pagination, error)
}

// TermsQuery pages through an attribute's terms. Zero values take defaults.
type TermsQuery struct {
	Page    int
	PerPage int
	Search  string
}

// Term is an attribute term as shown to the storefront.
type Term struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// TermsMeta describes a page of terms.
type TermsMeta struct {
	AttributeID int `json:"attribute_id"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
	TotalTerms  int `json:"total_terms"`
}

// TermsPage is one page of an attribute's terms.
type TermsPage struct {
	Terms []Term    `json:"terms"`
	Meta  TermsMeta `json:"meta"`
}

// Service serves attribute listings.
type Service struct {
	api     Upstream
	slugs   *SlugCache
	allowed []string
	logger  *slog.Logger
}

// NewService creates a catalog service. An empty allowed list uses
// DefaultAllowedAttributes.
func NewService(api Upstream, slugs *SlugCache, allowed []string, logger *slog.Logger) *Service {
	if len(allowed) == 0 {
		allowed = DefaultAllowedAttributes
	}
	return &Service{api: api, slugs: slugs, allowed: allowed, logger: logger}
}

// Attributes lists the allowed attributes in store order.
func (s *Service) Attributes(ctx context.Context) ([]woocommerce.Attribute, error) {
	attrs, err := s.api.ListAttributes(ctx)
	if err != nil {
		return nil, err
	}
	s.slugs.Store(attrs)

	allowed := make(map[string]bool, len(s.allowed))
	for _, slug := range s.allowed {
		allowed[slug] = true
	}
	out := []woocommerce.Attribute{}
	for _, a := range attrs {
		if allowed[a.Slug] {
			out = append(out, a)
		}
	}
	return out, nil
}

// AttributeTerms lists the terms of the attribute named by slug. A numeric
// slug is taken as the attribute id.
func (s *Service) AttributeTerms(ctx context.Context, slug string, q TermsQuery) (*TermsPage, error) {
	id, err := strconv.Atoi(slug)
	if err != nil || id <= 0 {
		id, err = s.slugs.Resolve(ctx, slug)
		if err != nil {
			return nil, err
		}
	}

	if q.Page <= 0 {
		q.Page = defaultTermsPage
	}
	if q.PerPage <= 0 {
		q.PerPage = defaultTermsPerPage
	}
	q.PerPage = min(q.PerPage, maxTermsPerPage)
	params := url.Values{
		"page":     {strconv.Itoa(q.Page)},
		"per_page": {strconv.Itoa(q.PerPage)},
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	terms, pages, err := s.api.ListAttributeTerms(ctx, id, params)
	if err != nil {
		return nil, err
	}

	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		out = append(out, Term{ID: t.ID, Name: t.Name, Slug: t.Slug, Count: t.Count})
	}
	return &TermsPage{
		Terms: out,
		Meta: TermsMeta{
			AttributeID: id,
			CurrentPage: q.Page,
			PerPage:     q.PerPage,
			TotalPages:  pages.TotalPages,
			TotalTerms:  pages.Total,
		},
	}, nil
}
