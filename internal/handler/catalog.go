package handler

import (
	"net/http"

	"storefront-gateway/internal/catalog"
)

// GET /attributes
func (h *Handler) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := h.adapter.ListAttributes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, envelope{Data: attrs})
}

// handleListAttributeTerms lists an attribute's terms. The slug may also be
// the numeric attribute id.
// GET /attributes/{slug}/terms?page=&per_page=&search=
func (h *Handler) handleListAttributeTerms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.TermsQuery{Search: q.Get("search")}

	var err error
	if query.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if query.PerPage, err = queryInt(q.Get("per_page"), "per_page"); err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.adapter.ListAttributeTerms(r.Context(), r.PathValue("slug"), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, envelope{Data: page})
}
