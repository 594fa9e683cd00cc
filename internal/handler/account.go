package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront-gateway/internal/account"
	"storefront-gateway/internal/model"
)

// handleListOrders lists the signed-in customer's orders.
// GET /auth/orders?page=&per_page=&status=
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, err := h.customer(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	query := account.ListQuery{Status: q.Get("status")}
	if query.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if query.PerPage, err = queryInt(q.Get("per_page"), "per_page"); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.adapter.ListCustomerOrders(r.Context(), customerID, query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, envelope{Data: list})
}

// handleGetOrder returns one of the signed-in customer's orders.
// GET /auth/orders/{id}
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	customerID, err := h.customer(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "getting customer order",
		slog.Int("customer_id", customerID),
		slog.Int("order_id", orderID),
	)

	order, err := h.adapter.GetCustomerOrder(r.Context(), customerID, orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, envelope{Order: order})
}

// queryInt parses an optional non-negative integer query parameter.
// Absent means 0, which the services read as "use the default".
func queryInt(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, model.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
