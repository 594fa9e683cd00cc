package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/shipping"
)

// HeaderOrderID names the order when the body does not.
const HeaderOrderID = "X-Order-Id"

type shippingResponse struct {
	Success         bool              `json:"success"`
	Zone            string            `json:"zone,omitempty"`
	ShippingMethods []shipping.Method `json:"shipping_methods"`
}

// handleShippingMethods quotes shipping for the checkout order. The order
// comes from orderId, then X-Order-Id, then the order bound to the session.
// POST /shipping/methods
func (h *Handler) handleShippingMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body model.ShippingMethodsRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req := shipping.Request{
		OrderID:   int(body.OrderID),
		SessionID: sessionID(r),
		Country:   body.Country,
		State:     body.State,
		Postcode:  body.Postcode,
		City:      body.City,
	}
	if req.OrderID == 0 {
		if raw := strings.TrimSpace(r.Header.Get(HeaderOrderID)); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				h.writeError(w, r, model.NewValidationError(HeaderOrderID, "must be an integer"))
				return
			}
			req.OrderID = id
		}
	}

	h.logger.InfoContext(ctx, "shipping methods",
		slog.Int("order_id", req.OrderID),
		slog.String("country", req.Country),
		slog.String("postcode", req.Postcode),
	)

	quote, err := h.adapter.ShippingMethods(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, shippingResponse{
		Success:         true,
		Zone:            quote.Zone,
		ShippingMethods: quote.Methods,
	})
}
