package handler

import (
	"log/slog"
	"net/http"

	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/model"
)

// handleCheckout turns the session's Store API cart into an order, or
// updates the order the session already has.
// POST /checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body model.CheckoutRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req := checkout.Request{
		SessionID: sessionID(r),
		Nonce:     storeNonce(r),
		Body:      &body,
		Requester: h.requester(r),
	}

	h.logger.InfoContext(ctx, "checkout",
		slog.String("session_id", req.SessionID),
		slog.Bool("has_billing", body.Billing != nil),
		slog.Bool("has_shipping", body.Shipping != nil),
		slog.Int("customer_id", req.Requester.CustomerID),
	)

	res, err := h.adapter.Checkout(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := "Order updated with new information"
	if res.Created {
		msg = "Order created with billing and shipping information"
	}
	h.writeOK(w, envelope{Message: msg, Order: res.Order})
}

// handleProcessPayment runs the simulated card payment for an order.
// POST /cart/process-payment
func (h *Handler) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "processing payment",
		slog.Int("order_id", int(req.OrderID)),
		slog.String("payment_method", req.PaymentMethod),
	)

	order, err := h.adapter.ProcessPayment(ctx, &req, sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeOK(w, envelope{Message: "Payment processed successfully", Order: order})
}
