package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront-gateway/internal/model"
)

// handleAddToCart adds an entry to the pending-order cart.
// POST /cart/add
func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	who := h.requester(r)

	h.logger.InfoContext(ctx, "adding to cart",
		slog.Int("product_id", int(req.ProductID)),
		slog.Int("quantity", int(req.Quantity)),
		slog.Bool("check_duplicates", bool(req.CheckDuplicates)),
		slog.Int("customer_id", who.CustomerID),
	)

	res, err := h.adapter.AddToCart(ctx, &req, who)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeOK(w, envelope{Message: "Item added to cart successfully", Data: res})
}

// handleListCart returns every pending line item.
// GET /cart
func (h *Handler) handleListCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.adapter.ListCart(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, envelope{Data: res})
}

// handleUpdateCartItem applies quantity deltas to the order holding the
// line. The path segment is the order id the storefront got from /cart.
// PUT /cart/{itemId}
func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := pathID(r, "itemId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req model.UpdateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "updating cart item", slog.Int("order_id", orderID))

	res, err := h.adapter.UpdateCartItem(ctx, orderID, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeOK(w, envelope{Message: "Cart item updated successfully", Data: res})
}

// handleRemoveCartItem removes one line item wherever it lives.
// DELETE /cart/{itemId}
func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := pathID(r, "itemId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "removing cart item", slog.Int("item_id", itemID))

	res, err := h.adapter.RemoveCartItem(ctx, itemID, h.requester(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeOK(w, envelope{Message: "Item removed from cart", Data: res})
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, model.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}
