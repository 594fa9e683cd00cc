package handler

import (
	"net/http"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/storecart"
)

func storeCall(r *http.Request) storecart.Call {
	return storecart.Call{SessionID: sessionID(r), Nonce: storeNonce(r)}
}

// writeStoreCart sends the Store API cart and hands the session id and
// any fresh nonce back in headers as well as in the body.
func (h *Handler) writeStoreCart(w http.ResponseWriter, msg string, reply *storecart.Reply) {
	w.Header().Set(HeaderSessionID, reply.SessionID)
	if reply.Nonce != "" {
		w.Header().Set(HeaderNonce, reply.Nonce)
	}
	h.writeOK(w, envelope{
		Message:    msg,
		Cart:       reply.Cart,
		SessionID:  reply.SessionID,
		Nonce:      reply.Nonce,
		M2Quantity: reply.M2Quantity,
	})
}

// GET /store-cart/nonce
func (h *Handler) handleStoreCartNonce(w http.ResponseWriter, r *http.Request) {
	res, err := h.adapter.StoreCartNonce(r.Context(), storeCall(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderSessionID, res.SessionID)
	h.writeOK(w, envelope{Nonce: res.Nonce, SessionID: res.SessionID})
}

// GET /store-cart
func (h *Handler) handleGetStoreCart(w http.ResponseWriter, r *http.Request) {
	reply, err := h.adapter.GetStoreCart(r.Context(), storeCall(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoreCart(w, "", reply)
}

// POST /store-cart/add-item
func (h *Handler) handleAddStoreCartItem(w http.ResponseWriter, r *http.Request) {
	var req model.StoreCartAddRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reply, err := h.adapter.AddStoreCartItem(r.Context(), storeCall(r), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoreCart(w, "Item added to cart successfully", reply)
}

// POST /store-cart/update-item
func (h *Handler) handleUpdateStoreCartItem(w http.ResponseWriter, r *http.Request) {
	var req model.StoreCartUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reply, err := h.adapter.UpdateStoreCartItem(r.Context(), storeCall(r), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoreCart(w, "Cart item updated successfully", reply)
}

// POST /store-cart/remove-item
func (h *Handler) handleRemoveStoreCartItem(w http.ResponseWriter, r *http.Request) {
	var req model.StoreCartRemoveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reply, err := h.adapter.RemoveStoreCartItem(r.Context(), storeCall(r), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoreCart(w, "Item removed from cart", reply)
}

// DELETE /store-cart
func (h *Handler) handleClearStoreCart(w http.ResponseWriter, r *http.Request) {
	reply, err := h.adapter.ClearStoreCart(r.Context(), storeCall(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoreCart(w, "Cart cleared", reply)
}

// handleCalculateM2Price quotes an area price. It needs no session.
// POST /store-cart/calculate-m2-price
func (h *Handler) handleCalculateM2Price(w http.ResponseWriter, r *http.Request) {
	var req model.M2PriceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.adapter.CalculateM2Price(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, envelope{Data: res})
}
