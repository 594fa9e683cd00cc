// Package handler serves the storefront HTTP API and the MCP endpoint.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"storefront-gateway/internal/adapter"
	"storefront-gateway/internal/auth"
	"storefront-gateway/internal/model"
)

// Request headers the storefront sends with cart calls.
const (
	HeaderSessionID  = "X-Session-Id"
	HeaderNonce      = "Nonce"
	HeaderStoreNonce = "X-WC-Store-API-Nonce"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	adapter adapter.Adapter
	auth    *auth.Verifier
	logger  *slog.Logger
}

// New creates a Handler. The verifier may be nil, in which case every
// caller is a guest and the account routes always answer 401.
func New(a adapter.Adapter, verifier *auth.Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		adapter: a,
		auth:    verifier,
		logger:  logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Legacy cart kept as pending orders
	mux.HandleFunc("POST /cart/add", h.handleAddToCart)
	mux.HandleFunc("GET /cart", h.handleListCart)
	mux.HandleFunc("PUT /cart/{itemId}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /cart/{itemId}", h.handleRemoveCartItem)
	mux.HandleFunc("POST /cart/process-payment", h.handleProcessPayment)

	mux.HandleFunc("POST /checkout", h.handleCheckout)
	mux.HandleFunc("POST /shipping/methods", h.handleShippingMethods)

	// Store API cart
	mux.HandleFunc("GET /store-cart/nonce", h.handleStoreCartNonce)
	mux.HandleFunc("GET /store-cart", h.handleGetStoreCart)
	mux.HandleFunc("POST /store-cart/calculate-m2-price", h.handleCalculateM2Price)
	mux.HandleFunc("POST /store-cart/add-item", h.handleAddStoreCartItem)
	mux.HandleFunc("POST /store-cart/update-item", h.handleUpdateStoreCartItem)
	mux.HandleFunc("POST /store-cart/remove-item", h.handleRemoveStoreCartItem)
	mux.HandleFunc("DELETE /store-cart", h.handleClearStoreCart)

	mux.HandleFunc("GET /auth/orders", h.handleListOrders)
	mux.HandleFunc("GET /auth/orders/{id}", h.handleGetOrder)

	mux.HandleFunc("GET /attributes", h.handleListAttributes)
	mux.HandleFunc("GET /attributes/{slug}/terms", h.handleListAttributeTerms)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// === Response Helpers ===

// envelope is the success body. Each route fills the fields it returns.
type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       any             `json:"data,omitempty"`
	Order      any             `json:"order,omitempty"`
	Cart       json.RawMessage `json:"cart,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	Nonce      string          `json:"nonce,omitempty"`
	M2Quantity string          `json:"m2_quantity,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeOK sends a success envelope with status 200.
func (h *Handler) writeOK(w http.ResponseWriter, body envelope) {
	body.Success = true
	h.writeJSON(w, http.StatusOK, body)
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose fields are all
// optional: an empty body leaves v at its zero value.
func decodeOptionalJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// === Request Helpers ===

// requester describes who is calling. A bad bearer token makes the caller
// a guest rather than failing the request.
func (h *Handler) requester(r *http.Request) model.Requester {
	who := model.Requester{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if h.auth != nil {
		who.CustomerID = h.auth.Optional(r)
	}
	return who
}

// clientIP prefers the first X-Forwarded-For hop, as set by the load
// balancer in front of Cloud Run.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderSessionID))
}

func storeNonce(r *http.Request) string {
	if n := r.Header.Get(HeaderNonce); n != "" {
		return n
	}
	return r.Header.Get(HeaderStoreNonce)
}

// customer returns the signed-in customer or a 401.
func (h *Handler) customer(r *http.Request) (int, error) {
	if h.auth == nil {
		return 0, model.NewUnauthorizedError("authentication is not configured")
	}
	claims, err := h.auth.Required(r)
	if err != nil {
		return 0, err
	}
	return int(claims.UserID), nil
}
