package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-gateway/internal/adapter"
	"storefront-gateway/internal/cart"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/model"
	"storefront-gateway/internal/reconcile"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(&adapter.Mock{})
	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	_, mux := testHandler(&adapter.Mock{})

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test-client", "version": "1.0.0"},
			"capabilities":    map[string]any{},
		},
	}

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Error("Expected result in response")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, mux := testHandler(&adapter.Mock{})
	sessionID := initMCPSession(t, mux)

	resp := mcpCall(t, mux, sessionID, jsonrpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}

	var toolsResult struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"add_to_cart":      false,
		"get_cart":         false,
		"update_cart_item": false,
		"remove_from_cart": false,
		"checkout":         false,
		"process_payment":  false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPAddToCart(t *testing.T) {
	var got *model.AddToCartRequest
	mock := &adapter.Mock{
		AddToCartFunc: func(ctx context.Context, req *model.AddToCartRequest, who model.Requester) (*cart.Result, error) {
			got = req
			return &cart.Result{
				OrderID:   610,
				LineItems: []reconcile.View{{ID: 3, ProductID: 101, VariationID: 2051, Quantity: 10, OrderID: 610}},
			}, nil
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "add_to_cart", map[string]any{
		"product_id":   101,
		"variation_id": 2051,
		"quantity":     10,
		"m2_quantity":  0.93,
	})
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	if len(result.Content) == 0 || !strings.Contains(result.Content[0].Text, `"order_id":610`) {
		t.Errorf("content = %+v", result.Content)
	}

	if got == nil {
		t.Fatal("adapter not called")
	}
	if got.ProductID != 101 || got.VariationID.ID != 2051 || got.Quantity != 10 {
		t.Errorf("request = %+v", got)
	}
	if !got.M2Quantity.Set || got.M2Quantity.Value.String() != "0.93" {
		t.Errorf("m2_quantity = %+v, want 0.93", got.M2Quantity)
	}
	if got.Price.Set {
		t.Error("price should be unset when omitted")
	}
}

func TestMCPCheckout(t *testing.T) {
	var got checkout.Request
	mock := &adapter.Mock{
		CheckoutFunc: func(ctx context.Context, req checkout.Request) (*checkout.Result, error) {
			got = req
			return &checkout.Result{Order: checkout.Order{ID: 701, Status: "pending", Total: "43.25", Currency: "GBP"}, Created: true}, nil
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "checkout", map[string]any{
		"session_id":    "1760600000000",
		"customer_note": "call on arrival",
	})
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}

	var out CheckoutOutput
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatalf("Failed to parse checkout from result: %v", err)
	}
	if !out.Created || out.Order.ID != 701 {
		t.Errorf("output = %+v", out)
	}
	if got.SessionID != "1760600000000" || got.Body.CustomerNote != "call on arrival" {
		t.Errorf("request = %+v", got)
	}
}

func TestMCPProcessPaymentDeclined(t *testing.T) {
	mock := &adapter.Mock{
		ProcessPaymentFunc: func(ctx context.Context, req *model.PaymentRequest, sessionID string) (*checkout.Order, error) {
			return nil, model.NewPaymentError("payment declined")
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "process_payment", map[string]any{
		"order_id":       701,
		"payment_method": "paypal",
	})
	if !result.IsError {
		t.Fatal("Expected tool error")
	}
	if len(result.Content) == 0 || !strings.Contains(result.Content[0].Text, "PAYMENT_ERROR: payment declined") {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestMCPRemoveFromCartMissingItem(t *testing.T) {
	called := false
	mock := &adapter.Mock{
		RemoveCartItemFunc: func(ctx context.Context, itemID int, who model.Requester) (*cart.RemoveResult, error) {
			called = true
			return nil, nil
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "remove_from_cart", map[string]any{"item_id": 0})
	if !result.IsError {
		t.Error("Expected tool error for item_id 0")
	}
	if called {
		t.Error("adapter called without an item id")
	}
}

func TestMCPInternalErrorHidden(t *testing.T) {
	mock := &adapter.Mock{
		ListCartFunc: func(ctx context.Context) (*cart.ListResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_cart", map[string]any{})
	if !result.IsError {
		t.Fatal("Expected tool error")
	}
	if len(result.Content) == 0 || strings.Contains(result.Content[0].Text, "deadline") {
		t.Errorf("content = %+v, want internal details hidden", result.Content)
	}
}

func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args map[string]any) callToolResult {
	t.Helper()

	rawArgs, _ := json.Marshal(args)
	resp := mcpCall(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: rawArgs},
	})
	if resp.Error != nil {
		t.Fatalf("Unexpected JSON-RPC error: %+v", resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

func mcpCall(t *testing.T, mux *http.ServeMux, sessionID string, req jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	// MCP returns 200 OK even for tool errors, error is in the result
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	return resp
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]any{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	sessionID := w.Header().Get("Mcp-Session-Id")

	// Complete the handshake before calling tools.
	note, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"})
	notify := httptest.NewRequest("POST", "/mcp", bytes.NewReader(note))
	setMCPHeaders(notify, sessionID)
	mux.ServeHTTP(httptest.NewRecorder(), notify)

	return sessionID
}
