package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"storefront-gateway/internal/model"
)

// StoreSession is the per-browser authentication the Store API expects:
// the WooCommerce cookie blob and, for mutations, the latest nonce.
type StoreSession struct {
	Cookie string
	Nonce  string
}

// StoreResponse is a Store API reply. Raw is the body as received so it can
// be handed to the storefront untouched; Cart is its parsed form when the
// endpoint returns a cart. Nonce and Cookies carry what the store issued.
type StoreResponse struct {
	Cart    *WooCartResponse
	Raw     json.RawMessage
	Nonce   string
	Cookies []*http.Cookie
}

// GetCart fetches the cart. Also used to obtain a fresh nonce.
func (c *Client) GetCart(ctx context.Context, sess StoreSession) (*StoreResponse, error) {
	return c.store(ctx, http.MethodGet, "/cart", sess, nil, true)
}

// AddCartItem adds a product or variation to the cart.
func (c *Client) AddCartItem(ctx context.Context, sess StoreSession, item WooCartAddRequest) (*StoreResponse, error) {
	return c.store(ctx, http.MethodPost, "/cart/add-item", sess, item, true)
}

// UpdateCartItem sets the quantity of a cart line.
func (c *Client) UpdateCartItem(ctx context.Context, sess StoreSession, key string, quantity int) (*StoreResponse, error) {
	body := struct {
		Key      string `json:"key"`
		Quantity int    `json:"quantity"`
	}{key, quantity}
	return c.store(ctx, http.MethodPost, "/cart/update-item", sess, body, true)
}

// RemoveCartItem removes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, sess StoreSession, key string) (*StoreResponse, error) {
	body := struct {
		Key string `json:"key"`
	}{key}
	return c.store(ctx, http.MethodPost, "/cart/remove-item", sess, body, true)
}

// ClearCart deletes every cart line. The Store API answers with the (empty)
// item list rather than a cart, so only Raw is populated.
func (c *Client) ClearCart(ctx context.Context, sess StoreSession) (*StoreResponse, error) {
	return c.store(ctx, http.MethodDelete, "/cart/items", sess, nil, false)
}

func (c *Client) store(ctx context.Context, method, path string, sess StoreSession, body any, parseCart bool) (*StoreResponse, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling store request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.storeURL+storeAPIPath+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating store request: %w", err)
	}
	setStoreAPIHeaders(req, sess)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewUpstreamError(serviceName, fmt.Errorf("reading store response: %w", err))
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, model.NewRateLimitError(serviceName)
		}
		return nil, model.NewUpstreamStatusError(serviceName, resp.StatusCode, respBody)
	}

	out := &StoreResponse{
		Raw:     json.RawMessage(respBody),
		Nonce:   nonceFrom(resp.Header),
		Cookies: resp.Cookies(),
	}

	if parseCart {
		var cart WooCartResponse
		if err := json.Unmarshal(respBody, &cart); err != nil {
			return nil, model.NewUpstreamError(serviceName, fmt.Errorf("parsing cart response: %w", err))
		}
		out.Cart = &cart
	}

	return out, nil
}

// setStoreAPIHeaders sets headers for Store API requests. Unlike REST v3 the
// Store API takes no Basic auth; identity is the forwarded cookie blob.
func setStoreAPIHeaders(req *http.Request, sess StoreSession) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if sess.Cookie != "" {
		req.Header.Set("Cookie", sess.Cookie)
	}
	if sess.Nonce != "" {
		req.Header.Set("Nonce", sess.Nonce)
	}
}

// nonceFrom reads the nonce header; older Store API versions used the
// X-WC-Store-API-Nonce name.
func nonceFrom(h http.Header) string {
	if n := h.Get("Nonce"); n != "" {
		return n
	}
	return h.Get("X-WC-Store-API-Nonce")
}
