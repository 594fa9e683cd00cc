package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/transport"
)

// =============================================================================
// TWO APIS, TWO AUTH SCHEMES
// =============================================================================
//
// REST v3 (/wp-json/wc/v3) is the back-office API: orders, products,
// attributes, shipping zones. Every call carries the consumer key/secret as
// HTTP Basic auth.
// The legacy cart path, checkout order creation, payment and order history all
// go through it.
//
// Store API (/wp-json/wc/store/v1) is the storefront cart. It knows nothing
// about consumer keys; a cart is identified by the WooCommerce session cookies
// and mutations need a Nonce issued on a previous response. The gateway keeps
// the cookie jar per storefront session (see internal/session) and forwards it
// verbatim; this client only moves the blob and reports new Set-Cookie values.
// =============================================================================

const (
	restAPIPath  = "/wp-json/wc/v3"
	storeAPIPath = "/wp-json/wc/store/v1"

	// userAgent identifies the gateway; store WAFs throttle requests without one.
	userAgent = "Storefront-Gateway/1.0"

	serviceName = "WooCommerce"
)

// Config holds WooCommerce connection settings.
type Config struct {
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string

	// HTTPClient overrides the default instrumented Chrome-fingerprint client.
	HTTPClient *http.Client
}

// Client talks to one WooCommerce store.
type Client struct {
	httpClient     *http.Client
	storeURL       string
	consumerKey    string
	consumerSecret string
}

// New creates a WooCommerce client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport.New(30 * time.Second),
		}
	}

	return &Client{
		httpClient:     httpClient,
		storeURL:       strings.TrimSuffix(cfg.StoreURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
	}, nil
}

// === Orders ===

// ListOrders fetches one page of orders.
func (c *Client) ListOrders(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Customer > 0 {
		params.Set("customer", strconv.Itoa(q.Customer))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.OrderBy != "" {
		params.Set("orderby", q.OrderBy)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}

	var orders []Order
	header, err := c.rest(ctx, http.MethodGet, "/orders", params, nil, &orders, "orders")
	if err != nil {
		return nil, err
	}

	return &OrderPage{Orders: orders, Pagination: parsePagination(header)}, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, id int) (*Order, error) {
	var order Order
	if _, err := c.rest(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order, "order"); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder creates an order and returns it as stored.
func (c *Client) CreateOrder(ctx context.Context, in *OrderInput) (*Order, error) {
	var order Order
	if _, err := c.rest(ctx, http.MethodPost, "/orders", nil, in, &order, "order"); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder applies a partial update to an order.
func (c *Client) UpdateOrder(ctx context.Context, id int, in *OrderInput) (*Order, error) {
	var order Order
	if _, err := c.rest(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), nil, in, &order, "order"); err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder permanently deletes an order (force=true bypasses the trash).
func (c *Client) DeleteOrder(ctx context.Context, id int) error {
	params := url.Values{"force": {"true"}}
	_, err := c.rest(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", id), params, nil, nil, "order")
	return err
}

// === Catalog ===

// GetProduct fetches a product or variation by id.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var p Product
	if _, err := c.rest(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &p, "product"); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAttributes fetches all global product attributes.
func (c *Client) ListAttributes(ctx context.Context) ([]Attribute, error) {
	var attrs []Attribute
	if _, err := c.rest(ctx, http.MethodGet, "/products/attributes", nil, nil, &attrs, "attributes"); err != nil {
		return nil, err
	}
	return attrs, nil
}

// ListAttributeTerms fetches terms of an attribute. params passes through
// paging and ordering (per_page, page, orderby, hide_empty).
func (c *Client) ListAttributeTerms(ctx context.Context, attributeID int, params url.Values) ([]AttributeTerm, Pagination, error) {
	var terms []AttributeTerm
	header, err := c.rest(ctx, http.MethodGet,
		fmt.Sprintf("/products/attributes/%d/terms", attributeID), params, nil, &terms, "attribute")
	if err != nil {
		return nil, Pagination{}, err
	}
	return terms, parsePagination(header), nil
}

// === Shipping ===

// ListShippingZones fetches every shipping zone, including the catch-all
// "Locations not covered" zone with id 0.
func (c *Client) ListShippingZones(ctx context.Context) ([]ShippingZone, error) {
	var zones []ShippingZone
	if _, err := c.rest(ctx, http.MethodGet, "/shipping/zones", nil, nil, &zones, "shipping zones"); err != nil {
		return nil, err
	}
	return zones, nil
}

// ListZoneLocations fetches the location rules of a zone.
func (c *Client) ListZoneLocations(ctx context.Context, zoneID int) ([]ZoneLocation, error) {
	var locs []ZoneLocation
	if _, err := c.rest(ctx, http.MethodGet, fmt.Sprintf("/shipping/zones/%d/locations", zoneID), nil, nil, &locs, "shipping zone"); err != nil {
		return nil, err
	}
	return locs, nil
}

// ListZoneMethods fetches the method instances configured on a zone.
func (c *Client) ListZoneMethods(ctx context.Context, zoneID int) ([]ZoneMethod, error) {
	var methods []ZoneMethod
	if _, err := c.rest(ctx, http.MethodGet, fmt.Sprintf("/shipping/zones/%d/methods", zoneID), nil, nil, &methods, "shipping zone"); err != nil {
		return nil, err
	}
	return methods, nil
}

// === Transport helpers ===

// rest performs an authenticated REST v3 call. body is JSON-encoded when
// non-nil; out receives the decoded response when non-nil. resource names
// the thing being fetched in NOT_FOUND errors.
func (c *Client) rest(ctx context.Context, method, path string, params url.Values, body, out any, resource string) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s request: %w", resource, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	u := c.storeURL + restAPIPath + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", resource, err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewUpstreamError(serviceName, fmt.Errorf("reading %s response: %w", resource, err))
	}

	if resp.StatusCode >= 400 {
		return nil, parseRESTError(resp.StatusCode, respBody, resource)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, model.NewUpstreamError(serviceName, fmt.Errorf("parsing %s response: %w", resource, err))
		}
	}

	return resp.Header, nil
}

// parseRESTError converts a REST v3 error into an APIError.
// 401/403 mean the gateway's own credentials were refused, which is an
// upstream fault from the storefront's point of view.
func parseRESTError(status int, body []byte, resource string) error {
	switch status {
	case http.StatusNotFound:
		return model.NewNotFoundError(resource)
	case http.StatusTooManyRequests:
		return model.NewRateLimitError(serviceName)
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr := model.NewUpstreamStatusError(serviceName, http.StatusBadGateway, body)
		apiErr.Message = "WooCommerce rejected the gateway credentials"
		return apiErr
	default:
		return model.NewUpstreamStatusError(serviceName, status, body)
	}
}

// parsePagination reads WordPress pagination headers. Missing or malformed
// headers read as zero.
func parsePagination(h http.Header) Pagination {
	total, _ := strconv.Atoi(h.Get("X-WP-Total"))
	pages, _ := strconv.Atoi(h.Get("X-WP-TotalPages"))
	return Pagination{Total: total, TotalPages: pages}
}
