// Package woocommerce talks to a WooCommerce store: the authenticated REST v3
// API (orders, products, attributes) and the session-oriented Store API cart.
package woocommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// === REST v3 Types ===

// Order is a WooCommerce order as returned by /wc/v3/orders.
// Pending orders double as carts on the legacy cart path.
type Order struct {
	ID                 int            `json:"id"`
	ParentID           int            `json:"parent_id"`
	Status             string         `json:"status"`
	OrderKey           string         `json:"order_key"`
	Currency           string         `json:"currency"`
	Total              string         `json:"total"`
	CustomerID         int            `json:"customer_id"`
	CustomerNote       string         `json:"customer_note"`
	CreatedVia         string         `json:"created_via"`
	DateCreated        string         `json:"date_created"`
	DatePaid           string         `json:"date_paid"`
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	TransactionID      string         `json:"transaction_id"`
	Billing            Address        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	LineItems          []LineItem     `json:"line_items"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
	MetaData           []MetaData     `json:"meta_data"`
}

// LineItem is an order line as returned by the REST API.
type LineItem struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	ProductID   int        `json:"product_id"`
	VariationID int        `json:"variation_id"`
	Quantity    int        `json:"quantity"`
	SKU         string     `json:"sku"`
	Price       Amount     `json:"price"`
	Subtotal    string     `json:"subtotal"`
	Total       string     `json:"total"`
	MetaData    []MetaData `json:"meta_data"`
}

// MetaData is a key/value pair attached to orders and line items.
// Value is whatever JSON WooCommerce stored (string, number, bool, object).
type MetaData struct {
	ID    int    `json:"id,omitempty"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Address is a billing or shipping block. Email and Phone are only
// meaningful on billing addresses.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ShippingLine is a shipping method applied to an order.
type ShippingLine struct {
	ID          int    `json:"id,omitempty"`
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	InstanceID  string `json:"instance_id,omitempty"`
	Total       string `json:"total"`
}

// OrderInput is the write payload for POST/PUT /orders. Empty fields are
// omitted so PUTs only touch what the caller set.
type OrderInput struct {
	Status             string          `json:"status,omitempty"`
	CustomerID         int             `json:"customer_id,omitempty"`
	CreatedVia         string          `json:"created_via,omitempty"`
	PaymentMethod      string          `json:"payment_method,omitempty"`
	PaymentMethodTitle string          `json:"payment_method_title,omitempty"`
	SetPaid            bool            `json:"set_paid,omitempty"`
	TransactionID      string          `json:"transaction_id,omitempty"`
	DatePaid           string          `json:"date_paid,omitempty"`
	CustomerIPAddress  string          `json:"customer_ip_address,omitempty"`
	CustomerUserAgent  string          `json:"customer_user_agent,omitempty"`
	CustomerNote       string          `json:"customer_note,omitempty"`
	Billing            *Address        `json:"billing,omitempty"`
	Shipping           *Address        `json:"shipping,omitempty"`
	LineItems          []LineItemInput `json:"line_items,omitempty"`
	ShippingLines      []ShippingLine  `json:"shipping_lines,omitempty"`
	MetaData           []MetaData      `json:"meta_data,omitempty"`
	Subtotal           string          `json:"subtotal,omitempty"`
	Total              string          `json:"total,omitempty"`
}

// LineItemInput is a line item in an OrderInput. ID is set only when
// updating an existing line in place.
type LineItemInput struct {
	ID          int          `json:"id,omitempty"`
	ProductID   int          `json:"product_id,omitempty"`
	VariationID int          `json:"variation_id,omitempty"`
	Quantity    int          `json:"quantity"`
	Price       json.Number  `json:"price,omitempty"`
	Subtotal    string       `json:"subtotal,omitempty"`
	Total       string       `json:"total,omitempty"`
	Variation   []WooVariant `json:"variation,omitempty"`
	MetaData    []MetaData   `json:"meta_data,omitempty"`
}

// OrderQuery filters GET /orders.
type OrderQuery struct {
	Status   string
	Customer int
	Page     int
	PerPage  int
	OrderBy  string
	Order    string
}

// OrderPage is one page of orders plus the pagination headers.
type OrderPage struct {
	Orders []Order
	Pagination
}

// Pagination mirrors the x-wp-total / x-wp-totalpages headers.
type Pagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Product carries the fields the gateway needs from /products/{id}.
// For a variation, ParentID is the variable product it belongs to.
type Product struct {
	ID            int        `json:"id"`
	ParentID      int        `json:"parent_id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	SKU           string     `json:"sku"`
	Type          string     `json:"type"`
	Weight        string     `json:"weight"`
	ShippingClass string     `json:"shipping_class"`
	Categories    []Category `json:"categories"`
}

// Category is a product category reference.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Attribute is a global product attribute (pa_* taxonomy).
type Attribute struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Type        string `json:"type"`
	OrderBy     string `json:"order_by"`
	HasArchives bool   `json:"has_archives"`
}

// AttributeTerm is a term of a global attribute.
type AttributeTerm struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	MenuOrder   int    `json:"menu_order"`
	Count       int    `json:"count"`
}

// === Shipping ===

// ShippingZone is a zone from /shipping/zones, in the store's match order.
type ShippingZone struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ZoneLocation is one rule of a zone. Type is "country", "state",
// "postcode" or "continent"; state codes read "GB:ENG".
type ZoneLocation struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// ZoneMethod is a shipping method instance configured on a zone.
type ZoneMethod struct {
	InstanceID  int                      `json:"instance_id"`
	Title       string                   `json:"title"`
	Order       int                      `json:"order"`
	Enabled     bool                     `json:"enabled"`
	MethodID    string                   `json:"method_id"`
	MethodTitle string                   `json:"method_title"`
	Settings    map[string]MethodSetting `json:"settings"`
}

// MethodSetting is one entry of a method's settings. Value is usually a
// string but multiselect settings carry arrays.
type MethodSetting struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Setting returns the named setting's value as a string and whether the
// setting exists. Non-scalar values read as "".
func (m ZoneMethod) Setting(key string) (string, bool) {
	s, ok := m.Settings[key]
	if !ok {
		return "", false
	}
	switch v := s.Value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", true
	}
}

// Amount decodes a price that WooCommerce may send as a number, a numeric
// string, an empty string or null.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = d
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// === Store API Types ===

// WooCartResponse is the Store API cart.
type WooCartResponse struct {
	Items      []WooCartItem `json:"items"`
	ItemsCount int           `json:"items_count"`
	Totals     WooTotals     `json:"totals"`
}

// WooCartItem is an item in a Store API cart. ID is the leaf product id,
// which for a variation is the variation id.
type WooCartItem struct {
	Key        string            `json:"key"`
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Quantity   int               `json:"quantity"`
	Variation  []WooVariant      `json:"variation"`
	ItemData   []WooItemData     `json:"item_data"`
	Prices     WooCartItemPrices `json:"prices"`
	Totals     WooCartItemTotals `json:"totals"`
	Extensions json.RawMessage   `json:"extensions,omitempty"`
}

// ParentID returns extensions.parent_id when a plugin exposes it.
func (i WooCartItem) ParentID() int {
	if len(i.Extensions) == 0 {
		return 0
	}
	var ext map[string]json.RawMessage
	if err := json.Unmarshal(i.Extensions, &ext); err != nil {
		return 0
	}
	raw, ok := ext["parent_id"]
	if !ok {
		return 0
	}
	s := strings.Trim(string(raw), `"`)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return id
}

// WooVariant is a selected variation attribute.
type WooVariant struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// WooItemData is display metadata on a cart item (Store API item_data).
type WooItemData struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Display string `json:"display,omitempty"`
}

// WooCartItemPrices holds per-unit prices in minor units.
type WooCartItemPrices struct {
	Price             string `json:"price"`
	RegularPrice      string `json:"regular_price"`
	SalePrice         string `json:"sale_price"`
	CurrencyCode      string `json:"currency_code"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
}

// WooCartItemTotals holds line totals in minor units.
type WooCartItemTotals struct {
	LineSubtotal      string `json:"line_subtotal"`
	LineTotal         string `json:"line_total"`
	CurrencyCode      string `json:"currency_code"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
}

// WooTotals holds cart totals in minor units.
type WooTotals struct {
	TotalItems        string `json:"total_items"`
	TotalShipping     string `json:"total_shipping"`
	TotalTax          string `json:"total_tax"`
	TotalPrice        string `json:"total_price"`
	CurrencyCode      string `json:"currency_code"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
}

// WooCartAddRequest is the body of POST cart/add-item.
type WooCartAddRequest struct {
	ID        int          `json:"id"`
	Quantity  int          `json:"quantity"`
	Variation []WooVariant `json:"variation,omitempty"`
}
