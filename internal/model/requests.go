package model

import (
	"strings"
	"time"
	"unicode"
)

// === Legacy cart ===

// AddToCartRequest is the body of POST /cart/add.
type AddToCartRequest struct {
	ProductID       FlexInt     `json:"product_id"`
	VariationID     ItemRef     `json:"variation_id"`
	Quantity        FlexInt     `json:"quantity"`
	M2Quantity      FlexDecimal `json:"m2_quantity"`
	Price           FlexDecimal `json:"price"`
	IsSample        Flag        `json:"is_sample"`
	CheckDuplicates Flag        `json:"check_duplicates"`
	SKU             string      `json:"sku,omitempty"`
}

// Validate checks required fields and ranges.
func (r *AddToCartRequest) Validate() error {
	if r.ProductID <= 0 {
		return NewValidationError("product_id", "required and must be positive")
	}
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "required and must be positive")
	}
	if r.M2Quantity.Set && r.M2Quantity.Value.IsNegative() {
		return NewValidationError("m2_quantity", "must not be negative")
	}
	if r.Price.Set && r.Price.Value.IsNegative() {
		return NewValidationError("price", "must not be negative")
	}
	return nil
}

// UpdateCartItemRequest is the body of PUT /cart/{itemId}. Both values are
// deltas added to the stored line.
type UpdateCartItemRequest struct {
	Quantity   *FlexInt    `json:"quantity"`
	M2Quantity FlexDecimal `json:"m2_quantity"`
}

// Validate checks that a quantity delta was supplied.
func (r *UpdateCartItemRequest) Validate() error {
	if r.Quantity == nil {
		return NewValidationError("quantity", "required")
	}
	return nil
}

// === Checkout ===

// CheckoutRequest is the body of POST /checkout. Every block is optional;
// on a session that already has an order only the supplied blocks are sent.
type CheckoutRequest struct {
	Billing       *Address       `json:"billing,omitempty"`
	Shipping      *Address       `json:"shipping,omitempty"`
	CustomerNote  string         `json:"customer_note,omitempty"`
	ShippingLines []ShippingLine `json:"shipping_lines,omitempty"`
}

// Address is a billing or shipping address as the storefront sends it.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ShippingLine is a chosen shipping method.
type ShippingLine struct {
	MethodID    string  `json:"method_id"`
	MethodTitle string  `json:"method_title"`
	Total       string  `json:"total"`
	InstanceID  FlexInt `json:"instance_id,omitempty"`
}

// ShippingMethodsRequest is the body of POST /shipping/methods. Address
// fields override the order's stored shipping address when set.
type ShippingMethodsRequest struct {
	OrderID  FlexInt `json:"orderId"`
	Country  string  `json:"country"`
	State    string  `json:"state"`
	Postcode string  `json:"postcode"`
	City     string  `json:"city"`
}

// PaymentRequest is the body of POST /cart/process-payment.
type PaymentRequest struct {
	OrderID       FlexInt      `json:"orderId"`
	PaymentMethod string       `json:"paymentMethod"`
	CardDetails   *CardDetails `json:"cardDetails,omitempty"`
}

// CardDetails are the card fields collected by the storefront.
type CardDetails struct {
	CardNumber  string  `json:"cardNumber"`
	CardHolder  string  `json:"cardHolder"`
	ExpiryMonth FlexInt `json:"expiryMonth"`
	ExpiryYear  FlexInt `json:"expiryYear"`
	CVC         string  `json:"cvc"`
}

// PaymentMethodCard is the storefront's name for card payments.
const PaymentMethodCard = "bank"

// Validate checks required fields. Card details are checked against now
// when the method is a card payment.
func (r *PaymentRequest) Validate(now time.Time) error {
	if r.OrderID <= 0 {
		return NewValidationError("orderId", "required")
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return NewValidationError("paymentMethod", "required")
	}
	if r.PaymentMethod != PaymentMethodCard {
		return nil
	}

	c := r.CardDetails
	if c == nil {
		return NewValidationError("cardDetails", "required for card payments")
	}
	if c.CardNumber == "" || c.CardHolder == "" || c.ExpiryMonth == 0 || c.ExpiryYear == 0 || c.CVC == "" {
		return NewValidationError("cardDetails", "incomplete card details")
	}

	digits := c.Digits()
	if len(digits) < 13 || len(digits) > 19 || strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return NewValidationError("cardNumber", "invalid card number")
	}

	year, month := now.Year(), int(now.Month())
	expYear, expMonth := int(c.ExpiryYear), int(c.ExpiryMonth)
	if expYear < 100 {
		expYear += 2000
	}
	if expYear < year || (expYear == year && expMonth < month) {
		return NewValidationError("cardDetails", "card has expired")
	}
	return nil
}

// Digits returns the card number without spaces or dashes.
func (c *CardDetails) Digits() string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, c.CardNumber)
}

// LastFour returns the last four card digits, or "****".
func (c *CardDetails) LastFour() string {
	if c == nil {
		return "****"
	}
	d := c.Digits()
	if len(d) < 4 {
		return "****"
	}
	return d[len(d)-4:]
}

// === Store cart ===

// StoreCartAddRequest is the body of POST /store-cart/add-item.
type StoreCartAddRequest struct {
	ID         FlexInt          `json:"id"`
	Quantity   FlexInt          `json:"quantity"`
	M2Quantity FlexDecimal      `json:"m2_quantity"`
	Variation  []VariationValue `json:"variation,omitempty"`
}

// VariationValue is a selected variation attribute.
type VariationValue struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// Validate checks required fields.
func (r *StoreCartAddRequest) Validate() error {
	if r.ID <= 0 {
		return NewValidationError("id", "required")
	}
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "required and must be positive")
	}
	return nil
}

// StoreCartUpdateRequest is the body of POST /store-cart/update-item.
type StoreCartUpdateRequest struct {
	Key      string   `json:"key"`
	Quantity *FlexInt `json:"quantity"`
}

// Validate checks required fields.
func (r *StoreCartUpdateRequest) Validate() error {
	if r.Key == "" {
		return NewValidationError("key", "required")
	}
	if r.Quantity == nil || *r.Quantity < 0 {
		return NewValidationError("quantity", "required and must not be negative")
	}
	return nil
}

// StoreCartRemoveRequest is the body of POST /store-cart/remove-item.
type StoreCartRemoveRequest struct {
	Key string `json:"key"`
}

// M2PriceRequest is the body of POST /store-cart/calculate-m2-price.
// Dimensions are "WxH" or "WxHxD" in millimetres.
type M2PriceRequest struct {
	Quantity   FlexInt     `json:"quantity"`
	Dimensions string      `json:"dimensions"`
	PricePerM2 FlexDecimal `json:"price_per_m2"`
}

// Validate checks required fields.
func (r *M2PriceRequest) Validate() error {
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "required and must be positive")
	}
	if r.Dimensions == "" {
		return NewValidationError("dimensions", "required")
	}
	if !r.PricePerM2.Set || !r.PricePerM2.Value.IsPositive() {
		return NewValidationError("price_per_m2", "required and must be positive")
	}
	return nil
}
