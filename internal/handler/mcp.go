// MCP transport using the official MCP Go SDK.
// Exposes the cart and checkout operations as tools for agents.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"

	"storefront-gateway/internal/cart"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/model"
)

// mcpUserAgent stands in for the User-Agent on orders created over MCP.
const mcpUserAgent = "storefront-gateway-mcp"

// === MCP Tool Input/Output Types ===
// Inputs use plain JSON types so the inferred schemas stay simple for
// agents; they are converted to the storefront request types below.

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	ProductID       int     `json:"product_id" jsonschema:"product ID"`
	VariationID     int     `json:"variation_id,omitempty" jsonschema:"variation ID for variable products"`
	Quantity        int     `json:"quantity" jsonschema:"number of units (tiles)"`
	M2Quantity      float64 `json:"m2_quantity,omitempty" jsonschema:"area covered in square metres"`
	Price           float64 `json:"price,omitempty" jsonschema:"unit price to charge"`
	IsSample        bool    `json:"is_sample,omitempty" jsonschema:"true for a free sample"`
	CheckDuplicates bool    `json:"check_duplicates,omitempty" jsonschema:"merge into an existing matching line"`
	SKU             string  `json:"sku,omitempty" jsonschema:"product SKU"`
}

// GetCartInput is the input schema for get_cart.
type GetCartInput struct{}

// UpdateCartItemInput is the input schema for update_cart_item.
type UpdateCartItemInput struct {
	OrderID    int     `json:"order_id" jsonschema:"order holding the line, from get_cart"`
	Quantity   int     `json:"quantity" jsonschema:"quantity to add (negative to reduce)"`
	M2Quantity float64 `json:"m2_quantity,omitempty" jsonschema:"area in square metres to add"`
}

// RemoveFromCartInput is the input schema for remove_from_cart.
type RemoveFromCartInput struct {
	ItemID int `json:"item_id" jsonschema:"line item ID, from get_cart"`
}

// CheckoutInput is the input schema for checkout.
type CheckoutInput struct {
	SessionID     string               `json:"session_id" jsonschema:"store cart session ID"`
	Nonce         string               `json:"nonce,omitempty" jsonschema:"Store API nonce"`
	Billing       *model.Address       `json:"billing,omitempty" jsonschema:"billing address with email and phone"`
	Shipping      *model.Address       `json:"shipping,omitempty" jsonschema:"shipping address"`
	CustomerNote  string               `json:"customer_note,omitempty" jsonschema:"note for the store"`
	ShippingLines []model.ShippingLine `json:"shipping_lines,omitempty" jsonschema:"chosen shipping methods"`
}

// CheckoutOutput is returned by checkout.
type CheckoutOutput struct {
	Created bool           `json:"created"`
	Order   checkout.Order `json:"order"`
}

// ProcessPaymentInput is the input schema for process_payment.
type ProcessPaymentInput struct {
	OrderID       int                `json:"order_id" jsonschema:"order to pay"`
	PaymentMethod string             `json:"payment_method" jsonschema:"bank for card payments, or a wallet method"`
	CardDetails   *model.CardDetails `json:"card_details,omitempty" jsonschema:"card fields, required for bank"`
	SessionID     string             `json:"session_id,omitempty" jsonschema:"store cart session to close after payment"`
}

// NewMCPServer creates an MCP server with the cart and checkout tools
// registered. They call the same adapter as the REST routes.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront-gateway",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront cart and checkout. Add tiles to the cart, review it, " +
				"then check out a store cart session and pay for the order.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product to the cart. With check_duplicates a matching line is merged instead of added.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "List every line item in the cart with its display quantity and unit price.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Change the quantity of a cart order's first line by a delta.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a line item from the cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "checkout",
		Description: "Create an order from a store cart session, or update the order it already has.",
	}, h.mcpCheckout)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_payment",
		Description: "Pay for a pending order. Card payments need card_details.",
	}, h.mcpProcessPayment)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===
// The cart tools return line views holding json.Number quantities, which
// schema inference would type as strings, so they declare no output schema.

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, any, error) {
	addReq := &model.AddToCartRequest{
		ProductID:       model.FlexInt(input.ProductID),
		VariationID:     model.ItemRef{ID: input.VariationID},
		Quantity:        model.FlexInt(input.Quantity),
		M2Quantity:      optionalDecimal(input.M2Quantity),
		Price:           optionalDecimal(input.Price),
		IsSample:        model.Flag(input.IsSample),
		CheckDuplicates: model.Flag(input.CheckDuplicates),
		SKU:             input.SKU,
	}

	res, err := h.adapter.AddToCart(ctx, addReq, model.Requester{UserAgent: mcpUserAgent})
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, res, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, any, error) {
	res, err := h.adapter.ListCart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, res, nil
}

func (h *Handler) mcpUpdateCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateCartItemInput,
) (*mcp.CallToolResult, any, error) {
	if input.OrderID <= 0 {
		return nil, nil, fmt.Errorf("order_id is required")
	}

	qty := model.FlexInt(input.Quantity)
	res, err := h.adapter.UpdateCartItem(ctx, input.OrderID, &model.UpdateCartItemRequest{
		Quantity:   &qty,
		M2Quantity: optionalDecimal(input.M2Quantity),
	})
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, res, nil
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RemoveFromCartInput,
) (*mcp.CallToolResult, *cart.RemoveResult, error) {
	if input.ItemID <= 0 {
		return nil, nil, fmt.Errorf("item_id is required")
	}

	res, err := h.adapter.RemoveCartItem(ctx, input.ItemID, model.Requester{UserAgent: mcpUserAgent})
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, res, nil
}

func (h *Handler) mcpCheckout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckoutInput,
) (*mcp.CallToolResult, *CheckoutOutput, error) {
	res, err := h.adapter.Checkout(ctx, checkout.Request{
		SessionID: input.SessionID,
		Nonce:     input.Nonce,
		Body: &model.CheckoutRequest{
			Billing:       input.Billing,
			Shipping:      input.Shipping,
			CustomerNote:  input.CustomerNote,
			ShippingLines: input.ShippingLines,
		},
		Requester: model.Requester{UserAgent: mcpUserAgent},
	})
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, &CheckoutOutput{Created: res.Created, Order: res.Order}, nil
}

func (h *Handler) mcpProcessPayment(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProcessPaymentInput,
) (*mcp.CallToolResult, *checkout.Order, error) {
	order, err := h.adapter.ProcessPayment(ctx, &model.PaymentRequest{
		OrderID:       model.FlexInt(input.OrderID),
		PaymentMethod: input.PaymentMethod,
		CardDetails:   input.CardDetails,
	}, input.SessionID)
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, order, nil
}

// mcpError converts adapter errors to MCP-friendly errors.
func (h *Handler) mcpError(ctx context.Context, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.ErrorContext(ctx, "mcp internal error", slog.String("error", err.Error()))
	return fmt.Errorf("internal error")
}

func optionalDecimal(f float64) model.FlexDecimal {
	if f == 0 {
		return model.FlexDecimal{}
	}
	return model.FlexDecimal{Value: decimal.NewFromFloat(f), Set: true}
}
