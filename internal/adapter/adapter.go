// Package adapter defines the operations the HTTP and MCP transports call.
// Gateway binds them to the domain services; handler tests substitute Mock.
package adapter

import (
	"context"

	"storefront-gateway/internal/account"
	"storefront-gateway/internal/cart"
	"storefront-gateway/internal/catalog"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/model"
	"storefront-gateway/internal/shipping"
	"storefront-gateway/internal/storecart"
	"storefront-gateway/internal/woocommerce"
)

// Adapter is everything the transports can ask of the gateway.
//
// Errors are *model.APIError (possibly wrapped) for anything the caller
// caused or the store refused; other errors are internal.
type Adapter interface {
	// Legacy cart, kept as pending orders.
	AddToCart(ctx context.Context, req *model.AddToCartRequest, who model.Requester) (*cart.Result, error)
	UpdateCartItem(ctx context.Context, orderID int, req *model.UpdateCartItemRequest) (*cart.Result, error)
	RemoveCartItem(ctx context.Context, itemID int, who model.Requester) (*cart.RemoveResult, error)
	ListCart(ctx context.Context) (*cart.ListResult, error)

	// Store API cart, keyed by X-Session-Id.
	StoreCartNonce(ctx context.Context, call storecart.Call) (*storecart.NonceResult, error)
	GetStoreCart(ctx context.Context, call storecart.Call) (*storecart.Reply, error)
	AddStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartAddRequest) (*storecart.Reply, error)
	UpdateStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartUpdateRequest) (*storecart.Reply, error)
	RemoveStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartRemoveRequest) (*storecart.Reply, error)
	ClearStoreCart(ctx context.Context, call storecart.Call) (*storecart.Reply, error)
	CalculateM2Price(ctx context.Context, req *model.M2PriceRequest) (*storecart.M2Price, error)

	// Checkout and payment.
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
	ProcessPayment(ctx context.Context, req *model.PaymentRequest, sessionID string) (*checkout.Order, error)
	ShippingMethods(ctx context.Context, req shipping.Request) (*shipping.Quote, error)

	// Signed-in customer.
	ListCustomerOrders(ctx context.Context, customerID int, q account.ListQuery) (*account.OrderList, error)
	GetCustomerOrder(ctx context.Context, customerID, orderID int) (*woocommerce.Order, error)

	// Catalog.
	ListAttributes(ctx context.Context) ([]woocommerce.Attribute, error)
	ListAttributeTerms(ctx context.Context, slug string, q catalog.TermsQuery) (*catalog.TermsPage, error)
}

// Gateway implements Adapter over the domain services.
type Gateway struct {
	Cart      *cart.Engine
	StoreCart *storecart.Service
	Checkouts *checkout.Service
	Shipping  *shipping.Service
	Account   *account.Service
	Catalog   *catalog.Service
}

var _ Adapter = (*Gateway)(nil)

func (g *Gateway) AddToCart(ctx context.Context, req *model.AddToCartRequest, who model.Requester) (*cart.Result, error) {
	return g.Cart.Add(ctx, req, who)
}

func (g *Gateway) UpdateCartItem(ctx context.Context, orderID int, req *model.UpdateCartItemRequest) (*cart.Result, error) {
	return g.Cart.Update(ctx, orderID, req)
}

func (g *Gateway) RemoveCartItem(ctx context.Context, itemID int, who model.Requester) (*cart.RemoveResult, error) {
	return g.Cart.Remove(ctx, itemID, who)
}

func (g *Gateway) ListCart(ctx context.Context) (*cart.ListResult, error) {
	return g.Cart.List(ctx)
}

func (g *Gateway) StoreCartNonce(ctx context.Context, call storecart.Call) (*storecart.NonceResult, error) {
	return g.StoreCart.Nonce(ctx, call)
}

func (g *Gateway) GetStoreCart(ctx context.Context, call storecart.Call) (*storecart.Reply, error) {
	return g.StoreCart.Get(ctx, call)
}

func (g *Gateway) AddStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartAddRequest) (*storecart.Reply, error) {
	return g.StoreCart.AddItem(ctx, call, req)
}

func (g *Gateway) UpdateStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartUpdateRequest) (*storecart.Reply, error) {
	return g.StoreCart.UpdateItem(ctx, call, req)
}

func (g *Gateway) RemoveStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartRemoveRequest) (*storecart.Reply, error) {
	return g.StoreCart.RemoveItem(ctx, call, req)
}

func (g *Gateway) ClearStoreCart(ctx context.Context, call storecart.Call) (*storecart.Reply, error) {
	return g.StoreCart.Clear(ctx, call)
}

func (g *Gateway) CalculateM2Price(ctx context.Context, req *model.M2PriceRequest) (*storecart.M2Price, error) {
	return g.StoreCart.CalculateM2Price(req)
}

func (g *Gateway) Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error) {
	return g.Checkouts.Checkout(ctx, req)
}

func (g *Gateway) ProcessPayment(ctx context.Context, req *model.PaymentRequest, sessionID string) (*checkout.Order, error) {
	return g.Checkouts.ProcessPayment(ctx, req, sessionID)
}

func (g *Gateway) ShippingMethods(ctx context.Context, req shipping.Request) (*shipping.Quote, error) {
	return g.Shipping.Methods(ctx, req)
}

func (g *Gateway) ListCustomerOrders(ctx context.Context, customerID int, q account.ListQuery) (*account.OrderList, error) {
	return g.Account.ListOrders(ctx, customerID, q)
}

func (g *Gateway) GetCustomerOrder(ctx context.Context, customerID, orderID int) (*woocommerce.Order, error) {
	return g.Account.GetOrder(ctx, customerID, orderID)
}

func (g *Gateway) ListAttributes(ctx context.Context) ([]woocommerce.Attribute, error) {
	return g.Catalog.Attributes(ctx)
}

func (g *Gateway) ListAttributeTerms(ctx context.Context, slug string, q catalog.TermsQuery) (*catalog.TermsPage, error) {
	return g.Catalog.AttributeTerms(ctx, slug, q)
}
