package adapter

import (
	"context"
	"encoding/json"

	"storefront-gateway/internal/account"
	"storefront-gateway/internal/cart"
	"storefront-gateway/internal/catalog"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/model"
	"storefront-gateway/internal/reconcile"
	"storefront-gateway/internal/shipping"
	"storefront-gateway/internal/storecart"
	"storefront-gateway/internal/woocommerce"
)

// Mock implements Adapter for testing.
// Each method can be configured via function fields; unset methods return
// an empty result or an error.
type Mock struct {
	AddToCartFunc      func(ctx context.Context, req *model.AddToCartRequest, who model.Requester) (*cart.Result, error)
	UpdateCartItemFunc func(ctx context.Context, orderID int, req *model.UpdateCartItemRequest) (*cart.Result, error)
	RemoveCartItemFunc func(ctx context.Context, itemID int, who model.Requester) (*cart.RemoveResult, error)
	ListCartFunc       func(ctx context.Context) (*cart.ListResult, error)

	StoreCartNonceFunc      func(ctx context.Context, call storecart.Call) (*storecart.NonceResult, error)
	GetStoreCartFunc        func(ctx context.Context, call storecart.Call) (*storecart.Reply, error)
	AddStoreCartItemFunc    func(ctx context.Context, call storecart.Call, req *model.StoreCartAddRequest) (*storecart.Reply, error)
	UpdateStoreCartItemFunc func(ctx context.Context, call storecart.Call, req *model.StoreCartUpdateRequest) (*storecart.Reply, error)
	RemoveStoreCartItemFunc func(ctx context.Context, call storecart.Call, req *model.StoreCartRemoveRequest) (*storecart.Reply, error)
	ClearStoreCartFunc      func(ctx context.Context, call storecart.Call) (*storecart.Reply, error)
	CalculateM2PriceFunc    func(ctx context.Context, req *model.M2PriceRequest) (*storecart.M2Price, error)

	CheckoutFunc        func(ctx context.Context, req checkout.Request) (*checkout.Result, error)
	ProcessPaymentFunc  func(ctx context.Context, req *model.PaymentRequest, sessionID string) (*checkout.Order, error)
	ShippingMethodsFunc func(ctx context.Context, req shipping.Request) (*shipping.Quote, error)

	ListCustomerOrdersFunc func(ctx context.Context, customerID int, q account.ListQuery) (*account.OrderList, error)
	GetCustomerOrderFunc   func(ctx context.Context, customerID, orderID int) (*woocommerce.Order, error)

	ListAttributesFunc     func(ctx context.Context) ([]woocommerce.Attribute, error)
	ListAttributeTermsFunc func(ctx context.Context, slug string, q catalog.TermsQuery) (*catalog.TermsPage, error)
}

// Verify Mock implements Adapter interface at compile time.
var _ Adapter = (*Mock)(nil)

func (m *Mock) AddToCart(ctx context.Context, req *model.AddToCartRequest, who model.Requester) (*cart.Result, error) {
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, req, who)
	}
	return nil, model.NewInternalError(nil)
}

func (m *Mock) UpdateCartItem(ctx context.Context, orderID int, req *model.UpdateCartItemRequest) (*cart.Result, error) {
	if m.UpdateCartItemFunc != nil {
		return m.UpdateCartItemFunc(ctx, orderID, req)
	}
	return nil, model.NewNotFoundError("order")
}

func (m *Mock) RemoveCartItem(ctx context.Context, itemID int, who model.Requester) (*cart.RemoveResult, error) {
	if m.RemoveCartItemFunc != nil {
		return m.RemoveCartItemFunc(ctx, itemID, who)
	}
	return nil, model.NewNotFoundError("cart item")
}

func (m *Mock) ListCart(ctx context.Context) (*cart.ListResult, error) {
	if m.ListCartFunc != nil {
		return m.ListCartFunc(ctx)
	}
	return &cart.ListResult{LineItems: []reconcile.View{}}, nil
}

func (m *Mock) StoreCartNonce(ctx context.Context, call storecart.Call) (*storecart.NonceResult, error) {
	if m.StoreCartNonceFunc != nil {
		return m.StoreCartNonceFunc(ctx, call)
	}
	return &storecart.NonceResult{Nonce: "mock-nonce", SessionID: call.SessionID}, nil
}

func (m *Mock) GetStoreCart(ctx context.Context, call storecart.Call) (*storecart.Reply, error) {
	if m.GetStoreCartFunc != nil {
		return m.GetStoreCartFunc(ctx, call)
	}
	return emptyReply(call), nil
}

func (m *Mock) AddStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartAddRequest) (*storecart.Reply, error) {
	if m.AddStoreCartItemFunc != nil {
		return m.AddStoreCartItemFunc(ctx, call, req)
	}
	return emptyReply(call), nil
}

func (m *Mock) UpdateStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartUpdateRequest) (*storecart.Reply, error) {
	if m.UpdateStoreCartItemFunc != nil {
		return m.UpdateStoreCartItemFunc(ctx, call, req)
	}
	return emptyReply(call), nil
}

func (m *Mock) RemoveStoreCartItem(ctx context.Context, call storecart.Call, req *model.StoreCartRemoveRequest) (*storecart.Reply, error) {
	if m.RemoveStoreCartItemFunc != nil {
		return m.RemoveStoreCartItemFunc(ctx, call, req)
	}
	return emptyReply(call), nil
}

func (m *Mock) ClearStoreCart(ctx context.Context, call storecart.Call) (*storecart.Reply, error) {
	if m.ClearStoreCartFunc != nil {
		return m.ClearStoreCartFunc(ctx, call)
	}
	return emptyReply(call), nil
}

func (m *Mock) CalculateM2Price(ctx context.Context, req *model.M2PriceRequest) (*storecart.M2Price, error) {
	if m.CalculateM2PriceFunc != nil {
		return m.CalculateM2PriceFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

func (m *Mock) Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

func (m *Mock) ProcessPayment(ctx context.Context, req *model.PaymentRequest, sessionID string) (*checkout.Order, error) {
	if m.ProcessPaymentFunc != nil {
		return m.ProcessPaymentFunc(ctx, req, sessionID)
	}
	return nil, model.NewNotFoundError("order")
}

func (m *Mock) ShippingMethods(ctx context.Context, req shipping.Request) (*shipping.Quote, error) {
	if m.ShippingMethodsFunc != nil {
		return m.ShippingMethodsFunc(ctx, req)
	}
	return nil, model.NewBadRequestError("order ID is required to calculate shipping")
}

func (m *Mock) ListCustomerOrders(ctx context.Context, customerID int, q account.ListQuery) (*account.OrderList, error) {
	if m.ListCustomerOrdersFunc != nil {
		return m.ListCustomerOrdersFunc(ctx, customerID, q)
	}
	return &account.OrderList{Orders: []woocommerce.Order{}}, nil
}

func (m *Mock) GetCustomerOrder(ctx context.Context, customerID, orderID int) (*woocommerce.Order, error) {
	if m.GetCustomerOrderFunc != nil {
		return m.GetCustomerOrderFunc(ctx, customerID, orderID)
	}
	return nil, model.NewNotFoundError("order")
}

func (m *Mock) ListAttributes(ctx context.Context) ([]woocommerce.Attribute, error) {
	if m.ListAttributesFunc != nil {
		return m.ListAttributesFunc(ctx)
	}
	return []woocommerce.Attribute{}, nil
}

func (m *Mock) ListAttributeTerms(ctx context.Context, slug string, q catalog.TermsQuery) (*catalog.TermsPage, error) {
	if m.ListAttributeTermsFunc != nil {
		return m.ListAttributeTermsFunc(ctx, slug, q)
	}
	return nil, model.NewNotFoundError("attribute " + slug)
}

func emptyReply(call storecart.Call) *storecart.Reply {
	return &storecart.Reply{Cart: json.RawMessage(`{"items":[],"items_count":0}`), SessionID: call.SessionID}
}
