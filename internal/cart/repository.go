package cart

import (
	"context"
	"log/slog"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// Order fields every cart write carries.
const (
	statusPending      = "pending"
	createdVia         = "checkout"
	paymentMethod      = "bacs"
	paymentMethodTitle = "Direct Bank Transfer"

	// fullScanPageSize is the page size used when walking every pending order.
	fullScanPageSize = 100
)

// Upstream is the part of the WooCommerce client the cart uses.
type Upstream interface {
	ListOrders(ctx context.Context, q woocommerce.OrderQuery) (*woocommerce.OrderPage, error)
	GetOrder(ctx context.Context, id int) (*woocommerce.Order, error)
	CreateOrder(ctx context.Context, in *woocommerce.OrderInput) (*woocommerce.Order, error)
	UpdateOrder(ctx context.Context, id int, in *woocommerce.OrderInput) (*woocommerce.Order, error)
	DeleteOrder(ctx context.Context, id int) error
	GetProduct(ctx context.Context, id int) (*woocommerce.Product, error)
}

// Repository stores carts as pending orders.
type Repository interface {
	// FindCartOrders lists pending orders, newest first. With all set it
	// walks every page; otherwise it returns the first listing page.
	FindCartOrders(ctx context.Context, all bool) ([]woocommerce.Order, error)
	GetCartOrder(ctx context.Context, id int) (*woocommerce.Order, error)
	CreateCartOrder(ctx context.Context, items []woocommerce.LineItemInput, who model.Requester) (*woocommerce.Order, error)
	// UpdateCartOrder updates line items of an existing order in place.
	UpdateCartOrder(ctx context.Context, id int, items []woocommerce.LineItemInput) (*woocommerce.Order, error)
	// ReplaceCartOrder creates a new order holding items, then deletes old.
	ReplaceCartOrder(ctx context.Context, old *woocommerce.Order, items []woocommerce.LineItemInput, who model.Requester) (*woocommerce.Order, error)
	DeleteCartOrder(ctx context.Context, id int) error
}

// OrderRepository implements Repository over the WooCommerce REST API.
type OrderRepository struct {
	api      Upstream
	pageSize int
	logger   *slog.Logger
}

var _ Repository = (*OrderRepository)(nil)

// NewOrderRepository creates a repository. pageSize bounds the cart listing.
func NewOrderRepository(api Upstream, pageSize int, logger *slog.Logger) *OrderRepository {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &OrderRepository{api: api, pageSize: pageSize, logger: logger}
}

func (r *OrderRepository) FindCartOrders(ctx context.Context, all bool) ([]woocommerce.Order, error) {
	q := woocommerce.OrderQuery{
		Status:  statusPending,
		Page:    1,
		PerPage: r.pageSize,
		OrderBy: "date",
		Order:   "desc",
	}
	if !all {
		page, err := r.api.ListOrders(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Orders, nil
	}

	q.PerPage = fullScanPageSize
	var orders []woocommerce.Order
	for {
		page, err := r.api.ListOrders(ctx, q)
		if err != nil {
			return nil, err
		}
		orders = append(orders, page.Orders...)

		last := q.Page >= page.TotalPages
		if page.TotalPages == 0 {
			last = len(page.Orders) < q.PerPage
		}
		if last || len(page.Orders) == 0 {
			return orders, nil
		}
		q.Page++
	}
}

func (r *OrderRepository) GetCartOrder(ctx context.Context, id int) (*woocommerce.Order, error) {
	return r.api.GetOrder(ctx, id)
}

func (r *OrderRepository) CreateCartOrder(ctx context.Context, items []woocommerce.LineItemInput, who model.Requester) (*woocommerce.Order, error) {
	order, err := r.api.CreateOrder(ctx, cartOrderInput(items, who))
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "cart order created",
		slog.Int("order_id", order.ID),
		slog.Int("line_items", len(items)),
	)
	return order, nil
}

func (r *OrderRepository) UpdateCartOrder(ctx context.Context, id int, items []woocommerce.LineItemInput) (*woocommerce.Order, error) {
	return r.api.UpdateOrder(ctx, id, &woocommerce.OrderInput{LineItems: items})
}

// ReplaceCartOrder never deletes before the replacement exists. A failed
// create leaves the old order untouched and returns the error. A failed
// delete after a successful create is logged and the new order returned;
// the old order is then an orphan until the customer clears it.
//
// The customer is who.CustomerID, falling back to the old order's owner.
func (r *OrderRepository) ReplaceCartOrder(ctx context.Context, old *woocommerce.Order, items []woocommerce.LineItemInput, who model.Requester) (*woocommerce.Order, error) {
	if who.CustomerID == 0 {
		who.CustomerID = old.CustomerID
	}

	created, err := r.api.CreateOrder(ctx, cartOrderInput(items, who))
	if err != nil {
		return nil, err
	}

	if err := r.api.DeleteOrder(ctx, old.ID); err != nil {
		r.logger.WarnContext(ctx, "replaced cart order not deleted",
			slog.Int("old_order_id", old.ID),
			slog.Int("new_order_id", created.ID),
			slog.String("error", err.Error()),
		)
		return created, nil
	}

	r.logger.InfoContext(ctx, "cart order replaced",
		slog.Int("old_order_id", old.ID),
		slog.Int("new_order_id", created.ID),
	)
	return created, nil
}

func (r *OrderRepository) DeleteCartOrder(ctx context.Context, id int) error {
	if err := r.api.DeleteOrder(ctx, id); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "cart order deleted", slog.Int("order_id", id))
	return nil
}

func cartOrderInput(items []woocommerce.LineItemInput, who model.Requester) *woocommerce.OrderInput {
	return &woocommerce.OrderInput{
		Status:             statusPending,
		CreatedVia:         createdVia,
		PaymentMethod:      paymentMethod,
		PaymentMethodTitle: paymentMethodTitle,
		CustomerID:         who.CustomerID,
		CustomerIPAddress:  who.IP,
		CustomerUserAgent:  who.UserAgent,
		LineItems:          items,
	}
}
