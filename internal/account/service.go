// Package account serves a signed-in customer's order history.
package account

import (
	"context"
	"log/slog"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

// Orders is the subset of the WooCommerce client account needs.
type Orders interface {
	ListOrders(ctx context.Context, q woocommerce.OrderQuery) (*woocommerce.OrderPage, error)
	GetOrder(ctx context.Context, id int) (*woocommerce.Order, error)
}

// ListQuery pages through a customer's orders. Zero values take defaults.
type ListQuery struct {
	Page    int
	PerPage int
	Status  string
}

// Pagination describes one page of order history.
type Pagination struct {
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
}

// OrderList is one page of a customer's orders, newest first.
type OrderList struct {
	Orders     []woocommerce.Order `json:"orders"`
	Pagination Pagination          `json:"pagination"`
}

// Service reads order history.
type Service struct {
	api    Orders
	logger *slog.Logger
}

// NewService creates an account service.
func NewService(api Orders, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// ListOrders returns the customer's orders.
func (s *Service) ListOrders(ctx context.Context, customerID int, q ListQuery) (*OrderList, error) {
	if customerID <= 0 {
		return nil, model.NewUnauthorizedError("customer identity required")
	}
	if q.Page <= 0 {
		q.Page = defaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}

	page, err := s.api.ListOrders(ctx, woocommerce.OrderQuery{
		Customer: customerID,
		Status:   q.Status,
		Page:     q.Page,
		PerPage:  q.PerPage,
		OrderBy:  "date",
		Order:    "desc",
	})
	if err != nil {
		return nil, err
	}

	orders := page.Orders
	if orders == nil {
		orders = []woocommerce.Order{}
	}
	return &OrderList{
		Orders: orders,
		Pagination: Pagination{
			Total:       page.Total,
			TotalPages:  page.TotalPages,
			CurrentPage: q.Page,
			PerPage:     q.PerPage,
		},
	}, nil
}

// GetOrder returns one of the customer's orders. Orders belonging to
// someone else are refused.
func (s *Service) GetOrder(ctx context.Context, customerID, orderID int) (*woocommerce.Order, error) {
	if customerID <= 0 {
		return nil, model.NewUnauthorizedError("customer identity required")
	}
	if orderID <= 0 {
		return nil, model.NewValidationError("orderId", "must be a positive integer")
	}

	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		s.logger.WarnContext(ctx, "order access refused",
			slog.Int("order_id", orderID),
			slog.Int("customer_id", customerID),
		)
		return nil, model.NewForbiddenError("unauthorized access to this order")
	}
	return order, nil
}
