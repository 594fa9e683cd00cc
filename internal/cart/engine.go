// Package cart keeps a shopping cart as pending WooCommerce orders.
//
// A cart entry lives as a line item of a pending order. Adding an entry
// that already exists merges it into the stored line and recreates the
// whole order: create the replacement, then delete the old one. Reads
// derive the display quantity and unit price back from the stored line.
//
// No lock spans fetch, recompute, create and delete. Two concurrent adds to
// the same cart can both replace the same order and leave one replacement
// orphaned.
package cart

import (
	"context"
	"log/slog"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/reconcile"
	"storefront-gateway/internal/woocommerce"
)

// ProductLookup resolves variation parents.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int) (*woocommerce.Product, error)
}

// Engine implements the cart operations.
type Engine struct {
	repo     Repository
	products ProductLookup
	logger   *slog.Logger
}

// NewEngine creates a cart engine.
func NewEngine(repo Repository, products ProductLookup, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, products: products, logger: logger}
}

// Result is the cart order after a mutation.
type Result struct {
	OrderID   int              `json:"order_id"`
	LineItems []reconcile.View `json:"line_items"`
}

// RemoveResult describes what removing an item did to its order.
type RemoveResult struct {
	RemovedItemID int  `json:"removed_item_id"`
	OrderID       int  `json:"order_id"`
	NewOrderID    int  `json:"new_order_id,omitempty"`
	OrderDeleted  bool `json:"order_deleted"`
}

// ListResult is the current cart.
type ListResult struct {
	LineItems   []reconcile.View `json:"line_items"`
	OrdersFound int              `json:"orders_found"`
}

// Add puts an entry in the cart.
//
// With CheckDuplicates, every pending order is scanned newest first for a
// line with the same merge key; a match is merged and its order replaced.
// Without a match the new line joins the customer's pending order (or the
// most recent one) and that order is replaced. Otherwise a fresh order is
// created holding just this line.
func (e *Engine) Add(ctx context.Context, req *model.AddToCartRequest, who model.Requester) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	variationID := req.VariationID.ID
	productID := e.resolveParent(ctx, int(req.ProductID), variationID)
	sample, sampleType := reconcile.DetectSample(bool(req.IsSample), req.VariationID.Label, req.SKU)

	in := reconcile.Incoming{
		Key:        reconcile.Key{ProductID: productID, VariationID: variationID, Sample: sample},
		Quantity:   int(req.Quantity),
		Area:       req.M2Quantity.Value,
		Price:      req.Price.Value,
		HasPrice:   req.Price.Set && req.Price.Value.IsPositive(),
		SampleType: sampleType,
	}

	if !req.CheckDuplicates {
		return e.create(ctx, reconcile.NewLineItem(in), who)
	}

	orders, err := e.repo.FindCartOrders(ctx, true)
	if err != nil {
		return nil, err
	}

	if m, ok := reconcile.FindMatch(orders, in.Key); ok {
		return e.merge(ctx, m, in, who)
	}

	target := placement(orders, who.CustomerID)
	if target == nil {
		return e.create(ctx, reconcile.NewLineItem(in), who)
	}

	items := carryAll(target.LineItems, 0)
	items = append(items, reconcile.NewLineItem(in))
	order, err := e.repo.ReplaceCartOrder(ctx, target, items, who)
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "cart item appended",
		slog.Int("product_id", productID),
		slog.Int("old_order_id", target.ID),
		slog.Int("order_id", order.ID),
	)
	return resultOf(order), nil
}

func (e *Engine) merge(ctx context.Context, m reconcile.Match, in reconcile.Incoming, who model.Requester) (*Result, error) {
	merged := reconcile.Merge(*m.Item, in)

	items := make([]woocommerce.LineItemInput, 0, len(m.Order.LineItems))
	for _, li := range m.Order.LineItems {
		if li.ID == m.Item.ID {
			items = append(items, merged)
			continue
		}
		items = append(items, reconcile.Carry(li))
	}

	order, err := e.repo.ReplaceCartOrder(ctx, m.Order, items, who)
	if err == nil {
		e.logger.InfoContext(ctx, "cart item merged",
			slog.Int("item_id", m.Item.ID),
			slog.Int("quantity", merged.Quantity),
			slog.Int("old_order_id", m.Order.ID),
			slog.Int("order_id", order.ID),
		)
		return resultOf(order), nil
	}

	e.logger.WarnContext(ctx, "replacement order not created, updating in place",
		slog.Int("order_id", m.Order.ID),
		slog.String("error", err.Error()),
	)
	merged.ID = m.Item.ID
	order, err = e.repo.UpdateCartOrder(ctx, m.Order.ID, []woocommerce.LineItemInput{merged})
	if err != nil {
		return nil, err
	}
	return resultOf(order), nil
}

func (e *Engine) create(ctx context.Context, item woocommerce.LineItemInput, who model.Requester) (*Result, error) {
	order, err := e.repo.CreateCartOrder(ctx, []woocommerce.LineItemInput{item}, who)
	if err != nil {
		return nil, err
	}
	return resultOf(order), nil
}

// Update applies quantity and area deltas to the sole line of an order.
// The line is updated in place, not replaced.
func (e *Engine) Update(ctx context.Context, orderID int, req *model.UpdateCartItemRequest) (*Result, error) {
	if orderID <= 0 {
		return nil, model.NewValidationError("itemId", "must be a positive order id")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	order, err := e.repo.GetCartOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(order.LineItems) == 0 {
		return nil, model.NewNotFoundError("cart item")
	}

	item := reconcile.ApplyDelta(order.LineItems[0], int(*req.Quantity), req.M2Quantity.Value, req.M2Quantity.Set)
	if item.Quantity <= 0 {
		return nil, model.NewValidationError("quantity", "resulting quantity must be positive")
	}

	updated, err := e.repo.UpdateCartOrder(ctx, order.ID, []woocommerce.LineItemInput{item})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "cart item updated",
		slog.Int("order_id", order.ID),
		slog.Int("item_id", item.ID),
		slog.Int("quantity", item.Quantity),
	)
	return resultOf(updated), nil
}

// Remove deletes a line from whichever pending order holds it. An order
// left empty is deleted; otherwise it is replaced without the line, keeping
// its customer.
func (e *Engine) Remove(ctx context.Context, itemID int, who model.Requester) (*RemoveResult, error) {
	if itemID <= 0 {
		return nil, model.NewValidationError("itemId", "must be a positive line item id")
	}
	ctx = context.WithoutCancel(ctx)

	orders, err := e.repo.FindCartOrders(ctx, true)
	if err != nil {
		return nil, err
	}
	m, ok := reconcile.FindItem(orders, itemID)
	if !ok {
		return nil, model.NewNotFoundError("cart item")
	}

	if len(m.Order.LineItems) == 1 {
		if err := e.repo.DeleteCartOrder(ctx, m.Order.ID); err != nil {
			return nil, err
		}
		return &RemoveResult{RemovedItemID: itemID, OrderID: m.Order.ID, OrderDeleted: true}, nil
	}

	if m.Order.CustomerID != 0 {
		who.CustomerID = m.Order.CustomerID
	}
	order, err := e.repo.ReplaceCartOrder(ctx, m.Order, carryAll(m.Order.LineItems, itemID), who)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{RemovedItemID: itemID, OrderID: m.Order.ID, NewOrderID: order.ID}, nil
}

// List returns the derived line items of the first page of pending orders.
func (e *Engine) List(ctx context.Context) (*ListResult, error) {
	orders, err := e.repo.FindCartOrders(ctx, false)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		LineItems:   reconcile.DeriveOrders(orders),
		OrdersFound: len(orders),
	}, nil
}

// resolveParent returns the parent product id when the storefront reported
// a variation id as the product id. Lookup failures keep the reported id.
func (e *Engine) resolveParent(ctx context.Context, productID, variationID int) int {
	if variationID == 0 || productID != variationID {
		return productID
	}
	p, err := e.products.GetProduct(ctx, variationID)
	if err != nil {
		e.logger.WarnContext(ctx, "variation parent lookup failed",
			slog.Int("variation_id", variationID),
			slog.String("error", err.Error()),
		)
		return productID
	}
	if p.ParentID > 0 {
		return p.ParentID
	}
	return productID
}

// placement picks the order a new line joins: the customer's first pending
// order when known, else the most recent one.
func placement(orders []woocommerce.Order, customerID int) *woocommerce.Order {
	if len(orders) == 0 {
		return nil
	}
	if customerID != 0 {
		for i := range orders {
			if orders[i].CustomerID == customerID {
				return &orders[i]
			}
		}
	}
	return &orders[0]
}

// carryAll copies every line except skipID through the allow-list.
func carryAll(items []woocommerce.LineItem, skipID int) []woocommerce.LineItemInput {
	out := make([]woocommerce.LineItemInput, 0, len(items))
	for _, li := range items {
		if skipID != 0 && li.ID == skipID {
			continue
		}
		out = append(out, reconcile.Carry(li))
	}
	return out
}

func resultOf(o *woocommerce.Order) *Result {
	return &Result{
		OrderID:   o.ID,
		LineItems: reconcile.DeriveOrders([]woocommerce.Order{*o}),
	}
}
