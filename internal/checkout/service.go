// Package checkout turns a store-cart session into a WooCommerce order and
// takes (simulated) payment for it.
//
// A session is bound to at most one order. The first checkout on a session
// creates the order from the Store API cart and binds it; later checkouts
// on the same session only update the bound order's customer details.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/session"
	"storefront-gateway/internal/woocommerce"
)

const (
	statusPending    = "pending"
	statusProcessing = "processing"
	createdVia       = "checkout"

	cardGateway      = "woocommerce_payments"
	cardGatewayTitle = "Credit / Debit Card"

	// parentLookups bounds concurrent variation-parent fetches.
	parentLookups = 4
)

// itemDataKeys are the Store API item_data entries copied onto order lines.
var itemDataKeys = map[string]bool{
	"Total m²":     true,
	"Dimensions":   true,
	"_m2_quantity": true,
}

// Upstream is the subset of the WooCommerce client checkout uses.
type Upstream interface {
	GetCart(ctx context.Context, sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error)
	GetOrder(ctx context.Context, id int) (*woocommerce.Order, error)
	CreateOrder(ctx context.Context, in *woocommerce.OrderInput) (*woocommerce.Order, error)
	UpdateOrder(ctx context.Context, id int, in *woocommerce.OrderInput) (*woocommerce.Order, error)
	GetProduct(ctx context.Context, id int) (*woocommerce.Product, error)
}

// PaymentConfig tunes the simulated payment gateway.
type PaymentConfig struct {
	Delay       time.Duration
	DeclineRate float64
}

// Request is one checkout call.
type Request struct {
	SessionID string
	Nonce     string
	Body      *model.CheckoutRequest
	Requester model.Requester
}

// Order is the order summary returned to the storefront.
type Order struct {
	ID            int    `json:"id"`
	OrderKey      string `json:"order_key"`
	Status        string `json:"status"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
	DatePaid      string `json:"date_paid,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// Result is the outcome of Checkout. Created is false when an order
// already bound to the session was updated instead.
type Result struct {
	Order   Order
	Created bool
}

// Service orchestrates checkout and payment.
type Service struct {
	api      Upstream
	sessions session.Store
	payment  PaymentConfig
	logger   *slog.Logger

	now    func() time.Time
	sleep  func(time.Duration)
	random func() float64
	txID   func() string
}

// NewService creates a checkout service.
func NewService(api Upstream, sessions session.Store, payment PaymentConfig, logger *slog.Logger) *Service {
	return &Service{
		api:      api,
		sessions: sessions,
		payment:  payment,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
		random:   rand.Float64,
		txID:     uuid.NewString,
	}
}

// Checkout creates the session's order, or updates it when one is bound.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if req.SessionID == "" {
		return nil, model.NewValidationError("X-Session-Id", "required")
	}
	if !session.ValidID(req.SessionID) {
		return nil, model.NewValidationError("X-Session-Id", "malformed session id")
	}
	body := req.Body
	if body == nil {
		body = &model.CheckoutRequest{}
	}

	sess, err := s.sessions.Lookup(ctx, req.SessionID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("loading cart session: %w", err)
	}
	if sess != nil && sess.OrderID != 0 {
		return s.updateBound(ctx, sess.OrderID, body)
	}
	if sess == nil || !sess.HasCookies() {
		return nil, model.NewBadRequestError("invalid or expired cart session")
	}

	resp, err := s.api.GetCart(ctx, woocommerce.StoreSession{Cookie: sess.CookieHeader(), Nonce: req.Nonce})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.MergeCookies(ctx, req.SessionID, resp.Cookies); err != nil {
		s.logger.WarnContext(ctx, "cart session cookies not saved",
			slog.String("session_id", req.SessionID),
			slog.String("error", err.Error()),
		)
	}
	if resp.Cart == nil || len(resp.Cart.Items) == 0 {
		return nil, model.NewBadRequestError("cart is empty")
	}

	// The order must exist even if the storefront gives up waiting.
	ctx = context.WithoutCancel(ctx)

	lines := orderLines(resp.Cart.Items)
	s.resolveParents(ctx, lines)

	in := s.orderInput(resp.Cart, lines, body, req.Requester)
	created, err := s.api.CreateOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "checkout order created",
		slog.Int("order_id", created.ID),
		slog.String("session_id", req.SessionID),
		slog.String("total", created.Total),
	)

	bound, err := s.sessions.BindOrder(ctx, req.SessionID, created.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "checkout order not bound to session",
			slog.Int("order_id", created.ID),
			slog.String("session_id", req.SessionID),
			slog.String("error", err.Error()),
		)
		return &Result{Order: summary(created), Created: true}, nil
	}
	if bound != created.ID {
		s.logger.WarnContext(ctx, "concurrent checkout left an unbound order",
			slog.Int("order_id", created.ID),
			slog.Int("bound_order_id", bound),
			slog.String("session_id", req.SessionID),
		)
		return s.updateBound(ctx, bound, body)
	}

	return &Result{Order: summary(created), Created: true}, nil
}

func (s *Service) updateBound(ctx context.Context, orderID int, body *model.CheckoutRequest) (*Result, error) {
	in := &woocommerce.OrderInput{
		Billing:       billingAddress(body.Billing),
		Shipping:      shippingAddress(body.Shipping),
		CustomerNote:  body.CustomerNote,
		ShippingLines: shippingLines(body.ShippingLines),
	}
	updated, err := s.api.UpdateOrder(context.WithoutCancel(ctx), orderID, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "checkout order updated", slog.Int("order_id", updated.ID))
	return &Result{Order: summary(updated)}, nil
}

// ProcessPayment simulates charging the order and marks it paid. The
// session, when given, is destroyed afterwards.
func (s *Service) ProcessPayment(ctx context.Context, req *model.PaymentRequest, sessionID string) (*Order, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	order, err := s.api.GetOrder(ctx, int(req.OrderID))
	if err != nil {
		return nil, err
	}
	if order.Status != statusPending {
		return nil, model.NewBadRequestError(fmt.Sprintf("order is already %s", order.Status))
	}

	ctx = context.WithoutCancel(ctx)
	s.sleep(s.payment.Delay)

	if s.random() < s.payment.DeclineRate {
		s.logger.InfoContext(ctx, "simulated payment declined", slog.Int("order_id", order.ID))
		return nil, model.NewPaymentError("payment declined")
	}

	method, title := req.PaymentMethod, req.PaymentMethod
	if req.PaymentMethod == model.PaymentMethodCard {
		method, title = cardGateway, cardGatewayTitle
	}
	in := &woocommerce.OrderInput{
		Status:             statusProcessing,
		PaymentMethod:      method,
		PaymentMethodTitle: title,
		SetPaid:            true,
		TransactionID:      "sim_" + s.txID(),
		DatePaid:           s.now().UTC().Format("2006-01-02T15:04:05"),
		MetaData: []woocommerce.MetaData{
			{Key: "_payment_processor", Value: "simulated"},
			{Key: "_card_last4", Value: req.CardDetails.LastFour()},
		},
	}
	paid, err := s.api.UpdateOrder(ctx, order.ID, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "payment processed",
		slog.Int("order_id", paid.ID),
		slog.String("status", paid.Status),
		slog.String("total", paid.Total),
	)

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.WarnContext(ctx, "cart session not cleared after payment",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	out := summary(paid)
	out.DatePaid = paid.DatePaid
	out.PaymentMethod = paid.PaymentMethodTitle
	return &out, nil
}

// orderLines maps Store API cart items to order lines. Variation items
// without an exposed parent are left with ProductID 0 for resolveParents.
func orderLines(items []woocommerce.WooCartItem) []woocommerce.LineItemInput {
	lines := make([]woocommerce.LineItemInput, 0, len(items))
	for _, item := range items {
		minor := item.Totals.CurrencyMinorUnit
		line := woocommerce.LineItemInput{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			Subtotal:  model.FormatMoney(model.FromMinorUnits(item.Totals.LineSubtotal, minor)),
			Total:     model.FormatMoney(model.FromMinorUnits(item.Totals.LineTotal, minor)),
		}
		if len(item.Variation) > 0 {
			line.Variation = item.Variation
			line.VariationID = item.ID
			line.ProductID = item.ParentID()
		}
		for _, d := range item.ItemData {
			if itemDataKeys[d.Key] {
				line.MetaData = append(line.MetaData, woocommerce.MetaData{Key: d.Key, Value: d.Value})
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// resolveParents fills ProductID for variation lines by fetching the
// variation. A failed lookup falls back to ordering the variation id as a
// plain product.
func (s *Service) resolveParents(ctx context.Context, lines []woocommerce.LineItemInput) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parentLookups)

	for i := range lines {
		if lines[i].ProductID != 0 || lines[i].VariationID == 0 {
			continue
		}
		line := &lines[i]
		g.Go(func() error {
			p, err := s.api.GetProduct(gctx, line.VariationID)
			if err != nil || p.ParentID == 0 {
				attrs := []any{slog.Int("variation_id", line.VariationID)}
				if err != nil {
					attrs = append(attrs, slog.String("error", err.Error()))
				}
				s.logger.WarnContext(gctx, "variation parent not resolved", attrs...)
				line.ProductID, line.VariationID = line.VariationID, 0
				return nil
			}
			line.ProductID = p.ParentID
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) orderInput(cart *woocommerce.WooCartResponse, lines []woocommerce.LineItemInput, body *model.CheckoutRequest, who model.Requester) *woocommerce.OrderInput {
	minor := cart.Totals.CurrencyMinorUnit
	return &woocommerce.OrderInput{
		Status:            statusPending,
		CreatedVia:        createdVia,
		CustomerID:        who.CustomerID,
		CustomerIPAddress: who.IP,
		CustomerUserAgent: who.UserAgent,
		CustomerNote:      body.CustomerNote,
		Billing:           billingAddress(body.Billing),
		Shipping:          shippingAddress(body.Shipping),
		ShippingLines:     shippingLines(body.ShippingLines),
		LineItems:         lines,
		Subtotal:          model.FormatMoney(model.FromMinorUnits(cart.Totals.TotalItems, minor)),
		Total:             model.FormatMoney(model.FromMinorUnits(cart.Totals.TotalPrice, minor)),
	}
}

func billingAddress(a *model.Address) *woocommerce.Address {
	if a == nil {
		return nil
	}
	out := shippingAddress(a)
	out.Email = a.Email
	out.Phone = a.Phone
	return out
}

func shippingAddress(a *model.Address) *woocommerce.Address {
	if a == nil {
		return nil
	}
	return &woocommerce.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
	}
}

func shippingLines(in []model.ShippingLine) []woocommerce.ShippingLine {
	if len(in) == 0 {
		return nil
	}
	out := make([]woocommerce.ShippingLine, 0, len(in))
	for _, l := range in {
		total := l.Total
		if total == "" {
			total = "0"
		}
		line := woocommerce.ShippingLine{MethodID: l.MethodID, MethodTitle: l.MethodTitle, Total: total}
		if l.InstanceID > 0 {
			line.InstanceID = strconv.Itoa(int(l.InstanceID))
		}
		out = append(out, line)
	}
	return out
}

func summary(o *woocommerce.Order) Order {
	return Order{
		ID:       o.ID,
		OrderKey: o.OrderKey,
		Status:   o.Status,
		Total:    o.Total,
		Currency: o.Currency,
	}
}
