// Package shipping quotes shipping methods for a checkout order from the
// store's zone configuration.
//
// Quoting writes the destination onto the order first, so the methods the
// storefront offers and the address the order ships to always agree.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/session"
	"storefront-gateway/internal/woocommerce"
)

// upstreamFanout bounds concurrent product and zone-location fetches.
const upstreamFanout = 4

// Upstream is the subset of the WooCommerce client shipping uses.
type Upstream interface {
	GetOrder(ctx context.Context, id int) (*woocommerce.Order, error)
	UpdateOrder(ctx context.Context, id int, in *woocommerce.OrderInput) (*woocommerce.Order, error)
	GetProduct(ctx context.Context, id int) (*woocommerce.Product, error)
	ListShippingZones(ctx context.Context) ([]woocommerce.ShippingZone, error)
	ListZoneLocations(ctx context.Context, zoneID int) ([]woocommerce.ZoneLocation, error)
	ListZoneMethods(ctx context.Context, zoneID int) ([]woocommerce.ZoneMethod, error)
}

// Request asks for the methods available to an order. OrderID wins over
// the order bound to SessionID. Empty address fields keep the order's.
type Request struct {
	OrderID   int
	SessionID string
	Country   string
	State     string
	Postcode  string
	City      string
}

// Method is one offer. Cost is for display ("Free", "£30.00"); Total is
// the plain amount to send back as a shipping line.
type Method struct {
	Title      string `json:"title"`
	Cost       string `json:"cost"`
	Total      string `json:"total"`
	MethodID   string `json:"method_id"`
	InstanceID int    `json:"instance_id"`
}

// Quote is the outcome of Methods. Zone is empty when no zone matched.
type Quote struct {
	OrderID int
	Zone    string
	Methods []Method
}

// Service quotes shipping.
type Service struct {
	api      Upstream
	sessions session.Store
	logger   *slog.Logger
}

// NewService creates a shipping service.
func NewService(api Upstream, sessions session.Store, logger *slog.Logger) *Service {
	return &Service{api: api, sessions: sessions, logger: logger}
}

// Methods stores the destination on the order and returns the methods the
// matching zone offers for the order's contents. With no matching zone the
// only offer is free collection.
func (s *Service) Methods(ctx context.Context, req Request) (*Quote, error) {
	orderID, err := s.resolveOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dest := destination(order.Shipping, req)
	updated, err := s.api.UpdateOrder(context.WithoutCancel(ctx), orderID, &woocommerce.OrderInput{Shipping: &dest})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "shipping address set",
		slog.Int("order_id", orderID),
		slog.String("city", updated.Shipping.City),
		slog.String("postcode", updated.Shipping.Postcode),
		slog.String("country", updated.Shipping.Country),
	)

	cart := s.profile(ctx, updated.LineItems)

	zone, err := s.matchZone(ctx, updated.Shipping)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		s.logger.InfoContext(ctx, "no shipping zone matched", slog.Int("order_id", orderID))
		return &Quote{OrderID: orderID, Methods: []Method{collection()}}, nil
	}

	configured, err := s.api.ListZoneMethods(ctx, zone.ID)
	if err != nil {
		return nil, err
	}
	methods := s.offers(ctx, configured, cart, updated.Currency)

	s.logger.InfoContext(ctx, "shipping quoted",
		slog.Int("order_id", orderID),
		slog.String("zone", zone.Name),
		slog.String("weight_kg", cart.weight.String()),
		slog.Int("methods", len(methods)),
	)
	return &Quote{OrderID: orderID, Zone: zone.Name, Methods: methods}, nil
}

func (s *Service) resolveOrder(ctx context.Context, req Request) (int, error) {
	if req.OrderID < 0 {
		return 0, model.NewValidationError("orderId", "must be positive")
	}
	if req.OrderID > 0 {
		return req.OrderID, nil
	}
	if req.SessionID != "" && session.ValidID(req.SessionID) {
		sess, err := s.sessions.Lookup(ctx, req.SessionID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return 0, fmt.Errorf("loading cart session: %w", err)
		}
		if sess != nil && sess.OrderID != 0 {
			return sess.OrderID, nil
		}
	}
	return 0, model.NewBadRequestError("order ID is required to calculate shipping")
}

// destination merges the requested location into the stored shipping
// address. WooCommerce rejects an address without name, street or city,
// so placeholders fill those until checkout supplies the real ones.
func destination(stored woocommerce.Address, req Request) woocommerce.Address {
	return woocommerce.Address{
		FirstName: firstNonEmpty(stored.FirstName, "Customer"),
		LastName:  stored.LastName,
		Company:   stored.Company,
		Address1:  firstNonEmpty(stored.Address1, "Address"),
		Address2:  stored.Address2,
		City:      firstNonEmpty(strings.TrimSpace(req.City), stored.City, "City"),
		State:     firstNonEmpty(strings.TrimSpace(req.State), stored.State),
		Postcode:  firstNonEmpty(strings.TrimSpace(req.Postcode), stored.Postcode),
		Country:   strings.ToUpper(firstNonEmpty(strings.TrimSpace(req.Country), stored.Country)),
	}
}

// profile loads every ordered product. Products that cannot be fetched
// add nothing.
func (s *Service) profile(ctx context.Context, lines []woocommerce.LineItem) *cartProfile {
	cart := newCartProfile()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upstreamFanout)
	for _, line := range lines {
		id := line.VariationID
		if id == 0 {
			id = line.ProductID
		}
		if id == 0 {
			continue
		}
		g.Go(func() error {
			p, err := s.api.GetProduct(gctx, id)
			if err != nil {
				s.logger.WarnContext(gctx, "product not loaded for shipping",
					slog.Int("product_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			cart.add(p, line.Quantity)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return cart
}

// matchZone returns the first zone, in store order, with a location
// covering dest.
func (s *Service) matchZone(ctx context.Context, dest woocommerce.Address) (*woocommerce.ShippingZone, error) {
	zones, err := s.api.ListShippingZones(ctx)
	if err != nil {
		return nil, err
	}

	locations := make([][]woocommerce.ZoneLocation, len(zones))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upstreamFanout)
	for i, z := range zones {
		g.Go(func() error {
			locs, err := s.api.ListZoneLocations(gctx, z.ID)
			if err != nil {
				return err
			}
			locations[i] = locs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range zones {
		for _, loc := range locations[i] {
			if locationMatches(loc, dest) {
				return &zones[i], nil
			}
		}
	}
	return nil, nil
}

// offers prices the enabled methods for cart, drops those reserved for
// other product lines or shipping classes, and removes duplicates and
// hidden titles.
func (s *Service) offers(ctx context.Context, configured []woocommerce.ZoneMethod, cart *cartProfile, currency string) []Method {
	out := []Method{}
	seen := map[string]bool{}

	for _, m := range configured {
		if !m.Enabled {
			continue
		}
		title := methodTitle(m)
		if pl, ok := productLineFor(title); ok && !cart.mentions(pl.keywords) {
			s.skip(ctx, m, title, "no matching products")
			continue
		}
		if !cart.allows(m) {
			s.skip(ctx, m, title, "shipping class mismatch")
			continue
		}
		cost, ok := methodCost(m, cart.weight)
		if !ok {
			s.skip(ctx, m, title, "no pricing")
			continue
		}

		title = displayTitle(title)
		key := title + "|" + cost.String()
		if seen[key] || hidden(title) {
			continue
		}
		seen[key] = true

		out = append(out, Method{
			Title:      title,
			Cost:       displayCost(cost, currency),
			Total:      cost.StringFixed(2),
			MethodID:   m.MethodID,
			InstanceID: m.InstanceID,
		})
	}
	return out
}

func (s *Service) skip(ctx context.Context, m woocommerce.ZoneMethod, title, reason string) {
	s.logger.DebugContext(ctx, "shipping method skipped",
		slog.String("title", title),
		slog.String("method_id", m.MethodID),
		slog.Int("instance_id", m.InstanceID),
		slog.String("reason", reason),
	)
}

func collection() Method {
	return Method{
		Title:    "Collection",
		Cost:     "Free",
		Total:    decimal.Zero.StringFixed(2),
		MethodID: "local_pickup",
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
