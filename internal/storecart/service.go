// Package storecart proxies the WooCommerce Store API cart for browsers that
// cannot hold the store's cookies themselves. The gateway keeps the cookie
// jar per X-Session-Id and forwards it, with the caller's nonce, upstream.
package storecart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/session"
	"storefront-gateway/internal/woocommerce"
)

// Currency is the currency CalculateM2Price quotes in.
const Currency = "GBP"

// StoreAPI is the subset of the WooCommerce client the service uses.
type StoreAPI interface {
	GetCart(ctx context.Context, sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error)
	AddCartItem(ctx context.Context, sess woocommerce.StoreSession, item woocommerce.WooCartAddRequest) (*woocommerce.StoreResponse, error)
	UpdateCartItem(ctx context.Context, sess woocommerce.StoreSession, key string, quantity int) (*woocommerce.StoreResponse, error)
	RemoveCartItem(ctx context.Context, sess woocommerce.StoreSession, key string) (*woocommerce.StoreResponse, error)
	ClearCart(ctx context.Context, sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error)
}

// Call identifies the storefront session a request belongs to.
type Call struct {
	SessionID string
	Nonce     string
}

// Reply is a Store API cart as received, plus what the gateway adds.
// M2Quantity is set only by AddItem, at 3dp.
type Reply struct {
	Cart       json.RawMessage
	SessionID  string
	Nonce      string
	M2Quantity string
}

// NonceResult is returned by Nonce.
type NonceResult struct {
	Nonce     string `json:"nonce"`
	SessionID string `json:"session_id"`
}

// M2Price is the area quote returned by CalculateM2Price.
type M2Price struct {
	Quantity   int         `json:"quantity"`
	Dimensions string      `json:"dimensions"`
	M2PerTile  json.Number `json:"m2_per_tile"`
	TotalM2    json.Number `json:"total_m2"`
	PricePerM2 json.Number `json:"price_per_m2"`
	TotalPrice json.Number `json:"total_price"`
	Currency   string      `json:"currency"`
}

// Service implements the store-cart operations.
type Service struct {
	api      StoreAPI
	sessions session.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a store-cart service.
func NewService(api StoreAPI, sessions session.Store, logger *slog.Logger) *Service {
	return &Service{api: api, sessions: sessions, logger: logger, now: time.Now}
}

// Nonce fetches the cart to obtain a fresh nonce. When the caller has no
// session yet one is minted from the clock.
func (s *Service) Nonce(ctx context.Context, call Call) (*NonceResult, error) {
	if call.SessionID == "" {
		call.SessionID = strconv.FormatInt(s.now().UnixMilli(), 10)
	} else if !session.ValidID(call.SessionID) {
		return nil, model.NewValidationError("X-Session-Id", "malformed session id")
	}

	sess, err := s.sessions.GetOrCreate(ctx, call.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading cart session: %w", err)
	}

	resp, err := s.api.GetCart(ctx, woocommerce.StoreSession{Cookie: sess.CookieHeader()})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.MergeCookies(ctx, call.SessionID, resp.Cookies); err != nil {
		return nil, fmt.Errorf("saving cart session: %w", err)
	}

	return &NonceResult{Nonce: resp.Nonce, SessionID: call.SessionID}, nil
}

// Get returns the cart.
func (s *Service) Get(ctx context.Context, call Call) (*Reply, error) {
	return s.do(ctx, call, func(sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
		return s.api.GetCart(ctx, sess)
	})
}

// AddItem adds a product to the cart. When m2_quantity is absent it is
// derived from the variation's size attribute.
func (s *Service) AddItem(ctx context.Context, call Call, req *model.StoreCartAddRequest) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	area, hasArea := req.M2Quantity.Value, req.M2Quantity.Set && !req.M2Quantity.Value.IsZero()
	if !hasArea {
		area, hasArea = areaFromVariation(req.Variation, int(req.Quantity))
	}

	item := woocommerce.WooCartAddRequest{ID: int(req.ID), Quantity: int(req.Quantity)}
	for _, v := range req.Variation {
		item.Variation = append(item.Variation, woocommerce.WooVariant{Attribute: v.Attribute, Value: v.Value})
	}

	reply, err := s.do(ctx, call, func(sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
		return s.api.AddCartItem(ctx, sess, item)
	})
	if err != nil {
		return nil, err
	}
	if hasArea {
		reply.M2Quantity = area.StringFixed(model.AreaPlaces)
	}
	return reply, nil
}

// UpdateItem sets a cart line's quantity.
func (s *Service) UpdateItem(ctx context.Context, call Call, req *model.StoreCartUpdateRequest) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.do(ctx, call, func(sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
		return s.api.UpdateCartItem(ctx, sess, req.Key, int(*req.Quantity))
	})
}

// RemoveItem removes a cart line.
func (s *Service) RemoveItem(ctx context.Context, call Call, req *model.StoreCartRemoveRequest) (*Reply, error) {
	if req.Key == "" {
		return nil, model.NewValidationError("key", "required")
	}
	return s.do(ctx, call, func(sess woocommerce.StoreSession) (*woocommerce.StoreResponse, error) {
		return s.api.RemoveCartItem(ctx, sess, req.Key)
	})
}

// Clear empties the cart and forgets the session.
func (s *Service) Clear(ctx context.Context, call Call) (*Reply, error) {
	sess, err := s.storeSession(ctx, call)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.ClearCart(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, call.SessionID); err != nil {
		s.logger.WarnContext(ctx, "cart session not deleted",
			slog.String("session_id", call.SessionID),
			slog.String("error", err.Error()),
		)
	}
	return &Reply{Cart: resp.Raw, SessionID: call.SessionID, Nonce: resp.Nonce}, nil
}

// CalculateM2Price quotes quantity tiles of the given dimensions at a price
// per m². No upstream call is made.
func (s *Service) CalculateM2Price(req *model.M2PriceRequest) (*M2Price, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	w, h, ok := parseDimensions(req.Dimensions)
	if !ok {
		return nil, model.NewValidationError("dimensions", `expected "WxH" or "WxHxD" in millimetres, e.g. "305x305x10"`)
	}

	perTile := tileArea(w, h)
	total := perTile.Mul(decimal.NewFromInt(int64(req.Quantity)))
	price := total.Mul(req.PricePerM2.Value)

	return &M2Price{
		Quantity:   int(req.Quantity),
		Dimensions: req.Dimensions,
		M2PerTile:  json.Number(perTile.Round(6).String()),
		TotalM2:    json.Number(total.Round(4).String()),
		PricePerM2: json.Number(req.PricePerM2.Value.String()),
		TotalPrice: json.Number(price.Round(2).String()),
		Currency:   Currency,
	}, nil
}

// do runs one Store API call with the session's cookies and folds any
// cookies the store sets back into the session.
func (s *Service) do(ctx context.Context, call Call, fn func(woocommerce.StoreSession) (*woocommerce.StoreResponse, error)) (*Reply, error) {
	sess, err := s.storeSession(ctx, call)
	if err != nil {
		return nil, err
	}
	resp, err := fn(sess)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.MergeCookies(ctx, call.SessionID, resp.Cookies); err != nil {
		return nil, fmt.Errorf("saving cart session: %w", err)
	}
	return &Reply{Cart: resp.Raw, SessionID: call.SessionID, Nonce: resp.Nonce}, nil
}

// storeSession resolves the upstream credentials for call. An unknown
// session forwards no cookies; the store starts a fresh cart.
func (s *Service) storeSession(ctx context.Context, call Call) (woocommerce.StoreSession, error) {
	if call.SessionID == "" {
		return woocommerce.StoreSession{}, model.NewValidationError("X-Session-Id", "required, call /store-cart/nonce first")
	}
	if !session.ValidID(call.SessionID) {
		return woocommerce.StoreSession{}, model.NewValidationError("X-Session-Id", "malformed session id")
	}

	out := woocommerce.StoreSession{Nonce: call.Nonce}
	sess, err := s.sessions.Lookup(ctx, call.SessionID)
	switch {
	case err == nil:
		out.Cookie = sess.CookieHeader()
	case errors.Is(err, model.ErrNotFound):
	default:
		return woocommerce.StoreSession{}, fmt.Errorf("loading cart session: %w", err)
	}
	return out, nil
}
