package trading

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/CyberWeaverX/poly-survivor/pkg/clob"
	"github.com/CyberWeaverX/poly-survivor/pkg/market"
)

// Trader places orders against live markets. Outcomes are addressed by
// name ("UP"/"YES" is the first token, "DOWN"/"NO" the second).
type Trader struct {
	markets *market.Service
	clob    *clob.Client
	logger  zerolog.Logger
}

// NewTrader creates a trader
func NewTrader(markets *market.Service, clobClient *clob.Client, logger zerolog.Logger) *Trader {
	return &Trader{
		markets: markets,
		clob:    clobClient,
		logger:  logger,
	}
}

// ResolveToken maps an event slug and outcome name to a CLOB token ID
func (t *Trader) ResolveToken(ctx context.Context, slug, outcome string) (string, error) {
	detail, err := t.markets.GetBySlug(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("event not found: %s: %w", slug, err)
	}
	if len(detail.TokenIDs) < 2 {
		return "", fmt.Errorf("event %s has no token pair", slug)
	}

	switch strings.ToUpper(outcome) {
	case "UP", "YES":
		return detail.TokenIDs[0], nil
	case "DOWN", "NO":
		return detail.TokenIDs[1], nil
	default:
		return "", fmt.Errorf("unknown outcome %q", outcome)
	}
}

// MarketPrice returns the mid price for an outcome
func (t *Trader) MarketPrice(ctx context.Context, slug, outcome string) (decimal.Decimal, error) {
	tokenID, err := t.ResolveToken(ctx, slug, outcome)
	if err != nil {
		return decimal.Zero, err
	}

	book, err := t.clob.GetOrderBook(ctx, tokenID)
	if err != nil {
		return decimal.Zero, err
	}

	return MidPrice(book), nil
}

// CreateLimitOrder builds, quantizes, and signs a limit order
func (t *Trader) CreateLimitOrder(tokenID string, side clob.Side, price, amount decimal.Decimal) (*clob.SignedOrder, *OrderSpec, error) {
	spec, err := BuildOrder(tokenID, side, price, amount)
	if err != nil {
		return nil, nil, err
	}

	if spec.Adjusted {
		t.logger.Info().
			Str("token", tokenID).
			Str("notional", spec.Notional.StringFixed(2)).
			Msg("order bumped to minimum size")
	}

	signer := t.clob.Signer()
	if signer == nil {
		return nil, nil, fmt.Errorf("trader has no signing key")
	}

	signed, err := signer.SignOrder(spec.TokenID, spec.Side, spec.Price, spec.Size)
	if err != nil {
		return nil, nil, err
	}
	return signed, spec, nil
}

// CreateMarketOrder signs a limit order priced to cross the book
// immediately: the displayed worst price on the taker's side.
func (t *Trader) CreateMarketOrder(ctx context.Context, tokenID string, side clob.Side, amount decimal.Decimal) (*clob.SignedOrder, *OrderSpec, error) {
	book, err := t.clob.GetOrderBook(ctx, tokenID)
	if err != nil {
		return nil, nil, err
	}

	price, err := WorstPrice(book, side)
	if err != nil {
		return nil, nil, err
	}

	t.logger.Debug().Str("token", tokenID).Str("price", price.String()).Msg("market order price")

	return t.CreateLimitOrder(tokenID, side, price, amount)
}

// PlaceOrder submits a signed order as GTC
func (t *Trader) PlaceOrder(ctx context.Context, signed *clob.SignedOrder) (*clob.PlacedOrder, error) {
	return t.clob.PostOrder(ctx, signed, clob.OrderTypeGTC)
}

// Fill describes a placed bet
type Fill struct {
	OrderID  string          `json:"order_id"`
	TokenID  string          `json:"token_id"`
	Side     clob.Side       `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Size     decimal.Decimal `json:"size"`
	Notional decimal.Decimal `json:"notional"`
	Status   string          `json:"status"`
}

// Buy buys an outcome of an event. A nil price means a market order.
func (t *Trader) Buy(ctx context.Context, slug, outcome string, amount decimal.Decimal, price *decimal.Decimal) (*Fill, error) {
	return t.trade(ctx, slug, outcome, clob.SideBuy, amount, price)
}

// Sell sells an outcome of an event. A nil price means a market order.
func (t *Trader) Sell(ctx context.Context, slug, outcome string, amount decimal.Decimal, price *decimal.Decimal) (*Fill, error) {
	return t.trade(ctx, slug, outcome, clob.SideSell, amount, price)
}

func (t *Trader) trade(ctx context.Context, slug, outcome string, side clob.Side, amount decimal.Decimal, price *decimal.Decimal) (*Fill, error) {
	tokenID, err := t.ResolveToken(ctx, slug, outcome)
	if err != nil {
		return nil, err
	}

	var signed *clob.SignedOrder
	var spec *OrderSpec
	if price == nil {
		signed, spec, err = t.CreateMarketOrder(ctx, tokenID, side, amount)
	} else {
		signed, spec, err = t.CreateLimitOrder(tokenID, side, *price, amount)
	}
	if err != nil {
		return nil, err
	}

	placed, err := t.PlaceOrder(ctx, signed)
	if err != nil {
		return nil, err
	}

	t.logger.Info().
		Str("slug", slug).
		Str("outcome", outcome).
		Str("side", string(side)).
		Str("price", spec.Price.String()).
		Str("size", spec.Size.String()).
		Str("order_id", placed.OrderID).
		Msg("order placed")

	return &Fill{
		OrderID:  placed.OrderID,
		TokenID:  tokenID,
		Side:     side,
		Price:    spec.Price,
		Size:     spec.Size,
		Notional: spec.Notional,
		Status:   placed.Status,
	}, nil
}

// CancelOrder cancels a resting order. Any failure collapses to false;
// order management must never take down a cycle.
func (t *Trader) CancelOrder(ctx context.Context, orderID string) bool {
	if err := t.clob.CancelOrder(ctx, orderID); err != nil {
		t.logger.Warn().Str("order_id", orderID).Err(err).Msg("cancel failed")
		return false
	}
	return true
}

// OrderStatus fetches one order by ID, or nil when the lookup fails
func (t *Trader) OrderStatus(ctx context.Context, orderID string) *clob.OpenOrder {
	order, err := t.clob.GetOrder(ctx, orderID)
	if err != nil {
		t.logger.Warn().Str("order_id", orderID).Err(err).Msg("order lookup failed")
		return nil
	}
	return order
}

// OpenOrders lists the account's resting orders, empty when the query
// fails.
func (t *Trader) OpenOrders(ctx context.Context) []clob.OpenOrder {
	orders, err := t.clob.GetOpenOrders(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("open orders query failed")
		return []clob.OpenOrder{}
	}
	return orders
}
