// Package trading builds and submits Polymarket exchange orders
package trading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/CyberWeaverX/poly-survivor/pkg/clob"
)

// MinShares is the smallest order the exchange accepts
var MinShares = decimal.NewFromInt(5)

// Exchange tick sizes: prices trade in cents, sizes in 1/10000 share
const (
	pricePlaces = 2
	sizePlaces  = 4
)

// OrderSpec is a fully quantized order ready for signing. Notional is
// the actual USDC spend after rounding and any minimum-size bump, so
// callers must not assume it still equals the requested amount.
type OrderSpec struct {
	TokenID  string
	Side     clob.Side
	Price    decimal.Decimal
	Size     decimal.Decimal
	Notional decimal.Decimal
	Adjusted bool // size was bumped to the exchange minimum
}

// BuildOrder converts a desired USDC amount at a price into exchange
// units. Price rounds down to the cent and size down to 4 decimal
// places; an order below the minimum share count is bumped up to it
// with the notional recomputed.
func BuildOrder(tokenID string, side clob.Side, price, amount decimal.Decimal) (*OrderSpec, error) {
	if !price.IsPositive() || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("price must be in (0, 1), got %s", price)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}

	price = price.RoundDown(pricePlaces)
	if !price.IsPositive() {
		return nil, fmt.Errorf("price rounds to zero")
	}

	size := amount.Div(price)

	adjusted := false
	if size.LessThan(MinShares) {
		size = MinShares
		adjusted = true
	}

	size = size.RoundDown(sizePlaces)

	return &OrderSpec{
		TokenID:  tokenID,
		Side:     side,
		Price:    price,
		Size:     size,
		Notional: price.Mul(size),
		Adjusted: adjusted,
	}, nil
}

// WorstPrice returns the price a market order would pay: the last ask
// in book order for a BUY, the last bid for a SELL. The book lists
// each side worst to best, so this is the marketable quote.
func WorstPrice(book *clob.OrderBook, side clob.Side) (decimal.Decimal, error) {
	if side == clob.SideBuy {
		price, ok := book.BestAsk()
		if !ok {
			return decimal.Zero, fmt.Errorf("cannot get ask price")
		}
		return price, nil
	}

	price, ok := book.BestBid()
	if !ok {
		return decimal.Zero, fmt.Errorf("cannot get bid price")
	}
	return price, nil
}

// MidPrice returns the midpoint of the first listed bid and the last
// listed ask. An empty bid side counts as 0 and an empty ask side as
// 1, so a one-sided book still yields a price.
func MidPrice(book *clob.OrderBook) decimal.Decimal {
	bid := decimal.Zero
	if len(book.Bids) > 0 {
		bid = book.Bids[0].Price
	}

	ask := decimal.NewFromInt(1)
	if best, hasAsk := book.BestAsk(); hasAsk {
		ask = best
	}

	return bid.Add(ask).Div(decimal.NewFromInt(2))
}
