// Package clob is a client for the Polymarket central limit order book
package clob

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is an order side
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType controls how long an order rests on the book
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeFOK OrderType = "FOK"
	OrderTypeIOC OrderType = "IOC"
)

// BookLevel is one price level of the order book. The API returns
// prices and sizes as strings.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// UnmarshalJSON decodes a {"price": "...", "size": "..."} level
func (l *BookLevel) UnmarshalJSON(data []byte) error {
	var raw struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return fmt.Errorf("book level price %q: %w", raw.Price, err)
	}
	size, err := decimal.NewFromString(raw.Size)
	if err != nil {
		return fmt.Errorf("book level size %q: %w", raw.Size, err)
	}

	l.Price = price
	l.Size = size
	return nil
}

// MarshalJSON encodes the level back to the wire format
func (l BookLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	}{
		Price: l.Price.String(),
		Size:  l.Size.String(),
	})
}

// OrderBook is a snapshot of one token's book. Bids are ordered worst
// to best (ascending price) and asks worst to best (descending price),
// as the API returns them. The best quote on either side is the last
// entry.
type OrderBook struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Timestamp string      `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// BestBid returns the highest bid, or false when the side is empty
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	if len(b.Bids) == 0 {
		return decimal.Zero, false
	}
	return b.Bids[len(b.Bids)-1].Price, true
}

// BestAsk returns the lowest ask, or false when the side is empty
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	if len(b.Asks) == 0 {
		return decimal.Zero, false
	}
	return b.Asks[len(b.Asks)-1].Price, true
}

// PlacedOrder is the response to a successful order submission
type PlacedOrder struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"orderID"`
	Status    string `json:"status"`
	ErrorMsg  string `json:"errorMsg"`
	OrderHash string `json:"transactionHash,omitempty"`
}

// OpenOrder is one resting order as reported by the API
type OpenOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	CreatedAt    int64  `json:"created_at"`
}
