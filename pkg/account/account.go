// Package account queries balances and open positions
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/CyberWeaverX/poly-survivor/pkg/clob"
)

// Balance is the account's USDC position. Locked is the value tied up
// in open positions; Available is what the risk gate can spend.
type Balance struct {
	Available decimal.Decimal `json:"available_usdc"`
	Locked    decimal.Decimal `json:"locked_usdc"`
	Total     decimal.Decimal `json:"total_usdc"`
}

// Position is one open position with its unrealized result
type Position struct {
	MarketID         string          `json:"market_id"`
	MarketTitle      string          `json:"market_title"`
	Side             string          `json:"side"`
	Amount           decimal.Decimal `json:"amount"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct decimal.Decimal `json:"unrealized_pnl_pct"`
}

// Service reads account state from the data API and the CLOB
type Service struct {
	dataAPIURL    string
	walletAddress string
	clob          *clob.Client
	http          *http.Client
	logger        zerolog.Logger
}

// NewService creates an account service. clobClient may be nil, in
// which case the balance is estimated from position value alone.
func NewService(dataAPIURL, walletAddress string, clobClient *clob.Client, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		dataAPIURL:    dataAPIURL,
		walletAddress: walletAddress,
		clob:          clobClient,
		http:          &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// GetBalance returns the USDC balance split into available and locked.
// When the CLOB balance endpoint is unreachable the total is estimated
// from position value, leaving nothing available.
func (s *Service) GetBalance(ctx context.Context) (Balance, error) {
	positions, err := s.GetPositions(ctx)
	if err != nil {
		return Balance{}, err
	}

	locked := decimal.Zero
	for _, p := range positions {
		locked = locked.Add(p.CurrentValue.Abs())
	}

	raw := locked
	if s.clob != nil {
		if bal, err := s.clob.GetCollateralBalance(ctx); err == nil {
			raw = bal
		} else {
			s.logger.Warn().Err(err).Msg("balance API unavailable, estimating from positions")
		}
	}

	available := raw.Sub(locked)
	if available.IsNegative() {
		available = decimal.Zero
	}
	total := raw
	if locked.GreaterThan(total) {
		total = locked
	}

	return Balance{
		Available: available,
		Locked:    locked,
		Total:     total,
	}, nil
}

// dataPosition mirrors the data API's positions response
type dataPosition struct {
	EventID      string      `json:"eventId"`
	Title        string      `json:"title"`
	Outcome      string      `json:"outcome"`
	Size         json.Number `json:"size"`
	InitialValue json.Number `json:"initialValue"`
	CurrentValue json.Number `json:"currentValue"`
	CurPrice     json.Number `json:"curPrice"`
}

// GetPositions returns the wallet's open positions, skipping ones with
// no remaining value.
func (s *Service) GetPositions(ctx context.Context) ([]Position, error) {
	if s.walletAddress == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("user", strings.ToLower(s.walletAddress))
	q.Set("limit", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.dataAPIURL+"/positions?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("positions API status %d", resp.StatusCode)
	}

	var raw []dataPosition
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	positions := make([]Position, 0, len(raw))
	for _, pos := range raw {
		currentValue := numberToDecimal(pos.CurrentValue)
		if !currentValue.IsPositive() {
			continue
		}

		initialValue := numberToDecimal(pos.InitialValue)
		pnl := currentValue.Sub(initialValue)
		pnlPct := decimal.Zero
		if initialValue.IsPositive() {
			pnlPct = pnl.Div(initialValue).Mul(decimal.NewFromInt(100))
		}

		size := numberToDecimal(pos.Size)
		entryPrice := decimal.Zero
		if size.IsPositive() {
			entryPrice = initialValue.Div(size)
		}

		side := pos.Outcome
		if side == "" {
			side = "YES"
		}

		positions = append(positions, Position{
			MarketID:         pos.EventID,
			MarketTitle:      pos.Title,
			Side:             side,
			Amount:           size,
			EntryPrice:       entryPrice,
			CurrentPrice:     numberToDecimal(pos.CurPrice),
			CurrentValue:     currentValue,
			UnrealizedPnL:    pnl,
			UnrealizedPnLPct: pnlPct,
		})
	}

	return positions, nil
}

func numberToDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(n.String()); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}
