// Package risk enforces position and spending limits on every bet
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Limits holds the risk parameters. All caps are in USDC except the
// percentage fields, which are fractions of total balance.
type Limits struct {
	MaxSingleBet   decimal.Decimal
	MaxPositionPct decimal.Decimal
	MaxDailyBets   decimal.Decimal
	MinReservePct  decimal.Decimal
}

// Balance is the account snapshot the gate evaluates against.
type Balance struct {
	Total     decimal.Decimal
	Available decimal.Decimal
}

// Position is an open position relevant to the concentration check.
type Position struct {
	MarketID     string
	CurrentValue decimal.Decimal
}

// Manager gates bets and tracks daily spending. The daily ledger keys
// on calendar date, so totals reset naturally at midnight.
type Manager struct {
	limits Limits

	mu        sync.Mutex
	dailyBets map[string]decimal.Decimal
	now       func() time.Time
}

// NewManager creates a risk manager with the given limits
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits:    limits,
		dailyBets: make(map[string]decimal.Decimal),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Used in tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// CheckBet evaluates a proposed bet against every rule in order and
// returns whether it is allowed plus a human-readable reason. The first
// failing rule wins; later rules are not evaluated.
func (m *Manager) CheckBet(amount decimal.Decimal, marketID string, balance Balance, positions []Position, researched bool) (bool, string) {
	if !researched {
		return false, "Must research market before betting"
	}

	if amount.GreaterThan(m.limits.MaxSingleBet) {
		return false, fmt.Sprintf("Single bet cannot exceed $%s", m.limits.MaxSingleBet)
	}

	if amount.GreaterThan(balance.Available) {
		return false, fmt.Sprintf("Insufficient balance: $%s available", balance.Available.StringFixed(2))
	}

	reserve := balance.Total.Mul(m.limits.MinReservePct)
	if balance.Available.Sub(amount).LessThan(reserve) {
		pct := m.limits.MinReservePct.Mul(decimal.NewFromInt(100))
		return false, fmt.Sprintf("Must maintain %s%% reserve", pct.StringFixed(0))
	}

	existing := decimal.Zero
	for _, p := range positions {
		if p.MarketID == marketID {
			existing = existing.Add(p.CurrentValue)
		}
	}
	if existing.Add(amount).GreaterThan(balance.Total.Mul(m.limits.MaxPositionPct)) {
		pct := m.limits.MaxPositionPct.Mul(decimal.NewFromInt(100))
		return false, fmt.Sprintf("Position would exceed %s%% of balance", pct.StringFixed(0))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	today := m.now().Format("2006-01-02")
	if m.dailyBets[today].Add(amount).GreaterThan(m.limits.MaxDailyBets) {
		return false, fmt.Sprintf("Daily betting limit ($%s) reached", m.limits.MaxDailyBets)
	}

	return true, "OK"
}

// RecordBet adds a successfully placed bet to today's ledger. Call this
// only after the order has actually been submitted.
func (m *Manager) RecordBet(amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := m.now().Format("2006-01-02")
	m.dailyBets[today] = m.dailyBets[today].Add(amount)
}

// DailyTotal returns today's recorded bet total
func (m *Manager) DailyTotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dailyBets[m.now().Format("2006-01-02")]
}
