package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func defaultLimits() Limits {
	return Limits{
		MaxSingleBet:   decimal.NewFromInt(15),
		MaxPositionPct: decimal.NewFromFloat(0.25),
		MaxDailyBets:   decimal.NewFromInt(30),
		MinReservePct:  decimal.NewFromFloat(0.20),
	}
}

func healthyBalance() Balance {
	return Balance{
		Total:     decimal.NewFromInt(100),
		Available: decimal.NewFromInt(100),
	}
}

func TestCheckBetRequiresResearch(t *testing.T) {
	m := NewManager(defaultLimits())

	allowed, msg := m.CheckBet(decimal.NewFromInt(10), "mkt-1", healthyBalance(), nil, false)
	assert.False(t, allowed)
	assert.Equal(t, "Must research market before betting", msg)
}

func TestCheckBetSingleBetCap(t *testing.T) {
	m := NewManager(defaultLimits())

	allowed, msg := m.CheckBet(decimal.NewFromFloat(15.01), "mkt-1", healthyBalance(), nil, true)
	assert.False(t, allowed)
	assert.Equal(t, "Single bet cannot exceed $15", msg)

	// Exactly at the cap is allowed
	allowed, msg = m.CheckBet(decimal.NewFromInt(15), "mkt-1", healthyBalance(), nil, true)
	assert.True(t, allowed)
	assert.Equal(t, "OK", msg)
}

func TestCheckBetInsufficientBalance(t *testing.T) {
	m := NewManager(defaultLimits())
	balance := Balance{Total: decimal.NewFromInt(100), Available: decimal.NewFromFloat(8.5)}

	allowed, msg := m.CheckBet(decimal.NewFromInt(10), "mkt-1", balance, nil, true)
	assert.False(t, allowed)
	assert.Equal(t, "Insufficient balance: $8.50 available", msg)
}

func TestCheckBetReserve(t *testing.T) {
	m := NewManager(defaultLimits())

	// 100 total -> reserve floor is 20. Available 18 cannot fund any bet.
	balance := Balance{Total: decimal.NewFromInt(100), Available: decimal.NewFromInt(18)}

	allowed, msg := m.CheckBet(decimal.NewFromInt(1), "mkt-1", balance, nil, true)
	assert.False(t, allowed)
	assert.Equal(t, "Must maintain 20% reserve", msg)

	// Available 25 leaves exactly the reserve after a $5 bet
	balance.Available = decimal.NewFromInt(25)
	allowed, _ = m.CheckBet(decimal.NewFromInt(5), "mkt-1", balance, nil, true)
	assert.True(t, allowed)
}

func TestCheckBetPositionConcentration(t *testing.T) {
	m := NewManager(defaultLimits())

	positions := []Position{
		{MarketID: "mkt-1", CurrentValue: decimal.NewFromInt(20)},
		{MarketID: "mkt-2", CurrentValue: decimal.NewFromInt(50)},
	}

	// 20 existing + 10 new = 30 > 25% of 100
	allowed, msg := m.CheckBet(decimal.NewFromInt(10), "mkt-1", healthyBalance(), positions, true)
	assert.False(t, allowed)
	assert.Equal(t, "Position would exceed 25% of balance", msg)

	// Other markets' positions don't count against mkt-3
	allowed, _ = m.CheckBet(decimal.NewFromInt(10), "mkt-3", healthyBalance(), positions, true)
	assert.True(t, allowed)
}

func TestCheckBetDailyLimit(t *testing.T) {
	m := NewManager(defaultLimits())
	m.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	m.RecordBet(decimal.NewFromInt(10))
	m.RecordBet(decimal.NewFromInt(15))

	// 25 spent, a further 6 would breach the $30 cap
	allowed, msg := m.CheckBet(decimal.NewFromInt(6), "mkt-1", healthyBalance(), nil, true)
	assert.False(t, allowed)
	assert.Equal(t, "Daily betting limit ($30) reached", msg)

	// 5 more lands exactly on the cap
	allowed, _ = m.CheckBet(decimal.NewFromInt(5), "mkt-1", healthyBalance(), nil, true)
	assert.True(t, allowed)
}

func TestDailyLedgerResetsAtMidnight(t *testing.T) {
	m := NewManager(defaultLimits())

	day := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return day })
	m.RecordBet(decimal.NewFromInt(30))

	allowed, _ := m.CheckBet(decimal.NewFromInt(1), "mkt-1", healthyBalance(), nil, true)
	assert.False(t, allowed)

	// Next calendar day, the ledger starts fresh
	m.SetClock(func() time.Time { return day.Add(2 * time.Hour) })
	allowed, _ = m.CheckBet(decimal.NewFromInt(1), "mkt-1", healthyBalance(), nil, true)
	assert.True(t, allowed)
	assert.True(t, m.DailyTotal().IsZero())
}

func TestCheckBetDoesNotRecord(t *testing.T) {
	m := NewManager(defaultLimits())

	// A passing check must not debit the ledger; only RecordBet does.
	for i := 0; i < 10; i++ {
		allowed, _ := m.CheckBet(decimal.NewFromInt(10), "mkt-1", healthyBalance(), nil, true)
		assert.True(t, allowed)
	}
	assert.True(t, m.DailyTotal().IsZero())

	m.RecordBet(decimal.NewFromInt(10))
	assert.Equal(t, "10", m.DailyTotal().String())
}
