package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const positionsPayload = `[
	{
		"eventId": "100",
		"title": "Will the bill pass?",
		"outcome": "Yes",
		"size": "20",
		"initialValue": "8",
		"currentValue": "11",
		"curPrice": "0.55"
	},
	{
		"eventId": "101",
		"title": "Settled market",
		"outcome": "No",
		"size": "10",
		"initialValue": "4",
		"currentValue": "0",
		"curPrice": "0"
	},
	{
		"eventId": "102",
		"title": "Missing outcome",
		"size": 5,
		"initialValue": 2.5,
		"currentValue": 3.0,
		"curPrice": 0.6
	}
]`

func newTestAccount(t *testing.T) *Service {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/positions", func(w http.ResponseWriter, r *http.Request) {
		// The wallet address is always queried lowercased
		assert.Equal(t, "0xabcdef", r.URL.Query().Get("user"))
		w.Write([]byte(positionsPayload))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewService(srv.URL, "0xAbCdEf", nil, 5*time.Second, zerolog.Nop())
}

func TestGetPositions(t *testing.T) {
	svc := newTestAccount(t)

	positions, err := svc.GetPositions(context.Background())
	require.NoError(t, err)

	// The settled zero-value position is dropped
	require.Len(t, positions, 2)

	p := positions[0]
	assert.Equal(t, "100", p.MarketID)
	assert.Equal(t, "Yes", p.Side)
	assert.Equal(t, "20", p.Amount.String())
	assert.Equal(t, "0.4", p.EntryPrice.String())
	assert.Equal(t, "11", p.CurrentValue.String())
	assert.Equal(t, "3", p.UnrealizedPnL.String())
	assert.Equal(t, "37.5", p.UnrealizedPnLPct.String())

	// Outcome defaults to YES when the API omits it
	assert.Equal(t, "YES", positions[1].Side)
}

func TestGetBalanceEstimatedFromPositions(t *testing.T) {
	// With no CLOB client, the total is estimated from locked value
	svc := newTestAccount(t)

	balance, err := svc.GetBalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "14", balance.Locked.String())
	assert.Equal(t, "14", balance.Total.String())
	assert.True(t, balance.Available.IsZero())
}

func TestGetPositionsNoWallet(t *testing.T) {
	svc := NewService("http://127.0.0.1:1", "", nil, time.Second, zerolog.Nop())

	positions, err := svc.GetPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestGetPositionsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "0xabc", nil, time.Second, zerolog.Nop())
	_, err := svc.GetPositions(context.Background())
	assert.Error(t, err)
}
