package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsPayload = `[
	{
		"id": "100",
		"slug": "will-the-bill-pass",
		"title": "Will the bill pass?",
		"description": "Resolution details here.",
		"closed": false,
		"liquidity": "250000.5",
		"volume24hr": 12000,
		"endDate": "2026-01-01T00:00:00Z",
		"createdAt": "2025-06-01T00:00:00Z",
		"tags": [{"slug": "Politics"}],
		"markets": [
			{
				"id": "m-100",
				"active": true,
				"closed": false,
				"description": "Resolves YES if the bill passes.",
				"outcomePrices": "[\"0.42\", \"0.58\"]",
				"outcomes": "[\"Yes\", \"No\"]",
				"clobTokenIds": "[\"111\", \"222\"]",
				"volumeNum": "90000",
				"conditionId": "0xabc",
				"acceptingOrders": true
			}
		]
	},
	{
		"id": "101",
		"slug": "nba-finals-winner",
		"title": "NBA finals winner",
		"closed": false,
		"liquidity": 900000,
		"tags": [{"slug": "sports"}, {"slug": "nba"}],
		"markets": [{"id": "m-101", "active": true, "closed": false}]
	},
	{
		"id": "102",
		"slug": "btc-up-or-down-today",
		"title": "BTC up or down",
		"closed": false,
		"liquidity": 500000,
		"tags": [{"slug": "crypto"}],
		"markets": [{"id": "m-102", "active": true, "closed": false}]
	},
	{
		"id": "103",
		"slug": "thin-market",
		"title": "Thin market",
		"closed": false,
		"liquidity": 100,
		"tags": [{"slug": "science"}],
		"markets": [{"id": "m-103", "active": true, "closed": false}]
	}
]`

func newTestGamma(t *testing.T) *Service {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "liquidity", r.URL.Query().Get("order"))
		assert.Equal(t, "false", r.URL.Query().Get("ascending"))
		w.Write([]byte(eventsPayload))
	})
	mux.HandleFunc("/events/100", func(w http.ResponseWriter, r *http.Request) {
		var events []json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(eventsPayload), &events))
		w.Write(events[0])
	})
	mux.HandleFunc("/events/slug/will-the-bill-pass", func(w http.ResponseWriter, r *http.Request) {
		var events []json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(eventsPayload), &events))
		w.Write(events[0])
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewService(srv.URL, 5*time.Second, zerolog.Nop())
}

func TestListFiltersExclusions(t *testing.T) {
	svc := newTestGamma(t)

	markets, err := svc.List(context.Background(), ListFilter{Limit: 50, MinLiquidity: 5000})
	require.NoError(t, err)

	// Sports tag, up-or-down slug, and thin liquidity are all dropped
	require.Len(t, markets, 1)
	m := markets[0]
	assert.Equal(t, "100", m.ID)
	assert.Equal(t, "politics", m.Category)
	assert.Equal(t, 0.42, m.Price)
	assert.Equal(t, 250000.5, m.Liquidity)
	assert.Equal(t, 12000.0, m.Volume24h)
}

func TestListCategoryFilter(t *testing.T) {
	svc := newTestGamma(t)

	markets, err := svc.List(context.Background(), ListFilter{Limit: 50, Category: "crypto"})
	require.NoError(t, err)
	// The only crypto event has an excluded slug pattern
	assert.Empty(t, markets)

	markets, err = svc.List(context.Background(), ListFilter{Limit: 50, Category: "politics"})
	require.NoError(t, err)
	assert.Len(t, markets, 1)
}

func TestGetDetail(t *testing.T) {
	svc := newTestGamma(t)

	detail, err := svc.GetDetail(context.Background(), "100")
	require.NoError(t, err)

	assert.Equal(t, "will-the-bill-pass", detail.Slug)
	assert.Equal(t, "Resolves YES if the bill passes.", detail.Rules)
	assert.Equal(t, 0.42, detail.Price)
	assert.True(t, detail.AcceptingOrders)
	assert.Equal(t, "0xabc", detail.ConditionID)
	assert.Equal(t, []string{"111", "222"}, detail.TokenIDs)

	require.Len(t, detail.Outcomes, 2)
	assert.Equal(t, Outcome{Name: "Yes", Price: 0.42}, detail.Outcomes[0])
	assert.Equal(t, Outcome{Name: "No", Price: 0.58}, detail.Outcomes[1])
}

func TestGetBySlug(t *testing.T) {
	svc := newTestGamma(t)

	detail, err := svc.GetBySlug(context.Background(), "will-the-bill-pass")
	require.NoError(t, err)
	assert.Equal(t, "100", detail.ID)
}

func TestFlexDecoding(t *testing.T) {
	var n flexNumber
	require.NoError(t, json.Unmarshal([]byte(`"123.45"`), &n))
	assert.Equal(t, flexNumber(123.45), n)
	require.NoError(t, json.Unmarshal([]byte(`678`), &n))
	assert.Equal(t, flexNumber(678), n)
	require.NoError(t, json.Unmarshal([]byte(`null`), &n))
	assert.Equal(t, flexNumber(0), n)

	var l flexList
	require.NoError(t, json.Unmarshal([]byte(`"[\"0.4\", \"0.6\"]"`), &l))
	assert.Equal(t, flexList{"0.4", "0.6"}, l)
	assert.Equal(t, 0.6, l.floatAt(1))
	assert.Equal(t, 0.0, l.floatAt(5))

	require.NoError(t, json.Unmarshal([]byte(`["1", "2"]`), &l))
	assert.Equal(t, flexList{"1", "2"}, l)
}
