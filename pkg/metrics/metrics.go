// Package metrics exposes Prometheus instrumentation for the bot
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the bot's collectors on one registry
type Set struct {
	registry *prometheus.Registry

	CyclesTotal      prometheus.Counter
	CycleDuration    prometheus.Histogram
	CycleIterations  prometheus.Histogram
	ToolCalls        *prometheus.CounterVec
	ToolErrors       *prometheus.CounterVec
	BetsPlaced       prometheus.Counter
	BetsRejected     prometheus.Counter
	BetAmount        prometheus.Histogram
	ResearchCalls    prometheus.Counter
	BalanceAvailable prometheus.Gauge
	BalanceTotal     prometheus.Gauge
	OracleTokens     *prometheus.CounterVec
}

// New creates the metric set on a fresh registry
func New() *Set {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Set{
		registry: reg,

		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "survivor_cycles_total",
			Help: "Completed trading cycles.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "survivor_cycle_duration_seconds",
			Help:    "Wall time per trading cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		CycleIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "survivor_cycle_iterations",
			Help:    "Oracle turns used per cycle.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "survivor_tool_calls_total",
			Help: "Tool invocations by tool name.",
		}, []string{"tool"}),
		ToolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "survivor_tool_errors_total",
			Help: "Tool invocations that returned an error payload.",
		}, []string{"tool"}),
		BetsPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "survivor_bets_placed_total",
			Help: "Bets that passed the risk gate and were submitted.",
		}),
		BetsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "survivor_bets_rejected_total",
			Help: "Bets rejected by the risk gate.",
		}),
		BetAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "survivor_bet_amount_usdc",
			Help:    "USDC size of placed bets.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		ResearchCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "survivor_research_calls_total",
			Help: "Paid research invocations.",
		}),
		BalanceAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Name: "survivor_balance_available_usdc",
			Help: "Available USDC at last balance check.",
		}),
		BalanceTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "survivor_balance_total_usdc",
			Help: "Total USDC at last balance check.",
		}),
		OracleTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "survivor_oracle_tokens_total",
			Help: "Oracle token usage by direction.",
		}, []string{"direction"}),
	}
}

// Handler returns the scrape endpoint for this registry
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
