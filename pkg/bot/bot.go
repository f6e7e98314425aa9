// Package bot wires the oracle, tools, and risk gate into trading cycles
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CyberWeaverX/poly-survivor/pkg/account"
	"github.com/CyberWeaverX/poly-survivor/pkg/config"
	"github.com/CyberWeaverX/poly-survivor/pkg/cost"
	"github.com/CyberWeaverX/poly-survivor/pkg/engine"
	"github.com/CyberWeaverX/poly-survivor/pkg/market"
	"github.com/CyberWeaverX/poly-survivor/pkg/memory"
	"github.com/CyberWeaverX/poly-survivor/pkg/metrics"
	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
	"github.com/CyberWeaverX/poly-survivor/pkg/research"
	"github.com/CyberWeaverX/poly-survivor/pkg/risk"
	"github.com/CyberWeaverX/poly-survivor/pkg/session"
	"github.com/CyberWeaverX/poly-survivor/pkg/tool"
	"github.com/CyberWeaverX/poly-survivor/pkg/trading"
)

// cycleMaxTokens caps each oracle turn within a trading cycle. Research
// calls have their own, smaller budget.
const cycleMaxTokens = 4096

// Deps are the services the bot drives. Trader may be nil in dry-run
// mode; everything else is required.
type Deps struct {
	Oracle   provider.Oracle
	Markets  *market.Service
	Account  *account.Service
	Research *research.Service
	Trader   *trading.Trader
	Memory   *memory.File
	History  *memory.History
	Metrics  *metrics.Set
	Logger   zerolog.Logger
}

// Bot runs autonomous trading cycles
type Bot struct {
	cfg      *config.Config
	oracle   provider.Oracle
	markets  *market.Service
	account  *account.Service
	research *research.Service
	trader   *trading.Trader
	memory   *memory.File
	history  *memory.History
	metrics  *metrics.Set
	risk     *risk.Manager
	tracker  *cost.Tracker
	logger   zerolog.Logger

	mu            sync.Mutex
	cycle         int
	researchCount int
}

// New creates a bot
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	if deps.Oracle == nil {
		return nil, fmt.Errorf("bot requires an oracle")
	}
	if !cfg.DryRun && deps.Trader == nil {
		return nil, fmt.Errorf("live trading requires a trader")
	}

	return &Bot{
		cfg:      cfg,
		oracle:   deps.Oracle,
		markets:  deps.Markets,
		account:  deps.Account,
		research: deps.Research,
		trader:   deps.Trader,
		memory:   deps.Memory,
		history:  deps.History,
		metrics:  deps.Metrics,
		risk: risk.NewManager(risk.Limits{
			MaxSingleBet:   cfg.MaxSingleBet,
			MaxPositionPct: cfg.MaxPositionPct,
			MaxDailyBets:   cfg.MaxDailyBets,
			MinReservePct:  cfg.MinReservePct,
		}),
		tracker: cost.NewTracker(cfg.AnthropicModel, cfg.ResearchCostUSD),
		logger:  deps.Logger,
	}, nil
}

// Risk exposes the risk manager
func (b *Bot) Risk() *risk.Manager {
	return b.risk
}

// Tracker exposes the cost tracker
func (b *Bot) Tracker() *cost.Tracker {
	return b.tracker
}

// registry builds the tool set in the order the tools are presented to
// the model.
func (b *Bot) registry() (*tool.Registry, error) {
	reg := tool.NewRegistry()
	tools := []tool.Tool{
		&marketsListTool{bot: b},
		&marketDetailTool{bot: b},
		&researchResultTool{bot: b},
		&researchTool{bot: b},
		&balanceTool{bot: b},
		&positionsTool{bot: b},
		&placeBetTool{bot: b},
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// takeResearchSlot claims one of the cycle's paid research slots.
// Returns false once the cap is reached.
func (b *Bot) takeResearchSlot() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.researchCount >= b.cfg.MaxResearchPerCycle {
		return false
	}
	b.researchCount++
	return true
}

// observeBalance pushes a balance reading to the gauges
func (b *Bot) observeBalance(balance account.Balance) {
	available, _ := balance.Available.Float64()
	total, _ := balance.Total.Float64()
	b.metrics.BalanceAvailable.Set(available)
	b.metrics.BalanceTotal.Set(total)
}

// CycleReport summarizes one completed cycle
type CycleReport struct {
	Cycle        int
	Summary      string
	Iterations   int
	ToolCalls    int
	HitIteration bool
	Duration     time.Duration
	Cost         cost.Stats
}

// RunCycle executes one full trading cycle: load the previous summary,
// run the decision loop to completion, then persist the new summary
// and a history row.
func (b *Bot) RunCycle(ctx context.Context) (*CycleReport, error) {
	b.mu.Lock()
	b.cycle++
	cycle := b.cycle
	b.researchCount = 0
	b.mu.Unlock()

	// Per-cycle spend, not a running process total
	b.tracker.Reset()

	start := time.Now()
	b.logger.Info().Int("cycle", cycle).Bool("dry_run", b.cfg.DryRun).Msg("cycle start")

	lastSummary, err := b.memory.Load()
	if err != nil {
		b.logger.Warn().Err(err).Msg("previous summary unavailable, starting fresh")
		lastSummary = ""
	}

	reg, err := b.registry()
	if err != nil {
		return nil, err
	}

	sess := session.New(cycle, b.cfg.AnthropicModel)
	eng := engine.New(&engine.Options{
		Oracle:        b.oracle,
		Registry:      reg,
		Session:       sess,
		MaxIterations: b.cfg.MaxIterations,
		MaxTokens:     cycleMaxTokens,
		SystemPrompt:  engine.SystemPrompt,
		Logger:        b.logger,
	})

	eng.Hooks().RegisterPostToolUse(func(ctx context.Context, toolName string, input map[string]interface{}, output *tool.Output) {
		b.metrics.ToolCalls.WithLabelValues(toolName).Inc()
		if output.IsError {
			b.metrics.ToolErrors.WithLabelValues(toolName).Inc()
		}
	})

	result, err := eng.Run(ctx, engine.BuildCyclePrompt(lastSummary))
	if err != nil {
		return nil, fmt.Errorf("cycle %d: %w", cycle, err)
	}

	b.tracker.AddUsage(result.Usage.InputTokens, result.Usage.OutputTokens)
	b.metrics.OracleTokens.WithLabelValues("input").Add(float64(result.Usage.InputTokens))
	b.metrics.OracleTokens.WithLabelValues("output").Add(float64(result.Usage.OutputTokens))
	b.metrics.CyclesTotal.Inc()
	b.metrics.CycleIterations.Observe(float64(result.Iterations))

	duration := time.Since(start)
	b.metrics.CycleDuration.Observe(duration.Seconds())

	if err := b.memory.Save(result.FinalText); err != nil {
		b.logger.Error().Err(err).Msg("failed to save cycle summary")
	}

	b.appendHistory(ctx, result.FinalText)

	stats := b.tracker.GetStats()
	b.logger.Info().
		Int("cycle", cycle).
		Int("iterations", result.Iterations).
		Int("tool_calls", result.ToolCalls).
		Dur("duration", duration).
		Float64("cost_usd", stats.TotalCostUSD).
		Msg("cycle complete")

	return &CycleReport{
		Cycle:        cycle,
		Summary:      result.FinalText,
		Iterations:   result.Iterations,
		ToolCalls:    result.ToolCalls,
		HitIteration: result.HitIteration,
		Duration:     duration,
		Cost:         stats,
	}, nil
}

// appendHistory records the cycle in the history database. Balances
// come from the account service when reachable, falling back to the
// figures printed in the summary text.
func (b *Bot) appendHistory(ctx context.Context, summary string) {
	if b.history == nil {
		return
	}

	balances := memory.ExtractBalances(summary)
	if !b.cfg.DryRun {
		if acct, err := b.account.GetBalance(ctx); err == nil {
			balances = memory.BalanceSnapshot{
				Available: acct.Available,
				Locked:    acct.Locked,
				Total:     acct.Total,
			}
			b.observeBalance(acct)
		}
	}

	if err := b.history.Append(ctx, summary, balances, b.cfg.DryRun); err != nil {
		b.logger.Error().Err(err).Msg("failed to append cycle history")
	}
}
