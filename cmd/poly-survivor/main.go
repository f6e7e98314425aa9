// poly-survivor - An autonomous Polymarket trading bot
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/CyberWeaverX/poly-survivor/pkg/account"
	"github.com/CyberWeaverX/poly-survivor/pkg/bot"
	"github.com/CyberWeaverX/poly-survivor/pkg/clob"
	"github.com/CyberWeaverX/poly-survivor/pkg/config"
	"github.com/CyberWeaverX/poly-survivor/pkg/logger"
	"github.com/CyberWeaverX/poly-survivor/pkg/market"
	"github.com/CyberWeaverX/poly-survivor/pkg/memory"
	"github.com/CyberWeaverX/poly-survivor/pkg/metrics"
	"github.com/CyberWeaverX/poly-survivor/pkg/provider/claude"
	"github.com/CyberWeaverX/poly-survivor/pkg/research"
	"github.com/CyberWeaverX/poly-survivor/pkg/trading"
)

var (
	version    = "0.1.0"
	configPath string
	dryRun     bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "poly-survivor",
		Short: "Autonomous Polymarket trading bot",
		Long: `poly-survivor is an autonomous prediction market trading bot.
It researches Polymarket events, estimates probabilities, and places
risk-limited bets to sustain its own operating costs.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Simulate trading without placing orders")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(marketsCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("poly-survivor version %s\n", version)
		},
	}
}

// loadConfig builds the effective config from file, env, and flags
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if dryRun {
		cfg.DryRun = true
	}
	if verbose {
		cfg.Verbose = true
		cfg.LogLevel = "debug"
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Verbose})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

// app bundles the wired services plus their teardown
type app struct {
	bot     *bot.Bot
	metrics *metrics.Set
	close   func()
}

// buildApp wires every service the bot needs. In dry-run mode no
// credentials are loaded and no trader is constructed.
func buildApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	oracle := claude.New(cfg.AnthropicAPIKey,
		claude.WithBaseURL(cfg.AnthropicBaseURL),
		claude.WithTimeout(cfg.OracleTimeout),
	)

	markets := market.NewService(cfg.GammaAPIURL, cfg.HTTPTimeout, log)

	store, err := research.OpenStore(cfg.ResearchDBPath, cfg.ResearchCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("open research cache: %w", err)
	}

	history, err := memory.OpenHistory(cfg.HistoryDBPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open cycle history: %w", err)
	}

	closeAll := func() {
		store.Close()
		history.Close()
	}

	var (
		acct   *account.Service
		trader *trading.Trader
	)

	if cfg.DryRun {
		acct = account.NewService(cfg.DataAPIURL, "", nil, cfg.HTTPTimeout, log)
	} else {
		creds, err := config.LoadCredentials(cfg.CredentialsFile, cfg.KeysFile)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("load credentials: %w", err)
		}

		signer, err := clob.NewSigner(creds.PrivateKey, cfg.ChainID)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init order signer: %w", err)
		}

		clobClient := clob.New(cfg.CLOBHost, creds, signer)
		acct = account.NewService(cfg.DataAPIURL, creds.Address, clobClient, cfg.HTTPTimeout, log)
		trader = trading.NewTrader(markets, clobClient, log)

		log.Info().Str("wallet", shortAddress(creds.Address)).Msg("trading wallet loaded")
	}

	metricSet := metrics.New()

	b, err := bot.New(cfg, bot.Deps{
		Oracle:   oracle,
		Markets:  markets,
		Account:  acct,
		Research: research.NewService(oracle, store, cfg.AnthropicModel, log),
		Trader:   trader,
		Memory:   memory.NewFile(cfg.MemoryFile),
		History:  history,
		Metrics:  metricSet,
		Logger:   log,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	return &app{bot: b, metrics: metricSet, close: closeAll}, nil
}

func shortAddress(addr string) string {
	if len(addr) < 16 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-6:]
}

// signalContext cancels on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single trading cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := buildApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			report, err := a.bot.RunCycle(ctx)
			if err != nil {
				return err
			}

			fmt.Println(report.Summary)
			return nil
		},
	}
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run trading cycles on a schedule",
		Long: `Runs one cycle immediately, then repeats on the configured
schedule. A Prometheus scrape endpoint is served on the metrics
address for the lifetime of the process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := buildApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			mux := http.NewServeMux()
			mux.Handle("/metrics", a.metrics.Handler())
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			go func() {
				log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("metrics server failed")
				}
			}()
			defer srv.Close()

			// A cycle can outlast the schedule interval; skip ticks
			// that land while one is still running.
			var busy atomic.Bool
			runOnce := func() {
				if !busy.CompareAndSwap(false, true) {
					log.Warn().Msg("previous cycle still running, skipping tick")
					return
				}
				defer busy.Store(false)

				if _, err := a.bot.RunCycle(ctx); err != nil {
					log.Error().Err(err).Msg("cycle failed")
				}
			}

			runOnce()

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(cfg.CycleSchedule, runOnce); err != nil {
				return fmt.Errorf("invalid cycle schedule %q: %w", cfg.CycleSchedule, err)
			}
			scheduler.Start()
			defer scheduler.Stop()

			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

func marketsCmd() *cobra.Command {
	var limit int
	var category string

	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List active markets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			svc := market.NewService(cfg.GammaAPIURL, cfg.HTTPTimeout, log)
			markets, err := svc.List(ctx, market.ListFilter{
				Limit:        limit,
				MinLiquidity: cfg.MinLiquidity,
				Category:     category,
			})
			if err != nil {
				return err
			}

			for _, m := range markets {
				fmt.Printf("%-12s %-10s $%-12.0f %.2f  %s\n", m.ID, m.Category, m.Liquidity, m.Price, m.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of markets to list")
	cmd.Flags().StringVar(&category, "category", "", "Category filter")
	return cmd
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show account balance and positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			creds, err := config.LoadCredentials(cfg.CredentialsFile, cfg.KeysFile)
			if err != nil {
				return fmt.Errorf("load credentials: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			clobClient := clob.New(cfg.CLOBHost, creds, nil)
			svc := account.NewService(cfg.DataAPIURL, creds.Address, clobClient, cfg.HTTPTimeout, log)

			balance, err := svc.GetBalance(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Balance: $%s (Available: $%s / Locked: $%s)\n",
				balance.Total.StringFixed(2), balance.Available.StringFixed(2), balance.Locked.StringFixed(2))

			positions, err := svc.GetPositions(ctx)
			if err != nil {
				return err
			}
			if len(positions) == 0 {
				fmt.Println("No open positions")
				return nil
			}
			for _, p := range positions {
				fmt.Printf("%-6s $%-8s @%s  pnl $%s (%s%%)  %s\n",
					p.Side, p.CurrentValue.StringFixed(2), p.EntryPrice.StringFixed(2),
					p.UnrealizedPnL.StringFixed(2), p.UnrealizedPnLPct.StringFixed(1), p.MarketTitle)
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent cycle summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			history, err := memory.OpenHistory(cfg.HistoryDBPath)
			if err != nil {
				return err
			}
			defer history.Close()

			ctx, cancel := signalContext()
			defer cancel()

			records, err := history.Recent(ctx, limit)
			if err != nil {
				return err
			}

			for _, r := range records {
				mode := ""
				if r.DryRun {
					mode = " [dry-run]"
				}
				fmt.Printf("=== Cycle %d  %s%s  ($%s available)\n%s\n\n",
					r.ID, r.CycleTime, mode, r.BalanceAvailable.StringFixed(2), r.Summary)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of cycles to show")
	return cmd
}
