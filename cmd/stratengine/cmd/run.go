package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/broker/paper"
	"github.com/rustyeddy/stratengine/config"
	"github.com/rustyeddy/stratengine/dispatch"
	"github.com/rustyeddy/stratengine/engine"
	"github.com/rustyeddy/stratengine/feed"
	"github.com/rustyeddy/stratengine/feed/binance"
	"github.com/rustyeddy/stratengine/indicators"
	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/risk"
	"github.com/rustyeddy/stratengine/sched"
	"github.com/rustyeddy/stratengine/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine from a config file",
	Long: `Run the strategy engine using settings from a configuration file.

Persisted strategies are loaded and registered on startup; activate them
through the engine's control API. The engine runs until interrupted.

Example:
  stratengine run --config config.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return err
	}
	return serve(cfg)
}

// serve builds the whole engine from a config and pumps the feed until
// the process is interrupted or the feed ends.
func serve(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	venue := paper.New(paper.Config{
		Cash:          cfg.Venue.Cash,
		MinQty:        cfg.Venue.MinQty,
		DefaultMinQty: cfg.Venue.DefaultMinQty,
	})

	dispatcher := dispatch.New(venue)
	defer dispatcher.Close()

	account := risk.NewAccount(cfg.Account.Equity)
	book := ledger.NewBook(cfg.Account.Equity)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	trader := dispatch.NewTrader(venue, dispatcher, account, book, j)
	scheduler := sched.New(indicators.NewStore(), book, trader, venue)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open strategy store: %w", err)
	}

	eng := engine.New(scheduler, trader, book, store.NewStrategyRepo(db))
	if err := eng.LoadPersisted(ctx); err != nil {
		return err
	}
	log.Printf("loaded %d strategies from %s", len(eng.Strategies()), cfg.Store.Path)

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr)
		defer srv.Shutdown(context.Background())
	}

	if cfg.Journal.SnapshotCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.Journal.SnapshotCron, func() {
			snap := journal.EquitySnapshot{
				Time:          time.Now().UTC(),
				Equity:        account.Equity(),
				Reserved:      account.Reserved(),
				Unrealized:    book.TotalUnrealized(),
				OpenPositions: book.TotalOpen(),
			}
			metrics.AccountEquity.Set(snap.Equity)
			metrics.AccountReserved.Set(snap.Reserved)
			if err := j.RecordEquity(snap); err != nil {
				log.Printf("equity snapshot: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("journal.snapshot_cron: %w", err)
		}
		c.Start()
		defer c.Stop()
	}

	f, err := openFeed(ctx, cfg.Feed)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Printf("engine running (feed=%s)", cfg.Feed.Type)
	scheduler.Run(ctx, f.Ticks(), f.Errs())
	log.Printf("engine stopped")
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	default:
		return journal.Nop{}, nil
	}
}

func openFeed(ctx context.Context, cfg config.FeedConfig) (feed.Feed, error) {
	switch cfg.Type {
	case "csv":
		return feed.NewCSV(cfg.Path)
	case "binance":
		f, err := binance.New(binance.Config{
			URL:       cfg.URL,
			Symbols:   cfg.Symbols,
			Timeframe: market.Timeframe(cfg.Timeframe),
		})
		if err != nil {
			return nil, err
		}
		if err := f.Start(ctx); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown feed type %q", cfg.Type)
	}
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv
}
