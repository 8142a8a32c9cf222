// Command customer360 builds the Customer 360 dataset from a lead table, a
// web activity log and a transaction ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/customer360/internal/config"
	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/JonMunkholm/customer360/internal/logging"
	"github.com/JonMunkholm/customer360/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	crm := flag.String("crm", "crm_leads.csv", "Path to the lead table (comma-delimited)")
	web := flag.String("web", "web_activity.json", "Path to the web activity log (one JSON object per line)")
	tx := flag.String("tx", "transactions.txt", "Path to the transaction ledger (pipe-delimited)")
	outdir := flag.String("outdir", ".", "Directory for output artifacts")
	flag.Parse()

	if err := run(*crm, *web, *tx, *outdir); err != nil {
		slog.Error("customer 360 run failed", "error", err)
		os.Exit(1)
	}
}

func run(crm, web, tx, outdir string) error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := storage.NewSink(outdir, cfg.Output.Format)
	if err != nil {
		return fmt.Errorf("prepare output: %w", err)
	}

	opts := []core.ServiceOption{core.WithMaxFileSize(cfg.Input.MaxFileSize)}

	if cfg.Database.Enabled() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		loader, err := storage.NewPostgresLoader(pool, cfg.Database.Table, cfg.Database.LoadTimeout)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithLoader(loader))
	}

	service, err := core.NewService(sink, opts...)
	if err != nil {
		return err
	}

	summary, err := service.Run(ctx, core.Sources{
		Leads:        crm,
		Activity:     web,
		Transactions: tx,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Customer 360 written to %s (%d customers, %s)\n",
		sink.Dir(), summary.Customers, summary.OutputFormat)
	return nil
}

// connect opens and verifies the loader's connection pool.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database", "table", cfg.Table)
	return pool, nil
}
