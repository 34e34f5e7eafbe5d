package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polycopy/config"
	"github.com/alejandrodnm/polycopy/internal/adapters/notify"
	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
	"github.com/alejandrodnm/polycopy/internal/adapters/storage"
	"github.com/alejandrodnm/polycopy/internal/application/dispatch"
	"github.com/alejandrodnm/polycopy/internal/application/executor"
	"github.com/alejandrodnm/polycopy/internal/application/monitor"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one poll cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print leader portfolios (default: compact 1-line cycles)")
	exportAddr := flag.String("export", "", "dump a wallet's trade history as CSV and exit")
	exportOut := flag.String("out", "", "output file for -export (default: stdout)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	client := polymarket.NewClient(cfg.API.DataBase, cfg.API.CLOBBase, cfg.API.GammaBase, cfg.Executor.RetryLimit)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *exportAddr != "" {
		runExport(ctx, client, *exportAddr, *exportOut)
		return
	}

	slog.Info("copytrader starting",
		"config", *configPath,
		"leaders", len(cfg.Monitor.UserAddresses),
		"interval", cfg.FetchInterval(),
		"aggregation", cfg.Executor.AggregationEnabled,
		"paper", cfg.Executor.PaperTradingEnabled,
		"once", *once,
	)

	var submitter ports.OrderSubmitter
	if !cfg.Executor.PaperTradingEnabled {
		fmt.Printf("\n⚠️  LIVE TRADING MODE — REAL MONEY WILL BE SPENT\n")
		fmt.Printf("   Copying %d leaders with wallet %s\n", len(cfg.Monitor.UserAddresses), cfg.Wallet.ProxyWallet)
		fmt.Printf("   Press Ctrl+C within 5 seconds to abort...\n\n")

		abortTimer := time.NewTimer(5 * time.Second)
		select {
		case <-abortTimer.C:
		case <-ctx.Done():
			slog.Info("live trading aborted by user")
			return
		}

		trader, err := newLiveTrader(ctx, client, cfg)
		if err != nil {
			slog.Error("live setup failed", "err", err)
			os.Exit(1)
		}
		submitter = trader
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	console := notify.NewConsole(*table)

	dist := dispatch.NewDistributor(0, slog.Default())
	pool := executor.NewPool(executor.Config{
		Workers:            cfg.Executor.Workers,
		ProxyWallet:        cfg.Wallet.ProxyWallet,
		AggregationEnabled: cfg.Executor.AggregationEnabled,
		AggregationWindow:  cfg.AggregationWindow(),
		PaperEnabled:       cfg.Executor.PaperTradingEnabled,
		PaperBalance:       cfg.Executor.PaperTradingBalanceUSD,
	}, dist, client, submitter, client, store, slog.Default())

	mon := monitor.New(monitor.Config{
		Addresses:     cfg.Monitor.UserAddresses,
		FetchInterval: cfg.FetchInterval(),
		TooOld:        cfg.TooOld(),
		DedupTTL:      cfg.DedupTTL(),
		DedupMax:      cfg.Monitor.DedupMaxEntries,
		PositionTTL:   cfg.PositionTTL(),
		Once:          *once,
	}, client, client, dist, console)

	pool.Start(ctx)
	if err := mon.Run(ctx); err != nil {
		slog.Error("monitor exited with error", "err", err)
	}
	pool.Shutdown()

	printReport(store, console, pool)
	slog.Info("copytrader stopped cleanly")
}

// newLiveTrader prepara el camino de órdenes reales: RPC para el saldo,
// credenciales L2 derivadas de la clave y el submitter autenticado.
func newLiveTrader(ctx context.Context, client *polymarket.Client, cfg *config.Config) (*polymarket.Trader, error) {
	if err := client.ConnectChain(cfg.Wallet.RPCURL); err != nil {
		return nil, err
	}

	auth, err := polymarket.NewAuthClient(client, cfg.Wallet.PrivateKey)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureCreds(ctx); err != nil {
		return nil, fmt.Errorf("derive API credentials (check PRIVATE_KEY): %w", err)
	}
	slog.Info("authenticated with Polymarket CLOB", "address", auth.Address())

	balance, err := client.FetchBalance(ctx, cfg.Wallet.ProxyWallet)
	if err != nil {
		return nil, fmt.Errorf("read USDC balance: %w", err)
	}
	slog.Info("live: USDC balance", "usdc", fmt.Sprintf("$%.2f", balance))

	return polymarket.NewTrader(auth, slog.Default()), nil
}

// printReport vuelca el histórico de ejecuciones y, en paper trading, el
// estado final del simulador de cada worker. Usa un contexto propio: el de
// la señal ya está cancelado cuando llegamos aquí.
func printReport(store *storage.SQLiteStorage, console *notify.Console, pool *executor.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := store.Stats(ctx)
	if err != nil {
		slog.Warn("execution stats unavailable", "err", err)
		return
	}
	recs, err := store.RecentExecutions(ctx, 20)
	if err != nil {
		slog.Warn("execution history unavailable", "err", err)
		return
	}
	console.PrintExecutions(stats, recs)

	for _, w := range pool.Workers() {
		if p := w.Paper(); p != nil {
			console.PrintPaperSummary(p.Balance(), p.PortfolioValue(), p.Positions())
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
