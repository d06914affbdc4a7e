package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/adapters/kalshi"
	"github.com/alejandrodnm/kalshibot/internal/adapters/metrics"
	"github.com/alejandrodnm/kalshibot/internal/adapters/notify"
	"github.com/alejandrodnm/kalshibot/internal/adapters/storage"
	"github.com/alejandrodnm/kalshibot/internal/application/engine"
	"github.com/alejandrodnm/kalshibot/internal/application/trade"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run devuelve el código de salida; los defers se ejecutan antes de salir.
func run(args []string) int {
	fs := flag.NewFlagSet("kalshibot", flag.ContinueOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	once := fs.Bool("once", false, "run one cycle and exit")
	dryRun := fs.Bool("dry-run", false, "build orders but do not cancel, close or submit anything")
	verbose := fs.Bool("verbose", false, "set log level to debug")
	logFormat := fs.String("format", "", "log format: text|json (overrides config)")
	table := fs.Bool("table", false, "print the full intent table (default: compact 1-line)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return 1
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	baseURL := cfg.Kalshi.BaseURL
	if baseURL == "" {
		if baseURL, err = kalshi.BaseURL(cfg.Kalshi.Env); err != nil {
			slog.Error("invalid environment", "err", err, "env", cfg.Kalshi.Env)
			return 1
		}
	}

	slog.Info("kalshibot starting",
		"config", *configPath,
		"env", cfg.Kalshi.Env,
		"base_url", baseURL,
		"interval", cfg.Interval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	signer, err := kalshi.LoadSigner(cfg.Kalshi.KeyID, cfg.Kalshi.KeyFile)
	if err != nil {
		slog.Error("failed to load API key", "err", err, "key_file", cfg.Kalshi.KeyFile)
		return 1
	}
	if err := checkSigner(signer); err != nil {
		slog.Error("API key self-check failed", "err", err)
		return 1
	}

	client, err := kalshi.NewClient(baseURL, signer)
	if err != nil {
		slog.Error("failed to create client", "err", err)
		return 1
	}

	deps := engine.Deps{
		Incentives: client,
		Markets:    client,
		Executor:   client,
		Notifier:   notify.NewConsole(*table),
	}

	if cfg.Storage.DSN != "" && !*dryRun {
		journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN, cfg.Retention())
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			return 1
		}
		defer journal.Close()
		deps.Journal = journal
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		recorder := metrics.New()
		deps.Metrics = recorder
		srv := serveMetrics(cfg.Metrics.Addr, recorder)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	eng, err := engine.New(engine.Config{
		Interval:        cfg.Interval(),
		StopTradeWindow: cfg.StopTradeWindow(),
		Selector: trade.SelectorConfig{
			PriceMin:       cfg.Strategy.PriceMin,
			PriceMax:       cfg.Strategy.PriceMax,
			MinMarketDelta: cfg.MinMarketDelta(),
			MaxPositions:   cfg.Strategy.MaxPositions,
		},
		Builder: trade.BuilderConfig{
			TradeSize:  cfg.Strategy.TradeSize,
			Expiration: cfg.Expiration(),
		},
		Once:   *once,
		DryRun: *dryRun,
	}, deps)
	if err != nil {
		slog.Error("invalid engine configuration", "err", err)
		return 1
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		return 1
	}

	slog.Info("kalshibot stopped cleanly")
	return 0
}

// checkSigner firma y verifica un mensaje de prueba antes del primer request.
func checkSigner(s *kalshi.Signer) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	const method, path = "GET", "/trade-api/v2/portfolio/balance"
	sig, err := s.Sign(ts, method, path)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if err := s.Verify(ts, method, path, sig); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	return nil
}

func serveMetrics(addr string, recorder *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()
	return srv
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
