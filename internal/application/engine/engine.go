package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/application/incentive"
	"github.com/alejandrodnm/kalshibot/internal/application/trade"
	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

const (
	SessionNew     = "new"
	SessionUpdate  = "update"
	SessionSkipped = "skipped"

	bookLogLevels = 5
)

// Config contiene la configuración del engine.
type Config struct {
	Interval        time.Duration
	StopTradeWindow time.Duration
	Selector        trade.SelectorConfig
	Builder         trade.BuilderConfig
	Once            bool // un solo ciclo y salir
	DryRun          bool // construye órdenes pero no envía ni cancela nada
}

// Deps agrupa los colaboradores externos. Journal, Notifier y Metrics son opcionales.
type Deps struct {
	Incentives ports.IncentiveProvider
	Markets    ports.MarketProvider
	Executor   ports.OrderExecutor
	Journal    ports.Journal
	Notifier   ports.Notifier
	Metrics    ports.Metrics
}

// Engine orquesta un ciclo completo: liquidar, filtrar incentivos, elegir
// precios y enviar órdenes.
type Engine struct {
	cfg        Config
	incentives ports.IncentiveProvider
	markets    ports.MarketProvider
	executor   ports.OrderExecutor
	journal    ports.Journal
	notifier   ports.Notifier
	metrics    ports.Metrics

	catalog  *incentive.Catalog
	selector *trade.Selector
	builder  *trade.Builder
	state    *trade.State

	now func() time.Time
}

// New valida la configuración y construye el engine con su estado vacío.
// Devuelve un *domain.ConfigurationError si algún parámetro no es usable.
func New(cfg Config, deps Deps) (*Engine, error) {
	if cfg.Interval <= 0 && !cfg.Once {
		return nil, &domain.ConfigurationError{Field: "interval", Reason: "must be positive"}
	}
	if deps.Incentives == nil || deps.Markets == nil || deps.Executor == nil {
		return nil, &domain.ConfigurationError{Field: "deps", Reason: "exchange collaborators are required"}
	}
	selector, err := trade.NewSelector(cfg.Selector)
	if err != nil {
		return nil, err
	}
	builder, err := trade.NewBuilder(cfg.Builder)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		incentives: deps.Incentives,
		markets:    deps.Markets,
		executor:   deps.Executor,
		journal:    deps.Journal,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		catalog:    incentive.NewCatalog(cfg.StopTradeWindow),
		selector:   selector,
		builder:    builder,
		state:      trade.NewState(cfg.Selector.MaxPositions),
		now:        time.Now,
	}, nil
}

// State expone el conjunto cotizado para lectura.
func (e *Engine) State() *trade.State { return e.state }

// Run ejecuta ciclos a intervalo fijo hasta que el contexto se cancele.
// Los fallos de un ciclo se loguean y el siguiente ciclo vuelve a intentarlo.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"interval", e.cfg.Interval,
		"dry_run", e.cfg.DryRun,
		"once", e.cfg.Once,
		"max_positions", e.cfg.Selector.MaxPositions,
	)

	if _, err := e.RunOnce(ctx); err != nil {
		slog.Error("cycle failed", "err", err)
		if e.cfg.Once {
			return err
		}
	}
	if e.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped")
			return nil
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		}
	}
}

// cycleRun acumula lo que produce un ciclo antes de publicarlo.
type cycleRun struct {
	summary domain.CycleSummary
	orders  []submission
}

type submission struct {
	req domain.OrderRequest
	res domain.OrderResult
	err error
}

// RunOnce ejecuta exactamente un ciclo y devuelve su resumen.
func (e *Engine) RunOnce(ctx context.Context) (domain.CycleSummary, error) {
	start := time.Now()
	now := e.now()
	run := &cycleRun{summary: domain.CycleSummary{StartedAt: now}}

	err := e.cycle(ctx, run, now)
	run.summary.Duration = time.Since(start)
	if err != nil {
		return run.summary, err
	}

	e.publish(ctx, run)
	return run.summary, nil
}

func (e *Engine) cycle(ctx context.Context, run *cycleRun, now time.Time) error {
	liq, err := e.liquidate(ctx)
	if err != nil {
		return fmt.Errorf("engine.cycle: liquidate: %w", err)
	}
	run.summary.Cancelled = liq.cancelled
	run.summary.Closed = liq.closed
	if liq.remaining > 0 {
		run.summary.Session = SessionSkipped
		slog.Warn("skip trading: open positions remain", "positions", liq.remaining)
		return nil
	}

	programs, err := e.incentives.FetchIncentivePrograms(ctx)
	if err != nil {
		return fmt.Errorf("engine.cycle: fetch incentive programs: %w", err)
	}
	run.summary.Programs = len(programs)

	openTickers := e.catalog.OpenTickers(programs, now)
	if removed := e.state.Expire(openTickers); len(removed) > 0 {
		slog.Info("expired tickers", "tickers", removed)
	}

	session, tickers := SessionNew, openTickers
	if e.state.HasOpenPosition() {
		session, tickers = SessionUpdate, e.state.Tickers()
	}

	intents, books, err := e.quote(ctx, run, programs, tickers, session, now)
	if err != nil {
		return err
	}
	if len(intents) == 0 && session == SessionUpdate {
		// los tickers en cartera dejaron de cotizar: se carga el catálogo
		// completo en este mismo ciclo
		slog.Info("no existing incentive quotable, starting new session", "held", tickers)
		session = SessionNew
		if intents, books, err = e.quote(ctx, run, programs, openTickers, session, now); err != nil {
			return err
		}
	}
	run.summary.Session = session
	run.summary.Intents = intents
	if len(intents) == 0 {
		slog.Info("no trade intents this cycle", "session", session, "candidates", run.summary.Candidates)
		return nil
	}
	for _, in := range intents {
		logBook(books[in.Ticker])
	}

	balance, err := e.executor.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("engine.cycle: get balance: %w", err)
	}
	run.summary.Balance = balance

	orders, err := e.builder.Build(intents, balance, now)
	var balErr *domain.InsufficientBalanceError
	if errors.As(err, &balErr) {
		slog.Warn("skip order building", "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("engine.cycle: build orders: %w", err)
	}
	run.summary.OrdersBuilt = len(orders)

	for _, req := range orders {
		e.submit(ctx, run, req)
	}
	return nil
}

// quote refresca las cotizaciones de tickers, filtra los programas y elige
// los intents. Reemplaza el conjunto de state.
func (e *Engine) quote(ctx context.Context, run *cycleRun, programs []domain.IncentiveProgram, tickers []string, session string, now time.Time) ([]domain.TradeIntent, map[string]domain.OrderBook, error) {
	quotes, err := e.markets.FetchMarketQuotes(ctx, tickers)
	if err != nil {
		return nil, nil, fmt.Errorf("engine.cycle: fetch quotes: %w", err)
	}

	candidates, invalid := e.catalog.Filter(programsFor(programs, tickers), quotes, now)
	for _, verr := range invalid {
		slog.Warn("skip incentive record", "err", verr)
		e.recordSkip("catalog", skipField(verr))
	}
	run.summary.Candidates = len(candidates)
	if session == SessionNew {
		for _, c := range candidates {
			slog.Debug("new incentive",
				"ticker", c.Ticker,
				"title", domain.TruncateTitle(c.Title, c.Ticker, 60),
				"target_size", c.TargetSize,
				"reward", fmt.Sprintf("$%.2f", c.Program.RewardDollars()),
				"ends_in", c.TimeToEnd(now).Round(time.Minute),
			)
		}
	}

	books := make(map[string]domain.OrderBook, len(candidates))
	for _, c := range candidates {
		books[c.Ticker] = quotes[c.Ticker].Book
	}

	intents, stats := e.selector.Select(e.state, candidates, books)
	for reason, n := range stats {
		for i := 0; i < n; i++ {
			e.recordSkip("selector", string(reason))
		}
	}
	return intents, books, nil
}

func (e *Engine) submit(ctx context.Context, run *cycleRun, req domain.OrderRequest) {
	slog.Info("open order",
		"ticker", req.Ticker,
		"title", domain.TruncateTitle(req.Title, req.Ticker, 50),
		"side", req.Side,
		"action", req.Action,
		"count", req.Count,
		"price", req.PriceDollars,
		"price_basis", fmt.Sprintf("%.4f", req.PriceBasis),
		"target_size", req.TargetSize,
		"dry_run", e.cfg.DryRun,
	)
	if e.cfg.DryRun {
		return
	}

	res, err := e.executor.SubmitOrder(ctx, req)
	run.orders = append(run.orders, submission{req: req, res: res, err: err})
	if err != nil {
		run.summary.OrdersFailed++
		slog.Error("order failed", "ticker", req.Ticker, "err", err)
		return
	}
	run.summary.OrdersSubmitted++
	slog.Info("order response",
		"ticker", req.Ticker,
		"order_id", res.OrderID,
		"status", res.Status,
		"filled", res.FilledCount,
		"remaining", res.RemainingCount,
	)
}

// publish envía el resumen al journal, las métricas y el notifier.
// Sus fallos se loguean pero no invalidan el ciclo.
func (e *Engine) publish(ctx context.Context, run *cycleRun) {
	s := run.summary

	if e.journal != nil {
		cycleID, err := e.journal.SaveCycle(ctx, s)
		if err != nil {
			slog.Warn("journal error", "err", err)
		} else {
			for _, o := range run.orders {
				if err := e.journal.SaveOrder(ctx, cycleID, o.req, o.res, o.err); err != nil {
					slog.Warn("journal error", "ticker", o.req.Ticker, "err", err)
				}
			}
		}
	}

	if e.metrics != nil {
		e.metrics.RecordCycle(s)
		e.metrics.RecordOpenSet(e.state.Len())
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, s); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("cycle complete",
		"session", s.Session,
		"programs", s.Programs,
		"candidates", s.Candidates,
		"intents", len(s.Intents),
		"submitted", s.OrdersSubmitted,
		"failed", s.OrdersFailed,
		"cancelled", s.Cancelled,
		"closed", s.Closed,
		"open_set", e.state.Len(),
		"duration", s.Duration.Round(time.Millisecond),
	)
}

func (e *Engine) recordSkip(stage, reason string) {
	if e.metrics != nil {
		e.metrics.RecordSkip(stage, reason)
	}
}

// programsFor filtra los programas a los tickers dados.
func programsFor(programs []domain.IncentiveProgram, tickers []string) []domain.IncentiveProgram {
	keep := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		keep[t] = true
	}
	out := make([]domain.IncentiveProgram, 0, len(tickers))
	for _, p := range programs {
		if keep[p.MarketTicker] {
			out = append(out, p)
		}
	}
	return out
}

func skipField(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return "unknown"
}

// logBook registra los mejores niveles de cada lado del book.
func logBook(book domain.OrderBook) {
	slog.Debug("order book",
		"ticker", book.Ticker,
		"yes", formatLevels(book.TopLevels(domain.SideYes, bookLogLevels)),
		"no", formatLevels(book.TopLevels(domain.SideNo, bookLogLevels)),
	)
}

func formatLevels(levels []domain.BookEntry) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = fmt.Sprintf("%.4f x %.0f", l.Price, l.Size)
	}
	return out
}
