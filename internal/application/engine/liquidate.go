package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

type liquidation struct {
	cancelled int
	closed    int
	remaining int // posiciones abiertas tras intentar cerrarlas
}

// liquidate cancela las órdenes en reposo y cierra las posiciones abiertas con
// una venta IOC al mejor bid. Un fallo al cancelar o cerrar una orden concreta
// se loguea y no aborta el resto; sí aborta si no se pueden listar.
func (e *Engine) liquidate(ctx context.Context) (liquidation, error) {
	var out liquidation

	resting, err := e.executor.GetRestingOrders(ctx)
	if err != nil {
		return out, fmt.Errorf("engine.liquidate: resting orders: %w", err)
	}
	for _, o := range resting {
		if !o.IsActive() {
			continue
		}
		slog.Info("cancel order",
			"order_id", o.OrderID,
			"ticker", o.Ticker,
			"side", o.Side,
			"price", o.Price(),
			"dry_run", e.cfg.DryRun,
		)
		if e.cfg.DryRun {
			continue
		}
		if err := e.executor.CancelOrder(ctx, o.OrderID); err != nil {
			slog.Error("cancel order failed", "order_id", o.OrderID, "err", err)
			continue
		}
		out.cancelled++
	}

	positions, err := e.openPositions(ctx)
	if err != nil {
		return out, err
	}
	if len(positions) == 0 {
		return out, nil
	}

	for _, p := range positions {
		if e.closePosition(ctx, p) {
			out.closed++
		}
	}

	if out.closed == 0 {
		out.remaining = len(positions)
		return out, nil
	}
	left, err := e.openPositions(ctx)
	if err != nil {
		return out, err
	}
	out.remaining = len(left)
	return out, nil
}

func (e *Engine) openPositions(ctx context.Context) ([]domain.Position, error) {
	all, err := e.executor.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.liquidate: positions: %w", err)
	}
	open := make([]domain.Position, 0, len(all))
	for _, p := range all {
		if p.Position != 0 {
			open = append(open, p)
		}
	}
	return open, nil
}

// closePosition devuelve true si se envió la orden de cierre.
func (e *Engine) closePosition(ctx context.Context, p domain.Position) bool {
	book, err := e.markets.FetchOrderBook(ctx, p.Ticker)
	if err != nil {
		slog.Error("close position: fetch book failed", "ticker", p.Ticker, "err", err)
		return false
	}
	bid := book.BestBid(p.Side())
	if bid <= 0 {
		slog.Warn("close position: no bid", "ticker", p.Ticker, "side", p.Side())
		return false
	}

	req := e.builder.Close(p, bid)
	slog.Info("close position",
		"ticker", p.Ticker,
		"side", req.Side,
		"count", req.Count,
		"price", req.PriceDollars,
		"dry_run", e.cfg.DryRun,
	)
	if e.cfg.DryRun {
		return false
	}

	res, err := e.executor.SubmitOrder(ctx, req)
	if err != nil {
		slog.Error("close position failed", "ticker", p.Ticker, "err", err)
		return false
	}
	slog.Info("close position response",
		"ticker", p.Ticker,
		"order_id", res.OrderID,
		"status", res.Status,
		"filled", res.FilledCount,
	)
	return true
}
