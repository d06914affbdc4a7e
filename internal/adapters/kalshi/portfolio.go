package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const (
	balancePath   = "/portfolio/balance"
	ordersPath    = "/portfolio/orders"
	positionsPath = "/portfolio/positions"
)

// GetBalance devuelve el saldo disponible en dólares.
// La API lo reporta en centavos.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.get(ctx, balancePath, nil, true, &resp); err != nil {
		return 0, fmt.Errorf("kalshi.GetBalance: %w", err)
	}
	return float64(resp.Balance) / 100, nil
}

// SubmitOrder envía una orden al exchange.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	var resp createOrderResponse
	if err := c.post(ctx, ordersPath, mapOrderRequest(req), &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("kalshi.SubmitOrder %s: %w", req.Ticker, err)
	}
	return domain.OrderResult{
		OrderID:        resp.Order.OrderID,
		Status:         resp.Order.Status,
		FilledCount:    resp.Order.FillCount,
		RemainingCount: resp.Order.RemainingCount,
	}, nil
}

// CancelOrder cancela una orden en reposo.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.delete(ctx, ordersPath+"/"+url.PathEscape(orderID), nil); err != nil {
		return fmt.Errorf("kalshi.CancelOrder %s: %w", orderID, err)
	}
	return nil
}

// GetRestingOrders devuelve las órdenes en reposo, paginando por cursor.
func (c *Client) GetRestingOrders(ctx context.Context) ([]domain.RestingOrder, error) {
	var out []domain.RestingOrder
	cursor := ""
	for {
		q := url.Values{}
		q.Set("status", "resting")
		q.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp ordersResponse
		if err := c.get(ctx, ordersPath, q, true, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.GetRestingOrders: %w", err)
		}
		for _, o := range resp.Orders {
			out = append(out, mapRestingOrder(o))
		}
		if resp.Cursor == "" || resp.Cursor == cursor {
			return out, nil
		}
		cursor = resp.Cursor
	}
}

// GetPositions devuelve las posiciones por mercado, paginando por cursor.
func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	var out []domain.Position
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp positionsResponse
		if err := c.get(ctx, positionsPath, q, true, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.GetPositions: %w", err)
		}
		for _, p := range resp.MarketPositions {
			out = append(out, domain.Position{Ticker: p.Ticker, Position: p.Position})
		}
		if resp.Cursor == "" || resp.Cursor == cursor {
			return out, nil
		}
		cursor = resp.Cursor
	}
}
