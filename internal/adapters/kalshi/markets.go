package kalshi

// markets.go: cotizaciones y orderbooks.
//
// FetchMarketQuotes lanza una goroutine por ticker; el rate limiter de lectura
// en do() marca el ritmo, así que no hace falta un semáforo explícito.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

func marketPath(ticker string) string {
	return "/markets/" + url.PathEscape(ticker)
}

// FetchMarketQuote devuelve la cotización del mercado con su orderbook.
func (c *Client) FetchMarketQuote(ctx context.Context, ticker string) (domain.MarketQuote, error) {
	var m marketResponse
	if err := c.get(ctx, marketPath(ticker), nil, false, &m); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("kalshi.FetchMarketQuote %s: %w", ticker, err)
	}
	var ob orderBookResponse
	if err := c.get(ctx, marketPath(ticker)+"/orderbook", nil, false, &ob); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("kalshi.FetchMarketQuote %s: orderbook: %w", ticker, err)
	}
	if m.Market.Ticker == "" {
		m.Market.Ticker = ticker
	}
	return mapMarketQuote(m.Market, ob.OrderBook), nil
}

// FetchOrderBook devuelve solo el orderbook del mercado.
func (c *Client) FetchOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error) {
	var ob orderBookResponse
	if err := c.get(ctx, marketPath(ticker)+"/orderbook", nil, false, &ob); err != nil {
		return domain.OrderBook{}, fmt.Errorf("kalshi.FetchOrderBook %s: %w", ticker, err)
	}
	return mapOrderBook(ticker, ob.OrderBook), nil
}

// FetchMarketQuotes obtiene las cotizaciones de varios tickers en paralelo.
// Los tickers que fallan se loguean y se omiten; solo devuelve error si el
// contexto se cancela.
func (c *Client) FetchMarketQuotes(ctx context.Context, tickers []string) (map[string]domain.MarketQuote, error) {
	if len(tickers) == 0 {
		return map[string]domain.MarketQuote{}, nil
	}

	type quoteResult struct {
		ticker string
		quote  domain.MarketQuote
		err    error
	}

	resultCh := make(chan quoteResult, len(tickers))
	var wg sync.WaitGroup

	for _, t := range tickers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := c.FetchMarketQuote(ctx, t)
			resultCh <- quoteResult{ticker: t, quote: q, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	quotes := make(map[string]domain.MarketQuote, len(tickers))
	failed := 0
	for r := range resultCh {
		if r.err != nil {
			failed++
			slog.Warn("market quote failed", "ticker", r.ticker, "err", r.err)
			continue
		}
		quotes[r.ticker] = r.quote
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("kalshi.FetchMarketQuotes: %w", err)
	}

	slog.Debug("market quotes fetched", "tickers", len(tickers), "quotes", len(quotes), "failed", failed)
	return quotes, nil
}
