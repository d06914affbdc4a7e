package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// IncentiveProvider obtiene el catálogo de programas de incentivos.
type IncentiveProvider interface {
	// FetchIncentivePrograms devuelve todos los programas publicados.
	// Pagina automáticamente hasta obtener todos los resultados.
	FetchIncentivePrograms(ctx context.Context) ([]domain.IncentiveProgram, error)
}

// MarketProvider obtiene cotizaciones y books de mercados.
type MarketProvider interface {
	// FetchMarketQuote devuelve la cotización del mercado con su orderbook.
	FetchMarketQuote(ctx context.Context, ticker string) (domain.MarketQuote, error)

	// FetchMarketQuotes devuelve las cotizaciones de varios tickers.
	// Los tickers que fallan se omiten del resultado y se loguean.
	FetchMarketQuotes(ctx context.Context, tickers []string) (map[string]domain.MarketQuote, error)

	// FetchOrderBook devuelve solo el orderbook del mercado.
	FetchOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error)
}
