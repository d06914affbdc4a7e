package kalshi

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// mapIncentivePrograms convierte los DTOs a domain.IncentiveProgram.
// Un end_date ilegible queda en cero y el catálogo lo descarta.
func mapIncentivePrograms(raw []incentiveProgram) []domain.IncentiveProgram {
	programs := make([]domain.IncentiveProgram, 0, len(raw))
	for _, r := range raw {
		programs = append(programs, mapIncentiveProgram(r))
	}
	return programs
}

func mapIncentiveProgram(r incentiveProgram) domain.IncentiveProgram {
	p := domain.IncentiveProgram{
		ID:            r.ID,
		MarketTicker:  r.MarketTicker,
		IncentiveType: r.IncentiveType,
		StartDate:     parseTime(r.StartDate),
		EndDate:       parseTime(r.EndDate),
		TargetSize:    numberPtr(r.TargetSize),
		PaidOut:       r.PaidOut,
	}
	if v, ok := numberInt(r.DiscountFactorBps); ok {
		p.DiscountFactorBps = int(v)
	}
	if v, ok := numberInt(r.PeriodReward); ok {
		p.PeriodReward = v
	}
	return p
}

// mapMarketQuote une el mercado con su orderbook.
func mapMarketQuote(m market, book orderBook) domain.MarketQuote {
	return domain.MarketQuote{
		Ticker:       m.Ticker,
		Title:        m.Title,
		RulesPrimary: m.RulesPrimary,
		YesAsk:       numberPtr(m.YesAskDollars),
		NoAsk:        numberPtr(m.NoAskDollars),
		Volume:       numberPtr(m.Volume),
		Book:         mapOrderBook(m.Ticker, book),
	}
}

// mapOrderBook convierte las escaleras raw y las deja ordenadas de menor a
// mayor precio, descartando niveles sin precio o sin cantidad.
func mapOrderBook(ticker string, raw orderBook) domain.OrderBook {
	return domain.OrderBook{
		Ticker: ticker,
		Yes:    mapLevels(raw.YesDollars),
		No:     mapLevels(raw.NoDollars),
	}
}

func mapLevels(raw [][]number) []domain.BookEntry {
	levels := make([]domain.BookEntry, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 || !l[0].Valid || !l[1].Valid {
			slog.Debug("skip malformed book level", "level", l)
			continue
		}
		price, size := l[0].Value, l[1].Value
		if price <= 0 || size <= 0 {
			continue
		}
		levels = append(levels, domain.BookEntry{Price: price, Size: size})
	}
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price < levels[j].Price
	})
	return levels
}

func mapRestingOrder(o order) domain.RestingOrder {
	return domain.RestingOrder{
		OrderID:  o.OrderID,
		Ticker:   o.Ticker,
		Side:     domain.Side(o.Side),
		Status:   o.Status,
		YesPrice: o.YesPriceDollars,
		NoPrice:  o.NoPriceDollars,
	}
}

func mapOrderRequest(req domain.OrderRequest) createOrderRequest {
	body := createOrderRequest{
		Ticker:        req.Ticker,
		ClientOrderID: req.ClientOrderID,
		Side:          string(req.Side),
		Action:        req.Action,
		Count:         req.Count,
		Type:          req.Type,
		ExpirationTS:  req.ExpirationTS,
		TimeInForce:   req.TimeInForce,
		ReduceOnly:    req.ReduceOnly,
	}
	if req.Side == domain.SideNo {
		body.NoPriceDollars = req.PriceDollars
	} else {
		body.YesPriceDollars = req.PriceDollars
	}
	return body
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// numberPtr devuelve nil si el campo falta o no es numérico.
func numberPtr(n number) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func numberInt(n number) (int64, bool) {
	if !n.Valid {
		return 0, false
	}
	return int64(n.Value), true
}
