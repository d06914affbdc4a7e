package trade

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func book(ticker string, yes, no []domain.BookEntry) domain.OrderBook {
	return domain.OrderBook{Ticker: ticker, Yes: yes, No: no}
}

func lv(price, size float64) domain.BookEntry {
	return domain.BookEntry{Price: price, Size: size}
}

func candidate(ticker string, target float64) domain.Candidate {
	return domain.Candidate{Ticker: ticker, Title: "Market " + ticker, TargetSize: target}
}

func defaultSelector(t *testing.T, maxPositions int) *Selector {
	t.Helper()
	s, err := NewSelector(SelectorConfig{
		PriceMin:       0.05,
		PriceMax:       0.50,
		MinMarketDelta: 0.02,
		MaxPositions:   maxPositions,
	})
	require.NoError(t, err)
	return s
}

// --- Selector ---

func TestSelector_WorkedExample(t *testing.T) {
	s := defaultSelector(t, 2)
	state := NewState(2)

	books := map[string]domain.OrderBook{
		"A": book("A",
			[]domain.BookEntry{lv(0.40, 5), lv(0.45, 20)},
			[]domain.BookEntry{lv(0.55, 3), lv(0.60, 50)},
		),
	}
	intents, stats := s.Select(state, []domain.Candidate{candidate("A", 10)}, books)

	require.Len(t, intents, 1)
	in := intents[0]
	assert.Equal(t, "A", in.Ticker)
	assert.Equal(t, domain.SideYes, in.Side)
	assert.InDelta(t, 0.40, in.Price, 1e-9)
	assert.InDelta(t, 0.45, in.PriceBasis, 1e-9)
	assert.InDelta(t, 5.0, in.YesQty, 1e-9)
	assert.InDelta(t, 0.55, in.NoPrice, 1e-9)
	assert.InDelta(t, 3.0, in.NoQty, 1e-9)
	assert.InDelta(t, 0.05, in.Delta(), 1e-9)
	assert.InDelta(t, 0.60, in.MarketNoPrice, 1e-9)
	assert.Empty(t, stats)
	assert.Equal(t, []string{"A"}, state.Tickers())
}

func TestSelector_PicksNoWhenCheaper(t *testing.T) {
	s := defaultSelector(t, 2)
	books := map[string]domain.OrderBook{
		"B": book("B",
			[]domain.BookEntry{lv(0.45, 1), lv(0.48, 50)},
			[]domain.BookEntry{lv(0.20, 2), lv(0.30, 40)},
		),
	}
	intents, _ := s.Select(NewState(2), []domain.Candidate{candidate("B", 10)}, books)
	require.Len(t, intents, 1)
	assert.Equal(t, domain.SideNo, intents[0].Side)
	assert.InDelta(t, 0.20, intents[0].Price, 1e-9)
	assert.InDelta(t, 0.30, intents[0].PriceBasis, 1e-9)
}

func TestSelector_SkipReasons(t *testing.T) {
	s := defaultSelector(t, 5)
	cands := []domain.Candidate{
		candidate("EMPTY", 10),
		candidate("DEEP", 10),
		candidate("SIDE", 10),
		candidate("RANGE", 10),
		candidate("DELTA", 10),
	}
	books := map[string]domain.OrderBook{
		"EMPTY": book("EMPTY", []domain.BookEntry{lv(0.30, 1)}, nil),
		// ambos lados absorben el tamaño en el primer nivel
		"DEEP": book("DEEP",
			[]domain.BookEntry{lv(0.30, 100), lv(0.35, 1)},
			[]domain.BookEntry{lv(0.40, 100), lv(0.45, 1)},
		),
		// el lado más barato es demasiado profundo, el otro no
		"SIDE": book("SIDE",
			[]domain.BookEntry{lv(0.10, 100), lv(0.15, 1)},
			[]domain.BookEntry{lv(0.40, 1), lv(0.45, 1)},
		),
		"RANGE": book("RANGE",
			[]domain.BookEntry{lv(0.01, 1), lv(0.03, 50)},
			[]domain.BookEntry{lv(0.90, 1), lv(0.95, 50)},
		),
		"DELTA": book("DELTA",
			[]domain.BookEntry{lv(0.30, 1), lv(0.31, 50)},
			[]domain.BookEntry{lv(0.60, 1), lv(0.61, 50)},
		),
	}

	intents, stats := s.Select(NewState(5), cands, books)
	assert.Empty(t, intents)
	assert.Equal(t, SelectStats{
		SkipNoDepth:     1,
		SkipTooDeep:     1,
		SkipSideTooDeep: 1,
		SkipPriceRange:  1,
		SkipMarketDelta: 1,
	}, stats)
}

func TestSelector_MissingBookIsNoDepth(t *testing.T) {
	s := defaultSelector(t, 2)
	intents, stats := s.Select(NewState(2), []domain.Candidate{candidate("X", 10)}, nil)
	assert.Empty(t, intents)
	assert.Equal(t, 1, stats[SkipNoDepth])
}

func TestSelector_RanksByPriceStableAndTruncates(t *testing.T) {
	s := defaultSelector(t, 3)
	state := NewState(3)

	prices := []struct {
		ticker string
		price  float64
	}{
		{"P30", 0.30}, {"P10", 0.10}, {"P20a", 0.20}, {"P20b", 0.20}, {"P40", 0.40},
	}
	cands := make([]domain.Candidate, 0, len(prices))
	books := make(map[string]domain.OrderBook, len(prices))
	for _, p := range prices {
		cands = append(cands, candidate(p.ticker, 10))
		books[p.ticker] = book(p.ticker,
			[]domain.BookEntry{lv(p.price, 1), lv(p.price+0.05, 50)},
			[]domain.BookEntry{lv(0.90, 1), lv(0.95, 50)},
		)
	}

	intents, stats := s.Select(state, cands, books)
	require.Len(t, intents, 3)
	assert.Equal(t, []string{"P10", "P20a", "P20b"}, state.Tickers())
	assert.Equal(t, 2, stats[SkipMaxPositions])
}

func TestSelector_OpenSetNeverExceedsMaxPositions(t *testing.T) {
	for _, max := range []int{1, 2, 7} {
		for _, n := range []int{0, 1, 5, 20} {
			s := defaultSelector(t, max)
			state := NewState(max)
			cands := make([]domain.Candidate, 0, n)
			books := make(map[string]domain.OrderBook, n)
			for i := 0; i < n; i++ {
				ticker := fmt.Sprintf("T%d", i)
				cands = append(cands, candidate(ticker, 10))
				books[ticker] = book(ticker,
					[]domain.BookEntry{lv(0.20, 1), lv(0.30, 50)},
					[]domain.BookEntry{lv(0.70, 1), lv(0.75, 50)},
				)
			}
			s.Select(state, cands, books)
			assert.LessOrEqual(t, state.Len(), max, "max=%d n=%d", max, n)
		}
	}
}

func TestSelector_SelectReplacesWholeSet(t *testing.T) {
	s := defaultSelector(t, 2)
	state := NewState(2)
	state.Replace([]domain.TradeIntent{{Ticker: "OLD"}})

	s.Select(state, nil, nil)
	assert.False(t, state.HasOpenPosition())
}

func TestSelectorConfig_Validate(t *testing.T) {
	valid := SelectorConfig{PriceMin: 0.01, PriceMax: 0.99, MinMarketDelta: 0.01, MaxPositions: 2}
	require.NoError(t, valid.Validate())

	cases := map[string]SelectorConfig{
		"price_range":      {PriceMin: 0, PriceMax: 0.99, MaxPositions: 2},
		"max_positions":    {PriceMin: 0.01, PriceMax: 0.99},
		"min_market_delta": {PriceMin: 0.01, PriceMax: 0.99, MinMarketDelta: -1, MaxPositions: 2},
	}
	for field, cfg := range cases {
		_, err := NewSelector(cfg)
		var cerr *domain.ConfigurationError
		require.True(t, errors.As(err, &cerr), field)
		assert.Equal(t, field, cerr.Field)
	}

	_, err := NewSelector(SelectorConfig{PriceMin: 0.6, PriceMax: 0.4, MaxPositions: 1})
	assert.Error(t, err)
}

// --- State ---

func TestState_ExpireEmptyClearsSet(t *testing.T) {
	state := NewState(3)
	state.Replace([]domain.TradeIntent{{Ticker: "A"}, {Ticker: "B"}})
	require.True(t, state.HasOpenPosition())

	removed := state.Expire(nil)
	assert.ElementsMatch(t, []string{"A", "B"}, removed)
	assert.False(t, state.HasOpenPosition())
	assert.Equal(t, 0, state.Len())
}

func TestState_ExpireKeepsOpenTickersInOrder(t *testing.T) {
	state := NewState(3)
	state.Replace([]domain.TradeIntent{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}})

	removed := state.Expire([]string{"C", "A", "Z"})
	assert.Equal(t, []string{"B"}, removed)
	assert.Equal(t, []string{"A", "C"}, state.Tickers())
}

func TestState_ReplaceTruncatesAndCopies(t *testing.T) {
	state := NewState(1)
	in := []domain.TradeIntent{{Ticker: "A"}, {Ticker: "B"}}
	state.Replace(in)
	in[0].Ticker = "MUTATED"

	assert.Equal(t, []string{"A"}, state.Tickers())

	out := state.Intents()
	out[0].Ticker = "MUTATED"
	assert.Equal(t, []string{"A"}, state.Tickers())
}

// --- Builder ---

func newTestBuilder(t *testing.T, size int) *Builder {
	t.Helper()
	b, err := NewBuilder(BuilderConfig{TradeSize: size, Expiration: 60 * time.Second})
	require.NoError(t, err)
	return b
}

func TestBuilder_ZeroBalance(t *testing.T) {
	b := newTestBuilder(t, 1)
	_, err := b.Build([]domain.TradeIntent{{Ticker: "A", Side: domain.SideYes, Price: 0.40}}, 0, testNow)

	var berr *domain.InsufficientBalanceError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, 0.0, berr.Balance)

	_, err = b.Build([]domain.TradeIntent{{Ticker: "A", Price: 0.40}}, -3, testNow)
	assert.True(t, errors.As(err, &berr))
}

func TestBuilder_BuildsLimitBuy(t *testing.T) {
	b := newTestBuilder(t, 2)
	intents := []domain.TradeIntent{{
		Ticker: "A", Side: domain.SideNo, Price: 0.4, PriceBasis: 0.45, TargetSize: 10, Title: "Market A",
	}}

	orders, err := b.Build(intents, 10, testNow)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "A", o.Ticker)
	assert.Equal(t, domain.SideNo, o.Side)
	assert.Equal(t, "buy", o.Action)
	assert.Equal(t, "limit", o.Type)
	assert.Equal(t, 2, o.Count)
	assert.Equal(t, "0.4000", o.PriceDollars)
	assert.Equal(t, testNow.Add(60*time.Second).Unix(), o.ExpirationTS)
	assert.NotEmpty(t, o.ClientOrderID)
	assert.False(t, o.ReduceOnly)
	assert.Equal(t, "Market A", o.Title)
	assert.InDelta(t, 0.45, o.PriceBasis, 1e-9)
}

func TestBuilder_UniqueClientOrderIDs(t *testing.T) {
	b := newTestBuilder(t, 1)
	orders, err := b.Build([]domain.TradeIntent{{Ticker: "A", Price: 0.1}, {Ticker: "B", Price: 0.2}}, 5, testNow)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.NotEqual(t, orders[0].ClientOrderID, orders[1].ClientOrderID)
}

func TestBuilder_NeverEmitsUnaffordableOrder(t *testing.T) {
	b := newTestBuilder(t, 2)
	intents := []domain.TradeIntent{
		{Ticker: "CHEAP", Price: 0.10},
		{Ticker: "EXACT", Price: 0.50}, // 0.50 × 2 == balance
		{Ticker: "DEAR", Price: 0.90},
		{Ticker: "BELOW", Price: 0.49},
	}
	balance := 1.0

	orders, err := b.Build(intents, balance, testNow)
	require.NoError(t, err)

	tickers := make([]string, 0, len(orders))
	for _, o := range orders {
		tickers = append(tickers, o.Ticker)
		assert.Less(t, o.Price*float64(o.Count), balance)
	}
	assert.Equal(t, []string{"CHEAP", "BELOW"}, tickers)
}

func TestBuilder_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   BuilderConfig
		field string
	}{
		{"zero trade size", BuilderConfig{TradeSize: 0, Expiration: time.Minute}, "trade_size"},
		{"zero expiration", BuilderConfig{TradeSize: 1}, "expiration"},
		{"negative expiration", BuilderConfig{TradeSize: 1, Expiration: -time.Second}, "expiration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(tt.cfg)
			var cerr *domain.ConfigurationError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestBuilder_EveryOrderCarriesExpiration(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{TradeSize: 1, Expiration: time.Second})
	require.NoError(t, err)
	orders, err := b.Build([]domain.TradeIntent{{Ticker: "A", Price: 0.2}, {Ticker: "B", Price: 0.3}}, 1, testNow)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, testNow.Add(time.Second).Unix(), o.ExpirationTS)
	}
}

func TestBuilder_Close(t *testing.T) {
	b := newTestBuilder(t, 1)
	o := b.Close(domain.Position{Ticker: "A", Position: -3}, 0.37)

	assert.Equal(t, domain.SideNo, o.Side)
	assert.Equal(t, "sell", o.Action)
	assert.Equal(t, 3, o.Count)
	assert.Equal(t, "0.3700", o.PriceDollars)
	assert.Equal(t, "immediate_or_cancel", o.TimeInForce)
	assert.True(t, o.ReduceOnly)
	assert.Zero(t, o.ExpirationTS)
}
