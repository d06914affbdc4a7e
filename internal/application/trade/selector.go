package trade

import (
	"log/slog"
	"sort"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// priceEpsilon absorbe el error de float64 al comparar precios en dólares.
const priceEpsilon = 1e-9

// SelectorConfig contiene los límites del selector.
type SelectorConfig struct {
	PriceMin       float64
	PriceMax       float64
	MinMarketDelta float64
	MaxPositions   int
}

// Validate devuelve un ConfigurationError si algún límite no es usable.
func (c SelectorConfig) Validate() error {
	switch {
	case c.PriceMin <= 0 || c.PriceMax >= 1:
		return &domain.ConfigurationError{Field: "price_range", Reason: "must lie inside (0, 1)"}
	case c.PriceMin > c.PriceMax:
		return &domain.ConfigurationError{Field: "price_range", Reason: "min is above max"}
	case c.MinMarketDelta < 0:
		return &domain.ConfigurationError{Field: "min_market_delta", Reason: "must not be negative"}
	case c.MaxPositions <= 0:
		return &domain.ConfigurationError{Field: "max_positions", Reason: "must be positive"}
	}
	return nil
}

// SkipReason explica por qué un candidato no produjo intent.
type SkipReason string

const (
	SkipNoDepth      SkipReason = "no_depth"
	SkipTooDeep      SkipReason = "too_deep"
	SkipSideTooDeep  SkipReason = "side_too_deep"
	SkipPriceRange   SkipReason = "price_range"
	SkipMarketDelta  SkipReason = "market_delta"
	SkipMaxPositions SkipReason = "max_positions"
)

// SelectStats cuenta descartes por motivo.
type SelectStats map[SkipReason]int

func (s SelectStats) record(r SkipReason) { s[r]++ }

// Selector elige mercado, lado y precio a partir de la profundidad del book.
type Selector struct {
	cfg SelectorConfig
}

// NewSelector valida la configuración antes del primer uso.
func NewSelector(cfg SelectorConfig) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg}, nil
}

// Select evalúa cada candidato contra su book, ordena los supervivientes por
// precio ascendente (estable: empate = orden de entrada), conserva los
// primeros MaxPositions y reemplaza el conjunto de state de una vez.
func (s *Selector) Select(state *State, candidates []domain.Candidate, books map[string]domain.OrderBook) ([]domain.TradeIntent, SelectStats) {
	stats := make(SelectStats)
	intents := make([]domain.TradeIntent, 0, len(candidates))

	for _, c := range candidates {
		intent, reason, ok := s.evaluate(c, books[c.Ticker])
		if !ok {
			stats.record(reason)
			slog.Debug("selector: skip candidate", "ticker", c.Ticker, "reason", reason)
			continue
		}
		intents = append(intents, intent)
	}

	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].Price < intents[j].Price
	})
	if len(intents) > s.cfg.MaxPositions {
		stats[SkipMaxPositions] += len(intents) - s.cfg.MaxPositions
		intents = intents[:s.cfg.MaxPositions]
	}

	state.Replace(intents)
	return state.Intents(), stats
}

// edge es el borde de liquidez de un lado.
type edge struct {
	price, qty, ref, delta float64
}

func edgeOf(levels []domain.BookEntry, target float64) edge {
	curve := domain.CumulativeDepth(levels)
	idx := domain.EdgeIndex(curve, target)
	ref := domain.TopOfBook(levels)
	e := edge{price: curve[idx].Price, qty: curve[idx].Size, ref: ref}
	e.delta = ref - e.price
	return e
}

func (s *Selector) evaluate(c domain.Candidate, book domain.OrderBook) (domain.TradeIntent, SkipReason, bool) {
	if !book.HasDepth() {
		return domain.TradeIntent{}, SkipNoDepth, false
	}

	yes := edgeOf(book.Yes, c.TargetSize)
	no := edgeOf(book.No, c.TargetSize)

	if yes.qty > c.TargetSize && no.qty > c.TargetSize {
		return domain.TradeIntent{}, SkipTooDeep, false
	}

	side, chosen := domain.SideYes, yes
	if no.price < yes.price {
		side, chosen = domain.SideNo, no
	}
	if chosen.qty > c.TargetSize {
		return domain.TradeIntent{}, SkipSideTooDeep, false
	}
	if chosen.price < s.cfg.PriceMin-priceEpsilon || chosen.price > s.cfg.PriceMax+priceEpsilon {
		return domain.TradeIntent{}, SkipPriceRange, false
	}
	if chosen.delta < s.cfg.MinMarketDelta-priceEpsilon {
		return domain.TradeIntent{}, SkipMarketDelta, false
	}

	return domain.TradeIntent{
		Ticker:         c.Ticker,
		Side:           side,
		Price:          chosen.price,
		PriceBasis:     chosen.ref,
		TargetSize:     c.TargetSize,
		Title:          c.Title,
		RulesPrimary:   c.RulesPrimary,
		YesPrice:       yes.price,
		YesQty:         yes.qty,
		NoPrice:        no.price,
		NoQty:          no.qty,
		MarketYesPrice: yes.ref,
		MarketNoPrice:  no.ref,
		YesDelta:       yes.delta,
		NoDelta:        no.delta,
	}, "", true
}
