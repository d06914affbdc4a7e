package incentive

import (
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Catalog filtra programas de incentivos y los une con su cotización.
type Catalog struct {
	stopTradeWindow time.Duration
}

// NewCatalog crea un Catalog. Los programas que terminan dentro de
// stopTradeWindow se siguen considerando abiertos.
func NewCatalog(stopTradeWindow time.Duration) *Catalog {
	return &Catalog{stopTradeWindow: stopTradeWindow}
}

// Filter devuelve los candidatos operables y los registros descartados por
// datos ausentes o mal formados. Un registro inválido nunca aborta el resto.
//
// El resultado conserva el orden de entrada de programs y tiene a lo sumo un
// candidato por ticker (gana el primer programa).
func (c *Catalog) Filter(programs []domain.IncentiveProgram, quotes map[string]domain.MarketQuote, now time.Time) ([]domain.Candidate, []error) {
	candidates := make([]domain.Candidate, 0, len(programs))
	seen := make(map[string]bool, len(programs))
	var skipped []error

	for _, p := range programs {
		quote, ok := quotes[p.MarketTicker]
		if !ok {
			continue
		}
		if p.EndDate.IsZero() && !p.PaidOut && p.IncentiveType == domain.IncentiveLiquidity {
			skipped = append(skipped, &domain.ValidationError{
				Ticker: p.MarketTicker, ProgramID: p.ID, Field: "end_date", Reason: "is missing or malformed",
			})
			continue
		}
		if !p.IsOpen(now, c.stopTradeWindow) {
			continue
		}
		if seen[p.MarketTicker] {
			slog.Debug("duplicate incentive program for ticker", "ticker", p.MarketTicker, "program", p.ID)
			continue
		}

		cand, err := join(p, quote)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		seen[p.MarketTicker] = true
		candidates = append(candidates, cand)
	}

	return candidates, skipped
}

// OpenTickers devuelve los tickers con un programa de liquidez todavía abierto.
func (c *Catalog) OpenTickers(programs []domain.IncentiveProgram, now time.Time) []string {
	tickers := make([]string, 0, len(programs))
	seen := make(map[string]bool, len(programs))
	for _, p := range programs {
		if p.MarketTicker == "" || seen[p.MarketTicker] || !p.IsOpen(now, c.stopTradeWindow) {
			continue
		}
		seen[p.MarketTicker] = true
		tickers = append(tickers, p.MarketTicker)
	}
	return tickers
}

// join valida los campos requeridos y construye el candidato.
func join(p domain.IncentiveProgram, q domain.MarketQuote) (domain.Candidate, error) {
	invalid := func(field, reason string) error {
		return &domain.ValidationError{Ticker: p.MarketTicker, ProgramID: p.ID, Field: field, Reason: reason}
	}

	switch {
	case p.TargetSize == nil:
		return domain.Candidate{}, invalid("target_size", "is missing")
	case *p.TargetSize <= 0 || math.IsNaN(*p.TargetSize):
		return domain.Candidate{}, invalid("target_size", "must be positive")
	case q.YesAsk == nil:
		return domain.Candidate{}, invalid("yes_ask_dollars", "is missing")
	case q.NoAsk == nil:
		return domain.Candidate{}, invalid("no_ask_dollars", "is missing")
	case q.Volume == nil:
		return domain.Candidate{}, invalid("volume", "is missing")
	}

	return domain.Candidate{
		Program:      p,
		Ticker:       p.MarketTicker,
		Title:        q.Title,
		RulesPrimary: q.RulesPrimary,
		TargetSize:   *p.TargetSize,
		YesAsk:       *q.YesAsk,
		NoAsk:        *q.NoAsk,
		Volume:       *q.Volume,
		Spread:       math.Abs(*q.YesAsk - *q.NoAsk),
	}, nil
}
