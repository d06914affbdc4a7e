package trade

import (
	"sync"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// State es el dueño exclusivo del conjunto de tickers cotizados entre ciclos.
// Lo construye el engine y lo pasa explícitamente; no hay estado global.
//
// Todas las mutaciones construyen un slice nuevo y lo intercambian bajo el
// lock, así un lector concurrente nunca ve un conjunto a medio actualizar.
type State struct {
	mu           sync.RWMutex
	open         []domain.TradeIntent // ordenado por ranking
	maxPositions int
}

// NewState crea un State vacío acotado a maxPositions tickers.
func NewState(maxPositions int) *State {
	return &State{maxPositions: maxPositions}
}

// HasOpenPosition devuelve true si hay al menos un ticker cotizado.
func (s *State) HasOpenPosition() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open) > 0
}

// Len devuelve el tamaño del conjunto.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}

// Expire elimina todo ticker ausente de openTickers. Es la única vía de
// borrado incremental.
func (s *State) Expire(openTickers []string) []string {
	keep := make(map[string]bool, len(openTickers))
	for _, t := range openTickers {
		keep[t] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.TradeIntent, 0, len(s.open))
	var removed []string
	for _, in := range s.open {
		if keep[in.Ticker] {
			next = append(next, in)
			continue
		}
		removed = append(removed, in.Ticker)
	}
	s.open = next
	return removed
}

// Replace sustituye el conjunto completo por intents, truncado a maxPositions.
func (s *State) Replace(intents []domain.TradeIntent) {
	n := len(intents)
	if s.maxPositions >= 0 && n > s.maxPositions {
		n = s.maxPositions
	}
	next := make([]domain.TradeIntent, n)
	copy(next, intents[:n])

	s.mu.Lock()
	s.open = next
	s.mu.Unlock()
}

// Intents devuelve una copia del conjunto en orden de ranking.
func (s *State) Intents() []domain.TradeIntent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TradeIntent, len(s.open))
	copy(out, s.open)
	return out
}

// Tickers devuelve los tickers cotizados en orden de ranking.
func (s *State) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.open))
	for i, in := range s.open {
		out[i] = in.Ticker
	}
	return out
}
