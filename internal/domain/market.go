package domain

import "time"

// IncentiveLiquidity es el único tipo de programa que el bot opera.
const IncentiveLiquidity = "liquidity"

// IncentiveProgram es un programa de incentivos de Kalshi tal como lo devuelve
// la API. Inmutable durante un ciclo; su identidad es ID.
type IncentiveProgram struct {
	ID                string
	MarketTicker      string
	IncentiveType     string // "liquidity" | "volume" | ...
	StartDate         time.Time
	EndDate           time.Time // zero si la API no la devolvió o no se pudo parsear
	DiscountFactorBps int
	PeriodReward      int64    // centavos por periodo
	TargetSize        *float64 // nil si la API devuelve null
	PaidOut           bool
}

// RewardDollars devuelve el premio del periodo en dólares.
func (p IncentiveProgram) RewardDollars() float64 {
	return float64(p.PeriodReward) / 100
}

// IsOpen devuelve true si el programa sigue pagando incentivos de liquidez
// fuera de la ventana de stop-trade.
func (p IncentiveProgram) IsOpen(now time.Time, stopTradeWindow time.Duration) bool {
	return !p.PaidOut &&
		p.IncentiveType == IncentiveLiquidity &&
		p.EndDate.After(now.Add(-stopTradeWindow))
}

// MarketQuote es el snapshot de un mercado refrescado en cada ciclo.
// Los campos numéricos son nil cuando la API no los devuelve.
type MarketQuote struct {
	Ticker       string
	Title        string
	RulesPrimary string
	YesAsk       *float64 // dólares
	NoAsk        *float64 // dólares
	Volume       *float64
	Book         OrderBook
}

// Candidate es un programa abierto unido a la cotización de su mercado.
type Candidate struct {
	Program      IncentiveProgram
	Ticker       string
	Title        string
	RulesPrimary string
	TargetSize   float64
	YesAsk       float64
	NoAsk        float64
	Volume       float64
	Spread       float64 // |YesAsk - NoAsk|
}

// TimeToEnd devuelve cuánto falta para que termine el programa.
// Devuelve 0 si ya terminó.
func (c Candidate) TimeToEnd(now time.Time) time.Duration {
	d := c.Program.EndDate.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// TruncateTitle devuelve el título truncado a maxLen caracteres.
// Si el título está vacío usa el ticker como fallback.
func TruncateTitle(title, ticker string, maxLen int) string {
	t := title
	if t == "" {
		t = ticker
	}
	if len(t) > maxLen {
		t = t[:maxLen-3] + "..."
	}
	return t
}
