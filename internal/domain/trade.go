package domain

import "time"

// Side es el lado de un mercado binario.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// TradeIntent es la decisión de cotizar un mercado en un lado y precio concretos.
// Lo produce el selector y lo consume el builder.
type TradeIntent struct {
	Ticker       string
	Side         Side
	Price        float64 // precio del borde de liquidez del lado elegido
	PriceBasis   float64 // top of book del lado elegido, del que se deriva Price
	TargetSize   float64
	Title        string
	RulesPrimary string

	// Borde de liquidez de cada lado (precio y cantidad acumulada).
	YesPrice float64
	YesQty   float64
	NoPrice  float64
	NoQty    float64

	// Referencias de mercado (mejor bid) y distancia al borde.
	MarketYesPrice float64
	MarketNoPrice  float64
	YesDelta       float64
	NoDelta        float64
}

// Delta devuelve la distancia entre top of book y el borde del lado elegido.
func (t TradeIntent) Delta() float64 {
	if t.Side == SideNo {
		return t.NoDelta
	}
	return t.YesDelta
}

// OrderRequest es una orden lista para enviar al exchange.
type OrderRequest struct {
	ClientOrderID string
	Ticker        string
	Side          Side
	Action        string // "buy" | "sell"
	Type          string // "limit"
	Count         int
	Price         float64
	PriceDollars  string // Price con 4 decimales, como espera la API
	ExpirationTS  int64  // segundos unix; 0 = sin expiración
	TimeInForce   string // "" | "immediate_or_cancel"
	ReduceOnly    bool

	// Metadata para observabilidad, no se envía al exchange.
	Title      string
	PriceBasis float64
	TargetSize float64
}

// OrderResult es la respuesta del exchange a una orden enviada.
type OrderResult struct {
	OrderID        string
	Status         string
	FilledCount    int
	RemainingCount int
}

// RestingOrder es una orden abierta en el exchange.
type RestingOrder struct {
	OrderID  string
	Ticker   string
	Side     Side
	Status   string
	YesPrice string
	NoPrice  string
}

// Price devuelve el precio de la orden en su lado.
func (o RestingOrder) Price() string {
	if o.Side == SideNo {
		return o.NoPrice
	}
	return o.YesPrice
}

// IsActive devuelve true si la orden sigue viva en el book.
func (o RestingOrder) IsActive() bool {
	switch o.Status {
	case "canceled", "filled", "executed":
		return false
	}
	return true
}

// Position es la posición neta en un mercado: positiva = YES, negativa = NO.
type Position struct {
	Ticker   string
	Position int
}

// Side devuelve el lado de la posición.
func (p Position) Side() Side {
	if p.Position < 0 {
		return SideNo
	}
	return SideYes
}

// Count devuelve el número de contratos de la posición.
func (p Position) Count() int {
	if p.Position < 0 {
		return -p.Position
	}
	return p.Position
}

// CycleSummary resume un ciclo del engine para el journal y la consola.
type CycleSummary struct {
	StartedAt       time.Time
	Session         string // "new" | "update" | "skipped"
	Programs        int
	Candidates      int
	Intents         []TradeIntent
	OrdersBuilt     int
	OrdersSubmitted int
	OrdersFailed    int
	Cancelled       int
	Closed          int
	Balance         float64
	Duration        time.Duration
}
