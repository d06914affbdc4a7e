package kalshi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DTOs raw de la API de Kalshi. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.
// Los campos numéricos que la API puede devolver como número, string, "" o
// null usan number.

// number es un campo numérico opcional. null, "" o un valor no numérico
// decodifican como ausente (Valid=false) en lugar de romper la respuesta
// entera; el catálogo reporta luego el campo que falta.
type number struct {
	Value float64
	Valid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	*n = number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*n = number{Value: v, Valid: true}
	return nil
}

// --- Incentivos ---

// incentiveProgramsResponse es la respuesta paginada de GET /incentive_programs.
type incentiveProgramsResponse struct {
	IncentivePrograms []incentiveProgram `json:"incentive_programs"`
	NextCursor        string             `json:"next_cursor"`
}

type incentiveProgram struct {
	ID                string       `json:"id"`
	MarketTicker      string       `json:"market_ticker"`
	IncentiveType     string       `json:"incentive_type"`
	StartDate         string       `json:"start_date"`
	EndDate           string       `json:"end_date"`
	DiscountFactorBps number `json:"discount_factor_bps"`
	PeriodReward      number `json:"period_reward"`
	TargetSize        number `json:"target_size"`
	PaidOut           bool         `json:"paid_out"`
}

// --- Mercados ---

// marketResponse es la respuesta de GET /markets/{ticker}.
type marketResponse struct {
	Market market `json:"market"`
}

type market struct {
	Ticker        string       `json:"ticker"`
	Title         string       `json:"title"`
	RulesPrimary  string       `json:"rules_primary"`
	YesAskDollars number `json:"yes_ask_dollars"`
	NoAskDollars  number `json:"no_ask_dollars"`
	Volume        number `json:"volume"`
}

// orderBookResponse es la respuesta de GET /markets/{ticker}/orderbook.
type orderBookResponse struct {
	OrderBook orderBook `json:"orderbook"`
}

// orderBook contiene las escaleras de bids por lado: [["0.4000", 12], ...].
type orderBook struct {
	YesDollars [][]number `json:"yes_dollars"`
	NoDollars  [][]number `json:"no_dollars"`
}

// --- Portfolio ---

type balanceResponse struct {
	Balance int64 `json:"balance"` // centavos
}

// createOrderRequest es el body de POST /portfolio/orders.
type createOrderRequest struct {
	Ticker          string `json:"ticker"`
	ClientOrderID   string `json:"client_order_id"`
	Side            string `json:"side"`
	Action          string `json:"action"`
	Count           int    `json:"count"`
	Type            string `json:"type"`
	YesPriceDollars string `json:"yes_price_dollars,omitempty"`
	NoPriceDollars  string `json:"no_price_dollars,omitempty"`
	ExpirationTS    int64  `json:"expiration_ts,omitempty"`
	TimeInForce     string `json:"time_in_force,omitempty"`
	ReduceOnly      bool   `json:"reduce_only,omitempty"`
}

type createOrderResponse struct {
	Order order `json:"order"`
}

type order struct {
	OrderID         string `json:"order_id"`
	ClientOrderID   string `json:"client_order_id"`
	Ticker          string `json:"ticker"`
	Side            string `json:"side"`
	Status          string `json:"status"`
	YesPriceDollars string `json:"yes_price_dollars"`
	NoPriceDollars  string `json:"no_price_dollars"`
	FillCount       int    `json:"fill_count"`
	RemainingCount  int    `json:"remaining_count"`
}

// ordersResponse es la respuesta paginada de GET /portfolio/orders.
type ordersResponse struct {
	Orders []order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// positionsResponse es la respuesta paginada de GET /portfolio/positions.
type positionsResponse struct {
	MarketPositions []marketPosition `json:"market_positions"`
	Cursor          string           `json:"cursor"`
}

type marketPosition struct {
	Ticker   string `json:"ticker"`
	Position int    `json:"position"`
}
