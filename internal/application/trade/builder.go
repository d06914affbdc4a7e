package trade

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const (
	actionBuy         = "buy"
	actionSell        = "sell"
	orderTypeLimit    = "limit"
	immediateOrCancel = "immediate_or_cancel"
)

// BuilderConfig contiene el tamaño por orden y la vida de las órdenes.
type BuilderConfig struct {
	TradeSize  int
	Expiration time.Duration
}

// Builder convierte intents en órdenes listas para el exchange.
type Builder struct {
	cfg   BuilderConfig
	newID func() string
}

// NewBuilder valida la configuración antes del primer uso.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.TradeSize <= 0 {
		return nil, &domain.ConfigurationError{Field: "trade_size", Reason: "must be positive"}
	}
	if cfg.Expiration <= 0 {
		return nil, &domain.ConfigurationError{Field: "expiration", Reason: "must be positive"}
	}
	return &Builder{cfg: cfg, newID: uuid.NewString}, nil
}

// Build emite una orden limit BUY por cada intent asequible. Un balance no
// positivo aborta el ciclo con InsufficientBalanceError; un intent cuyo coste
// (precio × tamaño) no queda por debajo del balance se descarta solo.
func (b *Builder) Build(intents []domain.TradeIntent, balance float64, now time.Time) ([]domain.OrderRequest, error) {
	if balance <= 0 {
		return nil, &domain.InsufficientBalanceError{Balance: balance}
	}

	available := decimal.NewFromFloat(balance)
	size := decimal.NewFromInt(int64(b.cfg.TradeSize))

	expiration := now.Add(b.cfg.Expiration).Unix()

	orders := make([]domain.OrderRequest, 0, len(intents))
	for _, in := range intents {
		price := decimal.NewFromFloat(in.Price)
		cost := price.Mul(size)
		if !cost.LessThan(available) {
			slog.Info("builder: intent not affordable",
				"ticker", in.Ticker,
				"cost", cost.StringFixed(4),
				"balance", available.StringFixed(4),
			)
			continue
		}

		orders = append(orders, domain.OrderRequest{
			ClientOrderID: b.newID(),
			Ticker:        in.Ticker,
			Side:          in.Side,
			Action:        actionBuy,
			Type:          orderTypeLimit,
			Count:         b.cfg.TradeSize,
			Price:         in.Price,
			PriceDollars:  price.StringFixed(4),
			ExpirationTS:  expiration,
			Title:         in.Title,
			PriceBasis:    in.PriceBasis,
			TargetSize:    in.TargetSize,
		})
	}
	return orders, nil
}

// Close construye la orden que liquida una posición: SELL reduce-only IOC al
// mejor bid de su lado.
func (b *Builder) Close(pos domain.Position, bestBid float64) domain.OrderRequest {
	return domain.OrderRequest{
		ClientOrderID: b.newID(),
		Ticker:        pos.Ticker,
		Side:          pos.Side(),
		Action:        actionSell,
		Type:          orderTypeLimit,
		Count:         pos.Count(),
		Price:         bestBid,
		PriceDollars:  decimal.NewFromFloat(bestBid).StringFixed(4),
		TimeInForce:   immediateOrCancel,
		ReduceOnly:    true,
	}
}
