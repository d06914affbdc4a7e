package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// OrderExecutor places, cancels, and inspects real orders on the exchange.
type OrderExecutor interface {
	// SubmitOrder sends a signed order request to the exchange.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// CancelOrder cancels a resting order by its exchange order ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetRestingOrders returns the orders still resting in the book.
	GetRestingOrders(ctx context.Context) ([]domain.RestingOrder, error)

	// GetPositions returns the current market positions.
	GetPositions(ctx context.Context) ([]domain.Position, error)

	// GetBalance returns the available balance in dollars.
	GetBalance(ctx context.Context) (float64, error)
}
