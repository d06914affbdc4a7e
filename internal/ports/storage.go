package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Journal registra cada ciclo y las órdenes enviadas. Es solo de escritura:
// el estado de trading nunca se reconstruye desde aquí.
type Journal interface {
	// SaveCycle persiste el resumen del ciclo y devuelve su ID.
	SaveCycle(ctx context.Context, summary domain.CycleSummary) (int64, error)

	// SaveOrder persiste una orden enviada junto con la respuesta (o el error).
	SaveOrder(ctx context.Context, cycleID int64, req domain.OrderRequest, res domain.OrderResult, submitErr error) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
