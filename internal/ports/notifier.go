package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// Notify muestra los intents seleccionados y el resumen del ciclo.
	Notify(ctx context.Context, summary domain.CycleSummary) error
}

// Metrics registra contadores por ciclo.
type Metrics interface {
	RecordCycle(summary domain.CycleSummary)
	RecordSkip(stage, reason string)
	RecordOpenSet(size int)
}
