package domain

import "fmt"

// ValidationError marca un registro descartado por un campo ausente o mal
// formado. Solo afecta a ese registro.
type ValidationError struct {
	Ticker    string
	ProgramID string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record %s (program %s): %s %s", e.Ticker, e.ProgramID, e.Field, e.Reason)
}

// InsufficientBalanceError aborta la construcción de órdenes del ciclo.
type InsufficientBalanceError struct {
	Balance float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: $%.4f", e.Balance)
}

// ConfigurationError indica un parámetro ausente o inválido antes del primer ciclo.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}
