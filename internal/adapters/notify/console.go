package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// Con table=true imprime la tabla completa de intents; si no, una línea por ciclo.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el resumen del ciclo en el modo configurado.
func (c *Console) Notify(_ context.Context, s domain.CycleSummary) error {
	if len(s.Intents) == 0 {
		fmt.Fprintf(c.out, "[%s] %s: no trade intents (programs:%d candidates:%d)\n",
			s.StartedAt.Format("15:04:05"), sessionLabel(s.Session), s.Programs, s.Candidates)
		return nil
	}

	if c.table {
		c.printFull(s)
	} else {
		c.printCompact(s)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(s domain.CycleSummary) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %d/%d quoted, orders %d/%d",
		s.StartedAt.Format("15:04:05"), sessionLabel(s.Session),
		len(s.Intents), s.Candidates, s.OrdersSubmitted, s.OrdersBuilt)

	for _, in := range s.Intents {
		fmt.Fprintf(&sb, " | %s %s@%.4f Δ%.4f", in.Ticker, in.Side, in.Price, in.Delta())
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la cabecera del ciclo y la tabla de intents.
func (c *Console) printFull(s domain.CycleSummary) {
	fmt.Fprintf(c.out, "\n[%s] %s | programs:%d candidates:%d intents:%d orders:%d/%d failed:%d balance:$%.2f (%s)\n",
		s.StartedAt.Format("15:04:05"), sessionLabel(s.Session),
		s.Programs, s.Candidates, len(s.Intents),
		s.OrdersSubmitted, s.OrdersBuilt, s.OrdersFailed, s.Balance,
		s.Duration.Round(time.Millisecond))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Ticker", "Market", "Side", "Price", "Basis", "Delta", "Target", "Yes edge", "No edge")

	for i, in := range s.Intents {
		table.Append(
			fmt.Sprintf("%d", i+1),
			in.Ticker,
			domain.TruncateTitle(in.Title, in.Ticker, 40),
			string(in.Side),
			fmt.Sprintf("%.4f", in.Price),
			fmt.Sprintf("%.4f", in.PriceBasis),
			fmt.Sprintf("%.4f", in.Delta()),
			fmt.Sprintf("%.0f", in.TargetSize),
			fmt.Sprintf("%.4f x %.0f", in.YesPrice, in.YesQty),
			fmt.Sprintf("%.4f x %.0f", in.NoPrice, in.NoQty),
		)
	}
	table.Render()
}

func sessionLabel(session string) string {
	switch session {
	case "new":
		return "NEW SESSION"
	case "update":
		return "UPDATE SESSION"
	case "skipped":
		return "SKIP TRADING"
	}
	return strings.ToUpper(session)
}
