package forwarder

import (
	"fmt"
	"io"
	"os"

	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

// Reporter shows access decisions to the operator.
type Reporter interface {
	ReportDecision(token events.Token, d Decision)
	ReportError(token events.Token, err error)
}

// WriterReporter prints one line per outcome to an io.Writer.
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterReporter creates a reporter writing to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() *WriterReporter {
	return NewWriterReporter(os.Stdout)
}

// ReportDecision implements Reporter.
func (r *WriterReporter) ReportDecision(_ events.Token, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, FormatDecision(d))
}

// ReportError implements Reporter.
func (r *WriterReporter) ReportError(_ events.Token, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "ERRO ao enviar para a aplicação: %v\n", err)
}

// FormatDecision renders a decision the way operators expect to read it.
func FormatDecision(d Decision) string {
	status := "NEGADO"
	if d.IsAuthorized {
		status = "CONCEDIDO"
	}
	return fmt.Sprintf("Acesso %s. Motivo: %s", status, d.Reason)
}
