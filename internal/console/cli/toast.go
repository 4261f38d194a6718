package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/matchdesk/internal/console/services"
)

// toastPrinter shows background failures between REPL prompts.
type toastPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newToastPrinter(w io.Writer) *toastPrinter {
	return &toastPrinter{w: w}
}

func (p *toastPrinter) Notify(_ context.Context, t services.Toast) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := "[i]"
	if t.Level == services.ToastError {
		prefix = "[!]"
	}
	fmt.Fprintf(p.w, "\n%s %s\n", prefix, t.Message)
}
