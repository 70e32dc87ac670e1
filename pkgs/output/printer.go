package output

import (
	"fmt"
	"io"
	"sync"
)

type Printer interface {
	Printf(format string, a ...any) (n int, err error)
}

type ConsolePrinter struct{}

func (c ConsolePrinter) Printf(format string, a ...any) (n int, err error) {
	return fmt.Printf(format, a...)
}

// WriterPrinter prints to any writer, e.g. the serial port of a command link. Safe for concurrent use,
// so unsolicited notifications do not interleave with replies.
type WriterPrinter struct {
	W  io.Writer
	mu sync.Mutex
}

func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{W: w}
}

func (p *WriterPrinter) Printf(format string, a ...any) (n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Fprintf(p.W, format, a...)
}
