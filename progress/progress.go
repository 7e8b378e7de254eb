// Package progress renders ANSI carriage-return progress bars for load and
// write phases. Bars are disabled automatically when the destination is not
// a terminal, so piped output stays clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Bar is a single progress bar counting toward a fixed total.
type Bar struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	total   int64
	current int64
	width   int
	enabled bool
	done    bool
}

// NewBar creates a bar writing to out. With enabled false every method is
// a no-op, which lets callers thread a bar through unconditionally.
func NewBar(out io.Writer, label string, total int64, enabled bool) *Bar {
	return &Bar{out: out, label: label, total: total, width: 40, enabled: enabled}
}

// Update advances the bar to the given absolute position.
func (b *Bar) Update(current int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled || b.done {
		return
	}
	if current > b.total {
		current = b.total
	}
	b.current = current
	b.render()
}

// Complete fills the bar and moves to the next line.
func (b *Bar) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled || b.done {
		return
	}
	b.current = b.total
	b.render()
	fmt.Fprintln(b.out)
	b.done = true
}

func (b *Bar) render() {
	filled := b.width
	percent := 100.0
	if b.total > 0 {
		percent = float64(b.current) / float64(b.total) * 100.0
		filled = int(float64(b.width) * float64(b.current) / float64(b.total))
	}
	if filled > b.width {
		filled = b.width
	}
	fmt.Fprintf(b.out, "\r%-24s [%s%s] %5.1f%%",
		b.label,
		strings.Repeat("=", filled),
		strings.Repeat(" ", b.width-filled),
		percent)
}

// Manager hands out bars sharing one destination and one enabled flag.
type Manager struct {
	out     io.Writer
	enabled bool
}

// NewManager creates a manager writing to out. Bars render only when out
// is a terminal and quiet is false.
func NewManager(out io.Writer, quiet bool) *Manager {
	return &Manager{out: out, enabled: !quiet && isTerminal(out)}
}

// FileBar creates a byte-based bar for reading or writing a file.
func (m *Manager) FileBar(filename string, sizeBytes int64) *Bar {
	return NewBar(m.out, filename, sizeBytes, m.enabled)
}

// CountBar creates a row-count-based bar for a processing step.
func (m *Manager) CountBar(label string, total int) *Bar {
	return NewBar(m.out, label, int64(total), m.enabled)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
