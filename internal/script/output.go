package script

import (
	"io"
	"strings"
	"sync"
)

// DefaultOutputLines bounds the retained script output.
const DefaultOutputLines = 500

// Output is a line-oriented ring buffer that scripts print into. It is
// safe for concurrent use and can tee into another writer.
type Output struct {
	mu      sync.Mutex
	lines   []string
	partial strings.Builder
	max     int
	tee     io.Writer
}

func NewOutput(max int, tee io.Writer) *Output {
	if max <= 0 {
		max = DefaultOutputLines
	}
	return &Output{max: max, tee: tee}
}

func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tee != nil {
		o.tee.Write(p)
	}
	for _, c := range string(p) {
		if c == '\n' {
			o.push(o.partial.String())
			o.partial.Reset()
			continue
		}
		o.partial.WriteRune(c)
	}
	return len(p), nil
}

func (o *Output) push(line string) {
	o.lines = append(o.lines, line)
	if len(o.lines) > o.max {
		o.lines = append(o.lines[:0], o.lines[len(o.lines)-o.max:]...)
	}
}

// Lines returns the completed lines, oldest first.
func (o *Output) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

// Tail returns at most n of the newest lines.
func (o *Output) Tail(n int) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	n = max(0, min(n, len(o.lines)))
	return append([]string(nil), o.lines[len(o.lines)-n:]...)
}

func (o *Output) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = o.lines[:0]
	o.partial.Reset()
}
