package walk

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Emitter receives directory paths in the order a Walker discovers them.
// Implementations must not reorder, deduplicate, or drop paths.
type Emitter interface {
	Emit(path string) error
}

// EmitFunc adapts a function to the Emitter interface.
type EmitFunc func(path string) error

// Emit calls f(path).
func (f EmitFunc) Emit(path string) error {
	return f(path)
}

// StreamEmitter writes each path to a writer as a line.
// Output is buffered; when the writer is a terminal every line is flushed
// immediately so interactive users see progress.
type StreamEmitter struct {
	w         *bufio.Writer
	flushEach bool
}

// NewStreamEmitter creates a StreamEmitter over w (usually os.Stdout).
// Call Flush when the walk is done.
func NewStreamEmitter(w io.Writer) *StreamEmitter {
	flushEach := false
	if f, ok := w.(*os.File); ok {
		flushEach = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &StreamEmitter{w: bufio.NewWriter(w), flushEach: flushEach}
}

// Emit writes path followed by a newline.
func (s *StreamEmitter) Emit(path string) error {
	if _, err := s.w.WriteString(path); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	if s.flushEach {
		return s.w.Flush()
	}
	return nil
}

// Flush writes any buffered output.
func (s *StreamEmitter) Flush() error {
	return s.w.Flush()
}

// BufferEmitter collects paths in memory. It is safe for concurrent use.
type BufferEmitter struct {
	mu      sync.Mutex
	records []string
}

// NewBufferEmitter creates an empty BufferEmitter.
func NewBufferEmitter() *BufferEmitter {
	return &BufferEmitter{}
}

// Emit appends path.
func (b *BufferEmitter) Emit(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, path)
	return nil
}

// Records returns a copy of the collected paths in emission order.
func (b *BufferEmitter) Records() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.records))
	copy(out, b.records)
	return out
}

// Len returns the number of collected paths.
func (b *BufferEmitter) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

type syncEmitter struct {
	mu   sync.Mutex
	next Emitter
}

func (s *syncEmitter) Emit(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Emit(path)
}

// Synchronized wraps e so that concurrent walkers can share it.
func Synchronized(e Emitter) Emitter {
	if se, ok := e.(*syncEmitter); ok {
		return se
	}
	return &syncEmitter{next: e}
}
