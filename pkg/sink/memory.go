package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryFactory keeps every sink it creates in memory. It backs tests and
// callers that post-process a recording without touching disk.
type MemoryFactory struct {
	mu    sync.Mutex
	sinks map[string]*MemorySink
}

// NewMemoryFactory returns an empty in-memory sink factory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{sinks: make(map[string]*MemorySink)}
}

// Create returns a fresh in-memory sink registered under name.
func (f *MemoryFactory) Create(ctx context.Context, name string) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sinks[name]; ok {
		return nil, fmt.Errorf("sink %q already exists", name)
	}
	s := &MemorySink{}
	f.sinks[name] = s
	return s, nil
}

// Sink returns the sink created under name, or nil if none exists.
func (f *MemoryFactory) Sink(name string) *MemorySink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[name]
}

// Names lists the names of all sinks created so far.
func (f *MemoryFactory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.sinks))
	for name := range f.sinks {
		names = append(names, name)
	}
	return names
}

// MemorySink collects written bytes in an in-memory buffer. The zero
// value is ready to use.
type MemorySink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	closed bool
}

func (s *MemorySink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrWriteAfterClose
	}
	s.writes++
	return s.buf.Write(p)
}

// Close marks the sink complete. Further writes fail; the collected bytes
// stay readable.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Bytes returns a copy of everything written so far.
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}

// Len reports the number of bytes written so far.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// WriteCalls reports how many Write calls the sink has accepted.
func (s *MemorySink) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Closed reports whether Close has been called.
func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
