// Package sink abstracts the append-only byte destinations that recording
// writers stream into. Sink creation is an injected capability so the
// recording core never chooses between storage providers itself.
package sink

import (
	"context"
	"errors"
	"io"
)

// ErrWriteAfterClose is returned when bytes are written to a closed sink.
var ErrWriteAfterClose = errors.New("sink: write after close")

// Sink is an append-only byte destination owned exclusively by one format
// writer for its lifetime. Close flushes any buffered bytes and signals
// completion to the destination.
type Sink interface {
	io.Writer
	io.Closer
}

// Factory creates named sinks for one recording.
type Factory interface {
	Create(ctx context.Context, name string) (Sink, error)
}
