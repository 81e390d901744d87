package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/logger"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/writer"
)

var (
	// ErrNotRecording is returned for operations before Initialize or
	// after Finalize.
	ErrNotRecording = errors.New("recording: not active")
	// ErrAlreadyRecording is returned when Initialize is called twice.
	ErrAlreadyRecording = errors.New("recording: already active")
	// ErrNoFormats is returned when Initialize is given an empty format list.
	ErrNoFormats = errors.New("recording: no output formats")
)

// WriteError reports one format's failure during a fan-out. The sibling
// formats are unaffected and keep accepting chunks.
type WriteError struct {
	Format writer.Format
	// BytesCommitted is the format's byte count at the time of failure,
	// counting only bytes the sink actually accepted.
	BytesCommitted int64
	Err            error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("format %s failed after %d bytes: %v", e.Format, e.BytesCommitted, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// state tracks a coordinator's position in its lifecycle.
type state int

const (
	stateIdle state = iota
	stateRecording
	stateFinalized
)

// Coordinator fans one stream of samples out to several format writers,
// each bound to its own sink. Chunks reach every format in arrival order;
// a failing format is isolated and the rest keep going. Write calls
// serialize against each other, while the size accessors stay readable
// at any time, including mid-write.
type Coordinator struct {
	factory sink.Factory
	logger  *logger.Logger

	id       string
	dataType sample.DataType
	writers  []writer.Writer

	mu       sync.RWMutex // guards state, writers, results
	writeMu  sync.Mutex   // serializes chunk fan-outs against finalize
	state    state
	results  []*writer.FileMetadata
	finalErr error
	started  time.Time
}

// NewCoordinator creates an idle coordinator that will open its sinks
// through factory. A recording identifier is generated.
func NewCoordinator(factory sink.Factory, log *logger.Logger) *Coordinator {
	return NewCoordinatorWithID(uuid.New().String(), factory, log)
}

// NewCoordinatorWithID creates an idle coordinator with a caller-supplied
// recording identifier, for callers that allocate storage by ID first.
func NewCoordinatorWithID(id string, factory sink.Factory, log *logger.Logger) *Coordinator {
	return &Coordinator{
		factory: factory,
		logger:  log,
		id:      id,
	}
}

// RecordingID returns the recording identifier.
func (c *Coordinator) RecordingID() string { return c.id }

// DataType returns the sample variant this recording carries.
func (c *Coordinator) DataType() sample.DataType { return c.dataType }

// Initialize validates every requested format, then opens one writer and
// sink per format. Validation is all-or-nothing: an unknown or duplicate
// format identifier fails the call before any sink is created, and a
// failure while opening closes whatever was already open.
func (c *Coordinator) Initialize(ctx context.Context, dataType sample.DataType, formats []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateIdle {
		return ErrAlreadyRecording
	}
	if !dataType.Valid() {
		return fmt.Errorf("recording: unknown data type %q", dataType)
	}
	if len(formats) == 0 {
		return ErrNoFormats
	}

	// Validate the whole request before touching any sink
	parsed := make([]writer.Format, 0, len(formats))
	seen := make(map[writer.Format]bool, len(formats))
	for _, f := range formats {
		format, err := writer.ParseFormat(f)
		if err != nil {
			return err
		}
		if seen[format] {
			return fmt.Errorf("recording: duplicate format %q", format)
		}
		seen[format] = true
		parsed = append(parsed, format)
	}

	contextLogger := c.logger.WithContext(ctx).WithRecordingID(c.id).WithComponent("recording")

	writers := make([]writer.Writer, 0, len(parsed))
	for _, format := range parsed {
		w, err := writer.New(format, dataType)
		if err != nil {
			closeAll(writers)
			return err
		}
		snk, err := c.factory.Create(ctx, format.FileName(dataType))
		if err != nil {
			closeAll(writers)
			return fmt.Errorf("recording: create %s sink: %w", format, err)
		}
		if err := w.Initialize(ctx, snk); err != nil {
			snk.Close()
			closeAll(writers)
			return fmt.Errorf("recording: initialize %s writer: %w", format, err)
		}
		writers = append(writers, w)
		contextLogger.LogFileCreated("Output stream opened", logger.Fields{
			"format":    format.String(),
			"data_type": dataType.String(),
			"file":      format.FileName(dataType),
		})
	}

	c.dataType = dataType
	c.writers = writers
	c.state = stateRecording
	c.started = time.Now()

	contextLogger.LogRecordingStarted("Recording started", logger.Fields{
		"data_type": dataType.String(),
		"formats":   formats,
	})
	return nil
}

// closeAll closes partially opened writers during an initialize rollback.
func closeAll(writers []writer.Writer) {
	for _, w := range writers {
		w.Finalize()
	}
}

// Write fans one chunk out to every format concurrently and waits for all
// of them. Per-format failures are collected into the returned error; the
// failing formats' counters stop at the bytes their sinks accepted, and
// the healthy formats stay writable.
func (c *Coordinator) Write(ctx context.Context, samples []sample.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	st, writers := c.state, c.writers
	c.mu.RUnlock()
	if st != stateRecording {
		return ErrNotRecording
	}
	if len(samples) == 0 {
		return nil
	}

	start := time.Now()

	// One error slot per format so a failure never interrupts siblings
	errs := make([]error, len(writers))
	var g errgroup.Group
	for i, w := range writers {
		g.Go(func() error {
			if err := w.WriteChunk(samples); err != nil {
				errs[i] = &WriteError{
					Format:         w.Format(),
					BytesCommitted: w.BytesWritten(),
					Err:            err,
				}
			}
			return nil
		})
	}
	g.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.WithContext(ctx).WithRecordingID(c.id).WithComponent("recording").
		LogChunkWritten("Chunk written", time.Since(start).Milliseconds(), logger.Fields{
			"samples": len(samples),
			"formats": len(writers),
		})
	return nil
}

// Finalize closes every format concurrently and returns their metadata in
// the order the formats were requested. It is idempotent: repeat calls
// return the first call's results. Formats that fail to close are
// reported in the joined error and skipped in the results.
func (c *Coordinator) Finalize(ctx context.Context) ([]*writer.FileMetadata, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateIdle:
		return nil, ErrNotRecording
	case stateFinalized:
		return c.results, c.finalErr
	}

	contextLogger := c.logger.WithContext(ctx).WithRecordingID(c.id).WithComponent("recording")

	metas := make([]*writer.FileMetadata, len(c.writers))
	errs := make([]error, len(c.writers))
	var g errgroup.Group
	for i, w := range c.writers {
		g.Go(func() error {
			meta, err := w.Finalize()
			if err != nil {
				errs[i] = &WriteError{
					Format:         w.Format(),
					BytesCommitted: w.BytesWritten(),
					Err:            err,
				}
				return nil
			}
			metas[i] = meta
			contextLogger.LogFileFinalized("Output stream finalized", time.Since(c.started).Milliseconds(), logger.Fields{
				"format":  meta.Format.String(),
				"bytes":   meta.Bytes,
				"samples": meta.Samples,
				"crc32":   fmt.Sprintf("%08x", meta.CRC32),
			})
			return nil
		})
	}
	g.Wait()

	results := make([]*writer.FileMetadata, 0, len(metas))
	for _, m := range metas {
		if m != nil {
			results = append(results, m)
		}
	}

	c.state = stateFinalized
	c.results = results
	c.finalErr = errors.Join(errs...)

	duration := time.Since(c.started)
	if c.finalErr != nil {
		contextLogger.LogRecordingFailed("Recording finalized with errors", "FINALIZE_ERROR", c.finalErr.Error(), logger.Fields{
			"files": len(results),
		})
	} else {
		contextLogger.LogRecordingCompleted("Recording completed", duration.Milliseconds(), logger.Fields{
			"files":       len(results),
			"total_bytes": totalBytes(results),
		})
	}
	return c.results, c.finalErr
}

// Results returns the finalized file metadata, or nil while recording.
func (c *Coordinator) Results() []*writer.FileMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.results
}

// SizesByFormat returns the live byte count per format. It is safe to
// call while a chunk is being written; the counts reflect bytes the
// sinks have accepted so far.
func (c *Coordinator) SizesByFormat() map[writer.Format]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sizes := make(map[writer.Format]int64, len(c.writers))
	for _, w := range c.writers {
		sizes[w.Format()] = w.BytesWritten()
	}
	return sizes
}

// TotalSize returns the sum of the live per-format byte counts.
func (c *Coordinator) TotalSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, w := range c.writers {
		total += w.BytesWritten()
	}
	return total
}

// SampleCount returns the number of samples accepted so far. All formats
// see the same chunks, so any healthy writer's count is authoritative;
// the largest is reported in case some formats have fallen behind after
// a failure.
func (c *Coordinator) SampleCount() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var max int64
	for _, w := range c.writers {
		if n := w.SampleCount(); n > max {
			max = n
		}
	}
	return max
}

func totalBytes(metas []*writer.FileMetadata) int64 {
	var total int64
	for _, m := range metas {
		total += m.Bytes
	}
	return total
}
