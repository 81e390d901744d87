package writer

import (
	"context"
	"fmt"
	"hash"
	"hash/crc32"
	"sync/atomic"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
)

// Format identifies one on-disk encoding of a recording stream.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatBinary Format = "binary"
	FormatXLSX   Format = "xlsx"
)

// Valid reports whether f is a recognized format identifier.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatBinary, FormatXLSX:
		return true
	}
	return false
}

func (f Format) String() string { return string(f) }

// Ext returns the file extension used for this format's output files.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".jsonl"
	case FormatCSV:
		return ".csv"
	case FormatBinary:
		return ".bin"
	case FormatXLSX:
		return ".xlsx"
	}
	return ""
}

// FileName returns the conventional output file name for a data type in
// this format, for example "eeg_data.jsonl".
func (f Format) FileName(dt sample.DataType) string {
	return fmt.Sprintf("%s_data%s", dt, f.Ext())
}

// ParseFormat converts a string identifier into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// FileMetadata describes one finalized format stream.
type FileMetadata struct {
	Format  Format
	Bytes   int64
	Samples int64
	CRC32   uint32
}

// Writer defines the interface that all format writers implement. The
// lifecycle is Initialize, any number of WriteChunk calls, then Finalize.
// Writers are not safe for concurrent mutation, but the counters may be
// read at any time, including while a write is in flight.
type Writer interface {
	// Format identifies the encoding this writer produces.
	Format() Format

	// DataType identifies the sample variant this writer is bound to.
	DataType() sample.DataType

	// Initialize acquires the sink and writes any fixed header framing.
	Initialize(ctx context.Context, snk sink.Sink) error

	// WriteChunk appends an ordered chunk of samples. An empty chunk is
	// a no-op.
	WriteChunk(samples []sample.Sample) error

	// Finalize flushes remaining state, closes the sink and returns the
	// final metadata. Repeat calls return the same metadata.
	Finalize() (*FileMetadata, error)

	// BytesWritten returns the bytes handed to the sink so far.
	BytesWritten() int64

	// SampleCount returns the samples appended so far.
	SampleCount() int64
}

// New constructs a writer for the given format bound to one data type.
func New(f Format, dt sample.DataType) (Writer, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("writer: unknown data type %q", dt)
	}
	switch f {
	case FormatJSON:
		return NewJSONLWriter(dt), nil
	case FormatCSV:
		return NewCSVWriter(dt), nil
	case FormatBinary:
		return NewBinaryWriter(dt), nil
	case FormatXLSX:
		return NewXLSXWriter(dt), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// status tracks a writer's position in its lifecycle.
type status int

const (
	statusUninitialized status = iota
	statusOpen
	statusClosed
)

// stream holds the sink handle, lifecycle state and running counters
// shared by every format writer.
type stream struct {
	format   Format
	dataType sample.DataType
	snk      sink.Sink
	status   status
	bytes    atomic.Int64
	samples  atomic.Int64
	crc      hash.Hash32
	meta     *FileMetadata
}

func newStream(f Format, dt sample.DataType) stream {
	return stream{format: f, dataType: dt, crc: crc32.NewIEEE()}
}

func (s *stream) Format() Format            { return s.format }
func (s *stream) DataType() sample.DataType { return s.dataType }
func (s *stream) BytesWritten() int64       { return s.bytes.Load() }
func (s *stream) SampleCount() int64        { return s.samples.Load() }

// open acquires the sink, enforcing single initialization.
func (s *stream) open(snk sink.Sink) error {
	if s.status != statusUninitialized {
		return ErrAlreadyInitialized
	}
	s.snk = snk
	s.status = statusOpen
	return nil
}

func (s *stream) ensureOpen() error {
	if s.status != statusOpen {
		return ErrNotInitialized
	}
	return nil
}

// emit hands one fully framed block of bytes to the sink and advances the
// byte counter by exactly what the sink accepted. Callers frame blocks so
// that no record ever spans two emits.
func (s *stream) emit(p []byte) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	n, err := s.snk.Write(p)
	if n > 0 {
		s.bytes.Add(int64(n))
		s.crc.Write(p[:n])
	}
	if err != nil {
		return &SinkError{Format: s.format, Err: err}
	}
	return nil
}

// close shuts the sink once and snapshots the final metadata. The stream
// transitions to Closed even when the sink's own Close fails; the error
// is reported exactly once.
func (s *stream) close() (*FileMetadata, error) {
	switch s.status {
	case statusClosed:
		return s.meta, nil
	case statusUninitialized:
		return nil, ErrNotInitialized
	}
	s.status = statusClosed
	s.meta = &FileMetadata{
		Format:  s.format,
		Bytes:   s.bytes.Load(),
		Samples: s.samples.Load(),
		CRC32:   s.crc.Sum32(),
	}
	if err := s.snk.Close(); err != nil {
		return s.meta, &SinkError{Format: s.format, Err: err}
	}
	return s.meta, nil
}

// countingWriter streams large payloads through the stream's counters
// without staging them in memory first.
type countingWriter struct {
	s *stream
}

func (cw countingWriter) Write(p []byte) (int, error) {
	n, err := cw.s.snk.Write(p)
	if n > 0 {
		cw.s.bytes.Add(int64(n))
		cw.s.crc.Write(p[:n])
	}
	return n, err
}
