package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/container"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
)

// BinaryWriter streams samples into a LNKB container: the fixed header
// followed by back-to-back little-endian records with no footer. The
// header bytes written during Initialize count toward BytesWritten like
// everything else.
type BinaryWriter struct {
	stream

	// CreatedAt stamps the container header, in ms since the Unix epoch.
	// Zero means "now" at Initialize. It has no effect once the stream
	// is open.
	CreatedAt uint64
}

// NewBinaryWriter creates a container writer bound to one data type.
func NewBinaryWriter(dt sample.DataType) *BinaryWriter {
	return &BinaryWriter{stream: newStream(FormatBinary, dt)}
}

// Initialize acquires the sink and writes the 22-byte container header.
func (w *BinaryWriter) Initialize(ctx context.Context, snk sink.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.open(snk); err != nil {
		return err
	}

	createdAt := w.CreatedAt
	if createdAt == 0 {
		createdAt = uint64(time.Now().UnixMilli())
	}
	hdr := container.NewHeader(w.dataType, createdAt)
	return w.emit(hdr.AppendTo(make([]byte, 0, container.HeaderSize)))
}

// WriteChunk appends one fixed-size record per sample, or a
// length-prefixed JSON record for processed streams.
func (w *BinaryWriter) WriteChunk(samples []sample.Sample) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	var buf []byte
	if size := container.RecordSize(w.dataType); size > 0 {
		buf = make([]byte, 0, size*len(samples))
	}
	for _, s := range samples {
		if s.DataType() != w.dataType {
			return &EncodingError{
				Format: FormatBinary,
				Err:    fmt.Errorf("%s sample in %s stream", s.DataType(), w.dataType),
			}
		}
		var err error
		buf, err = container.AppendRecord(buf, s)
		if err != nil {
			return &EncodingError{Format: FormatBinary, Err: err}
		}
	}

	if err := w.emit(buf); err != nil {
		return err
	}
	w.samples.Add(int64(len(samples)))
	return nil
}

// Finalize closes the sink and returns the final metadata. The container
// has no footer, so nothing else is written.
func (w *BinaryWriter) Finalize() (*FileMetadata, error) {
	return w.close()
}
