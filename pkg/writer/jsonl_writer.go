package writer

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
)

// JSONLWriter streams samples as line-delimited JSON: one self-describing
// object per sample, newline terminated, with no header or footer. Each
// chunk is framed in memory and handed to the sink in a single write, so
// a record can never be split across sink writes.
type JSONLWriter struct {
	stream
}

// NewJSONLWriter creates a line-JSON writer bound to one data type.
func NewJSONLWriter(dt sample.DataType) *JSONLWriter {
	return &JSONLWriter{stream: newStream(FormatJSON, dt)}
}

// Initialize acquires the sink. The format has no header framing, so
// nothing is written until the first chunk arrives.
func (w *JSONLWriter) Initialize(ctx context.Context, snk sink.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.open(snk)
}

// WriteChunk appends one JSON line per sample.
func (w *JSONLWriter) WriteChunk(samples []sample.Sample) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, s := range samples {
		line, err := json.Marshal(s)
		if err != nil {
			return &EncodingError{Format: FormatJSON, Err: err}
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := w.emit(buf.Bytes()); err != nil {
		return err
	}
	w.samples.Add(int64(len(samples)))
	return nil
}

// Finalize closes the sink and returns the final metadata.
func (w *JSONLWriter) Finalize() (*FileMetadata, error) {
	return w.close()
}
