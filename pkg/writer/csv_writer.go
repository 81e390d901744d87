package writer

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
)

// CSVWriter streams samples as comma-separated rows per RFC 4180. The
// header row is derived from the first sample of the first non-empty
// chunk and the column set is fixed from then on: later samples that
// carry extra fields lose them, and missing fields render as empty
// cells. Each chunk, header included, is framed in memory and handed to
// the sink in a single write.
type CSVWriter struct {
	stream
	columns       []string
	headerWritten bool
}

// NewCSVWriter creates a CSV writer bound to one data type.
func NewCSVWriter(dt sample.DataType) *CSVWriter {
	return &CSVWriter{stream: newStream(FormatCSV, dt)}
}

// Initialize acquires the sink. The header is deferred until the first
// sample is seen because processed streams carry dynamic columns.
func (w *CSVWriter) Initialize(ctx context.Context, snk sink.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.open(snk)
}

// WriteChunk appends one row per sample, preceded by the header row the
// first time around.
func (w *CSVWriter) WriteChunk(samples []sample.Sample) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	cols := w.columns
	if !w.headerWritten {
		first, _, err := fieldValues(samples[0])
		if err != nil {
			return &EncodingError{Format: FormatCSV, Err: err}
		}
		cols = first
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if !w.headerWritten {
		if err := cw.Write(cols); err != nil {
			return &EncodingError{Format: FormatCSV, Err: err}
		}
	}
	for _, s := range samples {
		_, vals, err := fieldValues(s)
		if err != nil {
			return &EncodingError{Format: FormatCSV, Err: err}
		}
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = vals[col]
		}
		if err := cw.Write(row); err != nil {
			return &EncodingError{Format: FormatCSV, Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &EncodingError{Format: FormatCSV, Err: err}
	}

	if err := w.emit(buf.Bytes()); err != nil {
		return err
	}
	// Commit the column set only after the header actually reached the
	// sink, so a failed first chunk can be retried intact.
	if !w.headerWritten {
		w.columns = cols
		w.headerWritten = true
	}
	w.samples.Add(int64(len(samples)))
	return nil
}

// Finalize closes the sink and returns the final metadata.
func (w *CSVWriter) Finalize() (*FileMetadata, error) {
	return w.close()
}
