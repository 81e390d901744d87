package writer

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
)

// XLSXWriter streams samples into an Excel workbook with one sheet named
// after the data type. Rows pass through excelize's stream writer, which
// spools to temporary storage so memory stays bounded, but the workbook
// is only byte-complete once the zip container is assembled: the sink
// receives everything at Finalize and BytesWritten moves then.
type XLSXWriter struct {
	stream
	file          *excelize.File
	streamWriter  *excelize.StreamWriter
	sheetName     string
	columns       []string
	headerWritten bool
	currentRow    int
}

// NewXLSXWriter creates an Excel workbook writer bound to one data type.
func NewXLSXWriter(dt sample.DataType) *XLSXWriter {
	return &XLSXWriter{
		stream:     newStream(FormatXLSX, dt),
		sheetName:  string(dt),
		currentRow: 1,
	}
}

// Initialize acquires the sink and opens the workbook sheet.
func (w *XLSXWriter) Initialize(ctx context.Context, snk sink.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.open(snk); err != nil {
		return err
	}

	w.file = excelize.NewFile()

	index, err := w.file.NewSheet(w.sheetName)
	if err != nil {
		return &EncodingError{Format: FormatXLSX, Err: fmt.Errorf("create sheet: %w", err)}
	}
	w.file.SetActiveSheet(index)

	// Drop the default sheet so the workbook carries only the data sheet
	if w.sheetName != "Sheet1" {
		if err := w.file.DeleteSheet("Sheet1"); err != nil {
			// Ignore error if Sheet1 doesn't exist
		}
	}

	streamWriter, err := w.file.NewStreamWriter(w.sheetName)
	if err != nil {
		return &EncodingError{Format: FormatXLSX, Err: fmt.Errorf("create stream writer: %w", err)}
	}
	w.streamWriter = streamWriter
	return nil
}

// WriteChunk appends one row per sample, preceded by the header row the
// first time around. Cells hold the same string renderings as the CSV
// format.
func (w *XLSXWriter) WriteChunk(samples []sample.Sample) error {
	if err := w.ensureOpen(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	if !w.headerWritten {
		cols, _, err := fieldValues(samples[0])
		if err != nil {
			return &EncodingError{Format: FormatXLSX, Err: err}
		}
		headers := make([]interface{}, len(cols))
		for i, c := range cols {
			headers[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
		if err != nil {
			return &EncodingError{Format: FormatXLSX, Err: err}
		}
		if err := w.streamWriter.SetRow(cell, headers); err != nil {
			return &EncodingError{Format: FormatXLSX, Err: fmt.Errorf("write header row: %w", err)}
		}
		w.currentRow++
		w.columns = cols
		w.headerWritten = true
	}

	for _, s := range samples {
		_, vals, err := fieldValues(s)
		if err != nil {
			return &EncodingError{Format: FormatXLSX, Err: err}
		}
		row := make([]interface{}, len(w.columns))
		for i, col := range w.columns {
			row[i] = vals[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
		if err != nil {
			return &EncodingError{Format: FormatXLSX, Err: err}
		}
		if err := w.streamWriter.SetRow(cell, row); err != nil {
			return &EncodingError{Format: FormatXLSX, Err: fmt.Errorf("write row: %w", err)}
		}
		w.currentRow++
	}
	w.samples.Add(int64(len(samples)))
	return nil
}

// Finalize flushes the stream writer, assembles the workbook through the
// sink and closes it. Repeat calls return the same metadata.
func (w *XLSXWriter) Finalize() (*FileMetadata, error) {
	switch w.status {
	case statusClosed:
		return w.meta, nil
	case statusUninitialized:
		return nil, ErrNotInitialized
	}

	if err := w.streamWriter.Flush(); err != nil {
		return nil, &EncodingError{Format: FormatXLSX, Err: fmt.Errorf("flush stream: %w", err)}
	}
	if _, err := w.file.WriteTo(countingWriter{&w.stream}); err != nil {
		return nil, &SinkError{Format: FormatXLSX, Err: fmt.Errorf("write workbook: %w", err)}
	}
	if err := w.file.Close(); err != nil {
		return nil, &EncodingError{Format: FormatXLSX, Err: fmt.Errorf("close workbook: %w", err)}
	}
	return w.close()
}
