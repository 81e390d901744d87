package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
)

func TestParseFormat(t *testing.T) {
	valid := map[string]Format{
		"json":   FormatJSON,
		"csv":    FormatCSV,
		"binary": FormatBinary,
		"xlsx":   FormatXLSX,
	}
	for in, want := range valid {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %q, expected %q", in, got, want)
		}
	}

	// Identifiers are case sensitive and unknown names are rejected
	for _, in := range []string{"xml", "JSON", "jsonl", ""} {
		if _, err := ParseFormat(in); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q): expected ErrUnsupportedFormat, got %v", in, err)
		}
	}
}

func TestFormatFileName(t *testing.T) {
	cases := []struct {
		format   Format
		dataType sample.DataType
		want     string
	}{
		{FormatJSON, sample.EEG, "eeg_data.jsonl"},
		{FormatCSV, sample.PPG, "ppg_data.csv"},
		{FormatBinary, sample.Processed, "processed_data.bin"},
		{FormatXLSX, sample.ACC, "acc_data.xlsx"},
	}
	for _, tc := range cases {
		if got := tc.format.FileName(tc.dataType); got != tc.want {
			t.Errorf("FileName(%s, %s) = %q, expected %q", tc.format, tc.dataType, got, tc.want)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("xml", sample.EEG); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := New(FormatJSON, "gyro"); err == nil {
		t.Error("Expected error for unknown data type")
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	chunk := []sample.Sample{
		sample.EEGSample{Timestamp: 1000, FP1: 1.5, FP2: -2.5, SignalQuality: 0.5},
	}

	for _, f := range []Format{FormatJSON, FormatCSV, FormatBinary, FormatXLSX} {
		t.Run(string(f), func(t *testing.T) {
			w, err := New(f, sample.EEG)
			if err != nil {
				t.Fatalf("Failed to create writer: %v", err)
			}
			if w.Format() != f {
				t.Errorf("Expected format %s, got %s", f, w.Format())
			}
			if w.DataType() != sample.EEG {
				t.Errorf("Expected eeg data type, got %s", w.DataType())
			}

			// Writing and finalizing before initialize must fail
			if err := w.WriteChunk(chunk); !errors.Is(err, ErrNotInitialized) {
				t.Errorf("WriteChunk before initialize: expected ErrNotInitialized, got %v", err)
			}
			if _, err := w.Finalize(); !errors.Is(err, ErrNotInitialized) {
				t.Errorf("Finalize before initialize: expected ErrNotInitialized, got %v", err)
			}

			ms := &sink.MemorySink{}
			if err := w.Initialize(ctx, ms); err != nil {
				t.Fatalf("Failed to initialize writer: %v", err)
			}
			if err := w.Initialize(ctx, &sink.MemorySink{}); !errors.Is(err, ErrAlreadyInitialized) {
				t.Errorf("Second initialize: expected ErrAlreadyInitialized, got %v", err)
			}

			if err := w.WriteChunk(chunk); err != nil {
				t.Fatalf("Failed to write chunk: %v", err)
			}
			if w.SampleCount() != 1 {
				t.Errorf("Expected 1 sample, got %d", w.SampleCount())
			}

			meta, err := w.Finalize()
			if err != nil {
				t.Fatalf("Failed to finalize: %v", err)
			}
			if meta.Format != f {
				t.Errorf("Expected format %s in metadata, got %s", f, meta.Format)
			}
			if meta.Bytes != int64(ms.Len()) {
				t.Errorf("Metadata reports %d bytes, sink holds %d", meta.Bytes, ms.Len())
			}
			if !ms.Closed() {
				t.Error("Sink should be closed after finalize")
			}

			// The stream is closed for good; further writes must fail
			if err := w.WriteChunk(chunk); !errors.Is(err, ErrNotInitialized) {
				t.Errorf("WriteChunk after finalize: expected ErrNotInitialized, got %v", err)
			}
		})
	}
}

func TestWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewJSONLWriter(sample.EEG)
	if err := w.Initialize(ctx, &sink.MemorySink{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	// A canceled initialize leaves the writer reusable
	if err := w.Initialize(context.Background(), &sink.MemorySink{}); err != nil {
		t.Errorf("Initialize after canceled attempt failed: %v", err)
	}
}

var errDiskFull = errors.New("disk full")

// shortSink accepts up to limit bytes in total, then fails every write.
type shortSink struct {
	limit int
	n     int
}

func (s *shortSink) Write(p []byte) (int, error) {
	remain := s.limit - s.n
	if remain >= len(p) {
		s.n += len(p)
		return len(p), nil
	}
	if remain < 0 {
		remain = 0
	}
	s.n += remain
	return remain, errDiskFull
}

func (s *shortSink) Close() error { return nil }

func TestWriter_SinkFailureAccounting(t *testing.T) {
	w := NewJSONLWriter(sample.EEG)
	if err := w.Initialize(context.Background(), &shortSink{limit: 10}); err != nil {
		t.Fatalf("Failed to initialize writer: %v", err)
	}

	err := w.WriteChunk([]sample.Sample{
		sample.EEGSample{Timestamp: 1000, FP1: 10.5, FP2: -3.2, SignalQuality: 0.9},
	})
	var sinkErr *SinkError
	if !errors.As(err, &sinkErr) {
		t.Fatalf("Expected SinkError, got %v", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("Expected wrapped disk full error, got %v", err)
	}

	// The counter reflects exactly what the sink accepted
	if w.BytesWritten() != 10 {
		t.Errorf("Expected 10 bytes committed, got %d", w.BytesWritten())
	}
	if w.SampleCount() != 0 {
		t.Errorf("Expected 0 samples after failed chunk, got %d", w.SampleCount())
	}
}
