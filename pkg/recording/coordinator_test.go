package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/container"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/logger"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/writer"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json", "stderr", false)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func TestCoordinator_FanOut(t *testing.T) {
	factory := sink.NewMemoryFactory()
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	if err := coord.Initialize(ctx, sample.EEG, []string{"json", "csv", "binary"}); err != nil {
		t.Fatalf("Failed to initialize coordinator: %v", err)
	}
	if coord.RecordingID() == "" {
		t.Error("Expected a recording ID")
	}

	chunk1 := []sample.Sample{
		sample.EEGSample{Timestamp: 1000, FP1: 10.5, FP2: -3.2, SignalQuality: 0.9},
	}
	chunk2 := []sample.Sample{
		sample.EEGSample{Timestamp: 1008, FP1: 11.0, FP2: -2.9, SignalQuality: 0.88},
	}
	if err := coord.Write(ctx, chunk1); err != nil {
		t.Fatalf("Failed to write first chunk: %v", err)
	}
	if err := coord.Write(ctx, chunk2); err != nil {
		t.Fatalf("Failed to write second chunk: %v", err)
	}

	results, err := coord.Finalize(ctx)
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}

	// One file per requested format, in request order
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	order := []writer.Format{writer.FormatJSON, writer.FormatCSV, writer.FormatBinary}
	for i, want := range order {
		if results[i].Format != want {
			t.Errorf("Result %d: expected format %s, got %s", i, want, results[i].Format)
		}
		if results[i].Samples != 2 {
			t.Errorf("Result %d: expected 2 samples, got %d", i, results[i].Samples)
		}
	}

	// Every format received the same samples in arrival order
	jsonl := factory.Sink("eeg_data.jsonl")
	if jsonl == nil {
		t.Fatal("Missing JSONL sink")
	}
	expectedJSONL := `{"timestamp":1000,"fp1":10.5,"fp2":-3.2,"signal_quality":0.9}` + "\n" +
		`{"timestamp":1008,"fp1":11,"fp2":-2.9,"signal_quality":0.88}` + "\n"
	if got := string(jsonl.Bytes()); got != expectedJSONL {
		t.Errorf("JSONL mismatch.\nExpected:\n%s\nGot:\n%s", expectedJSONL, got)
	}

	csvSink := factory.Sink("eeg_data.csv")
	if csvSink == nil {
		t.Fatal("Missing CSV sink")
	}
	expectedCSV := "timestamp,fp1,fp2,signal_quality\n1000,10.5,-3.2,0.9\n1008,11,-2.9,0.88\n"
	if got := string(csvSink.Bytes()); got != expectedCSV {
		t.Errorf("CSV mismatch.\nExpected:\n%s\nGot:\n%s", expectedCSV, got)
	}

	binSink := factory.Sink("eeg_data.bin")
	if binSink == nil {
		t.Fatal("Missing binary sink")
	}
	reader, err := container.NewReader(bytes.NewReader(binSink.Bytes()))
	if err != nil {
		t.Fatalf("Failed to open container: %v", err)
	}
	var timestamps []uint64
	for {
		s, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read record: %v", err)
		}
		timestamps = append(timestamps, s.Time())
	}
	if len(timestamps) != 2 || timestamps[0] != 1000 || timestamps[1] != 1008 {
		t.Errorf("Expected timestamps [1000 1008], got %v", timestamps)
	}

	for _, name := range factory.Names() {
		if !factory.Sink(name).Closed() {
			t.Errorf("Sink %s should be closed after finalize", name)
		}
	}
}

func TestCoordinator_UnsupportedFormatCreatesNothing(t *testing.T) {
	factory := sink.NewMemoryFactory()
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	err := coord.Initialize(ctx, sample.EEG, []string{"json", "xml"})
	if !errors.Is(err, writer.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}

	// Validation happens before any sink is opened
	if names := factory.Names(); len(names) != 0 {
		t.Errorf("Expected no sinks, got %v", names)
	}

	// The coordinator stays idle and can be initialized again
	if err := coord.Initialize(ctx, sample.EEG, []string{"json"}); err != nil {
		t.Fatalf("Initialize after rejected request failed: %v", err)
	}
}

func TestCoordinator_DuplicateFormatRejected(t *testing.T) {
	factory := sink.NewMemoryFactory()
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	err := coord.Initialize(ctx, sample.PPG, []string{"csv", "csv"})
	if err == nil || !strings.Contains(err.Error(), "duplicate format") {
		t.Fatalf("Expected duplicate format error, got %v", err)
	}
	if names := factory.Names(); len(names) != 0 {
		t.Errorf("Expected no sinks, got %v", names)
	}
}

func TestCoordinator_EmptyFormatList(t *testing.T) {
	coord := NewCoordinator(sink.NewMemoryFactory(), newTestLogger(t))

	if err := coord.Initialize(context.Background(), sample.EEG, nil); !errors.Is(err, ErrNoFormats) {
		t.Errorf("Expected ErrNoFormats, got %v", err)
	}
}

var errSinkBroken = errors.New("sink broken")

// brokenSink accepts up to limit bytes in total, then fails every write.
type brokenSink struct {
	limit int
	n     int
}

func (s *brokenSink) Write(p []byte) (int, error) {
	remain := s.limit - s.n
	if remain >= len(p) {
		s.n += len(p)
		return len(p), nil
	}
	if remain < 0 {
		remain = 0
	}
	s.n += remain
	return remain, errSinkBroken
}

func (s *brokenSink) Close() error { return nil }

// flakyFactory hands out a broken sink for one file name and memory sinks
// for the rest.
type flakyFactory struct {
	inner    *sink.MemoryFactory
	failName string
	limit    int
}

func (f *flakyFactory) Create(ctx context.Context, name string) (sink.Sink, error) {
	if name == f.failName {
		return &brokenSink{limit: f.limit}, nil
	}
	return f.inner.Create(ctx, name)
}

func TestCoordinator_PartialFailureIsolation(t *testing.T) {
	inner := sink.NewMemoryFactory()
	factory := &flakyFactory{inner: inner, failName: "eeg_data.csv", limit: 10}
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	if err := coord.Initialize(ctx, sample.EEG, []string{"json", "csv"}); err != nil {
		t.Fatalf("Failed to initialize coordinator: %v", err)
	}

	chunk := []sample.Sample{
		sample.EEGSample{Timestamp: 1000, FP1: 10.5, FP2: -3.2, SignalQuality: 0.9},
	}
	err := coord.Write(ctx, chunk)
	if err == nil {
		t.Fatal("Expected a write error from the broken CSV sink")
	}
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
	if writeErr.Format != writer.FormatCSV {
		t.Errorf("Expected csv failure, got %s", writeErr.Format)
	}
	if writeErr.BytesCommitted != 10 {
		t.Errorf("Expected 10 committed bytes, got %d", writeErr.BytesCommitted)
	}
	if !errors.Is(err, errSinkBroken) {
		t.Errorf("Expected wrapped sink error, got %v", err)
	}

	// The JSON format is unaffected and keeps accepting chunks
	jsonl := inner.Sink("eeg_data.jsonl")
	firstLen := jsonl.Len()
	if firstLen == 0 {
		t.Fatal("Expected JSONL bytes from the first chunk")
	}
	if err := coord.Write(ctx, chunk); err == nil {
		t.Fatal("Expected the broken sink to fail again")
	}
	if jsonl.Len() <= firstLen {
		t.Errorf("Healthy format stopped growing: %d then %d bytes", firstLen, jsonl.Len())
	}

	// Finalize reports the failure but still returns the healthy file
	results, err := coord.Finalize(ctx)
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	var formats []writer.Format
	for _, m := range results {
		formats = append(formats, m.Format)
	}
	if len(results) != 2 {
		t.Fatalf("Expected both files in results, got %v", formats)
	}
	if results[0].Format != writer.FormatJSON || results[0].Samples != 2 {
		t.Errorf("Unexpected JSON result %+v", results[0])
	}
	// The CSV stream carries only the bytes its sink accepted
	if results[1].Format != writer.FormatCSV || results[1].Bytes != 10 {
		t.Errorf("Unexpected CSV result %+v", results[1])
	}
}

func TestCoordinator_SizesDuringRecording(t *testing.T) {
	factory := sink.NewMemoryFactory()
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	if err := coord.Initialize(ctx, sample.ACC, []string{"binary", "json"}); err != nil {
		t.Fatalf("Failed to initialize coordinator: %v", err)
	}

	// The binary header is already on disk before any chunk
	sizes := coord.SizesByFormat()
	if sizes[writer.FormatBinary] != container.HeaderSize {
		t.Errorf("Expected %d binary bytes, got %d", container.HeaderSize, sizes[writer.FormatBinary])
	}
	if sizes[writer.FormatJSON] != 0 {
		t.Errorf("Expected 0 JSON bytes, got %d", sizes[writer.FormatJSON])
	}

	chunk := []sample.Sample{
		sample.ACCSample{Timestamp: 10, X: 0.5, Y: -0.25, Z: 1.0, Magnitude: 1.25},
	}
	if err := coord.Write(ctx, chunk); err != nil {
		t.Fatalf("Failed to write chunk: %v", err)
	}

	sizes = coord.SizesByFormat()
	expectedBinary := int64(container.HeaderSize + 24)
	if sizes[writer.FormatBinary] != expectedBinary {
		t.Errorf("Expected %d binary bytes, got %d", expectedBinary, sizes[writer.FormatBinary])
	}
	if sizes[writer.FormatJSON] == 0 {
		t.Error("Expected JSON bytes after chunk")
	}
	if coord.TotalSize() != sizes[writer.FormatBinary]+sizes[writer.FormatJSON] {
		t.Errorf("TotalSize %d does not match per-format sum %v", coord.TotalSize(), sizes)
	}
	if coord.SampleCount() != 1 {
		t.Errorf("Expected 1 sample, got %d", coord.SampleCount())
	}

	if _, err := coord.Finalize(ctx); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
}

func TestCoordinator_FinalizeIdempotent(t *testing.T) {
	factory := sink.NewMemoryFactory()
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	if err := coord.Initialize(ctx, sample.PPG, []string{"json"}); err != nil {
		t.Fatalf("Failed to initialize coordinator: %v", err)
	}
	if err := coord.Write(ctx, []sample.Sample{sample.PPGSample{Timestamp: 1, Red: 1, IR: 2}}); err != nil {
		t.Fatalf("Failed to write chunk: %v", err)
	}

	first, err := coord.Finalize(ctx)
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	second, err := coord.Finalize(ctx)
	if err != nil {
		t.Fatalf("Second finalize should succeed: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Errorf("Expected identical results, got %v and %v", first, second)
	}

	// Writes after finalize are rejected
	err = coord.Write(ctx, []sample.Sample{sample.PPGSample{Timestamp: 2}})
	if !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
}

func TestCoordinator_WriteBeforeInitialize(t *testing.T) {
	coord := NewCoordinator(sink.NewMemoryFactory(), newTestLogger(t))

	err := coord.Write(context.Background(), []sample.Sample{sample.EEGSample{Timestamp: 1}})
	if !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
	if _, err := coord.Finalize(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording from finalize, got %v", err)
	}
}

func TestCoordinator_ConcurrentWriters(t *testing.T) {
	factory := sink.NewMemoryFactory()
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	if err := coord.Initialize(ctx, sample.EEG, []string{"json", "binary"}); err != nil {
		t.Fatalf("Failed to initialize coordinator: %v", err)
	}

	// Two producers interleave chunks while a third polls the sizes.
	// Every chunk must land atomically in both formats.
	const producers = 2
	const chunksPerProducer = 10

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < chunksPerProducer; i++ {
				ts := uint64(p*1000 + i)
				chunk := []sample.Sample{
					sample.EEGSample{Timestamp: ts, FP1: 1, FP2: 2, SignalQuality: 0.5},
				}
				if err := coord.Write(ctx, chunk); err != nil {
					t.Errorf("Write failed: %v", err)
					return
				}
			}
		}(p)
	}

	stop := make(chan struct{})
	var pollWg sync.WaitGroup
	pollWg.Add(1)
	go func() {
		defer pollWg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				coord.SizesByFormat()
				coord.TotalSize()
				coord.SampleCount()
			}
		}
	}()

	wg.Wait()
	close(stop)
	pollWg.Wait()

	results, err := coord.Finalize(ctx)
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
	for _, m := range results {
		if m.Samples != producers*chunksPerProducer {
			t.Errorf("Format %s: expected %d samples, got %d", m.Format, producers*chunksPerProducer, m.Samples)
		}
	}

	// Both formats saw the same record stream
	jsonl := factory.Sink("eeg_data.jsonl")
	lines := strings.Count(string(jsonl.Bytes()), "\n")
	if lines != producers*chunksPerProducer {
		t.Errorf("Expected %d JSONL lines, got %d", producers*chunksPerProducer, lines)
	}

	reader, err := container.NewReader(bytes.NewReader(factory.Sink("eeg_data.bin").Bytes()))
	if err != nil {
		t.Fatalf("Failed to open container: %v", err)
	}
	records := 0
	for {
		if _, err := reader.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Failed to read record: %v", err)
		}
		records++
	}
	if records != producers*chunksPerProducer {
		t.Errorf("Expected %d binary records, got %d", producers*chunksPerProducer, records)
	}
}

func TestCoordinator_InitializeRollback(t *testing.T) {
	// A factory that fails on the second sink must leave the first
	// format's writer closed
	inner := sink.NewMemoryFactory()
	factory := &failingCreateFactory{inner: inner, failOn: 2}
	coord := NewCoordinator(factory, newTestLogger(t))

	ctx := context.Background()
	err := coord.Initialize(ctx, sample.EEG, []string{"json", "csv"})
	if err == nil {
		t.Fatal("Expected initialize to fail on the second sink")
	}
	if !strings.Contains(err.Error(), "create csv sink") {
		t.Errorf("Expected csv sink failure, got %v", err)
	}

	jsonl := inner.Sink("eeg_data.jsonl")
	if jsonl == nil {
		t.Fatal("Expected the first sink to have been created")
	}
	if !jsonl.Closed() {
		t.Error("First sink should be closed after rollback")
	}

	// The coordinator stays idle after the rollback
	err = coord.Write(ctx, []sample.Sample{sample.EEGSample{Timestamp: 1}})
	if !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
}

// failingCreateFactory fails the nth Create call.
type failingCreateFactory struct {
	inner  *sink.MemoryFactory
	failOn int
	calls  int
}

func (f *failingCreateFactory) Create(ctx context.Context, name string) (sink.Sink, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, fmt.Errorf("factory exhausted")
	}
	return f.inner.Create(ctx, name)
}

// chunkBarrier releases waiters only once all parties have arrived.
type chunkBarrier struct {
	mu      sync.Mutex
	parties int
	waiting int
	release chan struct{}
}

func newChunkBarrier(parties int) *chunkBarrier {
	return &chunkBarrier{parties: parties, release: make(chan struct{})}
}

func (b *chunkBarrier) await() error {
	b.mu.Lock()
	b.waiting++
	if b.waiting == b.parties {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("no overlapping write arrived")
	}
}

// barrierSink parks every write on the shared barrier before accepting it.
type barrierSink struct {
	sink.MemorySink
	barrier *chunkBarrier
}

func (s *barrierSink) Write(p []byte) (int, error) {
	if err := s.barrier.await(); err != nil {
		return 0, err
	}
	return s.MemorySink.Write(p)
}

type barrierFactory struct {
	barrier *chunkBarrier
}

func (f *barrierFactory) Create(ctx context.Context, name string) (sink.Sink, error) {
	return &barrierSink{barrier: f.barrier}, nil
}

func TestCoordinator_ChunksDispatchInParallel(t *testing.T) {
	// json and csv each hand the sink exactly one write per chunk, and
	// each write blocks until the other format's write has arrived. The
	// fan-out therefore completes only if the formats run concurrently.
	barrier := newChunkBarrier(2)
	coord := NewCoordinator(&barrierFactory{barrier: barrier}, newTestLogger(t))

	ctx := context.Background()
	if err := coord.Initialize(ctx, sample.EEG, []string{"json", "csv"}); err != nil {
		t.Fatalf("Failed to initialize coordinator: %v", err)
	}

	chunk := []sample.Sample{
		sample.EEGSample{Timestamp: 1000, FP1: 1, FP2: 2, SignalQuality: 0.5},
	}
	if err := coord.Write(ctx, chunk); err != nil {
		t.Fatalf("Fan-out did not overlap: %v", err)
	}
	if _, err := coord.Finalize(ctx); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}
}
