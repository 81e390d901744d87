package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
)

// sampleSource yields chunks of samples until exhausted.
type sampleSource interface {
	// Next returns the next chunk. It returns io.EOF, possibly alongside
	// a final partial chunk, when the source is drained.
	Next() ([]sample.Sample, error)
	Close() error
}

// jsonlSource reads one JSON sample object per line.
type jsonlSource struct {
	scanner   *bufio.Scanner
	closer    io.Closer
	dataType  sample.DataType
	chunkSize int
	line      int
}

func newJSONLSource(r io.Reader, dt sample.DataType, chunkSize int) *jsonlSource {
	scanner := bufio.NewScanner(r)
	// Processed payloads can be large; size the line buffer accordingly
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	s := &jsonlSource{
		scanner:   scanner,
		dataType:  dt,
		chunkSize: chunkSize,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *jsonlSource) Next() ([]sample.Sample, error) {
	chunk := make([]sample.Sample, 0, s.chunkSize)
	for len(chunk) < s.chunkSize {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return chunk, fmt.Errorf("read input: %w", err)
			}
			return chunk, io.EOF
		}
		s.line++
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		smp, err := sample.Decode(s.dataType, line)
		if err != nil {
			return chunk, fmt.Errorf("line %d: %w", s.line, err)
		}
		chunk = append(chunk, smp)
	}
	return chunk, nil
}

func (s *jsonlSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// syntheticSource generates plausible sensor waveforms for test runs
// without a device: sinusoidal EEG and PPG, gravity-dominated ACC and a
// slowly drifting processed metric set.
type syntheticSource struct {
	dataType  sample.DataType
	chunkSize int
	remaining int
	start     uint64
	stepMs    float64
	tick      int
	focus     float64
	stress    float64
}

func newSyntheticSource(dt sample.DataType, rate int, duration time.Duration, chunkSize int) *syntheticSource {
	if rate <= 0 {
		rate = 1
	}
	return &syntheticSource{
		dataType:  dt,
		chunkSize: chunkSize,
		remaining: int(duration.Seconds() * float64(rate)),
		start:     uint64(time.Now().UnixMilli()),
		stepMs:    1000.0 / float64(rate),
		focus:     0.7,
		stress:    0.3,
	}
}

func (s *syntheticSource) Next() ([]sample.Sample, error) {
	if s.remaining <= 0 {
		return nil, io.EOF
	}

	n := s.chunkSize
	if n > s.remaining {
		n = s.remaining
	}
	chunk := make([]sample.Sample, 0, n)
	for i := 0; i < n; i++ {
		chunk = append(chunk, s.generate())
		s.tick++
	}
	s.remaining -= n
	if s.remaining == 0 {
		return chunk, io.EOF
	}
	return chunk, nil
}

func (s *syntheticSource) generate() sample.Sample {
	t := float64(s.tick) * s.stepMs / 1000.0
	ts := s.start + uint64(math.Round(float64(s.tick)*s.stepMs))

	switch s.dataType {
	case sample.EEG:
		// 10Hz alpha carrier with noise on both channels
		alpha := 20 * math.Sin(2*math.Pi*10*t)
		return sample.EEGSample{
			Timestamp:     ts,
			FP1:           float32(alpha + rand.NormFloat64()*5),
			FP2:           float32(alpha*0.9 + rand.NormFloat64()*5),
			SignalQuality: float32(0.8 + rand.Float64()*0.2),
		}
	case sample.PPG:
		// 72bpm pulse on a DC baseline
		pulse := math.Sin(2 * math.Pi * 1.2 * t)
		return sample.PPGSample{
			Timestamp: ts,
			Red:       float32(2048 + 300*pulse + rand.NormFloat64()*10),
			IR:        float32(4096 + 500*pulse + rand.NormFloat64()*10),
		}
	case sample.ACC:
		x := rand.NormFloat64() * 0.02
		y := rand.NormFloat64() * 0.02
		z := 1 + rand.NormFloat64()*0.02
		return sample.ACCSample{
			Timestamp: ts,
			X:         float32(x),
			Y:         float32(y),
			Z:         float32(z),
			Magnitude: float32(math.Sqrt(x*x + y*y + z*z)),
		}
	default:
		// Random-walk wellness metrics clamped to [0, 1]
		s.focus = clamp01(s.focus + rand.NormFloat64()*0.02)
		s.stress = clamp01(s.stress + rand.NormFloat64()*0.02)
		return sample.ProcessedSample{
			Timestamp: ts,
			Payload: map[string]any{
				"focus":      round3(s.focus),
				"stress":     round3(s.stress),
				"relaxation": round3(clamp01(1 - s.stress)),
			},
		}
	}
}

func (s *syntheticSource) Close() error { return nil }

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
