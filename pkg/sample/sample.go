package sample

import (
	"encoding/json"
	"fmt"
)

// DataType identifies which sensor class a recording stream carries.
type DataType string

const (
	EEG       DataType = "eeg"
	PPG       DataType = "ppg"
	ACC       DataType = "acc"
	Processed DataType = "processed"
)

// Valid reports whether d is one of the known data types.
func (d DataType) Valid() bool {
	switch d {
	case EEG, PPG, ACC, Processed:
		return true
	}
	return false
}

func (d DataType) String() string { return string(d) }

// ParseDataType converts a string identifier to a DataType.
func ParseDataType(s string) (DataType, error) {
	d := DataType(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return d, nil
}

// Sample is one timestamped reading from a sensor, or a pre-processed
// derivative record. A writer handles exactly one sample variant for its
// whole lifetime; callers must not mix variants within a recording stream.
type Sample interface {
	DataType() DataType
	// Time returns the sample timestamp in milliseconds since the Unix epoch.
	Time() uint64
}

// EEGSample is a single two-channel EEG reading.
type EEGSample struct {
	Timestamp     uint64  `json:"timestamp"` // ms since epoch
	FP1           float32 `json:"fp1"`       // µV
	FP2           float32 `json:"fp2"`       // µV
	SignalQuality float32 `json:"signal_quality"` // 0..1, zero when the device reports none
}

func (EEGSample) DataType() DataType { return EEG }
func (s EEGSample) Time() uint64     { return s.Timestamp }

// PPGSample is a single photoplethysmography reading.
type PPGSample struct {
	Timestamp uint64  `json:"timestamp"` // ms since epoch
	Red       float32 `json:"red"`
	IR        float32 `json:"ir"`
}

func (PPGSample) DataType() DataType { return PPG }
func (s PPGSample) Time() uint64     { return s.Timestamp }

// ACCSample is a single 3-axis accelerometer reading. Magnitude is carried
// as reported by the producer, not recomputed from the axes.
type ACCSample struct {
	Timestamp uint64  `json:"timestamp"` // ms since epoch
	X         float32 `json:"x"`         // g
	Y         float32 `json:"y"`         // g
	Z         float32 `json:"z"`         // g
	Magnitude float32 `json:"magnitude"` // g
}

func (ACCSample) DataType() DataType { return ACC }
func (s ACCSample) Time() uint64     { return s.Timestamp }

// ProcessedSample is a derivative record with an arbitrary structured
// payload. It serializes as a single JSON object: the payload keys plus a
// "timestamp" key taken from the Timestamp field (the field wins over any
// payload key of the same name).
type ProcessedSample struct {
	Timestamp uint64
	Payload   map[string]any
}

func (ProcessedSample) DataType() DataType { return Processed }
func (s ProcessedSample) Time() uint64     { return s.Timestamp }

// MarshalJSON flattens the payload and timestamp into one object.
func (s ProcessedSample) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(s.Payload)+1)
	for k, v := range s.Payload {
		obj[k] = v
	}
	obj["timestamp"] = s.Timestamp
	return json.Marshal(obj)
}

// UnmarshalJSON splits the "timestamp" key back out of the payload object.
func (s *ProcessedSample) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if ts, ok := obj["timestamp"].(float64); ok {
		s.Timestamp = uint64(ts)
		delete(obj, "timestamp")
	}
	s.Payload = obj
	return nil
}
