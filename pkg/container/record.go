package container

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
)

// MaxProcessedPayload bounds a single processed record's JSON payload.
// Anything larger is treated as corruption rather than decoded.
const MaxProcessedPayload = 16 << 20

const (
	eegRecordSize = 20
	ppgRecordSize = 16
	accRecordSize = 24
)

// RecordSize returns the fixed per-record byte length for dt, or -1 when
// records are length-prefixed (processed).
func RecordSize(dt sample.DataType) int {
	switch dt {
	case sample.EEG:
		return eegRecordSize
	case sample.PPG:
		return ppgRecordSize
	case sample.ACC:
		return accRecordSize
	}
	return -1
}

// AppendRecord appends the binary encoding of s to dst and returns the
// extended slice.
func AppendRecord(dst []byte, s sample.Sample) ([]byte, error) {
	switch v := s.(type) {
	case sample.EEGSample:
		var b [eegRecordSize]byte
		binary.LittleEndian.PutUint64(b[0:8], v.Timestamp)
		binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v.FP1))
		binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(v.FP2))
		binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(v.SignalQuality))
		return append(dst, b[:]...), nil
	case sample.PPGSample:
		var b [ppgRecordSize]byte
		binary.LittleEndian.PutUint64(b[0:8], v.Timestamp)
		binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v.Red))
		binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(v.IR))
		return append(dst, b[:]...), nil
	case sample.ACCSample:
		var b [accRecordSize]byte
		binary.LittleEndian.PutUint64(b[0:8], v.Timestamp)
		binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(v.Z))
		binary.LittleEndian.PutUint32(b[20:24], math.Float32bits(v.Magnitude))
		return append(dst, b[:]...), nil
	case sample.ProcessedSample:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal processed payload: %w", err)
		}
		if len(payload) > MaxProcessedPayload {
			return nil, fmt.Errorf("container: processed payload %d bytes exceeds limit", len(payload))
		}
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(payload)))
		dst = append(dst, l[:]...)
		return append(dst, payload...), nil
	}
	return nil, fmt.Errorf("container: unsupported sample type %T", s)
}

func decodeEEG(b []byte) sample.EEGSample {
	return sample.EEGSample{
		Timestamp:     binary.LittleEndian.Uint64(b[0:8]),
		FP1:           math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		FP2:           math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
		SignalQuality: math.Float32frombits(binary.LittleEndian.Uint32(b[16:20])),
	}
}

func decodePPG(b []byte) sample.PPGSample {
	return sample.PPGSample{
		Timestamp: binary.LittleEndian.Uint64(b[0:8]),
		Red:       math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		IR:        math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
	}
}

func decodeACC(b []byte) sample.ACCSample {
	return sample.ACCSample{
		Timestamp: binary.LittleEndian.Uint64(b[0:8]),
		X:         math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		Y:         math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
		Z:         math.Float32frombits(binary.LittleEndian.Uint32(b[16:20])),
		Magnitude: math.Float32frombits(binary.LittleEndian.Uint32(b[20:24])),
	}
}
