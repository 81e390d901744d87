package sample

import (
	"encoding/json"
	"fmt"
)

// Decode parses one line-delimited JSON record into the sample variant for
// dt. It is the inverse of marshaling a Sample with encoding/json, so any
// line produced by the JSONL writer round-trips through it.
func Decode(dt DataType, data []byte) (Sample, error) {
	switch dt {
	case EEG:
		var s EEGSample
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode eeg sample: %w", err)
		}
		return s, nil
	case PPG:
		var s PPGSample
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode ppg sample: %w", err)
		}
		return s, nil
	case ACC:
		var s ACCSample
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode acc sample: %w", err)
		}
		return s, nil
	case Processed:
		var s ProcessedSample
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode processed sample: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown data type %q", dt)
	}
}
