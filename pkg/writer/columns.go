package writer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
)

// Column layouts for the fixed sample variants. Processed streams derive
// theirs from the payload, timestamp first and the rest sorted.
var (
	eegColumns = []string{"timestamp", "fp1", "fp2", "signal_quality"}
	ppgColumns = []string{"timestamp", "red", "ir"}
	accColumns = []string{"timestamp", "x", "y", "z", "magnitude"}
)

// fieldValues renders a sample into its column names, in order, and a
// map of stringified cell values keyed by column.
func fieldValues(s sample.Sample) ([]string, map[string]string, error) {
	switch v := s.(type) {
	case sample.EEGSample:
		return eegColumns, map[string]string{
			"timestamp":      strconv.FormatUint(v.Timestamp, 10),
			"fp1":            formatFloat32(v.FP1),
			"fp2":            formatFloat32(v.FP2),
			"signal_quality": formatFloat32(v.SignalQuality),
		}, nil
	case sample.PPGSample:
		return ppgColumns, map[string]string{
			"timestamp": strconv.FormatUint(v.Timestamp, 10),
			"red":       formatFloat32(v.Red),
			"ir":        formatFloat32(v.IR),
		}, nil
	case sample.ACCSample:
		return accColumns, map[string]string{
			"timestamp": strconv.FormatUint(v.Timestamp, 10),
			"x":         formatFloat32(v.X),
			"y":         formatFloat32(v.Y),
			"z":         formatFloat32(v.Z),
			"magnitude": formatFloat32(v.Magnitude),
		}, nil
	case sample.ProcessedSample:
		return processedFieldValues(v)
	}
	return nil, nil, fmt.Errorf("unsupported sample type %T", s)
}

func processedFieldValues(v sample.ProcessedSample) ([]string, map[string]string, error) {
	keys := make([]string, 0, len(v.Payload))
	for k := range v.Payload {
		if k == "timestamp" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, 0, len(keys)+1)
	cols = append(cols, "timestamp")
	cols = append(cols, keys...)

	vals := make(map[string]string, len(cols))
	vals["timestamp"] = strconv.FormatUint(v.Timestamp, 10)
	for _, k := range keys {
		cell, err := formatValue(v.Payload[k])
		if err != nil {
			return nil, nil, fmt.Errorf("payload field %q: %w", k, err)
		}
		vals[k] = cell
	}
	return cols, vals, nil
}

// formatFloat32 renders the shortest decimal string that round-trips the
// value at 32-bit precision.
func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

// formatValue stringifies one processed payload value for a tabular cell.
// Scalars keep their natural rendering, nested structures flatten to
// compact JSON and nil becomes the empty cell.
func formatValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return formatFloat32(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case json.Number:
		return t.String(), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
