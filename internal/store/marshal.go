package store

import (
	"fmt"

	"github.com/roach88/herald/internal/ir"
)

// marshalValue converts a Value to canonical JSON TEXT for storage.
// A nil value is stored as null.
func marshalValue(v ir.Value) (string, error) {
	if v == nil {
		v = ir.Null{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back into a Value.
// Integers survive exactly; ir.ParseValue never goes through float64.
func unmarshalValue(data string) (ir.Value, error) {
	v, err := ir.ParseValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
