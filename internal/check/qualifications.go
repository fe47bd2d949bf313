package check

import (
	"math"
	"strconv"
	"strings"
)

const (
	minWeight = 1
	maxWeight = 10
)

// CoerceWeight converts a loosely typed weight (JSON number, integer or
// numeric string) into an integer importance weight. The second return value
// is false when the value is not an integer or falls outside [1,10].
func CoerceWeight(v any) (int, bool) {
	var w int

	switch val := v.(type) {
	case int:
		w = val
	case int64:
		w = int(val)
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		w = int(val)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		w = parsed
	default:
		return 0, false
	}

	if w < minWeight || w > maxWeight {
		return 0, false
	}

	return w, true
}

// RawQualification is a qualification entry before validation, as decoded
// from a request body or a model response. Weight stays untyped so malformed
// values can be dropped instead of failing the whole decode.
type RawQualification struct {
	Name   string `json:"qualification"`
	Weight any    `json:"weight"`
}

// FilterQualifications validates raw entries and returns the usable ones in
// their original order, along with the number of dropped entries. Entries with
// an empty name or an uncoercible/out-of-range weight are dropped silently;
// callers are expected to log the dropped count.
func FilterQualifications(raw []RawQualification) ([]Qualification, int) {
	kept := make([]Qualification, 0, len(raw))
	dropped := 0

	for _, entry := range raw {
		name := strings.TrimSpace(entry.Name)
		weight, ok := CoerceWeight(entry.Weight)
		if name == "" || !ok {
			dropped++
			continue
		}
		kept = append(kept, Qualification{Name: name, Weight: weight})
	}

	return kept, dropped
}
