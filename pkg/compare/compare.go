package compare

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/aster/pkg/schema"
)

const dateLayout = "2006-01-02"

// DefaultFloatTolerance is the absolute difference below which two
// floating point values are considered equal.
const DefaultFloatTolerance = 1e-4

// Options tunes the comparator per entity kind.
type Options struct {
	// FloatTolerance overrides DefaultFloatTolerance when > 0.
	FloatTolerance float64
	// RoundFloats rounds candidate floats to N decimal places before
	// comparing and writing. Zero disables rounding.
	RoundFloats int
	// TrimStrings trims candidate strings before comparing and writing.
	TrimStrings bool
}

// Change is one detected difference, in candidate declaration order.
type Change struct {
	Field    string
	Previous any
	Current  any
}

// Result is the output of one Diff call. Applied holds the normalized
// values to write for the changed columns, in the same order as
// Changes. Unknown lists candidate columns the descriptor does not
// know; they are skipped, never written.
type Result struct {
	Changes []Change
	Applied *schema.FieldMap
	Unknown []string
}

// Diff compares an existing row against a candidate field map. It is a
// pure function: no logging, no store access. A column is skipped only
// when both sides are empty; a candidate that goes empty while the row
// holds a value produces a change that nulls the stored value out.
func Diff(existing map[string]any, candidate *schema.FieldMap, desc schema.Descriptor, opts Options) Result {
	res := Result{Applied: &schema.FieldMap{}}

	for _, entry := range candidate.Entries() {
		field, ok := desc.Field(entry.Column)
		if !ok {
			res.Unknown = append(res.Unknown, entry.Column)
			continue
		}

		current := normalizeCandidate(field.Kind, entry.Value, opts)
		previous := normalizeExisting(field.Kind, existing[entry.Column])
		if previous == nil && current == nil {
			continue
		}
		if valuesEqual(field.Kind, previous, current, opts) {
			continue
		}

		res.Changes = append(res.Changes, Change{
			Field:    entry.Column,
			Previous: previous,
			Current:  current,
		})
		res.Applied.Set(entry.Column, current)
	}

	return res
}

// InsertFields normalizes a candidate for a fresh insert: empty values
// and unknown columns are dropped, everything else is coerced to its
// column kind.
func InsertFields(candidate *schema.FieldMap, desc schema.Descriptor, opts Options) *schema.FieldMap {
	out := &schema.FieldMap{}
	for _, entry := range candidate.Entries() {
		field, ok := desc.Field(entry.Column)
		if !ok {
			continue
		}
		value := normalizeCandidate(field.Kind, entry.Value, opts)
		if value == nil {
			continue
		}
		out.Set(entry.Column, value)
	}
	return out
}

// normalizeCandidate coerces a candidate value to its column kind. Nil
// means empty. Numeric values that will not parse stay strings and get
// compared as such; dates that will not parse count as empty.
func normalizeCandidate(kind schema.FieldKind, v any, opts Options) any {
	if isEmpty(v) {
		return nil
	}

	switch kind {
	case schema.KindText:
		s := toString(v)
		if opts.TrimStrings {
			s = strings.TrimSpace(s)
		}
		if s == "" {
			return nil
		}
		return s
	case schema.KindInteger:
		if n, ok := toInt(v); ok {
			return n
		}
		return toString(v)
	case schema.KindFloat:
		f, ok := toFloat(v)
		if !ok {
			return toString(v)
		}
		if opts.RoundFloats > 0 {
			shift := math.Pow(10, float64(opts.RoundFloats))
			f = math.Round(f*shift) / shift
		}
		return f
	case schema.KindDate:
		if t, ok := toDate(v); ok {
			return t
		}
		return nil
	default:
		return v
	}
}

// normalizeExisting coerces a stored value (as scanned from the row)
// to the same shape normalizeCandidate produces. Empty stays nil.
func normalizeExisting(kind schema.FieldKind, v any) any {
	if isEmpty(v) {
		return nil
	}

	switch kind {
	case schema.KindText:
		return toString(v)
	case schema.KindInteger:
		if n, ok := toInt(v); ok {
			return n
		}
		return toString(v)
	case schema.KindFloat:
		if f, ok := toFloat(v); ok {
			return f
		}
		return toString(v)
	case schema.KindDate:
		if t, ok := toDate(v); ok {
			return t
		}
	}
	return v
}

func valuesEqual(kind schema.FieldKind, previous, current any, opts Options) bool {
	if previous == nil || current == nil {
		return previous == nil && current == nil
	}

	switch kind {
	case schema.KindFloat:
		p, pok := previous.(float64)
		c, cok := current.(float64)
		if pok && cok {
			tolerance := opts.FloatTolerance
			if tolerance <= 0 {
				tolerance = DefaultFloatTolerance
			}
			return floatsEqual(p, c, tolerance)
		}
	case schema.KindInteger:
		p, pok := previous.(int64)
		c, cok := current.(int64)
		if pok && cok {
			return p == c
		}
	case schema.KindDate:
		p, pok := previous.(time.Time)
		c, cok := current.(time.Time)
		if pok && cok {
			py, pm, pd := p.Date()
			cy, cm, cd := c.Date()
			return py == cy && pm == cm && pd == cd
		}
	case schema.KindText:
		p, pok := previous.(string)
		c, cok := current.(string)
		if pok && cok {
			if opts.TrimStrings {
				return strings.TrimSpace(p) == strings.TrimSpace(c)
			}
			return p == c
		}
	}

	return fmt.Sprintf("%v", previous) == fmt.Sprintf("%v", current)
}

// floatsEqual widens the tolerance by a relative epsilon so values
// that differ by exactly the tolerance in decimal still compare equal
// despite binary representation noise.
func floatsEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance*(1+1e-9)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []byte:
		return strings.TrimSpace(string(t)) == ""
	case time.Time:
		return t.IsZero()
	}
	return false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case float32:
		return int64(t), true
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func toDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(t))
		return parsed, err == nil
	case []byte:
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(string(t)))
		return parsed, err == nil
	}
	return time.Time{}, false
}
