// Package paramspace normalizes a declarative parameter search space
// into enumerated value lists and expands it into the Cartesian
// product of tasks, guarding against adversarial or accidentally huge
// grids along the way.
package paramspace

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// MaxRangeSteps bounds how many values a single range dimension may
// expand to before normalization aborts.
const MaxRangeSteps = 1_000_000

// defaultGuardFloor is the minimum value used for the per-multiply
// overflow guard, applied even when the configured limit is smaller.
const defaultGuardFloor = 500

// InvalidError carries the details a handler surfaces as E.PARAM_INVALID.
type InvalidError struct {
	Message string
	Details map[string]any
}

func (e *InvalidError) Error() string { return e.Message }

// Unwrap lets callers match this with errors.Is(err, optdomain.ErrParamInvalid).
func (e *InvalidError) Unwrap() error { return optdomain.ErrParamInvalid }

func invalid(msg string, details map[string]any) error {
	return &InvalidError{Message: msg, Details: details}
}

// Range is the {start, end, step} shape of a range dimension.
type Range struct {
	Start float64
	End   float64
	Step  float64
}

// Normalized holds each dimension's enumerated values; Keys gives the
// dimension order: the keyOrder keys present in paramSpace, then any
// remaining paramSpace keys in sorted order.
type Normalized struct {
	Keys   []string
	Values map[string][]any
}

// Len returns the number of values for key k.
func (n *Normalized) Len(k string) int { return len(n.Values[k]) }

// Normalize converts a raw paramSpace mapping into an ordered set of
// enumerated dimensions plus the Cartesian product estimate, enforcing
// the two-stage overflow guard described for create_optimization_job.
func Normalize(paramSpace map[string]any, keyOrder []string, limit int) (*Normalized, int, error) {
	if len(paramSpace) == 0 {
		return nil, 0, invalid("paramSpace must be a non-empty mapping", nil)
	}
	guard := limit
	if guard < defaultGuardFloor {
		guard = defaultGuardFloor
	}
	guard *= 4

	keys := make([]string, 0, len(paramSpace))
	seen := make(map[string]bool, len(paramSpace))
	for _, key := range append(append([]string(nil), keyOrder...), KeyOrderOf(paramSpace)...) {
		if _, ok := paramSpace[key]; ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	out := &Normalized{Keys: keys, Values: make(map[string][]any, len(paramSpace))}
	estimate := 1
	for _, key := range out.Keys {
		dim := paramSpace[key]
		values, err := normalizeDimension(key, dim)
		if err != nil {
			return nil, 0, err
		}
		out.Values[key] = values
		estimate *= len(values)
		if estimate > guard {
			return nil, 0, invalid("paramSpace product exceeds safety guard", map[string]any{
				"estimate": estimate,
				"limit":    limit,
			})
		}
	}

	if estimate > limit {
		return nil, 0, invalid("paramSpace product exceeds configured limit", map[string]any{
			"estimate": estimate,
			"limit":    limit,
		})
	}

	return out, estimate, nil
}

// KeyOrderOf extracts a stable key iteration order for a paramSpace
// mapping. JSON decoding into map[string]any loses declaration order,
// so callers that need lexicographic-by-declaration order (the HTTP
// layer decoding from an ordered wire format) should supply their own
// keyOrder; this fallback sorts keys for deterministic behavior when
// no order is available.
func KeyOrderOf(paramSpace map[string]any) []string {
	keys := make([]string, 0, len(paramSpace))
	for k := range paramSpace {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeDimension(key string, dim any) ([]any, error) {
	switch v := dim.(type) {
	case []any:
		return normalizeList(key, v)
	case map[string]any:
		return normalizeRange(key, v)
	case nil:
		return nil, invalid(fmt.Sprintf("dimension %q is null", key), map[string]any{"field": key})
	default:
		// scalar: number, string, bool — treated as a one-value list.
		return []any{v}, nil
	}
}

func normalizeList(key string, raw []any) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, v := range raw {
		if v == nil {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, invalid(fmt.Sprintf("dimension %q has no non-null values", key), map[string]any{"field": key})
	}
	return out, nil
}

func normalizeRange(key string, raw map[string]any) ([]any, error) {
	start, okStart := toFloat(raw["start"])
	end, okEnd := toFloat(raw["end"])
	step, okStep := toFloat(raw["step"])
	if !okStart || !okEnd || !okStep {
		return nil, invalid(fmt.Sprintf("dimension %q range requires numeric start/end/step", key), map[string]any{"field": key})
	}
	if step <= 0 {
		return nil, invalid(fmt.Sprintf("dimension %q range step must be > 0", key), map[string]any{"field": key})
	}
	return expandRange(key, start, end, step)
}

// expandRange walks start toward end in increments of step, rounding
// each value to 12 decimal places to tame float drift, guarding
// against runaway or empty expansions.
func expandRange(key string, start, end, step float64) ([]any, error) {
	dStart := decimal.NewFromFloat(start)
	dEnd := decimal.NewFromFloat(end)
	dStep := decimal.NewFromFloat(step).Abs()

	ascending := dEnd.GreaterThanOrEqual(dStart)
	if !ascending {
		dStep = dStep.Neg()
	}

	out := make([]any, 0, 64)
	current := dStart
	for i := 0; i <= MaxRangeSteps; i++ {
		reached := false
		if ascending {
			reached = current.GreaterThan(dEnd)
		} else {
			reached = current.LessThan(dEnd)
		}
		if reached {
			break
		}
		out = append(out, current.Round(12).InexactFloat64())
		if len(out) > MaxRangeSteps {
			return nil, invalid(fmt.Sprintf("dimension %q range exceeds %d values", key, MaxRangeSteps), map[string]any{"field": key})
		}
		current = current.Add(dStep)
	}

	if len(out) == 0 {
		return nil, invalid(fmt.Sprintf("dimension %q range produced no values", key), map[string]any{"field": key})
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true
	default:
		return 0, false
	}
}
