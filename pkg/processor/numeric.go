package processor

import (
	"fmt"
	"math"
	"strconv"
)

// Coercion helpers for the loosely typed gateway documents. All of these are
// total: any input shape maps to a value or nil, never an error.

// asFloat returns the value as a float, nil when it is missing or not
// numeric. Numeric strings count as numeric; the gateway emits counters both
// ways depending on firmware version.
func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case uint64:
		f := float64(n)
		return &f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// scaled divides the coerced value by divisor, propagating nil.
func scaled(v any, divisor float64) *float64 {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	r := *f / divisor
	return &r
}

// kilowattHours converts the gateway's Wh-style counters to kWh.
func kilowattHours(v any) *float64 {
	return scaled(v, 1000)
}

// roundTo rounds to the given number of decimals, propagating nil.
func roundTo(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	p := math.Pow(10, float64(decimals))
	r := math.Round(*v*p) / p
	return &r
}

// asMap returns the value as a mapping, empty when it is anything else.
func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// asList returns the value as a list, empty when it is anything else.
func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{}
}

// firstEntry returns the first list element when it is a mapping, else an
// empty mapping.
func firstEntry(v any) map[string]any {
	entries := asList(v)
	if len(entries) > 0 {
		if m, ok := entries[0].(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

// listAt returns the list element at index as a mapping; out-of-range means
// an empty mapping and therefore nil-valued derived fields.
func listAt(v any, index int) map[string]any {
	entries := asList(v)
	if index >= 0 && index < len(entries) {
		return asMap(entries[index])
	}
	return map[string]any{}
}

// asString stringifies the value, keeping nil as nil.
func asString(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
