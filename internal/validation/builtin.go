package validation

import (
	"fmt"
	"reflect"
	"strings"
)

// RegisterBuiltins adds the general purpose checks every deployment ships with.
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]Func{
		"not_blank":    notBlank,
		"positive":     positive,
		"non_negative": nonNegative,
		"non_empty":    nonEmpty,
		"unique_items": uniqueItems,
	}
	for name, fn := range builtins {
		if err := r.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func notBlank(data map[string]any, fields []string, acc Accumulator) error {
	for _, f := range fields {
		if s, ok := data[f].(string); ok && strings.TrimSpace(s) == "" {
			acc.AddError(f, f+" must not be blank", "blank")
		}
	}
	return nil
}

func positive(data map[string]any, fields []string, acc Accumulator) error {
	return compareZero(data, fields, acc, func(n float64) bool { return n > 0 }, "must be positive")
}

func nonNegative(data map[string]any, fields []string, acc Accumulator) error {
	return compareZero(data, fields, acc, func(n float64) bool { return n >= 0 }, "must not be negative")
}

func compareZero(data map[string]any, fields []string, acc Accumulator, okFn func(float64) bool, msg string) error {
	for _, f := range fields {
		v, present := data[f]
		if !present || v == nil {
			continue
		}
		n, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if !okFn(n) {
			acc.AddError(f, f+" "+msg, "out_of_range")
		}
	}
	return nil
}

func nonEmpty(data map[string]any, fields []string, acc Accumulator) error {
	for _, f := range fields {
		v, present := data[f]
		if !present || v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			if rv.Len() == 0 {
				acc.AddError(f, f+" must not be empty", "empty")
			}
		}
	}
	return nil
}

func uniqueItems(data map[string]any, fields []string, acc Accumulator) error {
	for _, f := range fields {
		rv := reflect.ValueOf(data[f])
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			continue
		}
		seen := make(map[string]bool, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			key := fmt.Sprintf("%#v", rv.Index(i).Interface())
			if seen[key] {
				acc.AddError(f, fmt.Sprintf("%s contains duplicate item at index %d", f, i), "duplicate")
				break
			}
			seen[key] = true
		}
	}
	return nil
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	if s, ok := v.(interface{ Float64() (float64, error) }); ok {
		return s.Float64()
	}
	return 0, fmt.Errorf("not a number: %T", v)
}
