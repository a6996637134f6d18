package typeexpr

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result codes reported by Check.
const (
	CodeInvalidType     = "invalid_type"
	CodeInvalidFormat   = "invalid_format"
	CodeUnsupportedType = "unsupported_type"
)

// Result is the outcome of checking one value against one expression.
type Result struct {
	OK      bool
	Code    string
	Message string
}

// Valid reports whether the check succeeded.
func (r Result) Valid() bool { return r.OK }

var pass = Result{OK: true}

func fail(code, format string, args ...any) Result {
	return Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validate is the two-value form of Check.
func Validate(value any, e Expr) (bool, string) {
	r := Check(value, e)
	return r.OK, r.Message
}

// Check reports whether value conforms to e. Only the first failure inside a
// composite is reported.
func Check(value any, e Expr) Result {
	switch t := e.(type) {
	case Scalar:
		return checkScalar(value, t.Kind)
	case List:
		return checkList(value, t)
	case Map:
		return checkMap(value, t)
	case Union:
		return checkUnion(value, t)
	case Optional:
		if isNil(value) {
			return pass
		}
		return Check(value, t.Elem)
	case Unsupported:
		return fail(CodeUnsupportedType, "unsupported type: %s", t.Raw)
	default:
		panic(fmt.Sprintf("typeexpr: unknown expression %T", e))
	}
}

func checkScalar(value any, kind Kind) Result {
	switch kind {
	case KindAny:
		return pass
	case KindNull:
		if isNil(value) {
			return pass
		}
		return fail(CodeInvalidType, "expected None, got %s", typeName(value))
	case KindString:
		if _, isStr := value.(string); isStr {
			return pass
		}
		return fail(CodeInvalidType, "expected string, got %s", typeName(value))
	case KindBoolean:
		if _, isBool := value.(bool); isBool {
			return pass
		}
		return fail(CodeInvalidType, "expected boolean, got %s", typeName(value))
	case KindInteger:
		if isInteger(value) {
			return pass
		}
		return fail(CodeInvalidType, "expected integer, got %s", typeName(value))
	case KindFloat:
		if isNumber(value) {
			return pass
		}
		return fail(CodeInvalidType, "expected number, got %s", typeName(value))
	case KindDatetime:
		return checkTemporal(value, "datetime", parseDatetime)
	case KindDate:
		return checkTemporal(value, "date", parseDate)
	case KindUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return pass
		case string:
			if _, err := uuid.Parse(v); err != nil {
				return fail(CodeInvalidFormat, "invalid uuid format")
			}
			return pass
		}
		return fail(CodeInvalidType, "expected uuid string, got %s", typeName(value))
	case KindJSON:
		if isJSONValue(reflect.ValueOf(value)) {
			return pass
		}
		return fail(CodeInvalidType, "expected JSON value, got %s", typeName(value))
	}
	return fail(CodeUnsupportedType, "unsupported type: %s", kind)
}

func checkTemporal(value any, label string, parseFn func(string) bool) Result {
	switch v := value.(type) {
	case time.Time:
		return pass
	case *time.Time:
		if v != nil {
			return pass
		}
	case string:
		if parseFn(v) {
			return pass
		}
		return fail(CodeInvalidFormat, "invalid %s format", label)
	}
	return fail(CodeInvalidType, "expected %s or ISO format string, got %s", label, typeName(value))
}

func checkList(value any, l List) Result {
	rv := reflect.ValueOf(value)
	if !isSequence(rv) {
		return fail(CodeInvalidType, "expected list, got %s", typeName(value))
	}
	for i := 0; i < rv.Len(); i++ {
		if r := Check(rv.Index(i).Interface(), l.Elem); !r.OK {
			return Result{Code: r.Code, Message: fmt.Sprintf("invalid item at index %d: %s", i, r.Message)}
		}
	}
	return pass
}

func checkMap(value any, m Map) Result {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return fail(CodeInvalidType, "expected dictionary, got %s", typeName(value))
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	for _, k := range keys {
		key := k.Interface()
		if r := Check(key, m.Key); !r.OK {
			return Result{Code: r.Code, Message: "invalid key: " + r.Message}
		}
		if r := Check(rv.MapIndex(k).Interface(), m.Value); !r.OK {
			return Result{Code: r.Code, Message: fmt.Sprintf("invalid value for key '%v': %s", key, r.Message)}
		}
	}
	return pass
}

func checkUnion(value any, u Union) Result {
	reasons := make([]string, 0, len(u.Options))
	for _, opt := range u.Options {
		r := Check(value, opt)
		if r.OK {
			return pass
		}
		reasons = append(reasons, r.Message)
	}
	return fail(CodeInvalidType, "value did not match any of the expected types: %s", strings.Join(reasons, ", "))
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case bool:
		return false
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(value any) bool {
	if v, isNum := value.(json.Number); isNum {
		_, err := v.Float64()
		return err == nil
	}
	if isInteger(value) {
		return true
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// isSequence excludes strings and byte slices, which are scalar values here.
func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func isJSONValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return true
		}
		return isJSONValue(rv.Elem())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !isJSONValue(rv.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !isJSONValue(iter.Value()) {
				return false
			}
		}
		return true
	case reflect.Struct:
		return rv.Type() == reflect.TypeOf(time.Time{})
	}
	return false
}

// typeName renders the kind of value for error messages.
func typeName(value any) string {
	if isNil(value) {
		return "None"
	}
	switch value.(type) {
	case string:
		return "str"
	case bool:
		return "bool"
	case json.Number:
		return "number"
	case time.Time:
		return "datetime"
	}
	rv := reflect.ValueOf(value)
	switch {
	case isInteger(value):
		return "int"
	case rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64:
		return "float"
	case isSequence(rv):
		return "list"
	case rv.Kind() == reflect.Map:
		return "dict"
	}
	return rv.Type().String()
}
