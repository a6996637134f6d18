package typeexpr

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCheckScalars(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		typ      string
		value    any
		wantOK   bool
		wantCode string
		wantMsg  string
	}{
		{"string ok", "str", "hello", true, "", ""},
		{"string rejects int", "str", 5, false, CodeInvalidType, "expected string, got int"},
		{"string rejects bool", "string", true, false, CodeInvalidType, "expected string, got bool"},

		{"int ok", "int", 42, true, "", ""},
		{"int64 ok", "int", int64(-7), true, "", ""},
		{"json number int ok", "int", json.Number("12"), true, "", ""},
		{"int rejects bool true", "int", true, false, CodeInvalidType, "expected integer, got bool"},
		{"int rejects bool false", "int", false, false, CodeInvalidType, "expected integer, got bool"},
		{"int rejects float", "int", 1.5, false, CodeInvalidType, "expected integer, got float"},
		{"int rejects json number float", "int", json.Number("1.5"), false, CodeInvalidType, "expected integer, got number"},
		{"int rejects string", "int", "12", false, CodeInvalidType, "expected integer, got str"},

		{"float ok", "float", 1.25, true, "", ""},
		{"float accepts int", "float", 3, true, "", ""},
		{"float accepts json number", "float", json.Number("2.5"), true, "", ""},
		{"float rejects bool", "float", true, false, CodeInvalidType, "expected number, got bool"},

		{"bool ok", "bool", false, true, "", ""},
		{"bool rejects int one", "bool", 1, false, CodeInvalidType, "expected boolean, got int"},
		{"bool rejects int zero", "bool", 0, false, CodeInvalidType, "expected boolean, got int"},

		{"none ok", "None", nil, true, "", ""},
		{"none rejects zero", "none", 0, false, CodeInvalidType, "expected None, got int"},
		{"any accepts nil", "Any", nil, true, "", ""},
		{"any accepts map", "any", map[string]any{"a": 1}, true, "", ""},

		{"datetime native", "datetime", now, true, "", ""},
		{"datetime rfc3339", "datetime", "2024-03-01T12:30:00Z", true, "", ""},
		{"datetime no zone", "datetime", "2024-03-01T12:30:00", true, "", ""},
		{"datetime fractional", "datetime", "2024-03-01T12:30:00.123456", true, "", ""},
		{"datetime space separator", "datetime", "2024-03-01 12:30:00", true, "", ""},
		{"datetime date only", "datetime", "2024-03-01", true, "", ""},
		{"datetime bad string", "datetime", "yesterday", false, CodeInvalidFormat, "invalid datetime format"},
		{"datetime wrong kind", "datetime", 1709296200, false, CodeInvalidType, "expected datetime or ISO format string, got int"},
		{"datetime pointer", "datetime", &now, true, "", ""},
		{"datetime nil pointer", "datetime", (*time.Time)(nil), false, CodeInvalidType, "expected datetime or ISO format string, got None"},
		{"optional datetime nil pointer", "Optional[datetime]", (*time.Time)(nil), true, "", ""},

		{"date ok", "date", "2024-03-01", true, "", ""},
		{"date native", "date", now, true, "", ""},
		{"date bad", "date", "03/01/2024", false, CodeInvalidFormat, "invalid date format"},
		{"date nil pointer", "date", (*time.Time)(nil), false, CodeInvalidType, "expected date or ISO format string, got None"},

		{"uuid string", "uuid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", true, "", ""},
		{"uuid native", "UUID", uuid.New(), true, "", ""},
		{"uuid bad", "uuid", "not-a-uuid", false, CodeInvalidFormat, "invalid uuid format"},
		{"uuid wrong kind", "uuid", 7, false, CodeInvalidType, "expected uuid string, got int"},

		{"json nested", "json", map[string]any{"a": []any{1, "x", nil}}, true, "", ""},
		{"json rejects func", "json", func() {}, false, CodeInvalidType, ""},

		{"unsupported", "decimal", 1, false, CodeUnsupportedType, "unsupported type: decimal"},
		{"unsupported never matches nil", "List", nil, false, CodeUnsupportedType, "unsupported type: List"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.value, Parse(tt.typ))
			if got.OK != tt.wantOK {
				t.Fatalf("Check(%v, %q).OK = %v, want %v (message %q)", tt.value, tt.typ, got.OK, tt.wantOK, got.Message)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestCheckComposites(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		value   any
		wantOK  bool
		wantMsg string
	}{
		{"empty list any elem", "List[int]", []any{}, true, ""},
		{"empty list unsupported elem", "List[foo]", []any{}, true, ""},
		{"empty map", "Dict[str, int]", map[string]any{}, true, ""},
		{"typed slice", "List[str]", []string{"a", "b"}, true, ""},
		{"list bad item", "List[int]", []any{1, 2, "x"}, false, "invalid item at index 2: expected integer, got str"},
		{"list first failure only", "List[int]", []any{"a", "b"}, false, "invalid item at index 0: expected integer, got str"},
		{"list rejects string", "List[str]", "abc", false, "expected list, got str"},
		{"list rejects map", "List[str]", map[string]any{}, false, "expected list, got dict"},

		{"dict ok", "Dict[str, int]", map[string]any{"a": 1, "b": 2}, true, ""},
		{"dict bad value", "Dict[str,int]", map[string]any{"a": "1"}, false, "invalid value for key 'a': expected integer, got str"},
		{"dict bad key", "Dict[int, str]", map[string]any{"a": "x"}, false, "invalid key: expected integer, got str"},
		{"dict int keys", "Dict[int, str]", map[int]string{1: "x"}, true, ""},
		{"dict rejects list", "Dict[str, Any]", []any{}, false, "expected dictionary, got list"},

		{"optional nil", "Optional[int]", nil, true, ""},
		{"optional nil unsupported inner", "Optional[foo]", nil, true, ""},
		{"optional delegates", "Optional[int]", "x", false, "expected integer, got str"},

		{"union first branch", "Union[str, int]", "x", true, ""},
		{"union second branch", "Union[str, int]", 3, true, ""},
		{
			"union rejects bool",
			"Union[str, int]",
			true,
			false,
			"value did not match any of the expected types: expected string, got bool, expected integer, got bool",
		},

		{
			"list of union of map",
			"List[Union[Dict[str, int], None]]",
			[]any{map[string]any{"a": 1}, nil, map[string]any{"b": 2}},
			true,
			"",
		},
		{
			"deep failure keeps path",
			"Dict[str, List[Dict[str, bool]]]",
			map[string]any{"k": []any{map[string]any{"flag": true}, map[string]any{"flag": "no"}}},
			false,
			"invalid value for key 'k': invalid item at index 1: invalid value for key 'flag': expected boolean, got str",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOK, gotMsg := Validate(tt.value, Parse(tt.typ))
			if gotOK != tt.wantOK {
				t.Fatalf("Validate(%v, %q) = %v, want %v (message %q)", tt.value, tt.typ, gotOK, tt.wantOK, gotMsg)
			}
			if gotMsg != tt.wantMsg {
				t.Errorf("message = %q, want %q", gotMsg, tt.wantMsg)
			}
		})
	}
}

func TestCheckOptionalMatchesInner(t *testing.T) {
	values := []any{1, "x", true, 2.5, []any{1}, map[string]any{"a": 1}}
	inner := []string{"int", "str", "bool", "float", "List[int]", "Dict[str, int]"}

	for _, typ := range inner {
		for _, v := range values {
			direct := Check(v, Parse(typ))
			wrapped := Check(v, Parse("Optional["+typ+"]"))
			if direct != wrapped {
				t.Errorf("Optional[%s] on %v = %+v, inner gives %+v", typ, v, wrapped, direct)
			}
		}
	}
}

func TestCheckUnionIsDisjunction(t *testing.T) {
	values := []any{nil, 1, "x", true, 2.5}
	pairs := [][2]string{{"str", "int"}, {"bool", "float"}, {"None", "str"}}

	for _, p := range pairs {
		u := Parse("Union[" + p[0] + ", " + p[1] + "]")
		for _, v := range values {
			a := Check(v, Parse(p[0]))
			b := Check(v, Parse(p[1]))
			got := Check(v, u)
			if got.OK != (a.OK || b.OK) {
				t.Errorf("%s on %v = %v, want %v", u, v, got.OK, a.OK || b.OK)
			}
			if !got.OK && (!strings.Contains(got.Message, a.Message) || !strings.Contains(got.Message, b.Message)) {
				t.Errorf("%s message %q does not reference both branches", u, got.Message)
			}
		}
	}
}
