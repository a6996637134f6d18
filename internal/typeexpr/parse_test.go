package typeexpr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Expr
	}{
		{"str", "str", Scalar{Kind: KindString}},
		{"string alias", "string", Scalar{Kind: KindString}},
		{"int", "int", Scalar{Kind: KindInteger}},
		{"float", "float", Scalar{Kind: KindFloat}},
		{"bool", "bool", Scalar{Kind: KindBoolean}},
		{"datetime", "datetime", Scalar{Kind: KindDatetime}},
		{"date", "date", Scalar{Kind: KindDate}},
		{"uuid upper", "UUID", Scalar{Kind: KindUUID}},
		{"json", "json", Scalar{Kind: KindJSON}},
		{"any lower", "any", Scalar{Kind: KindAny}},
		{"none lower", "none", Scalar{Kind: KindNull}},
		{"surrounding whitespace", "  int ", Scalar{Kind: KindInteger}},
		{"list", "List[str]", List{Elem: Scalar{Kind: KindString}}},
		{"dict no space", "Dict[str,int]", Map{Key: Scalar{Kind: KindString}, Value: Scalar{Kind: KindInteger}}},
		{"dict with space", "Dict[str, int]", Map{Key: Scalar{Kind: KindString}, Value: Scalar{Kind: KindInteger}}},
		{"optional", "Optional[float]", Optional{Elem: Scalar{Kind: KindFloat}}},
		{
			"union",
			"Union[str, int, None]",
			Union{Options: []Expr{Scalar{Kind: KindString}, Scalar{Kind: KindInteger}, Scalar{Kind: KindNull}}},
		},
		{
			"nested commas stay inside brackets",
			"Dict[str, Union[int, List[str]]]",
			Map{
				Key: Scalar{Kind: KindString},
				Value: Union{Options: []Expr{
					Scalar{Kind: KindInteger},
					List{Elem: Scalar{Kind: KindString}},
				}},
			},
		},
		{
			"deep nesting",
			"List[Union[Dict[str, int], None]]",
			List{Elem: Union{Options: []Expr{
				Map{Key: Scalar{Kind: KindString}, Value: Scalar{Kind: KindInteger}},
				Scalar{Kind: KindNull},
			}}},
		},
		{"unknown word nested", "List[foo]", List{Elem: Unsupported{Raw: "foo"}}},
		{"unknown word", "decimal", Unsupported{Raw: "decimal"}},
		{"empty", "", Unsupported{Raw: ""}},
		{"bare List", "List", Unsupported{Raw: "List"}},
		{"bare dict", "dict", Unsupported{Raw: "dict"}},
		{"lowercase constructor", "list[str]", Unsupported{Raw: "list[str]"}},
		{"dict arity", "Dict[str]", Unsupported{Raw: "Dict[str]"}},
		{"list arity", "List[str, int]", Unsupported{Raw: "List[str, int]"}},
		{"empty interior", "List[]", Unsupported{Raw: "List[]"}},
		{"empty union member", "Union[str,]", Unsupported{Raw: "Union[str,]"}},
		{"unbalanced", "List[List[str]", Unsupported{Raw: "List[List[str]"}},
		{"trailing text", "List[str]x", Unsupported{Raw: "List[str]x"}},
		{"two groups", "List[str][int]", Unsupported{Raw: "List[str][int]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestExprString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"string", "str"},
		{"UUID", "uuid"},
		{"Dict[str,int]", "Dict[str, int]"},
		{"Optional[ List[ Union[int,None] ] ]", "Optional[List[Union[int, None]]]"},
		{"nonsense", "nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Parse(tt.raw).String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"int", true},
		{"Dict[str, List[int]]", true},
		{"List[foo]", false},
		{"Union[int, bar]", false},
		{"Optional[x]", false},
		{"List", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := IsSupported(Parse(tt.raw)); got != tt.want {
				t.Errorf("IsSupported(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsBareCollection(t *testing.T) {
	for _, raw := range []string{"List", "Dict", "list", "dict", " List "} {
		if !IsBareCollection(raw) {
			t.Errorf("IsBareCollection(%q) = false, want true", raw)
		}
	}
	for _, raw := range []string{"List[str]", "Dict[str, int]", "json", "str"} {
		if IsBareCollection(raw) {
			t.Errorf("IsBareCollection(%q) = true, want false", raw)
		}
	}
}
