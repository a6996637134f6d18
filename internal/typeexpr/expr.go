// Package typeexpr parses and evaluates the type expressions used in model
// field definitions, e.g. "Optional[List[Dict[str, int]]]".
package typeexpr

import (
	"strings"
)

// Kind identifies a scalar type.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindDatetime
	KindDate
	KindUUID
	KindJSON
	KindNull
	KindAny
)

var kindNames = map[Kind]string{
	KindString:   "str",
	KindInteger:  "int",
	KindFloat:    "float",
	KindBoolean:  "bool",
	KindDatetime: "datetime",
	KindDate:     "date",
	KindUUID:     "uuid",
	KindJSON:     "json",
	KindNull:     "None",
	KindAny:      "Any",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// scalarWords is the closed set of scalar spellings accepted by Parse.
var scalarWords = map[string]Kind{
	"str":      KindString,
	"string":   KindString,
	"int":      KindInteger,
	"float":    KindFloat,
	"bool":     KindBoolean,
	"datetime": KindDatetime,
	"date":     KindDate,
	"uuid":     KindUUID,
	"UUID":     KindUUID,
	"json":     KindJSON,
	"Any":      KindAny,
	"any":      KindAny,
	"None":     KindNull,
	"none":     KindNull,
}

// Expr is a parsed type expression. The set of implementations is closed.
type Expr interface {
	String() string
	isExpr()
}

// Scalar matches a single primitive kind.
type Scalar struct {
	Kind Kind
}

// List matches any sequence whose items all match Elem.
type List struct {
	Elem Expr
}

// Map matches any mapping whose keys match Key and values match Value.
type Map struct {
	Key   Expr
	Value Expr
}

// Union matches when at least one option matches.
type Union struct {
	Options []Expr
}

// Optional matches nil or Elem.
type Optional struct {
	Elem Expr
}

// Unsupported is produced for anything outside the grammar. It never matches.
type Unsupported struct {
	Raw string
}

func (Scalar) isExpr()      {}
func (List) isExpr()        {}
func (Map) isExpr()         {}
func (Union) isExpr()       {}
func (Optional) isExpr()    {}
func (Unsupported) isExpr() {}

func (s Scalar) String() string { return s.Kind.String() }
func (l List) String() string   { return "List[" + l.Elem.String() + "]" }
func (m Map) String() string {
	return "Dict[" + m.Key.String() + ", " + m.Value.String() + "]"
}
func (o Optional) String() string    { return "Optional[" + o.Elem.String() + "]" }
func (u Unsupported) String() string { return u.Raw }

func (u Union) String() string {
	parts := make([]string, len(u.Options))
	for i, opt := range u.Options {
		parts[i] = opt.String()
	}
	return "Union[" + strings.Join(parts, ", ") + "]"
}

// IsSupported reports whether e and every nested expression is inside the grammar.
func IsSupported(e Expr) bool {
	switch t := e.(type) {
	case Scalar:
		return true
	case List:
		return IsSupported(t.Elem)
	case Map:
		return IsSupported(t.Key) && IsSupported(t.Value)
	case Optional:
		return IsSupported(t.Elem)
	case Union:
		for _, opt := range t.Options {
			if !IsSupported(opt) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsBareCollection reports whether raw is an unparameterised collection name.
// Such fields are stored as documents and have no column-level type.
func IsBareCollection(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "List", "Dict", "list", "dict":
		return true
	}
	return false
}
