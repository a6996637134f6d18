package typeexpr

import "strings"

// Parse converts raw into an Expr. It never fails: text outside the grammar
// yields Unsupported carrying the original string. An unknown word nested in a
// well-formed constructor stays local, so "List[foo]" is a List of Unsupported.
func Parse(raw string) Expr {
	text := strings.TrimSpace(raw)
	if e, ok := parse(text); ok {
		return e
	}
	return Unsupported{Raw: raw}
}

func parse(text string) (Expr, bool) {
	if kind, ok := scalarWords[text]; ok {
		return Scalar{Kind: kind}, true
	}

	open := strings.IndexByte(text, '[')
	if open <= 0 || !strings.HasSuffix(text, "]") {
		return nil, false
	}
	head := text[:open]
	inner := text[open+1 : len(text)-1]

	parts, ok := splitTopLevel(inner)
	if !ok {
		return nil, false
	}
	args := make([]Expr, 0, len(parts))
	for _, p := range parts {
		args = append(args, Parse(p))
	}

	switch head {
	case "List":
		if len(args) != 1 {
			return nil, false
		}
		return List{Elem: args[0]}, true
	case "Dict":
		if len(args) != 2 {
			return nil, false
		}
		return Map{Key: args[0], Value: args[1]}, true
	case "Optional":
		if len(args) != 1 {
			return nil, false
		}
		return Optional{Elem: args[0]}, true
	case "Union":
		if len(args) == 0 {
			return nil, false
		}
		return Union{Options: args}, true
	}
	return nil, false
}

// splitTopLevel splits s on commas that are not nested inside brackets.
// Every part is trimmed; an empty part or unbalanced brackets fail.
func splitTopLevel(s string) ([]string, bool) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts, true
}
