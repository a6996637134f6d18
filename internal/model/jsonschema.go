package model

import (
	"sort"

	"github.com/tordrt/schemaguard/internal/typeexpr"
)

// FromJSONSchema converts a JSON Schema object into a model schema. When name
// is empty the schema title is used. Properties are taken in name order.
func FromJSONSchema(doc map[string]any, name string) *Schema {
	if name == "" {
		name, _ = doc["title"].(string)
	}
	if name == "" {
		name = "UnnamedModel"
	}

	required := make(map[string]bool)
	if list, ok := doc["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	props, _ := doc["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for n := range props {
		names = append(names, n)
	}
	sort.Strings(names)

	s := &Schema{ModelName: name, ModelType: TypeContent}
	if d, ok := doc["description"].(string); ok {
		s.Description = d
	}
	for _, n := range names {
		prop, _ := props[n].(map[string]any)
		typ := jsonSchemaToType(prop)
		f := FieldDefinition{
			Name:     n,
			Type:     typ,
			Expr:     typeexpr.Parse(typ),
			Required: required[n],
		}
		if d, ok := prop["description"].(string); ok {
			f.Description = d
		}
		if v, ok := prop["default"]; ok {
			f.Default = v
			f.HasDefault = true
		}
		s.Fields = append(s.Fields, f)
	}
	return s
}

func jsonSchemaToType(prop map[string]any) string {
	switch prop["type"] {
	case "string":
		switch prop["format"] {
		case "date-time":
			return "datetime"
		case "date":
			return "date"
		case "uuid":
			return "uuid"
		}
		return "str"
	case "number":
		return "float"
	case "integer":
		return "int"
	case "boolean":
		return "bool"
	case "null":
		return "None"
	case "array":
		if items, ok := prop["items"].(map[string]any); ok {
			return "List[" + jsonSchemaToType(items) + "]"
		}
		return "List[Any]"
	case "object":
		return "Dict[str, Any]"
	}
	return "Any"
}

// ToJSONSchema renders s as a JSON Schema object.
func ToJSONSchema(s *Schema) map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := []any{}
	for _, f := range s.Fields {
		prop := typeToJSONSchema(f.Expression())
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.HasDefault && f.Default != nil {
			prop["default"] = f.Default
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	out := map[string]any{
		"title":      s.ModelName,
		"type":       "object",
		"properties": props,
		"required":   required,
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	return out
}

func typeToJSONSchema(e typeexpr.Expr) map[string]any {
	switch t := e.(type) {
	case typeexpr.Scalar:
		switch t.Kind {
		case typeexpr.KindString:
			return map[string]any{"type": "string"}
		case typeexpr.KindInteger:
			return map[string]any{"type": "integer"}
		case typeexpr.KindFloat:
			return map[string]any{"type": "number"}
		case typeexpr.KindBoolean:
			return map[string]any{"type": "boolean"}
		case typeexpr.KindNull:
			return map[string]any{"type": "null"}
		case typeexpr.KindDatetime:
			return map[string]any{"type": "string", "format": "date-time"}
		case typeexpr.KindDate:
			return map[string]any{"type": "string", "format": "date"}
		case typeexpr.KindUUID:
			return map[string]any{"type": "string", "format": "uuid"}
		}
		return map[string]any{"type": "object"}
	case typeexpr.List:
		return map[string]any{"type": "array", "items": typeToJSONSchema(t.Elem)}
	case typeexpr.Optional:
		return typeToJSONSchema(t.Elem)
	}
	return map[string]any{"type": "object"}
}
