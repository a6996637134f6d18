// Package model holds the declarative model schemas that payloads are
// validated against and tables are reconciled with.
package model

import (
	"strings"

	"github.com/tordrt/schemaguard/internal/typeexpr"
)

// ModelType categorises a model.
type ModelType string

const (
	TypeContent  ModelType = "content"
	TypeTemplate ModelType = "template"
	TypeConfig   ModelType = "config"
	TypeSystem   ModelType = "system"
	TypeCustom   ModelType = "custom"
)

// ValidatorRef names a custom check registered by the host application.
// Check defaults to Name when empty.
type ValidatorRef struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Check  string   `yaml:"check,omitempty" json:"check,omitempty"`
}

// CheckName returns the registry key to resolve.
func (v ValidatorRef) CheckName() string {
	if v.Check != "" {
		return v.Check
	}
	return v.Name
}

// FieldDefinition describes one field of a model.
type FieldDefinition struct {
	Name        string
	Type        string
	Expr        typeexpr.Expr
	Required    bool
	Default     any
	HasDefault  bool
	Description string
	PrimaryKey  bool
	Validators  []ValidatorRef
}

// Expression returns the parsed type, parsing Type when Expr was not set.
func (f FieldDefinition) Expression() typeexpr.Expr {
	if f.Expr != nil {
		return f.Expr
	}
	return typeexpr.Parse(f.Type)
}

// Field builds a required field with a parsed type.
func Field(name, typ string) FieldDefinition {
	return FieldDefinition{
		Name:     name,
		Type:     typ,
		Expr:     typeexpr.Parse(typ),
		Required: true,
	}
}

// Optional returns a copy of f that is not required.
func (f FieldDefinition) Optional() FieldDefinition {
	f.Required = false
	return f
}

// WithDefault returns a copy of f declaring a default value.
func (f FieldDefinition) WithDefault(v any) FieldDefinition {
	f.Default = v
	f.HasDefault = true
	return f
}

// AsPrimaryKey returns a copy of f flagged as primary key.
func (f FieldDefinition) AsPrimaryKey() FieldDefinition {
	f.PrimaryKey = true
	return f
}

// Schema is a model definition. Fields keep declaration order. A Schema must
// not be modified once handed to a validator or reconciler.
type Schema struct {
	ModelName   string
	ModelType   ModelType
	Description string
	TableName   string
	Fields      []FieldDefinition
	Validators  []ValidatorRef
}

// New builds a schema from fields, parsing any unparsed type expressions.
func New(name string, fields ...FieldDefinition) *Schema {
	s := &Schema{ModelName: name, ModelType: TypeContent}
	for _, f := range fields {
		if f.Expr == nil {
			f.Expr = typeexpr.Parse(f.Type)
		}
		s.Fields = append(s.Fields, f)
	}
	return s
}

// Table returns the table backing the model.
func (s *Schema) Table() string {
	if s.TableName != "" {
		return s.TableName
	}
	return strings.ToLower(s.ModelName)
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// FieldNames returns field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// UnsupportedFields returns fields whose type falls outside the grammar.
// Bare collection names are excluded; they are a deliberate document type.
func (s *Schema) UnsupportedFields() []FieldDefinition {
	var out []FieldDefinition
	for _, f := range s.Fields {
		if typeexpr.IsBareCollection(f.Type) {
			continue
		}
		if !typeexpr.IsSupported(f.Expression()) {
			out = append(out, f)
		}
	}
	return out
}
