package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemaguard/internal/typeexpr"
)

type document struct {
	ModelName   string         `yaml:"model_name" json:"model_name"`
	Name        string         `yaml:"name" json:"name"`
	ModelType   ModelType      `yaml:"model_type" json:"model_type"`
	Description string         `yaml:"description" json:"description"`
	TableName   string         `yaml:"table_name" json:"table_name"`
	Fields      orderedFields  `yaml:"fields" json:"fields"`
	Validators  []ValidatorRef `yaml:"validators" json:"validators"`
}

type fieldDoc struct {
	Type        string         `yaml:"type" json:"type"`
	Required    *bool          `yaml:"required" json:"required"`
	Default     any            `yaml:"default" json:"default"`
	Description string         `yaml:"description" json:"description"`
	PrimaryKey  bool           `yaml:"primary_key" json:"primary_key"`
	Args        map[string]any `yaml:"args" json:"args"`
	Validators  []ValidatorRef `yaml:"validators" json:"validators"`
}

type namedField struct {
	name       string
	doc        fieldDoc
	hasDefault bool
}

// orderedFields keeps the declaration order of a YAML mapping. JSON objects
// carry no order, so JSON fields are sorted by name.
type orderedFields []namedField

func (o *orderedFields) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("fields must be a mapping, got %s", node.Tag)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var fd fieldDoc
		if err := value.Decode(&fd); err != nil {
			return fmt.Errorf("field %s: %w", key.Value, err)
		}
		*o = append(*o, namedField{name: key.Value, doc: fd, hasDefault: yamlHasKey(value, "default")})
	}
	return nil
}

func (o *orderedFields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var fd fieldDoc
		if err := json.Unmarshal(raw[name], &fd); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw[name], &keys); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		_, hasDefault := keys["default"]
		*o = append(*o, namedField{name: name, doc: fd, hasDefault: hasDefault})
	}
	return nil
}

func yamlHasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func (d *document) schema() (*Schema, error) {
	name := d.ModelName
	if name == "" {
		name = d.Name
	}
	if name == "" {
		return nil, fmt.Errorf("model_name is required")
	}

	s := &Schema{
		ModelName:   name,
		ModelType:   d.ModelType,
		Description: d.Description,
		TableName:   d.TableName,
		Validators:  d.Validators,
	}
	if s.ModelType == "" {
		s.ModelType = TypeContent
	}

	seen := make(map[string]bool, len(d.Fields))
	for _, nf := range d.Fields {
		if seen[nf.name] {
			return nil, fmt.Errorf("duplicate field %q", nf.name)
		}
		seen[nf.name] = true
		s.Fields = append(s.Fields, nf.field())
	}
	return s, nil
}

func (nf namedField) field() FieldDefinition {
	fd := nf.doc
	typ := fd.Type
	if typ == "" {
		typ = "Any"
	}
	f := FieldDefinition{
		Name:        nf.name,
		Type:        typ,
		Expr:        typeexpr.Parse(typ),
		Required:    true,
		Default:     fd.Default,
		HasDefault:  nf.hasDefault,
		Description: fd.Description,
		PrimaryKey:  fd.PrimaryKey,
	}
	if fd.Required != nil {
		f.Required = *fd.Required
	}
	// Older definitions nest default and description under args.
	if v, ok := fd.Args["default"]; ok && !f.HasDefault {
		f.Default = v
		f.HasDefault = true
	}
	if d, ok := fd.Args["description"].(string); ok && f.Description == "" {
		f.Description = d
	}
	for _, v := range fd.Validators {
		if len(v.Fields) == 0 {
			v.Fields = []string{nf.name}
		}
		f.Validators = append(f.Validators, v)
	}
	return f
}

// ParseYAML decodes a schema from YAML.
func ParseYAML(data []byte) (*Schema, error) {
	var d document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	return d.schema()
}

// ParseJSON decodes a schema from JSON.
func ParseJSON(data []byte) (*Schema, error) {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}
	return d.schema()
}

// LoadFile reads a schema, choosing the decoder by file extension.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var s *Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err = ParseYAML(data)
	case ".json":
		s, err = ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported schema file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// IsSchemaFile reports whether path has an extension LoadFile understands.
func IsSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDir loads every schema file directly inside dir, sorted by file name.
func LoadDir(dir string) ([]*Schema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read model directory: %w", err)
	}

	var schemas []*Schema
	names := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !IsSchemaFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := names[s.ModelName]; dup {
			return nil, fmt.Errorf("model %s defined in both %s and %s", s.ModelName, prev, path)
		}
		names[s.ModelName] = path
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// WarnUnsupported logs every field whose type expression cannot match.
func WarnUnsupported(s *Schema, logger zerolog.Logger) {
	for _, f := range s.UnsupportedFields() {
		logger.Warn().
			Str("model", s.ModelName).
			Str("field", f.Name).
			Str("type", f.Type).
			Msg("unsupported type expression, field will always fail validation")
	}
}

// Marshal renders s as JSON in the same layout ParseJSON accepts.
func Marshal(s *Schema) ([]byte, error) {
	fields := make(map[string]map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		m := map[string]any{
			"type":     f.Type,
			"required": f.Required,
		}
		if f.HasDefault {
			m["default"] = f.Default
		}
		if f.Description != "" {
			m["description"] = f.Description
		}
		if f.PrimaryKey {
			m["primary_key"] = true
		}
		if len(f.Validators) > 0 {
			m["validators"] = f.Validators
		}
		fields[f.Name] = m
	}
	out := map[string]any{
		"model_name": s.ModelName,
		"model_type": s.ModelType,
		"fields":     fields,
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.TableName != "" {
		out["table_name"] = s.TableName
	}
	if len(s.Validators) > 0 {
		out["validators"] = s.Validators
	}
	return json.MarshalIndent(out, "", "  ")
}
