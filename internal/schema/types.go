package schema

// Snapshot represents a database schema as seen by introspection
type Snapshot struct {
	Name    string  `json:"name"`
	Exists  bool    `json:"exists"`
	Dialect string  `json:"dialect"`
	Tables  []Table `json:"tables"`
}

// Table represents a database table
type Table struct {
	Name       string     `json:"name"`
	Columns    []Column   `json:"columns"`
	Relations  []Relation `json:"relations,omitempty"`
	Indexes    []Index    `json:"indexes,omitempty"`
	PrimaryKey []string   `json:"primary_key,omitempty"`
}

// Column represents a table column
type Column struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`         // canonical relational type, compared by the reconciler
	DisplayType  string   `json:"display_type"` // type as a human would write it, used by formatters
	Nullable     bool     `json:"nullable"`
	DefaultValue *string  `json:"default,omitempty"`
	IsUnique     bool     `json:"unique,omitempty"`
	EnumValues   []string `json:"enum_values,omitempty"`
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
	SourceColumn string `json:"source_column"`
	Cardinality  string `json:"cardinality"` // 1:1, 1:N, N:1
}

// Index represents a database index
type Index struct {
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	Columns    []string `json:"columns"`
	IsUnique   bool     `json:"unique"`
}

// Table returns the table with the given name.
func (s *Snapshot) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// HasTable reports whether the snapshot contains name.
func (s *Snapshot) HasTable(name string) bool {
	_, ok := s.Table(name)
	return ok
}

// TableNames lists table names in snapshot order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *Table) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == column {
			return true
		}
	}
	return false
}

// Display returns the human readable type, falling back to Type.
func (c Column) Display() string {
	if c.DisplayType != "" {
		return c.DisplayType
	}
	return c.Type
}
