package mapper

import "testing"

func TestModelTypeMapping(t *testing.T) {
	tests := []struct {
		typ            string
		wantRelational string
		wantDDL        string
	}{
		{"str", "character varying", "VARCHAR(255)"},
		{"string", "character varying", "VARCHAR(255)"},
		{"int", "integer", "INTEGER"},
		{"float", "double precision", "DOUBLE PRECISION"},
		{"bool", "boolean", "BOOLEAN"},
		{"datetime", "timestamp without time zone", "TIMESTAMP"},
		{"date", "date", "DATE"},
		{"uuid", "uuid", "UUID"},
		{"UUID", "uuid", "UUID"},
		{"json", "jsonb", "JSONB"},
		{"List", "jsonb", "JSONB"},
		{"dict", "jsonb", "JSONB"},
		{"List[str]", "jsonb", "JSONB"},
		{"Dict[str, List[int]]", "jsonb", "JSONB"},
		{"Optional[int]", "integer", "INTEGER"},
		{"Optional[List[str]]", "jsonb", "JSONB"},
		{"Union[str, int]", "character varying", "VARCHAR(255)"},
		{"Any", "character varying", "VARCHAR(255)"},
		{"None", "character varying", "VARCHAR(255)"},
		{"money", "character varying", "VARCHAR(255)"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := ModelTypeToRelational(tt.typ); got != tt.wantRelational {
				t.Errorf("ModelTypeToRelational(%q) = %q, want %q", tt.typ, got, tt.wantRelational)
			}
			if got := ModelTypeToDDL(tt.typ); got != tt.wantDDL {
				t.Errorf("ModelTypeToDDL(%q) = %q, want %q", tt.typ, got, tt.wantDDL)
			}
		})
	}
}

func TestCanonicalRelational(t *testing.T) {
	tests := []struct {
		dialect  string
		declared string
		want     string
	}{
		{DialectPostgres, "character varying", "character varying"},
		{DialectPostgres, "USER-DEFINED", "user-defined"},
		{DialectSQLite, "VARCHAR(255)", "character varying"},
		{DialectSQLite, "INTEGER", "integer"},
		{DialectSQLite, "DOUBLE PRECISION", "double precision"},
		{DialectSQLite, "BOOLEAN", "boolean"},
		{DialectSQLite, "TIMESTAMP", "timestamp without time zone"},
		{DialectSQLite, "DATE", "date"},
		{DialectSQLite, "UUID", "uuid"},
		{DialectSQLite, "JSONB", "jsonb"},
		{DialectSQLite, "BLOB", "blob"},
		{DialectMySQL, "varchar", "character varying"},
		{DialectMySQL, "tinyint(1)", "boolean"},
		{DialectMySQL, "tinyint", "integer"},
		{DialectMySQL, "datetime", "timestamp without time zone"},
		{DialectMySQL, "json", "jsonb"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.declared, func(t *testing.T) {
			if got := CanonicalRelational(tt.dialect, tt.declared); got != tt.want {
				t.Errorf("CanonicalRelational(%q, %q) = %q, want %q", tt.dialect, tt.declared, got, tt.want)
			}
		})
	}
}

// Every DDL literal must introspect back to its relational name, or a freshly
// created table would not reconcile.
func TestDDLCanonicalisesToRelational(t *testing.T) {
	for _, typ := range []string{"str", "int", "float", "bool", "datetime", "date", "uuid", "json", "List[int]"} {
		ddl := ModelTypeToDDL(typ)
		if got, want := CanonicalRelational(DialectSQLite, ddl), ModelTypeToRelational(typ); got != want {
			t.Errorf("%s: DDL %q canonicalises to %q, want %q", typ, ddl, got, want)
		}
	}
}
