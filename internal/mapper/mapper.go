// Package mapper translates model type expressions to relational column types.
// The introspection-side names follow information_schema.columns.data_type as
// reported by Postgres; DDL literals are what CREATE TABLE emits. Both sides
// must agree for a freshly created table to reconcile cleanly.
package mapper

import (
	"strings"

	"github.com/tordrt/schemaguard/internal/typeexpr"
)

// Relational type names as reported by introspection.
const (
	CharacterVarying = "character varying"
	Integer          = "integer"
	DoublePrecision  = "double precision"
	Boolean          = "boolean"
	Timestamp        = "timestamp without time zone"
	Date             = "date"
	UUID             = "uuid"
	JSONB            = "jsonb"
)

type mapping struct {
	relational string
	ddl        string
}

var (
	textMapping = mapping{CharacterVarying, "VARCHAR(255)"}
	jsonMapping = mapping{JSONB, "JSONB"}
)

var scalarMappings = map[typeexpr.Kind]mapping{
	typeexpr.KindString:   textMapping,
	typeexpr.KindInteger:  {Integer, "INTEGER"},
	typeexpr.KindFloat:    {DoublePrecision, "DOUBLE PRECISION"},
	typeexpr.KindBoolean:  {Boolean, "BOOLEAN"},
	typeexpr.KindDatetime: {Timestamp, "TIMESTAMP"},
	typeexpr.KindDate:     {Date, "DATE"},
	typeexpr.KindUUID:     {UUID, "UUID"},
	typeexpr.KindJSON:     jsonMapping,
}

func lookup(raw string) mapping {
	if typeexpr.IsBareCollection(raw) {
		return jsonMapping
	}
	return lookupExpr(typeexpr.Parse(raw))
}

func lookupExpr(e typeexpr.Expr) mapping {
	switch t := e.(type) {
	case typeexpr.Scalar:
		if m, ok := scalarMappings[t.Kind]; ok {
			return m
		}
	case typeexpr.List, typeexpr.Map:
		return jsonMapping
	case typeexpr.Optional:
		return lookupExpr(t.Elem)
	}
	return textMapping
}

// ModelTypeToRelational returns the introspection-side type for a model type.
func ModelTypeToRelational(raw string) string {
	return lookup(raw).relational
}

// ModelTypeToDDL returns the column type literal used in generated DDL.
func ModelTypeToDDL(raw string) string {
	return lookup(raw).ddl
}

// Dialect names accepted by CanonicalRelational.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// CanonicalRelational rewrites a dialect specific column type into the
// Postgres introspection vocabulary so a single mapping table serves every
// dialect. Postgres types pass through unchanged.
func CanonicalRelational(dialect, declared string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	switch dialect {
	case DialectSQLite:
		return canonicalSQLite(t)
	case DialectMySQL:
		return canonicalMySQL(t)
	}
	return t
}

func baseType(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

func canonicalSQLite(t string) string {
	switch baseType(t) {
	case "varchar", "character varying", "text", "char", "character", "clob", "nvarchar":
		return CharacterVarying
	case "integer", "int", "bigint", "smallint", "tinyint", "mediumint":
		return Integer
	case "double precision", "double", "real", "float", "numeric", "decimal":
		return DoublePrecision
	case "boolean", "bool":
		return Boolean
	case "timestamp", "datetime", "timestamp without time zone":
		return Timestamp
	case "date":
		return Date
	case "uuid":
		return UUID
	case "jsonb", "json":
		return JSONB
	}
	return t
}

func canonicalMySQL(t string) string {
	switch baseType(t) {
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext", "enum", "set":
		return CharacterVarying
	case "int", "integer", "bigint", "smallint", "mediumint":
		return Integer
	case "double", "float", "decimal", "real":
		return DoublePrecision
	case "tinyint":
		if t == "tinyint(1)" {
			return Boolean
		}
		return Integer
	case "bool", "boolean":
		return Boolean
	case "datetime", "timestamp":
		return Timestamp
	case "date":
		return Date
	case "json":
		return JSONB
	}
	return t
}
