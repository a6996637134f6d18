package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/schemaguard/internal/mapper"
	"github.com/tordrt/schemaguard/internal/model"
)

// SchemaPlaceholder is substituted with the target schema before execution.
const SchemaPlaceholder = "{schema}"

// DDL is the creation script for one model.
type DDL struct {
	ModelName      string `json:"model_name"`
	TableName      string `json:"table_name"`
	CreateTableSQL string `json:"create_table_sql"`
}

// PrimaryKey returns the column used as primary key. A field counts when it
// is flagged or named "id"; with several candidates the last one wins.
//
// TODO: reject schemas with more than one flagged primary key once existing
// model definitions have been audited for it.
func PrimaryKey(s *model.Schema) string {
	pk := ""
	for _, f := range s.Fields {
		if f.PrimaryKey || f.Name == "id" {
			pk = f.Name
		}
	}
	return pk
}

// GenerateSchemaSQL renders CREATE TABLE for s with a {schema} placeholder.
func GenerateSchemaSQL(s *model.Schema) DDL {
	table := s.Table()
	defs := make([]string, 0, len(s.Fields)+1)
	for _, f := range s.Fields {
		nullable := "NULL"
		if f.Required {
			nullable = "NOT NULL"
		}
		defs = append(defs, fmt.Sprintf("    %s %s %s", f.Name, mapper.ModelTypeToDDL(f.Type), nullable))
	}
	if pk := PrimaryKey(s); pk != "" {
		defs = append(defs, fmt.Sprintf("    PRIMARY KEY (%s)", pk))
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE " + SchemaPlaceholder + "." + table + " (\n")
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n);")

	return DDL{
		ModelName:      s.ModelName,
		TableName:      table,
		CreateTableSQL: b.String(),
	}
}

// GenerateAlterSQL returns statements that repair the differences in r.
// Missing columns are added with the declared default when it can be
// rendered as a literal; mismatched columns are converted in place.
func GenerateAlterSQL(s *model.Schema, r *Result) []string {
	if r == nil || !r.TableExists() {
		return nil
	}
	target := SchemaPlaceholder + "." + r.TableName

	var stmts []string
	for _, name := range r.MissingColumns {
		f, ok := s.Field(name)
		if !ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", target, f.Name, mapper.ModelTypeToDDL(f.Type))
		if lit, ok := sqlLiteral(f.Default); ok && f.HasDefault {
			stmt += " DEFAULT " + lit
			if f.Required {
				stmt += " NOT NULL"
			}
		}
		stmts = append(stmts, stmt+";")
	}
	for _, m := range r.TypeMismatches {
		f, ok := s.Field(m.Field)
		if !ok {
			continue
		}
		ddl := mapper.ModelTypeToDDL(f.Type)
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;", target, f.Name, ddl, f.Name, ddl))
	}
	return stmts
}

func sqlLiteral(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", true
	case bool:
		if t {
			return "TRUE", true
		}
		return "FALSE", true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	}
	return "", false
}

// SubstituteSchema replaces the {schema} placeholder with dbSchema.
func SubstituteSchema(sql, dbSchema string) string {
	return strings.ReplaceAll(sql, SchemaPlaceholder, dbSchema)
}
