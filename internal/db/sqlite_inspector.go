package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/tordrt/schemaguard/internal/mapper"
	"github.com/tordrt/schemaguard/internal/schema"
)

// SQLiteInspector introspects one attached SQLite database. The attached
// database name ("main" unless ATTACH was used) plays the role of a schema.
type SQLiteInspector struct {
	db     *sql.DB
	schema string
}

// NewSQLiteInspector creates an inspector for the attached database schemaName.
func NewSQLiteInspector(client *SQLiteClient, schemaName string) *SQLiteInspector {
	if schemaName == "" {
		schemaName = "main"
	}
	return &SQLiteInspector{
		db:     client.GetDB(),
		schema: schemaName,
	}
}

// Inspect snapshots the attached database. Declared column types are
// canonicalised so they compare against the Postgres vocabulary.
func (e *SQLiteInspector) Inspect(ctx context.Context, tables []string) (*schema.Snapshot, error) {
	snap := &schema.Snapshot{Name: e.schema, Dialect: mapper.DialectSQLite}

	exists, err := e.schemaExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema: %w", err)
	}
	snap.Exists = exists
	if !exists {
		return snap, nil
	}

	existing, err := e.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	return inspectTables(ctx, snap, selectTables(existing, tables), e.extractTable)
}

func (e *SQLiteInspector) schemaExists(ctx context.Context) (bool, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int
		var name string
		var file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return false, err
		}
		if name == e.schema {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (e *SQLiteInspector) pragma(name, arg string) string {
	return fmt.Sprintf("PRAGMA %s.%s(%s)", quoteIdent(e.schema), name, quoteIdent(arg))
}

func (e *SQLiteInspector) getTableNames(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT name
		FROM %s.sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'
		ORDER BY name
	`, quoteIdent(e.schema))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteInspector) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	relations, err := e.extractRelations(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes
	markUniqueColumns(table)

	return table, nil
}

// extractColumns reads PRAGMA table_info, returning the columns and the
// primary key ordered by key position.
func (e *SQLiteInspector) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	rows, err := e.db.QueryContext(ctx, e.pragma("table_info", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	pkOrder := map[string]int{}

	for rows.Next() {
		var cid, notNull, pk int
		var name, declared string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &declared, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			Name:        name,
			Type:        mapper.CanonicalRelational(mapper.DialectSQLite, declared),
			DisplayType: strings.ToLower(declared),
			Nullable:    notNull == 0 && pk == 0,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			pkOrder[name] = pk
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var pk []string
	for name := range pkOrder {
		pk = append(pk, name)
	}
	sort.Slice(pk, func(i, j int) bool { return pkOrder[pk[i]] < pkOrder[pk[j]] })

	return columns, pk, nil
}

func (e *SQLiteInspector) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.db.QueryContext(ctx, e.pragma("foreign_key_list", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
			Cardinality:  "N:1",
		})
	}

	return relations, rows.Err()
}

// extractIndexes lists explicit indexes; the definition is the CREATE INDEX
// text stored in sqlite_master.
func (e *SQLiteInspector) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	type entry struct {
		name   string
		unique bool
	}

	rows, err := e.db.QueryContext(ctx, e.pragma("index_list", tableName))
	if err != nil {
		return nil, err
	}
	var entries []entry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		// Automatic indexes back PRIMARY KEY and UNIQUE constraints.
		if strings.HasPrefix(name, "sqlite_autoindex") && origin == "pk" {
			continue
		}
		entries = append(entries, entry{name: name, unique: unique == 1})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	var indexes []schema.Index
	for _, en := range entries {
		columns, err := e.indexColumns(ctx, en.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		def, err := e.indexDefinition(ctx, en.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, schema.Index{
			Name:       en.name,
			Definition: def,
			Columns:    columns,
			IsUnique:   en.unique,
		})
	}
	return indexes, nil
}

func (e *SQLiteInspector) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, e.pragma("index_info", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString
		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

func (e *SQLiteInspector) indexDefinition(ctx context.Context, indexName string) (string, error) {
	query := fmt.Sprintf("SELECT sql FROM %s.sqlite_master WHERE type = 'index' AND name = ?", quoteIdent(e.schema))
	var def sql.NullString
	err := e.db.QueryRowContext(ctx, query, indexName).Scan(&def)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}
	return def.String, nil
}
