package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/schemaguard/internal/schema"
)

// Inspector produces a snapshot of one database schema.
// If tables is empty, every table in the schema is inspected.
type Inspector interface {
	Inspect(ctx context.Context, tables []string) (*schema.Snapshot, error)
}

// Executor runs a single DDL statement.
type Executor interface {
	ExecDDL(ctx context.Context, stmt string) error
}

// selectTables keeps the requested tables that actually exist, in the order
// requested. An empty request selects everything.
func selectTables(existing, requested []string) []string {
	if len(requested) == 0 {
		return existing
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t] = true
	}
	var out []string
	for _, t := range requested {
		if have[t] {
			out = append(out, t)
		}
	}
	return out
}

// inspectTables runs extract for every name and assembles the snapshot.
func inspectTables(ctx context.Context, snap *schema.Snapshot, names []string, extract func(context.Context, string) (*schema.Table, error)) (*schema.Snapshot, error) {
	for _, name := range names {
		table, err := extract(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", name, err)
		}
		snap.Tables = append(snap.Tables, *table)
	}
	return snap, nil
}

// markUniqueColumns flags columns covered by a single-column unique index.
func markUniqueColumns(table *schema.Table) {
	for _, idx := range table.Indexes {
		if !idx.IsUnique || len(idx.Columns) != 1 {
			continue
		}
		if col, ok := table.Column(idx.Columns[0]); ok && !table.IsPrimaryKey(col.Name) {
			col.IsUnique = true
		}
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
