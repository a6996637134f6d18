// Package reconcile compares model schemas with introspected database
// schemas and produces DDL to close the gap. Every function here is pure:
// problems are reported in results, never as Go errors.
package reconcile

import (
	"fmt"

	"github.com/tordrt/schemaguard/internal/mapper"
	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/schema"
	"github.com/tordrt/schemaguard/internal/typeexpr"
)

// State is a step of a single comparison.
type State int

const (
	StateResolveSchema State = iota
	StateResolveTable
	StateCompareColumns
	StateReport
)

func (s State) String() string {
	switch s {
	case StateResolveSchema:
		return "resolve_schema"
	case StateResolveTable:
		return "resolve_table"
	case StateCompareColumns:
		return "compare_columns"
	case StateReport:
		return "report"
	}
	return "unknown"
}

// Outcome is how a comparison terminated.
type Outcome string

const (
	OutcomeReport         Outcome = "report"
	OutcomeSchemaNotFound Outcome = "schema_not_found"
	OutcomeTableNotFound  Outcome = "table_not_found"
)

// Mismatch records a column whose type differs from the model.
type Mismatch struct {
	Field        string `json:"field"`
	ExpectedType string `json:"expected_type"`
	ActualType   string `json:"actual_type"`
}

// Result is the report for one model.
type Result struct {
	ModelName       string     `json:"model_name"`
	DBSchema        string     `json:"db_schema"`
	TableName       string     `json:"table_name"`
	IsValid         bool       `json:"is_valid"`
	MissingColumns  []string   `json:"missing_columns"`
	TypeMismatches  []Mismatch `json:"type_mismatches"`
	Outcome         Outcome    `json:"outcome"`
	Error           string     `json:"error,omitempty"`
	AvailableTables []string   `json:"available_tables,omitempty"`
}

// TableExists reports whether the comparison reached the column stage.
func (r *Result) TableExists() bool {
	return r.Outcome == OutcomeReport
}

// Reconcile diffs s against snap. Only required fields are reported; fields
// typed as a bare List or Dict are stored as documents and skipped.
func Reconcile(s *model.Schema, snap *schema.Snapshot) *Result {
	if s == nil || snap == nil {
		panic("reconcile: nil schema or snapshot")
	}

	r := &Result{
		ModelName:      s.ModelName,
		DBSchema:       snap.Name,
		TableName:      s.Table(),
		MissingColumns: []string{},
		TypeMismatches: []Mismatch{},
	}

	var table *schema.Table
	for state := StateResolveSchema; ; {
		switch state {
		case StateResolveSchema:
			if !snap.Exists {
				r.Outcome = OutcomeSchemaNotFound
				r.Error = fmt.Sprintf("Database schema '%s' does not exist", snap.Name)
				return r
			}
			state = StateResolveTable

		case StateResolveTable:
			t, ok := snap.Table(r.TableName)
			if !ok {
				r.Outcome = OutcomeTableNotFound
				r.Error = fmt.Sprintf("Table '%s' not found in schema '%s'", r.TableName, snap.Name)
				r.AvailableTables = snap.TableNames()
				return r
			}
			table = t
			state = StateCompareColumns

		case StateCompareColumns:
			compareColumns(s, table, r)
			state = StateReport

		case StateReport:
			r.Outcome = OutcomeReport
			r.IsValid = len(r.MissingColumns) == 0 && len(r.TypeMismatches) == 0
			return r
		}
	}
}

func compareColumns(s *model.Schema, table *schema.Table, r *Result) {
	for _, f := range s.Fields {
		if typeexpr.IsBareCollection(f.Type) {
			continue
		}
		expected := mapper.ModelTypeToRelational(f.Type)

		col, ok := table.Column(f.Name)
		if !ok {
			if f.Required {
				r.MissingColumns = append(r.MissingColumns, f.Name)
			}
			continue
		}
		if col.Type != expected && f.Required {
			r.TypeMismatches = append(r.TypeMismatches, Mismatch{
				Field:        f.Name,
				ExpectedType: expected,
				ActualType:   col.Type,
			})
		}
	}
}

// ReconcileAll runs Reconcile for every schema, keyed by model name.
func ReconcileAll(schemas []*model.Schema, snap *schema.Snapshot) map[string]*Result {
	out := make(map[string]*Result, len(schemas))
	for _, s := range schemas {
		out[s.ModelName] = Reconcile(s, snap)
	}
	return out
}
