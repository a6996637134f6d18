package reconcile

import (
	"fmt"
	"sort"

	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/schema"
)

// MissingTable pairs a table absent from the database with its model.
type MissingTable struct {
	Table string `json:"table"`
	Model string `json:"model"`
}

// MissingTables is the result of GetMissingTables.
type MissingTables struct {
	DBSchema     string         `json:"db_schema"`
	Missing      []MissingTable `json:"missing_tables"`
	Existing     []string       `json:"existing_tables"`
	ModelDefined []string       `json:"model_defined_tables"`
	Error        string         `json:"error,omitempty"`
}

// GetMissingTables lists the tables backing schemas that snap lacks, sorted
// by table name. When two models share a table the later one owns it.
func GetMissingTables(schemas []*model.Schema, snap *schema.Snapshot) *MissingTables {
	out := &MissingTables{
		DBSchema:     snap.Name,
		Missing:      []MissingTable{},
		Existing:     []string{},
		ModelDefined: []string{},
	}
	if !snap.Exists {
		out.Error = fmt.Sprintf("Database schema '%s' does not exist", snap.Name)
		return out
	}

	owners := make(map[string]string, len(schemas))
	for _, s := range schemas {
		table := s.Table()
		if _, seen := owners[table]; !seen {
			out.ModelDefined = append(out.ModelDefined, table)
		}
		owners[table] = s.ModelName
	}
	out.Existing = append(out.Existing, snap.TableNames()...)

	for table, owner := range owners {
		if !snap.HasTable(table) {
			out.Missing = append(out.Missing, MissingTable{Table: table, Model: owner})
		}
	}
	sort.Slice(out.Missing, func(i, j int) bool { return out.Missing[i].Table < out.Missing[j].Table })
	return out
}

// CreateStatements returns the CREATE TABLE script for every missing table,
// in the same order as m.Missing.
func (m *MissingTables) CreateStatements(schemas []*model.Schema) []DDL {
	byModel := make(map[string]*model.Schema, len(schemas))
	for _, s := range schemas {
		byModel[s.ModelName] = s
	}
	var out []DDL
	for _, mt := range m.Missing {
		if s, ok := byModel[mt.Model]; ok {
			out = append(out, GenerateSchemaSQL(s))
		}
	}
	return out
}
