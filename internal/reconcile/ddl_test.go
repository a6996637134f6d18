package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/schema"
)

func TestGenerateSchemaSQL(t *testing.T) {
	s := model.New("Doc",
		model.Field("id", "uuid"),
		model.Field("title", "str"),
		model.Field("tags", "List[str]").Optional(),
		model.Field("meta", "dict").Optional(),
		model.Field("score", "Optional[float]"),
	)

	got := GenerateSchemaSQL(s)
	want := DDL{
		ModelName: "Doc",
		TableName: "doc",
		CreateTableSQL: "CREATE TABLE {schema}.doc (\n" +
			"    id UUID NOT NULL,\n" +
			"    title VARCHAR(255) NOT NULL,\n" +
			"    tags JSONB NULL,\n" +
			"    meta JSONB NULL,\n" +
			"    score DOUBLE PRECISION NOT NULL,\n" +
			"    PRIMARY KEY (id)\n" +
			");",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenerateSchemaSQL() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSchemaSQLWithoutPrimaryKey(t *testing.T) {
	got := GenerateSchemaSQL(model.New("Log", model.Field("line", "str")))
	want := "CREATE TABLE {schema}.log (\n    line VARCHAR(255) NOT NULL\n);"
	if got.CreateTableSQL != want {
		t.Errorf("CreateTableSQL =\n%s\nwant\n%s", got.CreateTableSQL, want)
	}
}

func TestPrimaryKeyLastCandidateWins(t *testing.T) {
	tests := []struct {
		name   string
		fields []model.FieldDefinition
		want   string
	}{
		{"none", []model.FieldDefinition{model.Field("a", "int")}, ""},
		{"named id", []model.FieldDefinition{model.Field("id", "int"), model.Field("a", "int")}, "id"},
		{"flag after id", []model.FieldDefinition{model.Field("id", "int"), model.Field("code", "str").AsPrimaryKey()}, "code"},
		{"id after flag", []model.FieldDefinition{model.Field("code", "str").AsPrimaryKey(), model.Field("id", "int")}, "id"},
		{
			"two flags",
			[]model.FieldDefinition{model.Field("a", "int").AsPrimaryKey(), model.Field("b", "int").AsPrimaryKey()},
			"b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrimaryKey(model.New("M", tt.fields...)); got != tt.want {
				t.Errorf("PrimaryKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateAlterSQL(t *testing.T) {
	s := model.New("Doc",
		model.Field("id", "int"),
		model.Field("title", "str"),
		model.Field("status", "str").WithDefault("it's new"),
		model.Field("views", "int").WithDefault(0),
		model.Field("rating", "float"),
	)
	r := Reconcile(s, snapshot(table("doc", "id", "integer", "rating", "integer")))

	got := GenerateAlterSQL(s, r)
	want := []string{
		"ALTER TABLE {schema}.doc ADD COLUMN title VARCHAR(255);",
		"ALTER TABLE {schema}.doc ADD COLUMN status VARCHAR(255) DEFAULT 'it''s new' NOT NULL;",
		"ALTER TABLE {schema}.doc ADD COLUMN views INTEGER DEFAULT 0 NOT NULL;",
		"ALTER TABLE {schema}.doc ALTER COLUMN rating TYPE DOUBLE PRECISION USING rating::DOUBLE PRECISION;",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenerateAlterSQL() mismatch (-want +got):\n%s", diff)
	}

	if stmts := GenerateAlterSQL(s, Reconcile(s, snapshot())); stmts != nil {
		t.Errorf("no statements expected when the table is missing, got %v", stmts)
	}
}

func TestSubstituteSchema(t *testing.T) {
	ddl := GenerateSchemaSQL(model.New("A", model.Field("x", "int")))
	got := SubstituteSchema(ddl.CreateTableSQL, "tenant")
	want := "CREATE TABLE tenant.a (\n    x INTEGER NOT NULL\n);"
	if got != want {
		t.Errorf("SubstituteSchema() = %q, want %q", got, want)
	}
}

func TestGetMissingTables(t *testing.T) {
	people := model.New("Person", model.Field("name", "str"))
	people.TableName = "people"
	schemas := []*model.Schema{
		model.New("Doc", model.Field("title", "str")),
		people,
		model.New("Tag", model.Field("label", "str")),
	}

	got := GetMissingTables(schemas, snapshot(table("doc"), table("audit")))
	want := &MissingTables{
		DBSchema: "public",
		Missing: []MissingTable{
			{Table: "people", Model: "Person"},
			{Table: "tag", Model: "Tag"},
		},
		Existing:     []string{"doc", "audit"},
		ModelDefined: []string{"doc", "people", "tag"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetMissingTables() mismatch (-want +got):\n%s", diff)
	}

	ddls := got.CreateStatements(schemas)
	if len(ddls) != 2 || ddls[0].TableName != "people" || ddls[1].TableName != "tag" {
		t.Errorf("CreateStatements() = %+v", ddls)
	}

	absent := GetMissingTables(schemas, &schema.Snapshot{Name: "ghost"})
	if absent.Error != "Database schema 'ghost' does not exist" || len(absent.Missing) != 0 {
		t.Errorf("missing schema result = %+v", absent)
	}
}
