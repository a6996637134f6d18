package schemaguard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tordrt/schemaguard/internal/mapper"
	"github.com/tordrt/schemaguard/internal/metrics"
	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/reconcile"
	"github.com/tordrt/schemaguard/internal/registry"
	"github.com/tordrt/schemaguard/internal/schema"
	"github.com/tordrt/schemaguard/internal/validation"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantDialect string
		wantConn    string
		wantErr     bool
	}{
		{
			name:        "postgres",
			url:         "postgres://u:p@localhost:5432/db",
			wantDialect: mapper.DialectPostgres,
			wantConn:    "postgres://u:p@localhost:5432/db",
		},
		{
			name:        "postgresql alias",
			url:         "postgresql://localhost/db",
			wantDialect: mapper.DialectPostgres,
			wantConn:    "postgresql://localhost/db",
		},
		{
			name:        "mysql strips scheme",
			url:         "mysql://root:pw@tcp(localhost:3306)/shop",
			wantDialect: mapper.DialectMySQL,
			wantConn:    "root:pw@tcp(localhost:3306)/shop",
		},
		{
			name:        "sqlite strips scheme",
			url:         "sqlite://data/app.db",
			wantDialect: mapper.DialectSQLite,
			wantConn:    "data/app.db",
		},
		{name: "empty", url: "", wantErr: true},
		{name: "unknown scheme", url: "oracle://x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialect, conn, err := parseDatabaseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if dialect != tt.wantDialect || conn != tt.wantConn {
				t.Errorf("parseDatabaseURL(%q) = (%q, %q), want (%q, %q)", tt.url, dialect, conn, tt.wantDialect, tt.wantConn)
			}
		})
	}
}

func TestFilterExcludedTables(t *testing.T) {
	tests := []struct {
		name        string
		excludeList []string
		wantTables  []string
	}{
		{name: "exclude single table", excludeList: []string{"posts"}, wantTables: []string{"users", "comments"}},
		{name: "exclude multiple tables", excludeList: []string{"posts", "comments"}, wantTables: []string{"users"}},
		{name: "exclude no tables", excludeList: nil, wantTables: []string{"users", "posts", "comments"}},
		{name: "exclude non-existent table", excludeList: []string{"products"}, wantTables: []string{"users", "posts", "comments"}},
		{name: "exclude all tables", excludeList: []string{"users", "posts", "comments"}, wantTables: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &schema.Snapshot{Tables: []schema.Table{{Name: "users"}, {Name: "posts"}, {Name: "comments"}}}
			filterExcludedTables(snap, tt.excludeList)

			got := make([]string, 0, len(snap.Tables))
			for _, table := range snap.Tables {
				got = append(got, table.Name)
			}
			if diff := cmp.Diff(tt.wantTables, got); diff != "" {
				t.Errorf("filterExcludedTables() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func newSQLiteURL(t *testing.T, stmts ...string) string {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	d, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close(ctx)
	for _, stmt := range stmts {
		if err := d.ExecDDL(ctx, stmt); err != nil {
			t.Fatalf("ExecDDL(%q): %v", stmt, err)
		}
	}
	return url
}

func TestInspectDatabase(t *testing.T) {
	url := newSQLiteURL(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT NOT NULL)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id))`,
		`CREATE TABLE audit_log (id INTEGER PRIMARY KEY)`,
	)

	snap, err := InspectDatabase(context.Background(), url, &Options{ExcludeTables: []string{"audit_log"}})
	if err != nil {
		t.Fatalf("InspectDatabase: %v", err)
	}
	if diff := cmp.Diff([]string{"posts", "users"}, snap.TableNames()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	snap, err = InspectDatabase(context.Background(), url, &Options{Tables: []string{"users"}})
	if err != nil {
		t.Fatalf("InspectDatabase: %v", err)
	}
	if diff := cmp.Diff([]string{"users"}, snap.TableNames()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	if _, err := InspectDatabase(context.Background(), "invalid://x", nil); err == nil {
		t.Error("Expected error for invalid URL scheme")
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := &schema.Snapshot{
		Name:   "main",
		Exists: true,
		Tables: []schema.Table{{
			Name:       "users",
			PrimaryKey: []string{"id"},
			Columns: []schema.Column{
				{Name: "id", Type: "integer"},
				{Name: "username", Type: "text"},
			},
		}},
	}

	var buf bytes.Buffer
	if err := FormatSnapshot(snap, &OutputOptions{Writer: &buf, Format: "markdown"}); err != nil {
		t.Fatalf("FormatSnapshot: %v", err)
	}
	if !strings.Contains(buf.String(), "## users") || !strings.Contains(buf.String(), "username") {
		t.Errorf("unexpected markdown output:\n%s", buf.String())
	}

	dir := t.TempDir()
	if err := FormatSnapshot(snap, &OutputOptions{OutputDir: dir, Format: "markdown"}); err != nil {
		t.Fatalf("FormatSnapshot: %v", err)
	}
	for _, name := range []string{"_overview.md", "users.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}

	if err := FormatSnapshot(snap, &OutputOptions{OutputDir: dir, Format: "json"}); err == nil {
		t.Error("Expected error for json multi-file output")
	}
}

func newTestEngine(t *testing.T, schemas ...*model.Schema) (*Engine, *metrics.Collector) {
	t.Helper()
	reg := registry.New(nil, nil, 0, zerolog.Nop())
	for _, s := range schemas {
		if err := reg.Register(s); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	checks := validation.NewRegistry()
	if err := validation.RegisterBuiltins(checks); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	collector := metrics.NewWithRegistry(prometheus.NewRegistry())
	return NewEngine(reg, checks, collector, zerolog.Nop()), collector
}

func postSchema() *model.Schema {
	return model.New("Post",
		model.Field("id", "int").AsPrimaryKey(),
		model.Field("title", "str"),
		model.Field("tags", "List[str]").Optional(),
	)
}

func TestEngineValidateData(t *testing.T) {
	e, collector := newTestEngine(t, postSchema())
	ctx := context.Background()

	tests := []struct {
		name      string
		payload   map[string]any
		partial   bool
		wantValid bool
		wantCodes []string
	}{
		{
			name:      "valid",
			payload:   map[string]any{"id": 1, "title": "hello", "tags": []any{"a"}},
			wantValid: true,
		},
		{
			name:      "missing required",
			payload:   map[string]any{"id": 1},
			wantCodes: []string{validation.CodeRequired},
		},
		{
			name:      "partial skips missing",
			payload:   map[string]any{"title": "hello"},
			partial:   true,
			wantValid: true,
		},
		{
			name:      "wrong element type",
			payload:   map[string]any{"id": 1, "title": "x", "tags": []any{"a", 2}},
			wantCodes: []string{"invalid_type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := e.ValidateData(ctx, "Post", tt.payload, tt.partial)
			if err != nil {
				t.Fatalf("ValidateData: %v", err)
			}
			if r.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (errors: %v)", r.IsValid, tt.wantValid, r.ErrorMessages())
			}
			var codes []string
			for _, issue := range r.Errors {
				codes = append(codes, issue.Code)
			}
			if diff := cmp.Diff(tt.wantCodes, codes); diff != "" {
				t.Errorf("codes mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := testutil.ToFloat64(collector.ValidationsTotal.WithLabelValues("Post", "valid")); got != 2 {
		t.Errorf("valid validations = %v, want 2", got)
	}

	if _, err := e.ValidateData(ctx, "Ghost", nil, false); !errors.Is(err, registry.ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}

func TestEngineCreateVerifyRepair(t *testing.T) {
	ctx := context.Background()
	url := newSQLiteURL(t, `CREATE TABLE legacy (id INTEGER PRIMARY KEY)`)
	d, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close(ctx)

	post := postSchema()
	e, collector := newTestEngine(t, post)

	snap, err := d.Inspect(ctx, "", nil)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	missing, err := e.MissingTables(ctx, snap)
	if err != nil {
		t.Fatalf("MissingTables: %v", err)
	}
	if diff := cmp.Diff([]reconcile.MissingTable{{Table: "post", Model: "Post"}}, missing.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}

	created, err := e.CreateMissingTables(ctx, snap, d)
	if err != nil {
		t.Fatalf("CreateMissingTables: %v", err)
	}
	if len(created) != 1 || !strings.HasPrefix(created[0].CreateTableSQL, "CREATE TABLE main.post") {
		t.Fatalf("unexpected created tables: %+v", created)
	}

	snap, err = d.Inspect(ctx, "", nil)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	r, err := e.VerifyModel(ctx, "Post", snap)
	if err != nil {
		t.Fatalf("VerifyModel: %v", err)
	}
	if !r.IsValid {
		t.Fatalf("expected created table to verify, got %+v", r)
	}

	grown := postSchema()
	grown.Fields = append(grown.Fields, model.Field("views", "int").WithDefault(0))
	if err := e.Register(grown); err != nil {
		t.Fatalf("Register: %v", err)
	}

	stmts, err := e.RepairSQL(ctx, "Post", snap)
	if err != nil {
		t.Fatalf("RepairSQL: %v", err)
	}
	want := []string{"ALTER TABLE main.post ADD COLUMN views INTEGER DEFAULT 0 NOT NULL;"}
	if diff := cmp.Diff(want, stmts); diff != "" {
		t.Fatalf("repair mismatch (-want +got):\n%s", diff)
	}
	for _, stmt := range stmts {
		if err := d.ExecDDL(ctx, stmt); err != nil {
			t.Fatalf("ExecDDL: %v", err)
		}
	}

	snap, err = d.Inspect(ctx, "", nil)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	results, err := e.VerifyAll(ctx, snap, "")
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if len(results) != 1 || !results[0].IsValid {
		t.Errorf("expected repaired table to verify, got %+v", results)
	}

	if got := testutil.ToFloat64(collector.ReconciliationsTotal.WithLabelValues("Post", string(reconcile.OutcomeReport))); got < 2 {
		t.Errorf("report reconciliations = %v, want at least 2", got)
	}
}

func TestEngineVerifyAllPrefix(t *testing.T) {
	e, _ := newTestEngine(t,
		model.New("blog_post", model.Field("id", "int")),
		model.New("blog_tag", model.Field("id", "int")),
		model.New("user", model.Field("id", "int")),
	)
	snap := &schema.Snapshot{Name: "public", Exists: true}

	results, err := e.VerifyAll(context.Background(), snap, "blog_")
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	var got []string
	for _, r := range results {
		got = append(got, r.ModelName)
		if r.Outcome != reconcile.OutcomeTableNotFound {
			t.Errorf("%s outcome = %s, want %s", r.ModelName, r.Outcome, reconcile.OutcomeTableNotFound)
		}
	}
	if diff := cmp.Diff([]string{"blog_post", "blog_tag"}, got); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDirEngine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	post := "model_name: post\nfields:\n  id:\n    type: int\n    primary_key: true\n  title:\n    type: str\n"
	if err := os.WriteFile(filepath.Join(dir, "post.yaml"), []byte(post), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := NewDirEngine(ctx, dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDirEngine: %v", err)
	}

	d, err := Open(ctx, newSQLiteURL(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close(ctx)
	snap, err := d.Inspect(ctx, "", nil)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	results, err := e.VerifyAll(ctx, snap, "")
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if len(results) != 1 || results[0].ModelName != "post" || results[0].Outcome != reconcile.OutcomeTableNotFound {
		t.Errorf("unexpected results: %+v", results)
	}

	r, err := e.ValidateData(ctx, "post", map[string]any{"id": 1, "title": "hello"}, false)
	if err != nil {
		t.Fatalf("ValidateData: %v", err)
	}
	if !r.IsValid {
		t.Errorf("expected valid payload, got %+v", r)
	}

	if _, err := NewDirEngine(ctx, filepath.Join(dir, "missing"), zerolog.Nop()); err == nil {
		t.Error("Expected error for a missing model directory")
	}
}

func TestEngineRepairSQL(t *testing.T) {
	e, _ := newTestEngine(t, postSchema())
	ctx := context.Background()

	stmts, err := e.RepairSQL(ctx, "Post", &schema.Snapshot{Name: "app", Exists: true})
	if err != nil {
		t.Fatalf("RepairSQL: %v", err)
	}
	if len(stmts) != 1 || !strings.HasPrefix(stmts[0], "CREATE TABLE app.post (") {
		t.Errorf("missing table should yield CREATE TABLE, got %v", stmts)
	}

	if _, err := e.RepairSQL(ctx, "Post", &schema.Snapshot{Name: "gone"}); err == nil {
		t.Error("Expected error for a missing schema")
	}

	ddl, err := e.SchemaSQL(ctx, "Post")
	if err != nil {
		t.Fatalf("SchemaSQL: %v", err)
	}
	if !strings.Contains(ddl.CreateTableSQL, reconcile.SchemaPlaceholder+".post") {
		t.Errorf("SchemaSQL should keep the placeholder, got %s", ddl.CreateTableSQL)
	}
}

func TestDatabaseSaveModelRequiresPostgres(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, newSQLiteURL(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close(ctx)

	if _, ok := d.ModelLoader(); ok {
		t.Error("SQLite should not provide a model loader")
	}
	if _, err := d.SaveModel(ctx, postSchema(), ""); err == nil {
		t.Error("Expected error saving a model to SQLite")
	}
}
