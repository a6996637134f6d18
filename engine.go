package schemaguard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tordrt/schemaguard/internal/db"
	"github.com/tordrt/schemaguard/internal/metrics"
	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/reconcile"
	"github.com/tordrt/schemaguard/internal/registry"
	"github.com/tordrt/schemaguard/internal/schema"
	"github.com/tordrt/schemaguard/internal/validation"
)

// Engine validates payloads and reconciles models against snapshots using
// the models held by a registry. It is safe for concurrent use.
type Engine struct {
	models    *registry.Registry
	validator *validation.Validator
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

// NewEngine creates an engine. checks and collector may be nil.
func NewEngine(models *registry.Registry, checks *validation.Registry, collector *metrics.Collector, logger zerolog.Logger) *Engine {
	return &Engine{
		models:    models,
		validator: validation.New(checks, logger),
		metrics:   collector,
		logger:    logger,
	}
}

// NewDirEngine creates an engine over the model files in dir with the
// built-in validators. Models are loaded once up front; a missing or
// malformed directory is an error.
func NewDirEngine(ctx context.Context, dir string, logger zerolog.Logger) (*Engine, error) {
	models := registry.New(registry.DirSource{Dir: dir}, nil, 0, logger)
	if err := models.Refresh(ctx); err != nil {
		return nil, err
	}
	checks := validation.NewRegistry()
	if err := validation.RegisterBuiltins(checks); err != nil {
		return nil, err
	}
	return NewEngine(models, checks, nil, logger), nil
}

// Register adds s to the engine's registry.
func (e *Engine) Register(s *model.Schema) error {
	return e.models.Register(s)
}

// Models lists every known model, sorted by name.
func (e *Engine) Models(ctx context.Context) ([]*model.Schema, error) {
	list, err := e.models.List(ctx)
	if err != nil {
		return nil, err
	}
	e.metrics.SetModelsKnown(len(list))
	return list, nil
}

// ValidateData validates payload against the named model. Validation
// problems are reported in the result; an error means the model is unknown.
func (e *Engine) ValidateData(ctx context.Context, modelName string, payload map[string]any, partial bool) (*validation.Result, error) {
	s, err := e.models.Get(ctx, modelName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := e.validator.Validate(payload, s, partial)
	e.metrics.ObserveValidation(modelName, result, time.Since(start))
	return result, nil
}

// VerifyModel reconciles the named model with snap.
func (e *Engine) VerifyModel(ctx context.Context, modelName string, snap *schema.Snapshot) (*reconcile.Result, error) {
	s, err := e.models.Get(ctx, modelName)
	if err != nil {
		return nil, err
	}
	return e.verify(s, snap), nil
}

// VerifyAll reconciles every model whose name starts with prefix, in model
// name order. An empty prefix selects all models.
func (e *Engine) VerifyAll(ctx context.Context, snap *schema.Snapshot, prefix string) ([]*reconcile.Result, error) {
	list, err := e.Models(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*reconcile.Result, 0, len(list))
	for _, s := range list {
		if !strings.HasPrefix(s.ModelName, prefix) {
			continue
		}
		results = append(results, e.verify(s, snap))
	}
	return results, nil
}

func (e *Engine) verify(s *model.Schema, snap *schema.Snapshot) *reconcile.Result {
	r := reconcile.Reconcile(s, snap)
	e.metrics.ObserveReconcile(r)

	evt := e.logger.Debug()
	if !r.IsValid {
		evt = e.logger.Info()
	}
	evt.Str("model", r.ModelName).
		Str("table", r.TableName).
		Str("outcome", string(r.Outcome)).
		Int("missing_columns", len(r.MissingColumns)).
		Int("type_mismatches", len(r.TypeMismatches)).
		Msg("reconciled model")
	return r
}

// MissingTables lists the model tables snap lacks.
func (e *Engine) MissingTables(ctx context.Context, snap *schema.Snapshot) (*reconcile.MissingTables, error) {
	list, err := e.Models(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.GetMissingTables(list, snap), nil
}

// CreateMissingTables creates every model table snap lacks and returns the
// statements it executed. Execution stops at the first failing statement.
func (e *Engine) CreateMissingTables(ctx context.Context, snap *schema.Snapshot, exec db.Executor) ([]reconcile.DDL, error) {
	list, err := e.Models(ctx)
	if err != nil {
		return nil, err
	}
	missing := reconcile.GetMissingTables(list, snap)
	if missing.Error != "" {
		return nil, fmt.Errorf("failed to create missing tables: %s", missing.Error)
	}

	created := make([]reconcile.DDL, 0, len(missing.Missing))
	for _, ddl := range missing.CreateStatements(list) {
		ddl.CreateTableSQL = reconcile.SubstituteSchema(ddl.CreateTableSQL, snap.Name)
		if err := exec.ExecDDL(ctx, ddl.CreateTableSQL); err != nil {
			return created, fmt.Errorf("failed to create table %s: %w", ddl.TableName, err)
		}
		e.logger.Info().Str("model", ddl.ModelName).Str("table", ddl.TableName).Msg("created table")
		created = append(created, ddl)
	}
	return created, nil
}

// SchemaSQL returns the CREATE TABLE script for the named model with the
// {schema} placeholder left in place.
func (e *Engine) SchemaSQL(ctx context.Context, modelName string) (reconcile.DDL, error) {
	s, err := e.models.Get(ctx, modelName)
	if err != nil {
		return reconcile.DDL{}, err
	}
	return reconcile.GenerateSchemaSQL(s), nil
}

// RepairSQL returns the statements that bring snap in line with the named
// model: ALTER statements for an existing table, CREATE TABLE for a missing
// one and nothing when they already agree.
func (e *Engine) RepairSQL(ctx context.Context, modelName string, snap *schema.Snapshot) ([]string, error) {
	s, err := e.models.Get(ctx, modelName)
	if err != nil {
		return nil, err
	}

	r := e.verify(s, snap)
	var stmts []string
	switch r.Outcome {
	case reconcile.OutcomeSchemaNotFound:
		return nil, fmt.Errorf("failed to repair %s: %s", modelName, r.Error)
	case reconcile.OutcomeTableNotFound:
		stmts = []string{reconcile.GenerateSchemaSQL(s).CreateTableSQL}
	default:
		stmts = reconcile.GenerateAlterSQL(s, r)
	}

	for i, stmt := range stmts {
		stmts[i] = reconcile.SubstituteSchema(stmt, snap.Name)
	}
	return stmts, nil
}
