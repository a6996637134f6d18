package registry

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tordrt/schemaguard/internal/db"
	"github.com/tordrt/schemaguard/internal/model"
)

// DirSource loads YAML and JSON model files from a directory.
type DirSource struct {
	Dir string
}

func (d DirSource) Name() string { return "dir:" + d.Dir }

// Load reads every schema file in the directory.
func (d DirSource) Load(_ context.Context) ([]*model.Schema, error) {
	return model.LoadDir(d.Dir)
}

// ObjectModelLoader is implemented by *db.PostgresClient.
type ObjectModelLoader interface {
	LoadObjectModels(ctx context.Context) ([]db.ObjectModel, error)
}

// DBSource loads model definitions stored as JSON rows.
type DBSource struct {
	Loader ObjectModelLoader
	Logger zerolog.Logger
}

func (DBSource) Name() string { return "db:object_models" }

// Load parses every stored definition. Rows that fail to parse are logged
// and skipped so one bad definition does not hide the rest. Unsupported
// field types are reported by the Registry.
func (d DBSource) Load(ctx context.Context) ([]*model.Schema, error) {
	rows, err := d.Loader.LoadObjectModels(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make([]*model.Schema, 0, len(rows))
	for _, row := range rows {
		s, err := model.ParseJSON(row.Definition)
		if err != nil {
			d.Logger.Warn().Err(err).Str("model", row.Name).Msg("skipping invalid stored model")
			continue
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
