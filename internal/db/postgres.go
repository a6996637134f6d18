package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgConn is the subset of *pgx.Conn the Postgres code relies on.
type pgConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// ExecDDL executes one DDL statement outside any explicit transaction.
func (c *PostgresClient) ExecDDL(ctx context.Context, stmt string) error {
	if _, err := c.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute DDL: %w", err)
	}
	return nil
}

// ObjectModel is a stored model definition.
type ObjectModel struct {
	Name        string
	Definition  []byte
	Description string
	Version     string
}

const objectModelsDDL = `
	CREATE TABLE IF NOT EXISTS public.object_models (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		definition JSONB NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL DEFAULT '1.0'
	)
`

const saveObjectModelQuery = `
	INSERT INTO public.object_models (id, name, definition, description, version)
	VALUES ($1::uuid, $2, $3::jsonb, $4, $5)
	ON CONFLICT (name) DO UPDATE SET
		definition = EXCLUDED.definition,
		description = EXCLUDED.description,
		version = EXCLUDED.version
	RETURNING id::text
`

const objectModelsQuery = `
	SELECT name, definition::text
	FROM public.object_models
	ORDER BY name
`

// LoadObjectModels reads every model definition stored in public.object_models.
func (c *PostgresClient) LoadObjectModels(ctx context.Context) ([]ObjectModel, error) {
	return loadObjectModels(ctx, c.conn)
}

// EnsureObjectModelsTable creates public.object_models if it is missing.
func (c *PostgresClient) EnsureObjectModelsTable(ctx context.Context) error {
	return c.ExecDDL(ctx, objectModelsDDL)
}

// SaveObjectModel inserts or replaces the definition stored under m.Name and
// returns the row id. Replacing keeps the id of the existing row.
func (c *PostgresClient) SaveObjectModel(ctx context.Context, m ObjectModel) (uuid.UUID, error) {
	return saveObjectModel(ctx, c.conn, m)
}

func saveObjectModel(ctx context.Context, conn pgConn, m ObjectModel) (uuid.UUID, error) {
	if m.Version == "" {
		m.Version = "1.0"
	}
	var id string
	err := conn.QueryRow(ctx, saveObjectModelQuery, uuid.NewString(), m.Name, string(m.Definition), m.Description, m.Version).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save object model %s: %w", m.Name, err)
	}
	return uuid.Parse(id)
}

func loadObjectModels(ctx context.Context, conn pgConn) ([]ObjectModel, error) {
	rows, err := conn.Query(ctx, objectModelsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query object models: %w", err)
	}
	defer rows.Close()

	var models []ObjectModel
	for rows.Next() {
		var m ObjectModel
		var def string
		if err := rows.Scan(&m.Name, &def); err != nil {
			return nil, fmt.Errorf("failed to scan object model: %w", err)
		}
		m.Definition = []byte(def)
		models = append(models, m)
	}
	return models, rows.Err()
}
