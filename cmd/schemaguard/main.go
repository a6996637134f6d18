package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemaguard"
	"github.com/tordrt/schemaguard/internal/config"
	"github.com/tordrt/schemaguard/internal/logging"
	"github.com/tordrt/schemaguard/internal/mapper"
	"github.com/tordrt/schemaguard/internal/metrics"
	"github.com/tordrt/schemaguard/internal/registry"
	"github.com/tordrt/schemaguard/internal/validation"
)

var version = "dev"

// globalFlags are shared by every subcommand. Flags left empty fall back to
// the config file and SCHEMAGUARD_* environment.
type globalFlags struct {
	configPath string
	dbURL      string
	schemaName string
	modelsDir  string
	format     string
	outputFile string
	outputDir  string
	metrics    bool
}

// app is what a subcommand runs against.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Collector
	out     io.Writer
	closers []func() error
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "schemaguard",
		Short:         "Validate data against model schemas and reconcile them with a database",
		Long:          `SchemaGuard validates JSON payloads against declarative model schemas and compares those models with a PostgreSQL, MySQL or SQLite database, reporting drift and generating the DDL to fix it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "schemaguard.yaml", "Config file (skipped when missing)")
	pf.StringVar(&flags.dbURL, "db-url", "", "Database URL (postgres://, mysql:// or sqlite://)")
	pf.StringVarP(&flags.schemaName, "schema", "s", "", "Database schema name")
	pf.StringVarP(&flags.modelsDir, "models", "m", "", "Directory of model files")
	pf.StringVarP(&flags.format, "format", "f", "", "Output format: text, markdown or json")
	pf.StringVarP(&flags.outputFile, "output", "o", "", "Output file (default: stdout)")
	pf.StringVarP(&flags.outputDir, "output-dir", "d", "", "Output directory for multi-file inspect output")
	pf.BoolVar(&flags.metrics, "metrics", false, "Print metrics to stderr after the command")

	root.AddCommand(
		newValidateCmd(flags),
		newInspectCmd(flags),
		newVerifyCmd(flags),
		newDDLCmd(flags),
		newMissingTablesCmd(flags),
		newRegisterCmd(flags),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and opens the output.
func setup(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithFallback(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.dbURL != "" {
		cfg.Database.URL = flags.dbURL
	}
	if flags.schemaName != "" {
		cfg.Database.Schema = flags.schemaName
	}
	if flags.modelsDir != "" {
		cfg.Models.Source = "dir"
		cfg.Models.Dir = flags.modelsDir
	}
	if flags.format != "" {
		cfg.Output.Format = flags.format
	}
	if flags.metrics {
		cfg.Metrics.Enabled = true
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.Logging, cmd.ErrOrStderr()),
		out:    cmd.OutOrStdout(),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	if flags.outputFile != "" {
		f, err := os.Create(flags.outputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		a.out = f
		a.closers = append(a.closers, f.Close)
	}
	return a, nil
}

// close releases everything opened for the command and dumps metrics.
func (a *app) close(cmd *cobra.Command) {
	if a.cfg.Metrics.Enabled {
		if err := a.metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			a.logger.Warn().Err(err).Msg("failed to write metrics")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close resource")
		}
	}
}

// openDatabase connects to the configured database and closes it with the app.
func (a *app) openDatabase(ctx context.Context) (*schemaguard.Database, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	d, err := schemaguard.Open(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return d.Close(context.Background()) })
	return d, nil
}

// schemaName is the configured schema, except that the "public" default
// only means something on PostgreSQL.
func (a *app) schemaName(d *schemaguard.Database) string {
	if d.Dialect != mapper.DialectPostgres && a.cfg.Database.Schema == "public" {
		return ""
	}
	return a.cfg.Database.Schema
}

// engine builds the engine over the configured model source. d is only
// needed when models are stored in the database.
func (a *app) engine(ctx context.Context, d *schemaguard.Database) (*schemaguard.Engine, error) {
	var source registry.Source
	switch a.cfg.Models.Source {
	case "db":
		if d == nil {
			var err error
			if d, err = a.openDatabase(ctx); err != nil {
				return nil, err
			}
		}
		loader, ok := d.ModelLoader()
		if !ok {
			return nil, fmt.Errorf("models.source 'db' requires PostgreSQL, got %s", d.Dialect)
		}
		source = registry.DBSource{Loader: loader, Logger: a.logger}
	default:
		source = registry.DirSource{Dir: a.cfg.Models.Dir}
	}

	models := registry.New(source, nil, a.cfg.Models.CacheTTL, a.logger)
	if err := models.Refresh(ctx); err != nil {
		return nil, err
	}
	if a.cfg.Models.Watch && a.cfg.Models.Source == "dir" {
		if err := models.WatchDir(a.cfg.Models.Dir); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, models.Close)
	}

	checks := validation.NewRegistry()
	if err := validation.RegisterBuiltins(checks); err != nil {
		return nil, err
	}
	return schemaguard.NewEngine(models, checks, a.metrics, a.logger), nil
}

func parseTableList(tables string) []string {
	if tables == "" {
		return nil
	}
	tableList := strings.Split(tables, ",")
	for i, t := range tableList {
		tableList[i] = strings.TrimSpace(t)
	}
	return tableList
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
