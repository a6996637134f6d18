package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemaguard"
	"github.com/tordrt/schemaguard/internal/formatter"
	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/reconcile"
)

// errCheckFailed makes the process exit non-zero after a report that found
// problems has been written.
var errCheckFailed = errors.New("check failed")

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var partial bool

	cmd := &cobra.Command{
		Use:   "validate MODEL [FILE]",
		Short: "Validate a JSON payload against a model",
		Long:  `Validate reads a JSON object from FILE, or stdin when FILE is "-" or omitted, and checks it against MODEL.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd)
			ctx := cmd.Context()

			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			payload, err := readPayload(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			engine, err := a.engine(ctx, nil)
			if err != nil {
				return err
			}
			result, err := engine.ValidateData(ctx, args[0], payload, partial)
			if err != nil {
				return err
			}
			if err := formatter.WriteValidation(a.out, a.cfg.Output.Format, args[0], result); err != nil {
				return err
			}
			if !result.IsValid {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&partial, "partial", false, "Skip missing required fields (update semantics)")
	return cmd
}

// readPayload decodes one JSON object, keeping numbers as json.Number so
// integers and floats stay distinguishable.
func readPayload(stdin io.Reader, path string) (map[string]any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open payload: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return payload, nil
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var tables, exclude string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd)

			d, err := a.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := d.InspectWithOptions(cmd.Context(), &schemaguard.Options{
				Tables:        parseTableList(tables),
				ExcludeTables: parseTableList(exclude),
				SchemaName:    a.schemaName(d),
			})
			if err != nil {
				return err
			}
			a.metrics.ObserveInspection(d.Dialect)

			return schemaguard.FormatSnapshot(snap, &schemaguard.OutputOptions{
				Writer:    a.out,
				OutputDir: flags.outputDir,
				Format:    a.cfg.Output.Format,
			})
		},
	}
	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVarP(&exclude, "exclude", "x", "", "Tables to leave out (comma-separated)")
	return cmd
}

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var modelName, prefix string
	var all bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare models with the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (modelName == "") == !all {
				return fmt.Errorf("exactly one of --model or --all must be specified")
			}

			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd)
			ctx := cmd.Context()

			d, err := a.openDatabase(ctx)
			if err != nil {
				return err
			}
			engine, err := a.engine(ctx, d)
			if err != nil {
				return err
			}
			snap, err := d.Inspect(ctx, a.schemaName(d), nil)
			if err != nil {
				return err
			}
			a.metrics.ObserveInspection(d.Dialect)

			var results []*reconcile.Result
			if all {
				results, err = engine.VerifyAll(ctx, snap, prefix)
			} else {
				var r *reconcile.Result
				r, err = engine.VerifyModel(ctx, modelName, snap)
				results = []*reconcile.Result{r}
			}
			if err != nil {
				return err
			}

			if err := formatter.WriteReconcile(a.out, a.cfg.Output.Format, results); err != nil {
				return err
			}
			for _, r := range results {
				if !r.IsValid {
					return errCheckFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "Model to verify")
	cmd.Flags().BoolVar(&all, "all", false, "Verify every model")
	cmd.Flags().StringVar(&prefix, "prefix", "", "With --all, only models whose name starts with this prefix")
	return cmd
}

func newDDLCmd(flags *globalFlags) *cobra.Command {
	var alter bool

	cmd := &cobra.Command{
		Use:   "ddl MODEL",
		Short: "Print CREATE TABLE, or with --alter the statements that repair the live table",
		Long: `Without --alter the CREATE TABLE script is printed with a {schema} placeholder,
which --schema replaces. With --alter the database is inspected and the
statements needed to bring the table in line with the model are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd)
			ctx := cmd.Context()

			if !alter {
				engine, err := a.engine(ctx, nil)
				if err != nil {
					return err
				}
				ddl, err := engine.SchemaSQL(ctx, args[0])
				if err != nil {
					return err
				}
				if flags.schemaName != "" {
					ddl.CreateTableSQL = reconcile.SubstituteSchema(ddl.CreateTableSQL, flags.schemaName)
				}
				return formatter.WriteDDL(a.out, a.cfg.Output.Format, []reconcile.DDL{ddl})
			}

			d, err := a.openDatabase(ctx)
			if err != nil {
				return err
			}
			engine, err := a.engine(ctx, d)
			if err != nil {
				return err
			}
			snap, err := d.Inspect(ctx, a.schemaName(d), nil)
			if err != nil {
				return err
			}
			stmts, err := engine.RepairSQL(ctx, args[0], snap)
			if err != nil {
				return err
			}
			return formatter.WriteSQL(a.out, a.cfg.Output.Format, "Repair "+args[0], stmts)
		},
	}
	cmd.Flags().BoolVar(&alter, "alter", false, "Generate statements against the live table")
	return cmd
}

func newMissingTablesCmd(flags *globalFlags) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "missing-tables",
		Short: "List model tables absent from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd)
			ctx := cmd.Context()

			d, err := a.openDatabase(ctx)
			if err != nil {
				return err
			}
			engine, err := a.engine(ctx, d)
			if err != nil {
				return err
			}
			snap, err := d.Inspect(ctx, a.schemaName(d), nil)
			if err != nil {
				return err
			}

			if create {
				created, err := engine.CreateMissingTables(ctx, snap, d)
				if len(created) > 0 {
					if werr := formatter.WriteDDL(a.out, a.cfg.Output.Format, created); werr != nil {
						return werr
					}
				}
				return err
			}

			missing, err := engine.MissingTables(ctx, snap)
			if err != nil {
				return err
			}
			return formatter.WriteMissing(a.out, a.cfg.Output.Format, missing)
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Create the missing tables")
	return cmd
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var modelVersion string

	cmd := &cobra.Command{
		Use:   "register FILE...",
		Short: "Store model files in the database's object_models table (PostgreSQL)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd)
			ctx := cmd.Context()

			schemas := make([]*model.Schema, 0, len(args))
			for _, path := range args {
				s, err := model.LoadFile(path)
				if err != nil {
					return err
				}
				model.WarnUnsupported(s, a.logger)
				schemas = append(schemas, s)
			}

			d, err := a.openDatabase(ctx)
			if err != nil {
				return err
			}
			for _, s := range schemas {
				id, err := d.SaveModel(ctx, s, modelVersion)
				if err != nil {
					return err
				}
				a.logger.Info().Str("model", s.ModelName).Str("id", id.String()).Msg("registered model")
				fmt.Fprintf(a.out, "%s\t%s\n", s.ModelName, id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelVersion, "model-version", "1.0", "Version recorded with the stored models")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
