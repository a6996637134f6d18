package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemaguard/internal/reconcile"
	"github.com/tordrt/schemaguard/internal/validation"
)

// ValidationReport is the JSON shape of a validation result.
type ValidationReport struct {
	Model string `json:"model"`
	*validation.Result
}

// WriteValidation renders the outcome of validating one payload.
func WriteValidation(w io.Writer, format, modelName string, r *validation.Result) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, ValidationReport{Model: modelName, Result: r})
	case FormatMarkdown:
		status := "valid"
		if !r.IsValid {
			status = "invalid"
		}
		_, _ = fmt.Fprintf(w, "## Validation: %s\n\n**Result:** %s\n\n", modelName, status)
		if len(r.Errors)+len(r.Warnings) == 0 {
			return nil
		}
		_, _ = fmt.Fprintln(w, "| Level | Path | Code | Message |")
		_, _ = fmt.Fprintln(w, "|---|---|---|---|")
		for _, e := range r.Errors {
			_, _ = fmt.Fprintf(w, "| error | %s | %s | %s |\n", e.Path, e.Code, escapeCell(e.Message))
		}
		for _, e := range r.Warnings {
			_, _ = fmt.Fprintf(w, "| warning | %s | %s | %s |\n", e.Path, e.Code, escapeCell(e.Message))
		}
		return nil
	}

	if r.IsValid {
		_, _ = fmt.Fprintf(w, "VALID %s\n", modelName)
	} else {
		_, _ = fmt.Fprintf(w, "INVALID %s (%d errors)\n", modelName, len(r.Errors))
	}
	for _, e := range r.Errors {
		_, _ = fmt.Fprintf(w, "  ERROR %s\n", issueLine(e))
	}
	for _, e := range r.Warnings {
		_, _ = fmt.Fprintf(w, "  WARN %s\n", issueLine(e))
	}
	return nil
}

func issueLine(i validation.Issue) string {
	path := i.Path
	if path == "" {
		path = "-"
	}
	return fmt.Sprintf("%s [%s]: %s", path, i.Code, i.Message)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// WriteReconcile renders reconciliation results in the order given.
func WriteReconcile(w io.Writer, format string, results []*reconcile.Result) error {
	switch format {
	case FormatJSON:
		if results == nil {
			results = []*reconcile.Result{}
		}
		return writeJSON(w, results)
	case FormatMarkdown:
		_, _ = fmt.Fprintln(w, "# Schema Verification")
		_, _ = fmt.Fprintln(w)
		for _, r := range results {
			_, _ = fmt.Fprintf(w, "## %s → %s.%s\n\n**Status:** %s\n\n", r.ModelName, r.DBSchema, r.TableName, reconcileStatus(r))
			for _, line := range reconcileDetails(r) {
				_, _ = fmt.Fprintf(w, "- %s\n", line)
			}
			if len(reconcileDetails(r)) > 0 {
				_, _ = fmt.Fprintln(w)
			}
		}
		return nil
	}

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s %s → %s.%s\n", reconcileStatus(r), r.ModelName, r.DBSchema, r.TableName)
		for _, line := range reconcileDetails(r) {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

func reconcileStatus(r *reconcile.Result) string {
	switch r.Outcome {
	case reconcile.OutcomeSchemaNotFound:
		return "SCHEMA NOT FOUND"
	case reconcile.OutcomeTableNotFound:
		return "TABLE NOT FOUND"
	}
	if r.IsValid {
		return "OK"
	}
	return "DRIFT"
}

func reconcileDetails(r *reconcile.Result) []string {
	var lines []string
	if r.Outcome == reconcile.OutcomeTableNotFound && len(r.AvailableTables) > 0 {
		lines = append(lines, "available tables: "+strings.Join(r.AvailableTables, ", "))
	}
	for _, c := range r.MissingColumns {
		lines = append(lines, "missing column: "+c)
	}
	for _, m := range r.TypeMismatches {
		lines = append(lines, fmt.Sprintf("type mismatch: %s expected %s, found %s", m.Field, m.ExpectedType, m.ActualType))
	}
	return lines
}

// WriteMissing renders a missing tables report.
func WriteMissing(w io.Writer, format string, m *reconcile.MissingTables) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, m)
	case FormatMarkdown:
		_, _ = fmt.Fprintf(w, "# Missing Tables in `%s`\n\n", m.DBSchema)
		if m.Error != "" {
			_, _ = fmt.Fprintf(w, "**Error:** %s\n", m.Error)
			return nil
		}
		if len(m.Missing) == 0 {
			_, _ = fmt.Fprintln(w, "All model tables exist.")
			return nil
		}
		for _, mt := range m.Missing {
			_, _ = fmt.Fprintf(w, "- **%s** (model %s)\n", mt.Table, mt.Model)
		}
		return nil
	}

	if m.Error != "" {
		_, _ = fmt.Fprintf(w, "ERROR %s\n", m.Error)
		return nil
	}
	_, _ = fmt.Fprintf(w, "SCHEMA %s: %d of %d model tables missing\n", m.DBSchema, len(m.Missing), len(m.ModelDefined))
	for _, mt := range m.Missing {
		_, _ = fmt.Fprintf(w, "  %s (model %s)\n", mt.Table, mt.Model)
	}
	return nil
}

// WriteDDL renders CREATE TABLE scripts.
func WriteDDL(w io.Writer, format string, ddls []reconcile.DDL) error {
	if format == FormatJSON {
		if ddls == nil {
			ddls = []reconcile.DDL{}
		}
		return writeJSON(w, ddls)
	}
	stmts := make([]string, len(ddls))
	for i, d := range ddls {
		stmts[i] = d.CreateTableSQL
	}
	return WriteSQL(w, format, "Create Tables", stmts)
}

// SQLReport is the JSON shape of WriteSQL output.
type SQLReport struct {
	Title      string   `json:"title"`
	Statements []string `json:"statements"`
}

// WriteSQL renders a list of SQL statements under title.
func WriteSQL(w io.Writer, format, title string, stmts []string) error {
	switch format {
	case FormatJSON:
		if stmts == nil {
			stmts = []string{}
		}
		return writeJSON(w, SQLReport{Title: title, Statements: stmts})
	case FormatMarkdown:
		_, _ = fmt.Fprintf(w, "## %s\n\n", title)
		if len(stmts) == 0 {
			_, err := fmt.Fprintln(w, "_No statements._")
			return err
		}
		_, _ = fmt.Fprintln(w, "```sql")
		_, _ = fmt.Fprintln(w, strings.Join(stmts, "\n\n"))
		_, err := fmt.Fprintln(w, "```")
		return err
	}

	if len(stmts) == 0 {
		_, err := fmt.Fprintf(w, "-- %s: nothing to do\n", title)
		return err
	}
	_, err := fmt.Fprintln(w, strings.Join(stmts, "\n\n"))
	return err
}
