package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/schemaguard/internal/schema"
)

// MultiFileFormatter writes a snapshot as one file per table plus an overview
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the snapshot to multiple files
func (f *MultiFileFormatter) Format(s *schema.Snapshot) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) error { return f.writeOverview(w, s) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for i := range s.Tables {
		table := &s.Tables[i]
		err := f.writeFile(table.Name, func(w io.Writer) error { return f.writeTable(w, table, s) })
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(base string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, base+f.getFileExtension()))
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, s *schema.Snapshot) error {
	sorted := make([]schema.Table, len(s.Tables))
	copy(sorted, s.Tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview: %s\n\n", s.Name)
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW: %s\n", s.Name)
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	}
	if !s.Exists {
		_, err := fmt.Fprintln(w, "Schema does not exist.")
		return err
	}

	for _, table := range sorted {
		line := table.Name
		if f.OutputFormat == FormatMarkdown {
			line = "- **" + table.Name + "**"
		}
		if targets := referencedTables(table); len(targets) > 0 {
			line += fmt.Sprintf(" (references: %s)", strings.Join(targets, ", "))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func referencedTables(table schema.Table) []string {
	var targets []string
	for _, rel := range table.Relations {
		targets = append(targets, rel.TargetTable)
	}
	return targets
}

func (f *MultiFileFormatter) writeTable(w io.Writer, table *schema.Table, s *schema.Snapshot) error {
	var err error
	if f.OutputFormat == FormatMarkdown {
		err = NewMarkdownFormatter(w).FormatTable(*table)
	} else {
		err = NewTextFormatter(w).formatTable(*table)
	}
	if err != nil {
		return err
	}

	incoming := findIncomingRelations(table.Name, s)
	if len(incoming) == 0 {
		return nil
	}
	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "### Referenced by\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "\n  REFERENCED BY:\n")
	}
	for _, rel := range incoming {
		prefix := "    "
		if f.OutputFormat == FormatMarkdown {
			prefix = "- "
		}
		_, _ = fmt.Fprintf(w, "%s%s.%s → %s (%s)\n", prefix, rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rel.Cardinality)
	}
	return nil
}

// IncomingRelation represents a relationship pointing to this table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
	Cardinality  string
}

// findIncomingRelations finds all foreign keys pointing to this table
func findIncomingRelations(tableName string, s *schema.Snapshot) []IncomingRelation {
	var incoming []IncomingRelation

	for _, table := range s.Tables {
		for _, rel := range table.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  table.Name,
					SourceColumn: rel.SourceColumn,
					TargetTable:  rel.TargetTable,
					TargetColumn: rel.TargetColumn,
					Cardinality:  rel.Cardinality,
				})
			}
		}
	}

	return incoming
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
