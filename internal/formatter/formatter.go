// Package formatter renders database snapshots and engine reports as text,
// markdown or JSON.
package formatter

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/tordrt/schemaguard/internal/schema"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// SnapshotFormatter writes one snapshot.
type SnapshotFormatter interface {
	Format(s *schema.Snapshot) error
}

// NewSnapshotFormatter returns the formatter for format writing to w.
func NewSnapshotFormatter(format string, w io.Writer) (SnapshotFormatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	}
	return nil, fmt.Errorf("unsupported format: %s (must be 'text', 'markdown' or 'json')", format)
}

// JSONFormatter writes snapshots as indented JSON
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format writes the snapshot as JSON
func (f *JSONFormatter) Format(s *schema.Snapshot) error {
	return writeJSON(f.writer, s)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
