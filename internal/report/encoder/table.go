package encoder

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table renders the document as an aligned text table for terminal viewing.
type Table struct{}

func (Table) Format() string { return "table" }

func (Table) Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if doc.Title != "" {
		buf.WriteString(doc.Title + "\n\n")
	}

	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(doc.Columns, "\t"))

	separators := make([]string, len(doc.Columns))
	for i, col := range doc.Columns {
		separators[i] = strings.Repeat("-", len(col))
	}
	fmt.Fprintln(w, strings.Join(separators, "\t"))

	for _, row := range doc.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush table: %w", err)
	}
	return buf.Bytes(), nil
}
