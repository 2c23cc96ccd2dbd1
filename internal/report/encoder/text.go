package encoder

import (
	"bytes"
	"fmt"
	"strings"
)

// DefaultPageSize is the number of rows per page in the text rendering.
const DefaultPageSize = 20

// Text renders the document as a paginated flat-text export: a fixed number
// of rows per page, the column header repeated on every page.
type Text struct {
	PageSize int
}

func (Text) Format() string { return "text" }

func (t Text) Render(doc Document) ([]byte, error) {
	pageSize := t.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pages := (len(doc.Rows) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}

	var buf bytes.Buffer
	for page := 0; page < pages; page++ {
		if page > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s - page %d of %d\n", doc.Title, page+1, pages)
		buf.WriteString(strings.Join(doc.Columns, " | ") + "\n")
		buf.WriteString(strings.Repeat("-", 72) + "\n")

		start := page * pageSize
		end := min(start+pageSize, len(doc.Rows))
		for _, row := range doc.Rows[start:end] {
			buf.WriteString(strings.Join(row, " | ") + "\n")
		}
	}
	return buf.Bytes(), nil
}
