package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON renders the document as indented JSON. Field order is fixed by the
// Document struct tags.
type JSON struct{}

func (JSON) Format() string { return "json" }

func (JSON) Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}
