// Package encoder renders a report document into its export formats. All
// encoders consume the same canonical row stream and never re-sort or
// re-filter it, so every format agrees on order and content.
package encoder

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	dErrors "turnstile/pkg/domain-errors"
)

// Document is the canonical, already-ordered row stream every encoder
// renders. Building it is the aggregator's job; encoders only format.
type Document struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Encoder renders one export format.
type Encoder interface {
	Format() string
	Render(doc Document) ([]byte, error)
}

// Registry holds the available encoders by format name.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry constructs a registry with the default encoder set.
func NewRegistry() *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	for _, enc := range []Encoder{
		CSV{},
		JSON{},
		Table{},
		Text{PageSize: DefaultPageSize},
	} {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Formats lists the registered format names, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.encoders))
	for format := range r.encoders {
		out = append(out, format)
	}
	sort.Strings(out)
	return out
}

// Render renders one format.
func (r *Registry) Render(format string, doc Document) ([]byte, error) {
	enc, ok := r.encoders[format]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown report format %q", format))
	}
	return enc.Render(doc)
}

// RenderAll renders the requested formats concurrently for bundle export.
// An unknown format fails the whole bundle before any rendering starts.
func (r *Registry) RenderAll(doc Document, formats []string) (map[string][]byte, error) {
	encoders := make([]Encoder, 0, len(formats))
	for _, format := range formats {
		enc, ok := r.encoders[format]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown report format %q", format))
		}
		encoders = append(encoders, enc)
	}

	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(map[string][]byte, len(encoders))
	)
	for _, enc := range encoders {
		g.Go(func() error {
			rendered, err := enc.Render(doc)
			if err != nil {
				return fmt.Errorf("render %s: %w", enc.Format(), err)
			}
			mu.Lock()
			out[enc.Format()] = rendered
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ContentType returns the MIME type for a format, defaulting to plain text.
func ContentType(format string) string {
	switch format {
	case "csv":
		return "text/csv; charset=utf-8"
	case "json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
