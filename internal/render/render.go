package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatTable:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml or table)", s)
}

// Options for rendering
type Options struct {
	Format    Format
	Porcelain bool
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format {
	return r.opts.Format
}

// Render writes data in the configured structured format. Table output
// has no generic form, so it falls back to JSON.
func (r *Renderer) Render(data interface{}) error {
	if r.opts.Format == FormatYAML {
		return r.RenderYAML(data)
	}
	return r.RenderJSON(data)
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data interface{}) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderYAML renders data as YAML. Values pass through their JSON form
// first so structs keep their json field names.
func (r *Renderer) RenderYAML(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(r.writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(generic)
}

// RenderTable renders data as a formatted table
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Render header
	if !r.opts.Porcelain {
		r.renderTableRow(headers, widths)
		r.renderTableSeparator(widths)
	} else {
		// Porcelain mode: just tab-separated
		fmt.Fprintln(r.writer, strings.Join(headers, "\t"))
	}

	// Render rows
	for _, row := range rows {
		if r.opts.Porcelain {
			fmt.Fprintln(r.writer, strings.Join(row, "\t"))
		} else {
			r.renderTableRow(row, widths)
		}
	}

	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i < len(widths) {
			fmt.Fprintf(r.writer, "%-*s", widths[i], cell)
			if i < len(cells)-1 {
				fmt.Fprint(r.writer, "  ")
			}
		}
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) renderTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}
