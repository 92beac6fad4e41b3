// Package formatter renders an entity graph for people: a compact text summary,
// markdown documentation, and the multi-file artifact writer.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/modelspec/internal/model"
)

// TextFormatter formats the entity graph as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes every resource entity in compact text format
func (f *TextFormatter) Format(g *model.Graph) error {
	resources := g.Resources()
	_, _ = fmt.Fprintf(f.writer, "MODEL %s: %d entities, %d links, %d parameters\n",
		g.Name, len(resources), len(g.Links), len(g.Parameters))

	for _, e := range resources {
		_, _ = fmt.Fprintln(f.writer) // Blank line between entities
		f.formatEntity(e)
	}
	return nil
}

func (f *TextFormatter) formatEntity(e *model.Entity) {
	header := "ENTITY " + e.Name
	if e.IsRoot {
		header += " (ROOT)"
	}
	if e.Route != nil {
		header += fmt.Sprintf(" %s/%s [%s]", e.Route.Prefix, e.Route.Path, e.Route.Mode)
	}
	_, _ = fmt.Fprintln(f.writer, header)

	for _, p := range e.Properties {
		if p.IsRelation() {
			continue
		}
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatProperty(p))
	}

	if len(e.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, l := range e.Relations {
			_, _ = fmt.Fprintf(f.writer, "    → %s (%s) %s\n", l.Contained, l.Cardinality, l.Description)
		}
	}
}

func formatProperty(p *model.Property) string {
	parts := []string{p.Name + ":", typeString(p)}

	if p.Items != nil && p.MaxItems != nil {
		minItems := 0
		if p.MinItems != nil {
			minItems = *p.MinItems
		}
		parts = append(parts, fmt.Sprintf("[%d..%d]", minItems, *p.MaxItems))
	}
	if len(p.Annotation.PossibleValues) > 0 && !p.Annotation.IsDefaulted("possibleValues") {
		values := make([]string, len(p.Annotation.PossibleValues))
		for i, v := range p.Annotation.PossibleValues {
			values[i] = fmt.Sprint(v)
		}
		parts = append(parts, "("+strings.Join(values, "|")+")")
	}
	if p.Mandatory {
		parts = append(parts, "NOT NULL")
	}
	if p.DefaultPattern != "" {
		parts = append(parts, "DEFAULT "+p.DefaultPattern)
	}

	return strings.Join(parts, " ")
}

// typeString renders a property type such as "string(date)", "array of integer" or "Order"
func typeString(p *model.Property) string {
	if p.Ref != "" {
		return p.Ref
	}
	if p.Items != nil {
		if p.Items.Ref != "" {
			return "array of " + p.Items.Ref
		}
		return "array of " + scalar(p.Items.Type, p.Items.Format)
	}
	return scalar(p.Type, p.Format)
}

func scalar(typ, format string) string {
	if format == "" {
		return typ
	}
	return typ + "(" + format + ")"
}
