package formatter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tordrt/modelspec/internal/model"
)

// MarkdownFormatter formats the entity graph as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes every resource entity in one markdown document
func (f *MarkdownFormatter) Format(g *model.Graph) error {
	_, _ = fmt.Fprintf(f.writer, "# %s Data Model\n\n", g.Name)

	for _, e := range g.Resources() {
		f.FormatEntity(g, e)
	}
	return nil
}

// Overview writes the entity index linking to one file per entity
func (f *MarkdownFormatter) Overview(g *model.Graph) {
	_, _ = fmt.Fprintf(f.writer, "# %s Overview\n\n", g.Name)
	_, _ = fmt.Fprintf(f.writer, "Each entity has a corresponding file: `<entity>.md`\n\n")
	_, _ = fmt.Fprintf(f.writer, "## Entities\n\n")

	resources := g.Resources()
	sorted := make([]*model.Entity, len(resources))
	copy(sorted, resources)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	for _, e := range sorted {
		_, _ = fmt.Fprintf(f.writer, "- [**%s**](%s.md)", e.Name, e.Name)
		if e.IsRoot {
			_, _ = fmt.Fprintf(f.writer, " (root)")
		}
		if len(e.Relations) > 0 {
			contained := make([]string, len(e.Relations))
			for i, l := range e.Relations {
				contained[i] = l.Contained
			}
			_, _ = fmt.Fprintf(f.writer, " (contains: %s)", strings.Join(contained, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

// FormatEntity writes one entity section, including the links pointing to it
func (f *MarkdownFormatter) FormatEntity(g *model.Graph, e *model.Entity) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", e.Name)
	_, _ = fmt.Fprintf(f.writer, "%s\n\n", e.Description)

	if e.IsRoot {
		_, _ = fmt.Fprintln(f.writer, "- Root entity")
	}
	if e.Route != nil {
		_, _ = fmt.Fprintf(f.writer, "- Route: `%s/%s` (%s)\n", e.Route.Prefix, e.Route.Path, e.Route.Mode)
	}
	if e.IsRoot || e.Route != nil {
		_, _ = fmt.Fprintln(f.writer)
	}

	_, _ = fmt.Fprintln(f.writer, "### Properties")
	_, _ = fmt.Fprintln(f.writer)
	for _, p := range e.Properties {
		if p.IsRelation() {
			continue
		}
		f.formatProperty(p)
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(e.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Contains")
		_, _ = fmt.Fprintln(f.writer)
		for _, l := range e.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s (%s): %s\n", l.Contained, l.Cardinality, l.Description)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := incomingLinks(g, e.Name); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Contained by")
		_, _ = fmt.Fprintln(f.writer)
		for _, l := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s (%s)\n", l.Containing, l.Cardinality)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatProperty(p *model.Property) {
	var constraints []string
	if p.Mandatory {
		constraints = append(constraints, "required")
	}
	if p.DefaultPattern != "" {
		constraints = append(constraints, fmt.Sprintf("default: %s", p.DefaultPattern))
	}

	line := fmt.Sprintf("- **%s:** %s", p.Name, typeString(p))
	if len(constraints) > 0 {
		line += ", " + strings.Join(constraints, ", ")
	}
	if p.Description != "" {
		line += ". " + p.Description
	}
	_, _ = fmt.Fprintln(f.writer, line)
}

// incomingLinks finds all links containing the named entity
func incomingLinks(g *model.Graph, name string) []*model.Link {
	var incoming []*model.Link
	for _, l := range g.Links {
		if l.Contained == name {
			incoming = append(incoming, l)
		}
	}
	return incoming
}
