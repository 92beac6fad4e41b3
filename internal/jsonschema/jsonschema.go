// Package jsonschema projects an entity graph into draft-07 JSON Schema documents.
//
// Every entity gets a standalone document that embeds the entities it reaches under $defs.
// Root entities additionally get a bundle that embeds every other entity, and the root
// itself when something refers back to it, so references resolve inside one file.
package jsonschema

import (
	"log/slog"

	"github.com/tordrt/modelspec/internal/doc"
	"github.com/tordrt/modelspec/internal/model"
)

// Draft07 is the $schema of generated documents
const Draft07 = "http://json-schema.org/draft-07/schema"

// DefaultBaseURI prefixes the $id of generated documents
const DefaultBaseURI = "https://schemas.example.com/"

// Result holds the projected documents, keyed by entity name in model order
type Result struct {
	Schemas *doc.Map
	Bundles *doc.Map
}

// Projector builds JSON Schema documents
type Projector struct {
	baseURI string
	logger  *slog.Logger
}

// NewProjector creates a projector; an empty baseURI uses DefaultBaseURI
func NewProjector(baseURI string, logger *slog.Logger) *Projector {
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Projector{baseURI: baseURI, logger: logger}
}

// Project builds the standalone document of every entity and the bundle of every root entity
func (p *Projector) Project(g *model.Graph) *Result {
	res := &Result{Schemas: doc.New(), Bundles: doc.New()}
	resources := g.Resources()

	referenced := map[string]bool{}
	for _, e := range resources {
		for _, name := range targets(e) {
			referenced[name] = true
		}
	}

	for _, e := range resources {
		s := p.Document(e, false)
		if reach := reachable(g, e); len(reach) > 0 {
			defs := doc.New()
			for _, r := range reach {
				defs.Set(r.Name, p.Document(r, true))
			}
			s.Set("$defs", defs)
		}
		res.Schemas.Set(e.Name, s)
	}

	for _, root := range resources {
		if !root.IsRoot {
			continue
		}
		bundle := p.Document(root, false)
		defs := doc.New()
		for _, e := range resources {
			if e.Name != root.Name || referenced[e.Name] {
				defs.Set(e.Name, p.Document(e, true))
			}
		}
		bundle.Set("$defs", defs)
		res.Bundles.Set(root.Name, bundle)
	}

	if res.Bundles.Len() == 0 {
		p.logger.Error("no root entity, no JSON Schema bundle produced", "kind", "schema", "model", g.Name)
	}
	return res
}

// Document returns the schema of e. Embedded documents carry no $schema or $id.
func (p *Projector) Document(e *model.Entity, embedded bool) *doc.Map {
	s := doc.New()
	if !embedded {
		s.Set("$schema", Draft07)
		s.Set("$id", p.baseURI+e.Name+".json")
	}
	s.Set("type", "object")
	s.Set("title", "Schema for "+e.Name)
	s.Set("description", e.Description)
	s.Set("default", doc.New())

	sample := doc.New()
	required := append(make([]string, 0, len(e.Required)), e.Required...)
	props := doc.New()
	for _, prop := range e.Properties {
		if prop.IsRelation() {
			props.Set(prop.Name, relationSchema(prop))
			continue
		}
		props.Set(prop.Name, propertySchema(prop))
		sample.Set(prop.Name, prop.Annotation.DefaultValue)
	}
	for _, l := range e.Relations {
		if l.Cardinality.Required() && !contains(required, l.Contained) {
			required = append(required, l.Contained)
		}
	}

	s.Set("examples", []any{sample})
	s.Set("required", required)
	s.Set("properties", props)
	s.Set("additionalProperties", true)
	return s
}

// targets lists the entities e refers to, in property order
func targets(e *model.Entity) []string {
	var out []string
	for _, prop := range e.Properties {
		switch {
		case prop.Ref != "":
			out = append(out, prop.Ref)
		case prop.Items != nil && prop.Items.Ref != "":
			out = append(out, prop.Items.Ref)
		}
	}
	return out
}

// reachable returns the entities transitively referenced from e, in model order.
// e itself is included only when a cycle leads back to it.
func reachable(g *model.Graph, e *model.Entity) []*model.Entity {
	seen := map[string]bool{}
	queue := targets(e)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		if t := g.Entity(name); t != nil {
			queue = append(queue, targets(t)...)
		}
	}

	var out []*model.Entity
	for _, r := range g.Resources() {
		if seen[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

func relationSchema(p *model.Property) *doc.Map {
	ref := doc.New()
	if p.Ref != "" {
		ref.Set("$ref", "#/$defs/"+p.Ref)
		return ref
	}
	ref.Set("$ref", "#/$defs/"+p.Items.Ref)
	s := doc.New()
	s.Set("type", "array")
	s.Set("items", ref)
	return s
}

func propertySchema(p *model.Property) *doc.Map {
	rec := p.Annotation
	typ, format := p.ScalarType()

	s := doc.New()
	s.Set("$id", "#/properties/"+p.Name)
	s.Set("type", p.Type)
	if p.Items != nil {
		items := doc.New()
		items.Set("type", typ)
		if format != "" {
			items.Set("format", format)
		}
		s.Set("items", items)
		if p.MinItems != nil {
			s.Set("minItems", *p.MinItems)
		}
		if p.MaxItems != nil {
			s.Set("maxItems", *p.MaxItems)
		}
	}
	s.Set("title", p.Name)
	s.Set("description", rec.Description)
	s.Set("default", "")
	s.Set("examples", examples(p))
	s.Set("validationScript", rec.ValidationScript)
	s.Set("possibleValues", rec.PossibleValues)
	s.Set("defaultValue", rec.DefaultValue)
	s.Set("applicableTo", rec.ApplicableTo)
	s.Set("minCardinality", rec.MinCardinality)
	s.Set("maxCardinality", rec.MaxCardinality)
	s.Set("validFor", rec.ValidFor)
	// element format lives under items only
	if p.Items == nil {
		if rec.Format != "" {
			format = rec.Format
		}
		s.Set("format", format)
	}
	s.Set("markdownDescription", rec.MarkdownDescription)
	s.Set("valueSpecification", rec.ValueSpecification)
	return s
}

// examples prefers an explicit "examples" list, then the annotated example, then the column names
func examples(p *model.Property) []any {
	rec := p.Annotation
	if list, ok := rec.Extra["examples"].([]any); ok {
		return list
	}
	if !rec.IsDefaulted("example") && rec.Example != "" {
		return []any{rec.Example}
	}
	out := []any{p.Example}
	if p.DefaultPattern != "" {
		out = append(out, p.DefaultPattern)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
