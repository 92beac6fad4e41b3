package model

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/tordrt/modelspec/internal/annotation"
	"github.com/tordrt/modelspec/internal/naming"
	"github.com/tordrt/modelspec/internal/schema"
	"github.com/tordrt/modelspec/internal/typemap"
)

// Builder turns parsed source records into an entity graph
type Builder struct {
	logger  *slog.Logger
	decoder *annotation.Decoder
}

// NewBuilder creates a builder logging to logger; nil discards
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger, decoder: annotation.NewDecoder(logger)}
}

// Build registers every non-ignored table as an entity, then resolves relationships
// between the registered entities. Recoverable problems are logged, never returned.
func (b *Builder) Build(s *schema.Schema) (*Graph, error) {
	if s == nil {
		return nil, errors.New("schema is required")
	}

	g := &Graph{Name: s.Name, index: map[string]*Entity{}}
	names := map[string]string{}
	params := &registry{}

	for i := range s.Tables {
		t := &s.Tables[i]
		if strings.Contains(t.PhysicalName, IgnoreSentinel) {
			b.logger.Debug("table ignored", "kind", "exclude", "table", t.Name)
			continue
		}

		e := b.buildEntity(t, params)
		if _, dup := g.index[e.Name]; dup {
			b.logger.Warn("duplicate entity name, keeping the first", "kind", "exclude", "entity", e.Name, "table", t.ID)
			continue
		}
		g.Entities = append(g.Entities, e)
		g.index[e.Name] = e
		names[t.ID] = e.Name
	}

	for _, r := range s.Relationships {
		l := b.buildLink(s, r, names)
		if l == nil {
			continue
		}
		b.attach(g, l)
	}

	g.Parameters = params.entries
	return g, nil
}

func (b *Builder) buildEntity(t *schema.Table, params *registry) *Entity {
	name := naming.Normalize(t.Name)
	e := &Entity{
		Name:        name,
		Description: annotation.Strip(t.Remarks, annotation.TagSchema),
		Example:     t.PhysicalName,
	}
	if e.Description == "" {
		e.Description = "No Description for " + t.Name
	}
	if _, ok := annotation.Extract(t.Remarks, annotation.TagSchema); ok {
		e.Annotation = b.decoder.Decode(name, t.Remarks, e.Description)
		if !e.Annotation.IsDefaulted("description") {
			e.Description = e.Annotation.Description
		}
	}

	for _, c := range t.Columns {
		propName := naming.Normalize(c.Name)
		switch propName {
		case PathColumn:
			e.Route = b.buildRoute(name, c)
			continue
		case RootColumn:
			e.IsRoot = true
			continue
		}

		p := b.buildProperty(name, propName, c)
		if p.Mandatory {
			e.AddRequired(propName)
		}
		e.SetProperty(p)

		if p.Annotation.AsParameter != nil {
			params.add(propName+"Param", promote(p))
		}
	}
	return e
}

func (b *Builder) buildRoute(entity string, c schema.Column) *Route {
	r := &Route{
		Path:   c.PhysicalName,
		Prefix: c.DefaultString(),
		Mode:   ModeReadWrite,
	}
	if r.Path == "" {
		r.Path = strings.ToLower(entity)
	}
	if r.Prefix == "" {
		r.Prefix = "/" + strings.ToLower(entity)
	}
	if c.Remarks != "" {
		if found, ok := annotation.Extract(c.Remarks, annotation.TagParameters); ok {
			r.Parameters = found
		}
		r.Mode = ParseOperationMode(annotation.Strip(c.Remarks, annotation.TagParameters))
	}
	return r
}

func (b *Builder) buildProperty(entity, name string, c schema.Column) *Property {
	display := annotation.Strip(c.Remarks, annotation.TagSchema)
	rec := b.decoder.Decode(entity+"."+name, c.Remarks, display)
	if display == "" {
		display = "No Description for " + c.Name
	}

	if rec.IsDefaulted("possibleValues") && len(c.EnumValues) > 0 {
		rec.PossibleValues = make([]any, len(c.EnumValues))
		for i, v := range c.EnumValues {
			rec.PossibleValues[i] = v
		}
		rec.Defaulted = without(rec.Defaulted, "possibleValues")
	}

	p := &Property{
		Name:           name,
		Description:    display,
		Example:        c.PhysicalName,
		DefaultPattern: c.DefaultString(),
		Mandatory:      !c.Nullable && rec.MinCardinality != 0,
		Annotation:     rec,
	}
	if p.Example == "" {
		p.Example = "No example for " + c.Name
	}

	m, ok := typemap.Map(c.Type)
	if !ok {
		b.logger.Warn("unsupported column type", "kind", "type", "field", entity+"."+name, "code", c.Type)
		m = typemap.Mapping{Type: c.Type}
		if m.Type == "" {
			m.Type = "string"
		}
	}
	p.Type, p.Format = m.Type, m.Format
	if p.Format == "" && rec.Format != "" && rec.Format != "free" {
		p.Format = rec.Format
	}

	if rec.MaxCardinality > 1 {
		minItems, maxItems := rec.MinCardinality, rec.MaxCardinality
		p.Items = &Items{Type: p.Type, Format: p.Format}
		p.Type, p.Format = "array", ""
		p.MinItems, p.MaxItems = &minItems, &maxItems
	}
	return p
}

// promote builds the reusable parameter for a property flagged asParameter
func promote(p *Property) Parameter {
	flag := strings.ToLower(*p.Annotation.AsParameter)
	typ, format := p.ScalarType()

	param := Parameter{
		Name:        p.Name,
		In:          "query",
		Description: p.Description,
		Required:    strings.Contains(flag, "required") || strings.Contains(flag, "mandatory"),
		Schema:      ParameterSchema{Type: typ, Format: format},
	}
	if strings.Contains(flag, "path") {
		param.In = "path"
		param.Required = true
	}

	rec := p.Annotation
	if rec.Format != "" && rec.Format != "free" {
		param.Schema.Format = rec.Format
	}
	if !rec.IsDefaulted("defaultValue") {
		param.Schema.Default = rec.DefaultValue
	}
	if !rec.IsDefaulted("possibleValues") && len(rec.PossibleValues) > 0 {
		param.Schema.Enum = rec.PossibleValues
	}
	return param
}

func (b *Builder) buildLink(s *schema.Schema, r schema.Relationship, names map[string]string) *Link {
	name := naming.Normalize(r.Name)
	if strings.Contains(r.Name, IgnoreSentinel) {
		b.logger.Debug("relationship ignored", "kind", "exclude", "relationship", name)
		return nil
	}

	tl := s.LinkFor(r.ID)
	if tl != nil && strings.EqualFold(tl.LineColor, schema.IgnoredLineColor) {
		b.logger.Debug("relationship ignored, grey link", "kind", "exclude", "relationship", name)
		return nil
	}

	containing, okPK := names[r.PKTableRef]
	contained, okFK := names[r.FKTableRef]
	if !okPK || !okFK {
		b.logger.Debug("relationship dropped, unresolved table", "kind", "link", "relationship", name,
			"pk_table", r.PKTableRef, "fk_table", r.FKTableRef)
		return nil
	}
	if containing == OpenAPIEntity || contained == OpenAPIEntity {
		b.logger.Debug("relationship dropped, OpenAPI entity", "kind", "link", "relationship", name)
		return nil
	}

	l := &Link{
		Name:        name,
		Description: "No Description",
		Containing:  containing,
		Contained:   contained,
		Cardinality: b.cardinality(name, r),
	}
	desc := " "
	if tl != nil {
		desc = naming.Normalize(tl.PKLabelText) + " " + naming.Normalize(tl.FKLabelText)
	}
	if desc == " " {
		desc = name
	}
	if desc != "" {
		l.Description = desc
	}
	return l
}

// cardinality evaluates the fk end then the pk end; the last recognized code wins
func (b *Builder) cardinality(name string, r schema.Relationship) Cardinality {
	var card Cardinality
	if c, ok := CardinalityFromCode(r.FKCardinality); ok {
		card = c
	}
	if c, ok := CardinalityFromCode(r.PKCardinality); ok {
		card = c
	}
	if card == "" {
		b.logger.Warn("unknown relationship cardinality, using ZeroToMore", "kind", "link", "relationship", name,
			"pk_code", r.PKCardinality, "fk_code", r.FKCardinality)
		card = ZeroToMore
	}
	return card
}

// attach records l and injects the relationship property into the containing entity
func (b *Builder) attach(g *Graph, l *Link) {
	e := g.index[l.Containing]

	p := &Property{
		Name:        l.Contained,
		Description: l.Description,
		Link:        l,
	}
	if l.Cardinality.ToMany() {
		p.Type = "array"
		p.Items = &Items{Ref: l.Contained}
	} else {
		p.Ref = l.Contained
	}
	e.SetProperty(p)
	e.Relations = append(e.Relations, l)
	g.Links = append(g.Links, l)
}

// registry accumulates promoted parameters in first-seen order; later entries replace earlier ones
type registry struct {
	entries []NamedParameter
}

func (r *registry) add(key string, p Parameter) {
	for i := range r.entries {
		if r.entries[i].Key == key {
			r.entries[i].Parameter = p
			return
		}
	}
	r.entries = append(r.entries, NamedParameter{Key: key, Parameter: p})
}

func without(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
