// Package openapi projects an entity graph into an OpenAPI 3 document.
//
// The document is built from ordered nodes so that its top-level keys always come out as
// openapi, info, externalDocs, servers, security, tags, paths, components.
package openapi

import (
	"log/slog"

	"github.com/tordrt/modelspec/internal/doc"
	"github.com/tordrt/modelspec/internal/model"
)

// Version is the OpenAPI version written to generated documents
const Version = "3.0.2"

// Info is the default info block, used unless the OpenAPI sentinel entity overrides it
type Info struct {
	Title       string
	Version     string
	Description string
}

// DefaultInfo returns the info block used when nothing else is configured
func DefaultInfo() Info {
	return Info{
		Title:       "Business Data Model",
		Version:     "1.0.0",
		Description: "Business Data Model. This is generated, modify the source data model instead.",
	}
}

// Projector assembles OpenAPI documents
type Projector struct {
	logger *slog.Logger
	info   Info
}

// NewProjector creates a projector; zero fields of info fall back to DefaultInfo
func NewProjector(info Info, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	def := DefaultInfo()
	if info.Title == "" {
		info.Title = def.Title
	}
	if info.Version == "" {
		info.Version = def.Version
	}
	if info.Description == "" {
		info.Description = def.Description
	}
	return &Projector{logger: logger, info: info}
}

// sentinel holds the document fields read from the OpenAPI entity
type sentinel struct {
	title, version, description *string
	contact, license            any
	externalDocs                any
	servers, security, tags     any
	securitySchemes             any
}

// Project builds the full document for g. g is not modified.
func (p *Projector) Project(g *model.Graph) *doc.Map {
	s := p.readSentinel(g.Entity(model.OpenAPIEntity))
	resources := g.Resources()
	paths := NewSynthesizer(p.logger).Synthesize(resources)

	d := doc.New()
	d.Set("openapi", Version)
	d.Set("info", p.infoBlock(s))
	setIf(d, "externalDocs", s.externalDocs)
	setIf(d, "servers", s.servers)
	setIf(d, "security", s.security)
	setIf(d, "tags", s.tags)
	d.Set("paths", paths.Paths)

	components := doc.New()
	setIf(components, "securitySchemes", s.securitySchemes)
	schemas := doc.New()
	for _, e := range resources {
		schemas.Set(e.Name, EntitySchema(e))
	}
	components.Set("schemas", schemas)
	components.Set("parameters", parameters(g, paths))
	d.Set("components", components)
	return d
}

func setIf(m *doc.Map, key string, v any) {
	if v != nil {
		m.Set(key, v)
	}
}

func (p *Projector) infoBlock(s sentinel) *doc.Map {
	info := doc.New()
	info.Set("title", p.info.Title)
	if s.title != nil {
		info.Set("title", *s.title)
	}
	info.Set("version", p.info.Version)
	if s.version != nil {
		info.Set("version", *s.version)
	}
	info.Set("description", p.info.Description)
	if s.description != nil {
		info.Set("description", *s.description)
	}
	setIf(info, "contact", s.contact)
	setIf(info, "license", s.license)
	return info
}

func (p *Projector) readSentinel(e *model.Entity) sentinel {
	var s sentinel
	if e == nil {
		return s
	}
	for _, prop := range e.Properties {
		switch prop.Name {
		case "title":
			v := prop.Example
			s.title = &v
		case "version":
			v := prop.Example
			s.version = &v
		case "description":
			v := prop.Example + " " + prop.Description
			s.description = &v
		case "contact":
			s.contact = p.parseOverride(prop)
		case "license":
			s.license = p.parseOverride(prop)
		case "externalDocs":
			s.externalDocs = p.parseOverride(prop)
		case "servers":
			s.servers = p.parseOverride(prop)
		case "security":
			s.security = p.parseOverride(prop)
		case "tags":
			s.tags = p.parseOverride(prop)
		case "securitySchemes":
			s.securitySchemes = p.parseOverride(prop)
		}
	}
	return s
}

// parseOverride reads the JSON value carried by a sentinel property description
func (p *Projector) parseOverride(prop *model.Property) any {
	v, err := doc.ParseJSON(prop.Description)
	if err != nil {
		p.logger.Error("malformed OpenAPI override", "kind", "decode", "entity", model.OpenAPIEntity,
			"field", prop.Name, "error", err)
		return nil
	}
	return v
}

// parameters merges promoted properties with route-declared schema parameters
func parameters(g *model.Graph, paths *PathSet) *doc.Map {
	out := doc.New()
	for _, np := range g.Parameters {
		out.Set(np.Key, parameterNode(np.Parameter))
	}
	for p := paths.Parameters.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

func parameterNode(p model.Parameter) *doc.Map {
	n := doc.New()
	n.Set("name", p.Name)
	n.Set("in", p.In)
	n.Set("description", p.Description)
	n.Set("required", p.Required)

	s := doc.New()
	s.Set("type", p.Schema.Type)
	if p.Schema.Format != "" {
		s.Set("format", p.Schema.Format)
	}
	if p.Schema.Default != nil {
		s.Set("default", p.Schema.Default)
	}
	if len(p.Schema.Enum) > 0 {
		s.Set("enum", p.Schema.Enum)
	}
	n.Set("schema", s)
	return n
}

// EntitySchema returns the component schema of e, without internal metadata
func EntitySchema(e *model.Entity) *doc.Map {
	s := doc.New()
	s.Set("type", "object")
	s.Set("description", e.Description)
	if len(e.Required) > 0 {
		s.Set("required", append([]string(nil), e.Required...))
	}
	props := doc.New()
	for _, p := range e.Properties {
		props.Set(p.Name, propertySchema(p))
	}
	s.Set("properties", props)
	return s
}

func propertySchema(p *model.Property) *doc.Map {
	s := doc.New()
	switch {
	case p.Ref != "":
		s.Set("$ref", "#/components/schemas/"+p.Ref)
		return s
	case p.Items != nil && p.Items.Ref != "":
		s.Set("type", "array")
		s.Set("items", schemaRef(p.Items.Ref))
		s.Set("description", p.Description)
		return s
	case p.Items != nil:
		s.Set("type", "array")
		items := doc.New()
		items.Set("type", p.Items.Type)
		if p.Items.Format != "" {
			items.Set("format", p.Items.Format)
		}
		s.Set("items", items)
		if p.MinItems != nil {
			s.Set("minItems", *p.MinItems)
		}
		if p.MaxItems != nil {
			s.Set("maxItems", *p.MaxItems)
		}
	default:
		s.Set("type", p.Type)
		if p.Format != "" {
			s.Set("format", p.Format)
		}
	}
	s.Set("description", p.Description)
	s.Set("example", p.Example)
	return s
}
