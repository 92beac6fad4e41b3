// Package model is the entity-relationship graph built from a parsed data model.
package model

import (
	"strings"

	"github.com/tordrt/modelspec/internal/annotation"
)

// Sentinel column and entity names
const (
	PathColumn     = "_PATH"
	RootColumn     = "_ROOT"
	OpenAPIEntity  = "OpenAPI"
	IgnoreSentinel = "ignore"
)

// Cardinality of the contained side of a link
type Cardinality string

const (
	OneToOne   Cardinality = "OneToOne"
	ZeroToOne  Cardinality = "ZeroToOne"
	OneToMore  Cardinality = "OneToMore"
	ZeroToMore Cardinality = "ZeroToMore"
)

// ToMany reports whether the containing entity holds a list of contained entities
func (c Cardinality) ToMany() bool {
	return c == OneToMore || c == ZeroToMore
}

// Required reports whether at least one contained entity must be present
func (c Cardinality) Required() bool {
	return c == OneToOne || c == OneToMore
}

// CardinalityFromCode maps a relationship end code to a cardinality
func CardinalityFromCode(code string) (Cardinality, bool) {
	switch strings.TrimSpace(code) {
	case "2":
		return OneToOne, true
	case "3":
		return ZeroToOne, true
	case "7":
		return OneToMore, true
	case "6":
		return ZeroToMore, true
	}
	return "", false
}

// OperationMode selects the HTTP operations generated for an entity's routes
type OperationMode string

const (
	ModeListReadOnly    OperationMode = "list-read-only"
	ModeListCreatePatch OperationMode = "list-create-patch"
	ModeListCreate      OperationMode = "list-create"
	ModeReadOnly        OperationMode = "read-only"
	ModeReadCreatePatch OperationMode = "read-create-patch"
	ModeReadCreate      OperationMode = "read-create"
	ModeReadWrite       OperationMode = "read-write"
)

// modes in match order; a longer mode is tried before any mode it contains
var modes = []OperationMode{
	ModeListReadOnly,
	ModeListCreatePatch,
	ModeListCreate,
	ModeReadOnly,
	ModeReadCreatePatch,
	ModeReadCreate,
}

// ParseOperationMode finds the first known mode contained in text, case-insensitively.
// Text naming no mode yields ModeReadWrite.
func ParseOperationMode(text string) OperationMode {
	lower := strings.ToLower(text)
	for _, m := range modes {
		if strings.Contains(lower, string(m)) {
			return m
		}
	}
	return ModeReadWrite
}

// Route is the REST exposure of an entity, declared by its _PATH column
type Route struct {
	Path       string        `json:"path"`
	Prefix     string        `json:"prefix"`
	Mode       OperationMode `json:"mode"`
	Parameters string        `json:"parameters,omitempty"`
}

// Items describes the element type of an array property
type Items struct {
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`
	Ref    string `json:"ref,omitempty"`
}

// Property is one field of an entity
type Property struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Example        string `json:"example"`
	DefaultPattern string `json:"defaultPattern,omitempty"`
	Type           string `json:"type,omitempty"`
	Format         string `json:"format,omitempty"`
	Mandatory      bool   `json:"mandatory"`
	MinItems       *int   `json:"minItems,omitempty"`
	MaxItems       *int   `json:"maxItems,omitempty"`
	Items          *Items `json:"items,omitempty"`
	// Ref names the contained entity of a to-one relationship
	Ref string `json:"ref,omitempty"`
	// Link is set on properties injected for a relationship
	Link *Link `json:"-"`

	Annotation annotation.Record `json:"annotation"`
}

// IsRelation reports whether the property was injected for a relationship
func (p *Property) IsRelation() bool {
	return p.Link != nil
}

// ScalarType returns the element type for arrays and the type otherwise
func (p *Property) ScalarType() (string, string) {
	if p.Items != nil && p.Items.Ref == "" {
		return p.Items.Type, p.Items.Format
	}
	return p.Type, p.Format
}

// Link is a containment edge between two entities
type Link struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Containing  string      `json:"containing"`
	Contained   string      `json:"contained"`
	Cardinality Cardinality `json:"cardinality"`
}

// Entity is one API resource type
type Entity struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Example     string            `json:"example"`
	Properties  []*Property       `json:"properties"`
	Required    []string          `json:"required,omitempty"`
	Relations   []*Link           `json:"relations,omitempty"`
	Route       *Route            `json:"route,omitempty"`
	IsRoot      bool              `json:"isRoot,omitempty"`
	Annotation  annotation.Record `json:"-"`
}

// Property returns the named property, or nil
func (e *Entity) Property(name string) *Property {
	for _, p := range e.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SetProperty adds p, replacing a property with the same name in place
func (e *Entity) SetProperty(p *Property) {
	for i, existing := range e.Properties {
		if existing.Name == p.Name {
			e.Properties[i] = p
			return
		}
	}
	e.Properties = append(e.Properties, p)
}

// AddRequired appends name to the required list once
func (e *Entity) AddRequired(name string) {
	for _, r := range e.Required {
		if r == name {
			return
		}
	}
	e.Required = append(e.Required, name)
}

// Parameter is a reusable OpenAPI parameter promoted from an asParameter property
type Parameter struct {
	Name        string          `json:"name"`
	In          string          `json:"in"`
	Description string          `json:"description"`
	Required    bool            `json:"required"`
	Schema      ParameterSchema `json:"schema"`
}

// ParameterSchema is the schema of a promoted parameter
type ParameterSchema struct {
	Type    string `json:"type"`
	Format  string `json:"format,omitempty"`
	Default any    `json:"default,omitempty"`
	Enum    []any  `json:"enum,omitempty"`
}

// NamedParameter is a registry entry
type NamedParameter struct {
	Key       string    `json:"key"`
	Parameter Parameter `json:"parameter"`
}

// Graph is the complete entity-relationship model of one run.
// It is built once and only read afterwards.
type Graph struct {
	Name       string           `json:"name"`
	Entities   []*Entity        `json:"entities"`
	Links      []*Link          `json:"links"`
	Parameters []NamedParameter `json:"parameters"`
	index      map[string]*Entity
}

// Entity returns the named entity, or nil
func (g *Graph) Entity(name string) *Entity {
	if g.index != nil {
		return g.index[name]
	}
	for _, e := range g.Entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Resources returns every entity except the OpenAPI sentinel, in model order
func (g *Graph) Resources() []*Entity {
	out := make([]*Entity, 0, len(g.Entities))
	for _, e := range g.Entities {
		if e.Name != OpenAPIEntity {
			out = append(out, e)
		}
	}
	return out
}
