package openapi

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tordrt/modelspec/internal/annotation"
	"github.com/tordrt/modelspec/internal/doc"
	"github.com/tordrt/modelspec/internal/model"
)

// HTTP operations, in emission order
const (
	opGet    = "get"
	opPost   = "post"
	opPut    = "put"
	opPatch  = "patch"
	opDelete = "delete"
)

type operationSet struct {
	collection []string
	item       []string
}

var operations = map[model.OperationMode]operationSet{
	model.ModeListReadOnly:    {collection: []string{opGet}, item: []string{opGet}},
	model.ModeListCreatePatch: {collection: []string{opGet, opPost}, item: []string{opGet, opPatch}},
	model.ModeListCreate:      {collection: []string{opGet, opPost}, item: []string{opGet}},
	model.ModeReadOnly:        {collection: []string{opGet}, item: []string{opGet}},
	model.ModeReadCreate:      {collection: []string{opGet, opPost}, item: []string{opGet}},
	model.ModeReadCreatePatch: {collection: []string{opGet, opPost}, item: []string{opGet, opPatch}},
	model.ModeReadWrite:       {collection: []string{opGet, opPost}, item: []string{opGet, opPut, opDelete}},
}

// Operations returns the collection and item operations generated for mode
func Operations(mode model.OperationMode) (collection, item []string) {
	set, ok := operations[mode]
	if !ok {
		set = operations[model.ModeReadWrite]
	}
	return set.collection, set.item
}

// PathSet is the output of path synthesis
type PathSet struct {
	Paths *doc.Map
	// Parameters holds schema_parameters declared on routes, keyed by parameter name
	Parameters *doc.Map
}

// Synthesizer emits the OpenAPI paths object for entities that declare a route
type Synthesizer struct {
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer logging to logger; nil discards
func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synthesizer{logger: logger}
}

// scopes holds the parameters declared for each operation scope of a route
type scopes struct {
	list, get, post, put, patch, del, path []any
	schema                                 *doc.Map
}

func (s scopes) forOperation(op string, collection bool) []any {
	switch op {
	case opGet:
		if collection {
			return s.list
		}
		return s.get
	case opPost:
		return s.post
	case opPut:
		return s.put
	case opPatch:
		return s.patch
	case opDelete:
		return s.del
	}
	return nil
}

// Synthesize builds two routes per routed entity: the collection and the single item
func (s *Synthesizer) Synthesize(entities []*model.Entity) *PathSet {
	set := &PathSet{Paths: doc.New(), Parameters: doc.New()}

	for _, e := range entities {
		if e.Route == nil {
			continue
		}
		sc := s.parseScopes(e)
		if sc.schema != nil {
			for p := sc.schema.Oldest(); p != nil; p = p.Next() {
				set.Parameters.Set(p.Key, p.Value)
			}
		}

		collection := collectionPath(e.Route)
		item := collection + "/{" + e.Route.Path + "Id}"
		collectionOps, itemOps := Operations(e.Route.Mode)

		set.Paths.Set(collection, s.collectionItem(e, collectionOps, sc))
		set.Paths.Set(item, s.singleItem(e, itemOps, sc))
	}
	return set
}

func collectionPath(r *model.Route) string {
	prefix := strings.TrimRight(r.Prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix + "/" + r.Path + "s"
}

func (s *Synthesizer) parseScopes(e *model.Entity) scopes {
	var sc scopes
	raw := e.Route.Parameters
	if strings.TrimSpace(raw) == "" {
		return sc
	}

	sc.list = s.parameterList(e.Name, raw, annotation.TagListParameters)
	sc.get = s.parameterList(e.Name, raw, annotation.TagGetParameters)
	sc.post = s.parameterList(e.Name, raw, annotation.TagPostParameters)
	sc.put = s.parameterList(e.Name, raw, annotation.TagPutParameters)
	sc.patch = s.parameterList(e.Name, raw, annotation.TagPatchParameters)
	sc.del = s.parameterList(e.Name, raw, annotation.TagDeleteParameters)
	sc.path = s.parameterList(e.Name, raw, annotation.TagPathParameters)

	if text, ok := annotation.Extract(raw, annotation.TagSchemaParameters); ok && strings.TrimSpace(text) != "" {
		v, err := doc.ParseJSON(strings.TrimSpace(text))
		if err != nil {
			s.logger.Error("malformed schema parameters", "kind", "decode", "entity", e.Name, "error", err)
		} else if m, ok := v.(*doc.Map); ok {
			sc.schema = m
		} else {
			s.logger.Error("schema parameters must be a JSON object", "kind", "decode", "entity", e.Name)
		}
	}
	return sc
}

// parameterList reads a region holding comma separated JSON parameter objects
func (s *Synthesizer) parameterList(entity, raw string, tag annotation.Tag) []any {
	text, ok := annotation.Extract(raw, tag)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return nil
	}
	v, err := doc.ParseJSON("[" + text + "]")
	if err != nil {
		s.logger.Error("malformed route parameters", "kind", "decode", "entity", entity, "scope", string(tag), "error", err)
		return nil
	}
	list, _ := v.([]any)
	return list
}

func (s *Synthesizer) collectionItem(e *model.Entity, ops []string, sc scopes) *doc.Map {
	name := e.Name
	pi := doc.New()
	pi.Set("summary", fmt.Sprintf("Path used to manage the list of %ss.", strings.ToLower(name)))
	pi.Set("description", fmt.Sprintf(
		"The REST endpoint/path used to %s zero or more `%s`.  This path contains %s.",
		verbs(ops, true), name, describeOps(ops)))
	if len(sc.path) > 0 {
		pi.Set("parameters", sc.path)
	}
	for _, op := range ops {
		pi.Set(op, operation(name, op, true, sc.forOperation(op, true)))
	}
	return pi
}

func (s *Synthesizer) singleItem(e *model.Entity, ops []string, sc scopes) *doc.Map {
	name := e.Name
	pi := doc.New()
	pi.Set("summary", fmt.Sprintf("Path used to manage a single %s.", name))
	pi.Set("description", fmt.Sprintf(
		"The REST endpoint/path used to %s single instances of an `%s`.  This path contains %s.",
		verbs(ops, false), name, describeOps(ops)))

	id := doc.New()
	id.Set("name", e.Route.Path+"Id")
	id.Set("description", fmt.Sprintf("A unique identifier for a `%s`.", name))
	idSchema := doc.New()
	idSchema.Set("type", "string")
	id.Set("schema", idSchema)
	id.Set("in", "path")
	id.Set("required", true)
	params := append([]any{id}, sc.path...)
	pi.Set("parameters", params)

	for _, op := range ops {
		pi.Set(op, operation(name, op, false, sc.forOperation(op, false)))
	}
	return pi
}

func verbs(ops []string, collection bool) string {
	words := make([]string, 0, len(ops))
	for _, op := range ops {
		switch op {
		case opGet:
			if collection {
				words = append(words, "list")
			} else {
				words = append(words, "get")
			}
		case opPost:
			words = append(words, "create")
		case opPut, opPatch:
			words = append(words, "update")
		case opDelete:
			words = append(words, "delete")
		}
	}
	return joinWords(words)
}

func describeOps(ops []string) string {
	quoted := make([]string, len(ops))
	for i, op := range ops {
		quoted[i] = "`" + strings.ToUpper(op) + "`"
	}
	if len(ops) == 1 {
		return "a " + quoted[0] + " operation"
	}
	return joinWords(quoted) + " operations"
}

func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	}
	return strings.Join(words[:len(words)-1], ", ") + ", and " + words[len(words)-1]
}

func schemaRef(name string) *doc.Map {
	m := doc.New()
	m.Set("$ref", "#/components/schemas/"+name)
	return m
}

func jsonContent(schema any) *doc.Map {
	media := doc.New()
	media.Set("schema", schema)
	content := doc.New()
	content.Set("application/json", media)
	return content
}

func requestBody(description, name string) *doc.Map {
	rb := doc.New()
	rb.Set("description", description)
	rb.Set("content", jsonContent(schemaRef(name)))
	rb.Set("required", true)
	return rb
}

func response(description string, content *doc.Map) *doc.Map {
	r := doc.New()
	r.Set("description", description)
	if content != nil {
		r.Set("content", content)
	}
	return r
}

// operation builds one operation object; params may be nil
func operation(name, op string, collection bool, params []any) *doc.Map {
	o := doc.New()
	responses := doc.New()
	var body *doc.Map

	switch {
	case op == opGet && collection:
		o.Set("operationId", "get"+name+"s")
		o.Set("summary", "List All "+name+"s")
		o.Set("description", "Gets a list of all `"+name+"` entities.")
		list := doc.New()
		list.Set("type", "array")
		list.Set("items", schemaRef(name))
		responses.Set("200", response("Successful response - returns an array of `"+name+"` entities.", jsonContent(list)))
	case op == opGet:
		o.Set("operationId", "get"+name)
		o.Set("summary", "Get a "+name)
		o.Set("description", "Gets the details of a single instance of a `"+name+"`.")
		responses.Set("200", response("Successful response - returns a single `"+name+"`.", jsonContent(schemaRef(name))))
	case op == opPost:
		o.Set("operationId", "create"+name)
		o.Set("summary", "Create a "+name)
		o.Set("description", "Creates a new instance of a `"+name+"`.")
		body = requestBody("A new `"+name+"` to be created.", name)
		responses.Set("202", response("Successful response.", jsonContent(schemaRef(name))))
	case op == opPut:
		o.Set("operationId", "update"+name)
		o.Set("summary", "Update a "+name)
		o.Set("description", "Updates an existing `"+name+"`.")
		body = requestBody("Updated `"+name+"` information.", name)
		responses.Set("202", response("Successful response.", nil))
	case op == opPatch:
		o.Set("operationId", "update"+name)
		o.Set("summary", "Update a "+name)
		o.Set("description", "Updates an existing `"+name+"`.")
		body = requestBody("Updated `"+name+"` information.", name)
		responses.Set("202", response("Successful response.", jsonContent(schemaRef(name))))
	case op == opDelete:
		o.Set("operationId", "delete"+name)
		o.Set("summary", "Delete a "+name)
		o.Set("description", "Deletes an existing `"+name+"`.")
		responses.Set("204", response("Successful response.", nil))
	}

	if len(params) > 0 {
		o.Set("parameters", params)
	}
	if body != nil {
		o.Set("requestBody", body)
	}
	o.Set("responses", responses)
	return o
}
