package model

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelspec/internal/schema"
)

func strPtr(s string) *string { return &s }

func column(name, typ string, nullable bool, remarks string) schema.Column {
	return schema.Column{ID: name, Name: name, PhysicalName: name, Type: typ, Nullable: nullable, Remarks: remarks}
}

func sampleSchema() *schema.Schema {
	return &schema.Schema{
		Name: "crm",
		Tables: []schema.Table{
			{
				ID: "T1", Name: "Customer", PhysicalName: "customer", Remarks: "A customer",
				Columns: []schema.Column{
					{Name: "_PATH", PhysicalName: "customer", DefaultValue: strPtr("/crm"),
						Remarks: `list-create <parameters><list_parameters>{"name":"q","in":"query","schema":{"type":"string"}}</list_parameters></parameters>`},
					column("name", "12", false, `Customer name <schema>{"minCardinality": 1}</schema>`),
					column("scores", "4", false, `<schema>{"minCardinality": 0, "maxCardinality": 5}</schema>`),
					column("status", "12", true, `<schema>{"asParameter": "query required", "possibleValues": ["new", "gold"]}</schema>`),
					column("_ROOT", "12", true, ""),
				},
			},
			{
				ID: "T2", Name: "Order", PhysicalName: "order",
				Columns: []schema.Column{
					column("customer_fk", "12", false, ""),
					column("placed", "93", true, ""),
				},
			},
			{
				ID: "T3", Name: "Address", PhysicalName: "address",
				Columns: []schema.Column{column("street", "12", true, "")},
			},
			{
				ID: "T4", Name: "Scratch", PhysicalName: "scratch_ignore",
				Columns: []schema.Column{column("x", "12", true, "")},
			},
			{
				ID: "T5", Name: "Note", PhysicalName: "note",
				Columns: []schema.Column{column("body", "12", true, "")},
			},
		},
		Relationships: []schema.Relationship{
			{ID: "R1", Name: "customer_orders", PKTableRef: "T1", FKTableRef: "T2", PKCardinality: "6", FKCardinality: "3"},
			{ID: "R2", Name: "customer_address", PKTableRef: "T1", FKTableRef: "T3", PKCardinality: "2", FKCardinality: "7"},
			{ID: "R3", Name: "customer_scratch", PKTableRef: "T1", FKTableRef: "T4", PKCardinality: "6", FKCardinality: "6"},
			{ID: "R4", Name: "ignore_me", PKTableRef: "T1", FKTableRef: "T5", PKCardinality: "6", FKCardinality: "6"},
			{ID: "R5", Name: "customer_notes", PKTableRef: "T1", FKTableRef: "T5", PKCardinality: "6", FKCardinality: "6"},
		},
		TableLinks: []schema.TableLink{
			{RelationshipRef: "R1", LineColor: "0x000000", PKLabelText: "places", FKLabelText: "placed by"},
			{RelationshipRef: "R5", LineColor: "0x999999"},
		},
	}
}

func build(t *testing.T) (*Graph, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g, err := NewBuilder(logger).Build(sampleSchema())
	require.NoError(t, err)
	return g, buf
}

func TestBuildIgnoresSentinelTables(t *testing.T) {
	g, _ := build(t)

	assert.Nil(t, g.Entity("Scratch"))
	for _, l := range g.Links {
		assert.NotEqual(t, "Scratch", l.Contained)
	}
	assert.Nil(t, g.Entity("Customer").Property("Scratch"))
}

func TestBuildRoute(t *testing.T) {
	g, _ := build(t)

	r := g.Entity("Customer").Route
	require.NotNil(t, r)
	assert.Equal(t, "customer", r.Path)
	assert.Equal(t, "/crm", r.Prefix)
	assert.Equal(t, ModeListCreate, r.Mode)
	assert.Contains(t, r.Parameters, "<list_parameters>")
	assert.Nil(t, g.Entity("Customer").Property("_PATH"))
	assert.Nil(t, g.Entity("Order").Route)
}

func TestBuildRootFlag(t *testing.T) {
	g, _ := build(t)

	assert.True(t, g.Entity("Customer").IsRoot)
	assert.Nil(t, g.Entity("Customer").Property("_ROOT"))
	assert.False(t, g.Entity("Order").IsRoot)
}

func TestBuildArrayProperty(t *testing.T) {
	g, _ := build(t)
	c := g.Entity("Customer")

	p := c.Property("scores")
	require.NotNil(t, p)
	assert.Equal(t, "array", p.Type)
	require.NotNil(t, p.Items)
	assert.Equal(t, "integer", p.Items.Type)
	assert.Equal(t, 0, *p.MinItems)
	assert.Equal(t, 5, *p.MaxItems)
	assert.False(t, p.Mandatory)
	assert.NotContains(t, c.Required, "scores")
	assert.Contains(t, c.Required, "name")
}

func TestBuildCardinality(t *testing.T) {
	g, _ := build(t)
	c := g.Entity("Customer")

	// pk end evaluated last wins
	address := c.Property("Address")
	require.NotNil(t, address)
	assert.Equal(t, "Address", address.Ref)
	assert.Equal(t, OneToOne, address.Link.Cardinality)

	orders := c.Property("Order")
	require.NotNil(t, orders)
	assert.Equal(t, "array", orders.Type)
	assert.Equal(t, "Order", orders.Items.Ref)
	assert.Equal(t, "places placed_by", orders.Link.Description)

	assert.Len(t, c.Relations, 2)
	assert.Len(t, g.Links, 2)
}

func TestBuildSkipsIgnoredRelationships(t *testing.T) {
	g, buf := build(t)

	assert.NotNil(t, g.Entity("Note"))
	assert.Nil(t, g.Entity("Customer").Property("Note"))
	assert.Contains(t, buf.String(), "grey link")
}

func TestBuildDropsLinksToOpenAPIEntity(t *testing.T) {
	tests := map[string]schema.Relationship{
		"contains OpenAPI": {ID: "R1", Name: "customer_info", PKTableRef: "T1", FKTableRef: "T0", PKCardinality: "2", FKCardinality: "2"},
		"inside OpenAPI":   {ID: "R1", Name: "info_customer", PKTableRef: "T0", FKTableRef: "T1", PKCardinality: "2", FKCardinality: "2"},
	}

	for name, rel := range tests {
		t.Run(name, func(t *testing.T) {
			s := &schema.Schema{
				Tables: []schema.Table{
					{ID: "T0", Name: "OpenAPI", PhysicalName: "OpenAPI", Columns: []schema.Column{column("title", "12", true, "")}},
					{ID: "T1", Name: "Customer", PhysicalName: "customer", Columns: []schema.Column{
						column("_ROOT", "12", true, ""),
						column("name", "12", false, ""),
					}},
				},
				Relationships: []schema.Relationship{rel},
			}
			buf := &bytes.Buffer{}
			g, err := NewBuilder(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))).Build(s)
			require.NoError(t, err)

			c := g.Entity("Customer")
			require.NotNil(t, c)
			assert.Nil(t, c.Property(OpenAPIEntity))
			assert.Empty(t, c.Relations)
			assert.Empty(t, g.Links)
			assert.Equal(t, []string{"name"}, c.Required)
			if info := g.Entity(OpenAPIEntity); info != nil {
				assert.Nil(t, info.Property("Customer"))
			}
			assert.Contains(t, buf.String(), "relationship dropped, OpenAPI entity")
		})
	}
}

func TestBuildNormalizesNames(t *testing.T) {
	g, _ := build(t)

	o := g.Entity("Order")
	assert.NotNil(t, o.Property("customer"))
	assert.Equal(t, "timestamp", o.Property("placed").Format)
	assert.Equal(t, []string{"customer"}, o.Required)
}

func TestBuildPromotesParameters(t *testing.T) {
	g, _ := build(t)

	require.Len(t, g.Parameters, 1)
	np := g.Parameters[0]
	assert.Equal(t, "statusParam", np.Key)
	assert.Equal(t, "status", np.Parameter.Name)
	assert.Equal(t, "query", np.Parameter.In)
	assert.True(t, np.Parameter.Required)
	assert.Equal(t, "string", np.Parameter.Schema.Type)
	assert.Equal(t, []any{"new", "gold"}, np.Parameter.Schema.Enum)
	assert.Nil(t, np.Parameter.Schema.Default)
}

func TestBuildUnsupportedTypeFallsBack(t *testing.T) {
	s := &schema.Schema{Tables: []schema.Table{{
		ID: "T1", Name: "Shape", PhysicalName: "shape",
		Columns: []schema.Column{column("outline", "geometry", true, "")},
	}}}
	buf := &bytes.Buffer{}
	g, err := NewBuilder(slog.New(slog.NewJSONHandler(buf, nil))).Build(s)
	require.NoError(t, err)

	assert.Equal(t, "geometry", g.Entity("Shape").Property("outline").Type)
	assert.Contains(t, buf.String(), `"kind":"type"`)
}

func TestBuildNilSchema(t *testing.T) {
	_, err := NewBuilder(nil).Build(nil)
	assert.Error(t, err)
}

func TestParseOperationMode(t *testing.T) {
	tests := map[string]OperationMode{
		"list-read-only":            ModeListReadOnly,
		"List-Create-Patch":         ModeListCreatePatch,
		"list-create":               ModeListCreate,
		"read-only":                 ModeReadOnly,
		"read-create":               ModeReadCreate,
		"read-create-patch":         ModeReadCreatePatch,
		"mode: read-create please":  ModeReadCreate,
		"READ-WRITE":                ModeReadWrite,
		"":                          ModeReadWrite,
		"anything else entirely ok": ModeReadWrite,
	}
	for text, want := range tests {
		assert.Equal(t, want, ParseOperationMode(text), text)
	}
}

func TestCardinalityFromCode(t *testing.T) {
	for code, want := range map[string]Cardinality{"2": OneToOne, "3": ZeroToOne, "7": OneToMore, "6": ZeroToMore} {
		got, ok := CardinalityFromCode(code)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := CardinalityFromCode("9")
	assert.False(t, ok)
}
