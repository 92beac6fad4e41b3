package architect

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	s, err := ReadFile("../../testdata/crm.architect")
	require.NoError(t, err)

	assert.Equal(t, "crm", s.Name)
	require.Len(t, s.Tables, 6)
	assert.Equal(t, "OpenAPI", s.Tables[0].Name)

	customer := s.TableByID("TAB1")
	require.NotNil(t, customer)
	assert.Equal(t, "Customer", customer.Name)
	assert.Equal(t, "customer", customer.PhysicalName)
	assert.Equal(t, "A person or company buying from us", customer.Remarks)
	require.Len(t, customer.Columns, 5)

	path := customer.Columns[0]
	assert.Equal(t, "_PATH", path.Name)
	assert.True(t, path.Nullable)
	require.NotNil(t, path.DefaultValue)
	assert.Equal(t, "/crm", *path.DefaultValue)
	assert.Contains(t, path.Remarks, "<list_parameters>")

	name := customer.Columns[2]
	assert.False(t, name.Nullable)
	assert.Nil(t, name.DefaultValue)
	assert.Equal(t, "12", name.Type)
	assert.Equal(t, `Legal name <schema>{"asParameter": "query", "defaultValue": "ACME"}</schema>`, name.Remarks)

	require.Len(t, s.Relationships, 4)
	rel := s.Relationships[0]
	assert.Equal(t, "REL1", rel.ID)
	assert.Equal(t, "customer_orders", rel.Name)
	assert.Equal(t, "TAB1", rel.PKTableRef)
	assert.Equal(t, "TAB2", rel.FKTableRef)
	assert.Equal(t, "6", rel.PKCardinality)
	assert.Equal(t, "7", rel.FKCardinality)

	require.Len(t, s.TableLinks, 3)
	link := s.LinkFor("REL1")
	require.NotNil(t, link)
	assert.Equal(t, "places", link.PKLabelText)
	assert.Equal(t, "placed by", link.FKLabelText)
	assert.Equal(t, "0x999999", s.LinkFor("REL4").LineColor)
	assert.Nil(t, s.LinkFor("REL3"))
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile("does-not-exist.architect")
	assert.Error(t, err)
}

func TestReadStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want error
	}{
		{
			name: "no target database",
			xml:  `<architect-project></architect-project>`,
			want: ErrNoTables,
		},
		{
			name: "no tables",
			xml:  `<architect-project><target-database><relationships/></target-database></architect-project>`,
			want: ErrNoTables,
		},
		{
			name: "no relationships container",
			xml: `<architect-project><target-database>
				<table id="T1" name="A" physicalName="a"/>
			</target-database></architect-project>`,
			want: ErrNoRelationships,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.xml))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadEmptyRelationshipsIsAccepted(t *testing.T) {
	s, err := Read(strings.NewReader(`<architect-project><target-database name="db">
		<table id="T1" name="A" physicalName="a"/>
		<relationships></relationships>
	</target-database></architect-project>`))
	require.NoError(t, err)
	assert.Equal(t, "db", s.Name)
	assert.Len(t, s.Tables, 1)
	assert.Empty(t, s.Relationships)
	assert.Empty(t, s.TableLinks)
}

func TestReadMalformed(t *testing.T) {
	_, err := Read(strings.NewReader(`<architect-project><target-database>`))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTables))
}

func TestReadLatin1(t *testing.T) {
	// "Café" encoded as ISO-8859-1
	data := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<architect-project><target-database>" +
		"<table id=\"T1\" name=\"Caf\xe9\" physicalName=\"cafe\"/>" +
		"<relationships/></target-database></architect-project>"

	s, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Café", s.Tables[0].Name)
}
