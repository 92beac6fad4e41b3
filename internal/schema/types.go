package schema

// Schema represents a parsed logical data model, independent of the source it was read from
type Schema struct {
	Name          string
	Tables        []Table
	Relationships []Relationship
	TableLinks    []TableLink
}

// Table represents a source table
type Table struct {
	ID           string
	Name         string
	PhysicalName string
	Remarks      string
	Columns      []Column
}

// Column represents a table column
type Column struct {
	ID           string
	Name         string
	PhysicalName string
	Type         string // vendor type code or name, mapped by typemap
	Nullable     bool
	DefaultValue *string
	Remarks      string
	EnumValues   []string
}

// Relationship represents a foreign key between two tables.
// PKTableRef and FKTableRef hold table IDs, not names.
type Relationship struct {
	ID            string
	Name          string
	PKTableRef    string
	FKTableRef    string
	PKCardinality string
	FKCardinality string
}

// TableLink is the visual edge drawn for a relationship
type TableLink struct {
	RelationshipRef string
	LineColor       string
	PKLabelText     string
	FKLabelText     string
}

// IgnoredLineColor marks a relationship that was greyed out in the modelling tool
const IgnoredLineColor = "0x999999"

// TableByID returns the table with the given ID, or nil
func (s *Schema) TableByID(id string) *Table {
	for i := range s.Tables {
		if s.Tables[i].ID == id {
			return &s.Tables[i]
		}
	}
	return nil
}

// LinkFor returns the table link drawn for the relationship, or nil
func (s *Schema) LinkFor(relationshipID string) *TableLink {
	for i := range s.TableLinks {
		if s.TableLinks[i].RelationshipRef == relationshipID {
			return &s.TableLinks[i]
		}
	}
	return nil
}

// DefaultString returns the column default value or an empty string
func (c Column) DefaultString() string {
	if c.DefaultValue == nil {
		return ""
	}
	return *c.DefaultValue
}
