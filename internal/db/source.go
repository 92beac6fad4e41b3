// Package db reads live database catalogs into source records.
//
// Every extractor produces one table per base table (the table name doubles as its ID),
// columns carrying the vendor type name, nullability, default and comment, and one
// relationship per foreign key. The referenced table is the containing (pk) end and the
// referencing table the contained (fk) end.
package db

import (
	"context"
	"fmt"

	"github.com/tordrt/modelspec/internal/schema"
)

// Relationship end codes emitted for foreign keys
const (
	uniqueReferenceCode = "3" // ZeroToOne: the referencing column is unique
	manyReferenceCode   = "6" // ZeroToMore
)

// Extractor reads the catalog of one database schema
type Extractor interface {
	// ExtractSchema extracts the given tables, or every base table when tables is empty
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

var (
	_ Extractor = (*PostgresExtractor)(nil)
	_ Extractor = (*MySQLExtractor)(nil)
	_ Extractor = (*SQLiteExtractor)(nil)
	_ Extractor = (*MSSQLExtractor)(nil)
)

// foreignKey is one column of a foreign key constraint as read from a catalog
type foreignKey struct {
	Name     string
	Table    string
	Column   string
	RefTable string
	Unique   bool
}

func newTable(name, comment string) schema.Table {
	return schema.Table{ID: name, Name: name, PhysicalName: name, Remarks: comment}
}

func newColumn(table, name, typ string, nullable bool, defaultValue *string, comment string) schema.Column {
	return schema.Column{
		ID:           table + "." + name,
		Name:         name,
		PhysicalName: name,
		Type:         typ,
		Nullable:     nullable,
		DefaultValue: defaultValue,
		Remarks:      comment,
	}
}

// relationships turns foreign key rows into relationships between extracted tables.
// Composite keys yield one relationship, described by their first column.
func relationships(tables []schema.Table, fks []foreignKey) []schema.Relationship {
	extracted := make(map[string]bool, len(tables))
	for _, t := range tables {
		extracted[t.ID] = true
	}

	seen := make(map[string]bool)
	var rels []schema.Relationship
	for _, fk := range fks {
		if !extracted[fk.Table] || !extracted[fk.RefTable] {
			continue
		}
		name := fk.Name
		if name == "" {
			name = fmt.Sprintf("%s_%s_fkey", fk.Table, fk.Column)
		}
		id := fk.Table + "." + name
		if seen[id] {
			continue
		}
		seen[id] = true

		code := manyReferenceCode
		if fk.Unique {
			code = uniqueReferenceCode
		}
		rels = append(rels, schema.Relationship{
			ID:            id,
			Name:          name,
			PKTableRef:    fk.RefTable,
			FKTableRef:    fk.Table,
			FKCardinality: code,
		})
	}
	return rels
}
