package db

import (
	"testing"

	"github.com/tordrt/modelspec/internal/schema"
)

// verifyTablesExist checks that exactly the expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(s.Tables))
	}

	for _, tableName := range expectedTables {
		if s.TableByID(tableName) == nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	columnMap := make(map[string]bool)
	for _, col := range table.Columns {
		columnMap[col.Name] = true
	}

	for _, colName := range expectedColumns {
		if !columnMap[colName] {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyForeignKey checks that a relationship from table to targetTable exists with the given fk-end code
func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, targetTable, code string) {
	t.Helper()

	for _, rel := range s.Relationships {
		if rel.FKTableRef == tableName && rel.PKTableRef == targetTable {
			if rel.FKCardinality != code {
				t.Errorf("Expected %s -> %s cardinality code %s, got %s", tableName, targetTable, code, rel.FKCardinality)
			}
			return
		}
	}

	t.Errorf("Expected foreign key relationship from %s to %s not found", tableName, targetTable)
}

// findColumn returns the named column of a table, failing the test when absent
func findColumn(t *testing.T, s *schema.Schema, tableName, columnName string) schema.Column {
	t.Helper()

	table := s.TableByID(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	for _, col := range table.Columns {
		if col.Name == columnName {
			return col
		}
	}

	t.Fatalf("Column %s not found in table %s", columnName, tableName)
	return schema.Column{}
}
