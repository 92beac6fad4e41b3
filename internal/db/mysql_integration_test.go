//go:build integration

package db

import (
	"context"
	"os"
	"testing"
)

// The MySQL tests expect the users/products/orders/order_items schema to exist already.
func mysqlConnString() string {
	if connString := os.Getenv("MYSQL_TEST_URL"); connString != "" {
		return connString
	}
	return "root:testpassword@tcp(localhost:3306)/testdb"
}

func TestMySQLExtraction(t *testing.T) {
	ctx := context.Background()

	connString := mysqlConnString()
	client, err := NewMySQLClient(ctx, connString)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer func() { _ = client.Close() }()

	schemaName, err := ParseDatabaseName(connString)
	if err != nil {
		t.Fatalf("Failed to parse database name: %v", err)
	}

	s, err := NewMySQLExtractor(client, schemaName).ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, []string{"users", "products", "orders", "order_items"})
	verifyColumns(t, s.TableByID("users"), []string{"id", "username", "email", "status", "created_at"})

	status := findColumn(t, s, "users", "status")
	if len(status.EnumValues) != 3 {
		t.Errorf("Expected 3 enum values for status, got %v", status.EnumValues)
	}

	verifyForeignKey(t, s, "orders", "users", manyReferenceCode)
}

func TestMySQLSpecificTables(t *testing.T) {
	ctx := context.Background()

	client, err := NewMySQLClient(ctx, mysqlConnString())
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer func() { _ = client.Close() }()

	s, err := NewMySQLExtractor(client, "testdb").ExtractSchema(ctx, []string{"users", "orders"})
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, []string{"users", "orders"})
	if s.TableByID("products") != nil || s.TableByID("order_items") != nil {
		t.Error("Should not include products or order_items tables")
	}
}
