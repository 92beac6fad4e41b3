package db

import (
	"context"
	"path/filepath"
	"testing"
)

const shopDDL = `
CREATE TABLE users ( -- People using the shop
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE, -- Login <schema>{"example": "jdoe"}</schema>
	status TEXT DEFAULT 'active',
	created_at DATETIME
);
CREATE TABLE profiles (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
	bio TEXT
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	total NUMERIC(10,2),
	FOREIGN KEY (user_id) REFERENCES users(id)
);
`

func newShopDB(t *testing.T) *SQLiteClient {
	t.Helper()
	ctx := context.Background()

	client, err := NewSQLiteClient(ctx, filepath.Join(t.TempDir(), "shop.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := client.GetDB().ExecContext(ctx, shopDDL); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return client
}

func TestSQLiteExtraction(t *testing.T) {
	ctx := context.Background()
	extractor := NewSQLiteExtractor(newShopDB(t))

	s, err := extractor.ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, []string{"orders", "profiles", "users"})
	if s.Tables[0].Name != "orders" {
		t.Errorf("Expected tables sorted by name, got %s first", s.Tables[0].Name)
	}

	users := s.TableByID("users")
	verifyColumns(t, users, []string{"id", "username", "status", "created_at"})
	if users.Remarks != "People using the shop" {
		t.Errorf("Expected table comment, got %q", users.Remarks)
	}

	username := findColumn(t, s, "users", "username")
	if username.Nullable {
		t.Error("username should not be nullable")
	}
	if username.Type != "TEXT" {
		t.Errorf("Expected TEXT, got %s", username.Type)
	}
	if username.Remarks != `Login <schema>{"example": "jdoe"}</schema>` {
		t.Errorf("Unexpected username remarks %q", username.Remarks)
	}
	if username.ID != "users.username" {
		t.Errorf("Unexpected column ID %q", username.ID)
	}

	status := findColumn(t, s, "users", "status")
	if status.DefaultValue == nil || *status.DefaultValue != "'active'" {
		t.Errorf("Expected default 'active', got %v", status.DefaultValue)
	}
	if !status.Nullable {
		t.Error("status should be nullable")
	}

	if len(s.Relationships) != 2 {
		t.Fatalf("Expected 2 relationships, got %d", len(s.Relationships))
	}
	verifyForeignKey(t, s, "orders", "users", manyReferenceCode)
	verifyForeignKey(t, s, "profiles", "users", uniqueReferenceCode)
}

func TestSQLiteSpecificTables(t *testing.T) {
	ctx := context.Background()
	extractor := NewSQLiteExtractor(newShopDB(t))

	s, err := extractor.ExtractSchema(ctx, []string{"users", "orders"})
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, []string{"users", "orders"})
	if s.TableByID("profiles") != nil {
		t.Error("Should not include profiles table")
	}
	if len(s.Relationships) != 1 {
		t.Fatalf("Expected only the orders relationship, got %d", len(s.Relationships))
	}
	verifyForeignKey(t, s, "orders", "users", manyReferenceCode)
}
