package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/modelspec/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts tables, columns, comments and foreign keys.
// If tables is empty, extracts all tables in the schema
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	extracted, err := e.extractTables(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for i := range extracted {
		columns, err := e.extractColumns(ctx, extracted[i].Name)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", extracted[i].Name, err)
		}
		extracted[i].Columns = columns
	}

	fks, err := e.extractForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}

	return &schema.Schema{
		Name:          e.schemaName,
		Tables:        extracted,
		Relationships: relationships(extracted, fks),
	}, nil
}

// extractTables returns the base tables to extract with their comments
func (e *MySQLExtractor) extractTables(ctx context.Context, requestedTables []string) ([]schema.Table, error) {
	query := `
		SELECT table_name, COALESCE(table_comment, '')
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(requestedTables))
	for _, t := range requestedTables {
		wanted[t] = true
	}

	var tables []schema.Table
	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, err
		}
		if len(wanted) > 0 && !wanted[name] {
			continue
		}
		tables = append(tables, newTable(name, comment))
	}

	return tables, rows.Err()
}

// extractColumns extracts columns with their comments for a table
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.data_type,
			c.is_nullable,
			c.column_default,
			COALESCE(c.column_comment, '')
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, columnType, dataType, nullable, comment string
		var defaultVal sql.NullString

		if err := rows.Scan(&name, &columnType, &dataType, &nullable, &defaultVal, &comment); err != nil {
			return nil, err
		}

		var def *string
		if defaultVal.Valid {
			def = &defaultVal.String
		}
		col := newColumn(tableName, name, columnType, nullable == "YES", def, comment)

		if dataType == "enum" {
			values, err := extractEnumValues(columnType)
			if err != nil {
				return nil, err
			}
			col.EnumValues = values
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// extractEnumValues parses enum values from the column type string
// MySQL stores enum types as "enum('value1','value2','value3')"
func extractEnumValues(columnType string) ([]string, error) {
	if !strings.HasPrefix(columnType, "enum(") {
		return nil, nil
	}

	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	var values []string
	for _, part := range strings.Split(columnType[start+1:end], ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && part[0] == '\'' && part[len(part)-1] == '\'' {
			part = part[1 : len(part)-1]
		}
		values = append(values, strings.ReplaceAll(part, "''", "'"))
	}

	return values, nil
}

// extractForeignKeys reads every foreign key column of the schema.
// A column is unique when a single column unique index covers it.
func (e *MySQLExtractor) extractForeignKeys(ctx context.Context) ([]foreignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.table_name,
			kcu.column_name,
			kcu.referenced_table_name,
			EXISTS (
				SELECT 1
				FROM information_schema.statistics s
				WHERE s.table_schema = kcu.table_schema
					AND s.table_name = kcu.table_name
					AND s.column_name = kcu.column_name
					AND s.non_unique = 0
					AND (
						SELECT COUNT(*)
						FROM information_schema.statistics s2
						WHERE s2.table_schema = s.table_schema
							AND s2.table_name = s.table_name
							AND s2.index_name = s.index_name
					) = 1
			) AS is_unique
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err := rows.Scan(&fk.Name, &fk.Table, &fk.Column, &fk.RefTable, &fk.Unique); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}
