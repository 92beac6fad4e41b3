package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/modelspec/internal/schema"
)

// MSSQLExtractor handles schema extraction from SQL Server.
// Comments are read from the MS_Description extended property.
type MSSQLExtractor struct {
	client     *MSSQLClient
	schemaName string
}

// NewMSSQLExtractor creates a new SQL Server schema extractor; an empty schema name means "dbo"
func NewMSSQLExtractor(client *MSSQLClient, schemaName string) *MSSQLExtractor {
	if schemaName == "" {
		schemaName = DefaultMSSQLSchema
	}
	return &MSSQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts tables, columns, comments and foreign keys.
// If tables is empty, extracts all tables in the schema
func (e *MSSQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
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

func (e *MSSQLExtractor) extractTables(ctx context.Context, requestedTables []string) ([]schema.Table, error) {
	query := `
		SELECT t.name, COALESCE(CAST(ep.value AS nvarchar(max)), '')
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = t.object_id AND ep.minor_id = 0 AND ep.class = 1 AND ep.name = 'MS_Description'
		WHERE s.name = @p1
		ORDER BY t.name
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

func (e *MSSQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.name,
			ty.name,
			c.is_nullable,
			dc.definition,
			COALESCE(CAST(ep.value AS nvarchar(max)), '')
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.class = 1 AND ep.name = 'MS_Description'
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY c.column_id
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, typ, comment string
		var nullable bool
		var defaultVal sql.NullString

		if err := rows.Scan(&name, &typ, &nullable, &defaultVal, &comment); err != nil {
			return nil, err
		}

		var def *string
		if defaultVal.Valid {
			def = &defaultVal.String
		}
		columns = append(columns, newColumn(tableName, name, typ, nullable, def, comment))
	}

	return columns, rows.Err()
}

func (e *MSSQLExtractor) extractForeignKeys(ctx context.Context) ([]foreignKey, error) {
	query := `
		SELECT
			fk.name,
			pt.name,
			pc.name,
			rt.name,
			CAST(CASE WHEN EXISTS (
				SELECT 1
				FROM sys.indexes i
				JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
				WHERE i.object_id = fkc.parent_object_id
					AND i.is_unique = 1
					AND ic.column_id = fkc.parent_column_id
					AND (SELECT COUNT(*) FROM sys.index_columns ic2
						WHERE ic2.object_id = i.object_id AND ic2.index_id = i.index_id) = 1
			) THEN 1 ELSE 0 END AS bit)
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables pt ON pt.object_id = fkc.parent_object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.schemas s ON s.schema_id = pt.schema_id
		WHERE s.name = @p1
		ORDER BY pt.name, fk.name, fkc.constraint_column_id
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
