package db

import (
	"context"
	"fmt"

	"github.com/tordrt/modelspec/internal/schema"
)

const varcharType = "varchar"

// PostgresExtractor handles schema extraction from PostgreSQL
type PostgresExtractor struct {
	client *PostgresClient
	schema string
}

// NewPostgresExtractor creates a new schema extractor; an empty schema name means "public"
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	if schemaName == "" {
		schemaName = DefaultPostgresSchema
	}
	return &PostgresExtractor{
		client: client,
		schema: schemaName,
	}
}

// ExtractSchema extracts tables, columns, comments and foreign keys.
// If tables is empty, extracts all tables in the schema
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
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
		Name:          e.schema,
		Tables:        extracted,
		Relationships: relationships(extracted, fks),
	}, nil
}

// extractTables returns the base tables to extract with their comments
func (e *PostgresExtractor) extractTables(ctx context.Context, requestedTables []string) ([]schema.Table, error) {
	var filter []string
	if len(requestedTables) > 0 {
		filter = requestedTables
	}

	query := `
		SELECT c.relname, COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
			AND c.relkind IN ('r', 'p')
			AND ($2::text[] IS NULL OR c.relname = ANY($2))
		ORDER BY c.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, err
		}
		tables = append(tables, newTable(name, comment))
	}

	return tables, rows.Err()
}

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			return normalizeUdtName(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

// extractColumns extracts columns with their comments for a table
func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			c.udt_name,
			c.character_maximum_length,
			COALESCE(pg_catalog.col_description(
				format('%I.%I', c.table_schema, c.table_name)::regclass::oid,
				c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	// user-defined type name per column index
	userTypes := make(map[int]string)

	for rows.Next() {
		var name, dataType, nullable, udtName, comment string
		var defaultVal *string
		var charMaxLength *int

		if err := rows.Scan(&name, &dataType, &nullable, &defaultVal, &udtName, &charMaxLength, &comment); err != nil {
			return nil, err
		}

		typ := normalizePostgresType(dataType, udtName, charMaxLength)
		if dataType == "USER-DEFINED" {
			userTypes[len(columns)] = udtName
		}
		columns = append(columns, newColumn(tableName, name, typ, nullable == "YES", defaultVal, comment))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(userTypes) == 0 {
		return columns, nil
	}

	names := make([]string, 0, len(userTypes))
	for _, n := range userTypes {
		names = append(names, n)
	}
	enumValues, err := e.extractEnumValuesMap(ctx, names)
	if err != nil {
		return nil, err
	}
	for i, udt := range userTypes {
		if values, ok := enumValues[udt]; ok {
			columns[i].Type = "enum"
			columns[i].EnumValues = values
		}
	}

	return columns, nil
}

// extractEnumValuesMap extracts enum values for multiple enum types at once
func (e *PostgresExtractor) extractEnumValuesMap(ctx context.Context, enumTypeNames []string) (map[string][]string, error) {
	query := `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE n.nspname = $1 AND t.typname = ANY($2)
		ORDER BY t.typname, e.enumsortorder
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, enumTypeNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var typName, enumLabel string
		if err := rows.Scan(&typName, &enumLabel); err != nil {
			return nil, err
		}
		result[typName] = append(result[typName], enumLabel)
	}

	return result, rows.Err()
}

// extractForeignKeys reads every foreign key column of the schema.
// A column is unique when it carries a single column unique or primary key constraint.
func (e *PostgresExtractor) extractForeignKeys(ctx context.Context) ([]foreignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			kcu.table_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			EXISTS (
				SELECT 1
				FROM pg_index ix
				JOIN pg_class t ON t.oid = ix.indrelid
				JOIN pg_namespace n ON n.oid = t.relnamespace
				JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ix.indkey[0]
				WHERE ix.indisunique
					AND ix.indnatts = 1
					AND n.nspname = kcu.table_schema
					AND t.relname = kcu.table_name
					AND a.attname = kcu.column_name
			) AS is_unique
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
		ORDER BY kcu.table_name, tc.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
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
