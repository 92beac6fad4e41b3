package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/modelspec/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite.
// SQLite has no catalog comments: "--" comments written in the CREATE TABLE statement
// are used instead, before the column list for the table and on a column's line for the column.
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts tables, columns, comments and foreign keys.
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	ddl, err := e.getTables(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	var extracted []schema.Table
	var fks []foreignKey
	for _, d := range ddl {
		tableComment, columnComments := parseComments(d.sql)
		table := newTable(d.name, tableComment)

		columns, pk, err := e.extractColumns(ctx, d.name, columnComments)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", d.name, err)
		}
		table.Columns = columns

		unique, err := e.uniqueColumns(ctx, d.name, pk)
		if err != nil {
			return nil, fmt.Errorf("failed to extract indexes of %s: %w", d.name, err)
		}

		tableFKs, err := e.extractForeignKeys(ctx, d.name, unique)
		if err != nil {
			return nil, fmt.Errorf("failed to extract foreign keys of %s: %w", d.name, err)
		}

		extracted = append(extracted, table)
		fks = append(fks, tableFKs...)
	}

	return &schema.Schema{
		Tables:        extracted,
		Relationships: relationships(extracted, fks),
	}, nil
}

type tableDDL struct {
	name string
	sql  string
}

// getTables returns the tables to extract with their CREATE statements
func (e *SQLiteExtractor) getTables(ctx context.Context, requestedTables []string) ([]tableDDL, error) {
	query := `
		SELECT name, COALESCE(sql, '')
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(requestedTables))
	for _, t := range requestedTables {
		wanted[t] = true
	}

	var tables []tableDDL
	for rows.Next() {
		var t tableDDL
		if err := rows.Scan(&t.name, &t.sql); err != nil {
			return nil, err
		}
		if len(wanted) > 0 && !wanted[t.name] {
			continue
		}
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

// extractColumns extracts column information and the primary key columns of a table
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string, comments map[string]string) ([]schema.Column, []string, error) {
	query := `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	var pkColumns []string

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		var def *string
		if defaultValue.Valid {
			def = &defaultValue.String
		}
		columns = append(columns, newColumn(tableName, name, colType, notNull == 0, def, comments[strings.ToLower(name)]))

		if pk > 0 {
			pkColumns = append(pkColumns, name)
		}
	}

	return columns, pkColumns, rows.Err()
}

// uniqueColumns returns the columns covered by a single column unique index or primary key
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, tableName string, pkColumns []string) (map[string]bool, error) {
	unique := make(map[string]bool)
	if len(pkColumns) == 1 {
		unique[pkColumns[0]] = true
	}

	rows, err := e.client.GetDB().QueryContext(ctx, `SELECT name FROM pragma_index_list(?) WHERE "unique" = 1`, tableName)
	if err != nil {
		return nil, err
	}
	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		indexes = append(indexes, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, index := range indexes {
		var columns []string
		indexRows, err := e.client.GetDB().QueryContext(ctx, `SELECT name FROM pragma_index_info(?)`, index)
		if err != nil {
			return nil, err
		}
		for indexRows.Next() {
			var colName sql.NullString
			if err := indexRows.Scan(&colName); err != nil {
				_ = indexRows.Close()
				return nil, err
			}
			if colName.Valid {
				columns = append(columns, colName.String)
			}
		}
		_ = indexRows.Close()

		if len(columns) == 1 {
			unique[columns[0]] = true
		}
	}

	return unique, nil
}

// extractForeignKeys extracts the foreign keys declared by a table
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string, unique map[string]bool) ([]foreignKey, error) {
	query := `SELECT id, seq, "table", "from" FROM pragma_foreign_key_list(?) ORDER BY id, seq`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol string

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol); err != nil {
			return nil, err
		}
		if seq > 0 {
			continue
		}

		fks = append(fks, foreignKey{
			Name:     fmt.Sprintf("%s_%s_fkey", tableName, fromCol),
			Table:    tableName,
			Column:   fromCol,
			RefTable: targetTable,
			Unique:   unique[fromCol],
		})
	}

	return fks, rows.Err()
}

// parseComments collects "--" comments from a CREATE TABLE statement.
// Comments before the opening parenthesis describe the table; a comment on a column
// definition line describes that column. Column keys are lowercased.
func parseComments(ddl string) (string, map[string]string) {
	columns := make(map[string]string)
	var table []string

	open := strings.Index(ddl, "(")
	offset := 0
	for _, line := range strings.Split(ddl, "\n") {
		lineStart := offset
		offset += len(line) + 1

		idx := strings.Index(line, "--")
		if idx < 0 {
			continue
		}
		comment := strings.TrimSpace(line[idx+2:])
		if open < 0 || lineStart <= open {
			table = append(table, comment)
			continue
		}

		fields := strings.Fields(strings.TrimLeft(strings.TrimSpace(line[:idx]), "(,"))
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(strings.Trim(fields[0], "\"`[]"))
		switch name {
		case "primary", "foreign", "unique", "constraint", "check":
			continue
		}
		if prev, ok := columns[name]; ok {
			comment = prev + " " + comment
		}
		columns[name] = comment
	}

	return strings.Join(table, " "), columns
}
