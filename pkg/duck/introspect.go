// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package duck

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Introspector answers schema-discovery queries across native views and
// attached foreign catalogs.
type Introspector struct {
	logger *zap.Logger
}

// NewIntrospector creates a schema introspector.
func NewIntrospector(logger *zap.Logger) *Introspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{logger: logger}
}

// Describe describes one object. Any resolution failure yields (nil, nil):
// callers treat absence as "not found", never as a crash.
func (in *Introspector) Describe(ctx context.Context, conn *sql.Conn, catalog, schema, table string) (*SchemaDescriptor, error) {
	cols, err := describeColumns(ctx, conn, catalog, schema, table)
	if err != nil {
		in.logger.Debug("describe failed",
			zap.String("catalog", catalog),
			zap.String("schema", schema),
			zap.String("table", table),
			zap.Error(err))
		return nil, nil
	}
	return &SchemaDescriptor{
		DatabaseName: catalog,
		SchemaName:   schema,
		Tables:       []TableSchema{{TableName: table, Columns: cols}},
	}, nil
}

// DiscoverAll walks every attached catalog's information schema and returns
// the qualified non-system tables and views. A fallback chain is attempted
// only on prior failure: information_schema, then the engine's table-catalog
// function, then the last-resort enumeration command. When allowedCatalogs is
// non-empty, results are restricted to those catalogs.
func (in *Introspector) DiscoverAll(ctx context.Context, conn *sql.Conn, allowedCatalogs []string) ([]QualifiedTable, error) {
	allowed := map[string]bool{}
	for _, cat := range allowedCatalogs {
		allowed[cat] = true
	}

	queries := []string{
		"SELECT table_catalog, table_schema, table_name FROM information_schema.tables",
		"SELECT database_name, schema_name, table_name FROM duckdb_tables()",
		"SHOW ALL TABLES",
	}

	var lastErr error
	for i, query := range queries {
		tables, err := in.scanQualified(ctx, conn, query)
		if err != nil {
			lastErr = err
			in.logger.Debug("discovery query failed, trying fallback",
				zap.Int("stage", i),
				zap.Error(err))
			continue
		}
		return filterQualified(tables, allowed), nil
	}
	return nil, fmt.Errorf("schema discovery failed: %w", lastErr)
}

// scanQualified reads (catalog, schema, table) from the first three result
// columns; extra columns from SHOW ALL TABLES are ignored.
func (in *Introspector) scanQualified(ctx context.Context, conn *sql.Conn, query string) ([]QualifiedTable, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var tables []QualifiedTable
	for rows.Next() {
		targets := make([]interface{}, len(colNames))
		var qt QualifiedTable
		targets[0], targets[1], targets[2] = &qt.Catalog, &qt.Schema, &qt.Table
		for i := 3; i < len(targets); i++ {
			targets[i] = new(interface{})
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		tables = append(tables, qt)
	}
	return tables, rows.Err()
}

func filterQualified(tables []QualifiedTable, allowed map[string]bool) []QualifiedTable {
	var out []QualifiedTable
	for _, qt := range tables {
		if qt.Catalog == "temp" || qt.Catalog == "system" {
			continue
		}
		if isSystemSchema(qt.Schema) || isSystemTable(qt.Table) {
			continue
		}
		if len(allowed) > 0 && !allowed[qt.Catalog] {
			continue
		}
		out = append(out, qt)
	}
	return out
}

// BatchDescribe describes several tables of one foreign catalog with a single
// information-schema columns query, falling back to per-table DESCRIBE only
// if the batched form errors. One table's describe failure never aborts the
// others.
func (in *Introspector) BatchDescribe(ctx context.Context, conn *sql.Conn, catalog string, targets []QualifiedTable) (map[string][]ColumnSchema, error) {
	if len(targets) == 0 {
		return map[string][]ColumnSchema{}, nil
	}

	result, err := in.batchColumns(ctx, conn, catalog, targets)
	if err == nil {
		return result, nil
	}
	in.logger.Debug("batched describe failed, falling back per table",
		zap.String("catalog", catalog),
		zap.Error(err))

	result = make(map[string][]ColumnSchema, len(targets))
	for _, qt := range targets {
		cols, err := describeColumns(ctx, conn, catalog, qt.Schema, qt.Table)
		if err != nil {
			in.logger.Warn("failed to describe table",
				zap.String("catalog", catalog),
				zap.String("table", qt.Table),
				zap.Error(err))
			continue
		}
		result[qt.Schema+"."+qt.Table] = cols
	}
	return result, nil
}

func (in *Introspector) batchColumns(ctx context.Context, conn *sql.Conn, catalog string, targets []QualifiedTable) (map[string][]ColumnSchema, error) {
	pairs := make([]string, len(targets))
	for i, qt := range targets {
		pairs[i] = fmt.Sprintf("(%s, %s)", quoteLiteral(qt.Schema), quoteLiteral(qt.Table))
	}
	query := fmt.Sprintf(`
		SELECT table_schema, table_name, column_name, data_type
		FROM %s.information_schema.columns
		WHERE (table_schema, table_name) IN (%s)
		ORDER BY table_schema, table_name, ordinal_position
	`, quoteIdent(catalog), strings.Join(pairs, ", "))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]ColumnSchema)
	for rows.Next() {
		var schema, table, column, dataType string
		if err := rows.Scan(&schema, &table, &column, &dataType); err != nil {
			return nil, err
		}
		key := schema + "." + table
		result[key] = append(result[key], ColumnSchema{ColumnName: column, ColumnType: dataType})
	}
	return result, rows.Err()
}

// describeColumns reads a single object's column shapes via DESCRIBE.
func describeColumns(ctx context.Context, conn *sql.Conn, catalog, schema, table string) ([]ColumnSchema, error) {
	target := quoteIdent(table)
	if schema != "" {
		target = quoteIdent(schema) + "." + target
	}
	if catalog != "" {
		target = quoteIdent(catalog) + "." + target
	}

	query := fmt.Sprintf("SELECT column_name, column_type FROM (DESCRIBE %s)", target)
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnSchema
	for rows.Next() {
		var col ColumnSchema
		if err := rows.Scan(&col.ColumnName, &col.ColumnType); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns described for %s", target)
	}
	return cols, nil
}
