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

	"github.com/oxbow-labs/oxbow/pkg/datasource"
	"github.com/oxbow-labs/oxbow/pkg/drivers"
)

// foreignExtensions maps relational providers to engine extensions.
var foreignExtensions = map[string]string{
	"postgres":   "postgres",
	"postgresql": "postgres",
	"mysql":      "mysql",
	"mariadb":    "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

// systemSchemas are never offered to callers: catalog metadata plus the
// auth/migration/internal tooling schemas common on managed Postgres.
var systemSchemas = map[string]bool{
	"information_schema":  true,
	"pg_catalog":          true,
	"pg_toast":            true,
	"mysql":               true,
	"performance_schema":  true,
	"sys":                 true,
	"auth":                true,
	"storage":             true,
	"vault":               true,
	"extensions":          true,
	"graphql":             true,
	"graphql_public":      true,
	"pgbouncer":           true,
	"pgsodium":            true,
	"realtime":            true,
	"_realtime":           true,
	"_analytics":          true,
	"net":                 true,
	"cron":                true,
	"supabase_functions":  true,
	"supabase_migrations": true,
}

var systemTablePrefixes = []string{"pg_", "sqlite_", "duckdb_", "_"}

func isSystemSchema(name string) bool {
	return systemSchemas[strings.ToLower(name)]
}

func isSystemTable(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range systemTablePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ForeignAttacher attaches relational datasources as read-only foreign
// catalogs inside the embedded engine.
type ForeignAttacher struct {
	registry *drivers.Registry
	logger   *zap.Logger
}

// NewForeignAttacher creates a foreign attacher. registry may be nil; without
// it no connection pre-flight is performed.
func NewForeignAttacher(registry *drivers.Registry, logger *zap.Logger) *ForeignAttacher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForeignAttacher{registry: registry, logger: logger}
}

// Attach attaches the datasource as a foreign catalog on the given connection
// and enumerates its accessible base tables. Already-attached races are
// treated as success. Tables that fail the access probe are skipped, never
// fatal. When extractSchema is set, each accessible table's columns are
// described; a describe failure for one table does not abort the others.
func (f *ForeignAttacher) Attach(ctx context.Context, conn *sql.Conn, ds *datasource.Datasource, extractSchema bool) (*AttachResult, error) {
	ext, ok := foreignExtensions[ds.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported foreign provider: %s", ds.Provider)
	}

	// Pre-flight through the driver registry so credential problems read as
	// configuration errors instead of engine errors.
	if f.registry != nil && ext != "sqlite" {
		if driver, ok := f.registry.Get(ext); ok {
			if err := driver.TestConnection(ctx, ds.Config); err != nil {
				return nil, fmt.Errorf("connection test failed for %s: %w", ds.Name, err)
			}
		}
	}

	if err := loadExtension(ctx, conn, ext); err != nil {
		return nil, err
	}

	dsn, err := attachDSN(ds, ext)
	if err != nil {
		return nil, err
	}

	catalog := CatalogNameFor(ds)
	attachSQL := fmt.Sprintf("ATTACH %s AS %s (TYPE %s, READ_ONLY)",
		quoteLiteral(dsn), quoteIdent(catalog), strings.ToUpper(ext))
	if _, err := conn.ExecContext(ctx, attachSQL); err != nil {
		if !isAlreadyAttached(err) {
			return nil, fmt.Errorf("failed to attach %s as %s: %w", ds.Name, catalog, err)
		}
		f.logger.Debug("catalog already attached",
			zap.String("catalog", catalog),
			zap.String("datasource_id", ds.ID))
	}

	tables, err := f.enumerateTables(ctx, conn, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tables of %s: %w", catalog, err)
	}

	result := &AttachResult{CatalogName: catalog}
	used := make(map[string]bool)
	for _, qt := range tables {
		if !f.probeTable(ctx, conn, catalog, qt) {
			continue
		}

		table := AttachedTable{
			SchemaName:   qt.Schema,
			TableName:    qt.Table,
			SemanticName: SemanticTableName(nil, qt.Table, used),
		}
		if extractSchema {
			cols, err := describeColumns(ctx, conn, catalog, qt.Schema, qt.Table)
			if err != nil {
				f.logger.Warn("failed to describe foreign table",
					zap.String("catalog", catalog),
					zap.String("table", qt.Table),
					zap.Error(err))
			} else {
				table.Columns = cols
			}
		}
		result.Tables = append(result.Tables, table)
	}

	f.logger.Info("attached foreign catalog",
		zap.String("catalog", catalog),
		zap.String("datasource_id", ds.ID),
		zap.Int("tables", len(result.Tables)))
	return result, nil
}

// enumerateTables lists base tables of the foreign catalog, excluding system
// schemas and system-prefixed tables.
func (f *ForeignAttacher) enumerateTables(ctx context.Context, conn *sql.Conn, catalog string) ([]QualifiedTable, error) {
	query := fmt.Sprintf(`
		SELECT table_schema, table_name
		FROM %s.information_schema.tables
		WHERE table_type = 'BASE TABLE'
		ORDER BY table_schema, table_name
	`, quoteIdent(catalog))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []QualifiedTable
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, err
		}
		if isSystemSchema(schema) || isSystemTable(table) {
			continue
		}
		tables = append(tables, QualifiedTable{Catalog: catalog, Schema: schema, Table: table})
	}
	return tables, rows.Err()
}

// probeTable verifies the table is readable with a trivial bounded read.
// Partial visibility is expected; inaccessible tables are skipped quietly.
func (f *ForeignAttacher) probeTable(ctx context.Context, conn *sql.Conn, catalog string, qt QualifiedTable) bool {
	probe := fmt.Sprintf("SELECT * FROM %s.%s.%s LIMIT 1",
		quoteIdent(catalog), quoteIdent(qt.Schema), quoteIdent(qt.Table))
	rows, err := conn.QueryContext(ctx, probe)
	if err != nil {
		if isAccessDenied(err) {
			f.logger.Debug("skipping inaccessible table",
				zap.String("catalog", catalog),
				zap.String("schema", qt.Schema),
				zap.String("table", qt.Table))
		} else {
			f.logger.Warn("table probe failed",
				zap.String("catalog", catalog),
				zap.String("schema", qt.Schema),
				zap.String("table", qt.Table),
				zap.Error(err))
		}
		return false
	}
	rows.Close()
	return true
}

// loadExtension installs and loads an engine extension. Install is
// idempotent.
func loadExtension(ctx context.Context, conn *sql.Conn, ext string) error {
	if _, err := conn.ExecContext(ctx, "INSTALL "+ext); err != nil && !isAlreadyAttached(err) {
		return fmt.Errorf("failed to install %s extension: %w", ext, err)
	}
	if _, err := conn.ExecContext(ctx, "LOAD "+ext); err != nil {
		return fmt.Errorf("failed to load %s extension: %w", ext, err)
	}
	return nil
}

// attachDSN builds the extension-specific connection descriptor from the
// datasource config.
func attachDSN(ds *datasource.Datasource, ext string) (string, error) {
	cfg := ds.Config
	if cs := cfg["connection_string"]; cs != "" {
		return cs, nil
	}

	switch ext {
	case "postgres":
		if cfg["host"] == "" || cfg["database"] == "" {
			return "", fmt.Errorf("postgres datasource %s requires connection_string or host and database", ds.Name)
		}
		parts := []string{
			"host=" + cfg["host"],
			"dbname=" + cfg["database"],
		}
		if cfg["port"] != "" {
			parts = append(parts, "port="+cfg["port"])
		}
		if cfg["user"] != "" {
			parts = append(parts, "user="+cfg["user"])
		}
		if cfg["password"] != "" {
			parts = append(parts, "password="+cfg["password"])
		}
		return strings.Join(parts, " "), nil
	case "mysql":
		if cfg["host"] == "" || cfg["database"] == "" {
			return "", fmt.Errorf("mysql datasource %s requires connection_string or host and database", ds.Name)
		}
		parts := []string{
			"host=" + cfg["host"],
			"database=" + cfg["database"],
		}
		if cfg["port"] != "" {
			parts = append(parts, "port="+cfg["port"])
		}
		if cfg["user"] != "" {
			parts = append(parts, "user="+cfg["user"])
		}
		if cfg["password"] != "" {
			parts = append(parts, "passwd="+cfg["password"])
		}
		return strings.Join(parts, " "), nil
	case "sqlite":
		if cfg["path"] == "" {
			return "", fmt.Errorf("sqlite datasource %s requires a path", ds.Name)
		}
		return cfg["path"], nil
	default:
		return "", fmt.Errorf("unsupported foreign extension: %s", ext)
	}
}
