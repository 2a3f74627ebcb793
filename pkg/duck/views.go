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
	"unicode"

	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/pkg/datasource"
	"github.com/oxbow-labs/oxbow/pkg/drivers"
)

// readFunctions maps simple file formats to the engine's direct read
// functions. These formats need no intermediate temp table.
var readFunctions = map[string]string{
	"csv":     "read_csv_auto",
	"json":    "read_json_auto",
	"parquet": "read_parquet",
}

// ViewMaterializer creates one view per single-object datasource directly in
// the primary catalog.
type ViewMaterializer struct {
	registry *drivers.Registry
	logger   *zap.Logger
}

// NewViewMaterializer creates a view materializer. Driver-backed providers
// are resolved through the registry.
func NewViewMaterializer(registry *drivers.Registry, logger *zap.Logger) *ViewMaterializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewMaterializer{registry: registry, logger: logger}
}

// Materialize creates-or-replaces a view selecting from the datasource's
// underlying readable resource and verifies it with a bounded read. Creation
// without successful verification is never reported as success.
func (v *ViewMaterializer) Materialize(ctx context.Context, conn *sql.Conn, ds *datasource.Datasource) (*ViewResult, error) {
	source, firstTable, err := v.resolveSource(ctx, conn, ds)
	if err != nil {
		return nil, err
	}

	viewName := viewNameFor(ds, firstTable)
	createSQL := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM %s",
		quoteIdent(viewName), source)

	// View-creation recovery gets exponential backoff; a transient read
	// failure against a remote file should not burn the whole sync step.
	err = Retry(ctx, DefaultRetryOptions(), func() error {
		if _, err := conn.ExecContext(ctx, createSQL); err != nil {
			return fmt.Errorf("failed to create view %s: %w", viewName, err)
		}
		rows, err := conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", quoteIdent(viewName)))
		if err != nil {
			return fmt.Errorf("view %s failed verification: %w", viewName, err)
		}
		rows.Close()
		return nil
	})
	if err != nil {
		return nil, err
	}

	cols, err := describeColumns(ctx, conn, "", "", viewName)
	if err != nil {
		v.logger.Warn("failed to describe materialized view",
			zap.String("view", viewName),
			zap.Error(err))
	}

	v.logger.Info("materialized native view",
		zap.String("view", viewName),
		zap.String("datasource_id", ds.ID))

	result := &ViewResult{ViewName: viewName}
	if cols != nil {
		result.Schema = &SchemaDescriptor{
			SchemaName: "main",
			Tables:     []TableSchema{{TableName: viewName, Columns: cols}},
		}
	}
	return result, nil
}

// resolveSource returns the FROM-clause source expression for the datasource
// and the name of the first discovered table (used in the view name).
func (v *ViewMaterializer) resolveSource(ctx context.Context, conn *sql.Conn, ds *datasource.Datasource) (string, string, error) {
	if fn, ok := readFunctions[ds.Provider]; ok {
		location := ds.Config["path"]
		if location == "" {
			location = ds.Config["url"]
		}
		if location == "" {
			return "", "", fmt.Errorf("%s datasource %s requires a path or url", ds.Provider, ds.Name)
		}
		if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
			if err := loadExtension(ctx, conn, "httpfs"); err != nil {
				return "", "", err
			}
		}
		return fmt.Sprintf("%s(%s)", fn, quoteLiteral(location)), baseName(location), nil
	}

	// Driver-backed source without a direct read path: discover metadata
	// through the registry and select from the driver-exposed table
	// reference.
	if v.registry == nil {
		return "", "", fmt.Errorf("unsupported native-view provider: %s", ds.Provider)
	}
	driver, err := v.registry.MustGet(ds.Provider)
	if err != nil {
		return "", "", err
	}
	if err := driver.TestConnection(ctx, ds.Config); err != nil {
		return "", "", fmt.Errorf("connection test failed for %s: %w", ds.Name, err)
	}
	metas, err := driver.Metadata(ctx, ds.Config)
	if err != nil {
		return "", "", fmt.Errorf("metadata discovery failed for %s: %w", ds.Name, err)
	}
	if len(metas) == 0 {
		return "", "", fmt.Errorf("driver %s discovered no tables for %s", ds.Provider, ds.Name)
	}

	first := metas[0].Name
	ref := fmt.Sprintf("%s_scan(%s, %s)",
		ds.Provider,
		quoteLiteral(ds.Config["connection_string"]),
		quoteLiteral(first))
	return ref, first, nil
}

// viewNameFor combines the datasource's display name and the first discovered
// table name into a deterministic identifier.
func viewNameFor(ds *datasource.Datasource, firstTable string) string {
	name := SanitizeIdentifier(ds.Name + "_" + firstTable)
	if name == "" {
		name = "view_" + SanitizeIdentifier(ds.Provider)
	}
	if !unicode.IsLetter(rune(name[0])) {
		name = "v_" + name
	}
	return name
}

// baseName extracts the file stem from a path or URL.
func baseName(location string) string {
	trimmed := location
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if i := strings.LastIndex(trimmed, "."); i > 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}
