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
package drivers

import (
	"context"
	"database/sql"
	"fmt"
)

// collectTableMetadata folds (schema, table, column, type) rows into
// TableMetadata entries. Rows must be ordered by schema, table, position.
func collectTableMetadata(rows *sql.Rows) ([]TableMetadata, error) {
	var tables []TableMetadata
	var current *TableMetadata
	var currentKey string

	for rows.Next() {
		var schema, table, column, dataType string
		if err := rows.Scan(&schema, &table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		key := schema + "." + table
		if current == nil || key != currentKey {
			tables = append(tables, TableMetadata{Name: key})
			current = &tables[len(tables)-1]
			currentKey = key
		}
		current.Columns = append(current.Columns, Column{Name: column, Type: dataType})
	}
	return tables, rows.Err()
}

// runQuery executes a query and materializes all rows.
func runQuery(ctx context.Context, db *sql.DB, query string) (*Result, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		scanTargets := make([]interface{}, len(cols))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}
