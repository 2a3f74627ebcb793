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
package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxbow-labs/oxbow/pkg/duck"
)

func TestGetSchemaToolDescribesRequestedView(t *testing.T) {
	workspace := t.TempDir()
	const convID = "conv-schema-view"
	ctx := context.Background()

	manager := duck.NewManager(duck.ManagerConfig{})
	defer manager.CloseAll()

	conn, err := manager.GetConnection(ctx, convID, workspace)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "CREATE VIEW orders_export AS SELECT 'A-1' AS sku, 3 AS quantity")
	require.NoError(t, err)
	manager.ReturnConnection(convID, workspace, conn)

	tool := NewGetSchemaTool(manager, nil, nil)
	result, err := tool.Execute(ctx, map[string]interface{}{
		"conversation_id": convID,
		"workspace":       workspace,
		"view_name":       "orders_export",
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	descriptors, ok := data["schema"].([]duck.SchemaDescriptor)
	require.True(t, ok)
	require.Len(t, descriptors, 1)
	require.Len(t, descriptors[0].Tables, 1)
	assert.Equal(t, "orders_export", descriptors[0].Tables[0].TableName)

	names := make([]string, 0, len(descriptors[0].Tables[0].Columns))
	for _, col := range descriptors[0].Tables[0].Columns {
		names = append(names, col.ColumnName)
	}
	assert.ElementsMatch(t, []string{"sku", "quantity"}, names)

	allTables, ok := data["allTables"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"orders_export"}, allTables)

	// The describe landed in the cache for the next request.
	cached, ok := manager.GetCachedSchema(convID, workspace, "orders_export")
	assert.True(t, ok)
	require.NotNil(t, cached)
}

func TestGetSchemaToolServesCachedView(t *testing.T) {
	workspace := t.TempDir()
	const convID = "conv-schema-cache"
	ctx := context.Background()

	manager := duck.NewManager(duck.ManagerConfig{})
	defer manager.CloseAll()

	// Instance must exist for the cache to have a home.
	conn, err := manager.GetConnection(ctx, convID, workspace)
	require.NoError(t, err)
	manager.ReturnConnection(convID, workspace, conn)

	// The cached view does not exist in the engine at all, so a served
	// response proves no engine round trip happened.
	manager.CacheSchema(convID, workspace, "reports_cached", &duck.SchemaDescriptor{
		SchemaName: "main",
		Tables: []duck.TableSchema{{
			TableName: "reports_cached",
			Columns:   []duck.ColumnSchema{{ColumnName: "total", ColumnType: "DOUBLE"}},
		}},
	})

	tool := NewGetSchemaTool(manager, nil, nil)
	result, err := tool.Execute(ctx, map[string]interface{}{
		"conversation_id": convID,
		"workspace":       workspace,
		"view_names":      []interface{}{"reports_cached"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	descriptors, ok := data["schema"].([]duck.SchemaDescriptor)
	require.True(t, ok)
	require.Len(t, descriptors, 1)
	require.Len(t, descriptors[0].Tables, 1)
	assert.Equal(t, "reports_cached", descriptors[0].Tables[0].TableName)
	assert.Equal(t, "total", descriptors[0].Tables[0].Columns[0].ColumnName)
}

func TestGetSchemaToolSkipsUnknownView(t *testing.T) {
	workspace := t.TempDir()
	const convID = "conv-schema-unknown"
	ctx := context.Background()

	manager := duck.NewManager(duck.ManagerConfig{})
	defer manager.CloseAll()

	tool := NewGetSchemaTool(manager, nil, nil)
	result, err := tool.Execute(ctx, map[string]interface{}{
		"conversation_id": convID,
		"workspace":       workspace,
		"view_name":       "no_such_view",
	})
	require.NoError(t, err)
	require.True(t, result.Success, "an unknown view is absence, not failure")

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, data["allTables"])
	assert.Empty(t, data["schema"])
}
