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
	"github.com/oxbow-labs/oxbow/pkg/enrich"
)

func TestStringParam(t *testing.T) {
	params := map[string]interface{}{"good": "value", "empty": "", "wrong": 7}

	v, err := stringParam(params, "good")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = stringParam(params, "missing")
	assert.Error(t, err)

	_, err = stringParam(params, "empty")
	assert.Error(t, err)

	_, err = stringParam(params, "wrong")
	assert.Error(t, err)
}

func TestStringSliceParam(t *testing.T) {
	params := map[string]interface{}{
		"ids":   []interface{}{"a", "b"},
		"mixed": []interface{}{"a", 1},
		"wrong": "not-an-array",
	}

	ids, err := stringSliceParam(params, "ids")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	missing, err := stringSliceParam(params, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = stringSliceParam(params, "mixed")
	assert.Error(t, err)

	_, err = stringSliceParam(params, "wrong")
	assert.Error(t, err)
}

func TestBoolParam(t *testing.T) {
	params := map[string]interface{}{"flag": false}
	assert.False(t, boolParam(params, "flag", true))
	assert.True(t, boolParam(params, "absent", true))
	assert.False(t, boolParam(params, "absent", false))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	manager := duck.NewManager(duck.ManagerConfig{})
	executor := duck.NewExecutor(manager, nil)

	require.NoError(t, r.Register(NewGetSchemaTool(manager, enrich.NewEnricher(nil), nil)))
	require.NoError(t, r.Register(NewRunQueryTool(executor, nil)))
	require.NoError(t, r.Register(NewSyncDatasourcesTool(manager, nil, nil, nil)))

	assert.Equal(t, []string{"get_schema", "run_query", "sync_datasources"}, r.Names())

	_, ok := r.Get("run_query")
	assert.True(t, ok)
	_, ok = r.Get("unknown")
	assert.False(t, ok)

	err := r.Register(NewRunQueryTool(executor, nil))
	assert.Error(t, err, "duplicate registration rejected")
}

func TestToolSchemasDeclareRequiredParams(t *testing.T) {
	manager := duck.NewManager(duck.ManagerConfig{})
	executor := duck.NewExecutor(manager, nil)

	schema := NewGetSchemaTool(manager, nil, nil).InputSchema()
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Required, "conversation_id")

	schema = NewRunQueryTool(executor, nil).InputSchema()
	assert.Contains(t, schema.Required, "conversation_id")
	assert.Contains(t, schema.Required, "query")

	schema = NewSyncDatasourcesTool(manager, nil, nil, nil).InputSchema()
	assert.Contains(t, schema.Required, "conversation_id")
}

func TestToolsRejectMissingParams(t *testing.T) {
	manager := duck.NewManager(duck.ManagerConfig{})
	executor := duck.NewExecutor(manager, nil)
	ctx := context.Background()

	result, err := NewRunQueryTool(executor, nil).Execute(ctx, map[string]interface{}{})
	require.NoError(t, err, "parameter problems are tool failures, not errors")
	require.NotNil(t, result.Error)
	assert.False(t, result.Success)
	assert.Equal(t, "invalid_params", result.Error.Code)

	result, err = NewSyncDatasourcesTool(manager, nil, nil, nil).Execute(ctx, map[string]interface{}{
		"conversation_id": "c",
		"datasource_ids":  "not-an-array",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "invalid_params", result.Error.Code)
}
