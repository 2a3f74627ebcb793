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

	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/pkg/config"
	"github.com/oxbow-labs/oxbow/pkg/duck"
)

// RunQueryTool executes SQL against the conversation's database.
type RunQueryTool struct {
	executor *duck.Executor
	logger   *zap.Logger
}

var _ Tool = (*RunQueryTool)(nil)

// NewRunQueryTool creates the query execution tool.
func NewRunQueryTool(executor *duck.Executor, logger *zap.Logger) *RunQueryTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunQueryTool{executor: executor, logger: logger}
}

// Name returns the tool name.
func (t *RunQueryTool) Name() string {
	return "run_query"
}

// Description returns the tool description.
func (t *RunQueryTool) Description() string {
	return `Execute a SQL query against the conversation's database. Attached
catalogs are addressed as catalog.schema.table; native views by bare name.
Returns the full result set as columns and rows.`
}

// InputSchema returns the JSON schema for the tool's input.
func (t *RunQueryTool) InputSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"conversation_id": {
				Type:        "string",
				Description: "Conversation whose database to query",
			},
			"query": {
				Type:        "string",
				Description: "SQL statement to execute",
			},
			"workspace": {
				Type:        "string",
				Description: "Workspace root override (defaults to the configured workspace)",
			},
		},
		Required: []string{"conversation_id", "query"},
	}
}

// Execute runs the query. SQL errors come back as structured tool failures so
// the assistant can read the engine's message and correct the statement.
func (t *RunQueryTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	conversationID, err := stringParam(params, "conversation_id")
	if err != nil {
		return failure("invalid_params", err.Error(), false), nil
	}
	query, err := stringParam(params, "query")
	if err != nil {
		return failure("invalid_params", err.Error(), false), nil
	}
	workspace := optionalString(params, "workspace")
	if workspace == "" {
		workspace = config.GetWorkspaceRoot()
	}

	result, err := t.executor.Run(ctx, conversationID, workspace, query)
	if err != nil {
		return failure("query_failed", err.Error(), true), nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"result": map[string]interface{}{
				"columns": result.Columns,
				"rows":    result.Rows,
			},
		},
	}, nil
}
