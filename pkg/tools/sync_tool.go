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
	"github.com/oxbow-labs/oxbow/pkg/datasource"
	"github.com/oxbow-labs/oxbow/pkg/duck"
	"github.com/oxbow-labs/oxbow/pkg/enrich"
)

// SyncDatasourcesTool reconciles the conversation's attached datasources
// against a checked set. Successful attaches feed background business-context
// enrichment.
type SyncDatasourcesTool struct {
	manager  *duck.Manager
	repo     datasource.Repository
	enricher *enrich.Enricher
	logger   *zap.Logger
}

var _ Tool = (*SyncDatasourcesTool)(nil)

// NewSyncDatasourcesTool creates the datasource sync tool. enricher may be
// nil; without it no business context is derived.
func NewSyncDatasourcesTool(manager *duck.Manager, repo datasource.Repository, enricher *enrich.Enricher, logger *zap.Logger) *SyncDatasourcesTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncDatasourcesTool{manager: manager, repo: repo, enricher: enricher, logger: logger}
}

// Name returns the tool name.
func (t *SyncDatasourcesTool) Name() string {
	return "sync_datasources"
}

// Description returns the tool description.
func (t *SyncDatasourcesTool) Description() string {
	return `Reconcile the conversation's attached datasources against the given
checked set: newly checked datasources are attached or materialized, unchecked
ones are detached when detach_unchecked is set. Per-datasource failures are
reported individually and never abort the batch.`
}

// InputSchema returns the JSON schema for the tool's input.
func (t *SyncDatasourcesTool) InputSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"conversation_id": {
				Type:        "string",
				Description: "Conversation whose attachments to reconcile",
			},
			"datasource_ids": {
				Type:        "array",
				Description: "Checked datasource ids; order does not matter",
				Items:       &JSONSchema{Type: "string"},
			},
			"detach_unchecked": {
				Type:        "boolean",
				Description: "Detach datasources no longer in the checked set",
				Default:     true,
			},
			"workspace": {
				Type:        "string",
				Description: "Workspace root override (defaults to the configured workspace)",
			},
		},
		Required: []string{"conversation_id"},
	}
}

// Execute runs the reconciliation and reports per-datasource outcomes.
func (t *SyncDatasourcesTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	conversationID, err := stringParam(params, "conversation_id")
	if err != nil {
		return failure("invalid_params", err.Error(), false), nil
	}
	ids, err := stringSliceParam(params, "datasource_ids")
	if err != nil {
		return failure("invalid_params", err.Error(), false), nil
	}
	detachUnchecked := boolParam(params, "detach_unchecked", true)
	workspace := optionalString(params, "workspace")
	if workspace == "" {
		workspace = config.GetWorkspaceRoot()
	}

	results, err := t.manager.SyncDatasources(ctx, conversationID, workspace, ids, t.repo, detachUnchecked)
	if err != nil {
		return failure("sync_failed", err.Error(), true), nil
	}
	if results == nil {
		results = []duck.SyncResult{}
	}

	if t.enricher != nil {
		if tables := attachedTables(results); len(tables) > 0 {
			t.enricher.EnrichAsync(workspace, conversationID, tables)
		}
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"results": results,
		},
	}, nil
}

// attachedTables collects the tables of every successful attach in a batch.
func attachedTables(results []duck.SyncResult) []duck.AttachedTable {
	var tables []duck.AttachedTable
	for _, res := range results {
		if res.Success && res.Action == "attach" {
			tables = append(tables, res.Tables...)
		}
	}
	return tables
}
