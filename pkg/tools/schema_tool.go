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
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/pkg/config"
	"github.com/oxbow-labs/oxbow/pkg/duck"
	"github.com/oxbow-labs/oxbow/pkg/enrich"
)

// GetSchemaTool reports every queryable table across the conversation's
// attached catalogs and native views, with per-table column shapes and the
// derived business context.
type GetSchemaTool struct {
	manager  *duck.Manager
	enricher *enrich.Enricher
	logger   *zap.Logger
}

var _ Tool = (*GetSchemaTool)(nil)

// NewGetSchemaTool creates the schema discovery tool.
func NewGetSchemaTool(manager *duck.Manager, enricher *enrich.Enricher, logger *zap.Logger) *GetSchemaTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GetSchemaTool{manager: manager, enricher: enricher, logger: logger}
}

// Name returns the tool name.
func (t *GetSchemaTool) Name() string {
	return "get_schema"
}

// Description returns the tool description.
func (t *GetSchemaTool) Description() string {
	return `Discover every queryable table in the conversation's database: attached
foreign catalogs, spreadsheet tabs, and native views, with column names and
types plus derived business context per table.`
}

// InputSchema returns the JSON schema for the tool's input.
func (t *GetSchemaTool) InputSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"conversation_id": {
				Type:        "string",
				Description: "Conversation whose database to introspect",
			},
			"view_name": {
				Type:        "string",
				Description: "Describe only this view; served from the schema cache when fresh",
			},
			"view_names": {
				Type:        "array",
				Description: "Describe only these views; served from the schema cache when fresh",
				Items:       &JSONSchema{Type: "string"},
			},
			"workspace": {
				Type:        "string",
				Description: "Workspace root override (defaults to the configured workspace)",
			},
		},
		Required: []string{"conversation_id"},
	}
}

// Execute answers a schema request. With a view filter, each requested view
// is served from the schema cache when fresh and described live only on a
// miss. Without one, it discovers and describes everything catalog by
// catalog; a describe failure for one catalog degrades that catalog's entry,
// never the whole response.
func (t *GetSchemaTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	conversationID, err := stringParam(params, "conversation_id")
	if err != nil {
		return failure("invalid_params", err.Error(), false), nil
	}
	workspace := optionalString(params, "workspace")
	if workspace == "" {
		workspace = config.GetWorkspaceRoot()
	}

	viewNames, err := stringSliceParam(params, "view_names")
	if err != nil {
		return failure("invalid_params", err.Error(), false), nil
	}
	if name := optionalString(params, "view_name"); name != "" {
		viewNames = append(viewNames, name)
	}
	if len(viewNames) > 0 {
		return t.describeViews(ctx, conversationID, workspace, viewNames)
	}

	conn, err := t.manager.GetConnection(ctx, conversationID, workspace)
	if err != nil {
		return failure("connection_failed", err.Error(), true), nil
	}
	defer t.manager.ReturnConnection(conversationID, workspace, conn)

	tables, err := t.manager.Introspector().DiscoverAll(ctx, conn, nil)
	if err != nil {
		return failure("discovery_failed", err.Error(), true), nil
	}

	byCatalog := make(map[string][]duck.QualifiedTable)
	allTables := make([]string, 0, len(tables))
	for _, qt := range tables {
		byCatalog[qt.Catalog] = append(byCatalog[qt.Catalog], qt)
		allTables = append(allTables, fmt.Sprintf("%s.%s.%s", qt.Catalog, qt.Schema, qt.Table))
	}
	sort.Strings(allTables)

	catalogs := make([]string, 0, len(byCatalog))
	for cat := range byCatalog {
		catalogs = append(catalogs, cat)
	}
	sort.Strings(catalogs)

	var descriptors []duck.SchemaDescriptor
	for _, cat := range catalogs {
		columns, err := t.manager.Introspector().BatchDescribe(ctx, conn, cat, byCatalog[cat])
		if err != nil {
			t.logger.Warn("failed to describe catalog",
				zap.String("catalog", cat),
				zap.Error(err))
			columns = map[string][]duck.ColumnSchema{}
		}
		descriptors = append(descriptors, buildDescriptor(cat, byCatalog[cat], columns))
	}

	var businessContext map[string]enrich.TableContext
	if t.enricher != nil {
		businessContext, err = t.enricher.Load(workspace, conversationID)
		if err != nil {
			t.logger.Warn("failed to load business context",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
			businessContext = map[string]enrich.TableContext{}
		}
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"schema":          descriptors,
			"allTables":       allTables,
			"businessContext": businessContext,
		},
	}, nil
}

// describeViews serves a view-filtered schema request. Cache hits cost no
// engine round trip; a connection is acquired only when at least one view
// misses. Unknown views are simply absent from the response.
func (t *GetSchemaTool) describeViews(ctx context.Context, conversationID, workspace string, viewNames []string) (*Result, error) {
	var descriptors []duck.SchemaDescriptor
	var found []string
	var misses []string

	for _, view := range viewNames {
		if cached, ok := t.manager.GetCachedSchema(conversationID, workspace, view); ok && cached != nil {
			descriptors = append(descriptors, *cached)
			found = append(found, view)
			continue
		}
		misses = append(misses, view)
	}

	if len(misses) > 0 {
		conn, err := t.manager.GetConnection(ctx, conversationID, workspace)
		if err != nil {
			return failure("connection_failed", err.Error(), true), nil
		}
		defer t.manager.ReturnConnection(conversationID, workspace, conn)

		for _, view := range misses {
			desc, err := t.manager.Introspector().Describe(ctx, conn, "", "", view)
			if err != nil || desc == nil {
				t.logger.Debug("requested view not found",
					zap.String("conversation_id", conversationID),
					zap.String("view", view))
				continue
			}
			t.manager.CacheSchema(conversationID, workspace, view, desc)
			descriptors = append(descriptors, *desc)
			found = append(found, view)
		}
	}
	sort.Strings(found)

	var businessContext map[string]enrich.TableContext
	if t.enricher != nil {
		var err error
		businessContext, err = t.enricher.Load(workspace, conversationID)
		if err != nil {
			t.logger.Warn("failed to load business context",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
			businessContext = map[string]enrich.TableContext{}
		}
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"schema":          descriptors,
			"allTables":       found,
			"businessContext": businessContext,
		},
	}, nil
}

func buildDescriptor(catalog string, tables []duck.QualifiedTable, columns map[string][]duck.ColumnSchema) duck.SchemaDescriptor {
	desc := duck.SchemaDescriptor{DatabaseName: catalog}
	if len(tables) > 0 {
		desc.SchemaName = tables[0].Schema
	}
	for _, qt := range tables {
		desc.Tables = append(desc.Tables, duck.TableSchema{
			TableName: qt.Table,
			Columns:   columns[qt.Schema+"."+qt.Table],
		})
	}
	return desc
}
