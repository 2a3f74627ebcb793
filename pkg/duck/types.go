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

// Package duck is the multi-datasource DuckDB lifecycle and federation layer.
//
// It maintains one persistent embedded database per conversation, pools its
// connections, attaches and detaches foreign catalogs and spreadsheet-derived
// tables in response to a changing checked datasource set, assigns
// collision-free semantic names to tables discovered at runtime, and answers
// schema-discovery queries across native views and foreign catalogs.
package duck

// ColumnSchema is one column of a described object.
type ColumnSchema struct {
	ColumnName string `json:"columnName"`
	ColumnType string `json:"columnType"`
}

// TableSchema is one table of a SchemaDescriptor.
type TableSchema struct {
	TableName string         `json:"tableName"`
	Columns   []ColumnSchema `json:"columns"`
}

// SchemaDescriptor is the normalized schema shape returned uniformly
// regardless of source technology.
type SchemaDescriptor struct {
	DatabaseName string        `json:"databaseName"`
	SchemaName   string        `json:"schemaName"`
	Tables       []TableSchema `json:"tables"`
}

// AttachedTable is one table discovered while attaching a datasource. The
// original schema and table names address the object inside its catalog; the
// semantic name is the human-meaningful alias offered to callers.
type AttachedTable struct {
	SchemaName   string         `json:"schemaName,omitempty"`
	TableName    string         `json:"tableName"`
	SemanticName string         `json:"semanticName"`
	Columns      []ColumnSchema `json:"columns,omitempty"`
}

// AttachResult is the runtime result of attaching a datasource as a catalog.
type AttachResult struct {
	CatalogName string          `json:"catalogName"`
	Tables      []AttachedTable `json:"tables"`
}

// ViewResult is the runtime result of materializing a native view.
type ViewResult struct {
	ViewName string            `json:"viewName"`
	Schema   *SchemaDescriptor `json:"schema,omitempty"`
}

// SyncResult reports the outcome of one datasource within a sync batch. A
// successful attach carries the discovered tables so downstream consumers
// (context enrichment, UI) need no second discovery pass.
type SyncResult struct {
	DatasourceID string          `json:"datasourceId"`
	Name         string          `json:"name"`
	Action       string          `json:"action"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	Tables       []AttachedTable `json:"tables,omitempty"`
}

// QualifiedTable addresses a table across attached catalogs.
type QualifiedTable struct {
	Catalog string `json:"catalog"`
	Schema  string `json:"schema"`
	Table   string `json:"table"`
}

// QueryResult is a materialized tabular query result.
type QueryResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}
