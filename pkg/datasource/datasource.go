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

// Package datasource defines the datasource model and its repository.
//
// A datasource is an externally supplied record (id, name, provider,
// connection config) that the federation core never mutates. Its provider
// determines which attachment path handles it: relational providers are
// attached as foreign catalogs, spreadsheet providers become in-memory
// catalogs of materialized tabs, and everything else maps to a single
// native view in the primary catalog.
package datasource

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when no datasource exists for the
// requested id.
var ErrNotFound = errors.New("datasource not found")

// ProviderKind is the closed set of attachment families. It is resolved once
// when a datasource record is loaded; all later dispatch switches on the kind,
// never on the raw provider string.
type ProviderKind int

const (
	// KindNativeView maps to exactly one queryable view in the primary catalog
	// (flat files, driver-backed sources).
	KindNativeView ProviderKind = iota

	// KindSpreadsheet is a multi-tab spreadsheet materialized as an in-memory
	// catalog with one table per tab.
	KindSpreadsheet

	// KindForeign is a relational source attached as a foreign catalog.
	KindForeign
)

// String returns the kind name.
func (k ProviderKind) String() string {
	switch k {
	case KindSpreadsheet:
		return "spreadsheet"
	case KindForeign:
		return "foreign"
	default:
		return "native_view"
	}
}

// Datasource is an attachable data source. Immutable from the core's
// perspective; loaded via Repository lookups.
type Datasource struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

var foreignProviders = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"mysql":      true,
	"mariadb":    true,
	"sqlite":     true,
	"sqlite3":    true,
}

var spreadsheetProviders = map[string]bool{
	"google_sheets": true,
	"gsheet":        true,
	"xlsx":          true,
}

// Kind resolves the attachment family for this datasource's provider.
// Unrecognized providers fall through to KindNativeView: they are expected to
// be handled by a registered extension driver.
func (d *Datasource) Kind() ProviderKind {
	switch {
	case foreignProviders[d.Provider]:
		return KindForeign
	case spreadsheetProviders[d.Provider]:
		return KindSpreadsheet
	default:
		return KindNativeView
	}
}

// Repository loads datasource records by id. The core never mutates records
// through this interface.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Datasource, error)
}
