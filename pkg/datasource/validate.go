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
package datasource

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Connection-config schemas per provider. A provider without a schema accepts
// any config; extension drivers validate their own.
var configSchemas = map[string]string{
	"postgres": relationalConfigSchema,
	"mysql":    relationalConfigSchema,
	"sqlite": `{
		"type": "object",
		"properties": {
			"path": {"type": "string", "minLength": 1}
		},
		"required": ["path"]
	}`,
	"google_sheets": `{
		"type": "object",
		"properties": {
			"url": {"type": "string", "minLength": 1, "pattern": "spreadsheets/d/"}
		},
		"required": ["url"]
	}`,
	"xlsx": `{
		"type": "object",
		"properties": {
			"path": {"type": "string", "minLength": 1}
		},
		"required": ["path"]
	}`,
	"csv":     fileOrURLConfigSchema,
	"json":    fileOrURLConfigSchema,
	"parquet": fileOrURLConfigSchema,
}

// Either a full connection string or discrete host/user/database fields.
const relationalConfigSchema = `{
	"type": "object",
	"properties": {
		"connection_string": {"type": "string", "minLength": 1},
		"host": {"type": "string", "minLength": 1},
		"port": {"type": "string", "pattern": "^[0-9]+$"},
		"user": {"type": "string"},
		"password": {"type": "string"},
		"database": {"type": "string"}
	},
	"anyOf": [
		{"required": ["connection_string"]},
		{"required": ["host", "database"]}
	]
}`

const fileOrURLConfigSchema = `{
	"type": "object",
	"properties": {
		"path": {"type": "string", "minLength": 1},
		"url": {"type": "string", "minLength": 1}
	},
	"anyOf": [
		{"required": ["path"]},
		{"required": ["url"]}
	]
}`

// Provider aliases share their canonical provider's schema.
var providerAliases = map[string]string{
	"postgresql": "postgres",
	"mariadb":    "mysql",
	"sqlite3":    "sqlite",
	"gsheet":     "google_sheets",
}

// ValidateConfig checks a datasource's connection config against the
// provider's JSON schema. Configuration errors fail fast here, before any
// attach is attempted. Providers without a registered schema pass.
func ValidateConfig(provider string, cfg map[string]string) error {
	canonical := provider
	if alias, ok := providerAliases[provider]; ok {
		canonical = alias
	}
	schema, ok := configSchemas[canonical]
	if !ok {
		return nil
	}

	// gojsonschema needs interface-typed values
	doc := make(map[string]interface{}, len(cfg))
	for k, v := range cfg {
		doc[k] = v
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("config validation failed for provider %s: %w", provider, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("invalid config for provider %s: %s", provider, strings.Join(problems, "; "))
	}
	return nil
}
