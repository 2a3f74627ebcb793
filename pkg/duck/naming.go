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
	"fmt"
	"strings"
	"unicode"

	"github.com/oxbow-labs/oxbow/pkg/datasource"
)

// CatalogNameFor derives the attached-catalog name for a datasource. The
// result is a deterministic sanitization of the display name (provider name
// as fallback), always starts with a letter, and is stable across calls and
// process restarts. Two datasources with identical display names resolve to
// the same catalog name and share the catalog.
func CatalogNameFor(ds *datasource.Datasource) string {
	name := SanitizeIdentifier(ds.Name)
	if name == "" {
		name = SanitizeIdentifier(ds.Provider)
	}
	if name == "" {
		return "ds_source"
	}
	if !unicode.IsLetter(rune(name[0])) {
		return "ds_" + name
	}
	return name
}

// SanitizeIdentifier lowercases s and reduces it to [a-z0-9_], collapsing
// runs of invalid characters into single underscores.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if valid {
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// SemanticTableName infers a business-meaningful plural noun for a schema-less
// table from its column shapes, falling back to the cleaned underlying table
// name and finally to "data". The chosen name is made unique against used by
// suffixing an incrementing counter, and is recorded in used before return.
// This function never fails; it degrades to generic names.
func SemanticTableName(columns []ColumnSchema, tableName string, used map[string]bool) string {
	candidate := inferNoun(columns)
	if candidate == "" {
		candidate = SanitizeIdentifier(tableName)
	}
	if candidate == "" {
		candidate = "data"
	}
	if !unicode.IsLetter(rune(candidate[0])) {
		candidate = "t_" + candidate
	}

	name := candidate
	for i := 1; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", candidate, i)
	}
	used[name] = true
	return name
}

// inferNoun applies the column-shape heuristics in priority order. Returns ""
// when nothing signals an entity name.
func inferNoun(columns []ColumnSchema) string {
	// 1. Foreign-key style columns carry the entity name directly.
	for _, col := range columns {
		lower := strings.ToLower(col.ColumnName)
		if strings.HasSuffix(lower, "_id") && len(lower) > 3 {
			return pluralize(SanitizeIdentifier(strings.TrimSuffix(lower, "_id")))
		}
	}
	// A bare id column signals rows of some generic item.
	for _, col := range columns {
		if strings.EqualFold(col.ColumnName, "id") {
			return "items"
		}
	}

	// 2. A capitalized single-word column is a strong entity-name signal.
	for _, col := range columns {
		name := col.ColumnName
		if len(name) > 1 && unicode.IsUpper(rune(name[0])) &&
			strings.ToLower(name[1:]) == name[1:] &&
			!strings.ContainsAny(name, "_ -") {
			return pluralize(strings.ToLower(name))
		}
	}

	// 3. Plural-looking column names are usable as-is.
	for _, col := range columns {
		lower := SanitizeIdentifier(col.ColumnName)
		if len(lower) >= 4 && strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") {
			return lower
		}
	}

	// 4. name/title/label-bearing columns: the leading word names the entity.
	for _, col := range columns {
		lower := SanitizeIdentifier(col.ColumnName)
		for _, marker := range []string{"name", "title", "label"} {
			if !strings.Contains(lower, marker) {
				continue
			}
			parts := strings.Split(lower, "_")
			for _, part := range parts {
				if part != "" && part != marker {
					return pluralize(part)
				}
			}
		}
	}

	return ""
}

// pluralize applies simple English pluralization. Already-plural words pass
// through unchanged.
func pluralize(noun string) string {
	if noun == "" {
		return noun
	}
	if strings.HasSuffix(noun, "s") && !strings.HasSuffix(noun, "ss") {
		return noun
	}
	switch {
	case strings.HasSuffix(noun, "y") && len(noun) > 1 && !isVowel(noun[len(noun)-2]):
		return noun[:len(noun)-1] + "ies"
	case strings.HasSuffix(noun, "s"), strings.HasSuffix(noun, "x"),
		strings.HasSuffix(noun, "z"), strings.HasSuffix(noun, "ch"),
		strings.HasSuffix(noun, "sh"):
		return noun + "es"
	default:
		return noun + "s"
	}
}

func isVowel(c byte) bool {
	return strings.ContainsRune("aeiou", rune(c))
}
