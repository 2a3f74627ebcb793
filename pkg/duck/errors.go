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
	"strings"
)

// Transient attach/detach races are treated as success. The engine reports
// them only through error text, so classification is substring-based.

func isAlreadyAttached(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already attached") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "already in use")
}

func isNotAttached(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not attached") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "not found")
}

// isAccessDenied matches permission and existence failures during table
// probing. Row-level security and revoked grants make these expected; the
// table is skipped, not surfaced.
func isAccessDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "insufficient privilege") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "not found")
}

// isMissingResource matches error text indicating a remote tab or file is
// absent rather than transiently unavailable.
func isMissingResource(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "400") ||
		strings.Contains(msg, "bad request") ||
		strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "invalid")
}

// quoteIdent double-quotes an identifier for DuckDB SQL, escaping embedded
// quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes a string literal for DuckDB SQL.
func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
