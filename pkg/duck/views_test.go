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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxbow-labs/oxbow/pkg/datasource"
)

func TestViewNameFor(t *testing.T) {
	tests := []struct {
		name     string
		ds       *datasource.Datasource
		table    string
		expected string
	}{
		{
			name:     "name and table combine",
			ds:       &datasource.Datasource{Name: "Budget 2024", Provider: "csv"},
			table:    "expenses",
			expected: "budget_2024_expenses",
		},
		{
			name:     "leading digit gets prefix",
			ds:       &datasource.Datasource{Name: "2024", Provider: "csv"},
			table:    "data",
			expected: "v_2024_data",
		},
		{
			name:     "empty inputs fall back to provider",
			ds:       &datasource.Datasource{Name: "", Provider: "parquet"},
			table:    "",
			expected: "view_parquet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, viewNameFor(tt.ds, tt.table))
		})
	}
}

func TestViewNameForDeterministic(t *testing.T) {
	ds := &datasource.Datasource{Name: "Sales", Provider: "csv"}
	first := viewNameFor(ds, "q1")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, viewNameFor(ds, "q1"))
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"/data/expenses.csv", "expenses"},
		{"https://example.com/reports/q1.parquet?token=abc", "q1"},
		{"report.json#section", "report"},
		{"noextension", "noextension"},
		{"/trailing/", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, baseName(tt.in), "input %q", tt.in)
	}
}

func TestReadFunctions(t *testing.T) {
	assert.Equal(t, "read_csv_auto", readFunctions["csv"])
	assert.Equal(t, "read_json_auto", readFunctions["json"])
	assert.Equal(t, "read_parquet", readFunctions["parquet"])

	_, ok := readFunctions["xlsx"]
	assert.False(t, ok, "workbooks go through the spreadsheet attacher")
}
