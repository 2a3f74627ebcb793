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
	"github.com/stretchr/testify/require"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "standard sharing url",
			url:  "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0",
			want: "1AbC-dEf_123",
		},
		{
			name: "url without fragment",
			url:  "https://docs.google.com/spreadsheets/d/xyz789/",
			want: "xyz789",
		},
		{
			name:    "not a spreadsheet url",
			url:     "https://example.com/data.csv",
			wantErr: true,
		},
		{
			name:    "empty url",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSpreadsheetID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTabCandidates(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []int
	}{
		{
			name: "no gid still probes first tab",
			url:  "https://docs.google.com/spreadsheets/d/abc/edit",
			want: []int{0},
		},
		{
			name: "fragment gid",
			url:  "https://docs.google.com/spreadsheets/d/abc/edit#gid=123456",
			want: []int{0, 123456},
		},
		{
			name: "query gid",
			url:  "https://docs.google.com/spreadsheets/d/abc/edit?gid=77",
			want: []int{0, 77},
		},
		{
			name: "duplicate and zero gids deduplicated",
			url:  "https://docs.google.com/spreadsheets/d/abc/edit?gid=0#gid=5&gid=5",
			want: []int{0, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tabCandidates(tt.url))
		})
	}
}

func TestSheetExportURL(t *testing.T) {
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=42",
		sheetExportURL("abc123", 42))
}
