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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		cfg      map[string]string
		wantErr  bool
	}{
		{
			name:     "postgres connection string",
			provider: "postgres",
			cfg:      map[string]string{"connection_string": "postgres://u:p@h/db"},
		},
		{
			name:     "postgres discrete fields",
			provider: "postgres",
			cfg:      map[string]string{"host": "h", "database": "db"},
		},
		{
			name:     "postgres missing both",
			provider: "postgres",
			cfg:      map[string]string{"user": "u"},
			wantErr:  true,
		},
		{
			name:     "postgresql alias shares schema",
			provider: "postgresql",
			cfg:      map[string]string{"host": "h", "database": "db"},
		},
		{
			name:     "postgres bad port",
			provider: "postgres",
			cfg:      map[string]string{"host": "h", "database": "db", "port": "abc"},
			wantErr:  true,
		},
		{
			name:     "sqlite needs path",
			provider: "sqlite",
			cfg:      map[string]string{},
			wantErr:  true,
		},
		{
			name:     "sqlite with path",
			provider: "sqlite",
			cfg:      map[string]string{"path": "/tmp/x.db"},
		},
		{
			name:     "google sheets needs spreadsheet url",
			provider: "google_sheets",
			cfg:      map[string]string{"url": "https://example.com/file.csv"},
			wantErr:  true,
		},
		{
			name:     "google sheets sharing url",
			provider: "google_sheets",
			cfg:      map[string]string{"url": "https://docs.google.com/spreadsheets/d/abc/edit"},
		},
		{
			name:     "gsheet alias",
			provider: "gsheet",
			cfg:      map[string]string{"url": "https://docs.google.com/spreadsheets/d/abc/edit"},
		},
		{
			name:     "csv path",
			provider: "csv",
			cfg:      map[string]string{"path": "/data/x.csv"},
		},
		{
			name:     "csv url",
			provider: "csv",
			cfg:      map[string]string{"url": "https://example.com/x.csv"},
		},
		{
			name:     "csv neither",
			provider: "csv",
			cfg:      map[string]string{},
			wantErr:  true,
		},
		{
			name:     "unknown provider passes",
			provider: "custom_warehouse",
			cfg:      map[string]string{"anything": "goes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.provider, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
