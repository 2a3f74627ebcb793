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
package drivers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresDriver connects to PostgreSQL sources via lib/pq.
type PostgresDriver struct{}

// Name returns the provider identifier.
func (d *PostgresDriver) Name() string { return "postgres" }

// DSN builds a lib/pq connection string from the config. A full
// connection_string wins over discrete fields.
func (d *PostgresDriver) DSN(cfg map[string]string) (string, error) {
	if cs := cfg["connection_string"]; cs != "" {
		return cs, nil
	}
	if cfg["host"] == "" || cfg["database"] == "" {
		return "", fmt.Errorf("postgres config requires connection_string or host and database")
	}

	parts := []string{
		fmt.Sprintf("host=%s", cfg["host"]),
		fmt.Sprintf("dbname=%s", cfg["database"]),
		"sslmode=prefer",
	}
	if cfg["port"] != "" {
		parts = append(parts, fmt.Sprintf("port=%s", cfg["port"]))
	}
	if cfg["user"] != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg["user"]))
	}
	if cfg["password"] != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg["password"]))
	}
	return strings.Join(parts, " "), nil
}

func (d *PostgresDriver) open(cfg map[string]string) (*sql.DB, error) {
	dsn, err := d.DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	return db, nil
}

// TestConnection verifies the database is reachable.
func (d *PostgresDriver) TestConnection(ctx context.Context, cfg map[string]string) error {
	db, err := d.open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres connection test failed: %w", err)
	}
	return nil
}

// Metadata discovers user table shapes from information_schema.
func (d *PostgresDriver) Metadata(ctx context.Context, cfg map[string]string) ([]TableMetadata, error) {
	db, err := d.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name, ordinal_position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query postgres metadata: %w", err)
	}
	defer rows.Close()

	return collectTableMetadata(rows)
}

// Query executes a statement directly against the source.
func (d *PostgresDriver) Query(ctx context.Context, cfg map[string]string, query string) (*Result, error) {
	db, err := d.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return runQuery(ctx, db, query)
}

var _ Driver = (*PostgresDriver)(nil)
