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

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDriver connects to MySQL/MariaDB sources via go-sql-driver/mysql.
type MySQLDriver struct{}

// Name returns the provider identifier.
func (d *MySQLDriver) Name() string { return "mysql" }

// DSN builds a go-sql-driver DSN from the config. A full connection_string
// wins over discrete fields.
func (d *MySQLDriver) DSN(cfg map[string]string) (string, error) {
	if cs := cfg["connection_string"]; cs != "" {
		return cs, nil
	}
	if cfg["host"] == "" || cfg["database"] == "" {
		return "", fmt.Errorf("mysql config requires connection_string or host and database")
	}

	port := cfg["port"]
	if port == "" {
		port = "3306"
	}
	cred := cfg["user"]
	if cfg["password"] != "" {
		cred += ":" + cfg["password"]
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s", cred, cfg["host"], port, cfg["database"]), nil
}

func (d *MySQLDriver) open(cfg map[string]string) (*sql.DB, error) {
	dsn, err := d.DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	return db, nil
}

// TestConnection verifies the database is reachable.
func (d *MySQLDriver) TestConnection(ctx context.Context, cfg map[string]string) error {
	db, err := d.open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql connection test failed: %w", err)
	}
	return nil
}

// Metadata discovers user table shapes from information_schema.
func (d *MySQLDriver) Metadata(ctx context.Context, cfg map[string]string) ([]TableMetadata, error) {
	db, err := d.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
		ORDER BY table_schema, table_name, ordinal_position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mysql metadata: %w", err)
	}
	defer rows.Close()

	return collectTableMetadata(rows)
}

// Query executes a statement directly against the source.
func (d *MySQLDriver) Query(ctx context.Context, cfg map[string]string, query string) (*Result, error) {
	db, err := d.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return runQuery(ctx, db, query)
}

var _ Driver = (*MySQLDriver)(nil)
