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
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed Repository for datasource records.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the datasource registry database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open datasource database: %w", err)
	}

	// WAL mode for better concurrency, busy timeout for lock contention
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS datasources (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			provider TEXT NOT NULL,
			config_json TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create datasources table: %w", err)
	}
	return nil
}

// Save inserts or updates a datasource record. A missing id is assigned a
// fresh UUID. The record's config is validated against the provider's schema
// before anything is written.
func (s *Store) Save(ctx context.Context, ds *Datasource) error {
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	if ds.Name == "" {
		return fmt.Errorf("datasource name is required")
	}
	if err := ValidateConfig(ds.Provider, ds.Config); err != nil {
		return err
	}

	configJSON, err := json.Marshal(ds.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datasources (id, name, provider, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, ds.ID, ds.Name, ds.Provider, string(configJSON), now, now)
	if err != nil {
		return fmt.Errorf("failed to save datasource: %w", err)
	}
	return nil
}

// FindByID loads a datasource by id. Returns ErrNotFound when no record
// exists.
func (s *Store) FindByID(ctx context.Context, id string) (*Datasource, error) {
	var ds Datasource
	var configJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, provider, config_json FROM datasources WHERE id = ?`, id).
		Scan(&ds.ID, &ds.Name, &ds.Provider, &configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("datasource %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load datasource %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(configJSON), &ds.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for datasource %s: %w", id, err)
	}
	return &ds, nil
}

// List returns all datasource records ordered by name.
func (s *Store) List(ctx context.Context) ([]*Datasource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, provider, config_json FROM datasources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	defer rows.Close()

	var result []*Datasource
	for rows.Next() {
		var ds Datasource
		var configJSON string
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Provider, &configJSON); err != nil {
			return nil, fmt.Errorf("failed to scan datasource row: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &ds.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config for datasource %s: %w", ds.ID, err)
		}
		result = append(result, &ds)
	}
	return result, rows.Err()
}

// Delete removes a datasource record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete datasource %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ Repository = (*Store)(nil)
