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
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Instance is the embedded-database instance for one (workspace,
// conversation) pair: engine handle, bounded connection pool, attachment
// tracking and the per-view schema cache. Instances are owned exclusively by
// the Manager; no other component holds a long-lived reference.
type Instance struct {
	ConversationID string
	Workspace      string
	Path           string

	db         *sql.DB
	logger     *zap.Logger
	maxConns   int
	retryDelay time.Duration
	cacheTTL   time.Duration

	mu     sync.Mutex
	idle   []*sql.Conn
	active int
	closed bool

	// attached maps datasource id to catalog name. Two datasources with the
	// same display name legitimately share one catalog; both ids are tracked.
	attached map[string]string
	// views maps datasource id to materialized view name.
	views map[string]string

	schemaCache   map[string]schemaEntry
	lastSyncedKey string
	lastSyncedAt  time.Time
}

type schemaEntry struct {
	schema   *SchemaDescriptor
	storedAt time.Time
}

// Acquire pops an idle pooled connection if one exists, opens a new one while
// under the pool ceiling, and otherwise blocks with a short fixed delay and
// retries. The delay is deliberately not exponential; pool exhaustion is a
// normal condition, not an error.
func (inst *Instance) Acquire(ctx context.Context) (*sql.Conn, error) {
	for {
		inst.mu.Lock()
		if inst.closed {
			inst.mu.Unlock()
			return nil, fmt.Errorf("instance for conversation %s is closed", inst.ConversationID)
		}
		if n := len(inst.idle); n > 0 {
			conn := inst.idle[n-1]
			inst.idle = inst.idle[:n-1]
			inst.active++
			inst.mu.Unlock()
			return conn, nil
		}
		if inst.active+len(inst.idle) < inst.maxConns {
			inst.active++
			inst.mu.Unlock()

			conn, err := inst.db.Conn(ctx)
			if err != nil {
				inst.mu.Lock()
				inst.decActiveLocked()
				inst.mu.Unlock()
				return nil, fmt.Errorf("failed to open pooled connection: %w", err)
			}
			return conn, nil
		}
		inst.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pool wait cancelled for conversation %s: %w", inst.ConversationID, ctx.Err())
		case <-time.After(inst.retryDelay):
		}
	}
}

// Release returns a connection to the pool. Connections are never closed on
// release unless the instance has been closed in the meantime.
func (inst *Instance) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	inst.mu.Lock()
	if inst.closed {
		inst.decActiveLocked()
		inst.mu.Unlock()
		if err := conn.Close(); err != nil {
			inst.logger.Warn("failed to close stray connection",
				zap.String("conversation_id", inst.ConversationID),
				zap.Error(err))
		}
		return
	}
	inst.idle = append(inst.idle, conn)
	inst.decActiveLocked()
	inst.mu.Unlock()
}

// decActiveLocked decrements the active count, never below zero.
func (inst *Instance) decActiveLocked() {
	if inst.active > 0 {
		inst.active--
	}
}

// ActiveConnections reports the number of connections currently handed out.
func (inst *Instance) ActiveConnections() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.active
}

// AttachedDatasources returns a snapshot of datasource id to catalog name.
func (inst *Instance) AttachedDatasources() map[string]string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	out := make(map[string]string, len(inst.attached))
	for id, cat := range inst.attached {
		out[id] = cat
	}
	return out
}

// MaterializedViews returns a snapshot of datasource id to view name.
func (inst *Instance) MaterializedViews() map[string]string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	out := make(map[string]string, len(inst.views))
	for id, view := range inst.views {
		out[id] = view
	}
	return out
}

func (inst *Instance) trackAttached(datasourceID, catalog string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.attached[datasourceID] = catalog
}

func (inst *Instance) untrackAttached(datasourceID string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.attached, datasourceID)
}

// catalogInUse reports whether any tracked datasource other than excludeID
// still maps to the catalog. Shared catalogs must not be detached while a
// sibling datasource is attached under the same name.
func (inst *Instance) catalogInUse(catalog, excludeID string) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for id, cat := range inst.attached {
		if id != excludeID && cat == catalog {
			return true
		}
	}
	return false
}

func (inst *Instance) trackView(datasourceID, view string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.views[datasourceID] = view
}

func (inst *Instance) untrackView(datasourceID string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.views, datasourceID)
}

// CachedSchema returns the cached schema for a view if it is younger than the
// TTL. Stale entries are evicted on read.
func (inst *Instance) CachedSchema(viewName string) (*SchemaDescriptor, bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	entry, ok := inst.schemaCache[viewName]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > inst.cacheTTL {
		delete(inst.schemaCache, viewName)
		return nil, false
	}
	return entry.schema, true
}

// CacheSchema stores a schema for a view with the current timestamp.
func (inst *Instance) CacheSchema(viewName string, schema *SchemaDescriptor) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.schemaCache[viewName] = schemaEntry{schema: schema, storedAt: time.Now()}
}

// InvalidateSchema drops the cached schema for a view.
func (inst *Instance) InvalidateSchema(viewName string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	delete(inst.schemaCache, viewName)
}

// recentlySynced reports whether the checked-set key matches the last synced
// key within the freshness window.
func (inst *Instance) recentlySynced(key string, window time.Duration) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return key == inst.lastSyncedKey && time.Since(inst.lastSyncedAt) < window
}

// recordSynced sets the synced baseline for the idempotence guard.
func (inst *Instance) recordSynced(key string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.lastSyncedKey = key
	inst.lastSyncedAt = time.Now()
}

// close closes every pooled connection, then the engine handle. Individual
// close failures are logged and swallowed.
func (inst *Instance) close() {
	inst.mu.Lock()
	if inst.closed {
		inst.mu.Unlock()
		return
	}
	inst.closed = true
	idle := inst.idle
	inst.idle = nil
	inst.mu.Unlock()

	for _, conn := range idle {
		if err := conn.Close(); err != nil {
			inst.logger.Warn("failed to close pooled connection",
				zap.String("conversation_id", inst.ConversationID),
				zap.Error(err))
		}
	}
	if err := inst.db.Close(); err != nil {
		inst.logger.Warn("failed to close engine handle",
			zap.String("conversation_id", inst.ConversationID),
			zap.Error(err))
	}
}
