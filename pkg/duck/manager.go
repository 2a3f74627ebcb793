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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/internal/csync"
	"github.com/oxbow-labs/oxbow/pkg/config"
	"github.com/oxbow-labs/oxbow/pkg/datasource"
	"github.com/oxbow-labs/oxbow/pkg/drivers"
)

// ErrInstanceNotFound is returned when an instance lookup disallows creation
// and no instance exists for the conversation.
var ErrInstanceNotFound = errors.New("no instance exists for conversation")

// ManagerConfig configures the instance manager.
type ManagerConfig struct {
	// MaxConnections is the per-instance pool ceiling (default 8).
	MaxConnections int

	// PoolRetryDelay is the fixed wait between pool-acquisition retries
	// (default 100ms).
	PoolRetryDelay time.Duration

	// SchemaCacheTTL is the per-view schema freshness window (default 60s).
	SchemaCacheTTL time.Duration

	// SyncFreshness is the window within which a repeated sync of an
	// identical checked-set short-circuits (default 5s).
	SyncFreshness time.Duration

	// Registry resolves extension drivers for driver-backed providers and
	// connection pre-flight.
	Registry *drivers.Registry

	// Logger for manager operations.
	Logger *zap.Logger
}

// Manager owns every ConversationInstance: exactly one embedded-database
// instance per (workspace, conversation) pair, each with a bounded connection
// pool and attachment tracking. All instance lifecycle and tracking mutation
// goes through the Manager.
type Manager struct {
	cfg    ManagerConfig
	logger *zap.Logger

	instances *csync.Map[string, *Instance]
	createMu  sync.Mutex

	foreign      *ForeignAttacher
	sheets       *SheetAttacher
	views        *ViewMaterializer
	introspector *Introspector
}

// NewManager creates an instance manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 8
	}
	if cfg.PoolRetryDelay <= 0 {
		cfg.PoolRetryDelay = 100 * time.Millisecond
	}
	if cfg.SchemaCacheTTL <= 0 {
		cfg.SchemaCacheTTL = 60 * time.Second
	}
	if cfg.SyncFreshness <= 0 {
		cfg.SyncFreshness = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Manager{
		cfg:          cfg,
		logger:       cfg.Logger,
		instances:    csync.NewMap[string, *Instance](),
		foreign:      NewForeignAttacher(cfg.Registry, cfg.Logger),
		sheets:       NewSheetAttacher(cfg.Logger),
		views:        NewViewMaterializer(cfg.Registry, cfg.Logger),
		introspector: NewIntrospector(cfg.Logger),
	}
}

// Introspector returns the manager's schema introspector.
func (m *Manager) Introspector() *Introspector {
	return m.introspector
}

func instanceKey(workspace, conversationID string) string {
	return workspace + "|" + conversationID
}

// GetInstance returns the conversation's instance, creating it lazily when
// allowed. Creation ensures the on-disk directory exists and opens the engine
// at the conversation-scoped file path.
func (m *Manager) GetInstance(ctx context.Context, conversationID, workspace string, createIfNotExists bool) (*Instance, error) {
	key := instanceKey(workspace, conversationID)
	if inst, ok := m.instances.Get(key); ok {
		return inst, nil
	}
	if !createIfNotExists {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, conversationID)
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()
	if inst, ok := m.instances.Get(key); ok {
		return inst, nil
	}

	inst, err := m.createInstance(ctx, conversationID, workspace)
	if err != nil {
		return nil, err
	}
	m.instances.Set(key, inst)
	return inst, nil
}

func (m *Manager) createInstance(ctx context.Context, conversationID, workspace string) (*Instance, error) {
	dir := config.ConversationDir(workspace, conversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory: %w", err)
	}

	path := config.ConversationDBPath(workspace, conversationID)
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded database at %s: %w", path, err)
	}
	db.SetMaxOpenConns(m.cfg.MaxConnections)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open embedded database at %s: %w", path, err)
	}

	inst := &Instance{
		ConversationID: conversationID,
		Workspace:      workspace,
		Path:           path,
		db:             db,
		logger:         m.logger,
		maxConns:       m.cfg.MaxConnections,
		retryDelay:     m.cfg.PoolRetryDelay,
		cacheTTL:       m.cfg.SchemaCacheTTL,
		attached:       make(map[string]string),
		views:          make(map[string]string),
		schemaCache:    make(map[string]schemaEntry),
	}

	// Restore the view registry so a later sync can drop views whose
	// datasources are no longer checked.
	if views, err := loadViewRegistry(workspace, conversationID); err != nil {
		m.logger.Warn("failed to load view registry sidecar",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	} else {
		inst.views = views
	}

	m.logger.Info("created conversation instance",
		zap.String("conversation_id", conversationID),
		zap.String("path", path))
	return inst, nil
}

// GetConnection acquires a pooled connection for the conversation.
func (m *Manager) GetConnection(ctx context.Context, conversationID, workspace string) (*sql.Conn, error) {
	inst, err := m.GetInstance(ctx, conversationID, workspace, true)
	if err != nil {
		return nil, err
	}
	return inst.Acquire(ctx)
}

// ReturnConnection hands a connection back to its instance's pool. If the
// owning instance no longer exists the stray connection is closed directly.
func (m *Manager) ReturnConnection(conversationID, workspace string, conn *sql.Conn) {
	if conn == nil {
		return
	}
	inst, ok := m.instances.Get(instanceKey(workspace, conversationID))
	if !ok {
		if err := conn.Close(); err != nil {
			m.logger.Warn("failed to close stray connection",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
		}
		return
	}
	inst.Release(conn)
}

// checkedSetKey canonicalizes a checked-set by membership, not order.
func checkedSetKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// SyncDatasources reconciles the instance's attached set against the
// caller-supplied checked set: newcomers are attached or materialized,
// removed datasources are detached or dropped when detachUnchecked is set.
// Failures for one datasource never abort the rest of the batch; each
// datasource's outcome is reported as a structured result.
//
// A repeated sync of an identical checked-set within the freshness window is
// a no-op: no engine calls are issued at all.
func (m *Manager) SyncDatasources(ctx context.Context, conversationID, workspace string, checkedIDs []string, repo datasource.Repository, detachUnchecked bool) ([]SyncResult, error) {
	inst, err := m.GetInstance(ctx, conversationID, workspace, true)
	if err != nil {
		return nil, err
	}

	key := checkedSetKey(checkedIDs)
	if inst.recentlySynced(key, m.cfg.SyncFreshness) {
		m.logger.Debug("checked-set unchanged, skipping sync",
			zap.String("conversation_id", conversationID))
		return nil, nil
	}

	checked := make(map[string]bool, len(checkedIDs))
	for _, id := range checkedIDs {
		checked[id] = true
	}
	attached := inst.AttachedDatasources()
	views := inst.MaterializedViews()

	records := m.loadRecords(ctx, repo, checkedIDs, attached, views)

	// All attach/detach traffic for one sync call shares a single connection
	// so two connections can never contend on the same catalog name.
	conn, err := inst.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer inst.Release(conn)

	var results []SyncResult

	if detachUnchecked {
		for id, catalog := range attached {
			if checked[id] {
				continue
			}
			results = append(results, m.detachOne(ctx, conn, inst, id, catalog, records[id]))
		}
	}

	for id, view := range views {
		if checked[id] {
			continue
		}
		m.dropView(ctx, conn, inst, id, view)
	}

	for _, id := range checkedIDs {
		if _, ok := attached[id]; ok {
			continue
		}
		if _, ok := views[id]; ok {
			continue
		}
		results = append(results, m.attachOne(ctx, conn, inst, id, records[id]))
	}

	if err := saveViewRegistry(workspace, conversationID, inst.MaterializedViews()); err != nil {
		m.logger.Warn("failed to persist view registry sidecar",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	inst.recordSynced(key)
	return results, nil
}

// loadRecords loads datasource records for the union of the checked,
// attached, and materialized sets. Lookup failures are logged and the id is
// simply absent from the result.
func (m *Manager) loadRecords(ctx context.Context, repo datasource.Repository, checkedIDs []string, attached, views map[string]string) map[string]*datasource.Datasource {
	union := make(map[string]bool, len(checkedIDs)+len(attached)+len(views))
	for _, id := range checkedIDs {
		union[id] = true
	}
	for id := range attached {
		union[id] = true
	}
	for id := range views {
		union[id] = true
	}

	records := make(map[string]*datasource.Datasource, len(union))
	for id := range union {
		ds, err := repo.FindByID(ctx, id)
		if err != nil {
			m.logger.Warn("failed to load datasource record",
				zap.String("datasource_id", id),
				zap.Error(err))
			continue
		}
		records[id] = ds
	}
	return records
}

// detachOne detaches a datasource's catalog. "not attached" races are
// treated as already done. A catalog shared with a still-attached sibling
// datasource is left in place; only the tracking entry is removed.
func (m *Manager) detachOne(ctx context.Context, conn *sql.Conn, inst *Instance, id, catalog string, ds *datasource.Datasource) SyncResult {
	result := SyncResult{DatasourceID: id, Action: "detach", Success: true}
	if ds != nil {
		result.Name = ds.Name
	}

	inst.untrackAttached(id)
	if inst.catalogInUse(catalog, id) {
		m.logger.Debug("catalog still shared, skipping detach",
			zap.String("catalog", catalog),
			zap.String("datasource_id", id))
		return result
	}

	if _, err := conn.ExecContext(ctx, "DETACH "+quoteIdent(catalog)); err != nil && !isNotAttached(err) {
		m.logger.Warn("failed to detach catalog",
			zap.String("catalog", catalog),
			zap.Error(err))
		result.Success = false
		result.Error = err.Error()
		return result
	}

	m.logger.Info("detached catalog",
		zap.String("catalog", catalog),
		zap.String("datasource_id", id))
	return result
}

// dropView drops a materialized view whose datasource fell out of the
// checked set. Drop failures are logged, not fatal; the tracking entry and
// cached schema are removed regardless.
func (m *Manager) dropView(ctx context.Context, conn *sql.Conn, inst *Instance, id, view string) {
	if _, err := conn.ExecContext(ctx, "DROP VIEW IF EXISTS "+quoteIdent(view)); err != nil {
		m.logger.Warn("failed to drop view",
			zap.String("view", view),
			zap.Error(err))
	}
	inst.untrackView(id)
	inst.InvalidateSchema(view)
}

// attachOne attaches or materializes one checked datasource according to its
// provider kind.
func (m *Manager) attachOne(ctx context.Context, conn *sql.Conn, inst *Instance, id string, ds *datasource.Datasource) SyncResult {
	if ds == nil {
		return SyncResult{DatasourceID: id, Action: "attach", Success: false, Error: "datasource not found"}
	}

	result := SyncResult{DatasourceID: id, Name: ds.Name, Action: "attach"}
	switch ds.Kind() {
	case datasource.KindForeign:
		res, err := m.foreign.Attach(ctx, conn, ds, false)
		if err != nil {
			m.logger.Warn("failed to attach foreign datasource",
				zap.String("datasource_id", id),
				zap.Error(err))
			result.Error = err.Error()
			return result
		}
		inst.trackAttached(id, res.CatalogName)
		result.Tables = res.Tables

	case datasource.KindSpreadsheet:
		// Tab materialization computes column shapes anyway; keeping them
		// costs nothing and feeds context enrichment.
		res, err := m.sheets.Attach(ctx, conn, ds, true)
		if err != nil {
			m.logger.Warn("failed to attach spreadsheet datasource",
				zap.String("datasource_id", id),
				zap.Error(err))
			result.Error = err.Error()
			return result
		}
		inst.trackAttached(id, res.CatalogName)
		result.Tables = res.Tables

	case datasource.KindNativeView:
		res, err := m.views.Materialize(ctx, conn, ds)
		if err != nil {
			m.logger.Warn("failed to materialize native view",
				zap.String("datasource_id", id),
				zap.Error(err))
			result.Error = err.Error()
			return result
		}
		inst.trackView(id, res.ViewName)
		if res.Schema != nil {
			inst.CacheSchema(res.ViewName, res.Schema)
		}
		result.Tables = viewTables(res)
	}

	result.Success = true
	return result
}

// viewTables renders a materialized view as a one-entry table list.
func viewTables(res *ViewResult) []AttachedTable {
	table := AttachedTable{TableName: res.ViewName, SemanticName: res.ViewName}
	if res.Schema != nil && len(res.Schema.Tables) > 0 {
		table.Columns = res.Schema.Tables[0].Columns
	}
	return []AttachedTable{table}
}

// InitializeDatasources attaches a batch of datasources concurrently, each on
// its own pooled connection. Used at first-initialization time when the
// datasources touch disjoint catalog names; within a regular sync, attachment
// stays sequential on one connection.
func (m *Manager) InitializeDatasources(ctx context.Context, conversationID, workspace string, ids []string, repo datasource.Repository) ([]SyncResult, error) {
	inst, err := m.GetInstance(ctx, conversationID, workspace, true)
	if err != nil {
		return nil, err
	}

	results := make([]SyncResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			ds, err := repo.FindByID(ctx, id)
			if err != nil {
				results[i] = SyncResult{DatasourceID: id, Action: "attach", Success: false, Error: err.Error()}
				return
			}
			conn, err := inst.Acquire(ctx)
			if err != nil {
				results[i] = SyncResult{DatasourceID: id, Name: ds.Name, Action: "attach", Success: false, Error: err.Error()}
				return
			}
			defer inst.Release(conn)
			results[i] = m.attachOne(ctx, conn, inst, id, ds)
		}(i, id)
	}
	wg.Wait()
	return results, nil
}

// GetCachedSchema returns the cached schema for a view if still fresh.
func (m *Manager) GetCachedSchema(conversationID, workspace, viewName string) (*SchemaDescriptor, bool) {
	inst, ok := m.instances.Get(instanceKey(workspace, conversationID))
	if !ok {
		return nil, false
	}
	return inst.CachedSchema(viewName)
}

// CacheSchema stores a schema for a view.
func (m *Manager) CacheSchema(conversationID, workspace, viewName string, schema *SchemaDescriptor) {
	inst, ok := m.instances.Get(instanceKey(workspace, conversationID))
	if !ok {
		return
	}
	inst.CacheSchema(viewName, schema)
}

// CloseInstance closes every pooled connection then the instance handle, and
// removes the registry entry. Individual close errors are swallowed as
// warnings.
func (m *Manager) CloseInstance(conversationID, workspace string) {
	key := instanceKey(workspace, conversationID)
	inst, ok := m.instances.Get(key)
	if !ok {
		return
	}
	inst.close()
	m.instances.Delete(key)
	m.logger.Info("closed conversation instance",
		zap.String("conversation_id", conversationID))
}

// CloseAll closes every instance.
func (m *Manager) CloseAll() {
	for _, inst := range m.instances.Seq2() {
		inst.close()
	}
	m.instances.Clear()
}

// viewRegistry is the sidecar shape persisted next to the database file.
type viewRegistry struct {
	Views map[string]string `json:"views"`
}

func loadViewRegistry(workspace, conversationID string) (map[string]string, error) {
	path := config.ViewRegistryPath(workspace, conversationID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return make(map[string]string), err
	}

	var reg viewRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return make(map[string]string), err
	}
	if reg.Views == nil {
		reg.Views = make(map[string]string)
	}
	return reg.Views, nil
}

func saveViewRegistry(workspace, conversationID string, views map[string]string) error {
	data, err := json.MarshalIndent(viewRegistry{Views: views}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(config.ViewRegistryPath(workspace, conversationID), data, 0o644)
}
