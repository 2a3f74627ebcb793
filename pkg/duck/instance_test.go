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
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestInstance(cacheTTL time.Duration) *Instance {
	return &Instance{
		ConversationID: "conv-test",
		logger:         zap.NewNop(),
		maxConns:       8,
		retryDelay:     time.Millisecond,
		cacheTTL:       cacheTTL,
		attached:       make(map[string]string),
		views:          make(map[string]string),
		schemaCache:    make(map[string]schemaEntry),
	}
}

func TestAttachmentTracking(t *testing.T) {
	inst := newTestInstance(time.Minute)

	inst.trackAttached("ds-1", "prod")
	inst.trackAttached("ds-2", "prod")
	inst.trackAttached("ds-3", "sheets")

	snapshot := inst.AttachedDatasources()
	assert.Len(t, snapshot, 3)
	assert.Equal(t, "prod", snapshot["ds-1"])

	// The snapshot is a copy, not a live reference.
	snapshot["ds-4"] = "x"
	assert.Len(t, inst.AttachedDatasources(), 3)

	inst.untrackAttached("ds-1")
	assert.Len(t, inst.AttachedDatasources(), 2)
}

func TestCatalogInUse(t *testing.T) {
	inst := newTestInstance(time.Minute)
	inst.trackAttached("ds-1", "prod")
	inst.trackAttached("ds-2", "prod")

	// Shared catalog: still in use by the sibling.
	assert.True(t, inst.catalogInUse("prod", "ds-1"))

	inst.untrackAttached("ds-2")
	assert.False(t, inst.catalogInUse("prod", "ds-1"))
	assert.False(t, inst.catalogInUse("nonexistent", "ds-1"))
}

func TestViewTracking(t *testing.T) {
	inst := newTestInstance(time.Minute)

	inst.trackView("ds-1", "expenses_budget")
	assert.Equal(t, map[string]string{"ds-1": "expenses_budget"}, inst.MaterializedViews())

	inst.untrackView("ds-1")
	assert.Empty(t, inst.MaterializedViews())
}

func TestSchemaCacheTTL(t *testing.T) {
	inst := newTestInstance(20 * time.Millisecond)
	schema := &SchemaDescriptor{DatabaseName: "memory"}

	_, ok := inst.CachedSchema("v1")
	assert.False(t, ok)

	inst.CacheSchema("v1", schema)
	got, ok := inst.CachedSchema("v1")
	assert.True(t, ok)
	assert.Same(t, schema, got)

	time.Sleep(30 * time.Millisecond)
	_, ok = inst.CachedSchema("v1")
	assert.False(t, ok, "stale entry should be evicted on read")
}

func TestSchemaCacheInvalidate(t *testing.T) {
	inst := newTestInstance(time.Minute)
	inst.CacheSchema("v1", &SchemaDescriptor{})

	inst.InvalidateSchema("v1")
	_, ok := inst.CachedSchema("v1")
	assert.False(t, ok)
}

func TestRecentlySynced(t *testing.T) {
	inst := newTestInstance(time.Minute)
	window := 50 * time.Millisecond

	assert.False(t, inst.recentlySynced("a,b", window))

	inst.recordSynced("a,b")
	assert.True(t, inst.recentlySynced("a,b", window))
	assert.False(t, inst.recentlySynced("a,c", window), "different membership must sync")

	time.Sleep(60 * time.Millisecond)
	assert.False(t, inst.recentlySynced("a,b", window), "window expiry must sync")
}

func TestDecActiveNeverNegative(t *testing.T) {
	inst := newTestInstance(time.Minute)

	inst.mu.Lock()
	inst.decActiveLocked()
	inst.decActiveLocked()
	inst.mu.Unlock()

	assert.Equal(t, 0, inst.ActiveConnections())
}
