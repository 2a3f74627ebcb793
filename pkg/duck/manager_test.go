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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxbow-labs/oxbow/pkg/config"
)

func TestCheckedSetKey(t *testing.T) {
	// Membership decides the key, order does not.
	assert.Equal(t, checkedSetKey([]string{"b", "a", "c"}), checkedSetKey([]string{"c", "a", "b"}))
	assert.NotEqual(t, checkedSetKey([]string{"a"}), checkedSetKey([]string{"a", "b"}))
	assert.Equal(t, "", checkedSetKey(nil))

	// Input slice must not be reordered.
	ids := []string{"z", "a"}
	checkedSetKey(ids)
	assert.Equal(t, []string{"z", "a"}, ids)
}

func TestInstanceKey(t *testing.T) {
	assert.Equal(t, "/ws|conv-1", instanceKey("/ws", "conv-1"))
	assert.NotEqual(t, instanceKey("/ws", "conv-1"), instanceKey("/ws", "conv-2"))
	assert.NotEqual(t, instanceKey("/ws-a", "conv"), instanceKey("/ws-b", "conv"))
}

func TestViewRegistrySidecarRoundTrip(t *testing.T) {
	workspace := t.TempDir()
	const convID = "conv-sidecar"
	require.NoError(t, os.MkdirAll(config.ConversationDir(workspace, convID), 0o755))

	// Missing sidecar loads empty, not an error.
	views, err := loadViewRegistry(workspace, convID)
	require.NoError(t, err)
	assert.Empty(t, views)

	want := map[string]string{
		"ds-1": "expenses_budget",
		"ds-2": "orders_export",
	}
	require.NoError(t, saveViewRegistry(workspace, convID, want))

	got, err := loadViewRegistry(workspace, convID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadViewRegistryCorruptSidecar(t *testing.T) {
	workspace := t.TempDir()
	const convID = "conv-corrupt"
	require.NoError(t, os.MkdirAll(config.ConversationDir(workspace, convID), 0o755))
	require.NoError(t, os.WriteFile(config.ViewRegistryPath(workspace, convID), []byte("{not json"), 0o644))

	views, err := loadViewRegistry(workspace, convID)
	require.Error(t, err)
	assert.Empty(t, views)
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(ManagerConfig{})
	assert.Equal(t, 8, m.cfg.MaxConnections)
	assert.Equal(t, "100ms", m.cfg.PoolRetryDelay.String())
	assert.Equal(t, "1m0s", m.cfg.SchemaCacheTTL.String())
	assert.Equal(t, "5s", m.cfg.SyncFreshness.String())
	assert.NotNil(t, m.Introspector())
}

func TestGetInstanceWithoutCreate(t *testing.T) {
	m := NewManager(ManagerConfig{})
	_, err := m.GetInstance(context.Background(), "missing", t.TempDir(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}
