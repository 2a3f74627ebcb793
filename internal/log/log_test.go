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
package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerReplacesGlobal(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	replacement := zap.NewNop()
	SetLogger(replacement)
	assert.Same(t, replacement, Logger())
}

func TestConversationTagsEntries(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))

	Conversation("conv-42").Info("attached catalog")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "attached catalog", entries[0].Message)
	assert.Equal(t, "conv-42", entries[0].ContextMap()["conversation_id"])
}
