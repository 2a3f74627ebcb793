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

// Package enrich derives lightweight business context for attached tables and
// persists it in a sidecar next to the conversation database. Enrichment runs
// in the background and is deduplicated per conversation; a sync that lands
// while enrichment is already in flight does not start a second pass.
package enrich

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/internal/csync"
	"github.com/oxbow-labs/oxbow/pkg/config"
	"github.com/oxbow-labs/oxbow/pkg/duck"
)

// TableContext is the derived business context for one attached table.
type TableContext struct {
	SemanticName string    `json:"semanticName"`
	Entity       string    `json:"entity"`
	Domain       string    `json:"domain"`
	Description  string    `json:"description"`
	Columns      []string  `json:"columns,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Enricher derives and persists business context. Safe for concurrent use.
type Enricher struct {
	logger   *zap.Logger
	inflight *csync.Set[string]
}

// NewEnricher creates an enricher.
func NewEnricher(logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		logger:   logger,
		inflight: csync.NewSet[string](),
	}
}

// EnrichAsync derives context for the given tables in a background goroutine
// and merges it into the conversation's sidecar. If an enrichment pass for the
// same conversation is already running, the call is a no-op.
func (e *Enricher) EnrichAsync(workspace, conversationID string, tables []duck.AttachedTable) {
	key := workspace + "|" + conversationID
	if !e.inflight.TryAdd(key) {
		e.logger.Debug("enrichment already in flight",
			zap.String("conversation_id", conversationID))
		return
	}

	go func() {
		defer e.inflight.Remove(key)
		if err := e.enrich(workspace, conversationID, tables); err != nil {
			e.logger.Warn("business-context enrichment failed",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
		}
	}()
}

// Enrich derives and persists context synchronously. Short-lived callers
// (the CLI) use this; long-running ones use EnrichAsync.
func (e *Enricher) Enrich(workspace, conversationID string, tables []duck.AttachedTable) error {
	return e.enrich(workspace, conversationID, tables)
}

func (e *Enricher) enrich(workspace, conversationID string, tables []duck.AttachedTable) error {
	existing, err := e.Load(workspace, conversationID)
	if err != nil {
		e.logger.Warn("failed to load business-context sidecar, starting fresh",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		existing = map[string]TableContext{}
	}

	now := time.Now().UTC()
	for _, t := range tables {
		if t.SemanticName == "" {
			continue
		}
		columns := columnNames(t.Columns)
		existing[t.SemanticName] = TableContext{
			SemanticName: t.SemanticName,
			Entity:       inferEntity(t.SemanticName),
			Domain:       inferDomain(t.SemanticName, columns),
			Description:  describeTable(t.SemanticName, columns),
			Columns:      columns,
			UpdatedAt:    now,
		}
	}

	if err := e.save(workspace, conversationID, existing); err != nil {
		return err
	}
	e.logger.Info("enriched business context",
		zap.String("conversation_id", conversationID),
		zap.Int("tables", len(tables)))
	return nil
}

// Load reads the conversation's business-context sidecar. A missing sidecar
// yields an empty map, not an error.
func (e *Enricher) Load(workspace, conversationID string) (map[string]TableContext, error) {
	path := config.BusinessContextPath(workspace, conversationID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]TableContext{}, nil
	}
	if err != nil {
		return nil, err
	}

	var out map[string]TableContext
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]TableContext{}
	}
	return out, nil
}

func (e *Enricher) save(workspace, conversationID string, contexts map[string]TableContext) error {
	data, err := json.MarshalIndent(contexts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(config.BusinessContextPath(workspace, conversationID), data, 0o644)
}

func columnNames(cols []duck.ColumnSchema) []string {
	if len(cols) == 0 {
		return nil
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.ColumnName
	}
	return names
}

// inferEntity turns a semantic table name into a singular entity label.
func inferEntity(semanticName string) string {
	name := strings.ReplaceAll(semanticName, "_", " ")
	words := strings.Fields(name)
	if len(words) == 0 {
		return semanticName
	}
	last := singularize(words[len(words)-1])
	words[len(words)-1] = last
	return strings.Join(words, " ")
}

func singularize(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"), strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"), strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "zes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), !strings.HasSuffix(word, "s"):
		return word
	default:
		return word[:len(word)-1]
	}
}

// domainKeywords maps column-name fragments to business domains, checked in
// order so stronger signals win.
var domainKeywords = []struct {
	domain   string
	keywords []string
}{
	{"finance", []string{"price", "amount", "total", "revenue", "cost", "invoice", "payment", "balance", "currency"}},
	{"sales", []string{"order", "quantity", "sku", "discount", "cart", "checkout"}},
	{"crm", []string{"email", "phone", "customer", "contact", "lead", "address"}},
	{"hr", []string{"salary", "employee", "department", "hire", "manager"}},
	{"analytics", []string{"event", "session", "click", "impression", "pageview", "metric"}},
	{"inventory", []string{"stock", "warehouse", "supplier", "shipment"}},
}

// inferDomain scores the table and column names against domain keywords.
func inferDomain(semanticName string, columns []string) string {
	haystack := strings.ToLower(semanticName + " " + strings.Join(columns, " "))
	for _, dk := range domainKeywords {
		for _, kw := range dk.keywords {
			if strings.Contains(haystack, kw) {
				return dk.domain
			}
		}
	}
	return "general"
}

func describeTable(semanticName string, columns []string) string {
	entity := inferEntity(semanticName)
	if len(columns) == 0 {
		return "Records of " + entity + "."
	}
	shown := columns
	if len(shown) > 5 {
		shown = shown[:5]
	}
	sorted := make([]string, len(shown))
	copy(sorted, shown)
	sort.Strings(sorted)
	return "Records of " + entity + " with fields " + strings.Join(sorted, ", ") + "."
}
