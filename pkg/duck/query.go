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
	"fmt"

	"go.uber.org/zap"
)

// Executor runs SQL against a conversation's instance on a scoped pooled
// connection. The connection is returned to the pool before Run returns,
// success or failure.
type Executor struct {
	manager *Manager
	logger  *zap.Logger
}

// NewExecutor creates a query executor bound to a manager.
func NewExecutor(manager *Manager, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{manager: manager, logger: logger}
}

// Run executes one statement and materializes the full result set. Byte-slice
// values are converted to strings so results serialize cleanly.
func (e *Executor) Run(ctx context.Context, conversationID, workspace, query string) (*QueryResult, error) {
	conn, err := e.manager.GetConnection(ctx, conversationID, workspace)
	if err != nil {
		return nil, err
	}
	defer e.manager.ReturnConnection(conversationID, workspace, conn)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		targets := make([]interface{}, len(cols))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read result rows: %w", err)
	}

	e.logger.Debug("query executed",
		zap.String("conversation_id", conversationID),
		zap.Int("rows", len(result.Rows)))
	return result, nil
}
