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
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/pkg/datasource"
)

var (
	spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	sheetGIDPattern      = regexp.MustCompile(`[?#&]gid=(\d+)`)
)

// SheetAttacher treats a multi-tab spreadsheet as a pseudo-database: each
// discovered tab is materialized as a table inside an in-memory catalog and
// given a semantic name.
type SheetAttacher struct {
	logger *zap.Logger
}

// NewSheetAttacher creates a spreadsheet attacher.
func NewSheetAttacher(logger *zap.Logger) *SheetAttacher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetAttacher{logger: logger}
}

// Attach materializes the spreadsheet's tabs into an in-memory catalog named
// after the datasource. Partial success is acceptable; an attach with zero
// readable tabs is a hard error.
func (s *SheetAttacher) Attach(ctx context.Context, conn *sql.Conn, ds *datasource.Datasource, extractSchema bool) (*AttachResult, error) {
	catalog := CatalogNameFor(ds)
	if err := ensureMemoryCatalog(ctx, conn, catalog, s.logger); err != nil {
		return nil, err
	}

	var result *AttachResult
	var err error
	switch ds.Provider {
	case "xlsx":
		result, err = s.attachWorkbook(ctx, conn, catalog, ds)
	default:
		result, err = s.attachGoogleSheet(ctx, conn, catalog, ds)
	}
	if err != nil {
		return nil, err
	}

	if len(result.Tables) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no readable tabs", ds.Name)
	}
	if !extractSchema {
		for i := range result.Tables {
			result.Tables[i].Columns = nil
		}
	}

	s.logger.Info("attached spreadsheet catalog",
		zap.String("catalog", catalog),
		zap.String("datasource_id", ds.ID),
		zap.Int("tabs", len(result.Tables)))
	return result, nil
}

// ExtractSpreadsheetID pulls the stable document id out of a sharing URL.
func ExtractSpreadsheetID(url string) (string, error) {
	m := spreadsheetIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("not a spreadsheet sharing URL: %s", url)
	}
	return m[1], nil
}

// tabCandidates returns the tab indices to probe: always index 0, plus any
// gid values present in the URL. Discovery is bounded to these explicit
// candidates; tab indices are never enumerated blindly.
func tabCandidates(url string) []int {
	seen := map[int]bool{0: true}
	candidates := []int{0}
	for _, m := range sheetGIDPattern.FindAllStringSubmatch(url, -1) {
		gid, err := strconv.Atoi(m[1])
		if err != nil || seen[gid] {
			continue
		}
		seen[gid] = true
		candidates = append(candidates, gid)
	}
	return candidates
}

func sheetExportURL(spreadsheetID string, gid int) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%d", spreadsheetID, gid)
}

func (s *SheetAttacher) attachGoogleSheet(ctx context.Context, conn *sql.Conn, catalog string, ds *datasource.Datasource) (*AttachResult, error) {
	url := ds.Config["url"]
	spreadsheetID, err := ExtractSpreadsheetID(url)
	if err != nil {
		return nil, err
	}
	if err := loadExtension(ctx, conn, "httpfs"); err != nil {
		return nil, err
	}

	result := &AttachResult{CatalogName: catalog}
	used := make(map[string]bool)
	for _, gid := range tabCandidates(url) {
		exportURL := sheetExportURL(spreadsheetID, gid)
		if !s.probeTab(ctx, conn, exportURL, gid) {
			continue
		}

		table, err := s.materializeTab(ctx, conn, catalog, exportURL, gid, used)
		if err != nil {
			s.logger.Warn("failed to materialize tab",
				zap.String("catalog", catalog),
				zap.Int("gid", gid),
				zap.Error(err))
			continue
		}
		result.Tables = append(result.Tables, *table)
	}
	return result, nil
}

// probeTab attempts a bounded read of the tab's exported tabular form. A
// missing-resource failure means the tab does not exist; other failures are
// logged and the tab is conservatively excluded without retry.
func (s *SheetAttacher) probeTab(ctx context.Context, conn *sql.Conn, exportURL string, gid int) bool {
	probe := fmt.Sprintf("SELECT * FROM read_csv_auto(%s) LIMIT 1", quoteLiteral(exportURL))
	rows, err := conn.QueryContext(ctx, probe)
	if err != nil {
		if isMissingResource(err) {
			s.logger.Debug("tab does not exist", zap.Int("gid", gid))
		} else {
			s.logger.Warn("tab probe failed", zap.Int("gid", gid), zap.Error(err))
		}
		return false
	}
	rows.Close()
	return true
}

// materializeTab reads the tab into a temp table, derives a semantic name
// from its columns, and atomically renames the temp table into place,
// dropping any stale prior occupant of that name.
func (s *SheetAttacher) materializeTab(ctx context.Context, conn *sql.Conn, catalog, exportURL string, gid int, used map[string]bool) (*AttachedTable, error) {
	tmpName := fmt.Sprintf("oxbow_tmp_tab_%d", gid)
	createSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s.%s AS SELECT * FROM read_csv_auto(%s, header = true)",
		quoteIdent(catalog), quoteIdent(tmpName), quoteLiteral(exportURL))
	if _, err := conn.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to read tab %d: %w", gid, err)
	}

	cols, err := describeColumns(ctx, conn, catalog, "main", tmpName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe tab %d: %w", gid, err)
	}

	semantic := SemanticTableName(cols, fmt.Sprintf("tab_%d", gid), used)
	if err := renameIntoPlace(ctx, conn, catalog, tmpName, semantic); err != nil {
		return nil, err
	}

	return &AttachedTable{
		TableName:    fmt.Sprintf("tab_%d", gid),
		SemanticName: semantic,
		Columns:      cols,
	}, nil
}

// attachWorkbook materializes every tab of a local xlsx workbook. Tab
// discovery enumerates the workbook's sheet list directly; unreadable or
// empty tabs are skipped.
func (s *SheetAttacher) attachWorkbook(ctx context.Context, conn *sql.Conn, catalog string, ds *datasource.Datasource) (*AttachResult, error) {
	path := ds.Config["path"]
	if path == "" {
		return nil, fmt.Errorf("xlsx datasource %s requires a path", ds.Name)
	}

	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer book.Close()

	result := &AttachResult{CatalogName: catalog}
	used := make(map[string]bool)
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			s.logger.Warn("failed to read workbook tab",
				zap.String("tab", sheet),
				zap.Error(err))
			continue
		}
		if len(rows) < 1 || len(rows[0]) == 0 {
			s.logger.Debug("skipping empty workbook tab", zap.String("tab", sheet))
			continue
		}

		table, err := s.materializeWorkbookTab(ctx, conn, catalog, sheet, rows, used)
		if err != nil {
			s.logger.Warn("failed to materialize workbook tab",
				zap.String("tab", sheet),
				zap.Error(err))
			continue
		}
		result.Tables = append(result.Tables, *table)
	}
	return result, nil
}

func (s *SheetAttacher) materializeWorkbookTab(ctx context.Context, conn *sql.Conn, catalog, sheet string, rows [][]string, used map[string]bool) (*AttachedTable, error) {
	header := rows[0]
	cols := make([]ColumnSchema, len(header))
	defs := make([]string, len(header))
	for i, name := range header {
		colName := SanitizeIdentifier(name)
		if colName == "" {
			colName = fmt.Sprintf("col_%d", i+1)
		}
		cols[i] = ColumnSchema{ColumnName: colName, ColumnType: "VARCHAR"}
		defs[i] = quoteIdent(colName) + " VARCHAR"
	}

	tmpName := "oxbow_tmp_" + SanitizeIdentifier(sheet)
	createSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s.%s (%s)",
		quoteIdent(catalog), quoteIdent(tmpName), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to create table for tab %s: %w", sheet, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s.%s VALUES (%s)",
		quoteIdent(catalog), quoteIdent(tmpName), placeholders)
	for _, row := range rows[1:] {
		args := make([]interface{}, len(header))
		for i := range header {
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := conn.ExecContext(ctx, insertSQL, args...); err != nil {
			return nil, fmt.Errorf("failed to load rows for tab %s: %w", sheet, err)
		}
	}

	semantic := SemanticTableName(cols, sheet, used)
	if err := renameIntoPlace(ctx, conn, catalog, tmpName, semantic); err != nil {
		return nil, err
	}

	return &AttachedTable{
		TableName:    sheet,
		SemanticName: semantic,
		Columns:      cols,
	}, nil
}

// renameIntoPlace drops any stale table occupying the final name, then
// renames the temp table to it.
func renameIntoPlace(ctx context.Context, conn *sql.Conn, catalog, tmpName, finalName string) error {
	if tmpName == finalName {
		return nil
	}
	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", quoteIdent(catalog), quoteIdent(finalName))
	if _, err := conn.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("failed to drop stale table %s: %w", finalName, err)
	}
	renameSQL := fmt.Sprintf("ALTER TABLE %s.%s RENAME TO %s",
		quoteIdent(catalog), quoteIdent(tmpName), quoteIdent(finalName))
	if _, err := conn.ExecContext(ctx, renameSQL); err != nil {
		return fmt.Errorf("failed to rename table %s to %s: %w", tmpName, finalName, err)
	}
	return nil
}

// ensureMemoryCatalog makes sure an in-memory catalog exists under the given
// name. The live catalog list is checked first; an attach failure after the
// existence check is tolerated as a benign race.
func ensureMemoryCatalog(ctx context.Context, conn *sql.Conn, catalog string, logger *zap.Logger) error {
	var found string
	err := conn.QueryRowContext(ctx,
		"SELECT database_name FROM duckdb_databases() WHERE database_name = ?", catalog).
		Scan(&found)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}

	attachSQL := fmt.Sprintf("ATTACH ':memory:' AS %s", quoteIdent(catalog))
	if _, err := conn.ExecContext(ctx, attachSQL); err != nil {
		if isAlreadyAttached(err) {
			logger.Debug("memory catalog attach race", zap.String("catalog", catalog))
			return nil
		}
		return fmt.Errorf("failed to create memory catalog %s: %w", catalog, err)
	}
	return nil
}
