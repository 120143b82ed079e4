package roster

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// Loader reads the externally maintained attribution rosters. Both arrive
// as spreadsheets with a header row; column positions vary between
// editions, so columns are located by header name.
type Loader struct{}

func NewLoader() *Loader { return &Loader{} }

// LoadSymbolRoster reads a symbol-to-entity mapping. Rows with an empty
// symbol or entity are skipped, not errors; the rosters carry trailing
// notes and blank separators.
func (l *Loader) LoadSymbolRoster(path string) ([]domain.RosterSymbolEntry, error) {
	rows, err := readFirstSheet(path)
	if err != nil {
		return nil, err
	}
	symbolCol, entityCol, err := locateColumns(rows, []string{"symbol", "document symbol"}, []string{"entity", "office", "department", "author entity"})
	if err != nil {
		return nil, fmt.Errorf("symbol roster %s: %w", path, err)
	}

	var entries []domain.RosterSymbolEntry
	for _, row := range rows[1:] {
		symbol := cell(row, symbolCol)
		entity := cell(row, entityCol)
		if symbol == "" || entity == "" {
			continue
		}
		entries = append(entries, domain.RosterSymbolEntry{
			Symbol: symbol,
			Entity: domain.EntityCode(entity),
		})
	}
	return entries, nil
}

// LoadTitleRoster reads a report-title-to-entity roster.
func (l *Loader) LoadTitleRoster(path string) ([]domain.RosterTitleEntry, error) {
	rows, err := readFirstSheet(path)
	if err != nil {
		return nil, err
	}
	titleCol, entityCol, err := locateColumns(rows, []string{"title", "report title", "report"}, []string{"entity", "office", "department", "author entity"})
	if err != nil {
		return nil, fmt.Errorf("title roster %s: %w", path, err)
	}

	var entries []domain.RosterTitleEntry
	for _, row := range rows[1:] {
		title := cell(row, titleCol)
		entity := cell(row, entityCol)
		if title == "" || entity == "" {
			continue
		}
		entries = append(entries, domain.RosterTitleEntry{
			Title:  title,
			Entity: domain.EntityCode(entity),
		})
	}
	return entries, nil
}

func readFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read roster sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("roster %s has no data rows", path)
	}
	return rows, nil
}

func locateColumns(rows [][]string, keyNames, entityNames []string) (int, int, error) {
	header := rows[0]
	keyCol := findColumn(header, keyNames)
	entityCol := findColumn(header, entityNames)
	if keyCol < 0 || entityCol < 0 {
		return 0, 0, fmt.Errorf("header %v lacks expected columns", header)
	}
	return keyCol, entityCol, nil
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		normalized := strings.ToLower(strings.TrimSpace(h))
		for _, name := range names {
			if normalized == name {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
