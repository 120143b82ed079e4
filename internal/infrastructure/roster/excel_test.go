package roster

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoadSymbolRosterSkipsBlankRows(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Document Symbol", "Entity"},
		{"A/79/287", "DOALOS"},
		{"", ""},
		{"A/79/62", "DPPA"},
		{"A/79/999", ""},
	})

	entries, err := NewLoader().LoadSymbolRoster(path)
	if err != nil {
		t.Fatalf("LoadSymbolRoster() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Symbol != "A/79/287" || entries[0].Entity != "DOALOS" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Entity != "DPPA" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestLoadTitleRosterLocatesColumnsByHeader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Notes", "Report Title", "Office"},
		{"x", "Oceans and the law of the sea", "DOALOS"},
		{"y", "  Children and armed conflict  ", "OSRSG-CAAC"},
	})

	entries, err := NewLoader().LoadTitleRoster(path)
	if err != nil {
		t.Fatalf("LoadTitleRoster() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Title != "Children and armed conflict" {
		t.Fatalf("title should be trimmed, got %q", entries[1].Title)
	}
}

func TestLoadSymbolRosterRejectsUnknownHeader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Col A", "Col B"},
		{"A/79/287", "DOALOS"},
	})

	if _, err := NewLoader().LoadSymbolRoster(path); err == nil {
		t.Fatalf("expected header error")
	}
}
