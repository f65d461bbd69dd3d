package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook saves an .xlsx under t.TempDir() whose sheets are filled row
// by row from A1 and returns its path. A nil row leaves that spreadsheet row
// empty.
func WriteWorkbook(t testing.TB, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("failed to add sheet %q: %v", name, err)
		}
		for i, row := range rows {
			if row == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("bad cell coordinates: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("failed to write row %d of %q: %v", i+1, name, err)
			}
		}
	}
	if _, ok := sheets["Sheet1"]; !ok {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("failed to delete default sheet: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "realestate.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}
