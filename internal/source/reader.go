// Package source reads worksheets from an .xlsx workbook into typed,
// in-memory sheets.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is an open spreadsheet file.
type Workbook struct {
	path     string
	file     *excelize.File
	date1904 bool
	logger   *slog.Logger

	// styleID -> whether the style carries a date/time number format
	dateStyles map[int]bool
}

// Open opens the spreadsheet at path. Any failure to resolve or parse the
// file is reported as *SourceNotFoundError.
func Open(path string, logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &SourceNotFoundError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &SourceNotFoundError{Path: path, Err: errors.New("path is a directory")}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &SourceNotFoundError{Path: path, Err: err}
	}

	wb := &Workbook{
		path:       path,
		file:       f,
		logger:     logger,
		dateStyles: make(map[int]bool),
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}

	logger.Debug("opened workbook", slog.String("path", path), slog.Any("sheets", f.GetSheetList()))
	return wb, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// ReadSheet reads the named worksheet. The first non-empty row is the header;
// fully empty rows are skipped.
func (w *Workbook) ReadSheet(name string) (*Sheet, error) {
	// excelize matches sheet names case-insensitively; the source contract is exact.
	available := w.SheetNames()
	if !slices.Contains(available, name) {
		return nil, &SheetNotFoundError{Path: w.path, Sheet: name, Available: available}
	}

	raw, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	headerIdx := -1
	for i, row := range raw {
		if !isBlank(row) {
			headerIdx = i
			break
		}
	}

	sheet := &Sheet{Name: name}
	if headerIdx == -1 {
		w.logger.Warn("sheet is empty", slog.String("sheet", name))
		return sheet, nil
	}

	width := len(raw[headerIdx])
	for _, row := range raw[headerIdx+1:] {
		width = max(width, len(row))
	}
	names := headerNames(raw[headerIdx], width)

	// GetRows returns row i as spreadsheet row i+1.
	for i := headerIdx + 1; i < len(raw); i++ {
		if isBlank(raw[i]) {
			continue
		}
		values := make([]any, width)
		for c, cell := range raw[i] {
			v, err := w.cellValue(name, c+1, i+1, cell)
			if err != nil {
				return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
			}
			values[c] = v
		}
		sheet.Rows = append(sheet.Rows, values)
	}

	sheet.Columns = make([]Column, width)
	column := make([]any, len(sheet.Rows))
	for c := range width {
		for r, row := range sheet.Rows {
			column[r] = row[c]
		}
		kind := inferKind(column)
		sheet.Columns[c] = Column{Name: names[c], Kind: kind}
		for _, row := range sheet.Rows {
			row[c] = normalize(row[c], kind)
		}
	}

	w.logger.Debug("read sheet",
		slog.String("sheet", name),
		slog.Int("columns", width),
		slog.Int("rows", len(sheet.Rows)),
	)
	return sheet, nil
}

// ReadSheets opens path, reads every named sheet and closes the workbook.
// Nothing is returned unless all sheets were read.
func ReadSheets(path string, logger *slog.Logger, names ...string) (map[string]*Sheet, error) {
	wb, err := Open(path, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wb.Close() }()

	sheets := make(map[string]*Sheet, len(names))
	for _, name := range names {
		s, err := wb.ReadSheet(name)
		if err != nil {
			return nil, err
		}
		sheets[name] = s
	}
	return sheets, nil
}

// headerNames builds column names from the header row. Blank headers become
// "Unnamed: <index>" and repeated names get ".1", ".2" suffixes.
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	dupes := make(map[string]int)
	for i := range width {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for used[name] {
			dupes[base]++
			name = base + "." + strconv.Itoa(dupes[base])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
