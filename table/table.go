// Package table reads rectangular data tables with a header row from
// the file formats the pipeline deals with: csv files and xlsx
// workbooks. Both come back as the same in-memory form so the callers
// never care which one the data arrived in.
package table

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Table is a rectangular block of cells under a single header row.
// Rows are padded to the header width so indexing by column is always
// in range.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string

	columns map[string]int
	lines   []int
}

// ReadFile loads the table at path, dispatching on the file extension.
// For workbooks, sheet selects the sheet to read, the first one when
// empty. skipRows lists 0-based row indices dropped before the first
// remaining row is taken as the header.
func ReadFile(path string, sheet string, skipRows []int) (*Table, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCsvRows(path)
	case ".xlsx":
		rows, err = readXlsxRows(path, sheet)
	default:
		return nil, fmt.Errorf("Unsupported table format `%s`", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	skip := make(map[int]bool)
	for _, idx := range skipRows {
		skip[idx] = true
	}
	var kept [][]string
	var keptIndices []int
	for idx, row := range rows {
		if skip[idx] {
			continue
		}
		kept = append(kept, row)
		keptIndices = append(keptIndices, idx)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("Table `%s` has no header row", path)
	}

	table := &Table{
		Path:    path,
		Header:  trimRight(kept[0]),
		columns: make(map[string]int),
	}
	for idx, name := range table.Header {
		// First occurrence wins for duplicated header names
		if _, ok := table.columns[name]; !ok {
			table.columns[name] = idx
		}
	}
	for idx, row := range kept[1:] {
		if isBlank(row) {
			continue
		}
		table.Rows = append(table.Rows, pad(row, len(table.Header)))
		table.lines = append(table.lines, keptIndices[idx+1]+1)
	}
	return table, nil
}

func readCsvRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "reading `%s`", path)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}

func readXlsxRows(path string, sheet string) ([][]string, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening workbook `%s`", path)
	}
	defer workbook.Close()

	if sheet == "" {
		sheet = workbook.GetSheetName(0)
	}
	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet `%s` of `%s`", sheet, path)
	}
	return rows, nil
}

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, bool) {
	idx, ok := t.columns[name]
	return idx, ok
}

// Cell returns the trimmed cell at the given row for the named column,
// empty when the column does not exist.
func (t *Table) Cell(row int, name string) string {
	idx, ok := t.columns[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][idx])
}

// HasColumns checks that every named column is present and returns the
// missing ones.
func (t *Table) HasColumns(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// ExtraColumns returns the header names not in the given known set.
func (t *Table) ExtraColumns(known ...string) []string {
	knownSet := make(map[string]bool)
	for _, name := range known {
		knownSet[name] = true
	}
	var extra []string
	for _, name := range t.Header {
		if !knownSet[name] {
			extra = append(extra, name)
		}
	}
	return extra
}

// Line returns the 1-based file line of a data row, accounting for
// skipped and blank rows. Only exact for csv files without embedded
// newlines, which holds for all the tables the pipeline reads.
func (t *Table) Line(row int) int {
	if row < 0 || row >= len(t.lines) {
		return 0
	}
	return t.lines[row]
}

// ParseFloat parses a numeric cell. Empty cells parse as NaN, which
// stands for a missing value throughout the pipeline.
func ParseFloat(cell string) (float64, error) {
	if cell == "" {
		return math.NaN(), nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("`%s` is not a number", cell)
	}
	return value, nil
}

// ParseBool parses a boolean cell, accepting the spellings found in the
// assumption tables.
func ParseBool(cell string) (bool, error) {
	switch strings.ToLower(cell) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("`%s` is not a boolean", cell)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row[:width]
}

func trimRight(header []string) []string {
	end := len(header)
	for end > 0 && strings.TrimSpace(header[end-1]) == "" {
		end--
	}
	trimmed := make([]string, end)
	for idx := 0; idx < end; idx++ {
		trimmed[idx] = strings.TrimSpace(header[idx])
	}
	return trimmed
}
