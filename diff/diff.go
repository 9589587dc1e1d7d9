/*
Functions which compare two exported data directories and return a map-of-slice-of-strings structure which describes how they differ.
*/

package diff

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/table"
)

// Numeric cells within this relative tolerance count as equal.
// Reprocessing the same data on another platform jitters the last bits
// of the weighted sums.
const floatTolerance = 1e-9

// keyColumns tells how many leading columns identify a row of each
// exported table.
var keyColumns = map[string]int{
	abm.FileBuildingPeriod:             1,
	abm.FileBuildingStock:              1,
	abm.FileStructureType:              1,
	abm.FileBuildingStockStatistics:    5,
	abm.FileStructureStatistics:        4,
	abm.FileVentilationAndFenestration: 3,
	abm.FileLocationID:                 1,
}

// ChangedSince produces a report of how the exported tables have changed
// between two export directories
func ChangedSince(newDir, oldDir string) (diffs map[string][]string) {
	diffs = make(map[string][]string)
	for _, name := range abm.ExportFiles {
		newTable, newErr := table.ReadFile(filepath.Join(newDir, name), "", nil)
		oldTable, oldErr := table.ReadFile(filepath.Join(oldDir, name), "", nil)
		if newErr != nil && oldErr != nil {
			continue
		}
		if newErr != nil {
			diffs[name] = []string{"MISSING"}
			continue
		}
		if oldErr != nil {
			diffs[name] = []string{"ADDED"}
			continue
		}
		compareTables(diffs, name, newTable, oldTable)
	}
	if len(diffs) == 0 {
		diffs = nil
	}
	return
}

// compareTables adds one diff entry per added, removed or changed row of
// a single exported table.
func compareTables(diffs map[string][]string, name string, newTable, oldTable *table.Table) {
	if !equalHeaders(newTable.Header, oldTable.Header) {
		diffs[name] = []string{fmt.Sprintf("Header changed from %q to %q",
			strings.Join(oldTable.Header, ","), strings.Join(newTable.Header, ","))}
		return
	}

	newRows := rowsByKey(newTable, keyColumns[name])
	oldRows := rowsByKey(oldTable, keyColumns[name])
	keys := map[string]bool{}
	for k := range newRows {
		keys[k] = true
	}
	for k := range oldRows {
		keys[k] = true
	}
	var kk []string
	for k := range keys {
		kk = append(kk, k)
	}
	sort.Strings(kk)

	for _, k := range kk {
		label := fmt.Sprintf("%s %s", name, k)
		row, ok := newRows[k]
		prow, pok := oldRows[k]
		if !pok {
			diffs[label] = []string{"ADDED"}
			continue
		}
		if !ok {
			diffs[label] = []string{"MISSING"}
			continue
		}
		if dd := changedSince(newTable.Header, keyColumns[name], row, prow); dd != nil {
			diffs[label] = dd
		}
	}
}

// changedSince returns a set of messages that describe how a row has
// changed from its previous version.
func changedSince(header []string, skip int, row, prow []string) (diffs []string) {
	for i := skip; i < len(header) && i < len(row) && i < len(prow); i++ {
		if v, pv := row[i], prow[i]; !equalCells(v, pv) {
			diffs = append(diffs, fmt.Sprintf("Changed %q from %q to %q", header[i], pv, v))
		}
	}
	return
}

// rowsByKey indexes the rows of a table by their joined leading key
// columns.
func rowsByKey(t *table.Table, columns int) map[string][]string {
	rows := make(map[string][]string)
	for _, row := range t.Rows {
		n := columns
		if n > len(row) {
			n = len(row)
		}
		rows[strings.Join(row[:n], " ")] = row
	}
	return rows
}

func equalHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// equalCells compares two cells, numerically when both parse as numbers
// so that reprocessing noise in the last decimals does not count as a
// change.
func equalCells(a, b string) bool {
	if a == b {
		return true
	}
	av, aerr := strconv.ParseFloat(a, 64)
	bv, berr := strconv.ParseFloat(b, 64)
	if aerr != nil || berr != nil {
		return false
	}
	if av == bv {
		return true
	}
	return math.Abs(av-bv) <= floatTolerance*math.Max(math.Abs(av), math.Abs(bv))
}
