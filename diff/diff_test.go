package diff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spine-tools/ambience2abm/abm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *abm.Dataset {
	return &abm.Dataset{
		BuildingPeriods: []abm.BuildingPeriod{
			{BuildingPeriod: "1970-1979", PeriodStart: 1970, PeriodEnd: 1979},
		},
		BuildingStocks: []abm.BuildingStock{{
			BuildingStock:     "AmBIENCe_2016_FI_residential",
			BuildingStockYear: 2016,
			ShapefilePath:     "raw_data/gisco/FI.shp",
			RasterWeightPath:  "res.tif",
		}},
		StockStatistics: []abm.StockStatistic{{
			BuildingStock:      "AmBIENCe_2016_FI_residential",
			BuildingType:       "Appartment blocks",
			BuildingPeriod:     "1970-1979",
			LocationID:         "FI",
			HeatSource:         "District",
			NumberOfBuildings:  750,
			AverageFloorAreaM2: 600,
		}},
		LocationIDs: []string{"FI"},
	}
}

func exportDataset(t *testing.T, d *abm.Dataset) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, d.ExportCSVs(dir))
	return dir
}

func writeTable(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestDiff_IdenticalExports(t *testing.T) {
	oldDir := exportDataset(t, sampleDataset())
	newDir := exportDataset(t, sampleDataset())

	assert.Nil(t, ChangedSince(newDir, oldDir))
}

func TestDiff_ChangedCell(t *testing.T) {
	oldDir := exportDataset(t, sampleDataset())
	changed := sampleDataset()
	changed.StockStatistics[0].NumberOfBuildings = 700
	newDir := exportDataset(t, changed)

	diffs := ChangedSince(newDir, oldDir)
	require.Len(t, diffs, 1)
	label := "building_stock_statistics.csv AmBIENCe_2016_FI_residential Appartment blocks 1970-1979 FI District"
	assert.Equal(t, diffs[label], []string{`Changed "number_of_buildings" from "750" to "700"`})
}

func TestDiff_ToleratesReprocessingNoise(t *testing.T) {
	oldDir := exportDataset(t, sampleDataset())
	jittered := sampleDataset()
	jittered.StockStatistics[0].AverageFloorAreaM2 = 600.0000000001
	newDir := exportDataset(t, jittered)

	assert.Nil(t, ChangedSince(newDir, oldDir))
}

func TestDiff_AddedAndMissingRows(t *testing.T) {
	oldDir := exportDataset(t, sampleDataset())
	moved := sampleDataset()
	moved.LocationIDs = []string{"DE"}
	newDir := exportDataset(t, moved)

	diffs := ChangedSince(newDir, oldDir)
	require.Len(t, diffs, 2)
	assert.Equal(t, diffs["location_id.csv DE"], []string{"ADDED"})
	assert.Equal(t, diffs["location_id.csv FI"], []string{"MISSING"})
}

func TestDiff_AddedAndMissingFiles(t *testing.T) {
	exported := exportDataset(t, sampleDataset())
	empty := t.TempDir()

	diffs := ChangedSince(empty, exported)
	require.Len(t, diffs, len(abm.ExportFiles))
	assert.Equal(t, diffs[abm.FileBuildingPeriod], []string{"MISSING"})

	diffs = ChangedSince(exported, empty)
	require.Len(t, diffs, len(abm.ExportFiles))
	assert.Equal(t, diffs[abm.FileLocationID], []string{"ADDED"})
}

func TestDiff_HeaderChange(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	writeTable(t, oldDir, abm.FileLocationID, "location_id", "FI")
	writeTable(t, newDir, abm.FileLocationID, "location", "FI")

	diffs := ChangedSince(newDir, oldDir)
	require.Len(t, diffs, 1)
	assert.Equal(t, diffs[abm.FileLocationID], []string{`Header changed from "location_id" to "location"`})
}
