package abm

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spine-tools/ambience2abm/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readExported(t *testing.T, dir, name string) *table.Table {
	t.Helper()
	exported, err := table.ReadFile(filepath.Join(dir, name), "", nil)
	require.NoError(t, err)
	return exported
}

func TestAbm_FormatFloat(t *testing.T) {
	assert.Equal(t, formatFloat(math.NaN()), "")
	assert.Equal(t, formatFloat(500), "500")
	assert.Equal(t, formatFloat(0.75), "0.75")
	assert.Equal(t, formatFloat(0), "0")
}

func TestAbm_ExportCSVs(t *testing.T) {
	derived := Process(syntheticDataset())
	dir := t.TempDir()
	require.NoError(t, derived.ExportCSVs(dir))

	for _, name := range ExportFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	periods := readExported(t, dir, FileBuildingPeriod)
	assert.Equal(t, periods.Header, []string{"building_period", "period_start", "period_end"})
	require.Len(t, periods.Rows, 1)
	assert.Equal(t, periods.Rows[0], []string{"1990-1999", "1990", "1999"})

	statistics := readExported(t, dir, FileBuildingStockStatistics)
	assert.Equal(t, statistics.Header, []string{
		"building_stock", "building_type", "building_period", "location_id", "heat_source",
		"number_of_buildings", "average_gross_floor_area_m2_per_building",
	})
	require.Len(t, statistics.Rows, 3)
	assert.Equal(t, statistics.Cell(0, "heat_source"), "District")
	assert.Equal(t, statistics.Cell(0, "number_of_buildings"), "500")
	assert.Equal(t, statistics.Cell(0, "average_gross_floor_area_m2_per_building"), "600")

	structures := readExported(t, dir, FileStructureStatistics)
	require.Len(t, structures.Rows, 3)
	assert.Equal(t, structures.Cell(0, "structure_type"), "base_floor")
	assert.Equal(t, structures.Cell(0, "external_U_value_to_ambient_air_W_m2K"), "0")
	total := parseCell(t, structures.Cell(0, "total_U_value_W_m2K"))
	assert.InEpsilon(t, total, 0.18604255043207707, 1e-9)
	mass := parseCell(t, structures.Cell(0, "effective_thermal_mass_J_m2K"))
	assert.InEpsilon(t, mass, 379047.3931260007, 1e-9)
}

func TestAbm_ExportFixture(t *testing.T) {
	derived := Process(loadFixtureDataset(t))
	dir := t.TempDir()
	require.NoError(t, derived.ExportCSVs(dir))

	stocks := readExported(t, dir, FileBuildingStock)
	require.Len(t, stocks.Rows, 2)
	assert.Equal(t, stocks.Cell(0, "building_stock"), "AmBIENCe_2016_DE_non-residential")
	assert.Equal(t, stocks.Cell(0, "building_stock_year"), "2016")
	assert.Equal(t, stocks.Cell(0, "shapefile_path"), "raw_data/gisco/DE.shp")
	assert.Equal(t, stocks.Cell(1, "building_stock"), "AmBIENCe_2016_FI_residential")

	locations := readExported(t, dir, FileLocationID)
	assert.Equal(t, locations.Header, []string{"location_id"})
	require.Len(t, locations.Rows, 2)
	assert.Equal(t, locations.Rows[0][0], "DE")
	assert.Equal(t, locations.Rows[1][0], "FI")

	types := readExported(t, dir, FileStructureType)
	assert.Equal(t, types.Header, []string{
		"structure_type", "interior_resistance_m2K_W", "exterior_resistance_m2K_W",
		"linear_thermal_bridge_W_mK", "is_internal", "notes",
	})
	require.Len(t, types.Rows, 5)
	assert.Equal(t, types.Cell(0, "structure_type"), "base_floor")
	assert.Equal(t, types.Cell(0, "is_internal"), "false")
	assert.Equal(t, types.Cell(3, "structure_type"), "roof")
	assert.Equal(t, types.Cell(4, "structure_type"), "separating_floor")
	assert.Equal(t, types.Cell(4, "is_internal"), "true")
}

func TestAbm_WriteDataPackage(t *testing.T) {
	derived := Process(loadFixtureDataset(t))
	dir := t.TempDir()
	require.NoError(t, derived.ExportCSVs(dir))
	require.NoError(t, derived.WriteDataPackage(dir))

	raw, err := os.ReadFile(filepath.Join(dir, DataPackageFileName))
	require.NoError(t, err)

	var descriptor struct {
		Name     string `json:"name"`
		Profile  string `json:"profile"`
		Version  string `json:"version"`
		Created  string `json:"created"`
		Licenses []struct {
			Name string `json:"name"`
		} `json:"licenses"`
		Resources []struct {
			Name    string `json:"name"`
			Path    string `json:"path"`
			Profile string `json:"profile"`
			Format  string `json:"format"`
			Schema  struct {
				Fields []struct {
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"fields"`
			} `json:"schema"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(raw, &descriptor))

	assert.Equal(t, descriptor.Name, "ambience2abm_data")
	assert.Equal(t, descriptor.Profile, "data-package")
	assert.NotEmpty(t, descriptor.Version)
	_, err = time.Parse(time.RFC3339, descriptor.Created)
	assert.NoError(t, err)
	require.NotEmpty(t, descriptor.Licenses)
	assert.Equal(t, descriptor.Licenses[0].Name, "CC-BY-4.0")

	require.Len(t, descriptor.Resources, len(ExportFiles))
	first := descriptor.Resources[0]
	assert.Equal(t, first.Name, "building_period")
	assert.Equal(t, first.Path, FileBuildingPeriod)
	assert.Equal(t, first.Profile, "tabular-data-resource")
	assert.Equal(t, first.Format, "csv")
	require.Len(t, first.Schema.Fields, 3)
	assert.Equal(t, first.Schema.Fields[0].Name, "building_period")
	assert.Equal(t, first.Schema.Fields[0].Type, "string")
	assert.Equal(t, first.Schema.Fields[1].Type, "integer")

	statistics := descriptor.Resources[3]
	assert.Equal(t, statistics.Name, "building_stock_statistics")
	require.Len(t, statistics.Schema.Fields, 7)
	assert.Equal(t, statistics.Schema.Fields[5].Name, "number_of_buildings")
	assert.Equal(t, statistics.Schema.Fields[5].Type, "number")
}
