package cmd

import (
	"io/ioutil"
	"math"
	"os"
	"testing"

	"github.com/daedaleanai/cobra"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFixtureAssumptions reads the assumption tables shipped with this
// repository.
func loadFixtureAssumptions(t *testing.T) *assumptions.Set {
	t.Helper()
	sources.ClearAllSources()
	sources.RegisterSource("base", ".")
	cfg, err := config.ParseConfig(".")
	require.NoError(t, err)
	set, err := assumptions.Load("base", cfg.AssumptionsPath, &cfg)
	require.NoError(t, err)
	require.Empty(t, set.Issues)
	return set
}

func captureOutput(print func()) string {
	rescueStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	print()
	w.Close()
	buf, _ := ioutil.ReadAll(r)
	os.Stdout = rescueStdout
	return string(buf)
}

func TestListAssumptionRows(t *testing.T) {
	set := loadFixtureAssumptions(t)

	header, rows, err := assumptionRows(set, assumptions.TableStructureTypes)
	require.NoError(t, err)
	assert.Equal(t, header[0], "structure_type")
	require.Len(t, rows, 5)
	assert.Equal(t, rows[0], []string{"base_floor", "0.17", "0.04", "0.1", "false", "BASE FLOOR",
		"Ground coupling handled via a simplified slab-on-grade model instead of the exterior surface resistance."})
	assert.Equal(t, rows[2][0], "partition_wall")
	assert.Equal(t, rows[2][4], "true")

	header, rows, err = assumptionRows(set, assumptions.TableFenestration)
	require.NoError(t, err)
	assert.Equal(t, header, []string{"glazing_type", "coated", "normal_solar_energy_transmittance",
		"frame_area_fraction", "notes"})
	require.Len(t, rows, 6)
	// Ordered by glazing type, uncoated first
	assert.Equal(t, rows[0], []string{"Double", "false", "0.75", "0.3", ""})

	_, rows, err = assumptionRows(set, assumptions.TableVentilation)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rows[0][0], "0")

	_, _, err = assumptionRows(set, "phonebook")
	assert.Error(t, err)
}

func TestListRowLabel(t *testing.T) {
	assert.Equal(t, rowLabel(assumptions.TableStructureTypes), "Structure Type")
	assert.Equal(t, rowLabel(assumptions.TableBuildingTypeMappings), "Building Type")
	assert.Equal(t, rowLabel(assumptions.TableShapefileMappings), "Shapefile")
	assert.Equal(t, rowLabel(assumptions.TableFenestration), "Fenestration")
	assert.Equal(t, rowLabel(assumptions.TableVentilation), "Ventilation")
}

func TestListFormatNumber(t *testing.T) {
	assert.Equal(t, formatNumber(math.NaN()), "")
	assert.Equal(t, formatNumber(0), "0")
	assert.Equal(t, formatNumber(0.52323), "0.52323")
	assert.Equal(t, formatNumber(600), "600")
}

func TestListPrintCsv(t *testing.T) {
	output := captureOutput(func() {
		printCsv([]string{"country", "shapefile_path", "notes"}, [][]string{
			{"FI", "raw_data/gisco/FI.shp", ""},
		})
	})
	assert.Equal(t, output, "Country,Shapefile Path,Notes\nFI,raw_data/gisco/FI.shp,\n")
}

func TestListPrintConcise(t *testing.T) {
	output := captureOutput(func() {
		printConcise("Shapefile", [][]string{
			{"FI", "raw_data/gisco/FI.shp", ""},
			{"ZZ", "", ""},
		})
	})
	assert.Equal(t, output, "Shapefile FI\nraw_data/gisco/FI.shp…\n\nShapefile ZZ\n\n")
}

func TestListSegments(t *testing.T) {
	segment := &stock.Segment{
		Code:                      "FI.AB.01",
		BuildingType:              "Appartment blocks",
		BuildingPeriod:            "1970-1979",
		LocationID:                "FI",
		BuildingStock:             "AmBIENCe_2016_FI_residential",
		NumberOfBuildings:         1000,
		AverageFloorAreaM2:        600,
		MaterialCombinationWeight: 0.6,
	}

	output := captureOutput(func() { printSegmentsConcise([]*stock.Segment{segment}) })
	assert.Equal(t, output, "Segment FI.AB.01 Appartment blocks 1970-1979 FI\nAmBIENCe_2016_FI_residential…\n\n")

	output = captureOutput(func() { printSegmentsCsv([]*stock.Segment{segment}) })
	lines := splitLines(output)
	require.Len(t, lines, 2)
	assert.Equal(t, lines[1], "FI.AB.01,Appartment blocks,1970-1979,FI,AmBIENCe_2016_FI_residential,1000,600,0.6,")
}

func TestListCompleteTableName(t *testing.T) {
	completions, directive := completeTableName(listCmd, nil, "")
	assert.Equal(t, completions, []string{tableSegments, assumptions.TableBuildingTypeMappings,
		assumptions.TableFenestration, assumptions.TableShapefileMappings,
		assumptions.TableStructureTypes, assumptions.TableVentilation})
	assert.Equal(t, directive, cobra.ShellCompDirectiveNoFileComp)

	completions, _ = completeTableName(listCmd, nil, "s")
	assert.Equal(t, completions, []string{tableSegments, assumptions.TableShapefileMappings,
		assumptions.TableStructureTypes})

	completions, _ = completeTableName(listCmd, []string{tableSegments}, "")
	assert.Empty(t, completions)
}

func TestBuildFilter(t *testing.T) {
	filter, err := buildFilter("", "", "", "", "")
	require.NoError(t, err)
	assert.True(t, filter.IsEmpty())

	filter, err = buildFilter("^FI", "FI|DE", "Offices", "^19", "District")
	require.NoError(t, err)
	assert.False(t, filter.IsEmpty())
	assert.True(t, filter.CodeRegexp.MatchString("FI.AB.01"))
	assert.True(t, filter.CountryRegexp.MatchString("DE"))
	assert.False(t, filter.TypeRegexp.MatchString("Appartment blocks"))
	assert.True(t, filter.PeriodRegexp.MatchString("1970-1979"))
	assert.Equal(t, filter.HeatSourceOnly, "District")

	_, err = buildFilter("(", "", "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code filter")
}
