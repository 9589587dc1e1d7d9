package stock

import (
	"math"
	"regexp"
	"testing"

	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTestDataset reads the named workbook fixture pair against the
// assumption tables shipped with this repository.
func loadTestDataset(t *testing.T, fixture string) *Dataset {
	t.Helper()
	sources.ClearAllSources()
	sources.RegisterSource("base", "..")
	cfg, err := config.ParseConfig("..")
	require.NoError(t, err)
	cfg.BuildingProperties = config.Workbook{Path: "stock/testdata/" + fixture + "/building_properties.csv"}
	cfg.HeatingSystems = config.Workbook{Path: "stock/testdata/" + fixture + "/heating_systems.csv", SkipRows: []int{0}}
	asm, err := assumptions.Load("base", cfg.AssumptionsPath, &cfg)
	require.NoError(t, err)
	require.Empty(t, asm.Issues)
	dataset, err := Load("base", &cfg, asm)
	require.NoError(t, err)
	return dataset
}

func segmentByCode(t *testing.T, dataset *Dataset, code string) *Segment {
	t.Helper()
	for _, segment := range dataset.Segments {
		if segment.Code == code {
			return segment
		}
	}
	t.Fatalf("no segment with code %s", code)
	return nil
}

func stockIssueCounts(dataset *Dataset) map[diagnostics.IssueType]int {
	counts := make(map[diagnostics.IssueType]int)
	for _, issue := range dataset.Issues {
		counts[issue.Type]++
	}
	return counts
}

func TestStock_LoadValid(t *testing.T) {
	dataset := loadTestDataset(t, "valid")

	assert.Empty(t, dataset.Issues)
	require.Len(t, dataset.Segments, 3)

	segment := segmentByCode(t, dataset, "FI.AB.01")
	assert.Equal(t, segment.BuildingType, "Appartment blocks")
	assert.Equal(t, segment.LocationID, "FI")
	assert.Equal(t, segment.PeriodStart, 1970)
	assert.Equal(t, segment.PeriodEnd, 1979)
	assert.Equal(t, segment.BuildingPeriod, "1970-1979")
	assert.Equal(t, segment.NumberOfBuildings, 1000.0)
	assert.Equal(t, segment.AverageFloorAreaM2, 600.0)
	assert.Equal(t, segment.BuildingStockYear, 2016)
	assert.Equal(t, segment.BuildingStock, "AmBIENCe_2016_FI_residential")
	assert.Equal(t, segment.Category, assumptions.CategoryResidential)
	assert.Equal(t, segment.ShapefilePath, "raw_data/gisco/FI.shp")
	assert.Contains(t, segment.RasterWeightPath, "gfa_res_curr_density")

	// Prevalencies 0.6 and 0.2 normalized over their 0.8 total, the
	// unused third slot stays NaN
	assert.InDelta(t, segment.HeatingSystems[0].Prevalency, 0.75, 1e-9)
	assert.InDelta(t, segment.HeatingSystems[1].Prevalency, 0.25, 1e-9)
	assert.True(t, math.IsNaN(segment.HeatingSystems[2].Prevalency))
	assert.Equal(t, segment.HeatingSystems[0].HeatSource, "Natural gas")
	// District heating comes from the dimensions column, not the fuel
	assert.Equal(t, segment.HeatingSystems[1].FuelUsed, "Biomass")
	assert.Equal(t, segment.HeatingSystems[1].HeatSource, "District")
	assert.Equal(t, segment.HeatingSystems[2].HeatSource, "")

	assert.Equal(t, segment.Window.GlazingType, "Double")
	assert.False(t, segment.Window.Coated)
	assert.Equal(t, segment.Window.UValue, 2.8)

	require.Contains(t, segment.Envelopes, "BASE FLOOR")
	baseFloor := segment.Envelopes["BASE FLOOR"]
	assert.Equal(t, baseFloor.MaterialThickness, 0.2)
	assert.Equal(t, baseFloor.MaterialDensity, 2000.0)
	assert.Equal(t, baseFloor.InsulationConductivity, 0.04)
	assert.Equal(t, baseFloor.DesignUValue, 0.3)
	require.Contains(t, segment.Envelopes, "ROOF")
	assert.Equal(t, segment.Envelopes["ROOF"].DesignUValue, 0.15)

	offices := segmentByCode(t, dataset, "DE.OF.01")
	assert.Equal(t, offices.BuildingStock, "AmBIENCe_2016_DE_non-residential")
	assert.Equal(t, offices.MaterialCombinationWeight, 1.0)
}

func TestStock_MaterialCombinationWeights(t *testing.T) {
	dataset := loadTestDataset(t, "valid")

	assert.Equal(t, segmentByCode(t, dataset, "FI.AB.01").MaterialCombinationWeight, 0.6)
	assert.Equal(t, segmentByCode(t, dataset, "FI.AB.02").MaterialCombinationWeight, 0.4)

	totals := make(map[GroupKey]float64)
	for _, segment := range dataset.Segments {
		totals[segment.Group()] += segment.MaterialCombinationWeight
	}
	for group, total := range totals {
		assert.InDelta(t, total, 1.0, 1e-9, "group %v", group)
	}
}

func TestStock_Extrapolate(t *testing.T) {
	dataset := loadTestDataset(t, "valid")
	dataset.Config.Extrapolations = []config.Extrapolation{
		{From: "FI", To: "NO", ScalingFactor: 0.5, Tag: "extrapolated"},
		{From: "DE", To: "QQ", ScalingFactor: 2.0, Tag: "extrapolated"},
	}

	require.NoError(t, dataset.Extrapolate())
	require.Len(t, dataset.Segments, 6)

	clone := segmentByCode(t, dataset, "NO.AB.01")
	assert.Equal(t, clone.LocationID, "NO")
	assert.Equal(t, clone.NumberOfBuildings, 500.0)
	assert.Equal(t, clone.BuildingStock, "extrapolated_2016_NO_residential")
	assert.Equal(t, clone.ShapefilePath, "raw_data/gisco/NO.shp")
	assert.Contains(t, clone.ShapefileNotes, "Extrapolation target")
	assert.Equal(t, clone.ExtrapolatedFrom, "FI")
	assert.Equal(t, clone.BuildingPeriod, "1970-1979")
	assert.Equal(t, clone.MaterialCombinationWeight, 0.6)

	// The originals stay untouched
	original := segmentByCode(t, dataset, "FI.AB.01")
	assert.Equal(t, original.NumberOfBuildings, 1000.0)
	assert.Equal(t, original.ExtrapolatedFrom, "")

	// QQ has no shapefile mapping
	counts := stockIssueCounts(dataset)
	assert.Equal(t, counts[diagnostics.IssueTypeUnknownCountry], 1)
	unknown := segmentByCode(t, dataset, "QQ.OF.01")
	assert.Equal(t, unknown.ShapefilePath, "")
	assert.Equal(t, unknown.NumberOfBuildings, 400.0)
	assert.Equal(t, unknown.BuildingStock, "extrapolated_2016_QQ_non-residential")
}

func TestStock_ExtrapolateUnknownSource(t *testing.T) {
	dataset := loadTestDataset(t, "valid")
	dataset.Config.Extrapolations = []config.Extrapolation{
		{From: "SE", To: "NO", ScalingFactor: 0.5, Tag: "extrapolated"},
	}
	assert.Error(t, dataset.Extrapolate())
}

func TestStock_BrokenData(t *testing.T) {
	dataset := loadTestDataset(t, "broken")

	// The segment without a code and the one without heating system
	// data are dropped, the rest survive with issues attached
	assert.Len(t, dataset.Segments, 7)

	counts := stockIssueCounts(dataset)
	assert.Equal(t, counts[diagnostics.IssueTypePeriodAnomaly], 1)
	// One row with zero prevalencies, one whose only prevalency cell is
	// not a number
	assert.Equal(t, counts[diagnostics.IssueTypePrevalencyAnomaly], 2)
	assert.Equal(t, counts[diagnostics.IssueTypeDuplicateKey], 1)
	// A number-of-buildings cell, a coated flag, a prevalency cell and
	// a missing reference building code
	assert.Equal(t, counts[diagnostics.IssueTypeBadCell], 4)
	assert.Equal(t, counts[diagnostics.IssueTypeUnknownCountry], 1)
	assert.Equal(t, counts[diagnostics.IssueTypeUnknownBuildingType], 1)
	assert.Equal(t, counts[diagnostics.IssueTypeUnmatchedSegment], 1)
	// A group with zero total floor area and a segment with no floor
	// area at all
	assert.Equal(t, counts[diagnostics.IssueTypeWeightAnomaly], 2)

	// Backwards construction years still form a period label
	segment := segmentByCode(t, dataset, "AT.BAD.YEARS")
	assert.Equal(t, segment.BuildingPeriod, "1990-1980")

	// Zero prevalencies end up NaN so the statistics skip them
	segment = segmentByCode(t, dataset, "AT.BAD.PREV")
	for i := range segment.HeatingSystems {
		assert.True(t, math.IsNaN(segment.HeatingSystems[i].Prevalency))
	}

	segment = segmentByCode(t, dataset, "AT.ZERO.01")
	assert.True(t, math.IsNaN(segment.MaterialCombinationWeight))
}

func TestStock_IssueLocations(t *testing.T) {
	dataset := loadTestDataset(t, "broken")
	require.NotEmpty(t, dataset.Issues)
	for _, issue := range dataset.Issues {
		assert.Equal(t, issue.Source, sources.SourceName("base"))
		assert.NotEmpty(t, issue.Path)
		assert.Greater(t, issue.Line, 0)
		assert.NotNil(t, issue.Error)
	}
}

func TestStock_Filters(t *testing.T) {
	dataset := loadTestDataset(t, "valid")

	filtered := dataset.FilteredSegments(&SegmentFilter{CountryRegexp: regexp.MustCompile("^FI$")})
	assert.Len(t, filtered, 2)

	filtered = dataset.FilteredSegments(&SegmentFilter{HeatSourceOnly: "District"})
	require.Len(t, filtered, 1)
	assert.Equal(t, filtered[0].Code, "FI.AB.01")

	filtered = dataset.FilteredSegments(&SegmentFilter{
		TypeRegexp:   regexp.MustCompile("Offices"),
		PeriodRegexp: regexp.MustCompile("^1980"),
	})
	require.Len(t, filtered, 1)
	assert.Equal(t, filtered[0].Code, "DE.OF.01")

	all := dataset.FilteredSegments(nil)
	require.Len(t, all, 3)
	// Ordered by reference building code
	assert.Equal(t, all[0].Code, "DE.OF.01")

	var empty SegmentFilter
	assert.True(t, empty.IsEmpty())
	assert.False(t, SegmentFilter{HeatSourceOnly: "District"}.IsEmpty())
}

func TestStock_MissingWorkbook(t *testing.T) {
	sources.ClearAllSources()
	sources.RegisterSource("base", "..")
	cfg, err := config.ParseConfig("..")
	require.NoError(t, err)
	asm, err := assumptions.Load("base", cfg.AssumptionsPath, &cfg)
	require.NoError(t, err)

	cfg.BuildingProperties = config.Workbook{Path: "stock/testdata/no_such_file.csv"}
	cfg.HeatingSystems = config.Workbook{Path: "stock/testdata/valid/heating_systems.csv", SkipRows: []int{0}}
	_, err = Load("base", &cfg, asm)
	assert.Error(t, err)
}
