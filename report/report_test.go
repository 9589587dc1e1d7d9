package report

import (
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadReportData processes a csv fixture from the stock package against
// the shipped assumptions.
func loadReportData(t *testing.T, fixture string) *abm.Dataset {
	t.Helper()
	sources.ClearAllSources()
	sources.RegisterSource("base", "..")
	cfg, err := config.ParseConfig("..")
	require.NoError(t, err)
	cfg.BuildingProperties = config.Workbook{Path: "stock/testdata/" + fixture + "/building_properties.csv"}
	cfg.HeatingSystems = config.Workbook{Path: "stock/testdata/" + fixture + "/heating_systems.csv", SkipRows: []int{0}}
	asm, err := assumptions.Load("base", cfg.AssumptionsPath, &cfg)
	require.NoError(t, err)
	data, err := stock.Load("base", &cfg, asm)
	require.NoError(t, err)
	return abm.Process(data)
}

func TestReports(t *testing.T) {
	data := loadReportData(t, "valid")

	assert.NoError(t, ReportStock(data, io.Discard))
	assert.NoError(t, ReportStatistics(data, io.Discard))
	assert.NoError(t, ReportIssues(data, io.Discard))

	{
		var filter stock.SegmentFilter
		filter.CodeRegexp = regexp.MustCompile("AB")
		checkFilteredReports(t, data, &filter)
	}
	{
		var filter stock.SegmentFilter
		filter.CountryRegexp = regexp.MustCompile("^FI$")
		checkFilteredReports(t, data, &filter)
	}
	{
		var filter stock.SegmentFilter
		filter.TypeRegexp = regexp.MustCompile("Offices")
		checkFilteredReports(t, data, &filter)
	}
	{
		var filter stock.SegmentFilter
		filter.HeatSourceOnly = "District"
		checkFilteredReports(t, data, &filter)
	}
}

func checkFilteredReports(t *testing.T, data *abm.Dataset, filter *stock.SegmentFilter) {
	assert.NoError(t, ReportStockFiltered(data, io.Discard, filter))
	assert.NoError(t, ReportStatisticsFiltered(data, io.Discard, filter))
	assert.NoError(t, ReportIssuesFiltered(data, io.Discard, filter))
}

func TestReport_StockContents(t *testing.T) {
	data := loadReportData(t, "valid")

	var html strings.Builder
	require.NoError(t, ReportStock(data, &html))
	assert.Contains(t, html.String(), "AmBIENCe_2016_FI_residential")
	assert.Contains(t, html.String(), "FI.AB.01")
	assert.Contains(t, html.String(), "District")
	assert.NotContains(t, html.String(), "No segments")
}

func TestReport_StockFilteredContents(t *testing.T) {
	data := loadReportData(t, "valid")
	filter := stock.SegmentFilter{CountryRegexp: regexp.MustCompile("^FI$")}

	var html strings.Builder
	require.NoError(t, ReportStockFiltered(data, &html, &filter))
	assert.Contains(t, html.String(), "Filter Criteria:")
	assert.Contains(t, html.String(), "FI.AB.01")
	assert.NotContains(t, html.String(), "DE.OF.01")
	// The German stock section stays, without segments
	assert.Contains(t, html.String(), "No segments")
}

func TestReport_StatisticsContents(t *testing.T) {
	data := loadReportData(t, "valid")

	var html strings.Builder
	require.NoError(t, ReportStatistics(data, &html))
	assert.Contains(t, html.String(), "Building stock statistics")
	assert.Contains(t, html.String(), "base_floor")
	assert.Contains(t, html.String(), "Natural gas")

	filter := stock.SegmentFilter{HeatSourceOnly: "Electricity"}
	html.Reset()
	require.NoError(t, ReportStatisticsFiltered(data, &html, &filter))
	assert.Contains(t, html.String(), "Electricity")
	assert.NotContains(t, html.String(), "Natural gas")
}

func TestReport_IssuesContents(t *testing.T) {
	clean := loadReportData(t, "valid")

	var html strings.Builder
	require.NoError(t, ReportIssues(clean, &html))
	assert.Contains(t, html.String(), "No issues found.")

	broken := loadReportData(t, "broken")
	html.Reset()
	require.NoError(t, ReportIssues(broken, &html))
	assert.Contains(t, html.String(), "label-danger")
	assert.Contains(t, html.String(), "MAJOR")
	assert.Contains(t, html.String(), "building_properties.csv")
}

func TestReport_PrintFilter(t *testing.T) {
	empty := reportData{}
	assert.Equal(t, empty.PrintFilter(), "No filter")

	filter := stock.SegmentFilter{
		CodeRegexp:     regexp.MustCompile("FI"),
		HeatSourceOnly: "District",
	}
	report := reportData{Filter: &filter}
	printed := report.PrintFilter()
	assert.Contains(t, printed, `(Code: "FI")`)
	assert.Contains(t, printed, `(Heat source: "District")`)
}
