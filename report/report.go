/*
Functions for generating HTML reports over a processed building stock
dataset.
*/

package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"

	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/stock"
)

type reportData struct {
	Data   *abm.Dataset
	Filter *stock.SegmentFilter
}

// ReportStock generates a HTML report of the merged building stock,
// grouped per building stock label.
func ReportStock(data *abm.Dataset, w io.Writer) error {
	return reportTmpl.ExecuteTemplate(w, "STOCK", reportData{data, nil})
}

// ReportStatistics generates a HTML report of the derived archetype
// building model statistics.
func ReportStatistics(data *abm.Dataset, w io.Writer) error {
	return reportTmpl.ExecuteTemplate(w, "STATISTICS", reportData{data, nil})
}

// ReportIssues generates a HTML report showing every issue found while
// loading and processing the data.
func ReportIssues(data *abm.Dataset, w io.Writer) error {
	return reportTmpl.ExecuteTemplate(w, "ISSUES", reportData{data, nil})
}

// ReportStockFiltered generates a HTML report of the merged building
// stock restricted to the segments passing the supplied filter.
func ReportStockFiltered(data *abm.Dataset, w io.Writer, f *stock.SegmentFilter) error {
	return reportTmpl.ExecuteTemplate(w, "STOCKFILT", reportData{data, f})
}

// ReportStatisticsFiltered generates a HTML report of the derived
// statistics restricted to the rows passing the supplied filter.
func ReportStatisticsFiltered(data *abm.Dataset, w io.Writer, f *stock.SegmentFilter) error {
	return reportTmpl.ExecuteTemplate(w, "STATISTICSFILT", reportData{data, f})
}

// ReportIssuesFiltered generates a HTML report showing loading and
// processing issues, with the filter criteria displayed.
func ReportIssuesFiltered(data *abm.Dataset, w io.Writer, f *stock.SegmentFilter) error {
	// TODO apply the segment filter to the issue list
	return reportTmpl.ExecuteTemplate(w, "ISSUESFILT", reportData{data, f})
}

// Prints a filter in a nicely formatted manner to be shown in the report
func (report reportData) PrintFilter() string {
	if report.Filter != nil {
		filterString := ""
		if report.Filter.CodeRegexp != nil {
			filterString = fmt.Sprintf("%s (Code: \"%s\")", filterString, report.Filter.CodeRegexp)
		}
		if report.Filter.CountryRegexp != nil {
			filterString = fmt.Sprintf("%s (Country: \"%s\")", filterString, report.Filter.CountryRegexp)
		}
		if report.Filter.TypeRegexp != nil {
			filterString = fmt.Sprintf("%s (Type: \"%s\")", filterString, report.Filter.TypeRegexp)
		}
		if report.Filter.PeriodRegexp != nil {
			filterString = fmt.Sprintf("%s (Period: \"%s\")", filterString, report.Filter.PeriodRegexp)
		}
		if report.Filter.HeatSourceOnly != "" {
			filterString = fmt.Sprintf("%s (Heat source: \"%s\")", filterString, report.Filter.HeatSourceOnly)
		}
		return filterString
	}
	return "No filter"
}

// Segments returns the segments passing the report filter, ordered by
// reference building code.
func (report reportData) Segments() []*stock.Segment {
	return report.Data.Stock().FilteredSegments(report.Filter)
}

// StockSegments returns the filtered segments belonging to one
// building stock label.
func (report reportData) StockSegments(label string) []*stock.Segment {
	var segments []*stock.Segment
	for _, segment := range report.Segments() {
		if segment.BuildingStock == label {
			segments = append(segments, segment)
		}
	}
	return segments
}

// UnassignedSegments returns the filtered segments that could not be
// tied to any building stock label.
func (report reportData) UnassignedSegments() []*stock.Segment {
	return report.StockSegments("")
}

// AllIssues collects the issues of every processing stage in order:
// assumption tables first, then the raw data, then the derivation.
func (report reportData) AllIssues() []diagnostics.Issue {
	data := report.Data.Stock()
	var issues []diagnostics.Issue
	issues = append(issues, data.Assumptions.Issues...)
	issues = append(issues, data.Issues...)
	issues = append(issues, report.Data.Issues...)
	return issues
}

// StockRows returns the building stock statistics rows passing the
// report filter.
func (report reportData) StockRows() []abm.StockStatistic {
	if report.Filter == nil {
		return report.Data.StockStatistics
	}
	rows := make([]abm.StockStatistic, 0)
	for _, row := range report.Data.StockStatistics {
		if !matchColumns(report.Filter, row.BuildingType, row.BuildingPeriod, row.LocationID) {
			continue
		}
		if report.Filter.HeatSourceOnly != "" && row.HeatSource != report.Filter.HeatSourceOnly {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// StructureRows returns the structure statistics rows passing the
// report filter.
func (report reportData) StructureRows() []abm.StructureStatistic {
	if report.Filter == nil {
		return report.Data.StructureStatistics
	}
	rows := make([]abm.StructureStatistic, 0)
	for _, row := range report.Data.StructureStatistics {
		if matchColumns(report.Filter, row.BuildingType, row.BuildingPeriod, row.LocationID) {
			rows = append(rows, row)
		}
	}
	return rows
}

// VentilationRows returns the ventilation and fenestration rows passing
// the report filter.
func (report reportData) VentilationRows() []abm.VentilationStatistic {
	if report.Filter == nil {
		return report.Data.VentilationAndFenestration
	}
	rows := make([]abm.VentilationStatistic, 0)
	for _, row := range report.Data.VentilationAndFenestration {
		if matchColumns(report.Filter, row.BuildingType, row.BuildingPeriod, row.LocationID) {
			rows = append(rows, row)
		}
	}
	return rows
}

// matchColumns applies the column-level parts of a segment filter to a
// statistics row. The code regexp has no counterpart in the aggregated
// rows and is ignored here.
func matchColumns(filter *stock.SegmentFilter, buildingType, buildingPeriod, locationID string) bool {
	if filter.TypeRegexp != nil && !filter.TypeRegexp.MatchString(buildingType) {
		return false
	}
	if filter.PeriodRegexp != nil && !filter.PeriodRegexp.MatchString(buildingPeriod) {
		return false
	}
	if filter.CountryRegexp != nil && !filter.CountryRegexp.MatchString(locationID) {
		return false
	}
	return true
}

var headerFooterTmplText = `
{{define "HEADER"}}
<html lang="en">
	<head>
		<meta charset="utf-8">
	    <meta http-equiv="X-UA-Compatible" content="IE=edge">
	    <meta name="viewport" content="width=device-width, initial-scale=1">
	    <meta name="description" content="">
	    <meta name="author" content="">

		<title>AmBIENCe2ABM</title>

		<!-- BOOTSTRAP -->
		<link rel="stylesheet" href="https://maxcdn.bootstrapcdn.com/bootstrap/3.3.7/css/bootstrap.min.css" integrity="sha384-BVYiiSIFeK1dGmJRAkycuHAHRg32OmUcww7on3RYdg4Va+PmSTsz/K68vbdEjh4u" crossorigin="anonymous">

		<!-- CUSTOM -->
		<style>
			h1 {
				text-align: left;
			}
			body {
				font-family: Roboto, Arial, sans-serif;
				max-width: 3000px;
				margin-left: 5%;
				margin-right: 5%;
			}
			a, a:hover {
				text-decoration: none;
			}
		</style>
	</head>
	<body>
{{end}}

{{define "FOOTER"}}
	</body>
</html>
{{end}}
`

var functionMap = template.FuncMap{
	"formatValue":    formatValue,
	"formatShare":    formatShare,
	"severityName":   severityName,
	"severityClass":  severityClass,
	"issueLocation":  issueLocation,
	"describeWindow": describeWindow,
}

var reportTmpl = template.Must(template.Must(template.New("").Funcs(functionMap).Parse(headerFooterTmplText)).Parse(reportTmplText))

// formatValue renders a derived number, with missing values spelled
// out.
func formatValue(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return strconv.FormatFloat(value, 'g', 6, 64)
}

// formatShare renders a fraction as a percentage.
func formatShare(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return strconv.FormatFloat(value*100, 'f', 1, 64) + " %"
}

func severityName(severity diagnostics.IssueSeverity) string {
	switch severity {
	case diagnostics.IssueSeverityMajor:
		return "MAJOR"
	case diagnostics.IssueSeverityMinor:
		return "MINOR"
	}
	return "NOTE"
}

// severityClass picks the bootstrap label class for a severity.
func severityClass(severity diagnostics.IssueSeverity) string {
	switch severity {
	case diagnostics.IssueSeverityMajor:
		return "danger"
	case diagnostics.IssueSeverityMinor:
		return "warning"
	}
	return "info"
}

func issueLocation(issue diagnostics.Issue) string {
	if issue.Line > 0 {
		return fmt.Sprintf("%s:%d", issue.Path, issue.Line)
	}
	return issue.Path
}

func describeWindow(window stock.Window) string {
	if window.GlazingType == "" {
		return "unknown glazing"
	}
	coating := "uncoated"
	if window.Coated {
		coating = "coated"
	}
	return fmt.Sprintf("%s, %s", window.GlazingType, coating)
}

var reportTmplText = `
{{ define "SEGMENT" }}
	<h3><a name="{{ .Code }}"></a>{{ .Code }}</h3>
	<ul style="list-style: none; padding: 0; margin: 0;">
		<li><strong>Type</strong>: {{ .BuildingType }}, {{ .BuildingPeriod }}, {{ .LocationID }}</li>
		<li><strong>Buildings</strong>: {{ formatValue .NumberOfBuildings }} at {{ formatValue .AverageFloorAreaM2 }} m&sup2; gross floor area each</li>
		<li><strong>Material combination weight</strong>: {{ formatValue .MaterialCombinationWeight }}</li>
		<li><strong>Window</strong>: {{ describeWindow .Window }}, U {{ formatValue .Window.UValue }} W/m&sup2;K</li>
		{{ range .HeatingSystems }}
			{{ if .HeatSource }}
				<li><strong>Heat source</strong>: {{ .HeatSource }} ({{ formatShare .Prevalency }} of the stock, fuel {{ .FuelUsed }})</li>
			{{ end }}
		{{ end }}
		{{ if .ExtrapolatedFrom }}
			<li><em>Extrapolated from {{ .ExtrapolatedFrom }} data</em></li>
		{{ end }}
	</ul>
{{ end }}

{{ define "STOCKBODY" }}
	<ul style="list-style: none; padding: 0; margin: 0;">
		{{ range .Data.BuildingStocks }}
			<li>
				<h2>{{ .BuildingStock }}</h2>
				<ul style="list-style: none; padding: 0; margin: 0;">
				{{ range $.StockSegments .BuildingStock }}
					<li>{{ template "SEGMENT" . }}</li>
				{{ else }}
					<li class="text-danger">No segments</li>
				{{ end }}
				</ul>
			</li>
		{{ else }}
			<li class="text-danger">Empty dataset</li>
		{{ end }}
		{{ with .UnassignedSegments }}
			<li>
				<h2>Without building stock</h2>
				<ul style="list-style: none; padding: 0; margin: 0;">
				{{ range . }}
					<li>{{ template "SEGMENT" . }}</li>
				{{ end }}
				</ul>
			</li>
		{{ end }}
	</ul>
{{ end }}

{{ define "STOCK" }}
	{{ template "HEADER" }}
	<h1>Building Stock</h1>
	{{ template "STOCKBODY" . }}
	{{ template "FOOTER" }}
{{ end }}

{{ define "STOCKFILT" }}
	{{ template "HEADER" }}
	<h1>Building Stock</h1>
	<h3><em>Filter Criteria: {{ .PrintFilter }} </em></h3>
	{{ template "STOCKBODY" . }}
	{{ template "FOOTER" }}
{{ end }}

{{ define "STATISTICSBODY" }}
	<h2>Building stock statistics</h2>
	<table class="table table-condensed">
		<tr><th>Building stock</th><th>Building type</th><th>Period</th><th>Location</th><th>Heat source</th><th>Buildings</th><th>Average floor area [m&sup2;]</th></tr>
		{{ range .StockRows }}
			<tr><td>{{ .BuildingStock }}</td><td>{{ .BuildingType }}</td><td>{{ .BuildingPeriod }}</td><td>{{ .LocationID }}</td><td>{{ .HeatSource }}</td><td>{{ formatValue .NumberOfBuildings }}</td><td>{{ formatValue .AverageFloorAreaM2 }}</td></tr>
		{{ end }}
	</table>

	<h2>Structure statistics</h2>
	<table class="table table-condensed">
		<tr><th>Building type</th><th>Period</th><th>Location</th><th>Structure</th><th>Design U [W/m&sup2;K]</th><th>Thermal mass [J/m&sup2;K]</th><th>Thermal bridges [W/mK]</th><th>U to ambient [W/m&sup2;K]</th><th>U to ground [W/m&sup2;K]</th><th>U to structure [W/m&sup2;K]</th><th>Total U [W/m&sup2;K]</th></tr>
		{{ range .StructureRows }}
			<tr><td>{{ .BuildingType }}</td><td>{{ .BuildingPeriod }}</td><td>{{ .LocationID }}</td><td>{{ .StructureType }}</td><td>{{ formatValue .DesignUValue }}</td><td>{{ formatValue .EffectiveThermalMass }}</td><td>{{ formatValue .LinearThermalBridges }}</td><td>{{ formatValue .ExternalUToAmbientAir }}</td><td>{{ formatValue .ExternalUToGround }}</td><td>{{ formatValue .InternalUToStructure }}</td><td>{{ formatValue .TotalUValue }}</td></tr>
		{{ end }}
	</table>

	<h2>Ventilation and fenestration</h2>
	<table class="table table-condensed">
		<tr><th>Building type</th><th>Period</th><th>Location</th><th>HRU efficiency</th><th>Infiltration [1/h]</th><th>Solar transmittance</th><th>Ventilation [1/h]</th><th>Window U [W/m&sup2;K]</th></tr>
		{{ range .VentilationRows }}
			<tr><td>{{ .BuildingType }}</td><td>{{ .BuildingPeriod }}</td><td>{{ .LocationID }}</td><td>{{ formatValue .HRUEfficiency }}</td><td>{{ formatValue .InfiltrationRate }}</td><td>{{ formatValue .TotalSolarTransmittance }}</td><td>{{ formatValue .VentilationRate }}</td><td>{{ formatValue .WindowUValue }}</td></tr>
		{{ end }}
	</table>
{{ end }}

{{ define "STATISTICS" }}
	{{ template "HEADER" }}
	<h1>Archetype Building Model Statistics</h1>
	{{ template "STATISTICSBODY" . }}
	{{ template "FOOTER" }}
{{ end }}

{{ define "STATISTICSFILT" }}
	{{ template "HEADER" }}
	<h1>Archetype Building Model Statistics</h1>
	<h3><em>Filter Criteria: {{ .PrintFilter }} </em></h3>
	{{ template "STATISTICSBODY" . }}
	{{ template "FOOTER" }}
{{ end }}

{{ define "ISSUES" }}
	{{ template "HEADER" }}
	<h1>Issues</h1>

	<ul>
	{{ range .AllIssues }}
		<li>
			<span class="label label-{{ severityClass .Severity }}">{{ severityName .Severity }}</span>
			{{ issueLocation . }}: {{ .Error }}
		</li>
	{{ else }}
		<li class="text-success">No issues found.</li>
	{{ end }}
	</ul>
	{{ template "FOOTER" }}
{{ end }}

{{ define "ISSUESFILT" }}
	{{ template "HEADER" }}
	<h1>Issues</h1>

	<h3><em>Filter Criteria: {{ .PrintFilter }} </em></h3>
	<ul>
	{{ range .AllIssues }}
		<li>
			<span class="label label-{{ severityClass .Severity }}">{{ severityName .Severity }}</span>
			{{ issueLocation . }}: {{ .Error }}
		</li>
	{{ end }}
	</ul>
	{{ template "FOOTER" }}
{{ end }}
`
