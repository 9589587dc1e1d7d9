/*
Coverage matrix tables between the raw building stock data and the
assumption tables mapped onto it. Each matrix pairs the values present
on one side with the rows covering them on the other, leaving a hole
wherever the mapping has a gap: a raw value no assumption covers, or an
assumption row the data never exercises.
*/

package matrix

import (
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/spine-tools/ambience2abm/stock"
)

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
			div.coverage-matrix-table {
				display: table;
				border: 1px solid black
			}
			div.coverage-matrix-table > div {
				display: table-row;
			}
			div.coverage-matrix-table > div > div {
				display: table-cell;
				padding: 0em 0.5em;
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

// Coverage selects which mapping a matrix inspects.
type Coverage string

const (
	CoverageBuildingTypes Coverage = "building-types"
	CoverageCountries     Coverage = "countries"
	CoverageGlazing       Coverage = "glazing"
)

// Coverages lists the known matrices in display order.
var Coverages = []Coverage{CoverageBuildingTypes, CoverageCountries, CoverageGlazing}

// GenerateCoverageTables generates HTML for inspecting the gaps of the
// selected mapping, in both directions.
func GenerateCoverageTables(data *stock.Dataset, w io.Writer, coverage Coverage) error {
	pairing, err := newPairing(data, coverage)
	if err != nil {
		return err
	}

	tables := struct {
		From, To         string
		ItemsAB, ItemsBA []TableRow
	}{
		From:    pairing.from,
		To:      pairing.to,
		ItemsAB: pairing.downstream(),
		ItemsBA: pairing.upstream(),
	}

	sortMatrices(tables.ItemsAB, tables.ItemsBA)
	return matrixTmpl.ExecuteTemplate(w, "MATRIX", tables)
}

var matrixTmpl = template.Must(template.Must(template.New("").Parse(headerFooterTmplText)).Parse(matrixTmplText))

var matrixTmplText = `
{{ define "MATRIXTABLE" }}
<div class="coverage-matrix-table">
{{- range . }}
	<div>
	{{- range . }}
		{{ if . -}}
			<div>{{ .Name }}</div>
		{{- else -}}
			<div class="hole"></div>
		{{- end -}}
	{{ end }}
	</div>
{{- end -}}
</div>
{{ end }}

{{ define "MATRIX" }}
	{{template "HEADER"}}
	<h1>Coverage Matrices {{ .From }} &ndash; {{ .To }}</h1>

	<div style="display: table; padding-top: 1em;">
		<div style="display: table-row">
			<div style="display: table-cell">
				{{ template "MATRIXTABLE" .ItemsAB }}
			</div>
			<div style="display: table-cell; padding-left: 2em;">
				{{ template "MATRIXTABLE" .ItemsBA }}
			</div>
		</div>
	</div>

	{{ template "FOOTER" }}
{{ end }}
`

// TableCell is a cell in a two-column matrix, either a value found in
// the raw data or an assumption row.
type TableCell struct {
	Name string
}

// TableRow is a pair of TableCell. A nil second cell marks a gap.
type TableRow [2]*TableCell

func newTableCell(name string) *TableCell {
	return &TableCell{Name: name}
}

// A pairing relates the distinct values of a raw data field to the
// assumption rows keyed by the same values. Both sides come pre-sorted,
// labels map assumption keys to their display form.
type pairing struct {
	from, to   string
	dataSide   []string
	assumpSide []string
	labels     map[string]string
}

func newPairing(data *stock.Dataset, coverage Coverage) (*pairing, error) {
	switch coverage {
	case CoverageBuildingTypes:
		return buildingTypePairing(data), nil
	case CoverageCountries:
		return countryPairing(data), nil
	case CoverageGlazing:
		return glazingPairing(data), nil
	}
	return nil, fmt.Errorf("unknown coverage matrix: %s", coverage)
}

// downstream pairs each raw value with the assumption row covering it.
func (p *pairing) downstream() []TableRow {
	known := make(map[string]bool, len(p.assumpSide))
	for _, key := range p.assumpSide {
		known[key] = true
	}
	rows := make([]TableRow, 0, len(p.dataSide))
	for _, value := range p.dataSide {
		if known[value] {
			rows = append(rows, TableRow{newTableCell(value), newTableCell(p.labels[value])})
		} else {
			rows = append(rows, TableRow{newTableCell(value), nil})
		}
	}
	return rows
}

// upstream pairs each assumption row with the raw value exercising it.
func (p *pairing) upstream() []TableRow {
	present := make(map[string]bool, len(p.dataSide))
	for _, value := range p.dataSide {
		present[value] = true
	}
	rows := make([]TableRow, 0, len(p.assumpSide))
	for _, key := range p.assumpSide {
		if present[key] {
			rows = append(rows, TableRow{newTableCell(p.labels[key]), newTableCell(key)})
		} else {
			rows = append(rows, TableRow{newTableCell(p.labels[key]), nil})
		}
	}
	return rows
}

func buildingTypePairing(data *stock.Dataset) *pairing {
	p := &pairing{
		from:   "Raw building types",
		to:     "Building type mappings",
		labels: make(map[string]string),
	}
	p.dataSide = distinctValues(data, func(segment *stock.Segment) string { return segment.BuildingType })
	for _, mapping := range data.Assumptions.SortedBuildingTypes() {
		p.assumpSide = append(p.assumpSide, mapping.BuildingType)
		p.labels[mapping.BuildingType] = fmt.Sprintf("%s (%s)", mapping.BuildingType, mapping.Category)
	}
	return p
}

func countryPairing(data *stock.Dataset) *pairing {
	p := &pairing{
		from:   "Raw country codes",
		to:     "Shapefile mappings",
		labels: make(map[string]string),
	}
	p.dataSide = distinctValues(data, func(segment *stock.Segment) string { return segment.LocationID })
	for _, mapping := range data.Assumptions.SortedShapefileMappings() {
		p.assumpSide = append(p.assumpSide, mapping.Country)
		p.labels[mapping.Country] = fmt.Sprintf("%s: %s", mapping.Country, mapping.ShapefilePath)
	}
	return p
}

func glazingPairing(data *stock.Dataset) *pairing {
	p := &pairing{
		from:   "Raw window glazing",
		to:     "Fenestration assumptions",
		labels: make(map[string]string),
	}
	p.dataSide = distinctValues(data, func(segment *stock.Segment) string {
		if segment.Window.GlazingType == "" {
			return ""
		}
		return glazingLabel(segment.Window.GlazingType, segment.Window.Coated)
	})
	for _, fenestration := range data.Assumptions.SortedFenestrations() {
		key := glazingLabel(fenestration.GlazingType, fenestration.Coated)
		p.assumpSide = append(p.assumpSide, key)
		p.labels[key] = fmt.Sprintf("%s (g %g)", key, fenestration.NormalSolarEnergyTransmittance)
	}
	return p
}

func glazingLabel(glazingType string, coated bool) string {
	if coated {
		return glazingType + ", coated"
	}
	return glazingType + ", uncoated"
}

// distinctValues collects the distinct non-empty values of a segment
// field, sorted.
func distinctValues(data *stock.Dataset, field func(*stock.Segment) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, segment := range data.Segments {
		value := field(segment)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

// sortMatrices sorts each matrix by the left cell, gaps first on the
// right.
func sortMatrices(matrices ...[]TableRow) {
	for _, matrix := range matrices {
		sort.Slice(matrix, func(i, j int) bool {
			a0, b0 := matrix[i][0], matrix[j][0]
			if a0.Name != b0.Name {
				return a0.Name < b0.Name
			}
			a1, b1 := matrix[i][1], matrix[j][1]
			if a1 == nil {
				return true
			} else if b1 == nil {
				return false
			}
			return a1.Name < b1.Name
		})
	}
}
