/*
 * Reading and merging of the raw AmBIENCe workbooks
 */
package stock

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/table"
)

// resolveWorkbook locates a workbook file, preferring the locally cached
// copy under the data repository and falling back to downloading it from
// the configured source url.
func resolveWorkbook(source sources.SourceName, workbook *config.Workbook) (string, error) {
	if workbook.Path != "" {
		if path, err := sources.PathInSource(source, workbook.Path); err == nil {
			return path, nil
		}
	}
	if workbook.SourceUrl == "" {
		return "", fmt.Errorf("workbook `%s` is not accessible and has no source url to fetch it from", workbook.Path)
	}
	name, _, err := sources.GetSource(workbook.SourceUrl)
	if err != nil {
		return "", errors.Wrapf(err, "fetching workbook `%s`", workbook.SourceUrl)
	}
	splits := strings.Split(string(workbook.SourceUrl), "/")
	return sources.PathInSource(name, splits[len(splits)-1])
}

// readWorkbook resolves and reads one of the raw data workbooks.
func readWorkbook(source sources.SourceName, workbook *config.Workbook) (*table.Table, error) {
	path, err := resolveWorkbook(source, workbook)
	if err != nil {
		return nil, err
	}
	return table.ReadFile(path, workbook.Sheet, workbook.SkipRows)
}

// merge joins the two workbooks on the reference building code and
// parses every matched pair of rows into a segment. Properties rows
// without heating system data are dropped the way the raw data merge
// always has, but reported so the loss is visible.
func (d *Dataset) merge(properties, heatsys *table.Table) {
	heatsysRows := make(map[string]int)
	for row := range heatsys.Rows {
		code := heatsys.Cell(row, ColBuildingTypology)
		if code == "" {
			continue
		}
		if _, ok := heatsysRows[code]; ok {
			d.addIssue(d.heatsysPath, heatsys.Line(row), diagnostics.IssueSeverityMinor,
				diagnostics.IssueTypeDuplicateKey,
				"duplicate heating system row for building typology `%s`, first one wins", code)
			continue
		}
		heatsysRows[code] = row
	}

	for row := range properties.Rows {
		line := properties.Line(row)
		code := properties.Cell(row, ColReferenceBuildingCode)
		if code == "" {
			d.addIssue(d.propertyPath, line, diagnostics.IssueSeverityMajor,
				diagnostics.IssueTypeBadCell, "segment without a reference building code")
			continue
		}
		heatsysRow, ok := heatsysRows[code]
		if !ok {
			d.addIssue(d.propertyPath, line, diagnostics.IssueSeverityMinor,
				diagnostics.IssueTypeUnmatchedSegment,
				"no heating system data for reference building `%s`, segment dropped", code)
			continue
		}
		d.Segments = append(d.Segments, d.parseSegment(properties, row, heatsys, heatsysRow, code))
	}
}

// parseSegment reads one merged row pair into a Segment. Numeric cells
// that fail to parse are reported and read as NaN so they propagate into
// the statistics instead of silently vanishing.
func (d *Dataset) parseSegment(properties *table.Table, row int, heatsys *table.Table, heatsysRow int, code string) *Segment {
	line := properties.Line(row)
	segment := &Segment{
		Code:         code,
		Line:         line,
		BuildingType: properties.Cell(row, ColUseCode),
		LocationID:   properties.Cell(row, ColCountryCode),
	}
	segment.NumberOfBuildings = d.segmentFloat(properties, row, ColNumberOfBuildings)
	segment.AverageFloorAreaM2 = d.segmentFloat(properties, row, ColUsefulFloorArea)
	d.parsePeriod(properties, row, segment)
	d.parseWindow(properties, row, segment)
	segment.Envelopes = make(map[string]*Envelope)
	for _, structureType := range d.Assumptions.SortedStructureTypes() {
		if _, ok := segment.Envelopes[structureType.Mapping]; ok {
			continue
		}
		segment.Envelopes[structureType.Mapping] = d.parseEnvelope(properties, row, structureType.Mapping)
	}
	d.parseHeatingSystems(heatsys, heatsysRow, segment)
	return segment
}

// parsePeriod reads the construction year bounds and forms the building
// period label from them.
func (d *Dataset) parsePeriod(properties *table.Table, row int, segment *Segment) {
	line := properties.Line(row)
	low, errLow := table.ParseFloat(properties.Cell(row, ColConstructionYearLow))
	high, errHigh := table.ParseFloat(properties.Cell(row, ColConstructionYearHigh))
	if errLow != nil || errHigh != nil || math.IsNaN(low) || math.IsNaN(high) {
		d.addIssue(d.propertyPath, line, diagnostics.IssueSeverityMajor,
			diagnostics.IssueTypePeriodAnomaly,
			"segment `%s` has unreadable construction year bounds", segment.Code)
		return
	}
	segment.PeriodStart = int(low)
	segment.PeriodEnd = int(high)
	if segment.PeriodStart > segment.PeriodEnd {
		d.addIssue(d.propertyPath, line, diagnostics.IssueSeverityMajor,
			diagnostics.IssueTypePeriodAnomaly,
			"segment `%s` construction years run backwards: %d-%d",
			segment.Code, segment.PeriodStart, segment.PeriodEnd)
	}
	segment.BuildingPeriod = fmt.Sprintf("%d-%d", segment.PeriodStart, segment.PeriodEnd)
}

// parseWindow reads the fenestration columns of a segment.
func (d *Dataset) parseWindow(properties *table.Table, row int, segment *Segment) {
	segment.Window.GlazingType = properties.Cell(row, ColWindowGlazingType)
	coated, err := table.ParseBool(properties.Cell(row, ColWindowCoated))
	if err != nil {
		d.addIssue(d.propertyPath, properties.Line(row), diagnostics.IssueSeverityMajor,
			diagnostics.IssueTypeBadCell,
			"segment `%s` column `%s`: %s", segment.Code, ColWindowCoated, err)
	}
	segment.Window.Coated = coated
	segment.Window.UValue = d.segmentFloat(properties, row, ColWindowUValue)
}

// parseEnvelope reads the nine layer property columns of one mapping
// prefix.
func (d *Dataset) parseEnvelope(properties *table.Table, row int, mapping string) *Envelope {
	cell := func(suffix string) float64 {
		return d.segmentFloat(properties, row, strings.Join([]string{columnPrefix, mapping, suffix}, " "))
	}
	return &Envelope{
		MaterialThickness:      cell(sfxMaterialThickness),
		MaterialDensity:        cell(sfxMaterialDensity),
		MaterialHeatCapacity:   cell(sfxMaterialHeatCapacity),
		MaterialConductivity:   cell(sfxMaterialConductivity),
		InsulationThickness:    cell(sfxInsulationThickness),
		InsulationDensity:      cell(sfxInsulationDensity),
		InsulationHeatCapacity: cell(sfxInsulationHeatCapacity),
		InsulationConductivity: cell(sfxInsulationConductivity),
		DesignUValue:           cell(sfxUValue),
	}
}

// parseHeatingSystems reads the three heating system slots and derives
// their heat sources. District heating is not indicated by the fuel
// column, only by the dimensions column.
func (d *Dataset) parseHeatingSystems(heatsys *table.Table, row int, segment *Segment) {
	for i := 0; i < HeatingSystemCount; i++ {
		system := &segment.HeatingSystems[i]
		system.FuelUsed = heatsys.Cell(row, fmt.Sprintf(heatingSystemColumnPattern, i+1, "FUEL USED"))
		system.Dimensions = heatsys.Cell(row, fmt.Sprintf(heatingSystemColumnPattern, i+1, "DIMENSIONS"))
		system.HeatSource = system.FuelUsed
		if system.Dimensions == "District" {
			system.HeatSource = "District"
		}
		prevalencyColumn := fmt.Sprintf(heatingSystemColumnPattern, i+1, "PREVALENCY ON BUILDING STOCK")
		prevalency, err := table.ParseFloat(heatsys.Cell(row, prevalencyColumn))
		if err != nil {
			d.addIssue(d.heatsysPath, heatsys.Line(row), diagnostics.IssueSeverityMajor,
				diagnostics.IssueTypeBadCell,
				"segment `%s` column `%s`: %s", segment.Code, prevalencyColumn, err)
			prevalency = math.NaN()
		}
		system.Prevalency = prevalency
	}
}

// segmentFloat parses a numeric cell of the properties workbook,
// reporting cells that are present but not numbers. Empty cells read as
// NaN without an issue, the raw data legitimately leaves some blank.
func (d *Dataset) segmentFloat(t *table.Table, row int, column string) float64 {
	value, err := table.ParseFloat(t.Cell(row, column))
	if err != nil {
		d.addIssue(d.propertyPath, t.Line(row), diagnostics.IssueSeverityMajor,
			diagnostics.IssueTypeBadCell, "column `%s`: %s", column, err)
		return math.NaN()
	}
	return value
}

func (d *Dataset) addIssue(path string, line int, severity diagnostics.IssueSeverity, issueType diagnostics.IssueType, format string, args ...interface{}) {
	d.Issues = append(d.Issues, diagnostics.Issue{
		Source:   d.source,
		Path:     path,
		Line:     line,
		Error:    fmt.Errorf(format, args...),
		Severity: severity,
		Type:     issueType,
	})
}
