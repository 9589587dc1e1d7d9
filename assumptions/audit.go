package assumptions

import (
	"math"
	"regexp"
	"sort"

	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
)

var countryCode = regexp.MustCompile(`^[A-Z]{2}$`)

// audit checks that the table contents deliver what the documentation
// promises of them: categories select raster weights, fenestration
// properties are physical fractions, shapefile mappings cover countries
// with either a path or an explanatory note, structure types map onto
// AmBIENCe envelope columns and the ventilation defaults are sane.
// Load runs it once after parsing.
func (s *Set) audit() {
	s.auditStructureTypes()
	s.auditBuildingTypes()
	s.auditShapefiles()
	s.auditFenestration()
	s.auditVentilation()
	s.applyConfiguredChecks()
}

func (s *Set) auditStructureTypes() {
	valid := make(map[string]bool)
	for _, mapping := range ValidMappings {
		valid[mapping] = true
	}
	for _, structureType := range s.SortedStructureTypes() {
		if !valid[structureType.Mapping] {
			s.addIssue(TableStructureTypes, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"structure_type `%s` maps to `%s`, not an AmBIENCe envelope column prefix %v",
				structureType.Name, structureType.Mapping, ValidMappings)
		}
		if structureType.InteriorResistance < 0 || structureType.ExteriorResistance < 0 {
			s.addIssue(TableStructureTypes, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
				"structure_type `%s` has a negative surface resistance", structureType.Name)
		}
		if structureType.LinearThermalBridge < 0 {
			s.addIssue(TableStructureTypes, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
				"structure_type `%s` has a negative linear thermal bridge", structureType.Name)
		}
	}
}

func (s *Set) auditBuildingTypes() {
	for _, mapping := range s.SortedBuildingTypes() {
		if mapping.Category != CategoryResidential && mapping.Category != CategoryNonResidential {
			s.addIssue(TableBuildingTypeMappings, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"building_type `%s` has category `%s`, expected `%s` or `%s`",
				mapping.BuildingType, mapping.Category, CategoryResidential, CategoryNonResidential)
		}
		if mapping.RasterWeightPath == "" {
			s.addIssue(TableBuildingTypeMappings, 0, diagnostics.IssueSeverityNote, diagnostics.IssueTypeMissingAssumption,
				"building_type `%s` has no raster weight path, its stocks cannot be downscaled", mapping.BuildingType)
		}
	}
}

func (s *Set) auditShapefiles() {
	for _, mapping := range s.SortedShapefileMappings() {
		if !countryCode.MatchString(mapping.Country) {
			s.addIssue(TableShapefileMappings, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"country `%s` is not a two letter code", mapping.Country)
		}
		if mapping.ShapefilePath == "" {
			// A known gap documented in the notes column is tolerable,
			// an empty path without explanation is not.
			if mapping.Notes == "" {
				s.addIssue(TableShapefileMappings, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeMissingAssumption,
					"country `%s` has no shapefile path and no note explaining why", mapping.Country)
			} else {
				s.addIssue(TableShapefileMappings, 0, diagnostics.IssueSeverityNote, diagnostics.IssueTypeMissingAssumption,
					"country `%s` has no shapefile: %s", mapping.Country, mapping.Notes)
			}
		}
	}
}

func (s *Set) auditFenestration() {
	for _, fenestration := range s.SortedFenestrations() {
		if bad, value := badFraction(fenestration.NormalSolarEnergyTransmittance); bad {
			s.addIssue(TableFenestration, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
				"glazing `%s` coated `%v`: normal solar energy transmittance %v is not within [0,1]",
				fenestration.GlazingType, fenestration.Coated, value)
		}
		if bad, value := badFraction(fenestration.FrameAreaFraction); bad {
			s.addIssue(TableFenestration, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
				"glazing `%s` coated `%v`: frame area fraction %v is not within [0,1]",
				fenestration.GlazingType, fenestration.Coated, value)
		}
	}
}

func (s *Set) auditVentilation() {
	if s.Ventilation == nil {
		return
	}
	if bad, value := badFraction(s.Ventilation.HRUEfficiency); bad {
		s.addIssue(TableVentilation, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
			"HRU efficiency %v is not within [0,1]", value)
	}
	if s.Ventilation.InfiltrationRate < 0 {
		s.addIssue(TableVentilation, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
			"infiltration rate %v is negative", s.Ventilation.InfiltrationRate)
	}
	if s.Ventilation.VentilationRate < 0 {
		s.addIssue(TableVentilation, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadFraction,
			"ventilation rate %v is negative", s.Ventilation.VentilationRate)
	}
}

// applyConfiguredChecks runs the extra per-column checks from the data
// repository configuration against the raw tables.
func (s *Set) applyConfiguredChecks() {
	if s.config == nil {
		return
	}
	knownTables := make(map[string]bool)
	for _, tableName := range TableNames {
		knownTables[tableName] = true
	}

	tableNames := make([]string, 0, len(s.config.AssumptionChecks))
	for tableName := range s.config.AssumptionChecks {
		tableNames = append(tableNames, tableName)
	}
	sort.Strings(tableNames)

	for _, tableName := range tableNames {
		if !knownTables[tableName] {
			s.addIssue(tableName, 0, diagnostics.IssueSeverityNote, diagnostics.IssueTypeUnknownColumn,
				"configuration checks a table that is not part of the assumption set")
			continue
		}
		tbl := s.tables[tableName]
		if tbl == nil {
			// Parsing already flagged the missing table
			continue
		}

		checks := s.config.CheckFor(tableName)
		columns := make([]string, 0, len(checks))
		for column := range checks {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		var anyColumns []string
		for _, column := range columns {
			check := checks[column]
			if _, ok := tbl.Column(column); !ok {
				if check.Type != config.ColumnOptional {
					s.addIssue(tableName, 1, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeMissingColumn,
						"checked column `%s` is missing", column)
				}
				continue
			}
			if check.Type == config.ColumnAny {
				anyColumns = append(anyColumns, column)
			}
			for row := range tbl.Rows {
				cell := tbl.Cell(row, column)
				if cell == "" {
					if check.Type == config.ColumnRequired {
						s.addIssue(tableName, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
							"checked column `%s` has no value", column)
					}
					continue
				}
				if !check.Value.MatchString(cell) {
					s.addIssue(tableName, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
						"column `%s` value `%s` does not match the configured check", column, cell)
				}
			}
		}

		if len(anyColumns) > 0 {
			for row := range tbl.Rows {
				filled := false
				for _, column := range anyColumns {
					if tbl.Cell(row, column) != "" {
						filled = true
						break
					}
				}
				if !filled {
					s.addIssue(tableName, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
						"none of the columns %v have a value", anyColumns)
				}
			}
		}
	}
}

func badFraction(value float64) (bool, float64) {
	if math.IsNaN(value) {
		// Parsing already flagged the missing value
		return false, value
	}
	return value < 0 || value > 1, value
}
