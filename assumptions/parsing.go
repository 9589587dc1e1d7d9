package assumptions

import (
	"math"

	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/table"
)

// openTable reads one assumption table and checks its header. Required
// columns must all be present for the table to be usable, known columns
// beyond those are tolerated with a note.
func (s *Set) openTable(tableName string, required []string, known []string) *table.Table {
	path, err := sources.PathInSource(s.source, s.Path(tableName))
	if err != nil {
		s.addIssue(tableName, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeMissingFile,
			"table cannot be read: %s", err)
		return nil
	}
	tbl, err := table.ReadFile(path, "", nil)
	if err != nil {
		s.addIssue(tableName, 0, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeMissingFile,
			"table cannot be parsed: %s", err)
		return nil
	}

	missing := tbl.HasColumns(required...)
	for _, column := range missing {
		s.addIssue(tableName, 1, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeMissingColumn,
			"column `%s` is missing", column)
	}
	for _, column := range tbl.ExtraColumns(append(append([]string{}, required...), known...)...) {
		s.addIssue(tableName, 1, diagnostics.IssueSeverityNote, diagnostics.IssueTypeUnknownColumn,
			"column `%s` is not part of the table contract", column)
	}
	if len(missing) > 0 {
		return nil
	}

	s.tables[tableName] = tbl
	return tbl
}

// requiredFloat parses a numeric cell that must hold a value. A missing
// or malformed cell is an issue and parses as NaN.
func (s *Set) requiredFloat(tbl *table.Table, tableName string, row int, column string) float64 {
	cell := tbl.Cell(row, column)
	if cell == "" {
		s.addIssue(tableName, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
			"column `%s` has no value", column)
		return math.NaN()
	}
	value, err := table.ParseFloat(cell)
	if err != nil {
		s.addIssue(tableName, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
			"column `%s`: %s", column, err)
	}
	return value
}

func (s *Set) loadStructureTypes() {
	tbl := s.openTable(TableStructureTypes,
		[]string{"structure_type", "interior_resistance_m2K_W", "exterior_resistance_m2K_W",
			"linear_thermal_bridge_W_mK", "is_internal", "mapping"},
		[]string{"notes"})
	if tbl == nil {
		return
	}

	for row := range tbl.Rows {
		name := tbl.Cell(row, "structure_type")
		if name == "" {
			s.addIssue(TableStructureTypes, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"row has no structure_type")
			continue
		}
		if _, ok := s.StructureTypes[name]; ok {
			s.addIssue(TableStructureTypes, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeDuplicateKey,
				"structure_type `%s` appears more than once", name)
			continue
		}

		isInternal, err := table.ParseBool(tbl.Cell(row, "is_internal"))
		if err != nil {
			s.addIssue(TableStructureTypes, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"column `is_internal`: %s", err)
		}

		s.StructureTypes[name] = &StructureType{
			Name:                name,
			InteriorResistance:  s.requiredFloat(tbl, TableStructureTypes, row, "interior_resistance_m2K_W"),
			ExteriorResistance:  s.requiredFloat(tbl, TableStructureTypes, row, "exterior_resistance_m2K_W"),
			LinearThermalBridge: s.requiredFloat(tbl, TableStructureTypes, row, "linear_thermal_bridge_W_mK"),
			IsInternal:          isInternal,
			Mapping:             tbl.Cell(row, "mapping"),
			Notes:               tbl.Cell(row, "notes"),
		}
	}
}

func (s *Set) loadBuildingTypeMappings() {
	tbl := s.openTable(TableBuildingTypeMappings,
		[]string{"building_type", "category", "raster_weight_path"}, nil)
	if tbl == nil {
		return
	}

	for row := range tbl.Rows {
		buildingType := tbl.Cell(row, "building_type")
		if buildingType == "" {
			s.addIssue(TableBuildingTypeMappings, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"row has no building_type")
			continue
		}
		if _, ok := s.BuildingTypes[buildingType]; ok {
			s.addIssue(TableBuildingTypeMappings, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeDuplicateKey,
				"building_type `%s` appears more than once", buildingType)
			continue
		}
		s.BuildingTypes[buildingType] = &BuildingTypeMapping{
			BuildingType:     buildingType,
			Category:         tbl.Cell(row, "category"),
			RasterWeightPath: tbl.Cell(row, "raster_weight_path"),
		}
	}
}

func (s *Set) loadShapefileMappings() {
	tbl := s.openTable(TableShapefileMappings,
		[]string{"country", "shapefile_path"}, []string{"notes"})
	if tbl == nil {
		return
	}

	for row := range tbl.Rows {
		country := tbl.Cell(row, "country")
		if country == "" {
			s.addIssue(TableShapefileMappings, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"row has no country")
			continue
		}
		if _, ok := s.Shapefiles[country]; ok {
			s.addIssue(TableShapefileMappings, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeDuplicateKey,
				"country `%s` appears more than once", country)
			continue
		}
		s.Shapefiles[country] = &ShapefileMapping{
			Country:       country,
			ShapefilePath: tbl.Cell(row, "shapefile_path"),
			Notes:         tbl.Cell(row, "notes"),
		}
	}
}

func (s *Set) loadFenestration() {
	tbl := s.openTable(TableFenestration,
		[]string{"REFERENCE BUILDING WINDOW GLAZING TYPE", "REFERENCE BUILDING WINDOW COATED",
			"normal_solar_energy_transmittance", "frame_area_fraction"},
		[]string{"notes"})
	if tbl == nil {
		return
	}

	for row := range tbl.Rows {
		glazingType := tbl.Cell(row, "REFERENCE BUILDING WINDOW GLAZING TYPE")
		if glazingType == "" {
			s.addIssue(TableFenestration, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"row has no glazing type")
			continue
		}
		coated, err := table.ParseBool(tbl.Cell(row, "REFERENCE BUILDING WINDOW COATED"))
		if err != nil {
			s.addIssue(TableFenestration, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeBadCell,
				"column `REFERENCE BUILDING WINDOW COATED`: %s", err)
			continue
		}

		key := GlazingKey{GlazingType: glazingType, Coated: coated}
		if _, ok := s.Fenestrations[key]; ok {
			s.addIssue(TableFenestration, tbl.Line(row), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeDuplicateKey,
				"glazing `%s` coated `%v` appears more than once", glazingType, coated)
			continue
		}
		s.Fenestrations[key] = &Fenestration{
			GlazingType:                    glazingType,
			Coated:                         coated,
			NormalSolarEnergyTransmittance: s.requiredFloat(tbl, TableFenestration, row, "normal_solar_energy_transmittance"),
			FrameAreaFraction:              s.requiredFloat(tbl, TableFenestration, row, "frame_area_fraction"),
			Notes:                          tbl.Cell(row, "notes"),
		}
	}
}

func (s *Set) loadVentilation() {
	tbl := s.openTable(TableVentilation,
		[]string{"HRU_efficiency", "infiltration_rate_1_h", "ventilation_rate_1_h"},
		[]string{"notes"})
	if tbl == nil {
		return
	}

	switch len(tbl.Rows) {
	case 0:
		s.addIssue(TableVentilation, 1, diagnostics.IssueSeverityMajor, diagnostics.IssueTypeMissingAssumption,
			"table has no rows, one is expected")
		return
	case 1:
	default:
		s.addIssue(TableVentilation, tbl.Line(1), diagnostics.IssueSeverityMajor, diagnostics.IssueTypeDuplicateKey,
			"table has %d rows, one is expected", len(tbl.Rows))
		return
	}

	s.Ventilation = &Ventilation{
		HRUEfficiency:    s.requiredFloat(tbl, TableVentilation, 0, "HRU_efficiency"),
		InfiltrationRate: s.requiredFloat(tbl, TableVentilation, 0, "infiltration_rate_1_h"),
		VentilationRate:  s.requiredFloat(tbl, TableVentilation, 0, "ventilation_rate_1_h"),
		Notes:            tbl.Cell(0, "notes"),
	}
}
