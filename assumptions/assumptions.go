// Package assumptions holds the typed model of the data assumption
// tables shipped with the data repository, the csv parsing that fills
// it and the content audit that keeps the tables consistent with what
// the processing pipeline expects of them.
package assumptions

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/table"
)

// The assumption tables, named after their csv files.
const (
	TableStructureTypes       = "structure_types"
	TableBuildingTypeMappings = "building_type_mappings"
	TableShapefileMappings    = "shapefile_mappings"
	TableFenestration         = "fenestration"
	TableVentilation          = "ventilation"
)

// TableNames lists the assumption tables in their documented order.
var TableNames = []string{
	TableBuildingTypeMappings,
	TableFenestration,
	TableShapefileMappings,
	TableStructureTypes,
	TableVentilation,
}

// Valid values of the structure type `mapping` column, the AmBIENCe
// column prefixes a structure type draws its U-values from.
var ValidMappings = []string{"BASE FLOOR", "EXTERIOR WALL", "ROOF"}

// Building type categories recognised by the pipeline. The category
// selects the Hotmaps raster weight dataset of a building stock.
const (
	CategoryResidential    = "residential"
	CategoryNonResidential = "non-residential"
)

// A StructureType describes one structure of the exported building
// envelope model. The thermal resistances and linear thermal bridges
// are assumptions, the U-values come from the raw data columns selected
// by Mapping.
type StructureType struct {
	Name                string
	InteriorResistance  float64 // m2K/W
	ExteriorResistance  float64 // m2K/W
	LinearThermalBridge float64 // W/mK
	IsInternal          bool
	Mapping             string
	Notes               string
}

// A BuildingTypeMapping assigns a broad category to an AmBIENCe use
// type, which in turn selects the gross floor area raster weights for
// downscaling.
type BuildingTypeMapping struct {
	BuildingType     string
	Category         string
	RasterWeightPath string
}

// A ShapefileMapping points a country code at the shapefile describing
// its geography. Notes flag discrepancies such as code mismatches or
// missing shapefiles.
type ShapefileMapping struct {
	Country       string
	ShapefilePath string
	Notes         string
}

// GlazingKey identifies a fenestration assumption row.
type GlazingKey struct {
	GlazingType string
	Coated      bool
}

// A Fenestration row holds window properties assumed per glazing type
// and coating, taken from standards reference tables.
type Fenestration struct {
	GlazingType                    string
	Coated                         bool
	NormalSolarEnergyTransmittance float64
	FrameAreaFraction              float64
	Notes                          string
}

// Ventilation holds the single row of ventilation assumptions. The
// AmBIENCe data has no ventilation or infiltration figures, so these
// default to zero until better data is found.
type Ventilation struct {
	HRUEfficiency    float64
	InfiltrationRate float64 // 1/h
	VentilationRate  float64 // 1/h
	Notes            string
}

// Set is the parsed contents of an assumptions directory along with
// every issue found while parsing and auditing it.
type Set struct {
	StructureTypes map[string]*StructureType
	BuildingTypes  map[string]*BuildingTypeMapping
	Shapefiles     map[string]*ShapefileMapping
	Fenestrations  map[GlazingKey]*Fenestration
	Ventilation    *Ventilation
	Issues         []diagnostics.Issue

	source sources.SourceName
	dir    string
	tables map[string]*table.Table
	config *config.Config
}

// Load parses the five assumption tables under dir, a path relative to
// the root of the named source, and audits their contents. Problems
// with the data never fail the load, they accumulate on Set.Issues.
func Load(source sources.SourceName, dir string, cfg *config.Config) (*Set, error) {
	if _, err := sources.PathOfSource(source); err != nil {
		return nil, err
	}
	set := &Set{
		StructureTypes: make(map[string]*StructureType),
		BuildingTypes:  make(map[string]*BuildingTypeMapping),
		Shapefiles:     make(map[string]*ShapefileMapping),
		Fenestrations:  make(map[GlazingKey]*Fenestration),
		source:         source,
		dir:            dir,
		tables:         make(map[string]*table.Table),
		config:         cfg,
	}

	set.loadStructureTypes()
	set.loadBuildingTypeMappings()
	set.loadShapefileMappings()
	set.loadFenestration()
	set.loadVentilation()
	set.audit()

	return set, nil
}

// Path returns the path of an assumption table relative to the source
// root.
func (s *Set) Path(tableName string) string {
	return filepath.Join(s.dir, tableName+".csv")
}

// Source returns the source the tables were loaded from.
func (s *Set) Source() sources.SourceName {
	return s.source
}

// Table exposes the raw parsed table, nil when the file was missing or
// unreadable.
func (s *Set) Table(tableName string) *table.Table {
	return s.tables[tableName]
}

// ForBuildingType looks up the mapping of an AmBIENCe use type.
func (s *Set) ForBuildingType(buildingType string) (*BuildingTypeMapping, bool) {
	mapping, ok := s.BuildingTypes[buildingType]
	return mapping, ok
}

// ForCountry looks up the shapefile mapping of a country code.
func (s *Set) ForCountry(country string) (*ShapefileMapping, bool) {
	mapping, ok := s.Shapefiles[country]
	return mapping, ok
}

// ForGlazing looks up the fenestration assumptions for a glazing type
// and coating.
func (s *Set) ForGlazing(glazingType string, coated bool) (*Fenestration, bool) {
	fenestration, ok := s.Fenestrations[GlazingKey{GlazingType: glazingType, Coated: coated}]
	return fenestration, ok
}

type byStructureTypeName []*StructureType

func (a byStructureTypeName) Len() int           { return len(a) }
func (a byStructureTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byStructureTypeName) Less(i, j int) bool { return a[i].Name < a[j].Name }

// SortedStructureTypes returns the structure types ordered by name.
func (s *Set) SortedStructureTypes() []*StructureType {
	structureTypes := make([]*StructureType, 0, len(s.StructureTypes))
	for _, structureType := range s.StructureTypes {
		structureTypes = append(structureTypes, structureType)
	}
	sort.Sort(byStructureTypeName(structureTypes))
	return structureTypes
}

type byBuildingType []*BuildingTypeMapping

func (a byBuildingType) Len() int           { return len(a) }
func (a byBuildingType) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byBuildingType) Less(i, j int) bool { return a[i].BuildingType < a[j].BuildingType }

// SortedBuildingTypes returns the building type mappings ordered by
// building type.
func (s *Set) SortedBuildingTypes() []*BuildingTypeMapping {
	mappings := make([]*BuildingTypeMapping, 0, len(s.BuildingTypes))
	for _, mapping := range s.BuildingTypes {
		mappings = append(mappings, mapping)
	}
	sort.Sort(byBuildingType(mappings))
	return mappings
}

type byCountry []*ShapefileMapping

func (a byCountry) Len() int           { return len(a) }
func (a byCountry) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byCountry) Less(i, j int) bool { return a[i].Country < a[j].Country }

// SortedShapefileMappings returns the shapefile mappings ordered by
// country code.
func (s *Set) SortedShapefileMappings() []*ShapefileMapping {
	mappings := make([]*ShapefileMapping, 0, len(s.Shapefiles))
	for _, mapping := range s.Shapefiles {
		mappings = append(mappings, mapping)
	}
	sort.Sort(byCountry(mappings))
	return mappings
}

type byGlazing []*Fenestration

func (a byGlazing) Len() int      { return len(a) }
func (a byGlazing) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byGlazing) Less(i, j int) bool {
	if a[i].GlazingType != a[j].GlazingType {
		return a[i].GlazingType < a[j].GlazingType
	}
	return !a[i].Coated && a[j].Coated
}

// SortedFenestrations returns the fenestration rows ordered by glazing
// type, uncoated before coated.
func (s *Set) SortedFenestrations() []*Fenestration {
	fenestrations := make([]*Fenestration, 0, len(s.Fenestrations))
	for _, fenestration := range s.Fenestrations {
		fenestrations = append(fenestrations, fenestration)
	}
	sort.Sort(byGlazing(fenestrations))
	return fenestrations
}

func (s *Set) addIssue(tableName string, line int, severity diagnostics.IssueSeverity, issueType diagnostics.IssueType, format string, args ...interface{}) {
	s.Issues = append(s.Issues, diagnostics.Issue{
		Source:   s.source,
		Path:     s.Path(tableName),
		Line:     line,
		Error:    fmt.Errorf(format, args...),
		Severity: severity,
		Type:     issueType,
	})
}
