/*
 * Types used for the merged building stock data
 */
package stock

import (
	"regexp"

	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
)

// Raw AmBIENCe column names the pipeline depends on. The remaining
// columns of the workbooks are carried along untouched.
const (
	ColReferenceBuildingCode = "REFERENCE BUILDING CODE"
	ColBuildingTypology      = "Building typology"
	ColUseCode               = "REFERENCE BUILDING USE CODE"
	ColCountryCode           = "REFERENCE BUILDING COUNTRY CODE"
	ColNumberOfBuildings     = "NUMBER OF REFERENCE BUILDINGS IN THE BUILDING STOCK SEGMENT"
	ColUsefulFloorArea       = "REFERENCE BUILDING USEFUL FLOOR AREA (m2)"
	ColConstructionYearLow   = "REFERENCE BUILDING CONSTRUCTION YEAR LOW"
	ColConstructionYearHigh  = "REFERENCE BUILDING CONSTRUCTION YEAR HIGH"
	ColWindowGlazingType     = "REFERENCE BUILDING WINDOW GLAZING TYPE"
	ColWindowCoated          = "REFERENCE BUILDING WINDOW COATED"
	ColWindowUValue          = "REFERENCE BUILDING WINDOW U-VALUE (W/m2/K)"
)

// Column name suffixes of the structural layer properties. Full column
// names are "REFERENCE BUILDING <mapping> <suffix>" where mapping is one
// of the assumption mapping prefixes.
const (
	sfxMaterialThickness       = "MATERIAL THICKNESS (m)"
	sfxMaterialDensity         = "MATERIAL DENSITY (kg/m3)"
	sfxMaterialHeatCapacity    = "MATERIAL SPECIFIC HEAT CAPACITY (J/kg/K)"
	sfxMaterialConductivity    = "MATERIAL THERMAL CONDUCTIVITY (W/m/K)"
	sfxInsulationThickness     = "INSULATION MATERIAL THICKNESS (m)"
	sfxInsulationDensity       = "INSULATION MATERIAL DENSITY (kg/m3)"
	sfxInsulationHeatCapacity  = "INSULATION MATERIAL SPECIFIC HEAT CAPACITY (J/kg/K)"
	sfxInsulationConductivity  = "INSULATION MATERIAL THERMAL CONDUCTIVITY (W/m/K)"
	sfxUValue                  = "U-VALUE (W/m2/K)"
	columnPrefix               = "REFERENCE BUILDING"
	heatingSystemColumnPattern = "HEATING SYSTEM %d %s"
)

// The number of heating system slots in the AmBIENCe heating system
// workbook.
const HeatingSystemCount = 3

// An Envelope holds the layer properties of one mapped structure of a
// reference building, read from the raw data columns selected by the
// mapping prefix. Missing cells are NaN and propagate through the
// statistics like the raw data intends.
type Envelope struct {
	MaterialThickness      float64 // m
	MaterialDensity        float64 // kg/m3
	MaterialHeatCapacity   float64 // J/kg/K
	MaterialConductivity   float64 // W/m/K
	InsulationThickness    float64 // m
	InsulationDensity      float64 // kg/m3
	InsulationHeatCapacity float64 // J/kg/K
	InsulationConductivity float64 // W/m/K
	DesignUValue           float64 // W/m2K
}

// A Window holds the fenestration properties of a reference building.
// The glazing type and coating select a fenestration assumption row.
type Window struct {
	GlazingType string
	Coated      bool
	UValue      float64 // W/m2K
}

// A HeatingSystem is one of the three heating system slots of a
// reference building. HeatSource is derived from FuelUsed, overridden
// to District for district heating which the fuel column does not
// indicate. Unused slots have an empty HeatSource and NaN prevalency.
type HeatingSystem struct {
	FuelUsed   string
	Dimensions string
	HeatSource string
	Prevalency float64
}

// A Segment is one reference building of the merged AmBIENCe data, a
// single material combination of a building stock segment.
type Segment struct {
	Code string
	// Line of the segment in the building properties workbook.
	Line int

	BuildingType      string
	LocationID        string
	PeriodStart       int
	PeriodEnd         int
	BuildingPeriod    string // "<start>-<end>"
	NumberOfBuildings float64
	// Useful floor area from the raw data, estimated to be roughly
	// equivalent to gross floor area.
	AverageFloorAreaM2 float64

	HeatingSystems [HeatingSystemCount]HeatingSystem
	// Envelopes by mapping prefix, e.g. "BASE FLOOR".
	Envelopes map[string]*Envelope
	Window    Window

	// Share of this material combination within its (building_type,
	// building_period, location_id) group, by floor area.
	MaterialCombinationWeight float64

	BuildingStock     string
	BuildingStockYear int

	// Joined from the shapefile and building type mapping assumptions.
	ShapefilePath    string
	ShapefileNotes   string
	Category         string
	RasterWeightPath string

	// Source country code for extrapolated segments, empty otherwise.
	ExtrapolatedFrom string
}

// A Dataset is the fully preprocessed building stock: every segment of
// the merged workbooks plus the assumptions they were joined against and
// the issues found along the way.
type Dataset struct {
	Segments    []*Segment
	Assumptions *assumptions.Set
	Config      *config.Config
	Issues      []diagnostics.Issue

	source       sources.SourceName
	propertyPath string
	heatsysPath  string
}

// A SegmentFilter holds the parameters used to narrow down a segment
// set for listing and reporting.
type SegmentFilter struct {
	CodeRegexp     *regexp.Regexp
	CountryRegexp  *regexp.Regexp
	TypeRegexp     *regexp.Regexp
	PeriodRegexp   *regexp.Regexp
	HeatSourceOnly string
}

// byCode provides sort functions to order segments by their reference
// building code
type byCode []*Segment

func (a byCode) Len() int           { return len(a) }
func (a byCode) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byCode) Less(i, j int) bool { return a[i].Code < a[j].Code }
