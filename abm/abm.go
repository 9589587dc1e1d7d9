/*
   Functions for deriving ArchetypeBuildingModel.jl compatible data from
   the preprocessed building stock.

   Process computes every output table eagerly:
     BuildingPeriods - the unique construction periods,
     BuildingStocks - the unique building stocks with their geography,
     StockStatistics - number of buildings and floor area per heat source,
     StructureStatistics - U-values and thermal mass per structure type,
     VentilationAndFenestration - window and air exchange properties,
     LocationIDs - the countries covered.

   The statistics are weighted sums over the material combinations of
   each building stock segment group. Missing values are NaN and are
   skipped by the aggregations, matching how the raw data has always
   been processed.
*/

package abm

import (
	"fmt"
	"math"
	"sort"

	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/stock"
)

// A BuildingPeriod is one row of the building_period.csv export.
type BuildingPeriod struct {
	BuildingPeriod string
	PeriodStart    int
	PeriodEnd      int
}

// A BuildingStock is one row of the building_stock.csv export, tying a
// stock label to the geography it is downscaled with.
type BuildingStock struct {
	BuildingStock     string
	BuildingStockYear int
	ShapefilePath     string
	RasterWeightPath  string
	Notes             string
}

// A StockStatistic is one row of the building_stock_statistics.csv
// export. NumberOfBuildings is weighted by heat source prevalency and
// summed over the material combinations of the key, the floor area is
// their mean.
type StockStatistic struct {
	BuildingStock      string
	BuildingType       string
	BuildingPeriod     string
	LocationID         string
	HeatSource         string
	NumberOfBuildings  float64
	AverageFloorAreaM2 float64
}

// A StructureStatistic is one row of the structure_statistics.csv
// export, the weighted sums of the structural properties of one
// structure type over the material combinations of the key.
type StructureStatistic struct {
	BuildingType   string
	BuildingPeriod string
	LocationID     string
	StructureType  string

	DesignUValue          float64 // W/m2K
	EffectiveThermalMass  float64 // J/m2K
	LinearThermalBridges  float64 // W/mK
	ExternalUToAmbientAir float64 // W/m2K
	ExternalUToGround     float64 // W/m2K
	InternalUToStructure  float64 // W/m2K
	TotalUValue           float64 // W/m2K
}

// A VentilationStatistic is one row of the
// ventilation_and_fenestration_statistics.csv export.
type VentilationStatistic struct {
	BuildingType   string
	BuildingPeriod string
	LocationID     string

	HRUEfficiency           float64
	InfiltrationRate        float64 // 1/h
	TotalSolarTransmittance float64
	VentilationRate         float64 // 1/h
	WindowUValue            float64 // W/m2K
}

// A Dataset holds every derived output table, ready for export.
type Dataset struct {
	BuildingPeriods            []BuildingPeriod
	BuildingStocks             []BuildingStock
	StructureTypes             []*assumptions.StructureType
	StockStatistics            []StockStatistic
	StructureStatistics        []StructureStatistic
	VentilationAndFenestration []VentilationStatistic
	LocationIDs                []string
	Issues                     []diagnostics.Issue

	stock *stock.Dataset
}

// Process derives every output table from the preprocessed building
// stock data. Problems found along the way, such as glazing types
// without a fenestration assumption, accumulate on Dataset.Issues.
func Process(data *stock.Dataset) *Dataset {
	d := &Dataset{stock: data}
	d.deriveBuildingPeriods(data)
	d.deriveBuildingStocks(data)
	d.StructureTypes = data.Assumptions.SortedStructureTypes()
	d.deriveStockStatistics(data)
	d.deriveStructureStatistics(data)
	d.deriveVentilationAndFenestration(data)
	d.deriveLocationIDs(data)
	return d
}

// Stock returns the building stock data the tables were derived from.
func (d *Dataset) Stock() *stock.Dataset {
	return d.stock
}

func (d *Dataset) deriveBuildingPeriods(data *stock.Dataset) {
	seen := make(map[string]bool)
	for _, segment := range data.Segments {
		if segment.BuildingPeriod == "" || seen[segment.BuildingPeriod] {
			continue
		}
		seen[segment.BuildingPeriod] = true
		d.BuildingPeriods = append(d.BuildingPeriods, BuildingPeriod{
			BuildingPeriod: segment.BuildingPeriod,
			PeriodStart:    segment.PeriodStart,
			PeriodEnd:      segment.PeriodEnd,
		})
	}
	sort.Slice(d.BuildingPeriods, func(i, j int) bool {
		return d.BuildingPeriods[i].BuildingPeriod < d.BuildingPeriods[j].BuildingPeriod
	})
}

// deriveBuildingStocks collects the distinct building stocks. Segments
// sharing a stock label must agree on its attributes, disagreements are
// flagged and kept as separate rows so nothing is silently lost.
func (d *Dataset) deriveBuildingStocks(data *stock.Dataset) {
	seen := make(map[BuildingStock]bool)
	byLabel := make(map[string]BuildingStock)
	for _, segment := range data.Segments {
		if segment.BuildingStock == "" {
			continue
		}
		row := BuildingStock{
			BuildingStock:     segment.BuildingStock,
			BuildingStockYear: segment.BuildingStockYear,
			ShapefilePath:     segment.ShapefilePath,
			RasterWeightPath:  segment.RasterWeightPath,
			Notes:             segment.ShapefileNotes,
		}
		if seen[row] {
			continue
		}
		if first, ok := byLabel[row.BuildingStock]; ok {
			d.Issues = append(d.Issues, diagnostics.Issue{
				Source:   data.Source(),
				Path:     data.Config.BuildingProperties.Path,
				Line:     segment.Line,
				Error:    fmt.Errorf("building stock `%s` maps to conflicting attributes: %v and %v", row.BuildingStock, first, row),
				Severity: diagnostics.IssueSeverityMajor,
				Type:     diagnostics.IssueTypeDuplicateKey,
			})
		} else {
			byLabel[row.BuildingStock] = row
		}
		seen[row] = true
		d.BuildingStocks = append(d.BuildingStocks, row)
	}
	sort.Slice(d.BuildingStocks, func(i, j int) bool {
		return d.BuildingStocks[i].BuildingStock < d.BuildingStocks[j].BuildingStock
	})
}

type stockStatisticKey struct {
	buildingStock  string
	buildingType   string
	buildingPeriod string
	locationID     string
	heatSource     string
}

// deriveStockStatistics multiplies the number of buildings of every
// segment by the prevalency of each of its heating systems and sums the
// results per heat source. Rows with missing values are dropped the way
// the raw data processing always has.
func (d *Dataset) deriveStockStatistics(data *stock.Dataset) {
	type aggregate struct {
		numberOfBuildings float64
		floorAreaSum      float64
		floorAreaCount    int
	}
	aggregates := make(map[stockStatisticKey]*aggregate)
	for _, segment := range data.Segments {
		if segment.BuildingStock == "" {
			continue
		}
		for i := range segment.HeatingSystems {
			system := &segment.HeatingSystems[i]
			buildings := segment.NumberOfBuildings * system.Prevalency
			if system.HeatSource == "" || math.IsNaN(buildings) || math.IsNaN(segment.AverageFloorAreaM2) {
				continue
			}
			key := stockStatisticKey{
				buildingStock:  segment.BuildingStock,
				buildingType:   segment.BuildingType,
				buildingPeriod: segment.BuildingPeriod,
				locationID:     segment.LocationID,
				heatSource:     system.HeatSource,
			}
			agg, ok := aggregates[key]
			if !ok {
				agg = &aggregate{}
				aggregates[key] = agg
			}
			agg.numberOfBuildings += buildings
			agg.floorAreaSum += segment.AverageFloorAreaM2
			agg.floorAreaCount++
		}
	}
	for key, agg := range aggregates {
		d.StockStatistics = append(d.StockStatistics, StockStatistic{
			BuildingStock:      key.buildingStock,
			BuildingType:       key.buildingType,
			BuildingPeriod:     key.buildingPeriod,
			LocationID:         key.locationID,
			HeatSource:         key.heatSource,
			NumberOfBuildings:  agg.numberOfBuildings,
			AverageFloorAreaM2: agg.floorAreaSum / float64(agg.floorAreaCount),
		})
	}
	sort.Slice(d.StockStatistics, func(i, j int) bool {
		a, b := &d.StockStatistics[i], &d.StockStatistics[j]
		if a.BuildingStock != b.BuildingStock {
			return a.BuildingStock < b.BuildingStock
		}
		if a.BuildingType != b.BuildingType {
			return a.BuildingType < b.BuildingType
		}
		if a.BuildingPeriod != b.BuildingPeriod {
			return a.BuildingPeriod < b.BuildingPeriod
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.HeatSource < b.HeatSource
	})
}

type structureStatisticKey struct {
	group         stock.GroupKey
	structureType string
}

// deriveStructureStatistics computes the weighted structural properties
// of every structure type over the material combinations of each
// segment group. NaN contributions are skipped by the sums.
func (d *Dataset) deriveStructureStatistics(data *stock.Dataset) {
	sums := make(map[structureStatisticKey]*StructureStatistic)
	var keys []structureStatisticKey
	for _, segment := range data.Segments {
		for _, structureType := range data.Assumptions.SortedStructureTypes() {
			envelope := segment.Envelopes[structureType.Mapping]
			if envelope == nil {
				continue
			}
			key := structureStatisticKey{segment.Group(), structureType.Name}
			row, ok := sums[key]
			if !ok {
				row = &StructureStatistic{
					BuildingType:   segment.BuildingType,
					BuildingPeriod: segment.BuildingPeriod,
					LocationID:     segment.LocationID,
					StructureType:  structureType.Name,
				}
				sums[key] = row
				keys = append(keys, key)
			}
			weight := segment.MaterialCombinationWeight
			exterior, ground, interior, total := uValues(envelope, structureType, data.Config.InteriorNodeDepth)
			addSkippingNaN(&row.DesignUValue, weight*envelope.DesignUValue)
			addSkippingNaN(&row.EffectiveThermalMass, weight*effectiveThermalMass(envelope, structureType, data.Config.PeriodOfVariations))
			addSkippingNaN(&row.LinearThermalBridges, weight*structureType.LinearThermalBridge)
			addSkippingNaN(&row.ExternalUToAmbientAir, weight*exterior)
			addSkippingNaN(&row.ExternalUToGround, weight*ground)
			addSkippingNaN(&row.InternalUToStructure, weight*interior)
			addSkippingNaN(&row.TotalUValue, weight*total)
		}
	}
	for _, key := range keys {
		d.StructureStatistics = append(d.StructureStatistics, *sums[key])
	}
	sort.Slice(d.StructureStatistics, func(i, j int) bool {
		a, b := &d.StructureStatistics[i], &d.StructureStatistics[j]
		if a.BuildingType != b.BuildingType {
			return a.BuildingType < b.BuildingType
		}
		if a.BuildingPeriod != b.BuildingPeriod {
			return a.BuildingPeriod < b.BuildingPeriod
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.StructureType < b.StructureType
	})
}

// deriveVentilationAndFenestration computes the weighted window and air
// exchange properties of each segment group. Glazing types without a
// fenestration assumption are flagged, their transmittance contribution
// is skipped.
func (d *Dataset) deriveVentilationAndFenestration(data *stock.Dataset) {
	hruEfficiency := math.NaN()
	infiltrationRate := math.NaN()
	ventilationRate := math.NaN()
	if vent := data.Assumptions.Ventilation; vent != nil {
		hruEfficiency = vent.HRUEfficiency
		infiltrationRate = vent.InfiltrationRate
		ventilationRate = vent.VentilationRate
	}

	sums := make(map[stock.GroupKey]*VentilationStatistic)
	var keys []stock.GroupKey
	for _, segment := range data.Segments {
		key := segment.Group()
		row, ok := sums[key]
		if !ok {
			row = &VentilationStatistic{
				BuildingType:   segment.BuildingType,
				BuildingPeriod: segment.BuildingPeriod,
				LocationID:     segment.LocationID,
			}
			sums[key] = row
			keys = append(keys, key)
		}
		weight := segment.MaterialCombinationWeight
		transmittance := math.NaN()
		if fenestration, ok := data.Assumptions.ForGlazing(segment.Window.GlazingType, segment.Window.Coated); ok {
			transmittance = fenestration.NormalSolarEnergyTransmittance * (1 - fenestration.FrameAreaFraction)
		} else {
			d.Issues = append(d.Issues, diagnostics.Issue{
				Source:   data.Source(),
				Path:     data.Config.BuildingProperties.Path,
				Line:     segment.Line,
				Error:    fmt.Errorf("segment `%s` window glazing `%s` coated %v has no fenestration assumption", segment.Code, segment.Window.GlazingType, segment.Window.Coated),
				Severity: diagnostics.IssueSeverityMajor,
				Type:     diagnostics.IssueTypeUnknownGlazing,
			})
		}
		addSkippingNaN(&row.HRUEfficiency, weight*hruEfficiency)
		addSkippingNaN(&row.InfiltrationRate, weight*infiltrationRate)
		addSkippingNaN(&row.TotalSolarTransmittance, weight*transmittance)
		addSkippingNaN(&row.VentilationRate, weight*ventilationRate)
		addSkippingNaN(&row.WindowUValue, weight*segment.Window.UValue)
	}
	for _, key := range keys {
		d.VentilationAndFenestration = append(d.VentilationAndFenestration, *sums[key])
	}
	sort.Slice(d.VentilationAndFenestration, func(i, j int) bool {
		a, b := &d.VentilationAndFenestration[i], &d.VentilationAndFenestration[j]
		if a.BuildingType != b.BuildingType {
			return a.BuildingType < b.BuildingType
		}
		if a.BuildingPeriod != b.BuildingPeriod {
			return a.BuildingPeriod < b.BuildingPeriod
		}
		return a.LocationID < b.LocationID
	})
}

func (d *Dataset) deriveLocationIDs(data *stock.Dataset) {
	seen := make(map[string]bool)
	for _, segment := range data.Segments {
		if segment.LocationID == "" || seen[segment.LocationID] {
			continue
		}
		seen[segment.LocationID] = true
		d.LocationIDs = append(d.LocationIDs, segment.LocationID)
	}
	sort.Strings(d.LocationIDs)
}

// addSkippingNaN accumulates a value into a sum unless it is NaN. The
// aggregations treat NaN as a missing value, an all-NaN group sums to
// zero.
func addSkippingNaN(sum *float64, value float64) {
	if math.IsNaN(value) {
		return
	}
	*sum += value
}
