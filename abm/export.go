/*
 * Csv export of the derived tables
 */
package abm

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// The exported csv files in their export order.
const (
	FileBuildingPeriod             = "building_period.csv"
	FileBuildingStock              = "building_stock.csv"
	FileStructureType              = "structure_type.csv"
	FileBuildingStockStatistics    = "building_stock_statistics.csv"
	FileStructureStatistics        = "structure_statistics.csv"
	FileVentilationAndFenestration = "ventilation_and_fenestration_statistics.csv"
	FileLocationID                 = "location_id.csv"
)

// ExportFiles lists every csv file ExportCSVs writes.
var ExportFiles = []string{
	FileBuildingPeriod,
	FileBuildingStock,
	FileStructureType,
	FileBuildingStockStatistics,
	FileStructureStatistics,
	FileVentilationAndFenestration,
	FileLocationID,
}

// ExportCSVs writes the seven output tables under dir, creating it if
// needed. Rows are ordered by their keys so repeated exports of the
// same data are identical.
func (d *Dataset) ExportCSVs(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating the output directory `%s`", dir)
	}

	var rows [][]string
	for _, period := range d.BuildingPeriods {
		rows = append(rows, []string{period.BuildingPeriod, strconv.Itoa(period.PeriodStart), strconv.Itoa(period.PeriodEnd)})
	}
	if err := writeCsv(dir, FileBuildingPeriod,
		[]string{"building_period", "period_start", "period_end"}, rows); err != nil {
		return err
	}

	rows = nil
	for _, stock := range d.BuildingStocks {
		rows = append(rows, []string{
			stock.BuildingStock,
			strconv.Itoa(stock.BuildingStockYear),
			stock.ShapefilePath,
			stock.RasterWeightPath,
			stock.Notes,
		})
	}
	if err := writeCsv(dir, FileBuildingStock,
		[]string{"building_stock", "building_stock_year", "shapefile_path", "raster_weight_path", "notes"}, rows); err != nil {
		return err
	}

	// The mapping column stays internal to the processing, it has no
	// meaning for the exported model.
	rows = nil
	for _, structureType := range d.StructureTypes {
		rows = append(rows, []string{
			structureType.Name,
			formatFloat(structureType.InteriorResistance),
			formatFloat(structureType.ExteriorResistance),
			formatFloat(structureType.LinearThermalBridge),
			strconv.FormatBool(structureType.IsInternal),
			structureType.Notes,
		})
	}
	if err := writeCsv(dir, FileStructureType,
		[]string{"structure_type", "interior_resistance_m2K_W", "exterior_resistance_m2K_W", "linear_thermal_bridge_W_mK", "is_internal", "notes"}, rows); err != nil {
		return err
	}

	rows = nil
	for _, statistic := range d.StockStatistics {
		rows = append(rows, []string{
			statistic.BuildingStock,
			statistic.BuildingType,
			statistic.BuildingPeriod,
			statistic.LocationID,
			statistic.HeatSource,
			formatFloat(statistic.NumberOfBuildings),
			formatFloat(statistic.AverageFloorAreaM2),
		})
	}
	if err := writeCsv(dir, FileBuildingStockStatistics,
		[]string{"building_stock", "building_type", "building_period", "location_id", "heat_source", "number_of_buildings", "average_gross_floor_area_m2_per_building"}, rows); err != nil {
		return err
	}

	rows = nil
	for _, statistic := range d.StructureStatistics {
		rows = append(rows, []string{
			statistic.BuildingType,
			statistic.BuildingPeriod,
			statistic.LocationID,
			statistic.StructureType,
			formatFloat(statistic.DesignUValue),
			formatFloat(statistic.EffectiveThermalMass),
			formatFloat(statistic.LinearThermalBridges),
			formatFloat(statistic.ExternalUToAmbientAir),
			formatFloat(statistic.ExternalUToGround),
			formatFloat(statistic.InternalUToStructure),
			formatFloat(statistic.TotalUValue),
		})
	}
	if err := writeCsv(dir, FileStructureStatistics,
		[]string{"building_type", "building_period", "location_id", "structure_type", "design_U_value_W_m2K", "effective_thermal_mass_J_m2K", "linear_thermal_bridges_W_mK", "external_U_value_to_ambient_air_W_m2K", "external_U_value_to_ground_W_m2K", "internal_U_value_to_structure_W_m2K", "total_U_value_W_m2K"}, rows); err != nil {
		return err
	}

	rows = nil
	for _, statistic := range d.VentilationAndFenestration {
		rows = append(rows, []string{
			statistic.BuildingType,
			statistic.BuildingPeriod,
			statistic.LocationID,
			formatFloat(statistic.HRUEfficiency),
			formatFloat(statistic.InfiltrationRate),
			formatFloat(statistic.TotalSolarTransmittance),
			formatFloat(statistic.VentilationRate),
			formatFloat(statistic.WindowUValue),
		})
	}
	if err := writeCsv(dir, FileVentilationAndFenestration,
		[]string{"building_type", "building_period", "location_id", "HRU_efficiency", "infiltration_rate_1_h", "total_normal_solar_energy_transmittance", "ventilation_rate_1_h", "window_U_value_W_m2K"}, rows); err != nil {
		return err
	}

	rows = nil
	for _, locationID := range d.LocationIDs {
		rows = append(rows, []string{locationID})
	}
	return writeCsv(dir, FileLocationID, []string{"location_id"}, rows)
}

func writeCsv(dir, name string, header []string, rows [][]string) error {
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating `%s`", path)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing `%s`", path)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return errors.Wrapf(err, "writing `%s`", path)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing `%s`", path)
	}
	return file.Close()
}

// formatFloat renders a value the way the exports always have, the
// shortest decimal form that round-trips. Missing values export as
// empty cells.
func formatFloat(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
