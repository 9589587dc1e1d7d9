package cmd

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/daedaleanai/cobra"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/stock"
)

var (
	listCodeFilter       *string
	listCountryFilter    *string
	listTypeFilter       *string
	listPeriodFilter     *string
	listHeatSourceFilter *string

	listCsvFormat *bool
)

// The pseudo table name listing the merged building stock segments
// instead of an assumption table.
const tableSegments = "segments"

var listCmd = &cobra.Command{
	Use:               "list TABLE",
	Short:             "Parses and lists the rows of an assumption table or the building stock segments",
	Long:              "Parses and lists the rows of an assumption table, or the merged building stock segments when TABLE is `segments`. Takes a table name as a single argument",
	Args:              cobra.ExactValidArgs(1),
	ValidArgsFunction: completeTableName,
	RunE:              RunAndHandleError(runListCmd),
}

// list the rows of the given table
func runListCmd(command *cobra.Command, args []string) error {
	tableName := args[0]

	if tableName == tableSegments {
		data, err := loadStock(false)
		if err != nil {
			return err
		}
		filter, err := buildFilter(*listCodeFilter, *listCountryFilter, *listTypeFilter,
			*listPeriodFilter, *listHeatSourceFilter)
		if err != nil {
			return err
		}
		segments := data.FilteredSegments(filter)
		if *listCsvFormat {
			printSegmentsCsv(segments)
		} else {
			printSegmentsConcise(segments)
		}
		return nil
	}

	if err := setupConfiguration(); err != nil {
		return err
	}
	set, err := assumptions.Load(baseSource, a2aConfig.AssumptionsPath, a2aConfig)
	if err != nil {
		return err
	}
	header, rows, err := assumptionRows(set, tableName)
	if err != nil {
		return err
	}
	if *listCsvFormat {
		printCsv(header, rows)
	} else {
		printConcise(rowLabel(tableName), rows)
	}
	return nil
}

// printSegmentsConcise prints to stdout the segments in a concise format
// (code, grouping columns and the building stock label)
func printSegmentsConcise(segments []*stock.Segment) {
	for _, s := range segments {
		fmt.Printf("Segment %s %s %s %s\n", s.Code, s.BuildingType, s.BuildingPeriod, s.LocationID)
		if s.BuildingStock != "" {
			fmt.Printf("%s…\n", s.BuildingStock)
		}
		fmt.Println()
	}
}

var segmentColumns = []string{
	"code",
	"building_type",
	"building_period",
	"location_id",
	"building_stock",
	"number_of_buildings",
	"average_floor_area_m2",
	"material_combination_weight",
	"extrapolated_from",
}

// printSegmentsCsv prints to stdout the segments in csv format
func printSegmentsCsv(segments []*stock.Segment) {
	rows := make([][]string, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []string{
			s.Code,
			s.BuildingType,
			s.BuildingPeriod,
			s.LocationID,
			s.BuildingStock,
			formatNumber(s.NumberOfBuildings),
			formatNumber(s.AverageFloorAreaM2),
			formatNumber(s.MaterialCombinationWeight),
			s.ExtrapolatedFrom,
		})
	}
	printCsv(segmentColumns, rows)
}

// assumptionRows flattens one parsed assumption table into its canonical
// columns.
func assumptionRows(set *assumptions.Set, tableName string) ([]string, [][]string, error) {
	switch tableName {
	case assumptions.TableStructureTypes:
		header := []string{"structure_type", "interior_resistance_m2K_W", "exterior_resistance_m2K_W",
			"linear_thermal_bridge_W_mK", "is_internal", "mapping", "notes"}
		var rows [][]string
		for _, st := range set.SortedStructureTypes() {
			rows = append(rows, []string{
				st.Name,
				formatNumber(st.InteriorResistance),
				formatNumber(st.ExteriorResistance),
				formatNumber(st.LinearThermalBridge),
				strconv.FormatBool(st.IsInternal),
				st.Mapping,
				st.Notes,
			})
		}
		return header, rows, nil

	case assumptions.TableBuildingTypeMappings:
		header := []string{"building_type", "category", "raster_weight_path"}
		var rows [][]string
		for _, mapping := range set.SortedBuildingTypes() {
			rows = append(rows, []string{mapping.BuildingType, mapping.Category, mapping.RasterWeightPath})
		}
		return header, rows, nil

	case assumptions.TableShapefileMappings:
		header := []string{"country", "shapefile_path", "notes"}
		var rows [][]string
		for _, mapping := range set.SortedShapefileMappings() {
			rows = append(rows, []string{mapping.Country, mapping.ShapefilePath, mapping.Notes})
		}
		return header, rows, nil

	case assumptions.TableFenestration:
		header := []string{"glazing_type", "coated", "normal_solar_energy_transmittance",
			"frame_area_fraction", "notes"}
		var rows [][]string
		for _, fenestration := range set.SortedFenestrations() {
			rows = append(rows, []string{
				fenestration.GlazingType,
				strconv.FormatBool(fenestration.Coated),
				formatNumber(fenestration.NormalSolarEnergyTransmittance),
				formatNumber(fenestration.FrameAreaFraction),
				fenestration.Notes,
			})
		}
		return header, rows, nil

	case assumptions.TableVentilation:
		header := []string{"HRU_efficiency", "infiltration_rate_1_h", "ventilation_rate_1_h", "notes"}
		var rows [][]string
		if ventilation := set.Ventilation; ventilation != nil {
			rows = append(rows, []string{
				formatNumber(ventilation.HRUEfficiency),
				formatNumber(ventilation.InfiltrationRate),
				formatNumber(ventilation.VentilationRate),
				ventilation.Notes,
			})
		}
		return header, rows, nil
	}
	return nil, nil, fmt.Errorf("Could not find table `%s` in the list of tables", tableName)
}

// rowLabel turns a table name into the label printed in front of each
// concise row, e.g. "structure_types" becomes "Structure Type".
func rowLabel(tableName string) string {
	return cases.Title(language.BritishEnglish).String(
		strings.ReplaceAll(strings.TrimSuffix(strings.TrimSuffix(tableName, "s"), "_mapping"), "_", " "))
}

// printConcise prints to stdout the rows in a concise format (label, key
// column and the remaining columns on one line)
func printConcise(label string, rows [][]string) {
	for _, row := range rows {
		fmt.Printf("%s %s\n", label, row[0])
		rest := make([]string, 0, len(row)-1)
		for _, cell := range row[1:] {
			if cell == "" {
				continue
			}
			rest = append(rest, cell)
		}
		if len(rest) > 0 {
			fmt.Printf("%s…\n", strings.Join(rest, " "))
		}
		fmt.Println()
	}
}

// printCsv prints to stdout the rows in csv format with title-cased
// headers
func printCsv(header []string, rows [][]string) {
	csvwriter := csv.NewWriter(os.Stdout)
	titler := cases.Title(language.BritishEnglish)
	titled := make([]string, len(header))
	for i, name := range header {
		titled[i] = titler.String(strings.ReplaceAll(name, "_", " "))
	}
	csvwriter.Write(titled)
	for _, row := range rows {
		csvwriter.Write(row)
	}
	csvwriter.Flush()
}

// formatNumber renders a float cell, NaN becomes an empty cell like in
// the source tables.
func formatNumber(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// Registers the list command
func init() {
	listCodeFilter = listCmd.PersistentFlags().String("code", "", "Regular expression to filter segments by reference building code.")
	listCountryFilter = listCmd.PersistentFlags().String("country", "", "Regular expression to filter segments by country code.")
	listTypeFilter = listCmd.PersistentFlags().String("type", "", "Regular expression to filter segments by building type.")
	listPeriodFilter = listCmd.PersistentFlags().String("period", "", "Regular expression to filter segments by construction period.")
	listHeatSourceFilter = listCmd.PersistentFlags().String("heat-source", "", "Only list segments heated by this heat source.")

	listCsvFormat = listCmd.PersistentFlags().Bool("csv", false, "Output in csv format.")

	rootCmd.AddCommand(listCmd)
}
