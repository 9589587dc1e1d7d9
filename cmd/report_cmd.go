package cmd

import (
	"log"
	"os"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/report"
)

var (
	reportPrefix           *string
	reportCodeFilter       *string
	reportCountryFilter    *string
	reportTypeFilter       *string
	reportPeriodFilter     *string
	reportHeatSourceFilter *string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Creates an HTML building stock report",
	Long:  "Creates an HTML building stock report",
}

var reportStockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Creates an HTML report of the building stocks and their segments",
	Long:  "Creates an HTML report of the building stocks and their segments",
	RunE:  RunAndHandleError(runReportStockCmd),
}
var reportStatisticsCmd = &cobra.Command{
	Use:   "statistics",
	Short: "Creates an HTML report of the derived archetype building statistics",
	Long:  "Creates an HTML report of the derived archetype building statistics",
	RunE:  RunAndHandleError(runReportStatisticsCmd),
}

var reportIssuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Creates an HTML report with all issues found in the building stock data",
	Long:  "Creates an HTML report with all issues found in the building stock data",
	RunE:  RunAndHandleError(runReportIssuesCmd),
}

// Registers the report commands
func init() {
	reportPrefix = reportCmd.PersistentFlags().String("pfx", "./abm-", "Path and filename prefix for reports.")
	reportCodeFilter = reportCmd.PersistentFlags().String("code", "", "Regular expression to filter by reference building code.")
	reportCountryFilter = reportCmd.PersistentFlags().String("country", "", "Regular expression to filter by country code.")
	reportTypeFilter = reportCmd.PersistentFlags().String("type", "", "Regular expression to filter by building type.")
	reportPeriodFilter = reportCmd.PersistentFlags().String("period", "", "Regular expression to filter by construction period.")
	reportHeatSourceFilter = reportCmd.PersistentFlags().String("heat-source", "", "Only report segments heated by this heat source.")

	reportCmd.AddCommand(reportStockCmd)
	reportCmd.AddCommand(reportStatisticsCmd)
	reportCmd.AddCommand(reportIssuesCmd)
	rootCmd.AddCommand(reportCmd)
}

// runReportStockCmd processes the building stock data and generates a
// stock html report, showing every building stock and its segments
func runReportStockCmd(command *cobra.Command, args []string) error {
	data, err := loadDataset(false)
	if err != nil {
		return errors.Wrap(err, "load building stock data")
	}

	of, err := os.Create(*reportPrefix + "stock.html")
	if err != nil {
		return err
	}
	log.Print("Creating ", of.Name(), " (this may take a while)...")
	if err := report.ReportStock(data, of); err != nil {
		return err
	}
	of.Close()

	filter, err := buildFilter(*reportCodeFilter, *reportCountryFilter, *reportTypeFilter,
		*reportPeriodFilter, *reportHeatSourceFilter)
	if err != nil {
		return err
	}
	if !filter.IsEmpty() {
		of, err := os.Create(*reportPrefix + "stock-filtered.html")
		if err != nil {
			return err
		}
		log.Print("Creating ", of.Name(), " (this may take a while)...")
		if err := report.ReportStockFiltered(data, of, filter); err != nil {
			return err
		}
		of.Close()
	}

	return nil
}

// runReportStatisticsCmd processes the building stock data and generates
// a statistics html report, showing the derived output tables
func runReportStatisticsCmd(command *cobra.Command, args []string) error {
	data, err := loadDataset(false)
	if err != nil {
		return errors.Wrap(err, "load building stock data")
	}

	of, err := os.Create(*reportPrefix + "statistics.html")
	if err != nil {
		return err
	}
	log.Print("Creating ", of.Name(), " (this may take a while)...")
	if err := report.ReportStatistics(data, of); err != nil {
		return err
	}
	of.Close()

	filter, err := buildFilter(*reportCodeFilter, *reportCountryFilter, *reportTypeFilter,
		*reportPeriodFilter, *reportHeatSourceFilter)
	if err != nil {
		return err
	}
	if !filter.IsEmpty() {
		of, err := os.Create(*reportPrefix + "statistics-filtered.html")
		if err != nil {
			return err
		}
		log.Print("Creating ", of.Name(), " (this may take a while)...")
		if err := report.ReportStatisticsFiltered(data, of, filter); err != nil {
			return err
		}
		of.Close()
	}

	return nil
}

// runReportIssuesCmd processes the building stock data and generates an
// issues html report, showing any validation problems
func runReportIssuesCmd(command *cobra.Command, args []string) error {
	data, err := loadDataset(false)
	if err != nil {
		return errors.Wrap(err, "load building stock data")
	}

	of, err := os.Create(*reportPrefix + "issues.html")
	if err != nil {
		return err
	}
	log.Print("Creating ", of.Name(), " (this may take a while)...")
	if err := report.ReportIssues(data, of); err != nil {
		return err
	}
	of.Close()

	filter, err := buildFilter(*reportCodeFilter, *reportCountryFilter, *reportTypeFilter,
		*reportPeriodFilter, *reportHeatSourceFilter)
	if err != nil {
		return err
	}
	if !filter.IsEmpty() {
		of, err := os.Create(*reportPrefix + "issues-filtered.html")
		if err != nil {
			return err
		}
		log.Print("Creating ", of.Name(), " (this may take a while)...")
		if err := report.ReportIssuesFiltered(data, of, filter); err != nil {
			return err
		}
		of.Close()
	}

	return nil
}
