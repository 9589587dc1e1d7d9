package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
)

var fProcessOut *string
var fSkipExtrapolation *bool

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Runs the processing pipeline and exports the data package",
	Long: `Merges the raw data workbooks, joins the assumption tables, derives the
archetype building statistics and writes the csv exports together with their
datapackage.json descriptor.`,
	RunE: RunAndHandleError(runProcess),
}

// resolveOutputDir returns the export directory, the --out flag when
// given and the configured output path inside the data repository
// otherwise.
func resolveOutputDir() (string, error) {
	if *fProcessOut != "" {
		return *fProcessOut, nil
	}
	basePath, err := sources.PathOfSource(baseSource)
	if err != nil {
		return "", err
	}
	return filepath.Join(string(basePath), a2aConfig.OutputPath), nil
}

// the run command for process
func runProcess(command *cobra.Command, args []string) error {
	data, err := loadDataset(*fSkipExtrapolation)
	if err != nil {
		return err
	}

	stockData := data.Stock()
	fmt.Printf("Processed %d segments into %d building stocks.\n",
		len(stockData.Segments), len(data.BuildingStocks))

	var issues []diagnostics.Issue
	issues = append(issues, stockData.Assumptions.Issues...)
	issues = append(issues, stockData.Issues...)
	issues = append(issues, data.Issues...)
	if major, minor, note := diagnostics.CountBySeverity(issues); major+minor+note > 0 {
		fmt.Printf("Found %d major, %d minor and %d note issues, `ambience2abm validate` lists them.\n",
			major, minor, note)
	}

	outDir, err := resolveOutputDir()
	if err != nil {
		return err
	}

	fmt.Println("Exporting to:", outDir)
	if err := data.ExportCSVs(outDir); err != nil {
		return errors.Wrap(err, "export csv tables")
	}
	if err := data.WriteDataPackage(outDir); err != nil {
		return errors.Wrap(err, "write data package descriptor")
	}
	return nil
}

// Registers the process command
func init() {
	fProcessOut = processCmd.PersistentFlags().String("out", "", "Output directory, the configured output path of the data repository when empty.")
	fSkipExtrapolation = processCmd.PersistentFlags().Bool("skip-extrapolation", false, "Export only countries present in the raw data.")
	rootCmd.AddCommand(processCmd)
}
