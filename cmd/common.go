package cmd

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/linepipes"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
	"github.com/spine-tools/ambience2abm/util"
)

var rootCmd = &cobra.Command{
	Use:   "ambience2abm",
	Short: "Ambience2abm processes the AmBIENCe building stock data.",
	Long: `Ambience2abm operates on a data repository holding the raw AmBIENCe EU27
building stock workbooks and a set of assumption tables.  The workbooks are
merged, joined against the assumptions and aggregated into the building stock
input data of ArchetypeBuildingModel.jl.`,
	Version: fmt.Sprintf("%d.%d.%d", util.Version.Major, util.Version.Minor, util.Version.Revision),
}
var a2aConfig *config.Config
var baseSource sources.SourceName

// Sets up the global a2aConfig variable and registers the data repository
// as the base source
func setupConfiguration() error {
	basePath, err := sources.BasePath()
	if err != nil {
		return err
	}
	baseSource, err = sources.BaseName()
	if err != nil {
		return err
	}
	sources.RegisterSource(baseSource, basePath)

	cfg, err := config.ParseConfig(basePath)
	if err != nil {
		return errors.Wrap(err, "Error parsing `ambience2abm_config.json` file in current data repository")
	}

	a2aConfig = &cfg
	return nil
}

// loadStock reads the assumption tables and the raw data workbooks into a
// preprocessed building stock, extrapolated to the configured extra
// countries unless told otherwise.
func loadStock(skipExtrapolation bool) (*stock.Dataset, error) {
	if err := setupConfiguration(); err != nil {
		return nil, errors.Wrap(err, "setup configuration")
	}

	set, err := assumptions.Load(baseSource, a2aConfig.AssumptionsPath, a2aConfig)
	if err != nil {
		return nil, errors.Wrap(err, "load assumption tables")
	}
	data, err := stock.Load(baseSource, a2aConfig, set)
	if err != nil {
		return nil, errors.Wrap(err, "load building stock")
	}
	if !skipExtrapolation {
		if err := data.Extrapolate(); err != nil {
			return nil, errors.Wrap(err, "extrapolate building stock")
		}
	}
	return data, nil
}

// loadDataset runs the pipeline all the way to the derived archetype
// building statistics.
func loadDataset(skipExtrapolation bool) (*abm.Dataset, error) {
	data, err := loadStock(skipExtrapolation)
	if err != nil {
		return nil, err
	}
	return abm.Process(data), nil
}

// Provides completions for the listable table names
func completeTableName(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	possibleCompletions := []string{}
	if len(args) >= 1 {
		return possibleCompletions, cobra.ShellCompDirectiveNoFileComp
	}
	for _, name := range append([]string{tableSegments}, assumptions.TableNames...) {
		if strings.HasPrefix(name, toComplete) {
			possibleCompletions = append(possibleCompletions, name)
		}
	}
	return possibleCompletions, cobra.ShellCompDirectiveNoFileComp
}

// buildFilter compiles the segment filter flags shared by the list and
// report commands.
func buildFilter(code, country, buildingType, period, heatSource string) (*stock.SegmentFilter, error) {
	filter := &stock.SegmentFilter{HeatSourceOnly: heatSource}
	var err error
	if code != "" {
		if filter.CodeRegexp, err = regexp.Compile(code); err != nil {
			return nil, errors.Wrap(err, "code filter")
		}
	}
	if country != "" {
		if filter.CountryRegexp, err = regexp.Compile(country); err != nil {
			return nil, errors.Wrap(err, "country filter")
		}
	}
	if buildingType != "" {
		if filter.TypeRegexp, err = regexp.Compile(buildingType); err != nil {
			return nil, errors.Wrap(err, "type filter")
		}
	}
	if period != "" {
		if filter.PeriodRegexp, err = regexp.Compile(period); err != nil {
			return nil, errors.Wrap(err, "period filter")
		}
	}
	return filter, nil
}

// Initializes the root command flags
func init() {
	rootCmd.PersistentFlags().BoolVarP(&linepipes.Verbose, "verbose", "v", false, "Enable verbose logs.")
}

// Runs the root command and defers the cleanup of the temporary download
// directories until it exits.
func RunRootCommand() error {
	defer sources.CleanupTemporaryDirectories()
	return rootCmd.Execute()
}

// RunAndHandleError returns a RunE function that runs the specified RunE
// function and exits if it returns an error.
func RunAndHandleError(runE func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	// Wrap the specified runE func in a new func with the same signature.
	return func(cmd *cobra.Command, args []string) error {
		// At some place in Cobra they lose track of whether the error is
		// returned by a RunE function or it's an arguments parsing error.
		// That's why we need to handle our errors ourselves and exit with an
		// appropriate error code.
		// See https://github.com/spf13/cobra/issues/914
		if errRun := runE(cmd, args); errRun != nil {
			// For example: "github.com/spine-tools/ambience2abm/cmd.runProcess"
			s := runtime.FuncForPC(reflect.ValueOf(runE).Pointer()).Name()
			s = s[strings.LastIndex(s, "/")+1:]
			fmt.Println(errors.Wrap(errRun, s))
			os.Exit(1)
		}
		return nil
	}
}
