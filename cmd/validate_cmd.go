package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/daedaleanai/cobra"
	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/geo"
)

var fValidateStrict *bool
var fValidateJson *string
var fOnlyErrors *bool
var fValidateShapefiles *bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validates the assumption tables and the raw building stock data",
	Long:  `Runs the validation checks for the assumption tables and the raw building stock data`,
	RunE:  runValidate,
}

type LintMessage struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Severity    string `json:"severity"`
	Path        string `json:"path"`
	Line        int    `json:"line"`
	Char        int    `json:"char"`
	Description string `json:"description"`
}

// Translates the severity code into a value valid for the json output
func translateSeverityCode(severity diagnostics.IssueSeverity) string {
	switch severity {
	case diagnostics.IssueSeverityMajor:
		return "error"
	case diagnostics.IssueSeverityMinor:
		return "warning"
	case diagnostics.IssueSeverityNote:
		return "note"
	}
	return "error"
}

// Builds a Json file with the issues found while loading and processing
// the building stock data.
func buildJsonIssues(issues []diagnostics.Issue, jsonWriter *json.Encoder) {
	for _, issue := range issues {
		var name string
		var code string
		switch issue.Type {
		case diagnostics.IssueTypeMissingColumn:
			name = "Missing column"
			code = "AMB1"
		case diagnostics.IssueTypeUnknownColumn:
			name = "Unknown column"
			code = "AMB2"
		case diagnostics.IssueTypeBadCell:
			name = "Malformed cell"
			code = "AMB3"
		case diagnostics.IssueTypeDuplicateKey:
			name = "Duplicate key"
			code = "AMB4"
		case diagnostics.IssueTypeUnknownBuildingType:
			name = "Unknown building type"
			code = "AMB5"
		case diagnostics.IssueTypeUnknownCountry:
			name = "Unknown country"
			code = "AMB6"
		case diagnostics.IssueTypeUnknownGlazing:
			name = "Unknown glazing type"
			code = "AMB7"
		case diagnostics.IssueTypeMissingAssumption:
			name = "Missing assumption"
			code = "AMB8"
		case diagnostics.IssueTypeBadFraction:
			name = "Fraction out of range"
			code = "AMB9"
		case diagnostics.IssueTypePrevalencyAnomaly:
			name = "Heating system prevalency anomaly"
			code = "AMB10"
		case diagnostics.IssueTypePeriodAnomaly:
			name = "Construction period anomaly"
			code = "AMB11"
		case diagnostics.IssueTypeWeightAnomaly:
			name = "Material combination weight anomaly"
			code = "AMB12"
		case diagnostics.IssueTypeMissingFile:
			name = "Missing mapped file"
			code = "AMB13"
		case diagnostics.IssueTypeUnreadableShapefile:
			name = "Unreadable shapefile"
			code = "AMB14"
		case diagnostics.IssueTypeUnmatchedSegment:
			name = "Unmatched segment"
			code = "AMB15"
		default:
			log.Fatal("Unhandled IssueType: %r", issue.Type)
		}

		jsonWriter.Encode(LintMessage{
			Name:        name,
			Code:        code,
			Severity:    translateSeverityCode(issue.Severity),
			Path:        issue.Path,
			Line:        issue.Line,
			Char:        0,
			Description: issue.Error.Error(),
		})
	}
}

// validate prints out the gathered issues and tallies them. Notes only
// count when printed, onlyErrors suppresses them.
func validate(issues []diagnostics.Issue, onlyErrors bool) (criticalCount, lintCount int) {
	for _, issue := range issues {
		if issue.Severity != diagnostics.IssueSeverityNote {
			criticalCount++
		} else {
			if onlyErrors {
				continue
			}
			lintCount++
		}
		fmt.Println(issue.Error)
	}
	return criticalCount, lintCount
}

// the run command for validate
func runValidate(command *cobra.Command, args []string) error {
	data, err := loadStock(false)
	if err != nil {
		return err
	}
	derived := abm.Process(data)

	issues := append([]diagnostics.Issue{}, data.Assumptions.Issues...)
	issues = append(issues, data.Issues...)
	issues = append(issues, derived.Issues...)
	if *fValidateShapefiles {
		issues = append(issues, geo.Check(baseSource, data)...)
	}

	criticalCount, _ := validate(issues, *fOnlyErrors)

	if *fValidateJson != "" {
		file, fileErr := os.Create(*fValidateJson)
		if fileErr != nil {
			log.Fatalf("Could not create json file %v\n", fileErr)
		}
		defer file.Close()

		jsonWriter := json.NewEncoder(file)
		buildJsonIssues(issues, jsonWriter)
	}

	if criticalCount > 0 {
		if *fValidateStrict {
			log.Fatal("ERROR. Validation failed")
		}
		fmt.Println("WARNING. Validation failed")
	} else {
		fmt.Println("Validation passed")
	}

	// The return error is used when the issued command is not valid, not in the
	// case the command actually fails to run. Since no args are used by this command,
	// we can always return nil
	return nil
}

// Registers the validate command
func init() {
	fValidateStrict = validateCmd.PersistentFlags().Bool("strict", false, "Exit with error if any validation checks fail")
	fValidateJson = validateCmd.PersistentFlags().String("json", "", "Outputs a json file with lint messages in addition to a textual representation of the errors")
	fOnlyErrors = validateCmd.PersistentFlags().Bool("only-errors", false, "Only outputs actual errors")
	fValidateShapefiles = validateCmd.PersistentFlags().Bool("shapefiles", false, "Also verify the mapped shapefiles and raster weight datasets on disk")
	rootCmd.AddCommand(validateCmd)
}
