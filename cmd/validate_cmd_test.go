package cmd

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/abm"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fixture paths are relative to the repository root, so the tests
// run from the parent directory.
func TestMain(m *testing.M) {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Fatal("Could not get current directory")
	}
	parentDir := filepath.Dir(workingDir)
	os.Chdir(parentDir)

	os.Exit(m.Run())
}

// loadFixtureIssues runs the full load and process pipeline over the
// named workbook fixture pair and collects the issues of every stage,
// the same way runValidate gathers them.
func loadFixtureIssues(t *testing.T, fixture string) []diagnostics.Issue {
	t.Helper()
	sources.ClearAllSources()
	sources.RegisterSource("base", ".")
	cfg, err := config.ParseConfig(".")
	require.NoError(t, err)
	cfg.BuildingProperties = config.Workbook{Path: "stock/testdata/" + fixture + "/building_properties.csv"}
	cfg.HeatingSystems = config.Workbook{Path: "stock/testdata/" + fixture + "/heating_systems.csv", SkipRows: []int{0}}
	asm, err := assumptions.Load("base", cfg.AssumptionsPath, &cfg)
	require.NoError(t, err)
	data, err := stock.Load("base", &cfg, asm)
	require.NoError(t, err)
	derived := abm.Process(data)

	issues := append([]diagnostics.Issue{}, asm.Issues...)
	issues = append(issues, data.Issues...)
	issues = append(issues, derived.Issues...)
	return issues
}

func RunValidate(issues []diagnostics.Issue, onlyErrors bool) (string, int, int) {
	// prepare capture of stdout
	rescueStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	// run the command
	criticalCount, lintCount := validate(issues, onlyErrors)
	// save stdout data and reset
	w.Close()
	buf, _ := ioutil.ReadAll(r)
	os.Stdout = rescueStdout

	return string(buf), criticalCount, lintCount
}

func splitLines(s string) (ret []string) {
	for _, s := range strings.Split(s, "\n") {
		if s != "" {
			ret = append(ret, s)
		}
	}
	return
}

// checkValidate fails the test if validation behaves unexpectedly.
func checkValidate(t *testing.T, issues []diagnostics.Issue, expectedCriticalRaw, expectedLintRaw string) {
	expectedCritical := splitLines(expectedCriticalRaw)
	expectedLint := splitLines(expectedLintRaw)

	checkValidateOutput(t, issues, true, expectedCritical, []string{})
	checkValidateOutput(t, issues, false, expectedCritical, expectedLint)
}

func checkValidateOutput(t *testing.T, issues []diagnostics.Issue, onlyErrors bool, expectedCritical, expectedLint []string) {
	output, criticalCount, lintCount := RunValidate(issues, onlyErrors)
	assert.Equal(t, criticalCount, len(expectedCritical), output)
	assert.Equal(t, lintCount, len(expectedLint), output)

	reportedErrors := splitLines(output)
	expected := append(expectedCritical, expectedLint...)
	for _, m := range expected {
		found := false
		for i, e := range reportedErrors {
			if e == m {
				reportedErrors = append(reportedErrors[:i], reportedErrors[i+1:]...)
				found = true
				break
			}
		}
		assert.Truef(t, found, "One of the expected errors `%s` is missing from the reported errors:\n%s", m, output)
	}

	assert.Empty(t, reportedErrors, "Got unexpected errors")
}

func TestValidateCleanStock(t *testing.T) {
	issues := loadFixtureIssues(t, "valid")
	checkValidate(t, issues, "", "")
}

func TestValidateBrokenStock(t *testing.T) {
	issues := loadFixtureIssues(t, "broken")

	// The raw messages contain backticks, so no raw string literal here
	expected := strings.Join([]string{
		"duplicate heating system row for building typology `AT.BAD.YEARS`, first one wins",
		"no heating system data for reference building `AT.NO.HEATSYS`, segment dropped",
		"segment without a reference building code",
		"segment `AT.BAD.YEARS` construction years run backwards: 1990-1980",
		"column `NUMBER OF REFERENCE BUILDINGS IN THE BUILDING STOCK SEGMENT`: `many` is not a number",
		"segment `AT.BAD.NUM` column `REFERENCE BUILDING WINDOW COATED`: `maybe` is not a boolean",
		"segment `AT.BAD.NUM` column `HEATING SYSTEM 1 PREVALENCY ON BUILDING STOCK`: `lots` is not a number",
		"segment `AT.BAD.PREV` heating system prevalencies sum to zero",
		"segment `AT.BAD.NUM` heating system prevalencies sum to zero",
		"segment `ZZ.NO.MAPPING` country `ZZ` has no shapefile mapping",
		"segment `ZZ.NO.MAPPING` building type `Palaces` has no building type mapping",
		"material combination group Offices / 2000-2010 / AT has zero total floor area",
		"segment `AT.NO.GFA` has no usable floor area, its weight is undefined",
	}, "\n")

	checkValidate(t, issues, expected, "")
}

func TestValidateSeverityTally(t *testing.T) {
	issues := []diagnostics.Issue{
		{Severity: diagnostics.IssueSeverityMajor, Type: diagnostics.IssueTypeBadCell, Error: errors.New("the major finding")},
		{Severity: diagnostics.IssueSeverityMinor, Type: diagnostics.IssueTypeWeightAnomaly, Error: errors.New("the minor finding")},
		{Severity: diagnostics.IssueSeverityNote, Type: diagnostics.IssueTypeMissingAssumption, Error: errors.New("the advisory finding")},
	}

	checkValidate(t, issues, "the major finding\nthe minor finding", "the advisory finding")
}

func TestValidateJsonIssues(t *testing.T) {
	issues := []diagnostics.Issue{
		{
			Source:   "base",
			Path:     "raw_data/properties.csv",
			Line:     7,
			Severity: diagnostics.IssueSeverityMajor,
			Type:     diagnostics.IssueTypeBadCell,
			Error:    errors.New("column `Q`: `q` is not a number"),
		},
		{
			Source:   "base",
			Path:     "data_assumptions/building_type_mappings.csv",
			Line:     3,
			Severity: diagnostics.IssueSeverityNote,
			Type:     diagnostics.IssueTypeMissingAssumption,
			Error:    errors.New("building type `Offices` has no raster weight path"),
		},
	}

	var buf bytes.Buffer
	buildJsonIssues(issues, json.NewEncoder(&buf))

	lines := splitLines(buf.String())
	require.Len(t, lines, 2)

	var first LintMessage
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, first, LintMessage{
		Name:        "Malformed cell",
		Code:        "AMB3",
		Severity:    "error",
		Path:        "raw_data/properties.csv",
		Line:        7,
		Description: "column `Q`: `q` is not a number",
	})

	var second LintMessage
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, second.Name, "Missing assumption")
	assert.Equal(t, second.Code, "AMB8")
	assert.Equal(t, second.Severity, "note")
}
