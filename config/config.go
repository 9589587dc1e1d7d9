// Reads configuration data from an ambience2abm_config.json file

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/sources"
)

// Defaults applied when the configuration file leaves the scalar
// processing parameters unset.
const (
	// Year the AmBIENCe building stock describes.
	DefaultBuildingStockYear = 2016
	// Assumed depth of the temperature node inside structures, as a
	// fraction of the structure's thermal resistance from the interior
	// surface.
	DefaultInteriorNodeDepth = 0.1
	// Period of variations in seconds for the effective thermal mass,
	// EN ISO 13786:2017 Annex C.2.4 with a two week period.
	DefaultPeriodOfVariations = 1209600.0
)

/// Internal types for parsing json files

type jsonColumnCheck struct {
	Name     string `json:"name"`
	Required string `json:"required"`
	Value    string `json:"value"`
}

type jsonWorkbook struct {
	SourceUrl string `json:"sourceUrl"`
	Path      string `json:"path"`
	Sheet     string `json:"sheet"`
	SkipRows  []int  `json:"skipRows"`
}

type jsonExtrapolation struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	ScalingFactor float64 `json:"scalingFactor"`
	Tag           string  `json:"tag"`
}

type jsonLicense struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

type jsonSource struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type jsonContributor struct {
	Title        string `json:"title"`
	Email        string `json:"email"`
	Path         string `json:"path"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}

type jsonDatapackage struct {
	Name         string            `json:"name"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Homepage     string            `json:"homepage"`
	Licenses     []jsonLicense     `json:"licenses"`
	Sources      []jsonSource      `json:"sources"`
	Contributors []jsonContributor `json:"contributors"`
	Keywords     []string          `json:"keywords"`
}

type jsonConfig struct {
	BuildingStockYear  int                          `json:"buildingStockYear"`
	InteriorNodeDepth  float64                      `json:"interiorNodeDepth"`
	PeriodOfVariations float64                      `json:"periodOfVariations"`
	AssumptionsPath    string                       `json:"assumptionsPath"`
	OutputPath         string                       `json:"outputPath"`
	BuildingProperties jsonWorkbook                 `json:"buildingProperties"`
	HeatingSystems     jsonWorkbook                 `json:"heatingSystems"`
	Extrapolations     []jsonExtrapolation          `json:"extrapolations"`
	AssumptionChecks   map[string][]jsonColumnCheck `json:"assumptionChecks"`
	Datapackage        jsonDatapackage              `json:"datapackage"`
}

/// Types exported for application use

// How a checked column participates in the audit
type ColumnCheckType uint

const (
	// The column must be present and every cell must match the check value
	ColumnRequired ColumnCheckType = iota
	// The column may be missing, present cells must match the check value
	ColumnOptional
	// At least one of the columns with type any must be non-empty per row
	ColumnAny
)

// A check for a single named column of an assumption table. Cells must
// match the regular expression in Value to be valid.
type ColumnCheck struct {
	Type  ColumnCheckType
	Value *regexp.Regexp
}

// A raw AmBIENCe workbook, locally cached at Path and downloadable from
// SourceUrl when the cache is absent. SkipRows lists 0-based row indices
// dropped before the header row is read.
type Workbook struct {
	SourceUrl sources.RemotePath
	Path      string
	Sheet     string
	SkipRows  []int
}

// An extrapolation entry clones the building stock segments of one
// country to another, scaling the number of buildings.
type Extrapolation struct {
	From          string
	To            string
	ScalingFactor float64
	Tag           string
}

type License struct {
	Name  string
	Path  string
	Title string
}

type Source struct {
	Title string
	Path  string
}

type Contributor struct {
	Title        string
	Email        string
	Path         string
	Role         string
	Organization string
}

// Metadata exported into datapackage.json alongside the processed CSVs.
type DatapackageMeta struct {
	Name         string
	Title        string
	Description  string
	Homepage     string
	Licenses     []License
	Sources      []Source
	Contributors []Contributor
	Keywords     []string
}

// The configuration of a data repository: where its inputs live, the
// scalar processing parameters and the metadata of the exported package.
type Config struct {
	BuildingStockYear  int
	InteriorNodeDepth  float64
	PeriodOfVariations float64
	AssumptionsPath    string
	OutputPath         string
	BuildingProperties Workbook
	HeatingSystems     Workbook
	Extrapolations     []Extrapolation
	AssumptionChecks   map[string]map[string]*ColumnCheck
	Datapackage        DatapackageMeta
}

// Top level function to parse the configuration file from the given data
// repository path
func ParseConfig(basePath sources.SourcePath) (Config, error) {
	jsonConfig, err := readJsonConfig(basePath)
	if err != nil {
		return Config{}, errors.Wrapf(err, "The requested config path `%s` does not contain a valid data repository", basePath)
	}

	config := Config{
		BuildingStockYear:  jsonConfig.BuildingStockYear,
		InteriorNodeDepth:  jsonConfig.InteriorNodeDepth,
		PeriodOfVariations: jsonConfig.PeriodOfVariations,
		AssumptionsPath:    jsonConfig.AssumptionsPath,
		OutputPath:         jsonConfig.OutputPath,
		BuildingProperties: parseWorkbook(jsonConfig.BuildingProperties),
		HeatingSystems:     parseWorkbook(jsonConfig.HeatingSystems),
		AssumptionChecks:   make(map[string]map[string]*ColumnCheck),
	}

	if config.BuildingStockYear == 0 {
		config.BuildingStockYear = DefaultBuildingStockYear
	}
	if config.BuildingStockYear < 1900 || config.BuildingStockYear > 2100 {
		return Config{}, fmt.Errorf("Building stock year `%d` is out of range", config.BuildingStockYear)
	}
	if config.InteriorNodeDepth == 0 {
		config.InteriorNodeDepth = DefaultInteriorNodeDepth
	}
	if config.InteriorNodeDepth < 0 || config.InteriorNodeDepth > 1 {
		return Config{}, fmt.Errorf("Interior node depth `%v` must lie in [0,1]", config.InteriorNodeDepth)
	}
	if config.PeriodOfVariations == 0 {
		config.PeriodOfVariations = DefaultPeriodOfVariations
	}
	if config.PeriodOfVariations < 0 {
		return Config{}, fmt.Errorf("Period of variations `%v` must be positive", config.PeriodOfVariations)
	}
	if config.AssumptionsPath == "" {
		config.AssumptionsPath = "data_assumptions"
	}
	if config.OutputPath == "" {
		config.OutputPath = "data"
	}

	if _, err := ioutil.ReadDir(filepath.Join(string(basePath), config.AssumptionsPath)); err != nil {
		return Config{}, fmt.Errorf("Assumptions path `%s` cannot be read: %s", config.AssumptionsPath, err)
	}

	if err := validateWorkbook("buildingProperties", &config.BuildingProperties); err != nil {
		return Config{}, err
	}
	if err := validateWorkbook("heatingSystems", &config.HeatingSystems); err != nil {
		return Config{}, err
	}

	if config.Extrapolations, err = parseExtrapolations(jsonConfig.Extrapolations); err != nil {
		return Config{}, err
	}

	for table, rawChecks := range jsonConfig.AssumptionChecks {
		checks := make(map[string]*ColumnCheck)
		for _, rawCheck := range rawChecks {
			name, check, err := parseColumnCheck(rawCheck)
			if err != nil {
				return Config{}, errors.Wrapf(err, "check for table `%s`", table)
			}
			if _, ok := checks[name]; ok {
				return Config{}, fmt.Errorf("Column `%s` of table `%s` is checked twice", name, table)
			}
			checks[name] = check
		}
		config.AssumptionChecks[table] = checks
	}

	config.Datapackage = parseDatapackage(jsonConfig.Datapackage)

	return config, nil
}

// Reads a json configuration file from the specified data repository
// path. The file is always located at ambience2abm_config.json
func readJsonConfig(basePath sources.SourcePath) (jsonConfig, error) {
	configPath := filepath.Join(string(basePath), sources.ConfigFileName)

	data, err := ioutil.ReadFile(configPath)
	if err != nil {
		return jsonConfig{}, fmt.Errorf("Error opening configuration file: %s", configPath)
	}

	var config jsonConfig
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return jsonConfig{}, fmt.Errorf("Error while parsing configuration file `%s`: %s", configPath, err)
	}
	return config, nil
}

// Parses a single column check from its json description
func parseColumnCheck(rawCheck jsonColumnCheck) (string, *ColumnCheck, error) {
	var check ColumnCheck
	switch rawCheck.Required {
	case "true":
		check.Type = ColumnRequired
	case "any":
		check.Type = ColumnAny
	case "false":
		check.Type = ColumnOptional
	case "":
		check.Type = ColumnRequired
	default:
		return "", nil, fmt.Errorf("Unable to parse column check `required` field: `%s`", rawCheck.Required)
	}

	if rawCheck.Name == "" {
		return "", nil, fmt.Errorf("Column check without a column name")
	}

	if rawCheck.Value == "" {
		check.Value = regexp.MustCompile(".*")
	} else {
		var err error
		check.Value, err = regexp.Compile(rawCheck.Value)
		if err != nil {
			return "", nil, err
		}
	}

	return rawCheck.Name, &check, nil
}

func parseWorkbook(rawWorkbook jsonWorkbook) Workbook {
	return Workbook{
		SourceUrl: sources.RemotePath(rawWorkbook.SourceUrl),
		Path:      rawWorkbook.Path,
		Sheet:     rawWorkbook.Sheet,
		SkipRows:  rawWorkbook.SkipRows,
	}
}

func validateWorkbook(name string, workbook *Workbook) error {
	if workbook.Path == "" && workbook.SourceUrl == "" {
		return fmt.Errorf("Workbook `%s` needs a path or a sourceUrl", name)
	}
	for _, row := range workbook.SkipRows {
		if row < 0 {
			return fmt.Errorf("Workbook `%s` lists a negative skip row index %d", name, row)
		}
	}
	return nil
}

var countryCode = regexp.MustCompile(`^[A-Z]{2}$`)

func parseExtrapolations(rawExtrapolations []jsonExtrapolation) ([]Extrapolation, error) {
	var extrapolations []Extrapolation
	seen := make(map[string]bool)
	for _, raw := range rawExtrapolations {
		if !countryCode.MatchString(raw.From) || !countryCode.MatchString(raw.To) {
			return nil, fmt.Errorf("Extrapolation countries must be two letter codes, got `%s` -> `%s`", raw.From, raw.To)
		}
		if raw.From == raw.To {
			return nil, fmt.Errorf("Extrapolation from `%s` onto itself", raw.From)
		}
		if raw.ScalingFactor <= 0 {
			return nil, fmt.Errorf("Extrapolation to `%s` has non-positive scaling factor %v", raw.To, raw.ScalingFactor)
		}
		if seen[raw.To] {
			return nil, fmt.Errorf("Country `%s` is extrapolated twice", raw.To)
		}
		seen[raw.To] = true
		tag := raw.Tag
		if tag == "" {
			tag = "extrapolated"
		}
		extrapolations = append(extrapolations, Extrapolation{
			From:          raw.From,
			To:            raw.To,
			ScalingFactor: raw.ScalingFactor,
			Tag:           tag,
		})
	}
	return extrapolations, nil
}

func parseDatapackage(rawMeta jsonDatapackage) DatapackageMeta {
	meta := DatapackageMeta{
		Name:        rawMeta.Name,
		Title:       rawMeta.Title,
		Description: rawMeta.Description,
		Homepage:    rawMeta.Homepage,
		Keywords:    rawMeta.Keywords,
	}
	if meta.Name == "" {
		meta.Name = "ambience2abm_data"
	}
	for _, license := range rawMeta.Licenses {
		meta.Licenses = append(meta.Licenses, License(license))
	}
	if meta.Licenses == nil {
		meta.Licenses = []License{{
			Name:  "CC-BY-4.0",
			Path:  "https://creativecommons.org/licenses/by/4.0/",
			Title: "Creative Commons Attribution 4.0",
		}}
	}
	for _, source := range rawMeta.Sources {
		meta.Sources = append(meta.Sources, Source(source))
	}
	for _, contributor := range rawMeta.Contributors {
		meta.Contributors = append(meta.Contributors, Contributor(contributor))
	}
	return meta
}

// CheckFor returns the configured extra audit checks for the named
// assumption table, which may be none.
func (config *Config) CheckFor(table string) map[string]*ColumnCheck {
	return config.AssumptionChecks[table]
}
