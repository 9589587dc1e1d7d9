/*
 * Frictionless data package metadata for the exported tables
 */
package abm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/git"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/util"
)

// DataPackageFileName is the descriptor written next to the exported
// csv files.
const DataPackageFileName = "datapackage.json"

type packageField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type packageSchema struct {
	Fields []packageField `json:"fields"`
}

type packageResource struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Profile  string        `json:"profile"`
	Scheme   string        `json:"scheme"`
	Format   string        `json:"format"`
	Encoding string        `json:"encoding"`
	Schema   packageSchema `json:"schema"`
}

type packageLicense struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

type packageSource struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type packageContributor struct {
	Title        string `json:"title"`
	Email        string `json:"email,omitempty"`
	Path         string `json:"path,omitempty"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
}

type packageDescriptor struct {
	Name         string               `json:"name"`
	Title        string               `json:"title,omitempty"`
	Description  string               `json:"description,omitempty"`
	Profile      string               `json:"profile"`
	Homepage     string               `json:"homepage,omitempty"`
	Version      string               `json:"version"`
	Created      string               `json:"created"`
	Licenses     []packageLicense     `json:"licenses,omitempty"`
	Sources      []packageSource      `json:"sources,omitempty"`
	Contributors []packageContributor `json:"contributors,omitempty"`
	Keywords     []string             `json:"keywords,omitempty"`
	Resources    []packageResource    `json:"resources"`
}

// WriteDataPackage writes the datapackage.json descriptor next to the
// exported csv files, combining the configured metadata with the field
// schemas of the exports. The version comes from git describe when the
// data repository is a checkout, from the tool version otherwise.
func (d *Dataset) WriteDataPackage(dir string) error {
	meta := &d.stock.Config.Datapackage
	descriptor := packageDescriptor{
		Name:        meta.Name,
		Title:       meta.Title,
		Description: meta.Description,
		Profile:     "data-package",
		Homepage:    meta.Homepage,
		Version:     d.Version(),
		Created:     time.Now().Format(time.RFC3339),
		Keywords:    meta.Keywords,
		Resources:   exportResources(),
	}
	for _, license := range meta.Licenses {
		descriptor.Licenses = append(descriptor.Licenses, packageLicense(license))
	}
	for _, source := range meta.Sources {
		descriptor.Sources = append(descriptor.Sources, packageSource(source))
	}
	for _, contributor := range meta.Contributors {
		descriptor.Contributors = append(descriptor.Contributors, packageContributor(contributor))
	}

	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling the data package descriptor")
	}
	path := filepath.Join(dir, DataPackageFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "writing `%s`", path)
	}
	return nil
}

// Version labels the exported package. Data repositories under version
// control get their git describe output, anything else the version of
// this tool.
func (d *Dataset) Version() string {
	if path, err := sources.PathOfSource(d.stock.Source()); err == nil {
		if described, err := git.Describe(string(path)); err == nil && described != "" {
			return described
		}
	}
	return util.Version.String()
}

func exportResources() []packageResource {
	resource := func(file string, fields []packageField) packageResource {
		name := file[:len(file)-len(".csv")]
		return packageResource{
			Name:     name,
			Path:     file,
			Profile:  "tabular-data-resource",
			Scheme:   "file",
			Format:   "csv",
			Encoding: "utf-8",
			Schema:   packageSchema{Fields: fields},
		}
	}
	return []packageResource{
		resource(FileBuildingPeriod, []packageField{
			{"building_period", "string"},
			{"period_start", "integer"},
			{"period_end", "integer"},
		}),
		resource(FileBuildingStock, []packageField{
			{"building_stock", "string"},
			{"building_stock_year", "integer"},
			{"shapefile_path", "string"},
			{"raster_weight_path", "string"},
			{"notes", "string"},
		}),
		resource(FileStructureType, []packageField{
			{"structure_type", "string"},
			{"interior_resistance_m2K_W", "number"},
			{"exterior_resistance_m2K_W", "number"},
			{"linear_thermal_bridge_W_mK", "number"},
			{"is_internal", "boolean"},
			{"notes", "string"},
		}),
		resource(FileBuildingStockStatistics, []packageField{
			{"building_stock", "string"},
			{"building_type", "string"},
			{"building_period", "string"},
			{"location_id", "string"},
			{"heat_source", "string"},
			{"number_of_buildings", "number"},
			{"average_gross_floor_area_m2_per_building", "number"},
		}),
		resource(FileStructureStatistics, []packageField{
			{"building_type", "string"},
			{"building_period", "string"},
			{"location_id", "string"},
			{"structure_type", "string"},
			{"design_U_value_W_m2K", "number"},
			{"effective_thermal_mass_J_m2K", "number"},
			{"linear_thermal_bridges_W_mK", "number"},
			{"external_U_value_to_ambient_air_W_m2K", "number"},
			{"external_U_value_to_ground_W_m2K", "number"},
			{"internal_U_value_to_structure_W_m2K", "number"},
			{"total_U_value_W_m2K", "number"},
		}),
		resource(FileVentilationAndFenestration, []packageField{
			{"building_type", "string"},
			{"building_period", "string"},
			{"location_id", "string"},
			{"HRU_efficiency", "number"},
			{"infiltration_rate_1_h", "number"},
			{"total_normal_solar_energy_transmittance", "number"},
			{"ventilation_rate_1_h", "number"},
			{"window_U_value_W_m2K", "number"},
		}),
		resource(FileLocationID, []packageField{
			{"location_id", "string"},
		}),
	}
}
