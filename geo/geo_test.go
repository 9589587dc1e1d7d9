package geo

import (
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSquare creates a single-polygon shapefile spanning the given
// bounding box.
func writeSquare(t *testing.T, path string, minX, minY, maxX, maxY float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	writer.SetFields([]shp.Field{shp.StringField("CNTR_ID", 8)})
	ring := []shp.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}
	writer.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	writer.WriteAttribute(0, 0, "FI")
	writer.Close()
}

func registerTree(t *testing.T, dir string) {
	t.Helper()
	sources.ClearAllSources()
	sources.RegisterSource("geo", sources.SourcePath(dir))
}

func segment(shapefile, raster string) *stock.Segment {
	return &stock.Segment{ShapefilePath: shapefile, RasterWeightPath: raster}
}

func TestGeo_CheckValid(t *testing.T) {
	dir := t.TempDir()
	writeSquare(t, filepath.Join(dir, "raw_data", "gisco", "FI.shp"), 24.5, 60.1, 25.5, 60.9)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "raw_data", "rasters"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw_data", "rasters", "res.tif"), []byte("stub"), 0644))
	registerTree(t, dir)

	data := &stock.Dataset{Segments: []*stock.Segment{
		segment("raw_data/gisco/FI.shp", "raw_data/rasters/res.tif"),
		// A second segment sharing the references gets no second verification
		segment("raw_data/gisco/FI.shp", "raw_data/rasters/res.tif"),
	}}
	assert.Empty(t, Check("geo", data))
}

func TestGeo_CheckMissingFiles(t *testing.T) {
	registerTree(t, t.TempDir())

	data := &stock.Dataset{Segments: []*stock.Segment{
		segment("raw_data/gisco/FI.shp", "raw_data/rasters/res.tif"),
	}}
	issues := Check("geo", data)
	require.Len(t, issues, 2)
	assert.Equal(t, issues[0].Type, diagnostics.IssueTypeMissingFile)
	assert.Equal(t, issues[0].Severity, diagnostics.IssueSeverityMajor)
	assert.Equal(t, issues[0].Path, "raw_data/gisco/FI.shp")
	assert.Equal(t, issues[1].Type, diagnostics.IssueTypeMissingFile)
	assert.Equal(t, issues[1].Path, "raw_data/rasters/res.tif")
}

func TestGeo_CheckEmptyShapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw_data", "gisco", "SE.shp")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	writer.SetFields([]shp.Field{shp.StringField("CNTR_ID", 8)})
	writer.Close()
	registerTree(t, dir)

	data := &stock.Dataset{Segments: []*stock.Segment{segment("raw_data/gisco/SE.shp", "")}}
	issues := Check("geo", data)
	require.Len(t, issues, 1)
	assert.Equal(t, issues[0].Type, diagnostics.IssueTypeUnreadableShapefile)
	require.NotNil(t, issues[0].Error)
	assert.Contains(t, issues[0].Error.Error(), "no shapes")
}

func TestGeo_CheckMissingAttributes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw_data", "gisco", "NO.shp")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	// No SetFields call, so no attribute table is written
	writer, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	ring := []shp.Point{{X: 10, Y: 60}, {X: 11, Y: 60}, {X: 11, Y: 61}, {X: 10, Y: 60}}
	writer.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	writer.Close()
	registerTree(t, dir)

	data := &stock.Dataset{Segments: []*stock.Segment{segment("raw_data/gisco/NO.shp", "")}}
	issues := Check("geo", data)
	require.Len(t, issues, 1)
	assert.Equal(t, issues[0].Type, diagnostics.IssueTypeUnreadableShapefile)
	require.NotNil(t, issues[0].Error)
	assert.Contains(t, issues[0].Error.Error(), "attribute table")
}

func TestGeo_CheckProjectedCoordinates(t *testing.T) {
	dir := t.TempDir()
	// Metric coordinates, far outside the degree range
	writeSquare(t, filepath.Join(dir, "raw_data", "gisco", "XX.shp"), 4321000, 3210000, 4322000, 3211000)
	registerTree(t, dir)

	data := &stock.Dataset{Segments: []*stock.Segment{segment("raw_data/gisco/XX.shp", "")}}
	issues := Check("geo", data)
	require.Len(t, issues, 1)
	assert.Equal(t, issues[0].Type, diagnostics.IssueTypeUnreadableShapefile)
	require.NotNil(t, issues[0].Error)
	assert.Contains(t, issues[0].Error.Error(), "EPSG:4326")
}
