/*
 * Verification of the GIS references carried by a building stock
 * dataset. The exported model ties every building stock to a country
 * shapefile and every building type to a raster weight map, but the
 * data repositories keep those files outside version control. This
 * package checks that the references actually resolve in a given
 * source tree, so a repository maintainer can tell a stale download
 * apart from a broken mapping before shipping an export.
 */

package geo

import (
	"fmt"
	"sort"

	shp "github.com/jonas-p/go-shp"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
	"github.com/spine-tools/ambience2abm/stock"
)

// World bounds in degrees. The GISCO country polygons come in
// EPSG:4326, anything outside these limits means a projected file
// slipped in.
const (
	minLongitude = -180.0
	maxLongitude = 180.0
	minLatitude  = -90.0
	maxLatitude  = 90.0
)

// Check verifies every distinct shapefile and raster weight path the
// dataset references against the given source tree. Shapefiles must
// open, contain at least one shape and keep their bounding box within
// world coordinates. Raster weights only need to exist, their content
// is read by the downstream model.
func Check(source sources.SourceName, data *stock.Dataset) []diagnostics.Issue {
	var issues []diagnostics.Issue

	for _, path := range referencedPaths(data, func(segment *stock.Segment) string { return segment.ShapefilePath }) {
		resolved, err := sources.PathInSource(source, path)
		if err != nil {
			issues = append(issues, fileIssue(source, path, diagnostics.IssueTypeMissingFile, err))
			continue
		}
		if err := verifyShapefile(resolved); err != nil {
			issues = append(issues, fileIssue(source, path, diagnostics.IssueTypeUnreadableShapefile, err))
		}
	}

	for _, path := range referencedPaths(data, func(segment *stock.Segment) string { return segment.RasterWeightPath }) {
		if _, err := sources.PathInSource(source, path); err != nil {
			issues = append(issues, fileIssue(source, path, diagnostics.IssueTypeMissingFile, err))
		}
	}
	return issues
}

// referencedPaths collects the distinct non-empty values of a segment
// path field, sorted so the findings come out in a stable order.
func referencedPaths(data *stock.Dataset, field func(*stock.Segment) string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, segment := range data.Segments {
		path := field(segment)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func verifyShapefile(path string) error {
	reader, err := shp.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	// The country ids live in the dbf attribute table, a layer without
	// one cannot label its polygons.
	if len(reader.Fields()) == 0 {
		return fmt.Errorf("the attribute table has no fields")
	}

	count := 0
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			return fmt.Errorf("shape %d has no geometry", count)
		}
		count++
	}
	if err := reader.Err(); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("the shapefile contains no shapes")
	}

	box := reader.BBox()
	if box.MinX < minLongitude || box.MaxX > maxLongitude ||
		box.MinY < minLatitude || box.MaxY > maxLatitude {
		return fmt.Errorf("bounding box (%g, %g)-(%g, %g) lies outside world coordinates, expected unprojected EPSG:4326",
			box.MinX, box.MinY, box.MaxX, box.MaxY)
	}
	return nil
}

func fileIssue(source sources.SourceName, path string, issueType diagnostics.IssueType, err error) diagnostics.Issue {
	return diagnostics.Issue{
		Source:   source,
		Path:     path,
		Error:    err,
		Severity: diagnostics.IssueSeverityMajor,
		Type:     issueType,
	}
}
