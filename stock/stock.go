/*
   Functions for loading and preprocessing the merged AmBIENCe building
   stock data.

   The entry point is Load, which reads both raw data workbooks, merges
   them on the reference building code and derives everything the
   statistics processing needs:
     - normalized heating system prevalencies,
     - heat sources including district heating,
     - building periods from the construction year bounds,
     - material combination weights within each building stock segment,
     - shapefile and building type mapping joins and stock labels.

   Extrapolate afterwards clones segments into countries the AmBIENCe
   project never covered, scaled by the configured factors.
*/

package stock

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/config"
	"github.com/spine-tools/ambience2abm/diagnostics"
	"github.com/spine-tools/ambience2abm/sources"
)

// The label prefix of building stocks taken straight from the raw data,
// as opposed to the configured tags of extrapolated stocks.
const OriginalStockTag = "AmBIENCe"

// A GroupKey identifies a material combination group. Within one group
// the material combination weights sum to one.
type GroupKey struct {
	BuildingType   string
	BuildingPeriod string
	LocationID     string
}

// Group returns the material combination group of a segment.
func (s *Segment) Group() GroupKey {
	return GroupKey{s.BuildingType, s.BuildingPeriod, s.LocationID}
}

// Load reads the configured raw data workbooks from the named source and
// preprocesses them into a Dataset. Reading failures abort the load,
// content problems accumulate on Dataset.Issues.
func Load(source sources.SourceName, cfg *config.Config, asm *assumptions.Set) (*Dataset, error) {
	d := &Dataset{
		Assumptions:  asm,
		Config:       cfg,
		source:       source,
		propertyPath: cfg.BuildingProperties.Path,
		heatsysPath:  cfg.HeatingSystems.Path,
	}
	properties, err := readWorkbook(source, &cfg.BuildingProperties)
	if err != nil {
		return nil, errors.Wrap(err, "reading the building properties workbook")
	}
	heatsys, err := readWorkbook(source, &cfg.HeatingSystems)
	if err != nil {
		return nil, errors.Wrap(err, "reading the heating systems workbook")
	}
	d.merge(properties, heatsys)
	d.normalizePrevalencies()
	d.weighMaterialCombinations()
	d.joinAssumptions()
	return d, nil
}

// normalizePrevalencies scales the heating system prevalencies of every
// segment to sum to one. The raw data has rows where they do not.
func (d *Dataset) normalizePrevalencies() {
	for _, segment := range d.Segments {
		total := 0.0
		for i := range segment.HeatingSystems {
			prevalency := segment.HeatingSystems[i].Prevalency
			if math.IsNaN(prevalency) {
				continue
			}
			if prevalency < 0 {
				d.addIssue(d.heatsysPath, segment.Line, diagnostics.IssueSeverityMajor,
					diagnostics.IssueTypeBadFraction,
					"segment `%s` has a negative heating system prevalency %v", segment.Code, prevalency)
			}
			total += prevalency
		}
		if total == 0 {
			d.addIssue(d.heatsysPath, segment.Line, diagnostics.IssueSeverityMajor,
				diagnostics.IssueTypePrevalencyAnomaly,
				"segment `%s` heating system prevalencies sum to zero", segment.Code)
			for i := range segment.HeatingSystems {
				segment.HeatingSystems[i].Prevalency = math.NaN()
			}
			continue
		}
		for i := range segment.HeatingSystems {
			segment.HeatingSystems[i].Prevalency /= total
		}
	}
}

// weighMaterialCombinations computes the floor area share of every
// segment within its material combination group.
func (d *Dataset) weighMaterialCombinations() {
	totals := make(map[GroupKey]float64)
	for _, segment := range d.Segments {
		if !math.IsNaN(segment.AverageFloorAreaM2) {
			totals[segment.Group()] += segment.AverageFloorAreaM2
		}
	}
	zeroGroups := make(map[GroupKey]bool)
	for _, segment := range d.Segments {
		total := totals[segment.Group()]
		if math.IsNaN(segment.AverageFloorAreaM2) {
			segment.MaterialCombinationWeight = math.NaN()
			d.addIssue(d.propertyPath, segment.Line, diagnostics.IssueSeverityMinor,
				diagnostics.IssueTypeWeightAnomaly,
				"segment `%s` has no usable floor area, its weight is undefined", segment.Code)
			continue
		}
		if total == 0 {
			segment.MaterialCombinationWeight = math.NaN()
			if !zeroGroups[segment.Group()] {
				zeroGroups[segment.Group()] = true
				d.addIssue(d.propertyPath, segment.Line, diagnostics.IssueSeverityMajor,
					diagnostics.IssueTypeWeightAnomaly,
					"material combination group %s / %s / %s has zero total floor area",
					segment.BuildingType, segment.BuildingPeriod, segment.LocationID)
			}
			continue
		}
		segment.MaterialCombinationWeight = segment.AverageFloorAreaM2 / total
	}
}

// joinAssumptions attaches the shapefile and building type mappings to
// every segment and forms the building stock labels.
func (d *Dataset) joinAssumptions() {
	for _, segment := range d.Segments {
		if mapping, ok := d.Assumptions.ForCountry(segment.LocationID); ok {
			segment.ShapefilePath = mapping.ShapefilePath
			segment.ShapefileNotes = mapping.Notes
		} else {
			d.addIssue(d.propertyPath, segment.Line, diagnostics.IssueSeverityMajor,
				diagnostics.IssueTypeUnknownCountry,
				"segment `%s` country `%s` has no shapefile mapping", segment.Code, segment.LocationID)
		}
		if mapping, ok := d.Assumptions.ForBuildingType(segment.BuildingType); ok {
			segment.Category = mapping.Category
			segment.RasterWeightPath = mapping.RasterWeightPath
		} else {
			d.addIssue(d.propertyPath, segment.Line, diagnostics.IssueSeverityMajor,
				diagnostics.IssueTypeUnknownBuildingType,
				"segment `%s` building type `%s` has no building type mapping", segment.Code, segment.BuildingType)
		}
		segment.BuildingStockYear = d.Config.BuildingStockYear
		if segment.Category != "" {
			segment.BuildingStock = stockLabel(OriginalStockTag, segment)
		}
	}
}

func stockLabel(tag string, segment *Segment) string {
	return fmt.Sprintf("%s_%d_%s_%s", tag, segment.BuildingStockYear, segment.LocationID, segment.Category)
}

// Extrapolate clones building stock segments into the configured target
// countries, scaling the number of buildings by the configured factors.
// Every entry draws from the original segments only, so entries never
// compound even when chained.
func (d *Dataset) Extrapolate() error {
	originals := d.Segments
	for i := range d.Config.Extrapolations {
		entry := &d.Config.Extrapolations[i]
		matched := false
		for _, segment := range originals {
			if segment.LocationID != entry.From {
				continue
			}
			matched = true
			d.Segments = append(d.Segments, d.extrapolateSegment(segment, entry))
		}
		if !matched {
			return fmt.Errorf("extrapolation source country `%s` has no segments in the data", entry.From)
		}
	}
	return nil
}

// extrapolateSegment copies one segment into the target country of an
// extrapolation entry. The country code is also replaced inside the
// reference building code, matching how the raw data embeds it.
func (d *Dataset) extrapolateSegment(segment *Segment, entry *config.Extrapolation) *Segment {
	clone := *segment
	clone.Code = strings.ReplaceAll(segment.Code, entry.From, entry.To)
	clone.LocationID = entry.To
	clone.NumberOfBuildings = segment.NumberOfBuildings * entry.ScalingFactor
	clone.ExtrapolatedFrom = entry.From
	clone.Envelopes = make(map[string]*Envelope, len(segment.Envelopes))
	for mapping, envelope := range segment.Envelopes {
		copied := *envelope
		clone.Envelopes[mapping] = &copied
	}
	clone.ShapefilePath = ""
	clone.ShapefileNotes = ""
	if mapping, ok := d.Assumptions.ForCountry(entry.To); ok {
		clone.ShapefilePath = mapping.ShapefilePath
		clone.ShapefileNotes = mapping.Notes
	} else {
		d.addIssue(d.propertyPath, segment.Line, diagnostics.IssueSeverityMajor,
			diagnostics.IssueTypeUnknownCountry,
			"extrapolated country `%s` has no shapefile mapping", entry.To)
	}
	clone.BuildingStock = stockLabel(entry.Tag, &clone)
	return &clone
}

// SortedSegments returns the segments ordered by reference building
// code.
func (d *Dataset) SortedSegments() []*Segment {
	segments := make([]*Segment, len(d.Segments))
	copy(segments, d.Segments)
	sort.Sort(byCode(segments))
	return segments
}

// IsEmpty returns whether the filter has no restriction.
func (f SegmentFilter) IsEmpty() bool {
	return f.CodeRegexp == nil && f.CountryRegexp == nil &&
		f.TypeRegexp == nil && f.PeriodRegexp == nil &&
		f.HeatSourceOnly == ""
}

// Matches returns true if the segment matches the filter.
func (s *Segment) Matches(filter *SegmentFilter) bool {
	if filter != nil {
		if filter.CodeRegexp != nil {
			if !filter.CodeRegexp.MatchString(s.Code) {
				return false
			}
		}
		if filter.CountryRegexp != nil {
			if !filter.CountryRegexp.MatchString(s.LocationID) {
				return false
			}
		}
		if filter.TypeRegexp != nil {
			if !filter.TypeRegexp.MatchString(s.BuildingType) {
				return false
			}
		}
		if filter.PeriodRegexp != nil {
			if !filter.PeriodRegexp.MatchString(s.BuildingPeriod) {
				return false
			}
		}
		if filter.HeatSourceOnly != "" {
			var matches bool
			// Any of the three heating systems may match.
			for i := range s.HeatingSystems {
				if s.HeatingSystems[i].HeatSource == filter.HeatSourceOnly {
					matches = true
					break
				}
			}
			if !matches {
				return false
			}
		}
	}
	return true
}

// FilteredSegments returns the segments passing the filter, ordered by
// reference building code.
func (d *Dataset) FilteredSegments(filter *SegmentFilter) []*Segment {
	var segments []*Segment
	for _, segment := range d.SortedSegments() {
		if segment.Matches(filter) {
			segments = append(segments, segment)
		}
	}
	return segments
}

// Source returns the name of the source the workbooks were read from.
func (d *Dataset) Source() sources.SourceName {
	return d.source
}
