package diagnostics

import "github.com/spine-tools/ambience2abm/sources"

type IssueType uint

const (
	IssueTypeMissingColumn IssueType = iota
	IssueTypeUnknownColumn
	IssueTypeBadCell
	IssueTypeDuplicateKey
	IssueTypeUnknownBuildingType
	IssueTypeUnknownCountry
	IssueTypeUnknownGlazing
	IssueTypeMissingAssumption
	IssueTypeBadFraction
	IssueTypePrevalencyAnomaly
	IssueTypePeriodAnomaly
	IssueTypeWeightAnomaly
	IssueTypeMissingFile
	IssueTypeUnreadableShapefile
	IssueTypeUnmatchedSegment
)

type IssueSeverity uint

const (
	IssueSeverityMajor IssueSeverity = iota
	IssueSeverityMinor
	IssueSeverityNote // Advisory findings
)

// Issue is a single finding against an assumption table, a raw data
// workbook or a mapped external file. Line is 1-based and 0 when the
// finding concerns the file as a whole.
type Issue struct {
	Source   sources.SourceName
	Path     string
	Line     int
	Error    error
	Severity IssueSeverity
	Type     IssueType
}

// CountBySeverity tallies a list of issues by severity.
func CountBySeverity(issues []Issue) (major, minor, note int) {
	for _, issue := range issues {
		switch issue.Severity {
		case IssueSeverityMajor:
			major++
		case IssueSeverityMinor:
			minor++
		case IssueSeverityNote:
			note++
		}
	}
	return major, minor, note
}
