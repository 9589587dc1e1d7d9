package util

import "fmt"

type VersionType struct {
	Major    uint
	Minor    uint
	Revision uint
}

// Version of the ambience2abm tool. Stamped into exported datapackage
// metadata when the data repository carries no git tag of its own.
var Version = VersionType{
	Major:    0,
	Minor:    4,
	Revision: 0,
}

func (v VersionType) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}
