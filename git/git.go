// Package git reads provenance information from the data repository:
// the version baked into exported datapackage metadata and the commit
// history shown by the web interface. The data repository not being a
// git checkout is not an error, callers fall back to the tool version.
package git

import (
	"fmt"

	"github.com/spine-tools/ambience2abm/linepipes"
)

// Describe returns a human readable version for the repository at path,
// a tag when one matches and an abbreviated commit id otherwise.
func Describe(path string) (string, error) {
	return linepipes.Single(linepipes.Run("git", "-C", path, "describe", "--tags", "--always"))
}

// AllCommits returns the list of commits of the repository at path,
// formatted as "ID DATE".
func AllCommits(path string) ([]string, error) {
	commits := make([]string, 0)
	lines, errs := linepipes.Run("git", "-C", path, "log", `--pretty=format:%h %cd`, "--date=short")
	for line := range lines {
		commits = append(commits, line)
	}
	if err := <-errs; err != nil {
		return commits, fmt.Errorf("Failed to get the list of commits: %s", err)
	}
	return commits, nil
}
