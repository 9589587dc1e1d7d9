/*
 * Ambience2abm is the swiss army knife binary implementing all processing and
 * validation of the AmBIENCe building stock data for ArchetypeBuildingModel.jl.
 * Run without arguments to get comprehensive help.
 */

package main

import (
	"os"

	"github.com/spine-tools/ambience2abm/cmd"
)

// Runs the program
func main() {
	if cmd.RunRootCommand() != nil {
		os.Exit(1)
	}
}
