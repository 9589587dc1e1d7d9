package cmd

import (
	"fmt"
	"sort"

	"github.com/daedaleanai/cobra"
	"github.com/spine-tools/ambience2abm/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff OLD_DIR NEW_DIR",
	Args:  cobra.ExactArgs(2),
	Short: "Compares two exported data directories",
	Long: `Compares the exported csv tables of two data directories row by row and
lists added, removed and changed rows.  Numeric cells are compared with a
tolerance so reprocessing noise in the last decimals does not show up.`,
	RunE: RunAndHandleError(runDiff),
}

// the run command for diff
func runDiff(command *cobra.Command, args []string) error {
	diffs := diff.ChangedSince(args[1], args[0])
	if diffs == nil {
		fmt.Println("No differences.")
		return nil
	}

	var keys []string
	for k := range diffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(k)
		for _, d := range diffs[k] {
			fmt.Printf("\t%s\n", d)
		}
	}
	return fmt.Errorf("%d rows differ", len(diffs))
}

// Registers the diff command
func init() {
	rootCmd.AddCommand(diffCmd)
}
