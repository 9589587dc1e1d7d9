package cmd

import (
	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"
	"github.com/spine-tools/ambience2abm/web"
)

var webAddr *string

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Starts a local web server to facilitate interaction with ambience2abm",
	Long:  "Starts a local web server to facilitate interaction with ambience2abm",
	RunE:  RunAndHandleError(runWebCmd),
}

// Starts the web server listening on the supplied address:port
func runWebCmd(command *cobra.Command, args []string) error {
	data, err := loadDataset(false)
	if err != nil {
		return errors.Wrap(err, "load building stock data")
	}
	return web.Serve(a2aConfig, data, *webAddr)
}

// Registers the web command
func init() {
	webAddr = webCmd.PersistentFlags().String("addr", ":8080", "The ip:port where to serve.")
	rootCmd.AddCommand(webCmd)
}
