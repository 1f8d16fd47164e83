package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storinit-io/storinit"
)

var config struct {
	statusAddr      string
	continueOnError bool
}

var rootCmd = &cobra.Command{
	Use:     "storinit",
	Version: storinit.Version,
	Short:   "Installer storage discovery",
	Long: `storinit brings the installer's storage model into a state consistent
with the current hardware and the configuration services.

It configures the block-device layer, re-scans the disks and publishes
the discovery state over HTTP for the installer UI.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return subMain()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	fs := rootCmd.Flags()
	fs.StringVar(&config.statusAddr, "status-addr", ":8089", "Listen address for the status and metrics server")
	fs.BoolVar(&config.continueOnError, "continue-on-error", false, "Keep retrying the storage reset on recoverable errors")
}
