package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "dutlat",
	Short:   "Measure the latency a network device induces on traffic",
	Version: version,
	Long: `Dutlat measures the latency a device-under-test induces on traffic by
correlating packets between captures taken immediately before and after
the device, and can generate the paced stimulus those captures observe.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Add subcommands to root command
	RootCmd.AddCommand(correlateCmd)
	RootCmd.AddCommand(paceCmd)
	RootCmd.AddCommand(dumpCmd)
}
