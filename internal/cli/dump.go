package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/dutlat/internal/capture"
	"github.com/wesleyorama2/dutlat/internal/config"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [capture]",
	Short: "Dump raw capture records as text",
	Long: `Dump prints every record of a capture file as one text line, bypassing
correlation entirely. Intended for inspecting inputs before a run.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")

		r, err := openStream(args[0], config.Format(format))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer r.Close()

		n, err := capture.Dump(r, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "%d records\n", n)
	},
}

func init() {
	dumpCmd.Flags().String("format", "binary", "capture format: binary or pcap")
}
