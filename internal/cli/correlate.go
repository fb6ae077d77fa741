package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/dutlat/internal/capture"
	"github.com/wesleyorama2/dutlat/internal/config"
	"github.com/wesleyorama2/dutlat/internal/correlate"
	"github.com/wesleyorama2/dutlat/internal/output"
	"github.com/wesleyorama2/dutlat/internal/stats"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate [pre-capture] [post-capture]",
	Short: "Correlate two captures into a latency distribution",
	Long: `Correlate matches packets between a pre-DUT and a post-DUT capture and
computes the per-packet latency the device induced. Which file is the pre
side is resolved from the file names ("pre"/"post").

The run writes a two-column histogram artifact (bucket lower bound, count)
next to a human-readable summary.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := buildRunConfig(cmd, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if cfg.Dump {
			if err := runDump(cfg, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		report, err := runCorrelation(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		histPath := cfg.Output + ".hist"
		if err := report.SaveHistogram(histPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		formatter := output.NewAutoFormatter(os.Stdout)
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			formatter = output.NewFormatter(true)
		}
		fmt.Print(formatter.FormatSummary(report))
		fmt.Printf("Histogram written to %s\n", histPath)
	},
}

func init() {
	correlateCmd.Flags().StringP("config", "c", "", "YAML run configuration file")
	correlateCmd.Flags().String("format", "", "capture format: binary or pcap")
	correlateCmd.Flags().StringP("output", "o", "", "base name for the histogram artifact")
	correlateCmd.Flags().Int64("bucket-width", 0, "histogram bucket width in device-clock units")
	correlateCmd.Flags().Uint("mask-bits", 0, "correlation table mask width in bits")
	correlateCmd.Flags().Int64("threshold", 0, "negative-latency abort threshold")
	correlateCmd.Flags().Uint64("prefill-lead", 0, "prefill safety bound in addressable slots")
	correlateCmd.Flags().Bool("dump", false, "dump raw records as text instead of correlating")
	correlateCmd.Flags().Bool("no-color", false, "disable colored output")
}

// buildRunConfig merges the optional YAML config, command flags, and
// positional capture paths. Flags win over the file.
func buildRunConfig(cmd *cobra.Command, args []string) (*config.RunConfig, error) {
	cfg := &config.RunConfig{}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) == 2 {
		cfg.Inputs = args
	} else if len(args) == 1 {
		cfg.Inputs = append(cfg.Inputs, args[0])
	}

	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cfg.Format = config.Format(v)
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output = v
	}
	if v, _ := cmd.Flags().GetInt64("bucket-width"); v != 0 {
		cfg.BucketWidth = v
	}
	if v, _ := cmd.Flags().GetUint("mask-bits"); v != 0 {
		cfg.MaskBits = v
	}
	if v, _ := cmd.Flags().GetInt64("threshold"); v != 0 {
		cfg.Threshold = v
	}
	if v, _ := cmd.Flags().GetUint64("prefill-lead"); v != 0 {
		cfg.PrefillLead = v
	}
	if v, _ := cmd.Flags().GetBool("dump"); v {
		cfg.Dump = true
	}

	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runDump prints the raw records of every configured input, bypassing
// correlation.
func runDump(cfg *config.RunConfig, w io.Writer) error {
	for _, path := range cfg.Inputs {
		r, err := openStream(path, cfg.Format)
		if err != nil {
			return err
		}
		n, err := capture.Dump(r, w)
		r.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "%s: %d records\n", path, n)
	}
	return nil
}

// openStream opens one capture file in the configured format.
func openStream(path string, format config.Format) (capture.Reader, error) {
	switch format {
	case config.FormatPcap:
		return capture.OpenPcap(path)
	default:
		return capture.OpenMSCap(path)
	}
}

// runCorrelation executes a full correlation run and finalizes the report.
// On the abort path no report is produced: partial statistics are not
// exported.
func runCorrelation(cfg *config.RunConfig) (*stats.Report, error) {
	prePath, postPath, err := capture.ResolveStreams(cfg.Inputs[0], cfg.Inputs[1])
	if err != nil {
		return nil, err
	}

	pre, err := openStream(prePath, cfg.Format)
	if err != nil {
		return nil, err
	}
	defer pre.Close()

	post, err := openStream(postPath, cfg.Format)
	if err != nil {
		return nil, err
	}
	defer post.Close()

	var ext correlate.Extractor = correlate.Embedded{}
	if cfg.Format == config.FormatPcap {
		ext = correlate.NewDerived(nil)
	}

	table, err := correlate.NewTable(cfg.MaskBits)
	if err != nil {
		return nil, err
	}

	aggCfg := stats.DefaultConfig()
	aggCfg.BucketWidth = cfg.BucketWidth
	agg := stats.NewAggregator(aggCfg)

	engine := correlate.NewEngine(pre, post, ext, table, agg, correlate.Config{
		Threshold:   cfg.Threshold,
		PrefillLead: cfg.PrefillLead,
	})

	if err := engine.Run(); err != nil {
		return nil, err
	}
	return agg.Finalize()
}
