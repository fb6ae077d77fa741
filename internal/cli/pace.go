package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/dutlat/internal/config"
	"github.com/wesleyorama2/dutlat/internal/pace"
)

var paceCmd = &cobra.Command{
	Use:   "pace",
	Short: "Transmit paced stimulus traffic at a target rate",
	Long: `Pace dequeues synthesized stimulus packets and transmits them over UDP,
either greedily or at a constant bit rate scheduled against the cycle
counter. With --count 0 the loop runs until interrupted.

Pacer settings may come from the pace section of a YAML run configuration
(--config); flags given on the command line win over the file.`,
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt("count")
		size, _ := cmd.Flags().GetInt("size")

		pcfg, target, err := buildPaceConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if target == "" {
			fmt.Fprintln(os.Stderr, "Error: a target is required (--target or the config file's pace.target)")
			os.Exit(1)
		}

		tx, err := pace.DialUDP(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer tx.Close()

		queue := pace.NewQueue(4 * pcfg.BatchSize)
		pacer, err := pace.NewPacer(queue, tx, pace.NewMonotonicClock(), pcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		go func() {
			if count <= 0 {
				// Unbounded stimulus: keep the queue fed until
				// interrupted.
				seq := uint64(0)
				for ctx.Err() == nil {
					if err := pace.FillSequence(ctx, queue, seq, 1024, size); err != nil {
						return
					}
					seq += 1024
				}
				return
			}
			if err := pace.FillSequence(ctx, queue, 0, count, size); err != nil {
				return
			}
			// Let the pacer drain the queue before stopping.
			for queue.Len() > 0 && ctx.Err() == nil {
				time.Sleep(time.Millisecond)
			}
			cancel()
		}()

		if err := pacer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Transmitted %d packets\n", pacer.Sent())
	},
}

// addPaceFlags registers the pace command's flag set.
func addPaceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "YAML run configuration file")
	cmd.Flags().String("mode", "cbr", "pacing mode: greedy or cbr")
	cmd.Flags().Float64("rate", 1000, "cbr target rate in packets per second")
	cmd.Flags().String("target", "", "egress target as host:port")
	cmd.Flags().Int("count", 0, "number of stimulus packets (0 = until interrupted)")
	cmd.Flags().Int("size", 64, "stimulus payload size in bytes")
	cmd.Flags().Int("batch", 64, "dequeue batch size")
	cmd.Flags().Duration("idle-window", 10*time.Millisecond, "idle window before the schedule resets")
}

func init() {
	addPaceFlags(paceCmd)
}

// buildPaceConfig merges the pace section of the optional YAML config with
// the command flags. Flags that were set on the command line win over the
// file; file values win over flag defaults.
func buildPaceConfig(cmd *cobra.Command) (pace.Config, string, error) {
	pcfg := config.PaceConfig{}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return pace.Config{}, "", err
		}
		pcfg = loaded.Pace
	}

	if cmd.Flags().Changed("mode") || pcfg.Mode == "" {
		pcfg.Mode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("rate") || pcfg.Rate == 0 {
		pcfg.Rate, _ = cmd.Flags().GetFloat64("rate")
	}
	if cmd.Flags().Changed("batch") || pcfg.BatchSize == 0 {
		pcfg.BatchSize, _ = cmd.Flags().GetInt("batch")
	}
	if cmd.Flags().Changed("idle-window") || pcfg.IdleWindow == 0 {
		d, _ := cmd.Flags().GetDuration("idle-window")
		pcfg.IdleWindow = config.Duration(d)
	}
	if v, _ := cmd.Flags().GetString("target"); v != "" {
		pcfg.Target = v
	}

	return pace.Config{
		Mode:       pace.Mode(pcfg.Mode),
		Rate:       pcfg.Rate,
		BatchSize:  pcfg.BatchSize,
		IdleWindow: pcfg.IdleWindow.GetDuration(10 * time.Millisecond),
	}, pcfg.Target, nil
}
