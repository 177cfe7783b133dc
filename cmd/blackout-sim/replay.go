package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blackout-sim/internal/config"
	"blackout-sim/internal/logging"
	"blackout-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayOutput    string
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a blackout log file",
	Long:  "replay feeds blackout rows from a JSONL log back into GreptimeDB, SQLite or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		e, err := config.LoadEnv()
		if err != nil {
			return err
		}
		if replayOutput == outputTUI || replayOutput == outputAuto {
			replayOutput = outputJSON
		}
		logger := logging.New(e.LogFormat, e.LogLevel)
		ws, err := newWriters(config.Default(), e, writerOptions{Output: replayOutput, PrintOnly: replayPrintOnly}, logger)
		if err != nil {
			return err
		}
		defer ws.cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		n, err := sim.ReplayLogFile(ctx, replayInput, ws.row, replaySpeed)
		logger.Info("replay finished", "rows", n, "input", replayInput)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to blackout log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().StringVar(&replayOutput, "output", outputJSON, "Stdout output: json, color or none")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
