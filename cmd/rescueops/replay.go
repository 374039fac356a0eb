package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rescueops/internal/ingest"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay re-ingests a JSONL telemetry log into the record store and the configured sinks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kv, closeKV, err := newKV(ctx, cfg.Storage, log)
		if err != nil {
			return err
		}
		defer closeKV()
		sinks, cleanup, err := newSinks(cfg.Storage, replayPrintOnly, "")
		if err != nil {
			return err
		}
		defer cleanup()

		svc := ingest.NewService(kv, ingest.WithSinks(sinks...), ingest.WithLogger(log))
		n, err := ingest.ReplayLogFile(ctx, replayInput, svc, replaySpeed)
		log.Info("replay finished", "input", replayInput, "records", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delays)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Mirror telemetry to STDOUT instead of GreptimeDB")
	_ = replayCmd.MarkFlagRequired("input")
}
