package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blackout-sim/internal/admin"
	"blackout-sim/internal/config"
	"blackout-sim/internal/i18n"
	"blackout-sim/internal/logging"
	"blackout-sim/internal/scenario"
	"blackout-sim/internal/sim"
	"blackout-sim/internal/tracing"
)

const commandTimeout = 2 * time.Second

var (
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simOutput     string
	simPrintOnly  bool
	simLogFile    string
	simScenario   string
	simSeed       int64
	simAdminAddr  string
	simNoAdmin    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time blackout simulation",
	Long: "simulate runs rounds of the blackout scheduler, hazard pipeline and sanity system " +
		"against the configured facility, emitting blackout, damage, sanity and state rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := config.LoadEnv()
		if err != nil {
			return err
		}
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		output, err := resolveOutput(simOutput, stdoutIsTerminal())
		if err != nil {
			return err
		}

		// The TUI owns the terminal, so logs would tear the screen.
		logger := logging.New(e.LogFormat, e.LogLevel)
		if output == outputTUI {
			logger = logging.NewWithWriter(io.Discard, e.LogFormat, e.LogLevel)
		}
		slog.SetDefault(logger)
		i18n.Configure(e.LocaleDir, e.LocaleLang, e.LocaleDomain)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		shutdown, err := tracing.Setup(ctx, e.OTELEnabled, e.OTELEndpoint, e.OTELService)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()

		var script *scenario.Script
		if simScenario != "" {
			script, err = loadScript(simScenario)
			if err != nil {
				return err
			}
		}

		ws, err := newWriters(cfg, e, writerOptions{
			Output:    output,
			PrintOnly: simPrintOnly,
			LogFile:   simLogFile,
			Feed:      !simNoAdmin,
		}, logger)
		if err != nil {
			return err
		}
		defer ws.cleanup()

		tick := simTick
		if tick <= 0 {
			tick = e.TickInterval
		}
		simulator := sim.NewSimulator(cfg, ws.row, sim.Options{
			TickInterval: tick,
			SessionID:    e.SessionID,
			Seed:         simSeed,
			Script:       script,
			Logger:       logger,
		})
		if ws.tui != nil {
			bindTUI(ctx, ws.tui, simulator, logger)
		}

		if !simNoAdmin {
			addr := simAdminAddr
			if addr == "" {
				addr = e.AdminAddr
			}
			srv := admin.NewServer(simulator, ws.hub, logger)
			go func() {
				if err := srv.Start(ctx, addr); err != nil {
					logger.Error("admin server failed", "addr", addr, "err", err)
				}
			}()
		}

		simulator.Run(ctx)
		logger.Info("blackout simulation stopped")
		return nil
	},
}

// bindTUI connects the TUI keys to simulator commands.
func bindTUI(ctx context.Context, tui *sim.TUIWriter, s *sim.Simulator, logger *slog.Logger) {
	tui.SetTrigger(func() {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if err := s.TriggerBlackout(cctx); err != nil {
			logger.Warn("trigger blackout", "err", err)
		}
	})
	tui.SetItemUser(func(player, item string) {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if _, err := s.UseItem(cctx, player, item); err != nil {
			logger.Warn("use item", "player_id", player, "item", item, "err", err)
		}
	})
}

// loadScript resolves name against the built-in scripts first and then as
// a YAML file path.
func loadScript(name string) (*scenario.Script, error) {
	if sc, ok := scenario.BuiltIn()[name]; ok {
		return &sc, nil
	}
	sc, err := scenario.Load(name)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", name, err)
	}
	return sc, nil
}

func init() {
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "configs/blackout.yaml", "Path to blackout configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/blackout.cue", "Path to CUE schema file (empty skips the check)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Simulation tick interval (default TICK_INTERVAL)")
	simulateCmd.Flags().StringVar(&simOutput, "output", outputAuto, "Stdout output: auto, json, color, tui or none")
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Only write to STDOUT, ignoring GreptimeDB and SQLite settings")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export blackout rows (JSONL); damage, sanity and state go to sibling files")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or path to a scenario YAML")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 seeds from the clock)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", "", "Admin server address (default ADMIN_ADDR)")
	simulateCmd.Flags().BoolVar(&simNoAdmin, "no-admin", false, "Disable the admin server and live feed")
}
