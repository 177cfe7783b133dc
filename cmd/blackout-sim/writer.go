package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"blackout-sim/internal/config"
	"blackout-sim/internal/sim"
)

// Output modes for the stdout writer.
const (
	outputAuto  = "auto"
	outputJSON  = "json"
	outputColor = "color"
	outputTUI   = "tui"
	outputNone  = "none"
)

type writerOptions struct {
	Output    string
	PrintOnly bool
	LogFile   string
	Feed      bool
}

// writers is the assembled fan-out plus the pieces the command wires
// further: the live-feed hub and the TUI callbacks.
type writers struct {
	row     *sim.MultiWriter
	hub     *sim.Hub
	tui     *sim.TUIWriter
	cleanup func()
}

func stdoutIsTerminal() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// resolveOutput turns "auto" into the TUI on a terminal and JSON otherwise.
func resolveOutput(mode string, tty bool) (string, error) {
	switch mode {
	case "", outputAuto:
		if tty {
			return outputTUI, nil
		}
		return outputJSON, nil
	case outputJSON, outputColor, outputNone:
		return mode, nil
	case outputTUI:
		if !tty {
			return "", fmt.Errorf("output %q needs a terminal", mode)
		}
		return mode, nil
	}
	return "", fmt.Errorf("unknown output %q (want auto, json, color, tui or none)", mode)
}

// newWriters sets up the row writers from flags and env vars. The stdout
// writer follows opts.Output; GreptimeDB and SQLite are added when their
// env vars are set unless opts.PrintOnly; the JSONL log and the live feed
// are added on request.
func newWriters(cfg *config.Config, e config.Env, opts writerOptions, logger *slog.Logger) (writers, error) {
	var ws []sim.RowWriter
	out := writers{}
	fail := func(err error) (writers, error) {
		for _, w := range ws {
			if c, ok := w.(interface{ Close() error }); ok {
				_ = c.Close()
			}
		}
		return writers{}, err
	}

	switch opts.Output {
	case outputJSON:
		ws = append(ws, sim.NewJSONStdoutWriter())
	case outputColor:
		ws = append(ws, sim.NewColorStdoutWriter(cfg))
	case outputTUI:
		out.tui = sim.NewTUIWriter(cfg)
		ws = append(ws, out.tui)
	}

	if !opts.PrintOnly && e.GreptimeEndpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(e.GreptimeEndpoint, e.GreptimeDatabase, sim.GreptimeTables{
			Blackout: e.BlackoutTable,
			Damage:   e.DamageTable,
			Sanity:   e.SanityTable,
			State:    e.StateTable,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("init greptime writer: %w", err))
		}
		ws = append(ws, gw)
	}
	if !opts.PrintOnly && e.SQLitePath != "" {
		sw, err := sim.OpenSQLiteWriter(e.SQLitePath)
		if err != nil {
			return fail(err)
		}
		ws = append(ws, sw)
	}
	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(sim.PathsFor(opts.LogFile))
		if err != nil {
			return fail(err)
		}
		ws = append(ws, fw)
	}
	if opts.Feed {
		out.hub = sim.NewHub(logger)
		ws = append(ws, sim.NewBroadcastWriter(out.hub))
	}

	out.row = sim.NewMultiWriter(ws...)
	hub := out.hub
	out.cleanup = func() {
		if hub != nil {
			hub.Close()
		}
		if err := out.row.Close(); err != nil {
			logger.Warn("closing writers", "err", err)
		}
	}
	return out, nil
}
