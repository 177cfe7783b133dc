package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blackout-sim/internal/config"
)

var (
	validateConfigPath string
	validateSchemaPath string
	validateScenario   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file and optional scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath, validateSchemaPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config %s OK: %d rooms, %d players, %d zones, %d sanity stages\n",
			validateConfigPath, len(cfg.Facility.Rooms), len(cfg.Facility.Players),
			len(cfg.Blackout.Zones), len(cfg.Sanity.Stages))
		if validateScenario == "" {
			return nil
		}
		sc, err := loadScript(validateScenario)
		if err != nil {
			return err
		}
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", validateScenario, err)
		}
		fmt.Fprintf(out, "scenario %s OK: %d phases\n", validateScenario, len(sc.Phases))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "configs/blackout.yaml", "Path to blackout configuration YAML")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "schemas/blackout.cue", "Path to CUE schema file (empty skips the check)")
	validateCmd.Flags().StringVar(&validateScenario, "scenario", "", "Built-in scenario name or path to a scenario YAML")
}
