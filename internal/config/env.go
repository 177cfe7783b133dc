package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env holds runtime settings read from the process environment. They
// cover deployment concerns only; gameplay tuning lives in the YAML file.
type Env struct {
	SessionID    string        `env:"SESSION_ID"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"100ms"`
	LogFormat    string        `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	AdminAddr    string        `env:"ADMIN_ADDR" envDefault:":8080"`

	GreptimeEndpoint string `env:"GREPTIMEDB_ENDPOINT"`
	GreptimeDatabase string `env:"GREPTIMEDB_DATABASE" envDefault:"public"`
	BlackoutTable    string `env:"GREPTIMEDB_BLACKOUT_TABLE" envDefault:"blackout_events"`
	DamageTable      string `env:"GREPTIMEDB_DAMAGE_TABLE" envDefault:"hazard_damage"`
	SanityTable      string `env:"GREPTIMEDB_SANITY_TABLE" envDefault:"player_sanity"`
	StateTable       string `env:"GREPTIMEDB_STATE_TABLE" envDefault:"session_state"`

	SQLitePath string `env:"SQLITE_PATH"`

	LocaleDir    string `env:"LOCALE_DIR"`
	LocaleLang   string `env:"LOCALE_LANG" envDefault:"en_US"`
	LocaleDomain string `env:"LOCALE_DOMAIN" envDefault:"default"`

	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELService  string `env:"OTEL_SERVICE_NAME" envDefault:"blackout-sim"`
}

// LoadEnv parses Env from the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
