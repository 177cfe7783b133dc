// Package dashboard renders the Grafana dashboard for the GreptimeDB sink.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"blackout-sim/internal/config"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Render parses the embedded dashboard templates and writes the rendered
// dashboards to outDir. Table names come from the same environment
// variables the GreptimeDB writer reads.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	e, err := config.LoadEnv()
	if err != nil {
		return err
	}
	data := struct {
		Database      string
		BlackoutTable string
		DamageTable   string
		SanityTable   string
		StateTable    string
	}{e.GreptimeDatabase, e.BlackoutTable, e.DamageTable, e.SanityTable, e.StateTable}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, data); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
