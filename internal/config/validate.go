package config

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ErrSchema marks a configuration rejected by the CUE schema.
var ErrSchema = errors.New("schema validation failed")

// ValidateWithCue validates a YAML configuration file using a CUE schema file.
func ValidateWithCue(configFile, cueFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return validateYAML(configFile, data, cueFile)
}

// validateYAML unifies the YAML document named name with the schema in
// cueFile.
func validateYAML(name string, data []byte, cueFile string) error {
	schemaBytes, err := os.ReadFile(cueFile)
	if err != nil {
		return fmt.Errorf("read CUE schema: %w", err)
	}
	ctx := cuecontext.New()
	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename(cueFile))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile CUE schema %s: %w", cueFile, err)
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", name, err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("build config %s: %w", name, err)
	}

	if err := schemaVal.Unify(configVal).Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSchema, name, err)
	}
	return nil
}
