package sim

import (
	"encoding/json"
	"errors"
	"os"

	"blackout-sim/internal/telemetry"
)

// FilePaths names one JSONL file per row kind. Empty paths other than
// Blackout skip that kind.
type FilePaths struct {
	Blackout string
	Damage   string
	Sanity   string
	State    string
}

// PathsFor derives the conventional sibling files of a blackout log.
func PathsFor(base string) FilePaths {
	return FilePaths{
		Blackout: base,
		Damage:   base + ".damage",
		Sanity:   base + ".sanity",
		State:    base + ".state",
	}
}

// FileWriter writes rows to JSONL files.
type FileWriter struct {
	files     []*os.File
	blackEnc  *json.Encoder
	damageEnc *json.Encoder
	sanityEnc *json.Encoder
	stateEnc  *json.Encoder
}

// NewFileWriter creates the files named in p. The blackout path is required.
func NewFileWriter(p FilePaths) (*FileWriter, error) {
	if p.Blackout == "" {
		return nil, errors.New("blackout log path required")
	}
	fw := &FileWriter{}
	open := func(path string) (*json.Encoder, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		fw.files = append(fw.files, f)
		return json.NewEncoder(f), nil
	}
	var err error
	if fw.blackEnc, err = open(p.Blackout); err != nil {
		return nil, err
	}
	for _, target := range []struct {
		path string
		enc  **json.Encoder
	}{
		{p.Damage, &fw.damageEnc},
		{p.Sanity, &fw.sanityEnc},
		{p.State, &fw.stateEnc},
	} {
		if *target.enc, err = open(target.path); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return fw, nil
}

// WriteBlackout logs a single blackout row.
func (f *FileWriter) WriteBlackout(row telemetry.BlackoutRow) error {
	return f.blackEnc.Encode(row)
}

// WriteDamage logs a damage row, if enabled.
func (f *FileWriter) WriteDamage(row telemetry.DamageRow) error {
	if f.damageEnc == nil {
		return nil
	}
	return f.damageEnc.Encode(row)
}

// WriteSanity logs a sanity row, if enabled.
func (f *FileWriter) WriteSanity(row telemetry.SanityRow) error {
	if f.sanityEnc == nil {
		return nil
	}
	return f.sanityEnc.Encode(row)
}

// WriteState logs a session state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.SessionStateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var errs []error
	for _, file := range f.files {
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.files = nil
	return errors.Join(errs...)
}
