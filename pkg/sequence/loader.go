package sequence

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Parse parses and validates a sequence from YAML bytes.
func Parse(data []byte) (*Sequence, error) {
	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if len(seq.Steps) == 0 {
		return nil, &LoadError{
			Message: "sequence must have at least one step",
		}
	}

	for i := range seq.Steps {
		if err := validateStep(&seq.Steps[i]); err != nil {
			err.Step = i + 1
			return nil, err
		}
	}

	return &seq, nil
}

func validateStep(step *Step) *LoadError {
	if step.Action == "" {
		return &LoadError{Message: "action is required"}
	}
	if _, ok := actions[step.Action]; !ok {
		return &LoadError{Message: "unknown action " + step.Action}
	}
	if _, err := step.Expect.status(); err != nil {
		return &LoadError{Message: "invalid expect", Cause: err}
	}
	if step.Timeout != "" {
		if _, err := time.ParseDuration(step.Timeout); err != nil {
			return &LoadError{Message: "invalid timeout", Cause: err}
		}
	}
	return nil
}

// Load loads a sequence from a file. A sequence without a name is named
// after the file.
func Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	seq, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	if seq.Name == "" {
		seq.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return seq, nil
}

// LoadDirectory loads all sequences from a directory, in file name order.
// Only files with .yaml or .yml extensions are loaded.
func LoadDirectory(dir string) ([]*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{
			File:    dir,
			Message: "failed to read directory",
			Cause:   err,
		}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var seqs []*Sequence
	for _, name := range names {
		seq, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}
