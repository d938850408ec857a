// Package refdata supplies the finite vocabularies behind name-typed fields.
//
// The generator treats a vocabulary as an opaque whitelist; this package only
// decides where the lists come from: the embedded defaults or a user YAML
// file with the same shape.
package refdata

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datagen/internal/profile"
)

//go:embed data/names.yaml
var defaultNames []byte

// Provider returns the vocabulary for a name-typed field.
type Provider interface {
	Names(t profile.FieldType) ([]string, error)
}

// Lists is a Provider backed by first and last name lists.
type Lists struct {
	FirstNames []string `yaml:"firstnames"`
	LastNames  []string `yaml:"lastnames"`
}

// Default returns the embedded name lists.
func Default() *Lists {
	lists, err := parse(defaultNames)
	if err != nil {
		panic(fmt.Sprintf("refdata: embedded names are invalid: %v", err))
	}
	return lists
}

// LoadFile reads name lists from a YAML file. Lists missing from the file
// fall back to the embedded defaults.
func LoadFile(path string) (*Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}
	lists, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defaults := Default()
	if lists.FirstNames == nil {
		lists.FirstNames = defaults.FirstNames
	}
	if lists.LastNames == nil {
		lists.LastNames = defaults.LastNames
	}
	return lists, nil
}

func parse(data []byte) (*Lists, error) {
	var lists Lists
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown keys
	if err := decoder.Decode(&lists); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if lists.FirstNames != nil && len(lists.FirstNames) == 0 {
		return nil, fmt.Errorf("firstnames must not be empty")
	}
	if lists.LastNames != nil && len(lists.LastNames) == 0 {
		return nil, fmt.Errorf("lastnames must not be empty")
	}
	return &lists, nil
}

// Names implements Provider.
func (l *Lists) Names(t profile.FieldType) ([]string, error) {
	switch t {
	case profile.TypeFirstName:
		return l.FirstNames, nil
	case profile.TypeLastName:
		return l.LastNames, nil
	case profile.TypeFullName:
		out := make([]string, 0, len(l.FirstNames)*len(l.LastNames))
		for _, first := range l.FirstNames {
			for _, last := range l.LastNames {
				out = append(out, first+" "+last)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("no reference data for field type %q", t)
	}
}
