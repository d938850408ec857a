package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datagen/internal/combination"
	"github.com/roach88/datagen/internal/generator"
)

// DefaultRunID is the run ID used when a scenario does not set one.
const DefaultRunID = "scenario-run"

// Scenario defines a generation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Profiles is the directory of CUE profiles to load.
	Profiles string `yaml:"profiles"`

	// Profile selects one profile; optional when the directory has one.
	Profile string `yaml:"profile,omitempty"`

	// Mode is "valid" (default) or "violating".
	Mode string `yaml:"mode,omitempty"`

	// Strategy is a combination strategy name; default field-exhaustive.
	Strategy string `yaml:"strategy,omitempty"`

	MaxRows        int `yaml:"max_rows,omitempty"`
	ValuesPerField int `yaml:"values_per_field,omitempty"`

	// RunID fixes the run ID; defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the generated rows and the stored run.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates generated rows or stored state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": exactly Count rows were generated
	// - "row_contains": some row matches Row (subset match)
	// - "all_rows": every row's Field value is in In
	// - "unique_values": no two rows share a non-null Field value
	// - "violated_count": exactly Count rows violate Rule
	// - "stored_rows": exactly Count stored rows match Where
	Type string `yaml:"type"`

	// Count is the expected number of rows (row_count, violated_count,
	// stored_rows).
	Count int `yaml:"count,omitempty"`

	// Row holds expected field values (row_contains). A YAML null matches a
	// null value.
	Row map[string]any `yaml:"row,omitempty"`

	// Field names the field checked (all_rows, unique_values).
	Field string `yaml:"field,omitempty"`

	// In lists the allowed values (all_rows).
	In []any `yaml:"in,omitempty"`

	// Rule names the violated rule (violated_count); empty counts valid rows.
	Rule string `yaml:"rule,omitempty"`

	// Where filters stored rows by column (stored_rows).
	Where map[string]any `yaml:"where,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount      = "row_count"
	AssertRowContains   = "row_contains"
	AssertAllRows       = "all_rows"
	AssertUniqueValues  = "unique_values"
	AssertViolatedCount = "violated_count"
	AssertStoredRows    = "stored_rows"
)

// LoadScenario reads and parses a scenario YAML file. The profiles path is
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// a relative profiles path against basePath.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML, resolving a relative profiles path
// against basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Profiles != "" && !filepath.IsAbs(scenario.Profiles) && basePath != "" {
		scenario.Profiles = filepath.Join(basePath, scenario.Profiles)
	}
	if scenario.RunID == "" {
		scenario.RunID = DefaultRunID
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Profiles == "" {
		return fmt.Errorf("profiles is required")
	}
	if info, err := os.Stat(s.Profiles); err != nil || !info.IsDir() {
		return fmt.Errorf("profiles directory not found: %s", s.Profiles)
	}
	if s.Mode != "" {
		if _, err := generator.ParseMode(s.Mode); err != nil {
			return err
		}
	}
	if s.Strategy != "" {
		if _, err := combination.Lookup(s.Strategy); err != nil {
			return err
		}
	}
	if s.MaxRows < 0 {
		return fmt.Errorf("max_rows must be non-negative")
	}
	if s.ValuesPerField < 0 {
		return fmt.Errorf("values_per_field must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertRowCount, AssertViolatedCount, AssertStoredRows:
	case AssertRowContains:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for row_contains", index)
		}
	case AssertAllRows:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for all_rows", index)
		}
		if len(a.In) == 0 {
			return fmt.Errorf("assertions[%d]: in is required for all_rows", index)
		}
	case AssertUniqueValues:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for unique_values", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
