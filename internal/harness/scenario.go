package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/steps"
)

// Scenario is a scripted fixture session: a list of steps run against a fresh
// store, followed by count checks on what was committed.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario covers.
	Description string `yaml:"description"`

	// Schema lists CUE files declaring extra entity types.
	// Relative paths are resolved against the scenario file's directory.
	Schema []string `yaml:"schema,omitempty"`

	// CommitMode selects bulk commit behavior: "batch" (default) or "row".
	CommitMode string `yaml:"commit_mode,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Counts are checked against committed rows after the last step.
	Counts []Count `yaml:"counts,omitempty"`
}

// Step is either a step sentence (with an optional table) or a direct entity
// block. Exactly one of Text and Entity is set.
type Step struct {
	// Text is a step sentence such as `a User entity "ann@example.com"`.
	Text string `yaml:"step,omitempty"`

	// Table holds table rows for bulk steps. The first row is the header.
	Table [][]string `yaml:"table,omitempty"`

	// Entity provisions one entity with typed field values.
	Entity *EntityStep `yaml:"entity,omitempty"`

	// Fails names the error kind the step must fail with.
	// Empty means the step must succeed.
	Fails string `yaml:"fails,omitempty"`
}

// EntityStep provisions one entity without going through a sentence.
type EntityStep struct {
	Type       string         `yaml:"type"`
	Identifier string         `yaml:"identifier"`
	Fields     map[string]any `yaml:"fields,omitempty"`
}

// Count expects a number of committed entities of a type.
type Count struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

var failKinds = map[string]bool{
	fixture.KindMissingFactory:   true,
	fixture.KindMissingEntity:    true,
	fixture.KindUnexpectedEntity: true,
	fixture.KindExpectation:      true,
}

// LoadScenario reads and parses a scenario YAML file.
// Schema paths are resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Schema {
		if !filepath.IsAbs(p) {
			scenario.Schema[i] = filepath.Join(base, p)
		}
	}
	for _, p := range scenario.Schema {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", p)
		}
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field checking and
// validates it. Schema paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if _, err := steps.ParseCommitMode(s.CommitMode); err != nil {
		return err
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.Text == "" && step.Entity == nil:
			return fmt.Errorf("steps[%d]: one of step or entity is required", i)
		case step.Text != "" && step.Entity != nil:
			return fmt.Errorf("steps[%d]: step and entity are mutually exclusive", i)
		case step.Entity != nil && step.Entity.Type == "":
			return fmt.Errorf("steps[%d].entity: type is required", i)
		case step.Entity != nil && step.Entity.Identifier == "":
			return fmt.Errorf("steps[%d].entity: identifier is required", i)
		case step.Entity != nil && len(step.Table) > 0:
			return fmt.Errorf("steps[%d]: table is only valid with step", i)
		}
		if step.Fails != "" && !failKinds[step.Fails] {
			return fmt.Errorf("steps[%d]: unknown error kind %q", i, step.Fails)
		}
	}

	for i, c := range s.Counts {
		if c.Type == "" {
			return fmt.Errorf("counts[%d]: type is required", i)
		}
		if c.Count < 0 {
			return fmt.Errorf("counts[%d]: count must be non-negative", i)
		}
	}

	return nil
}
