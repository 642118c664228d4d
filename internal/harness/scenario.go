package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/simkernel/internal/ir"
)

// Scenario defines a simulation test: a model, a number of steps to run it
// for, and assertions on the journal and the final model state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is an inline model definition. Exactly one of Model and ModelDir
	// must be set.
	Model *ir.ModelSpec `yaml:"model,omitempty"`

	// ModelDir is a directory holding a CUE model package.
	// Relative paths are resolved against the scenario file location.
	ModelDir string `yaml:"model_dir,omitempty"`

	// Steps is the number of simulation steps to run.
	Steps int `yaml:"steps"`

	// StopOnSteadyState ends the run early once a step changes nothing.
	StopOnSteadyState bool `yaml:"stop_on_steady_state,omitempty"`

	// RunID is the fixed run token recorded in the journal.
	// Defaults to "test-run" so golden files stay stable.
	RunID string `yaml:"run_id,omitempty"`

	// IDPrefix prefixes the sequential entity and relation ids ("e" gives
	// e-1, e-2, ...).
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Assertions validate the journal and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a finished run.
type Assertion struct {
	// Type selects the check:
	// - "state_equals": entity Entity has Key set to Value
	// - "state_absent": entity Entity has no Key
	// - "entity_exists" / "entity_absent": an entity named Entity exists or not
	// - "entity_count": number of entities, optionally of EntityType or NamePrefix
	// - "relation_count": number of relations, optionally named Relation
	// - "command_count": journalled commands, optionally by Kind, Outcome and Step
	// - "steps_run": number of steps the run completed
	// - "stop_reason": why the run ended
	Type string `yaml:"type"`

	// Entity is an entity name (state_equals, state_absent, entity_exists,
	// entity_absent).
	Entity string `yaml:"entity,omitempty"`

	// Key is a state key (state_equals, state_absent).
	Key string `yaml:"key,omitempty"`

	// Value is the expected value (state_equals, stop_reason).
	Value any `yaml:"value,omitempty"`

	EntityType string `yaml:"entity_type,omitempty"`
	NamePrefix string `yaml:"name_prefix,omitempty"`
	Relation   string `yaml:"relation,omitempty"`
	Kind       string `yaml:"kind,omitempty"`
	Outcome    string `yaml:"outcome,omitempty"`
	Step       int64  `yaml:"step,omitempty"`

	// Count is the expected number (entity_count, relation_count,
	// command_count, steps_run).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStateEquals   = "state_equals"
	AssertStateAbsent   = "state_absent"
	AssertEntityExists  = "entity_exists"
	AssertEntityAbsent  = "entity_absent"
	AssertEntityCount   = "entity_count"
	AssertRelationCount = "relation_count"
	AssertCommandCount  = "command_count"
	AssertStepsRun      = "steps_run"
	AssertStopReason    = "stop_reason"
)

// LoadScenario reads and parses a scenario YAML file, resolving model_dir
// relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving model_dir relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ModelDir != "" && !filepath.IsAbs(scenario.ModelDir) && basePath != "" {
		scenario.ModelDir = filepath.Join(basePath, scenario.ModelDir)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.ModelDir != "" {
		if _, err := os.Stat(scenario.ModelDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: model directory not found: %s", scenario.ModelDir)
		}
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
// Unknown fields are rejected (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if (s.Model == nil) == (s.ModelDir == "") {
		return fmt.Errorf("exactly one of model and model_dir is required")
	}

	if s.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", s.Steps)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
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
	case AssertStateEquals:
		if a.Entity == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: entity and key are required for state_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for state_equals", index)
		}
		if _, err := ir.FromAny(a.Value); err != nil {
			return fmt.Errorf("assertions[%d]: value: %w", index, err)
		}
	case AssertStateAbsent:
		if a.Entity == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: entity and key are required for state_absent", index)
		}
	case AssertEntityExists, AssertEntityAbsent:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for %s", index, a.Type)
		}
	case AssertEntityCount, AssertRelationCount, AssertStepsRun:
	case AssertCommandCount:
		switch a.Outcome {
		case "", ir.OutcomeApplied, ir.OutcomeDropped:
		default:
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
		if a.Step < 0 {
			return fmt.Errorf("assertions[%d]: step must be non-negative", index)
		}
	case AssertStopReason:
		if _, ok := a.Value.(string); !ok {
			return fmt.Errorf("assertions[%d]: value must be a string for stop_reason", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
