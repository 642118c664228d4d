package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/simkernel/internal/ir"
)

// JournalSnapshot captures the journal of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
//
// Digests are left out: they fingerprint the kernel's state encoding and
// are covered by replay comparison instead.
type JournalSnapshot struct {
	ScenarioName string
	Run          ir.Run
	Steps        []ir.StepRecord
	Commands     []ir.CommandRecord
}

// toCanonicalMap converts a JournalSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles values and primitives.
func (s *JournalSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = map[string]any{
			"step":      st.Step,
			"seq":       st.Seq,
			"evaluated": st.Evaluated,
			"executed":  st.Executed,
			"applied":   st.Applied,
			"dropped":   st.Dropped,
			"entities":  st.Entities,
			"relations": st.Relations,
		}
	}

	commands := make([]any, len(s.Commands))
	for i, c := range s.Commands {
		cmd := map[string]any{
			"step":    c.Step,
			"seq":     c.Seq,
			"kind":    c.Kind,
			"origin":  c.Origin,
			"process": c.Process,
			"outcome": c.Outcome,
			"payload": c.Payload,
		}
		if c.Target != "" {
			cmd["target"] = c.Target
		}
		if c.Created != "" {
			cmd["created"] = c.Created
		}
		if c.ErrorCode != "" {
			cmd["error_code"] = c.ErrorCode
		}
		commands[i] = cmd
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.Run.ID,
		"model":         s.Run.Model,
		"steps_run":     s.Run.StepsRun,
		"stop_reason":   s.Run.StopReason,
		"steps":         steps,
		"commands":      commands,
	}
}

// MarshalSnapshot renders the canonical JSON compared against golden files.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := JournalSnapshot{
		ScenarioName: scenarioName,
		Run:          result.Run,
		Steps:        result.Steps,
		Commands:     result.Commands,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the journal against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the journal doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's journal against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
