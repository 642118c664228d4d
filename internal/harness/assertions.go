package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/simkernel/internal/ir"
	"github.com/roach88/simkernel/internal/kernel"
	"github.com/roach88/simkernel/internal/queryir"
)

// maxJournalLines bounds the journal excerpt printed with a failure.
const maxJournalLines = 20

// AssertionContext is what assertions are evaluated against.
type AssertionContext struct {
	Model    *kernel.Model
	Run      ir.Run
	Commands []ir.CommandRecord
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string             // Assertion type for categorization
	Expected string             // Human-readable expected outcome
	Actual   string             // Human-readable actual outcome
	Journal  []ir.CommandRecord // Journal excerpt for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Journal) == 0 {
		return buf.String()
	}

	cmds := e.Journal
	fmt.Fprintf(&buf, "\nJournal (%d commands):\n", len(cmds))
	if len(cmds) > maxJournalLines {
		fmt.Fprintf(&buf, "  ... %d earlier commands omitted\n", len(cmds)-maxJournalLines)
		cmds = cmds[len(cmds)-maxJournalLines:]
	}
	for _, c := range cmds {
		fmt.Fprintf(&buf, "  [%d] step %d %s %s %s\n", c.Seq, c.Step, c.Kind, c.Target, c.Outcome)
	}

	return buf.String()
}

// assertStateEquals checks a state key of the first entity with the name.
// Values compare by kind: 3 and 3.0 are different values.
func assertStateEquals(m *kernel.Model, a Assertion) error {
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("state_equals: value: %w", err)
	}

	e, ok := m.EntityByName(a.Entity)
	if !ok {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s.%s = %s", a.Entity, a.Key, ir.FormatValue(want)),
			Actual:   fmt.Sprintf("no entity named %q", a.Entity),
		}
	}

	got, ok := e.State().Get(a.Key)
	if !ok {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s.%s = %s", a.Entity, a.Key, ir.FormatValue(want)),
			Actual:   "key not present",
		}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s.%s = %s (%s)", a.Entity, a.Key, ir.FormatValue(want), want.Kind()),
			Actual:   fmt.Sprintf("%s (%s)", ir.FormatValue(got), got.Kind()),
		}
	}
	return nil
}

func assertStateAbsent(m *kernel.Model, a Assertion) error {
	e, ok := m.EntityByName(a.Entity)
	if !ok {
		return &AssertionError{
			Type:     AssertStateAbsent,
			Expected: fmt.Sprintf("%s has no %s", a.Entity, a.Key),
			Actual:   fmt.Sprintf("no entity named %q", a.Entity),
		}
	}
	if got, ok := e.State().Get(a.Key); ok {
		return &AssertionError{
			Type:     AssertStateAbsent,
			Expected: fmt.Sprintf("%s has no %s", a.Entity, a.Key),
			Actual:   fmt.Sprintf("%s.%s = %s", a.Entity, a.Key, ir.FormatValue(got)),
		}
	}
	return nil
}

func assertEntityPresence(m *kernel.Model, a Assertion, want bool) error {
	_, ok := m.EntityByName(a.Entity)
	if ok == want {
		return nil
	}
	if want {
		return &AssertionError{
			Type:     AssertEntityExists,
			Expected: fmt.Sprintf("entity %q exists", a.Entity),
			Actual:   "not found",
		}
	}
	return &AssertionError{
		Type:     AssertEntityAbsent,
		Expected: fmt.Sprintf("no entity %q", a.Entity),
		Actual:   fmt.Sprintf("%d entities named %q", len(m.EntitiesByName(a.Entity)), a.Entity),
	}
}

// assertEntityCount counts live entities matching the optional type and
// name prefix filters.
func assertEntityCount(m *kernel.Model, a Assertion) error {
	var preds []queryir.Predicate
	if a.EntityType != "" {
		preds = append(preds, queryir.TypeIs{Type: a.EntityType})
	}
	if a.NamePrefix != "" {
		preds = append(preds, queryir.NamePrefix{Prefix: a.NamePrefix})
	}
	count := len(m.View().Query(queryir.And{Predicates: preds}))

	if count != a.Count {
		return &AssertionError{
			Type:     AssertEntityCount,
			Expected: fmt.Sprintf("%d entities%s", a.Count, describeFilter(a)),
			Actual:   fmt.Sprintf("%d entities", count),
		}
	}
	return nil
}

func assertRelationCount(m *kernel.Model, a Assertion) error {
	count := 0
	for _, r := range m.Relations() {
		if a.Relation == "" || r.Name() == a.Relation {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertRelationCount,
			Expected: fmt.Sprintf("%d relations%s", a.Count, describeFilter(a)),
			Actual:   fmt.Sprintf("%d relations", count),
		}
	}
	return nil
}

// assertCommandCount counts journalled commands matching kind, outcome and
// step. Zero-valued filters match everything.
func assertCommandCount(cmds []ir.CommandRecord, a Assertion) error {
	count := 0
	for _, c := range cmds {
		if a.Kind != "" && c.Kind != a.Kind {
			continue
		}
		if a.Outcome != "" && c.Outcome != a.Outcome {
			continue
		}
		if a.Step != 0 && c.Step != a.Step {
			continue
		}
		count++
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertCommandCount,
			Expected: fmt.Sprintf("%d commands%s", a.Count, describeFilter(a)),
			Actual:   fmt.Sprintf("%d commands", count),
			Journal:  cmds,
		}
	}
	return nil
}

func assertStepsRun(run ir.Run, a Assertion) error {
	if run.StepsRun != int64(a.Count) {
		return &AssertionError{
			Type:     AssertStepsRun,
			Expected: fmt.Sprintf("%d steps run", a.Count),
			Actual:   fmt.Sprintf("%d steps run (stop reason %s)", run.StepsRun, run.StopReason),
		}
	}
	return nil
}

func assertStopReason(run ir.Run, a Assertion) error {
	want, _ := a.Value.(string)
	if run.StopReason != want {
		return &AssertionError{
			Type:     AssertStopReason,
			Expected: fmt.Sprintf("stop reason %s", want),
			Actual:   fmt.Sprintf("stop reason %s after %d steps", run.StopReason, run.StepsRun),
		}
	}
	return nil
}

// describeFilter renders the optional filters of an assertion for messages.
func describeFilter(a Assertion) string {
	var parts []string
	if a.EntityType != "" {
		parts = append(parts, "type="+a.EntityType)
	}
	if a.NamePrefix != "" {
		parts = append(parts, "name_prefix="+a.NamePrefix)
	}
	if a.Relation != "" {
		parts = append(parts, "relation="+a.Relation)
	}
	if a.Kind != "" {
		parts = append(parts, "kind="+a.Kind)
	}
	if a.Outcome != "" {
		parts = append(parts, "outcome="+a.Outcome)
	}
	if a.Step != 0 {
		parts = append(parts, fmt.Sprintf("step=%d", a.Step))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// EvaluateAssertions evaluates all assertions and returns their failure
// messages. An empty slice means every assertion held.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStateEquals, AssertStateAbsent, AssertEntityExists, AssertEntityAbsent,
			AssertEntityCount, AssertRelationCount:
			if actx == nil || actx.Model == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a model", i, assertion.Type)
				break
			}
			err = evaluateModelAssertion(actx.Model, assertion)
		case AssertCommandCount:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: command_count requires a journal", i)
				break
			}
			err = assertCommandCount(actx.Commands, assertion)
		case AssertStepsRun:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: steps_run requires a run", i)
				break
			}
			err = assertStepsRun(actx.Run, assertion)
		case AssertStopReason:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: stop_reason requires a run", i)
				break
			}
			err = assertStopReason(actx.Run, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func evaluateModelAssertion(m *kernel.Model, a Assertion) error {
	switch a.Type {
	case AssertStateEquals:
		return assertStateEquals(m, a)
	case AssertStateAbsent:
		return assertStateAbsent(m, a)
	case AssertEntityExists:
		return assertEntityPresence(m, a, true)
	case AssertEntityAbsent:
		return assertEntityPresence(m, a, false)
	case AssertEntityCount:
		return assertEntityCount(m, a)
	default:
		return assertRelationCount(m, a)
	}
}
