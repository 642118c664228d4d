package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/simkernel/internal/ir"
)

// StepReport summarizes one Simulate call.
type StepReport struct {
	// Step is the 1-based index of the step.
	Step int64

	// Evaluated counts registered processes that were live and considered.
	Evaluated int

	// Executed counts processes whose action ran.
	Executed int

	// Outcomes holds one entry per collected command, in apply order.
	Outcomes []CommandOutcome
}

// CommandOutcome records what happened to one collected command.
type CommandOutcome struct {
	// Origin is the entity owning the process that emitted the command.
	Origin ID

	// Process is the name of the emitting process.
	Process string

	Command Command

	// Applied is false when the command was dropped.
	Applied bool

	// Created is the id of the entity or relation the command created.
	Created ID

	// Err explains a drop. For an applied CreateEntity it reports nested
	// functions or relations that could not be created.
	Err error
}

// Applied returns the number of applied commands.
func (r StepReport) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Applied {
			n++
		}
	}
	return n
}

// Dropped returns the number of dropped commands.
func (r StepReport) Dropped() int {
	return len(r.Outcomes) - r.Applied()
}

// Failures returns every outcome carrying an error.
func (r StepReport) Failures() []CommandOutcome {
	var out []CommandOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Simulate runs one step: collect commands from every eligible process
// against the current graph, then apply them in order. A step always runs
// to completion; commands that cannot be applied are dropped and recorded
// in the report.
func (m *Model) Simulate() StepReport {
	m.step++
	report := StepReport{Step: m.step}

	pending := m.collect(&report)

	report.Outcomes = make([]CommandOutcome, 0, len(pending))
	for _, pc := range pending {
		outcome := m.apply(pc)
		if outcome.Err != nil {
			m.logOutcome(outcome)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	m.logger.Debug("step complete",
		"step", report.Step,
		"executed", report.Executed,
		"applied", report.Applied(),
		"dropped", report.Dropped(),
	)
	return report
}

// SimulateN runs n steps and returns their reports.
func (m *Model) SimulateN(n int) []StepReport {
	reports := make([]StepReport, 0, max(n, 0))
	for range n {
		reports = append(reports, m.Simulate())
	}
	return reports
}

type pendingCommand struct {
	origin  ID
	process string
	cmd     Command
}

// collect runs every eligible process. No mutation of the graph happens
// here, so every process observes the graph as it stood at step start.
func (m *Model) collect(report *StepReport) []pendingCommand {
	view := modelView{m: m}
	var pending []pendingCommand
	for _, p := range m.processes {
		ctx, ok := m.contextFor(p, view)
		if !ok {
			continue
		}
		report.Evaluated++
		if !p.Eligible(ctx) {
			continue
		}
		report.Executed++
		for _, cmd := range p.Execute(ctx) {
			if cmd = derefCommand(cmd); cmd == nil {
				continue
			}
			pending = append(pending, pendingCommand{origin: ctx.Entity.ID(), process: p.name, cmd: cmd})
		}
	}
	m.pruneProcesses()
	return pending
}

// contextFor builds the execution context of a registered process. It
// returns false when the process is no longer attached to a live entity.
func (m *Model) contextFor(p *Process, view modelView) (*ExecutionContext, bool) {
	f := p.function
	if f == nil {
		return nil, false
	}
	e, ok := m.entities[f.owner]
	if !ok {
		return nil, false
	}
	if owned, ok := e.Function(f.name); !ok || owned != f {
		return nil, false
	}
	if owned, ok := f.Process(p.name); !ok || owned != p {
		return nil, false
	}
	return &ExecutionContext{
		Process:  p.name,
		Function: functionView{f: f},
		Entity:   entityView{m: m, e: e},
		Model:    view,
	}, true
}

func (m *Model) logOutcome(o CommandOutcome) {
	level := slog.LevelDebug
	if CodeOf(o.Err) == CodeUnresolvedEndpoint {
		level = slog.LevelWarn
	}
	msg := "command dropped"
	if o.Applied {
		msg = "command partially applied"
	}
	m.logger.Log(context.Background(), level, msg,
		"step", m.step,
		"kind", string(o.Command.Kind()),
		"target", string(o.Command.Target()),
		"process", o.Process,
		"error", o.Err,
	)
}

func (m *Model) apply(pc pendingCommand) CommandOutcome {
	out := CommandOutcome{Origin: pc.origin, Process: pc.process, Command: pc.cmd}
	var err error
	switch cmd := pc.cmd.(type) {
	case UpdateEntityState:
		err = m.applyUpdateEntityState(cmd)
	case DeleteEntityState:
		err = m.applyDeleteEntityState(cmd)
	case CreateEntity:
		var created ID
		created, err = m.applyCreateEntity(cmd)
		if created != "" {
			out.Applied = true
			out.Created = created
			out.Err = err
			return out
		}
	case DeleteEntity:
		err = m.RemoveEntity(cmd.EntityID)
	case CreateRelation:
		var r *Relation
		r, err = m.applyCreateRelation(cmd, pc.origin)
		if err == nil {
			out.Created = r.id
		}
	case DeleteRelation:
		err = m.RemoveRelation(cmd.RelationID)
	case AddFunction:
		err = m.applyAddFunction(cmd)
	case RemoveFunction:
		err = m.applyRemoveFunction(cmd)
	case ActivateFunction:
		err = m.withFunction(cmd.EntityID, cmd.Function, func(f *Function) error {
			f.Activate()
			return nil
		})
	case DeactivateFunction:
		err = m.withFunction(cmd.EntityID, cmd.Function, func(f *Function) error {
			f.Deactivate()
			return nil
		})
	case UpdateFunctionParameter:
		err = m.withFunction(cmd.EntityID, cmd.Function, func(f *Function) error {
			if cmd.Value == nil {
				return invalidCommand("parameter %q has no value", cmd.Key)
			}
			f.params.Set(cmd.Key, ir.CloneValue(cmd.Value))
			return nil
		})
	case DeleteFunctionParameter:
		err = m.withFunction(cmd.EntityID, cmd.Function, func(f *Function) error {
			f.params.Remove(cmd.Key)
			return nil
		})
	case AddProcess:
		err = m.applyAddProcess(cmd)
	case RemoveProcess:
		err = m.withFunction(cmd.EntityID, cmd.Function, func(f *Function) error {
			p, ok := f.RemoveProcess(cmd.Process)
			if !ok {
				return processNotFound(cmd.EntityID, cmd.Function, cmd.Process)
			}
			m.unregisterProcess(p)
			return nil
		})
	case AddCondition:
		err = m.withProcess(cmd.EntityID, cmd.Function, cmd.Process, func(p *Process) error {
			if cmd.Condition == nil {
				return invalidCommand("condition for process %q is nil", cmd.Process)
			}
			p.SetCondition(cmd.Condition)
			return nil
		})
	case RemoveCondition:
		err = m.withProcess(cmd.EntityID, cmd.Function, cmd.Process, func(p *Process) error {
			p.ClearCondition()
			return nil
		})
	case AddRelationMetadata:
		err = m.withRelation(cmd.RelationID, func(r *Relation) error {
			if cmd.Value == nil {
				return invalidCommand("metadata %q has no value", cmd.Key)
			}
			r.metadata.Set(cmd.Key, ir.CloneValue(cmd.Value))
			return nil
		})
	case RemoveRelationMetadata:
		err = m.withRelation(cmd.RelationID, func(r *Relation) error {
			r.metadata.Remove(cmd.Key)
			return nil
		})
	default:
		err = invalidCommand("unknown command %T", pc.cmd)
	}
	out.Applied = err == nil
	out.Err = err
	return out
}

func (m *Model) applyUpdateEntityState(cmd UpdateEntityState) error {
	e, ok := m.entities[cmd.EntityID]
	if !ok {
		return entityNotFound(cmd.EntityID)
	}
	if cmd.Value == nil {
		return invalidCommand("state %q has no value", cmd.Key)
	}
	e.state.Set(cmd.Key, ir.CloneValue(cmd.Value))
	return nil
}

func (m *Model) applyDeleteEntityState(cmd DeleteEntityState) error {
	e, ok := m.entities[cmd.EntityID]
	if !ok {
		return entityNotFound(cmd.EntityID)
	}
	e.state.Remove(cmd.Key)
	return nil
}

// applyCreateEntity creates the entity, then its nested functions and
// relations. The entity is kept even when a nested part fails; the failures
// are returned joined.
func (m *Model) applyCreateEntity(cmd CreateEntity) (ID, error) {
	info := cmd.Info
	e := m.CreateEntity(info.Name, info.Type)
	for k, v := range info.State {
		if v != nil {
			e.state.Set(k, ir.CloneValue(v))
		}
	}

	var errs []error
	for _, fi := range info.Functions {
		f, err := newFunctionFromInfo(fi)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.attachFunction(e, f)
	}
	for _, ri := range info.Relations {
		if _, err := m.createRelation(e.id, ri); err != nil {
			errs = append(errs, err)
		}
	}
	return e.id, errors.Join(errs...)
}

func (m *Model) applyCreateRelation(cmd CreateRelation, origin ID) (*Relation, error) {
	source := cmd.Info.SourceID
	if source == "" {
		source = origin
	}
	return m.createRelation(source, cmd.Info)
}

// createRelation resolves the target of info and adds the relation from
// source. A target given by name resolves to the first live entity with
// that name in creation order.
func (m *Model) createRelation(source ID, info RelationCreationInfo) (*Relation, error) {
	target := info.TargetID
	if target == "" {
		if info.TargetName == "" {
			return nil, invalidCommand("relation %q has no target", info.Name)
		}
		e, ok := m.EntityByName(info.TargetName)
		if !ok {
			return nil, &Error{
				Code:     CodeUnresolvedEndpoint,
				Message:  fmt.Sprintf("no entity named %q", info.TargetName),
				EntityID: source,
				Relation: info.Name,
			}
		}
		target = e.id
	}
	r, err := m.AddRelation(info.Name, source, target)
	if err != nil {
		return nil, err
	}
	for k, v := range info.Metadata {
		if v != nil {
			r.metadata.Set(k, ir.CloneValue(v))
		}
	}
	return r, nil
}

func (m *Model) applyAddFunction(cmd AddFunction) error {
	e, ok := m.entities[cmd.EntityID]
	if !ok {
		return entityNotFound(cmd.EntityID)
	}
	f, err := newFunctionFromInfo(cmd.Info)
	if err != nil {
		return err
	}
	m.attachFunction(e, f)
	return nil
}

func (m *Model) applyRemoveFunction(cmd RemoveFunction) error {
	e, ok := m.entities[cmd.EntityID]
	if !ok {
		return entityNotFound(cmd.EntityID)
	}
	f, ok := e.RemoveFunction(cmd.Function)
	if !ok {
		return functionNotFound(cmd.EntityID, cmd.Function)
	}
	m.unregisterFunction(f)
	return nil
}

func (m *Model) applyAddProcess(cmd AddProcess) error {
	return m.withFunction(cmd.EntityID, cmd.Function, func(f *Function) error {
		p, err := newProcessFromInfo(cmd.Info)
		if err != nil {
			return err
		}
		if replaced := f.AddProcess(p); replaced != nil {
			m.unregisterProcess(replaced)
		}
		m.AddProcess(p)
		return nil
	})
}

func (m *Model) withFunction(entityID ID, name string, fn func(*Function) error) error {
	e, ok := m.entities[entityID]
	if !ok {
		return entityNotFound(entityID)
	}
	f, ok := e.Function(name)
	if !ok {
		return functionNotFound(entityID, name)
	}
	return fn(f)
}

func (m *Model) withProcess(entityID ID, function, name string, fn func(*Process) error) error {
	return m.withFunction(entityID, function, func(f *Function) error {
		p, ok := f.Process(name)
		if !ok {
			return processNotFound(entityID, function, name)
		}
		return fn(p)
	})
}

func (m *Model) withRelation(id ID, fn func(*Relation) error) error {
	r, ok := m.relations[id]
	if !ok {
		return relationNotFound(id)
	}
	return fn(r)
}

func newFunctionFromInfo(info FunctionCreationInfo) (*Function, error) {
	if info.Name == "" {
		return nil, invalidCommand("function name is empty")
	}
	f := NewFunction(info.Name)
	for k, v := range info.Parameters {
		if v != nil {
			f.params.Set(k, ir.CloneValue(v))
		}
	}
	for _, pi := range info.Processes {
		p, err := newProcessFromInfo(pi)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", info.Name, err)
		}
		f.AddProcess(p)
	}
	if info.Active {
		f.Activate()
	}
	return f, nil
}

func newProcessFromInfo(info ProcessCreationInfo) (*Process, error) {
	if info.Name == "" {
		return nil, invalidCommand("process name is empty")
	}
	if info.Action == nil {
		return nil, invalidCommand("process %q has no action", info.Name)
	}
	return NewConditionalProcess(info.Name, info.Condition, info.Action), nil
}
