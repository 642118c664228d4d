package kernel

// Action is the body of a process. It reads the graph through the context's
// views and describes every mutation as a returned Command.
type Action func(ctx *ExecutionContext) []Command

// Condition gates process execution.
type Condition interface {
	Evaluate(ctx *ExecutionContext) bool
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc func(ctx *ExecutionContext) bool

// Evaluate calls fn(ctx).
func (fn ConditionFunc) Evaluate(ctx *ExecutionContext) bool { return fn(ctx) }

// Always is a condition that is always true.
var Always Condition = ConditionFunc(func(*ExecutionContext) bool { return true })

// Process is a named unit of behavior owned by one Function.
type Process struct {
	name      string
	function  *Function
	condition Condition
	action    Action
}

// NewProcess creates an unconditioned process.
func NewProcess(name string, action Action) *Process {
	return &Process{name: name, action: action}
}

// NewConditionalProcess creates a process gated by cond.
func NewConditionalProcess(name string, cond Condition, action Action) *Process {
	return &Process{name: name, condition: cond, action: action}
}

// Name returns the process name, unique within its owning function.
func (p *Process) Name() string { return p.name }

// Function returns the owning function, or nil when detached.
func (p *Process) Function() *Function { return p.function }

// Condition returns the attached condition, or nil.
func (p *Process) Condition() Condition { return p.condition }

// SetCondition attaches cond, replacing any previous condition.
func (p *Process) SetCondition(cond Condition) { p.condition = cond }

// ClearCondition detaches the condition; the process becomes
// unconditioned.
func (p *Process) ClearCondition() { p.condition = nil }

// Eligible reports whether the process may run: its function is active and
// its condition, if any, holds.
func (p *Process) Eligible(ctx *ExecutionContext) bool {
	if p.function == nil || !p.function.active {
		return false
	}
	return p.condition == nil || p.condition.Evaluate(ctx)
}

// Execute invokes the action. It has no other effect.
func (p *Process) Execute(ctx *ExecutionContext) []Command {
	if p.action == nil {
		return nil
	}
	return p.action(ctx)
}
