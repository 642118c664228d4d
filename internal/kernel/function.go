package kernel

import (
	"slices"

	"github.com/roach88/simkernel/internal/ir"
)

// Function is a named, independently activatable behavior unit owned by
// one entity. Functions start inactive.
type Function struct {
	name      string
	owner     ID
	params    *ir.Variable
	processes []*Process
	active    bool
}

// NewFunction creates an inactive function with no parameters and no
// processes.
func NewFunction(name string) *Function {
	return &Function{name: name, params: ir.NewVariable()}
}

// Name returns the function name, unique within its owning entity.
func (f *Function) Name() string { return f.name }

// Owner returns the id of the owning entity, or "" when detached.
func (f *Function) Owner() ID { return f.owner }

// Parameters returns the live parameter Variable.
func (f *Function) Parameters() *ir.Variable { return f.params }

// Parameter returns one parameter value.
func (f *Function) Parameter(key string) (ir.Value, bool) {
	return f.params.Get(key)
}

// Activate makes the function's processes eligible to run.
func (f *Function) Activate() { f.active = true }

// Deactivate stops the function's processes from running.
func (f *Function) Deactivate() { f.active = false }

// IsActive reports the activation flag.
func (f *Function) IsActive() bool { return f.active }

// AddProcess transfers ownership of p to the function. A process with the
// same name is replaced in place and returned.
func (f *Function) AddProcess(p *Process) *Process {
	p.function = f
	for i, existing := range f.processes {
		if existing.name == p.name {
			f.processes[i] = p
			if existing != p {
				existing.function = nil
			}
			return existing
		}
	}
	f.processes = append(f.processes, p)
	return nil
}

// Process returns the process with the given name.
func (f *Function) Process(name string) (*Process, bool) {
	for _, p := range f.processes {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// RemoveProcess detaches and returns the named process.
func (f *Function) RemoveProcess(name string) (*Process, bool) {
	for i, p := range f.processes {
		if p.name == name {
			f.processes = slices.Delete(f.processes, i, i+1)
			p.function = nil
			return p, true
		}
	}
	return nil, false
}

// Processes returns the owned processes in insertion order.
func (f *Function) Processes() []*Process {
	return slices.Clone(f.processes)
}
