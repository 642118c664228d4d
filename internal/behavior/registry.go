package behavior

import (
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/roach88/simkernel/internal/kernel"
)

// Factory builds an action from decoded spec args.
type Factory func(args map[string]any) (kernel.Action, error)

// Registry maps behavior names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtins returns a registry holding every built-in action.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("increment", newIncrement)
	r.Register("set", newSet)
	r.Register("unset", newUnset)
	r.Register("scale", newScale)
	r.Register("spawn", newSpawn)
	r.Register("link", newLink)
	r.Register("unlink", newUnlink)
	r.Register("delete_self", newDeleteSelf)
	r.Register("deactivate_self", newDeactivateSelf)
	r.Register("toggle_function", newToggleFunction)
	r.Register("tag_relations", newTagRelations)
	return r
}

// Register adds or replaces a behavior.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered behavior names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Action builds the named behavior with args.
func (r *Registry) Action(name string, args map[string]any) (kernel.Action, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown behavior %q", name)
	}
	action, err := f(args)
	if err != nil {
		return nil, fmt.Errorf("behavior %q: %w", name, err)
	}
	return action, nil
}

// decodeArgs decodes args into out, rejecting keys out does not declare.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
