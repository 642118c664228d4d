// Package behavior provides the named built-in actions and conditions that
// declarative model specs bind processes to.
//
// A process in a model spec names a behavior ("increment", "spawn", ...)
// and passes it an args map. The Registry decodes the args into a typed
// struct with mapstructure, rejecting unknown keys, and returns a
// kernel.Action. Actions never mutate the graph; they return commands.
//
// Built-in actions:
//
//	increment        add `by` (default 1) to state `key`
//	set              set state `key` to `value`
//	unset            remove state `key`
//	scale            multiply numeric state `key` by `factor`
//	spawn            create an entity, optionally related back to the spawner
//	link             relate the entity to a named entity or to every entity of a type
//	unlink           delete the entity's relations of a name
//	delete_self      delete the entity
//	deactivate_self  deactivate the function owning the process
//	toggle_function  activate or deactivate another function of the entity
//	tag_relations    set a metadata entry on the entity's relations of a name
package behavior
