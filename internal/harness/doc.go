// Package harness runs simulation scenarios as executable tests.
//
// A scenario names a model, runs it through the engine for a number of
// steps against a fresh in-memory journal, then checks assertions on the
// final model and on the journalled commands. The journal can also be
// compared byte for byte against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: colony
//	description: "A queen spawns a bounded number of ants"
//	steps: 5
//	model:                      # or model_dir: ../models/colony (a CUE package)
//	  name: colony
//	  relationships:
//	    - {name: child_of, source: ant, target: queen, cardinality: one_to_many}
//	  entities:
//	    - name: queen
//	      type: queen
//	      functions:
//	        - name: breeding
//	          active: true
//	          processes:
//	            - name: lay
//	              behavior: spawn
//	              args: {name: ant, type: ant, relation: child_of, max: 3}
//	assertions:
//	  - type: entity_count
//	    entity_type: ant
//	    count: 3
//	  - type: command_count
//	    kind: create_entity
//	    outcome: applied
//	    count: 3
//
// # Assertion Types
//
//   - state_equals, state_absent: a state key of the first entity with a name
//   - entity_exists, entity_absent: whether an entity with a name exists
//   - entity_count: live entities, optionally filtered by type and name prefix
//   - relation_count: live relations, optionally filtered by name
//   - command_count: journalled commands by kind, outcome and step
//   - steps_run, stop_reason: how the run ended
//
// # Deterministic Testing
//
// Ids come from a sequence generator and the run token is fixed, so a
// scenario journals the same records on every execution. Golden snapshots
// leave out digests and error text.
package harness
