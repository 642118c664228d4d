// Package kernel implements the discrete-time simulation kernel: a graph of
// entities connected by typed, cardinality-constrained relations, and a
// two-phase step protocol that lets behaviors observe a stable snapshot while
// mutating the graph through deferred commands.
//
// OWNERSHIP:
//
// The Model owns every Entity and Relation. Entities own their Functions,
// Functions own their Processes. Relation endpoints and an entity's relation
// back-references are ids resolved through the Model's tables, never
// pointers, so deleting a node can never leave a dangling edge behind.
//
// STEP PROTOCOL:
//
//	Simulate()
//	  collect: for each registered process, in registration order:
//	             if function active and condition true: run action
//	             append returned commands to the step's command list
//	  apply:   apply each command in order against the live graph
//
// Process actions only see read-only views (ModelView, EntityView,
// FunctionView, RelationView). Views expose getters and return copies of
// every Variable, so an action cannot mutate the graph except by returning
// commands.
//
// ERROR POLICY:
//
// Setup calls (AddRelation, RemoveRelation, RemoveEntity,
// DefineRelationship) return *Error values. During apply, a command whose
// target no longer exists is dropped and recorded in the StepReport; a step
// always runs to completion.
//
// CONCURRENCY:
//
// A Model is not safe for concurrent use. Drive it from one goroutine.
package kernel
