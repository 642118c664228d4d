// Package queryir provides the query intermediate representation used to
// select entities inside a running model and to select journal entries from
// the store.
//
// Two families of queries live here:
//
//   - Entity predicates (TypeIs, NameIs, NamePrefix, StateEquals,
//     StateCompare, HasRelation, And) are evaluated in memory against a
//     Subject. The kernel's model view adapts entities to Subject so process
//     actions can filter the graph declaratively.
//   - JournalQuery describes a slice of a recorded run. It is compiled to SQL
//     by package querysql and executed by package store.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, which keeps type switches in
// evaluators exhaustive.
//
// Example:
//
//	switch p := pred.(type) {
//	case TypeIs:
//	    // Handle type filter
//	case And:
//	    // Handle conjunction
//	}
//
// Predicates are plain values and may be passed either by value or by
// pointer; Evaluate and Validate accept both forms.
package queryir
