// Package ir provides the value types and the declarative model
// representation shared by every other simkernel package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps it the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Value is a sealed interface: Int, Float, String, Bool, Array
//   - Variable is the only mutable container; reads of absent keys report
//     "not present", never a zero value
//   - Canonical JSON (sorted UTF-16 keys, NFC strings) is the only encoding
//     used for digests
//   - All JSON and YAML tags use snake_case
package ir
