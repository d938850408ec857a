// Package profile is the in-memory form of a datagen profile: the declared
// fields and the rules constraining them.
//
// A Profile is produced by the CUE compiler (internal/compiler) and consumed
// by the tree builder (internal/tree). Constraints form a closed set:
//
//   - Atomic: one predicate on one field (Op selects which)
//   - Relation: a comparison between two fields
//   - AllOf, AnyOf, Not, If: grammatical combinators
//
// Profiles are read-only once compiled.
package profile
