// Package generator turns a compiled profile into rows.
//
// ARCHITECTURE:
//
// Pipeline:
// 1. The profile is built into one decision tree (valid mode) or one tree
// per rule with that rule negated (violating mode)
// 2. Each tree's branches are enumerated lazily in option order
// 3. A walker produces the rows of a branch; independent field groups are
// composed by the combination strategy. Groups holding unique fields draw
// fresh values on every row, so a branch never stalls on repeats
// 4. Rows repeating a unique field's value from an earlier branch are dropped
// 5. Surviving rows are stamped with seq from the Clock
//
// Generate evaluates branches one at a time. CollectParallel walks several
// branches at once but consumes their rows in branch order, so both produce
// the same rows with the same seq.
//
// CRITICAL PATTERNS:
//
// Logical Clock
// Rows are stamped with a monotonic seq from Clock.Next(), starting at 1 for
// every run. NEVER use wall-clock timestamps for ordering.
//
// Deterministic Output
// Trees in rule order, branches in option order, values in spec order.
// No randomness; concurrency never reorders output.
package generator
