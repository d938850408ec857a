// Package tree normalises a profile into a decision tree and enumerates its
// branches.
//
// A DecisionTree alternates AND nodes (ConstraintNode) and OR nodes
// (DecisionNode). Each branch is one choice of option at every decision; the
// walker (internal/walker) fixes field values one branch at a time.
package tree
