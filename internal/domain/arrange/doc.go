// Package arrange orders a user's participated tasks into a feasible,
// priority-respecting sequence.
//
// The input is a parent-pointer forest: every task names at most one
// predecessor. Build turns the flat input into an adjacency map keyed by
// predecessor id and an in-degree counter per task. Arrange then releases
// tasks in topological order, always emitting the ready task with the
// smallest (deadline, weight) key first.
//
// Everything in this package is pure. It performs no I/O and keeps no state
// between calls, so it is safe for concurrent use.
package arrange
