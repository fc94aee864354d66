// Package scope provides structured-concurrency primitives for fan-out work.
// A Scope owns the tasks it spawns, hands back a Handle per task as the join
// point, and propagates cancellation and errors according to its Mode:
// Linked scopes fail as a unit, Isolated scopes contain each child's failure.
package scope
