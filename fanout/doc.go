// Package fanout orchestrates fan-out/fan-in runs: a fixed set of named
// producers is spawned into one scope, deadlines are applied per task or
// globally, and the terminal outcomes are folded into a single Result
// according to a Policy. Six preset policies cover the usual contracts,
// from fail-fast all-or-nothing to best-effort partial harvests.
package fanout
