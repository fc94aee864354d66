// Package simulate provides deterministic-delay producers that stand in for
// real network calls in tests and examples. Producers wait on an injected
// clock, so a fake clock drives them without wall-clock sleeps.
package simulate
