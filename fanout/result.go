package fanout

import (
	"time"

	"github.com/NetPo4ki/go-fanout/scope"
)

// Status is the aggregate disposition of one run.
type Status int

const (
	// Complete: every task's field is populated, by value or by fallback.
	Complete Status = iota
	// PartialTimeout: the global deadline fired and at least one task was
	// excluded from the values.
	PartialTimeout
	// Failed: the run as a whole failed; Values is empty and Err is set.
	Failed
)

func (s Status) String() string {
	switch s {
	case Complete:
		return "complete"
	case PartialTimeout:
		return "partial_timeout"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the aggregate response of one run. Values maps task names to
// their value or fallback; Outcomes carries the per-task classification for
// callers that need to tell the buckets apart.
type Result struct {
	Status   Status
	Values   map[string]any
	Outcomes map[string]scope.Outcome
	Excluded int
	Elapsed  time.Duration
	Err      error
}
