package fanout

import (
	"fmt"
	"time"

	"github.com/NetPo4ki/go-fanout/scope"
)

// Task is one named unit of work in a run.
type Task struct {
	Name string
	Run  scope.Producer
}

// DeadlineKind selects where a policy places its time budget.
type DeadlineKind int

const (
	// DeadlineNone: tasks run to completion, however long that takes.
	DeadlineNone DeadlineKind = iota
	// PerTaskSoft: each budgeted task has a wait limit. On expiry the run
	// stops waiting for that task but does not cancel it; the producer is
	// abandoned and drains with the scope.
	PerTaskSoft
	// PerTaskHard: each budgeted task is cancelled when its budget expires.
	PerTaskHard
	// GlobalHard: one budget races the entire task set.
	GlobalHard
)

// ExpiryAction decides what a GlobalHard policy does when the budget expires.
type ExpiryAction int

const (
	// HarvestPartial keeps the values that made it and reports the rest as
	// excluded.
	HarvestPartial ExpiryAction = iota
	// FailClosed discards everything and fails the run. Appropriate when
	// partial data is worse than no data.
	FailClosed
)

// Fallback holds per-bucket substitute values for one task. The bucket that
// matches the task's terminal outcome is used; a substitute may be nil.
type Fallback struct {
	OnFailure any
	OnTimeout any
	OnCancel  any
}

func (f Fallback) substitute(k scope.Kind) any {
	switch k {
	case scope.KindTimedOut:
		return f.OnTimeout
	case scope.KindCancelled:
		return f.OnCancel
	default:
		return f.OnFailure
	}
}

// Policy is the static configuration of one orchestration run: scope mode,
// deadline placement, and fallback substitution.
type Policy struct {
	Mode         scope.Mode
	Deadline     DeadlineKind
	Budgets      map[string]time.Duration
	GlobalBudget time.Duration
	OnExpiry     ExpiryAction
	Fallbacks    map[string]Fallback
}

func (p Policy) validate(tasks []Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("fanout: no tasks")
	}
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t.Name == "" {
			return fmt.Errorf("fanout: task with empty name")
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("fanout: duplicate task name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	for name, d := range p.Budgets {
		if d <= 0 {
			return fmt.Errorf("fanout: non-positive budget for task %q", name)
		}
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("fanout: budget for unknown task %q", name)
		}
	}
	switch p.Deadline {
	case DeadlineNone:
	case PerTaskSoft, PerTaskHard:
		if len(p.Budgets) == 0 {
			return fmt.Errorf("fanout: per-task deadline policy without budgets")
		}
	case GlobalHard:
		if p.GlobalBudget <= 0 {
			return fmt.Errorf("fanout: global deadline policy without a positive budget")
		}
	default:
		return fmt.Errorf("fanout: unknown deadline kind %d", p.Deadline)
	}
	return nil
}

// FailFast is an all-or-nothing run: the first task failure cancels the
// siblings and fails the run, and no partial value is observable.
func FailFast() Policy {
	return Policy{Mode: scope.Linked, Deadline: DeadlineNone}
}

// Supervised contains every task failure and substitutes the configured
// fallback, so the run always completes.
func Supervised(fallbacks map[string]Fallback) Policy {
	return Policy{Mode: scope.Isolated, Deadline: DeadlineNone, Fallbacks: fallbacks}
}

// SoftBudget gives each budgeted task a non-cancelling wait limit; a task
// that blows its limit is abandoned and its fallback substituted, without
// holding up the rest of the run.
func SoftBudget(budgets map[string]time.Duration, fallbacks map[string]Fallback) Policy {
	return Policy{Mode: scope.Isolated, Deadline: PerTaskSoft, Budgets: budgets, Fallbacks: fallbacks}
}

// HardBudget cancels each budgeted task on expiry and substitutes per-bucket
// fallbacks, keeping "too slow" distinguishable from "crashed".
func HardBudget(budgets map[string]time.Duration, fallbacks map[string]Fallback) Policy {
	return Policy{Mode: scope.Isolated, Deadline: PerTaskHard, Budgets: budgets, Fallbacks: fallbacks}
}

// Harvest races the whole task set against one budget and returns whatever
// completed in time, reporting the rest as excluded.
func Harvest(budget time.Duration) Policy {
	return Policy{Mode: scope.Isolated, Deadline: GlobalHard, GlobalBudget: budget, OnExpiry: HarvestPartial}
}

// Strict races the whole task set against one budget and fails the run if
// any task gets cut off. No partial result is ever observable.
func Strict(budget time.Duration) Policy {
	return Policy{Mode: scope.Linked, Deadline: GlobalHard, GlobalBudget: budget, OnExpiry: FailClosed}
}
