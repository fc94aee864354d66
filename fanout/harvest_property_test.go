package fanout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/NetPo4ki/go-fanout/clock"
	"github.com/NetPo4ki/go-fanout/simulate"
)

// TestHarvestSubsetProperty verifies the harvest invariant over generated
// workloads: the values of a harvest run are exactly the tasks whose
// simulated duration fits the budget (inclusive), and the excluded count is
// the rest.
func TestHarvestSubsetProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("values are exactly the in-budget tasks", prop.ForAll(
		func(durationsMs []int64, budgetMs int64) bool {
			if len(durationsMs) == 0 {
				durationsMs = []int64{budgetMs}
			}
			clk := clock.NewFake()
			budget := time.Duration(budgetMs) * time.Millisecond
			tasks := make([]Task, len(durationsMs))
			for i, ms := range durationsMs {
				d := time.Duration(ms) * time.Millisecond
				tasks[i] = Task{
					Name: fmt.Sprintf("t%d", i),
					Run:  simulate.Delay(clk, d, ms),
				}
			}

			resCh := make(chan Result, 1)
			go func() {
				res, err := Run(context.Background(), tasks, Harvest(budget), WithClock(clk))
				if err != nil {
					t.Errorf("Run: %v", err)
				}
				resCh <- res
			}()
			clk.BlockUntil(len(tasks) + 1)
			clk.Advance(budget)

			var res Result
			select {
			case res = <-resCh:
			case <-time.After(10 * time.Second):
				t.Error("harvest run did not finish")
				return false
			}

			wantExcluded := 0
			for i, ms := range durationsMs {
				name := fmt.Sprintf("t%d", i)
				if ms <= budgetMs {
					if res.Values[name] != ms {
						return false
					}
				} else {
					wantExcluded++
					if _, present := res.Values[name]; present {
						return false
					}
				}
			}
			if res.Excluded != wantExcluded {
				return false
			}
			if wantExcluded > 0 {
				return res.Status == PartialTimeout
			}
			return res.Status == Complete
		},
		gen.SliceOf(gen.Int64Range(1, 2000)),
		gen.Int64Range(1, 2000),
	))

	properties.TestingRun(t)
}
