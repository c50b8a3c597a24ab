package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"repopolicy/internal/checks"
	"repopolicy/internal/inspector"
	"repopolicy/internal/throttle"
)

// RunChecks runs every check concurrently against insp, sharing one fresh
// Throttle of the given capacity and pacing, and waits for all of them.
//
// Results are ordered by check ID, then by the order each check reported
// them. A check that panics contributes a single internal Failure; its
// siblings are unaffected.
func RunChecks(ctx context.Context, cs []checks.Check, insp inspector.Inspector, capacity int, pacing time.Duration) Report {
	return runWithThrottle(ctx, throttle.New(capacity, pacing), cs, insp)
}

func runWithThrottle(ctx context.Context, t *throttle.Throttle, cs []checks.Check, insp inspector.Inspector) Report {
	ordered := make([]checks.Check, len(cs))
	copy(ordered, cs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID() < ordered[j].ID()
	})

	slots := make([][]checks.Outcome, len(ordered))

	// Workers never return an error, so one check finishing badly never
	// cancels the others.
	var g errgroup.Group
	for i, c := range ordered {
		g.Go(func() error {
			slots[i] = runOne(ctx, t, c, insp)
			return nil
		})
	}
	_ = g.Wait()

	var results []Result
	for i, c := range ordered {
		for _, o := range slots[i] {
			results = append(results, Result{CheckID: c.ID(), Outcome: o})
		}
	}
	return Aggregate(results)
}

func runOne(ctx context.Context, t *throttle.Throttle, c checks.Check, insp inspector.Inspector) (out []checks.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = []checks.Outcome{
				checks.Failure(checks.ReasonInternal, fmt.Sprintf("check %s panicked: %v", c.ID(), r)),
			}
		}
	}()
	return c.Run(ctx, t, insp)
}
