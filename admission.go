package docgen

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Session ceiling constants.
const (
	// MinSessions ensures at least one render can run.
	MinSessions = 1

	// MaxSessions caps automatic sizing; each tab costs tens of MB.
	MaxSessions = 8

	// cpuDivisor leaves headroom for Chrome renderer processes.
	cpuDivisor = 2
)

// ResolveMaxSessions determines the concurrent session ceiling.
// Priority: explicit n > GOMAXPROCS-based calculation.
func ResolveMaxSessions(n int) int {
	if n > 0 {
		return n
	}

	// GOMAXPROCS is container-aware once automaxprocs has run.
	auto := runtime.GOMAXPROCS(0) / cpuDivisor
	return max(MinSessions, min(auto, MaxSessions))
}

// admission bounds concurrent render sessions. Waiting honours ctx.
type admission struct {
	sem *semaphore.Weighted
	cap int64
}

func newAdmission(n int) *admission {
	return &admission{sem: semaphore.NewWeighted(int64(n)), cap: int64(n)}
}

// acquire blocks until a slot is free or ctx ends.
func (a *admission) acquire(ctx context.Context) (release func(), err error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { a.sem.Release(1) }, nil
}
