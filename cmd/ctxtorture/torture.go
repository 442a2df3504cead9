package main

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kolkov/taskgroupctx/groupctx"
)

type tortureConfig struct {
	workers    int
	cancellers int
	contexts   int
	rounds     int
	seed       int64
	verbose    bool
}

type tortureStats struct {
	rounds        int64
	contextsBound int64
	cancelsTried  int64
	cancelsWon    int64
	bindsFast     int64
}

// tracked pairs a context with the parent it was built under, so the
// verifier can walk the intended tree without touching poisoned pointers.
type tracked struct {
	ctx    *groupctx.Context
	parent *groupctx.Context // nil for round roots
}

// roundState is shared between builder and canceller goroutines of one
// round.
type roundState struct {
	mu      sync.Mutex
	all     []tracked
	done    atomic.Bool
	rngSeed int64
}

func (rs *roundState) record(ctx, parent *groupctx.Context) {
	rs.mu.Lock()
	rs.all = append(rs.all, tracked{ctx: ctx, parent: parent})
	rs.mu.Unlock()
}

func (rs *roundState) pick(rng *rand.Rand) *groupctx.Context {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.all) == 0 {
		return nil
	}
	return rs.all[rng.Intn(len(rs.all))].ctx
}

func torture(cfg tortureConfig) (tortureStats, error) {
	var stats tortureStats
	arena := groupctx.NewArena()

	for round := 0; round < cfg.rounds; round++ {
		stats.rounds++
		if err := tortureRound(cfg, arena, int64(round), &stats); err != nil {
			return stats, fmt.Errorf("round %d: %w", round, err)
		}
		if cfg.verbose {
			fmt.Printf("round %d ok (%d contexts so far)\n", round, stats.contextsBound)
		}
	}
	return stats, nil
}

func tortureRound(cfg tortureConfig, arena *groupctx.Arena, round int64, stats *tortureStats) error {
	rs := &roundState{rngSeed: cfg.seed ^ (round << 17)}

	// The round root is bound on an external thread; worker trees grow
	// under it so cancellations cross thread boundaries.
	ext := groupctx.NewThread(arena)
	groupctx.AttachExternal(ext)
	root := groupctx.NewContext(groupctx.Traits{Bound: true})
	groupctx.Bind(root, ext) // outermost level: ends up isolated
	rs.record(root, nil)

	// One context per round is cancelled by every canceller at once to
	// check the single-winner property.
	contested := groupctx.NewContext(groupctx.Traits{Bound: true})
	var contestedWins atomic.Int64

	// Worker records stay attached until verification is done: a sweep
	// must be able to reach every context built this round.
	tds := make([]*groupctx.ThreadData, cfg.workers)
	for w := range tds {
		tds[w] = groupctx.NewThread(arena)
		groupctx.AttachWorker(tds[w])
	}

	var g errgroup.Group
	for w := 0; w < cfg.workers; w++ {
		w := w
		td := tds[w]
		g.Go(func() error {
			rng := rand.New(rand.NewSource(rs.rngSeed + int64(w)))
			built := 0
			groupctx.Run(td, root, func() {
				if w == 0 {
					// Hang the contested context somewhere real.
					groupctx.Bind(contested, td)
					rs.record(contested, root)
				}
				var grow func(parent *groupctx.Context, budget int) int
				grow = func(parent *groupctx.Context, budget int) int {
					if budget <= 0 {
						return 0
					}
					ctx := groupctx.NewContext(groupctx.Traits{Bound: true})
					before := groupctx.PropagationEpoch()
					n := 0
					groupctx.Run(td, ctx, func() {
						n = 1 + grow(ctx, budget-1)
						if rng.Intn(4) == 0 {
							n += grow(ctx, rng.Intn(budget))
						}
					})
					if groupctx.PropagationEpoch() == before {
						atomic.AddInt64(&stats.bindsFast, 1)
					}
					rs.record(ctx, parent)
					return n
				}
				// Cancellers may kill the round root or keep shooting down
				// fresh subtrees; bound attempts keep the round finite.
				for attempts := 0; built < cfg.contexts && attempts < cfg.contexts*4; attempts++ {
					if groupctx.IsGroupExecutionCancelled(root) {
						break
					}
					built += grow(root, 1+rng.Intn(6))
				}
			})
			atomic.AddInt64(&stats.contextsBound, int64(built))
			return nil
		})
	}

	var cg errgroup.Group
	for c := 0; c < cfg.cancellers; c++ {
		c := c
		cg.Go(func() error {
			rng := rand.New(rand.NewSource(rs.rngSeed - int64(c) - 1))
			if groupctx.CancelGroupExecution(contested) {
				contestedWins.Add(1)
			}
			for !rs.done.Load() {
				ctx := rs.pick(rng)
				if ctx == nil {
					continue
				}
				atomic.AddInt64(&stats.cancelsTried, 1)
				was := groupctx.IsGroupExecutionCancelled(ctx)
				if groupctx.CancelGroupExecution(ctx) {
					atomic.AddInt64(&stats.cancelsWon, 1)
					if was {
						return fmt.Errorf("cancel won on an already-cancelled context")
					}
				}
			}
			return nil
		})
	}

	buildErr := g.Wait()
	rs.done.Store(true)
	cancelErr := cg.Wait()
	if buildErr != nil {
		return buildErr
	}
	if cancelErr != nil {
		return cancelErr
	}
	if n := contestedWins.Load(); n != 1 {
		return fmt.Errorf("contested cancel won %d times, want 1", n)
	}

	if err := verifyRound(rs); err != nil {
		return err
	}

	// Teardown. Destroy order does not matter for the lists (remove only
	// touches live neighbors), but the round root goes last for clarity.
	rs.mu.Lock()
	for i := len(rs.all) - 1; i >= 0; i-- {
		if rs.all[i].ctx != root {
			groupctx.Destroy(rs.all[i].ctx)
		}
	}
	rs.mu.Unlock()
	groupctx.Destroy(root)
	if contested.State() != groupctx.StateDead {
		// The round root was cancelled before worker 0 could hang the
		// contested context; it was never recorded.
		groupctx.Destroy(contested)
	}

	for _, td := range tds {
		groupctx.DetachWorker(td)
	}
	groupctx.DetachExternal(ext)
	return nil
}

// verifyRound checks, after all binds and cancels completed, that every
// context whose recorded ancestor chain passes through a cancelled context
// observes the cancellation.
func verifyRound(rs *roundState) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	parents := make(map[*groupctx.Context]*groupctx.Context, len(rs.all))
	for _, t := range rs.all {
		parents[t.ctx] = t.parent
	}
	for _, t := range rs.all {
		inherited := false
		for p := parents[t.ctx]; p != nil; p = parents[p] {
			if groupctx.IsGroupExecutionCancelled(p) {
				inherited = true
				break
			}
		}
		if inherited && !groupctx.IsGroupExecutionCancelled(t.ctx) {
			return fmt.Errorf("context missed an ancestor's cancellation")
		}
	}
	return nil
}
