// Package tick implements the fixed-timestep accumulator scheduler
// and the five ordered system groups (spec §4.2, §5). It is a
// rewrite of the teacher's timectrl.TimeController: that type drives
// listeners off a wall-clock ticker, which cannot give the
// bit-identical-across-runs guarantee spec §8 requires. This
// scheduler instead accumulates caller-supplied deltas and advances
// in fixed_timestep increments, deterministically, with no
// goroutine of its own — Advance runs synchronously and returns only
// once every whole tick it triggered has completed (spec §5:
// "step... must not partially advance").
package tick

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Group names the five ordered phases of a tick (spec §4.2).
type Group int

const (
	GroupSpatialLOD Group = iota
	GroupPerception
	GroupBehavior
	GroupCoreSim
	GroupEnvironment
)

// RunFunc executes one tick's worth of work for a given group.
type RunFunc func(ctx context.Context, currentTick uint64, dt time.Duration) error

// Scheduler owns the fixed-timestep accumulator. It holds no
// simulation state itself — Runner supplies the five group callbacks.
type Scheduler struct {
	fixedTimestep time.Duration
	maxAccumulated time.Duration

	accumulated time.Duration
	tick        uint64
}

// New constructs a Scheduler for the given fixed timestep. maxTicks
// bounds the spiral-of-death clamp: an Advance call whose delta would
// trigger more than maxTicks ticks is clamped to that many (spec §5).
func New(fixedTimestep time.Duration, maxTicks int) *Scheduler {
	if maxTicks <= 0 {
		maxTicks = 5
	}
	return &Scheduler{
		fixedTimestep:  fixedTimestep,
		maxAccumulated: fixedTimestep * time.Duration(maxTicks),
	}
}

// CurrentTick returns the monotone tick counter.
func (s *Scheduler) CurrentTick() uint64 { return s.tick }

// CurrentTime returns the simulated elapsed time in seconds.
func (s *Scheduler) CurrentTime() float64 {
	return float64(s.tick) * s.fixedTimestep.Seconds()
}

// Runner is the set of per-group callbacks a tick drives. Within a
// group, Scheduler runs every supplied RunFunc concurrently via
// errgroup and waits for them all before moving to the next group.
// The scheduler does not record or check read/write sets: every
// RunFunc placed in the same group runs concurrently with the others,
// and systems that share written state must be combined into one
// RunFunc to run sequentially. GroupCoreSim is always run
// sequentially, in the declared order, because its systems form a
// deliberate read/write chain (order_interpretation -> movement ->
// combat_gather -> combat_apply -> suppression -> morale/rout).
type Runner struct {
	// PreTick runs alone, before GroupSpatialLOD, for bookkeeping that
	// every other system in the tick depends on having already
	// happened — namely the store's dead-squad sweep and grace-period
	// accounting. It never runs concurrently with anything else.
	PreTick RunFunc

	SpatialLOD  []RunFunc // spatial_grid_update, sector_assignment, lod_assignment, activity_flags
	Perception  []RunFunc // threat_awareness, nearby_friendlies
	Behavior    []RunFunc // behavior_state transitions
	CoreSim     []RunFunc // order_interpretation, movement, combat_gather, combat_apply, suppression, morale/rout, in order
	Environment []RunFunc // terrain_damage, destruction
}

// Advance adds delta to the accumulator, clamped to maxAccumulated,
// then runs one complete tick for every fixed_timestep remaining in
// the accumulator. It returns the number of ticks executed.
func (s *Scheduler) Advance(ctx context.Context, delta time.Duration, r Runner) (int, error) {
	if delta < 0 {
		delta = 0
	}
	s.accumulated += delta
	if s.accumulated > s.maxAccumulated {
		s.accumulated = s.maxAccumulated
	}

	ran := 0
	for s.accumulated >= s.fixedTimestep {
		s.accumulated -= s.fixedTimestep
		if err := s.runOneTick(ctx, r); err != nil {
			return ran, err
		}
		s.tick++
		ran++
	}
	return ran, nil
}

func (s *Scheduler) runOneTick(ctx context.Context, r Runner) error {
	dt := s.fixedTimestep
	tickNum := s.tick

	if r.PreTick != nil {
		if err := r.PreTick(ctx, tickNum, dt); err != nil {
			return err
		}
	}

	if err := runGroup(ctx, tickNum, dt, r.SpatialLOD); err != nil {
		return err
	}
	if err := runGroup(ctx, tickNum, dt, r.Perception); err != nil {
		return err
	}
	if err := runGroup(ctx, tickNum, dt, r.Behavior); err != nil {
		return err
	}
	for _, fn := range r.CoreSim {
		if fn == nil {
			continue
		}
		if err := fn(ctx, tickNum, dt); err != nil {
			return err
		}
	}
	if err := runGroup(ctx, tickNum, dt, r.Environment); err != nil {
		return err
	}
	return nil
}

// runGroup executes every non-nil RunFunc in the group concurrently
// and waits for all of them, surfacing the first error. A group of
// zero or one function runs without spinning up errgroup machinery.
func runGroup(ctx context.Context, tickNum uint64, dt time.Duration, fns []RunFunc) error {
	n := 0
	for _, fn := range fns {
		if fn != nil {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	if n == 1 {
		for _, fn := range fns {
			if fn != nil {
				return fn(ctx, tickNum, dt)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		if fn == nil {
			continue
		}
		g.Go(func() error {
			return fn(gctx, tickNum, dt)
		})
	}
	return g.Wait()
}
