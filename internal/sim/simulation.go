// Package sim is the public-facing facade: it wires the store, the
// terrain grid, the spatial index, the order queue, and the fixed-
// timestep scheduler into the command surface spec §6 describes
// (spawn/order/query), and owns the cross-cutting concerns (metrics,
// logging, optional history archive) that no single system package
// should know about. Grounded on the teacher's engine.Engine, which
// plays the same role: a thin struct gluing knowledge bases and
// controllers together behind a handful of public methods.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/logging"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/observability"
	"github.com/signalsfoundry/constellation-simulator/internal/orders"
	"github.com/signalsfoundry/constellation-simulator/internal/persist"
	"github.com/signalsfoundry/constellation-simulator/internal/snapshot"
	"github.com/signalsfoundry/constellation-simulator/internal/spatial"
	"github.com/signalsfoundry/constellation-simulator/internal/systems"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/tick"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// barrage craters are fixed-size regardless of the spread parameter's
// effect on scatter distance; grounded on the original's apply_barrage.
const (
	barrageCraterDepth       = 1.5
	barrageRadiusBase        = 3.0
	barrageRadiusSpreadScale = 0.1
	goldenAngleStep          = 1.618
)

// defaultSquadHealth/defaultSquadSize/... mirror the original
// simulation's SquadStats::default() and the health constructor used
// by spawn_ai_squad.
const (
	defaultSquadHealth = 100.0
	defaultSquadSize   = 12
	defaultSquadMorale = 1.0
)

// Simulation owns one run's worth of world state and drives it
// forward in fixed timesteps. It is never a process-wide singleton
// (spec §9) — callers construct one per match/scenario.
type Simulation struct {
	cfg   config.SimConfig
	store *world.Store
	grid  *terrain.Grid
	idx   *spatial.Index
	queue *orders.Queue
	sched *tick.Scheduler
	combat *systems.PendingResults

	log         logging.Logger
	metrics     *observability.SimCollector
	tickMetrics *observability.TickCollector
	history     *persist.History

	craterMu       sync.Mutex
	pendingCraters []model.Crater

	centroidMu sync.Mutex
	centroids  map[model.Faction]*centroidAccumulator

	lastCraters     []model.Crater
	lastDestruction []systems.DestructionEvent

	limitWarned bool
}

type centroidAccumulator struct {
	sumX, sumY float64
	count      int
}

// Options bundles the Simulation's optional cross-cutting collaborators.
type Options struct {
	Logger      logging.Logger
	Metrics     *observability.SimCollector
	TickMetrics *observability.TickCollector
	History     *persist.History
}

// New constructs a Simulation over the given terrain grid and config.
func New(cfg config.SimConfig, grid *terrain.Grid, opts Options) *Simulation {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Simulation{
		cfg:         cfg,
		store:       world.New(),
		grid:        grid,
		idx:         spatial.New(cfg.SpatialCellSize, cfg.SectorSize),
		queue:       orders.New(),
		sched:       tick.New(cfg.Rate.FixedTimestep(), cfg.MaxAccumulatedTicks),
		combat:      systems.NewPendingResults(),
		log:         log,
		metrics:     opts.Metrics,
		tickMetrics: opts.TickMetrics,
		history:     opts.History,
		centroids:   make(map[model.Faction]*centroidAccumulator),
	}
}

// Store exposes the underlying entity store for read-only inspection
// (tests, snapshot callers that want more than the public views).
func (s *Simulation) Store() *world.Store { return s.store }

// Grid exposes the underlying terrain grid for read-only inspection.
func (s *Simulation) Grid() *terrain.Grid { return s.grid }

// CurrentTick returns the monotone tick counter.
func (s *Simulation) CurrentTick() uint64 { return s.sched.CurrentTick() }

// CurrentTime returns simulated elapsed time in seconds.
func (s *Simulation) CurrentTime() float64 { return s.sched.CurrentTime() }

// Step advances the simulation by deltaSeconds of wall-clock time,
// running zero or more fixed-timestep ticks (spec §4.2, §5). It
// returns the number of ticks actually executed.
func (s *Simulation) Step(ctx context.Context, deltaSeconds float64) (int, error) {
	delta := time.Duration(deltaSeconds * float64(time.Second))

	start := time.Now()
	ran, err := s.sched.Advance(ctx, delta, s.runner())
	elapsed := time.Since(start)

	if s.tickMetrics != nil && ran > 0 {
		perTick := elapsed / time.Duration(ran)
		for i := 0; i < ran; i++ {
			s.tickMetrics.ObserveTick(perTick)
		}
	}
	if err != nil {
		return ran, err
	}

	s.updateGauges()
	if s.history != nil {
		flat := snapshot.EncodeFlatBuffer(s.store)
		if recErr := s.history.Record(s.CurrentTick(), s.CurrentTime(), flat); recErr != nil {
			s.log.Warn(ctx, "history record failed", logging.Int("tick", int(s.CurrentTick())), logging.String("error", recErr.Error()))
		}
	}
	return ran, nil
}

// runner builds the per-tick group wiring. It is rebuilt on every
// Step call rather than cached because it closes over nothing but
// s itself — the cost is a handful of closure allocations per call,
// not per tick.
func (s *Simulation) runner() tick.Runner {
	return tick.Runner{
		PreTick: func(ctx context.Context, currentTick uint64, dt time.Duration) error {
			s.store.SweepDead(currentTick)
			return nil
		},
		SpatialLOD: []tick.RunFunc{
			s.wrap("spatial_grid_update", func(currentTick uint64, dt time.Duration) {
				systems.SpatialGridUpdate(s.store, s.idx, s.cfg)
			}),
			s.wrap("sector_assignment", func(currentTick uint64, dt time.Duration) {
				systems.SectorAssignment(s.store, s.idx)
			}),
			s.wrap("lod_assignment", func(currentTick uint64, dt time.Duration) {
				systems.LODAssignment(s.store, s.cfg)
			}),
			s.wrap("activity_flags", func(currentTick uint64, dt time.Duration) {
				systems.ActivityFlags(s.store, s.cfg, currentTick)
			}),
		},
		Perception: []tick.RunFunc{
			s.wrap("threat_awareness", func(currentTick uint64, dt time.Duration) {
				systems.ThreatAwareness(s.store, s.idx, s.cfg, currentTick)
			}),
			s.wrap("nearby_friendlies", func(currentTick uint64, dt time.Duration) {
				systems.NearbyFriendlies(s.store, s.idx, s.cfg, currentTick)
			}),
		},
		// ApplyOrderCommands and BehaviorTransition both write
		// Squad.Behavior/Order, so they share one RunFunc and run
		// sequentially rather than becoming two racing group members.
		Behavior: []tick.RunFunc{
			s.wrap("behavior", func(currentTick uint64, dt time.Duration) {
				systems.ApplyOrderCommands(s.store, s.queue)
				systems.BehaviorTransition(s.store, s.cfg)
			}),
		},
		CoreSim: []tick.RunFunc{
			s.wrap("order_interpretation", func(currentTick uint64, dt time.Duration) {
				systems.OrderInterpretation(s.store, s.idx, s.grid, s.cfg, s.spawnCentroid)
			}),
			s.wrap("movement", func(currentTick uint64, dt time.Duration) {
				systems.Movement(s.store, s.grid, dt)
			}),
			s.wrap("combat_gather", func(currentTick uint64, dt time.Duration) {
				systems.CombatGather(s.store, s.idx, s.grid, s.cfg, s.combat, currentTick, dt)
			}),
			s.wrap("combat_apply", func(currentTick uint64, dt time.Duration) {
				n := s.combat.Len()
				systems.CombatApply(s.store, s.combat, currentTick)
				if s.metrics != nil {
					s.metrics.AddCombatEvents(n)
				}
			}),
			s.wrap("suppression_morale", func(currentTick uint64, dt time.Duration) {
				systems.SuppressionMoraleUpdate(s.store, s.cfg, dt)
			}),
			s.wrap("flag_newly_dead", func(currentTick uint64, dt time.Duration) {
				s.store.FlagNewlyDead(currentTick)
			}),
		},
		Environment: []tick.RunFunc{
			s.wrap("environment", func(currentTick uint64, dt time.Duration) {
				craters := s.drainCraters()
				events, destruction := systems.TerrainDamage(s.grid, s.store, craters)
				s.lastCraters = events
				s.lastDestruction = destruction
				if s.metrics != nil {
					s.metrics.AddDestructionEvents(len(destruction))
				}
			}),
		},
	}
}

// wrap times fn, when tickMetrics is configured, and adapts it to
// tick.RunFunc's signature. fn itself never fails: every systems.*
// function is a pure in-memory transform with no fallible I/O, so
// there is nothing for the tick loop to abort on mid-group.
func (s *Simulation) wrap(group string, fn func(currentTick uint64, dt time.Duration)) tick.RunFunc {
	return func(ctx context.Context, currentTick uint64, dt time.Duration) error {
		if s.tickMetrics == nil {
			fn(currentTick, dt)
			return nil
		}
		start := time.Now()
		fn(currentTick, dt)
		s.tickMetrics.ObserveGroup(group, time.Since(start))
		return nil
	}
}

// updateGauges refreshes the per-faction squad/LOD gauges. Cheap
// enough to run once per Step rather than fold into a tick group.
func (s *Simulation) updateGauges() {
	if s.metrics == nil {
		return
	}
	var aliveCount [2]int
	var tierCount [2][3]int
	s.store.ForEachLiveSquad(func(sq *model.Squad) {
		aliveCount[sq.Faction]++
		tierCount[sq.Faction][sq.LOD]++
	})
	for f := 0; f < 2; f++ {
		faction := model.Faction(f).String()
		s.metrics.SetSquadsAlive(faction, aliveCount[f])
		s.metrics.SetLODTierCount(faction, "high", tierCount[f][model.LODHigh])
		s.metrics.SetLODTierCount(faction, "medium", tierCount[f][model.LODMedium])
		s.metrics.SetLODTierCount(faction, "low", tierCount[f][model.LODLow])
	}
}

// SpawnSquad creates one squad at (x, y) with the original
// simulation's default stats (spec §4.1; defaults per
// SquadStats::default() / Health::new(100.0)).
func (s *Simulation) SpawnSquad(ctx context.Context, id uint32, faction model.Faction, x, y float64) error {
	sq := &model.Squad{
		ID:        id,
		Faction:   faction,
		X:         x,
		Y:         y,
		Size:      defaultSquadSize,
		Health:    defaultSquadHealth,
		HealthMax: defaultSquadHealth,
		Morale:    defaultSquadMorale,
		Order:     model.Hold(),
		Behavior:  model.BehaviorIdle,
	}
	if err := s.store.SpawnSquad(sq); err != nil {
		return fmt.Errorf("sim: spawn squad %d: %w", id, err)
	}
	s.accumulateCentroid(faction, x, y)
	s.checkSquadLimit(ctx)
	return nil
}

// SpawnMass creates count squads in a square grid formation centered
// on (cx, cy), spanning roughly spread world units (spec §4.1's
// spawn_mass_squads). Unlike SpawnBarrage, this is a grid, not a
// golden-angle scatter, matching the original's implementation. All
// ids from startID are all-or-nothing: if any is already in use, no
// squad is created.
func (s *Simulation) SpawnMass(ctx context.Context, faction model.Faction, cx, cy float64, count int, spread float64, startID uint32) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	cols := int(math.Ceil(math.Sqrt(float64(count))))
	if cols < 1 {
		cols = 1
	}
	spacing := spread / float64(cols)
	rowSpan := count / cols // integer division, matching the original's usize arithmetic

	squads := make([]*model.Squad, 0, count)
	for i := 0; i < count; i++ {
		row := i / cols
		col := i % cols
		x := cx + (float64(col)-float64(cols)/2)*spacing
		y := cy + (float64(row)-float64(rowSpan)/2)*spacing
		squads = append(squads, &model.Squad{
			ID:        startID + uint32(i),
			Faction:   faction,
			X:         x,
			Y:         y,
			Size:      defaultSquadSize,
			Health:    defaultSquadHealth,
			HealthMax: defaultSquadHealth,
			Morale:    defaultSquadMorale,
			Order:     model.Hold(),
			Behavior:  model.BehaviorIdle,
		})
	}

	if err := s.store.SpawnSquadsMass(squads); err != nil {
		return 0, fmt.Errorf("sim: spawn mass (faction %s, count %d): %w", faction, count, err)
	}
	for _, sq := range squads {
		s.accumulateCentroid(faction, sq.X, sq.Y)
	}
	s.checkSquadLimit(ctx)
	return len(squads), nil
}

// SpawnDestructible registers a static destructible (tree/building),
// a supplemental feature present in the original source's
// spawn_tree/spawn_building but not named in the distilled command
// list.
func (s *Simulation) SpawnDestructible(id uint32, dtype model.DestructibleType, x, y, footprint, health float64) error {
	d := &model.Destructible{
		ID:        id,
		Type:      dtype,
		X:         x,
		Y:         y,
		Footprint: footprint,
		Health:    health,
		HealthMax: health,
	}
	if err := s.store.AddDestructible(d); err != nil {
		return fmt.Errorf("sim: spawn destructible %d: %w", id, err)
	}
	return nil
}

// IssueHoldOrder queues a Hold order for squadID, applied at the next
// tick's behavior group.
func (s *Simulation) IssueHoldOrder(squadID uint32) {
	s.queue.Push(orders.Command{SquadID: squadID, Kind: orders.CmdHold})
}

// IssueMoveOrder queues a MoveTo order.
func (s *Simulation) IssueMoveOrder(squadID uint32, x, y float64) {
	s.queue.Push(orders.Command{SquadID: squadID, Kind: orders.CmdMoveTo, X: x, Y: y})
}

// IssueAttackMoveOrder queues an AttackMove order.
func (s *Simulation) IssueAttackMoveOrder(squadID uint32, x, y float64) {
	s.queue.Push(orders.Command{SquadID: squadID, Kind: orders.CmdAttackMove, X: x, Y: y})
}

// IssueRetreatOrder queues a Retreat order.
func (s *Simulation) IssueRetreatOrder(squadID uint32) {
	s.queue.Push(orders.Command{SquadID: squadID, Kind: orders.CmdRetreat})
}

// SpawnCrater applies a single crater immediately: unlike every other
// command here, the original simulation's spawn_crater stamps the
// terrain grid synchronously at command time rather than deferring to
// the next tick's environment group, and also records the event so
// the very next snapshot's new_craters/terrain_damage lists still
// report it once.
func (s *Simulation) SpawnCrater(x, y, radius, depth float64) {
	s.grid.ApplyCrater(terrain.CraterParams{X: x, Y: y, Radius: radius, Depth: depth})
	ev := model.Crater{X: x, Y: y, Radius: radius, Depth: depth, Tick: s.CurrentTick()}
	s.craterMu.Lock()
	s.pendingCraters = append(s.pendingCraters, ev)
	s.craterMu.Unlock()
}

// SpawnBarrage scatters count craters around (cx, cy) using the
// deterministic golden-angle spiral the original simulation's
// apply_barrage uses — never a random scatter, so replays stay
// bit-identical (spec §8 Property 2).
func (s *Simulation) SpawnBarrage(cx, cy, spread float64, count int) {
	if count <= 0 {
		return
	}
	radius := barrageRadiusBase + spread*barrageRadiusSpreadScale
	for i := 0; i < count; i++ {
		angle := float64(i)/float64(count)*2*math.Pi + float64(i)*goldenAngleStep
		dist := spread * (0.3 + 0.7*math.Abs(math.Sin(float64(i)*0.7)))
		x := cx + dist*math.Cos(angle)
		y := cy + dist*math.Sin(angle)
		s.SpawnCrater(x, y, radius, barrageCraterDepth)
	}
}

// FlatSnapshot returns the tight flat-buffer squad encoding (spec §6).
func (s *Simulation) FlatSnapshot() []float32 {
	return snapshot.EncodeFlatBuffer(s.store)
}

// StructuredSnapshot returns the full JSON-shaped snapshot, including
// the craters reported by the most recently executed tick's
// environment group and every destructible's current state. The
// destruction events themselves are not listed.
func (s *Simulation) StructuredSnapshot() snapshot.Snapshot {
	return snapshot.Build(s.store, s.CurrentTick(), s.CurrentTime(), s.lastCraters, s.lastDestruction)
}

// TerrainSnapshot returns the terrain type grid plus the crater events
// the most recently executed tick's environment group reported.
func (s *Simulation) TerrainSnapshot() snapshot.TerrainSnapshot {
	craters := make([]snapshot.CraterView, len(s.lastCraters))
	for i, c := range s.lastCraters {
		craters[i] = snapshot.CraterView{X: c.X, Y: c.Y, Radius: c.Radius, Depth: c.Depth}
	}
	return snapshot.BuildTerrain(s.grid, craters)
}

func (s *Simulation) drainCraters() []model.Crater {
	s.craterMu.Lock()
	defer s.craterMu.Unlock()
	if len(s.pendingCraters) == 0 {
		return nil
	}
	out := s.pendingCraters
	s.pendingCraters = nil
	return out
}

// accumulateCentroid feeds spawnCentroid's running per-faction average
// spawn position, which order_interpretation uses as the point a
// Retreat-ordered squad with no known nearest enemy moves away from.
func (s *Simulation) accumulateCentroid(faction model.Faction, x, y float64) {
	s.centroidMu.Lock()
	defer s.centroidMu.Unlock()
	acc, ok := s.centroids[faction]
	if !ok {
		acc = &centroidAccumulator{}
		s.centroids[faction] = acc
	}
	acc.sumX += x
	acc.sumY += y
	acc.count++
}

func (s *Simulation) spawnCentroid(faction model.Faction) (float64, float64) {
	s.centroidMu.Lock()
	defer s.centroidMu.Unlock()
	acc, ok := s.centroids[faction]
	if !ok || acc.count == 0 {
		return 0, 0
	}
	return acc.sumX / float64(acc.count), acc.sumY / float64(acc.count)
}

// checkSquadLimit logs and counts a LimitExceeded warning exactly once
// per crossing into the soft cap, per spec §7: the command still
// succeeds, the cap is advisory only.
func (s *Simulation) checkSquadLimit(ctx context.Context) {
	soft := s.cfg.Rate.SoftLimit()
	count := s.store.LiveSquadCount()
	if count <= soft {
		s.limitWarned = false
		return
	}
	if s.limitWarned {
		return
	}
	s.limitWarned = true
	s.log.Warn(ctx, "live squad count exceeds soft limit",
		logging.Int("count", count),
		logging.Int("soft_limit", soft),
	)
	if s.metrics != nil {
		s.metrics.IncLimitExceeded("squads")
	}
}
