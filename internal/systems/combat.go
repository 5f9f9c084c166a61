package systems

import (
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/spatial"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// CombatResult is one attacker/target contribution recorded by
// combat_gather and consumed by combat_apply (spec §4.7).
type CombatResult struct {
	AttackerID uint32
	TargetID   uint32
	Damage     float64
	Suppress   float64
	Tick       uint64
}

// PendingResults is the process-wide combat buffer (spec §3's
// PendingCombatResults): gather appends to it, apply drains and
// clears it every tick. Non-emptiness at tick end is a bug (spec §5).
type PendingResults struct {
	mu      sync.Mutex
	results []CombatResult
}

// NewPendingResults constructs an empty buffer.
func NewPendingResults() *PendingResults {
	return &PendingResults{}
}

func (p *PendingResults) append(r CombatResult) {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()
}

// Len reports how many results are currently buffered.
func (p *PendingResults) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

// drain empties the buffer and returns its contents.
func (p *PendingResults) drain() []CombatResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.results
	p.results = nil
	return out
}

// CombatGather computes damage and suppression contributions for
// every live, firing-eligible squad against enemies within fire_range
// and appends them to buf. The only squad state it writes is each
// firing-eligible squad's own Activity.IsFiring flag; everything else
// on squads is only read.
// Reads: Store, Index, Terrain, SimConfig. Writes: buf (append-only),
// Store.Activity.IsFiring.
func CombatGather(store *world.Store, idx *spatial.Index, grid *terrain.Grid, cfg config.SimConfig, buf *PendingResults, currentTick uint64, dt time.Duration) {
	dtSeconds := dt.Seconds()
	store.ForEachLiveSquad(func(sq *model.Squad) {
		sq.Activity.IsFiring = false
		if sq.Behavior == model.BehaviorRouting || sq.Suppress >= 1.0 {
			return
		}
		enemies := idx.QueryRadiusFaction(sq.X, sq.Y, cfg.FireRange, opposite(sq.Faction))
		if len(enemies) == 0 {
			return
		}
		sq.Activity.IsFiring = true
		morale := sq.Morale
		moraleFactor := 0.5 + 0.5*morale
		dps := effectiveDPS(sq, cfg)

		for _, enemy := range enemies {
			cover := grid.CoverMultiplierAt(enemy.X, enemy.Y)
			damage := dps * dtSeconds * cover * moraleFactor
			suppress := cfg.KSuppress * dtSeconds
			buf.append(CombatResult{
				AttackerID: sq.ID,
				TargetID:   enemy.ID,
				Damage:     damage,
				Suppress:   suppress,
				Tick:       currentTick,
			})
		}
	})
}

func opposite(f model.Faction) model.Faction {
	if f == model.FactionBlue {
		return model.FactionRed
	}
	return model.FactionBlue
}

// CombatApply drains buf, groups contributions by target, and applies
// them in the deterministic order spec §4.7 mandates: ascending
// target id, then ascending attacker id within a target. This is the
// single serialization point that makes results independent of
// combat_gather's parallelism. Reads/Writes: Store.Health,
// Store.Suppress, Store.Activity.LastDamageTick.
func CombatApply(store *world.Store, buf *PendingResults, currentTick uint64) {
	results := buf.drain()
	if len(results) == 0 {
		return
	}

	byTarget := make(map[uint32][]CombatResult, len(results))
	for _, r := range results {
		byTarget[r.TargetID] = append(byTarget[r.TargetID], r)
	}

	targetIDs := make([]uint32, 0, len(byTarget))
	for id := range byTarget {
		targetIDs = append(targetIDs, id)
	}
	sort.Slice(targetIDs, func(i, j int) bool { return targetIDs[i] < targetIDs[j] })

	for _, targetID := range targetIDs {
		target := store.Squad(targetID)
		if target == nil || !target.Alive {
			continue
		}
		contributions := byTarget[targetID]
		sort.Slice(contributions, func(i, j int) bool { return contributions[i].AttackerID < contributions[j].AttackerID })

		var totalDamage, totalSuppress float64
		for _, c := range contributions {
			totalDamage += c.Damage
			totalSuppress += c.Suppress
		}

		target.Health -= totalDamage
		if target.Health < 0 {
			target.Health = 0
		}
		target.Suppress += totalSuppress
		if target.Suppress > 1.5 {
			target.Suppress = 1.5
		}
		target.Activity.LastDamageTick = currentTick
		target.Activity.EverDamaged = true
	}
}
