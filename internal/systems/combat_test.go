package systems

import (
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/spatial"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

func rebuildIndex(t *testing.T, idx *spatial.Index, store *world.Store, cfg config.SimConfig) {
	t.Helper()
	SpatialGridUpdate(store, idx, cfg)
}

func TestCombatGatherSkipsRoutingAndFullySuppressedSquads(t *testing.T) {
	store := world.New()
	idx := spatial.New(cfg().SpatialCellSize, cfg().SectorSize)
	grid := terrain.NewGrid(20, 20, -100, -100, 10)
	c := cfg()

	attacker := &model.Squad{ID: 1, Faction: model.FactionBlue, X: 0, Y: 0, Size: 10, Health: 100, Alive: true, Behavior: model.BehaviorRouting}
	// The target is routing too, so it does not return fire and every
	// buffered result could only have come from the attacker.
	target := &model.Squad{ID: 2, Faction: model.FactionRed, X: 5, Y: 0, Size: 10, Health: 100, Alive: true, Behavior: model.BehaviorRouting}
	if err := store.SpawnSquad(attacker); err != nil {
		t.Fatalf("spawn attacker: %v", err)
	}
	if err := store.SpawnSquad(target); err != nil {
		t.Fatalf("spawn target: %v", err)
	}
	rebuildIndex(t, idx, store, c)

	buf := NewPendingResults()
	CombatGather(store, idx, grid, c, buf, 0, 100*time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("PendingResults.Len() = %d, want 0 (routing squads must not fire)", buf.Len())
	}

	attacker.Behavior = model.BehaviorIdle
	attacker.Suppress = 1.0
	CombatGather(store, idx, grid, c, buf, 0, 100*time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("PendingResults.Len() = %d, want 0 (fully suppressed squads must not fire)", buf.Len())
	}
}

func TestCombatGatherAppliesCoverAtTargetPosition(t *testing.T) {
	store := world.New()
	idx := spatial.New(cfg().SpatialCellSize, cfg().SectorSize)
	grid := terrain.NewGrid(200, 200, -100, -100, 1)
	c := cfg()

	attacker := &model.Squad{ID: 1, Faction: model.FactionBlue, X: 0, Y: 0, Size: c.ReferenceSize, Health: 100, Alive: true, Morale: 1.0}
	// The target is routing, so it does not return fire and the single
	// buffered result is the attacker's.
	target := &model.Squad{ID: 2, Faction: model.FactionRed, X: 5, Y: 0, Size: 10, Health: 100, Alive: true, Behavior: model.BehaviorRouting}
	if err := store.SpawnSquad(attacker); err != nil {
		t.Fatalf("spawn attacker: %v", err)
	}
	if err := store.SpawnSquad(target); err != nil {
		t.Fatalf("spawn target: %v", err)
	}
	rebuildIndex(t, idx, store, c)

	// Put the target's cell in trench cover; the attacker's own cell is
	// left Open. If the damage formula read cover at the attacker's
	// position instead of the target's, this multiplier would never
	// apply.
	gx, gy := grid.WorldToGrid(5, 0)
	grid.StampRect(5, 0, 1, terrain.Trench)
	_ = gx
	_ = gy

	buf := NewPendingResults()
	CombatGather(store, idx, grid, c, buf, 0, time.Second)
	if buf.Len() != 1 {
		t.Fatalf("PendingResults.Len() = %d, want 1", buf.Len())
	}

	got := buf.results[0]
	wantCover := terrain.Trench.CoverMultiplier()
	wantDPS := effectiveDPS(attacker, c)
	wantDamage := wantDPS * 1.0 * wantCover * 1.0 // moraleFactor = 0.5+0.5*1.0 = 1.0
	if diff := got.Damage - wantDamage; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Damage = %v, want %v (cover must be sampled at the target's position)", got.Damage, wantDamage)
	}
}

func TestCombatApplyOrdersDeterministicallyByTargetThenAttacker(t *testing.T) {
	store := world.New()
	target := &model.Squad{ID: 1, Faction: model.FactionRed, Health: 100, HealthMax: 100, Alive: true}
	if err := store.SpawnSquad(target); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	buf := NewPendingResults()
	buf.append(CombatResult{AttackerID: 9, TargetID: 1, Damage: 10, Suppress: 0.1})
	buf.append(CombatResult{AttackerID: 3, TargetID: 1, Damage: 5, Suppress: 0.2})

	CombatApply(store, buf, 7)

	if target.Health != 85 {
		t.Fatalf("Health = %v, want 85 (10+5 damage applied regardless of append order)", target.Health)
	}
	if diff := target.Suppress - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Suppress = %v, want 0.3", target.Suppress)
	}
	if target.Activity.LastDamageTick != 7 || !target.Activity.EverDamaged {
		t.Fatalf("Activity = %+v, want LastDamageTick=7, EverDamaged=true", target.Activity)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not drained: Len() = %d", buf.Len())
	}
}

func TestCombatApplyFloorsHealthAtZero(t *testing.T) {
	store := world.New()
	target := &model.Squad{ID: 1, Faction: model.FactionRed, Health: 5, HealthMax: 100, Alive: true}
	if err := store.SpawnSquad(target); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	buf := NewPendingResults()
	buf.append(CombatResult{AttackerID: 1, TargetID: 1, Damage: 50, Suppress: 2.0})
	CombatApply(store, buf, 0)
	if target.Health != 0 {
		t.Fatalf("Health = %v, want 0 (floored)", target.Health)
	}
	if target.Suppress != 1.5 {
		t.Fatalf("Suppress = %v, want 1.5 (capped)", target.Suppress)
	}
}

func TestCombatApplySkipsDeadTargets(t *testing.T) {
	store := world.New()
	buf := NewPendingResults()
	// Target id 42 was never spawned; apply must not panic or create it.
	buf.append(CombatResult{AttackerID: 1, TargetID: 42, Damage: 10})
	CombatApply(store, buf, 0)
	if store.Squad(42) != nil {
		t.Fatalf("CombatApply must not create squads for unknown target ids")
	}
}

func cfg() config.SimConfig {
	return config.DefaultSimConfig()
}
