package systems

import (
	"testing"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/spatial"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

func TestSpatialGridUpdateExcludesDeadSquads(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	idx := spatial.New(c.SpatialCellSize, c.SectorSize)

	alive := &model.Squad{ID: 1, Faction: model.FactionBlue, X: 0, Y: 0, Alive: true}
	if err := store.SpawnSquad(alive); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	dead := &model.Squad{ID: 2, Faction: model.FactionBlue, X: 1, Y: 1, Alive: false}
	if err := store.SpawnSquad(dead); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	dead.Alive = false // SpawnSquad always spawns alive; flag it dead afterwards

	SpatialGridUpdate(store, idx, c)

	found := idx.QueryRadius(0, 0, 5)
	if len(found) != 1 || found[0].ID != 1 {
		t.Fatalf("QueryRadius = %+v, want only the live squad", found)
	}
}

func TestSectorAssignmentWritesCoordsFromIndex(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	idx := spatial.New(c.SpatialCellSize, c.SectorSize)
	sq := &model.Squad{ID: 1, X: 85, Y: -10, Alive: true}
	if err := store.SpawnSquad(sq); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	SectorAssignment(store, idx)

	wantX, wantY := idx.SectorCoord(85, -10)
	if sq.SectorX != wantX || sq.SectorY != wantY {
		t.Fatalf("SectorX/Y = (%d,%d), want (%d,%d)", sq.SectorX, sq.SectorY, wantX, wantY)
	}
}

func TestLODAssignmentTiersByDistance(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	near := &model.Squad{ID: 1, X: 10, Y: 0, Alive: true}
	mid := &model.Squad{ID: 2, X: 150, Y: 0, Alive: true}
	far := &model.Squad{ID: 3, X: 1000, Y: 0, Alive: true}
	for _, sq := range []*model.Squad{near, mid, far} {
		if err := store.SpawnSquad(sq); err != nil {
			t.Fatalf("spawn %d: %v", sq.ID, err)
		}
	}

	LODAssignment(store, c)

	if near.LOD != model.LODHigh {
		t.Fatalf("near squad LOD = %v, want High", near.LOD)
	}
	if mid.LOD != model.LODMedium {
		t.Fatalf("mid squad LOD = %v, want Medium", mid.LOD)
	}
	if far.LOD != model.LODLow {
		t.Fatalf("far squad LOD = %v, want Low", far.LOD)
	}
}

func TestActivityFlagsTracksRecentDamageWindow(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	sq := &model.Squad{ID: 1, Alive: true}
	sq.Activity.EverDamaged = true
	sq.Activity.LastDamageTick = 100
	if err := store.SpawnSquad(sq); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	ActivityFlags(store, c, 100+c.DamageMemoryTicks)
	if !sq.Activity.RecentlyDamaged {
		t.Fatalf("RecentlyDamaged = false at the edge of the memory window, want true")
	}

	ActivityFlags(store, c, 100+c.DamageMemoryTicks+1)
	if sq.Activity.RecentlyDamaged {
		t.Fatalf("RecentlyDamaged = true past the memory window, want false")
	}
}

func TestActivityFlagsDerivesIsMovingFromSpeed(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	moving := &model.Squad{ID: 1, VX: 5, Alive: true}
	still := &model.Squad{ID: 2, VX: 0.0001, Alive: true}
	if err := store.SpawnSquad(moving); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := store.SpawnSquad(still); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	ActivityFlags(store, c, 0)

	if !moving.Activity.IsMoving {
		t.Fatalf("IsMoving = false for a squad with VX=5, want true")
	}
	if still.Activity.IsMoving {
		t.Fatalf("IsMoving = true for a near-stationary squad, want false")
	}
}

func TestThreatAwarenessFindsNearestEnemyAndScalesWithRange(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	idx := spatial.New(c.SpatialCellSize, c.SectorSize)

	observer := &model.Squad{ID: 1, Faction: model.FactionBlue, X: 0, Y: 0, LOD: model.LODHigh, Alive: true}
	near := &model.Squad{ID: 2, Faction: model.FactionRed, X: 10, Y: 0, Size: c.ReferenceSize, Alive: true}
	far := &model.Squad{ID: 3, Faction: model.FactionRed, X: 50, Y: 0, Size: c.ReferenceSize, Alive: true}
	for _, sq := range []*model.Squad{observer, near, far} {
		if err := store.SpawnSquad(sq); err != nil {
			t.Fatalf("spawn %d: %v", sq.ID, err)
		}
	}
	SpatialGridUpdate(store, idx, c)

	ThreatAwareness(store, idx, c, 0)

	if !observer.Perceive.HasNearestEnemy || observer.Perceive.NearestEnemyID != 2 {
		t.Fatalf("Perceive = %+v, want nearest enemy id 2", observer.Perceive)
	}
	if observer.Perceive.ThreatLevel <= 0 {
		t.Fatalf("ThreatLevel = %v, want positive", observer.Perceive.ThreatLevel)
	}
}

func TestThreatAwarenessSkipsLowLODSquads(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	idx := spatial.New(c.SpatialCellSize, c.SectorSize)

	observer := &model.Squad{ID: 1, Faction: model.FactionBlue, X: 0, Y: 0, LOD: model.LODLow, Alive: true}
	enemy := &model.Squad{ID: 2, Faction: model.FactionRed, X: 10, Y: 0, Alive: true}
	if err := store.SpawnSquad(observer); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := store.SpawnSquad(enemy); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	SpatialGridUpdate(store, idx, c)

	ThreatAwareness(store, idx, c, 0)

	if observer.Perceive.HasNearestEnemy {
		t.Fatalf("a Low-LOD squad must not be scanned for threats")
	}
}

func TestNearbyFriendliesCountsExcludeSelf(t *testing.T) {
	store := world.New()
	c := config.DefaultSimConfig()
	idx := spatial.New(c.SpatialCellSize, c.SectorSize)

	sq := &model.Squad{ID: 1, Faction: model.FactionBlue, X: 0, Y: 0, LOD: model.LODHigh, Alive: true}
	ally := &model.Squad{ID: 2, Faction: model.FactionBlue, X: 1, Y: 0, Alive: true}
	if err := store.SpawnSquad(sq); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := store.SpawnSquad(ally); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	SpatialGridUpdate(store, idx, c)

	NearbyFriendlies(store, idx, c, 0)

	if sq.Perceive.FriendlyCount != 1 {
		t.Fatalf("FriendlyCount = %d, want 1 (self excluded)", sq.Perceive.FriendlyCount)
	}
}

func TestEffectiveDPSScalesWithSquadSize(t *testing.T) {
	c := config.DefaultSimConfig()
	full := &model.Squad{Size: c.ReferenceSize}
	half := &model.Squad{Size: c.ReferenceSize / 2}

	if got, want := effectiveDPS(full, c), c.BaseDPS; got != want {
		t.Fatalf("effectiveDPS(full) = %v, want %v", got, want)
	}
	if got, want := effectiveDPS(half, c), c.BaseDPS*0.5; got != want {
		t.Fatalf("effectiveDPS(half) = %v, want %v", got, want)
	}
}
