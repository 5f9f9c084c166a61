package spatial

import (
	"testing"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
)

func TestRebuildFiltersDeadSquads(t *testing.T) {
	ix := New(10, 40)
	refs := []Ref{
		{ID: 1, Faction: model.FactionBlue, Alive: true, X: 0, Y: 0},
		{ID: 2, Faction: model.FactionRed, Alive: false, X: 1, Y: 1},
	}
	ix.Rebuild(refs, nil)

	found := ix.QueryRadius(0, 0, 5)
	if len(found) != 1 || found[0].ID != 1 {
		t.Fatalf("QueryRadius = %+v, want only squad 1 (dead squads must be filtered)", found)
	}
}

func TestQueryRadiusRespectsDistance(t *testing.T) {
	ix := New(10, 40)
	refs := []Ref{
		{ID: 1, Faction: model.FactionBlue, Alive: true, X: 0, Y: 0},
		{ID: 2, Faction: model.FactionBlue, Alive: true, X: 100, Y: 100},
	}
	ix.Rebuild(refs, nil)

	found := ix.QueryRadius(0, 0, 5)
	if len(found) != 1 || found[0].ID != 1 {
		t.Fatalf("QueryRadius(0,0,5) = %+v, want only the near squad", found)
	}
}

func TestSectorStatsAggregatesFirepower(t *testing.T) {
	ix := New(10, 40)
	refs := []Ref{
		{ID: 1, Faction: model.FactionBlue, Alive: true, X: 1, Y: 1},
		{ID: 2, Faction: model.FactionBlue, Alive: true, X: 2, Y: 2},
	}
	ix.Rebuild(refs, func(id uint32) (float64, bool) { return 5.0, true })

	stats := ix.SectorStatsAt(1, 1)
	if stats.FriendCount[model.FactionBlue] != 2 {
		t.Fatalf("FriendCount = %v, want 2", stats.FriendCount)
	}
	if stats.Firepower[model.FactionBlue] != 10.0 {
		t.Fatalf("Firepower = %v, want 10.0", stats.Firepower)
	}
}

func TestNearestEnemyTiesBrokenBySmallestID(t *testing.T) {
	candidates := []Ref{
		{ID: 5, Faction: model.FactionRed, X: 3, Y: 0},
		{ID: 2, Faction: model.FactionRed, X: 3, Y: 0},
		{ID: 9, Faction: model.FactionBlue, X: 0, Y: 0},
	}
	id, dist, ok := NearestEnemy(candidates, model.FactionBlue, 0, 0, 10)
	if !ok {
		t.Fatalf("NearestEnemy: ok = false, want true")
	}
	if id != 2 {
		t.Fatalf("NearestEnemy id = %d, want 2 (tie broken by smallest id)", id)
	}
	if dist != 3 {
		t.Fatalf("NearestEnemy dist = %v, want 3", dist)
	}
}

func TestNearestEnemyRespectsRadius(t *testing.T) {
	candidates := []Ref{
		{ID: 1, Faction: model.FactionRed, X: 50, Y: 0},
	}
	_, _, ok := NearestEnemy(candidates, model.FactionBlue, 0, 0, 10)
	if ok {
		t.Fatalf("NearestEnemy found a target beyond its radius")
	}
}
