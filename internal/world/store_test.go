package world

import (
	"testing"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
)

func TestSpawnSquadIdConflict(t *testing.T) {
	s := New()
	sq := &model.Squad{ID: 7, Faction: model.FactionBlue, Health: 100}
	if err := s.SpawnSquad(sq); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	dup := &model.Squad{ID: 7, Faction: model.FactionRed, Health: 100}
	if err := s.SpawnSquad(dup); err != ErrIdConflict {
		t.Fatalf("second spawn err = %v, want ErrIdConflict", err)
	}
	// S6: exactly one squad with id 7, and it must be the original Blue one.
	got := s.Squad(7)
	if got == nil || got.Faction != model.FactionBlue {
		t.Fatalf("Squad(7) = %+v, want the original Blue squad", got)
	}
}

func TestSpawnSquadIdNeverReusedAfterRemoval(t *testing.T) {
	s := New()
	if err := s.SpawnSquad(&model.Squad{ID: 1, Health: 1}); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	s.Squad(1).Health = 0
	s.FlagNewlyDead(0) // flags dead at tick 0, end of tick 0's CoreSim
	s.SweepDead(1)     // grace period elapsed, removed at tick 1's PreTick

	if s.Squad(1) != nil {
		t.Fatalf("squad 1 should have been removed after its grace period")
	}
	if err := s.SpawnSquad(&model.Squad{ID: 1, Health: 1}); err != ErrIdConflict {
		t.Fatalf("respawning removed id 1 err = %v, want ErrIdConflict", err)
	}
}

func TestSpawnSquadsMassIsAllOrNothing(t *testing.T) {
	s := New()
	if err := s.SpawnSquad(&model.Squad{ID: 5, Health: 1}); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	batch := []*model.Squad{
		{ID: 1, Health: 1},
		{ID: 5, Health: 1}, // conflicts
		{ID: 2, Health: 1},
	}
	if err := s.SpawnSquadsMass(batch); err != ErrIdConflict {
		t.Fatalf("SpawnSquadsMass err = %v, want ErrIdConflict", err)
	}
	if s.Squad(1) != nil || s.Squad(2) != nil {
		t.Fatalf("a failed mass spawn must create no squads at all")
	}
}

func TestDeathGracePeriod(t *testing.T) {
	s := New()
	if err := s.SpawnSquad(&model.Squad{ID: 1, Health: 1}); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	s.Squad(1).Health = 0

	seenAlive := 0
	s.ForEachSquad(func(sq *model.Squad) { seenAlive++ })
	if seenAlive != 1 {
		t.Fatalf("before sweep: ForEachSquad saw %d squads, want 1", seenAlive)
	}

	s.FlagNewlyDead(10)
	if s.Squad(1).Alive {
		t.Fatalf("squad should be flagged dead the same tick its health reaches zero")
	}

	// Grace period: one further ForEachSquad call must still see it.
	seenGrace := 0
	s.ForEachSquad(func(sq *model.Squad) { seenGrace++ })
	if seenGrace != 1 {
		t.Fatalf("grace-period tick: ForEachSquad saw %d, want 1", seenGrace)
	}
	seenLive := 0
	s.ForEachLiveSquad(func(sq *model.Squad) { seenLive++ })
	if seenLive != 0 {
		t.Fatalf("ForEachLiveSquad saw %d dead squads, want 0", seenLive)
	}

	// The next tick's PreTick sweep (tick 11) removes it once the
	// grace-period tick (10) has already produced its one snapshot.
	s.SweepDead(11)
	if s.Squad(1) != nil {
		t.Fatalf("squad should be gone once its grace period has elapsed")
	}
}

func TestForEachSquadAscendingOrder(t *testing.T) {
	s := New()
	for _, id := range []uint32{5, 1, 3} {
		if err := s.SpawnSquad(&model.Squad{ID: id, Health: 1}); err != nil {
			t.Fatalf("spawn %d: %v", id, err)
		}
	}
	var seen []uint32
	s.ForEachSquad(func(sq *model.Squad) { seen = append(seen, sq.ID) })
	want := []uint32{1, 3, 5}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

func TestAddDestructibleDefaultsHealthMax(t *testing.T) {
	s := New()
	d := &model.Destructible{ID: 1, Health: 50}
	if err := s.AddDestructible(d); err != nil {
		t.Fatalf("AddDestructible: %v", err)
	}
	if d.HealthMax != 50 {
		t.Fatalf("HealthMax = %v, want 50 (defaulted from Health)", d.HealthMax)
	}
}
