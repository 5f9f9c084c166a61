// Package world is the columnar-ish entity store for squads and
// destructibles. It is grounded on the teacher's kb.KnowledgeBase:
// a mutex-guarded map keyed by a stable id, with typed accessors and
// no exposed raw iterator. Unlike the teacher's map-of-pointers, ids
// here are dense uint32 handles and are never reused within a run,
// even after the owning entity is removed.
package world

import (
	"errors"
	"sort"
	"sync"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
)

// Sentinel errors for the store's command surface (spec §7).
var (
	// ErrIdConflict is returned when a spawn command names an id that
	// already exists or has ever existed in this run.
	ErrIdConflict = errors.New("world: id already in use")
)

// Store owns all squads and destructibles for one simulation
// instance. It is never a process-wide singleton (spec §9).
type Store struct {
	mu sync.RWMutex

	squads map[uint32]*model.Squad
	dead   []uint32 // squads flagged dead this tick, pending grace-period removal

	destructibles map[uint32]*model.Destructible

	// usedSquadIDs/usedDestructibleIDs remember every id ever spawned (squad or destructible,
	// separate namespaces) so that a removed entity's id is never
	// handed back out (spec §3: "stable id never reused within a run").
	usedSquadIDs        map[uint32]struct{}
	usedDestructibleIDs map[uint32]struct{}
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		squads:              make(map[uint32]*model.Squad),
		destructibles:       make(map[uint32]*model.Destructible),
		usedSquadIDs:        make(map[uint32]struct{}),
		usedDestructibleIDs: make(map[uint32]struct{}),
	}
}

// SpawnSquad inserts a new, fully alive squad with the given id. It
// fails with ErrIdConflict if the id is in use or was ever used.
func (s *Store) SpawnSquad(sq *model.Squad) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.usedSquadIDs[sq.ID]; used {
		return ErrIdConflict
	}
	sq.Alive = true
	if sq.HealthMax == 0 {
		sq.HealthMax = sq.Health
	}
	if sq.StartSize == 0 {
		sq.StartSize = sq.Size
	}
	s.squads[sq.ID] = sq
	s.usedSquadIDs[sq.ID] = struct{}{}
	return nil
}

// SpawnSquadsMass validates the whole id range up front so that
// spawn_mass is all-or-nothing (spec §4.1: "If any requested id
// already exists, the command fails ... and no squads are created").
func (s *Store) SpawnSquadsMass(squads []*model.Squad) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sq := range squads {
		if _, used := s.usedSquadIDs[sq.ID]; used {
			return ErrIdConflict
		}
	}
	for _, sq := range squads {
		sq.Alive = true
		if sq.HealthMax == 0 {
			sq.HealthMax = sq.Health
		}
		if sq.StartSize == 0 {
			sq.StartSize = sq.Size
		}
		s.squads[sq.ID] = sq
		s.usedSquadIDs[sq.ID] = struct{}{}
	}
	return nil
}

// AddDestructible inserts a new destructible.
func (s *Store) AddDestructible(d *model.Destructible) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.usedDestructibleIDs[d.ID]; used {
		return ErrIdConflict
	}
	if d.HealthMax == 0 {
		d.HealthMax = d.Health
	}
	s.destructibles[d.ID] = d
	s.usedDestructibleIDs[d.ID] = struct{}{}
	return nil
}

// Squad returns the squad with the given id, or nil if it does not
// exist (including if it was removed after its death grace period).
func (s *Store) Squad(id uint32) *model.Squad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.squads[id]
}

// ForEachLiveSquad invokes fn for every currently-alive squad, in
// ascending id order, so that callers get deterministic iteration
// without needing to sort themselves.
func (s *Store) ForEachLiveSquad(fn func(sq *model.Squad)) {
	s.mu.RLock()
	ids := s.sortedSquadIDsLocked()
	s.mu.RUnlock()

	for _, id := range ids {
		s.mu.RLock()
		sq := s.squads[id]
		s.mu.RUnlock()
		if sq != nil && sq.Alive {
			fn(sq)
		}
	}
}

// ForEachSquad invokes fn for every squad still tracked by the store
// (alive or in its one-tick death grace period), in ascending id
// order.
func (s *Store) ForEachSquad(fn func(sq *model.Squad)) {
	s.mu.RLock()
	ids := s.sortedSquadIDsLocked()
	s.mu.RUnlock()

	for _, id := range ids {
		s.mu.RLock()
		sq := s.squads[id]
		s.mu.RUnlock()
		if sq != nil {
			fn(sq)
		}
	}
}

// ForEachDestructible invokes fn for every destructible in ascending
// id order.
func (s *Store) ForEachDestructible(fn func(d *model.Destructible)) {
	s.mu.RLock()
	ids := make([]uint32, 0, len(s.destructibles))
	for id := range s.destructibles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.mu.RUnlock()

	for _, id := range ids {
		s.mu.RLock()
		d := s.destructibles[id]
		s.mu.RUnlock()
		if d != nil {
			fn(d)
		}
	}
}

// LiveSquadCount returns the number of currently-alive squads.
func (s *Store) LiveSquadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sq := range s.squads {
		if sq.Alive {
			n++
		}
	}
	return n
}

// SweepDead is called once per tick, before anything else runs. It
// removes squads that died on a previous tick: their one grace-period
// snapshot has already been produced, so this is the tick they
// disappear from both ForEachSquad and Squad lookups. It must not flag
// newly-dead squads itself — a squad's health only reaches zero deep
// inside that same tick's CoreSim group, after this has already run;
// see FlagNewlyDead.
func (s *Store) SweepDead(currentTick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.dead {
		sq, ok := s.squads[id]
		if !ok {
			continue
		}
		if sq.DiedTick < currentTick {
			delete(s.squads, id)
		}
	}
	remaining := s.dead[:0]
	for _, id := range s.dead {
		if sq, ok := s.squads[id]; ok && sq.DiedTick >= currentTick {
			remaining = append(remaining, id)
		}
	}
	s.dead = remaining
}

// FlagNewlyDead marks every squad whose health has just reached zero
// as dead, stamped with the current tick. It runs at the end of the
// same tick's CoreSim group, after combat_apply (the only system that
// lowers a squad's health) and suppression/morale, so a squad's
// death is visible in the very snapshot taken for its death tick —
// not deferred to the following tick's SweepDead (spec §3, §7).
func (s *Store) FlagNewlyDead(currentTick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sq := range s.squads {
		if sq.Alive && sq.IsDead() {
			sq.Alive = false
			sq.DiedTick = currentTick
			sq.VX, sq.VY = 0, 0
			s.dead = append(s.dead, id)
		}
		_ = id
	}
}

func (s *Store) sortedSquadIDsLocked() []uint32 {
	ids := make([]uint32, 0, len(s.squads))
	for id := range s.squads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
