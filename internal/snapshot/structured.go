package snapshot

import (
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/systems"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// SquadView is one squad's structured snapshot row (spec §6). Order is
// rendered through model.Order's presentation contract ("Hold",
// "MoveTo(x,y)", ...).
type SquadView struct {
	ID         uint32  `json:"id"`
	Faction    string  `json:"faction"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	Health     float64 `json:"health"`
	HealthMax  float64 `json:"health_max"`
	Size       int     `json:"size"`
	Morale     float64 `json:"morale"`
	Suppress   float64 `json:"suppression"`
	Order      string  `json:"order"`
	IsAlive    bool    `json:"is_alive"`
	IsRouting  bool    `json:"is_routing"`
}

// DestructibleView is one destructible's structured snapshot row.
type DestructibleView struct {
	ID        uint32  `json:"id"`
	Type      string  `json:"dtype"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	State     string  `json:"state"`
	Health    float64 `json:"health"`
	HealthMax float64 `json:"health_max"`
}

// CraterView is one crater event's structured row, shared by both
// new_craters and terrain_damage (spec §6): in this tick both lists
// describe the same set of crater events consumed this tick.
type CraterView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Depth  float64 `json:"depth"`
}

// Snapshot is the structured, JSON-compatible post-tick view (spec
// §6). Field order and ascending-id ordering are part of its
// determinism contract (spec §4.9).
type Snapshot struct {
	Tick          uint64             `json:"tick"`
	Time          float64            `json:"time"`
	Squads        []SquadView        `json:"squads"`
	Destructibles []DestructibleView `json:"destructibles"`
	NewCraters    []CraterView       `json:"new_craters"`
	TerrainDamage []CraterView       `json:"terrain_damage"`
}

// Build assembles a structured snapshot from post-tick state. events
// is the same crater event list environment.TerrainDamage consumed
// this tick; it is forgotten after this call, matching the transient
// per-tick event lifetime (spec §3).
func Build(store *world.Store, tick uint64, timeSeconds float64, events []model.Crater, _ []systems.DestructionEvent) Snapshot {
	snap := Snapshot{
		Tick: tick,
		Time: timeSeconds,
	}

	store.ForEachSquad(func(sq *model.Squad) {
		snap.Squads = append(snap.Squads, SquadView{
			ID:        sq.ID,
			Faction:   sq.Faction.String(),
			X:         sq.X,
			Y:         sq.Y,
			VX:        sq.VX,
			VY:        sq.VY,
			Health:    sq.Health,
			HealthMax: sq.HealthMax,
			Size:      sq.Size,
			Morale:    sq.Morale,
			Suppress:  sq.Suppress,
			Order:     sq.Order.String(),
			IsAlive:   sq.Alive,
			IsRouting: sq.Behavior == model.BehaviorRouting,
		})
	})

	store.ForEachDestructible(func(d *model.Destructible) {
		snap.Destructibles = append(snap.Destructibles, DestructibleView{
			ID:        d.ID,
			Type:      d.Type.String(),
			X:         d.X,
			Y:         d.Y,
			State:     d.State.String(),
			Health:    d.Health,
			HealthMax: d.HealthMax,
		})
	})

	for _, ev := range events {
		view := CraterView{X: ev.X, Y: ev.Y, Radius: ev.Radius, Depth: ev.Depth}
		snap.NewCraters = append(snap.NewCraters, view)
		snap.TerrainDamage = append(snap.TerrainDamage, view)
	}

	return snap
}
