package systems

import (
	"math"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// DestructionEvent records a destructible state transition. The
// simulation counts these for metrics; the structured snapshot does
// not list the events themselves, only each destructible's current
// state.
type DestructionEvent struct {
	ID    uint32
	X, Y  float64
	Type  model.DestructibleType
	State model.DestructibleState
}

// damageRadiusFactor and baseDamagePerDepth are grounded on the
// original simulation's terrain_damage_to_destructibles_system.
const (
	damageRadiusFactor = 1.5
	baseDamagePerDepth = 20.0
)

// TerrainDamage consumes the tick's transient crater events, applying
// falloff damage to any destructible whose center lies within the
// crater radius times damageRadiusFactor (the destructible's Footprint
// does not enter the overlap test), and returns the events consumed
// (spec's new_craters) and any resulting destruction-state changes. It
// does not stamp the terrain grid itself: spawn_crater already did
// that synchronously at command time, so stamping again here would
// double-count every crater's damage accumulation. Reads: events.
// Writes: Store destructibles, Terrain (destroyed-destructible
// footprints only).
func TerrainDamage(grid *terrain.Grid, store *world.Store, events []model.Crater) ([]model.Crater, []DestructionEvent) {
	if len(events) == 0 {
		return nil, nil
	}

	var changes []DestructionEvent
	store.ForEachDestructible(func(d *model.Destructible) {
		if d.State == model.DestructibleDestroyed {
			return
		}
		prevState := d.State
		for _, ev := range events {
			radius := ev.Radius * damageRadiusFactor
			dist := math.Hypot(d.X-ev.X, d.Y-ev.Y)
			if dist > radius {
				continue
			}
			falloff := 1 - dist/radius
			damage := ev.Depth * baseDamagePerDepth * falloff * falloff
			d.Health -= damage
			if d.Health < 0 {
				d.Health = 0
			}
		}
		d.State = destructibleStateForHealth(d)
		if d.State != prevState {
			changes = append(changes, DestructionEvent{ID: d.ID, X: d.X, Y: d.Y, Type: d.Type, State: d.State})
			if d.State == model.DestructibleDestroyed {
				grid.StampRect(d.X, d.Y, d.Footprint, terrain.Rubble)
			}
		}
	})

	return events, changes
}

func destructibleStateForHealth(d *model.Destructible) model.DestructibleState {
	if d.Health <= 0 {
		return model.DestructibleDestroyed
	}
	if d.HealthMax > 0 && d.Health < d.HealthMax {
		return model.DestructibleDamaged
	}
	return model.DestructibleIntact
}
