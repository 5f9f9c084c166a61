// Package snapshot serializes post-tick simulation state into the two
// sinks the command surface exposes (spec §4.9, §6): a hot-path flat
// float32 buffer and a structured, JSON-compatible snapshot. Both are
// read-only views built from internal/world and internal/terrain;
// neither retains a reference into core state.
package snapshot

import (
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// squadFieldCount is the number of float32 fields packed per squad in
// the flat buffer: id, x, y, vx, vy, faction_id, size, health,
// health_max, morale, suppression, is_alive, is_routing, order_type.
// This stride is a stability contract (spec §6).
const squadFieldCount = 14

// EncodeFlatBuffer packs every squad the store still tracks (alive or
// in its one-tick death grace period) into the layout
// [count, (14 fields per squad)...], in ascending id order.
func EncodeFlatBuffer(store *world.Store) []float32 {
	var rows [][squadFieldCount]float32
	store.ForEachSquad(func(sq *model.Squad) {
		rows = append(rows, flattenSquad(sq))
	})

	out := make([]float32, 1+squadFieldCount*len(rows))
	out[0] = float32(len(rows))
	for i, row := range rows {
		copy(out[1+squadFieldCount*i:], row[:])
	}
	return out
}

func flattenSquad(sq *model.Squad) [squadFieldCount]float32 {
	isAlive := float32(0)
	if sq.Alive {
		isAlive = 1
	}
	isRouting := float32(0)
	if sq.Behavior == model.BehaviorRouting {
		isRouting = 1
	}
	return [squadFieldCount]float32{
		float32(sq.ID),
		float32(sq.X),
		float32(sq.Y),
		float32(sq.VX),
		float32(sq.VY),
		float32(sq.Faction),
		float32(sq.Size),
		float32(sq.Health),
		float32(sq.HealthMax),
		float32(sq.Morale),
		float32(sq.Suppress),
		isAlive,
		isRouting,
		sq.Order.OrderTypeCode(),
	}
}
