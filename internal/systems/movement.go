package systems

import (
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// Movement is pure integration of the velocity order_interpretation
// already scaled by the terrain movement multiplier (spec §4.5,
// §4.6): position += velocity * dt, then clamp to the terrain grid's
// world rectangle. Reads: Store.VX/VY. Writes: Store.X/Y.
func Movement(store *world.Store, grid *terrain.Grid, dt time.Duration) {
	dtSeconds := dt.Seconds()
	store.ForEachLiveSquad(func(sq *model.Squad) {
		sq.X += sq.VX * dtSeconds
		sq.Y += sq.VY * dtSeconds
		sq.X, sq.Y = grid.ClampToBounds(sq.X, sq.Y)
	})
}
