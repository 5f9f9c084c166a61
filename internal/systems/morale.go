package systems

import (
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// SuppressionMoraleUpdate decays suppression, then updates morale
// based on whether the squad is currently suppressed (spec §4.8).
// Reads: SimConfig. Writes: Store.Suppress, Store.Morale.
func SuppressionMoraleUpdate(store *world.Store, cfg config.SimConfig, dt time.Duration) {
	dtSeconds := dt.Seconds()
	store.ForEachLiveSquad(func(sq *model.Squad) {
		sq.Suppress -= cfg.SuppressionDecayRate * dtSeconds
		if sq.Suppress < 0 {
			sq.Suppress = 0
		}

		suppressed := sq.Suppress >= 0.5
		if suppressed {
			sq.Morale -= cfg.SuppressionCoupling * sq.Suppress * dtSeconds
		} else {
			sq.Morale += cfg.MoraleRecoveryRate * dtSeconds
		}
		if sq.Morale < 0 {
			sq.Morale = 0
		} else if sq.Morale > 1 {
			sq.Morale = 1
		}
	})
}
