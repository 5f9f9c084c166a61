// Package systems implements the per-entity simulation systems: threat
// awareness, flocking steering, order interpretation, movement,
// two-phase combat, suppression, morale/rout, cover, and terrain
// damage (spec §4.4-§4.8). Each exported function corresponds to one
// named system and documents its read/write set the way the
// original's Rust systems do, since that is exactly the contract the
// tick scheduler's groups depend on.
package systems

import (
	"math"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/spatial"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// SquadRefs builds the flat slice of spatial.Ref the spatial index
// rebuilds from every tick. It is the one place the store's live
// squads are projected down for spatial_grid_update.
func SquadRefs(store *world.Store) []spatial.Ref {
	var refs []spatial.Ref
	store.ForEachLiveSquad(func(sq *model.Squad) {
		refs = append(refs, spatial.Ref{ID: sq.ID, Faction: sq.Faction, Alive: true, X: sq.X, Y: sq.Y})
	})
	return refs
}

// SpatialGridUpdate rebuilds the spatial index from live squad
// positions. Reads: Store (positions, faction). Writes: Index.
func SpatialGridUpdate(store *world.Store, idx *spatial.Index, cfg config.SimConfig) {
	refs := SquadRefs(store)
	firepower := func(id uint32) (float64, bool) {
		sq := store.Squad(id)
		if sq == nil || !sq.Alive {
			return 0, false
		}
		return effectiveDPS(sq, cfg), true
	}
	idx.Rebuild(refs, firepower)
}

// SectorAssignment assigns each live squad its sector id. Reads:
// Store positions. Writes: Store.SectorX/Y. Independent of the other
// three spatial/LOD writers (spec §4.2 group 1).
func SectorAssignment(store *world.Store, idx *spatial.Index) {
	store.ForEachLiveSquad(func(sq *model.Squad) {
		sx, sy := idx.SectorCoord(sq.X, sq.Y)
		sq.SectorX, sq.SectorY = sx, sy
	})
}

// LODAssignment assigns each live squad its LOD tier based on
// distance to the configured reference point (spec §4.2). Reads:
// Store positions, SimConfig. Writes: Store.LOD.
func LODAssignment(store *world.Store, cfg config.SimConfig) {
	highSq := cfg.LODHighDistance * cfg.LODHighDistance
	medSq := cfg.LODMediumDistance * cfg.LODMediumDistance
	store.ForEachLiveSquad(func(sq *model.Squad) {
		dx := sq.X - cfg.LODReferenceX
		dy := sq.Y - cfg.LODReferenceY
		distSq := dx*dx + dy*dy
		switch {
		case distSq <= highSq:
			sq.LOD = model.LODHigh
		case distSq <= medSq:
			sq.LOD = model.LODMedium
		default:
			sq.LOD = model.LODLow
		}
	})
}

// ActivityFlags derives is_moving, recently_damaged and is_suppressed
// from current state (spec §4.4). Reads: Store velocity/suppression/
// last-damage-tick, SimConfig. Writes: Store.Activity.
func ActivityFlags(store *world.Store, cfg config.SimConfig, currentTick uint64) {
	store.ForEachLiveSquad(func(sq *model.Squad) {
		speed := math.Hypot(sq.VX, sq.VY)
		sq.Activity.IsMoving = speed > 0.01
		sq.Activity.IsSuppressed = sq.Suppress >= 0.5
		if sq.Activity.EverDamaged {
			sq.Activity.RecentlyDamaged = currentTick-sq.Activity.LastDamageTick <= cfg.DamageMemoryTicks
		} else {
			sq.Activity.RecentlyDamaged = false
		}
	})
}

// ThreatAwareness scans for the nearest enemy and a threat scalar for
// every High-LOD squad every tick, and Medium-LOD squads on their
// phased ticks (spec §4.2, §4.4). Reads: Index, Store, SimConfig.
// Writes: Store.Perceive (nearest-enemy fields, threat level).
func ThreatAwareness(store *world.Store, idx *spatial.Index, cfg config.SimConfig, currentTick uint64) {
	store.ForEachLiveSquad(func(sq *model.Squad) {
		if sq.LOD == model.LODLow || !sq.LOD.ShouldUpdate(sq.ID, currentTick) {
			return
		}
		candidates := idx.QueryRadius(sq.X, sq.Y, cfg.SightRadius)
		id, dist, ok := spatial.NearestEnemy(candidates, sq.Faction, sq.X, sq.Y, cfg.SightRadius)
		sq.Perceive.HasNearestEnemy = ok
		if !ok {
			sq.Perceive.NearestEnemyID = 0
			sq.Perceive.NearestEnemyDist = 0
			sq.Perceive.ThreatLevel = 0
			return
		}
		sq.Perceive.NearestEnemyID = id
		sq.Perceive.NearestEnemyDist = dist

		enemy := store.Squad(id)
		firepower := cfg.BaseDPS
		if enemy != nil {
			firepower = effectiveDPS(enemy, cfg)
		}
		denom := dist * dist
		if denom < 1 {
			denom = 1
		}
		sq.Perceive.ThreatLevel = firepower / denom
	})
}

// NearbyFriendlies counts allies within flocking radius for every
// High-LOD squad every tick, Medium-LOD on phased ticks (spec §4.4).
// Reads: Index, Store, SimConfig. Writes: Store.Perceive.FriendlyCount.
func NearbyFriendlies(store *world.Store, idx *spatial.Index, cfg config.SimConfig, currentTick uint64) {
	store.ForEachLiveSquad(func(sq *model.Squad) {
		if sq.LOD == model.LODLow || !sq.LOD.ShouldUpdate(sq.ID, currentTick) {
			return
		}
		allies := idx.QueryRadiusFaction(sq.X, sq.Y, cfg.FlockingRadius, sq.Faction)
		count := 0
		for _, ref := range allies {
			if ref.ID != sq.ID {
				count++
			}
		}
		sq.Perceive.FriendlyCount = count
	})
}

// effectiveDPS scales base damage output by a squad's current
// soldier count, per SPEC_FULL.md's size-scaling supplement.
func effectiveDPS(sq *model.Squad, cfg config.SimConfig) float64 {
	ref := cfg.ReferenceSize
	if ref <= 0 {
		ref = 1
	}
	factor := float64(sq.Size) / float64(ref)
	if factor < 0 {
		factor = 0
	}
	return cfg.BaseDPS * factor
}
