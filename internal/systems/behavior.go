package systems

import (
	"math"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/orders"
	"github.com/signalsfoundry/constellation-simulator/internal/spatial"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

// BehaviorTransition advances each live squad's behavior state machine
// per spec §4.5. Reads: Store.Perceive, Morale, Suppression. Writes:
// Store.Behavior.
func BehaviorTransition(store *world.Store, cfg config.SimConfig) {
	store.ForEachLiveSquad(func(sq *model.Squad) {
		switch {
		case sq.Suppress >= 1.0:
			sq.Behavior = model.BehaviorSuppressed
		case sq.Morale < 0.2:
			sq.Behavior = model.BehaviorRouting
		case sq.Behavior == model.BehaviorRouting:
			if sq.Morale >= 0.5 && sq.Suppress < 0.3 {
				sq.Behavior = model.BehaviorIdle
			}
		case sq.Perceive.ThreatLevel > cfg.EngageThreshold:
			sq.Behavior = model.BehaviorEngaging
		case sq.Behavior == model.BehaviorSuppressed:
			sq.Behavior = model.BehaviorIdle
		case sq.Order.Kind == model.OrderMoveTo || sq.Order.Kind == model.OrderAttackMove:
			sq.Behavior = model.BehaviorAdvancing
		}
	})
}

// ApplyOrderCommands drains the order queue and assigns each command
// to its target squad, dropping commands addressed to missing/dead
// squads (spec §7's UnknownId policy). Reads: Queue. Writes:
// Store.Order.
func ApplyOrderCommands(store *world.Store, queue *orders.Queue) {
	for _, cmd := range queue.Drain() {
		sq := store.Squad(cmd.SquadID)
		if sq == nil || !sq.Alive {
			continue
		}
		switch cmd.Kind {
		case orders.CmdHold:
			sq.Order = model.Hold()
		case orders.CmdMoveTo:
			sq.Order = model.MoveTo(cmd.X, cmd.Y)
			if sq.Behavior != model.BehaviorRouting && sq.Behavior != model.BehaviorSuppressed {
				sq.Behavior = model.BehaviorAdvancing
			}
		case orders.CmdAttackMove:
			sq.Order = model.AttackMove(cmd.X, cmd.Y)
			if sq.Behavior != model.BehaviorRouting && sq.Behavior != model.BehaviorSuppressed {
				sq.Behavior = model.BehaviorAdvancing
			}
		case orders.CmdRetreat:
			sq.Order = model.Retreat()
		}
	}
}

// OrderInterpretation computes desired velocity from each squad's
// current order and state, applies flocking steering, scales the
// result by morale/suppression/death modifiers, and finally by the
// terrain movement multiplier at the squad's current position (spec
// §4.5). Reads: Store, Index, Terrain, SimConfig. Writes: Store.VX/VY,
// Store.Order (Hold on arrival).
func OrderInterpretation(store *world.Store, idx *spatial.Index, grid *terrain.Grid, cfg config.SimConfig, spawnCentroid func(model.Faction) (float64, float64)) {
	store.ForEachLiveSquad(func(sq *model.Squad) {
		if sq.Behavior == model.BehaviorRouting && sq.Order.Kind != model.OrderRetreat {
			// Routing squads flee regardless of their last explicit order.
			sq.Order = model.Retreat()
		}

		dvx, dvy := desiredVelocity(store, idx, cfg, sq, spawnCentroid)

		// Arrival check for MoveTo/AttackMove: snap to the target and
		// switch the order to Hold, rather than merely stopping
		// short within the arrival tolerance — this keeps arrival
		// deterministic and independent of tick width.
		if sq.Order.Kind == model.OrderMoveTo || sq.Order.Kind == model.OrderAttackMove {
			dist := math.Hypot(sq.Order.X-sq.X, sq.Order.Y-sq.Y)
			if dist < cfg.ArrivalDistance {
				sq.X, sq.Y = sq.Order.X, sq.Order.Y
				sq.Order = model.Hold()
				dvx, dvy = 0, 0
				if sq.Behavior == model.BehaviorAdvancing {
					sq.Behavior = model.BehaviorIdle
				}
			}
		}

		sx, sy := flockingSteering(store, idx, cfg, sq)
		vx := dvx + sx*cfg.FlockingWeight
		vy := dvy + sy*cfg.FlockingWeight

		scale := velocityScale(sq) * grid.MovementMultiplierAt(sq.X, sq.Y)
		sq.VX = vx * scale
		sq.VY = vy * scale
	})
}

func desiredVelocity(store *world.Store, idx *spatial.Index, cfg config.SimConfig, sq *model.Squad, spawnCentroid func(model.Faction) (float64, float64)) (float64, float64) {
	switch sq.Order.Kind {
	case model.OrderHold:
		return 0, 0
	case model.OrderMoveTo:
		return towards(sq.X, sq.Y, sq.Order.X, sq.Order.Y, cfg.BaseSpeed)
	case model.OrderAttackMove:
		return towards(sq.X, sq.Y, sq.Order.X, sq.Order.Y, cfg.BaseSpeed*0.6)
	case model.OrderRetreat:
		if sq.Perceive.HasNearestEnemy {
			enemy := store.Squad(sq.Perceive.NearestEnemyID)
			if enemy != nil {
				return away(sq.X, sq.Y, enemy.X, enemy.Y, cfg.BaseSpeed)
			}
		}
		cx, cy := 0.0, 0.0
		if spawnCentroid != nil {
			cx, cy = spawnCentroid(sq.Faction)
		}
		return away(sq.X, sq.Y, cx, cy, cfg.BaseSpeed)
	default:
		return 0, 0
	}
}

func towards(x, y, tx, ty, speed float64) (float64, float64) {
	dx, dy := tx-x, ty-y
	d := math.Hypot(dx, dy)
	if d < 1e-9 {
		return 0, 0
	}
	return dx / d * speed, dy / d * speed
}

func away(x, y, fx, fy, speed float64) (float64, float64) {
	dx, dy := x-fx, y-fy
	d := math.Hypot(dx, dy)
	if d < 1e-9 {
		// Degenerate: no direction information, pick +x arbitrarily
		// but deterministically.
		return speed, 0
	}
	return dx / d * speed, dy / d * speed
}

// flockingSteering adds separation (push from crowded allies) and
// alignment (nudge toward mean ally velocity), per spec §4.5.
func flockingSteering(store *world.Store, idx *spatial.Index, cfg config.SimConfig, sq *model.Squad) (float64, float64) {
	allies := idx.QueryRadiusFaction(sq.X, sq.Y, cfg.SeparationRadius, sq.Faction)
	if len(allies) == 0 {
		return 0, 0
	}

	var sepX, sepY float64
	var sumVX, sumVY float64
	n := 0
	for _, ref := range allies {
		if ref.ID == sq.ID {
			continue
		}
		dx, dy := sq.X-ref.X, sq.Y-ref.Y
		d := math.Hypot(dx, dy)
		if d < 1e-6 {
			d = 1e-6
		}
		if d < cfg.SeparationRadius {
			sepX += dx / d / d
			sepY += dy / d / d
		}
		if ally := store.Squad(ref.ID); ally != nil {
			sumVX += ally.VX
			sumVY += ally.VY
			n++
		}
	}
	var alignX, alignY float64
	if n > 0 {
		alignX = sumVX/float64(n) - sq.VX
		alignY = sumVY/float64(n) - sq.VY
	}
	return sepX + alignX*0.5, sepY + alignY*0.5
}

// velocityScale returns the final multiplicative factor applied to
// desired velocity, per spec §4.5's layered scaling rule.
func velocityScale(sq *model.Squad) float64 {
	if !sq.Alive {
		return 0
	}
	if sq.Suppress >= 1.0 {
		return 0
	}
	if sq.Morale < 0.2 && sq.Order.Kind != model.OrderRetreat {
		return 0
	}
	scale := 1.0
	if sq.Morale < 0.5 {
		scale = 0.6
	}
	if sq.Suppress >= 0.5 {
		scale = 0.3
	}
	return scale
}
