// Package model defines the plain data types shared by the simulation
// core: squads, destructibles, orders, and the small enums that drive
// behavior and terrain. Nothing in this package owns a mutex or talks
// to storage — that belongs to internal/world and internal/terrain.
package model

import "fmt"

// Faction identifies which side a squad fights for.
type Faction uint8

const (
	FactionBlue Faction = iota
	FactionRed
)

func (f Faction) String() string {
	if f == FactionRed {
		return "Red"
	}
	return "Blue"
}

// LODTier is the update-frequency class assigned to an entity based on
// its distance from the configured LOD reference point.
type LODTier uint8

const (
	LODHigh LODTier = iota
	LODMedium
	LODLow
)

// TickInterval returns how many ticks elapse between mandatory updates
// for entities at this tier. High-tier entities update every tick.
func (t LODTier) TickInterval() uint64 {
	switch t {
	case LODMedium:
		return 2
	case LODLow:
		return 4
	default:
		return 1
	}
}

// ShouldUpdate reports whether an entity with this tier and the given
// squad id is due to update on currentTick. The squad id phases the
// schedule so Medium/Low entities do not all wake on the same tick.
func (t LODTier) ShouldUpdate(squadID uint32, currentTick uint64) bool {
	interval := t.TickInterval()
	if interval <= 1 {
		return true
	}
	phase := uint64(squadID) % interval
	return (currentTick+phase)%interval == 0
}

// BehaviorState is the squad-level state machine driven by threat,
// morale, and suppression.
type BehaviorState uint8

const (
	BehaviorIdle BehaviorState = iota
	BehaviorAdvancing
	BehaviorEngaging
	BehaviorSuppressed
	BehaviorRouting
)

func (s BehaviorState) String() string {
	switch s {
	case BehaviorAdvancing:
		return "Advancing"
	case BehaviorEngaging:
		return "Engaging"
	case BehaviorSuppressed:
		return "Suppressed"
	case BehaviorRouting:
		return "Routing"
	default:
		return "Idle"
	}
}

// OrderKind tags the variant carried by Order.
type OrderKind uint8

const (
	OrderHold OrderKind = iota
	OrderMoveTo
	OrderAttackMove
	OrderRetreat
)

// Order is the tagged union a squad is currently executing. X/Y are
// only meaningful for MoveTo and AttackMove.
type Order struct {
	Kind OrderKind
	X, Y float64
}

// Hold returns the zero-payload Hold order.
func Hold() Order { return Order{Kind: OrderHold} }

// MoveTo returns a MoveTo order targeting (x, y).
func MoveTo(x, y float64) Order { return Order{Kind: OrderMoveTo, X: x, Y: y} }

// AttackMove returns an AttackMove order targeting (x, y).
func AttackMove(x, y float64) Order { return Order{Kind: OrderAttackMove, X: x, Y: y} }

// Retreat returns the zero-payload Retreat order.
func Retreat() Order { return Order{Kind: OrderRetreat} }

// String renders the order in the literal syntax that the snapshot
// serializer's structured output contract (spec §6) requires, e.g.
// "MoveTo(10,0)". This is a presentation detail and must only be used
// by the snapshot package, never by internal system logic.
func (o Order) String() string {
	switch o.Kind {
	case OrderMoveTo:
		return fmt.Sprintf("MoveTo(%g,%g)", o.X, o.Y)
	case OrderAttackMove:
		return fmt.Sprintf("AttackMove(%g,%g)", o.X, o.Y)
	case OrderRetreat:
		return "Retreat"
	default:
		return "Hold"
	}
}

// OrderTypeCode returns the 0..3 numeric code used by the flat
// snapshot buffer (spec §6).
func (o Order) OrderTypeCode() float32 {
	return float32(o.Kind)
}

// ActivityFlags are the per-tick cheap boolean signals read by
// behavior and combat without re-deriving them from raw state.
type ActivityFlags struct {
	IsMoving        bool
	IsFiring        bool
	IsSuppressed    bool
	RecentlyDamaged bool
	EverDamaged     bool
	LastDamageTick  uint64
}

// PerceptionCache holds the result of the most recent threat/friendly
// scan for a squad, valid until the next tick that scans it.
type PerceptionCache struct {
	NearestEnemyID   uint32
	HasNearestEnemy  bool
	NearestEnemyDist float64
	FriendlyCount    int
	ThreatLevel      float64
}

// Squad is the primary simulated entity: a group of soldiers treated
// as one unit.
type Squad struct {
	ID        uint32
	Faction   Faction
	X, Y      float64
	VX, VY    float64
	Size      int
	StartSize int
	Health    float64
	HealthMax float64
	Morale    float64
	Suppress  float64
	Order     Order
	Behavior  BehaviorState
	LOD       LODTier
	SectorX   int32
	SectorY   int32
	Activity  ActivityFlags
	Perceive  PerceptionCache

	// Alive is cleared the tick a squad's health reaches zero. Dead
	// squads are retained for exactly one further snapshot (spec §3)
	// before the world store removes them.
	Alive bool
	// DiedTick records the tick Alive was cleared, used to decide
	// when the one-frame grace period has elapsed.
	DiedTick uint64
}

// IsDead reports whether the squad has zero health, regardless of
// whether it has been flagged dead yet.
func (s *Squad) IsDead() bool { return s.Health <= 0 }

// DestructibleType classifies a destructible's damage model.
type DestructibleType uint8

const (
	DestructibleTree DestructibleType = iota
	DestructibleBuilding
)

func (t DestructibleType) String() string {
	if t == DestructibleBuilding {
		return "Building"
	}
	return "Tree"
}

// DestructibleState is a monotone one-way progression.
type DestructibleState uint8

const (
	DestructibleIntact DestructibleState = iota
	DestructibleDamaged
	DestructibleDestroyed
)

func (s DestructibleState) String() string {
	switch s {
	case DestructibleDamaged:
		return "Damaged"
	case DestructibleDestroyed:
		return "Destroyed"
	default:
		return "Intact"
	}
}

// Destructible is a static, destructible terrain feature.
type Destructible struct {
	ID        uint32
	Type      DestructibleType
	X, Y      float64
	Footprint float64 // radius, world units
	State     DestructibleState
	Health    float64
	HealthMax float64
}

// Crater is a transient terrain-damage event submitted by a command
// and consumed during the environment tick group. It lives exactly
// one tick.
type Crater struct {
	X, Y   float64
	Radius float64
	Depth  float64
	Tick   uint64
}
