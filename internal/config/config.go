package config

import "time"

// SimRate selects the simulation's fixed tick rate (spec §4.2).
type SimRate uint8

const (
	Normal30Hz SimRate = iota
	Performance20Hz
)

// FixedTimestep returns the tick duration for this rate.
func (r SimRate) FixedTimestep() time.Duration {
	switch r {
	case Performance20Hz:
		return time.Second / 20
	default:
		return time.Second / 30
	}
}

// SoftLimit returns the soft squad-count cap associated with this
// rate (spec §4.2).
func (r SimRate) SoftLimit() int {
	switch r {
	case Performance20Hz:
		return 5000
	default:
		return 3000
	}
}

// SimConfig holds every tunable the core exposes, following the
// teacher's ConnectivityService pattern of a plain struct with a
// constructor that documents each field's default inline, rather
// than a generic config-file loader (spec §9's open question on
// tuning constants: they are SimConfig fields here).
type SimConfig struct {
	Rate SimRate

	// SectorSize is the coarse partition size for SectorCombatData
	// (spec §3, default 40 world units).
	SectorSize float64
	// SpatialCellSize is the uniform grid cell size, approximately
	// one engagement radius (spec §4.3).
	SpatialCellSize float64

	// LODReferenceX/Y is the point LOD distance is measured from.
	LODReferenceX, LODReferenceY float64
	// LODHighDistance is the radius within which squads get High LOD.
	LODHighDistance float64
	// LODMediumDistance is the radius within which squads get at
	// least Medium LOD; beyond it they get Low.
	LODMediumDistance float64

	// DamageMemoryTicks is how long recently_damaged stays set after
	// a hit (spec §4.4).
	DamageMemoryTicks uint64

	// SightRadius bounds threat_awareness's enemy scan.
	SightRadius float64
	// FlockingRadius bounds nearby_friendlies's ally scan.
	FlockingRadius float64
	// EngageThreshold is the threat level above which Idle becomes
	// Engaging (spec §4.5).
	EngageThreshold float64

	// BaseSpeed is the squad movement speed in world units/second.
	BaseSpeed float64
	// ArrivalDistance is how close to a MoveTo/AttackMove target
	// counts as arrived (spec §4.5).
	ArrivalDistance float64
	// FlockingWeight bounds the separation/alignment steering
	// contribution (spec §4.5).
	FlockingWeight float64
	// SeparationRadius is the distance within which allies push apart.
	SeparationRadius float64

	// FireRange is the maximum engagement distance for combat_gather
	// (spec §4.7, default 60 world units).
	FireRange float64
	// BaseDPS is the base damage-per-second a squad's fire does
	// before cover/morale modifiers.
	BaseDPS float64
	// ReferenceSize is the soldier count effective_dps is scaled
	// against (see SPEC_FULL.md's size-scaling supplement).
	ReferenceSize int
	// KSuppress is the suppression-per-second contribution of fire.
	KSuppress float64

	// SuppressionDecayRate is suppression lost per second absent fire
	// (spec §4.8, default 0.15/s).
	SuppressionDecayRate float64
	// SuppressionCoupling scales how hard suppression erodes morale.
	SuppressionCoupling float64
	// MoraleRecoveryRate is morale gained per second while not
	// suppressed.
	MoraleRecoveryRate float64

	// MaxAccumulatedTicks bounds the scheduler's spiral-of-death
	// clamp (spec §5: default 5x fixed_timestep).
	MaxAccumulatedTicks int

	// HistoryEnabled gates the optional sqlite snapshot archive
	// (SPEC_FULL.md supplemental feature). Off by default so it
	// never perturbs the determinism properties of spec §8.
	HistoryEnabled bool
}

// DefaultSimConfig returns the tuning defaults named throughout spec
// §4, matching the teacher's habit of documenting each default at its
// construction site.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Rate: Normal30Hz,

		SectorSize:      40.0,
		SpatialCellSize: 60.0, // one engagement radius

		LODReferenceX:     0,
		LODReferenceY:     0,
		LODHighDistance:   100.0,
		LODMediumDistance: 200.0,

		DamageMemoryTicks: 60, // ~2s at 30Hz

		SightRadius:     150.0,
		FlockingRadius:  15.0,
		EngageThreshold: 0.3,

		BaseSpeed:        5.0,
		ArrivalDistance:  1.0,
		FlockingWeight:   0.4,
		SeparationRadius: 5.0,

		FireRange:     60.0,
		BaseDPS:       4.0,
		ReferenceSize: 10,
		KSuppress:     0.3,

		SuppressionDecayRate: 0.15,
		SuppressionCoupling:  0.25,
		MoraleRecoveryRate:   0.08,

		MaxAccumulatedTicks: 5,

		HistoryEnabled: false,
	}
}
