// Package spatial implements the uniform hash grid and sector
// aggregates that replace O(n^2) neighbor/combat queries with O(n*k)
// (spec §4.3). The per-cell and per-sector maps use
// github.com/kamstrup/intmap's dense int-keyed Map, grounded on
// plus3-ooftn's archetype entity index, since both rebuild a
// hot-path integer-keyed map every frame/tick.
package spatial

import (
	"math"

	"github.com/kamstrup/intmap"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
)

// Ref is the lightweight record the grid stores per squad, per spec
// §3's SpatialGrid definition.
type Ref struct {
	ID      uint32
	Faction model.Faction
	Alive   bool
	X, Y    float64
}

// SectorStats aggregates cheap per-sector combat data (spec §3's
// SectorCombatData).
type SectorStats struct {
	FriendCount [2]int
	Firepower   [2]float64
}

// Index is rebuilt completely every tick from live squad positions;
// it carries no cross-tick state (spec §5).
type Index struct {
	cellSize   float64
	sectorSize float64

	cells   *intmap.Map[int64, []Ref]
	sectors *intmap.Map[int64, *SectorStats]
}

// New constructs an index with the given cell and sector sizes.
func New(cellSize, sectorSize float64) *Index {
	return &Index{
		cellSize:   cellSize,
		sectorSize: sectorSize,
		cells:      intmap.New[int64, []Ref](1024),
		sectors:    intmap.New[int64, *SectorStats](256),
	}
}

func cellKey(cx, cy int32) int64 {
	return int64(cx)<<32 | int64(uint32(cy))
}

func (ix *Index) cellCoord(x, y float64) (int32, int32) {
	return int32(math.Floor(x / ix.cellSize)), int32(math.Floor(y / ix.cellSize))
}

// SectorCoord returns the sector coordinate for a world position
// (spec §3: sector_id = floor(x/sector_size), floor(y/sector_size)).
func (ix *Index) SectorCoord(x, y float64) (int32, int32) {
	return int32(math.Floor(x / ix.sectorSize)), int32(math.Floor(y / ix.sectorSize))
}

// Rebuild clears and repopulates the grid and sector aggregates from
// every currently-alive squad. Dead squads are filtered out here, so
// they never participate in spatial queries (resolves spec §9's open
// question in the "no" direction).
func (ix *Index) Rebuild(squads []Ref, fireRangeLookup func(id uint32) (firepower float64, ok bool)) {
	ix.cells = intmap.New[int64, []Ref](1024)
	ix.sectors = intmap.New[int64, *SectorStats](256)

	for _, ref := range squads {
		if !ref.Alive {
			continue
		}
		cx, cy := ix.cellCoord(ref.X, ref.Y)
		key := cellKey(cx, cy)
		bucket, _ := ix.cells.Get(key)
		bucket = append(bucket, ref)
		ix.cells.Put(key, bucket)

		sx, sy := ix.SectorCoord(ref.X, ref.Y)
		skey := cellKey(sx, sy)
		stats, ok := ix.sectors.Get(skey)
		if !ok {
			stats = &SectorStats{}
			ix.sectors.Put(skey, stats)
		}
		stats.FriendCount[ref.Faction]++
		if fireRangeLookup != nil {
			if fp, ok := fireRangeLookup(ref.ID); ok {
				stats.Firepower[ref.Faction] += fp
			}
		}
	}
}

// SectorStatsAt returns the sector aggregate covering a world
// position, or a zero-valued struct if the sector has no live squads.
func (ix *Index) SectorStatsAt(x, y float64) SectorStats {
	sx, sy := ix.SectorCoord(x, y)
	if stats, ok := ix.sectors.Get(cellKey(sx, sy)); ok {
		return *stats
	}
	return SectorStats{}
}

// QueryRadius enumerates every live squad within radius r of (x, y),
// snapping to the cells the radius can touch.
func (ix *Index) QueryRadius(x, y, r float64) []Ref {
	var out []Ref
	span := int32(math.Ceil(r / ix.cellSize))
	cx, cy := ix.cellCoord(x, y)
	rSq := r * r
	for dy := -span; dy <= span; dy++ {
		for dx := -span; dx <= span; dx++ {
			bucket, ok := ix.cells.Get(cellKey(cx+dx, cy+dy))
			if !ok {
				continue
			}
			for _, ref := range bucket {
				ddx := ref.X - x
				ddy := ref.Y - y
				if ddx*ddx+ddy*ddy <= rSq {
					out = append(out, ref)
				}
			}
		}
	}
	return out
}

// QueryRadiusFaction enumerates live squads of the given faction
// within radius r of (x, y).
func (ix *Index) QueryRadiusFaction(x, y, r float64, faction model.Faction) []Ref {
	all := ix.QueryRadius(x, y, r)
	out := all[:0]
	for _, ref := range all {
		if ref.Faction == faction {
			out = append(out, ref)
		}
	}
	return out
}

// NearestEnemy returns the closest live squad of the opposite faction
// to (x, y) within radius r, ties broken by smallest id for
// determinism (spec §4.3). ok is false if none is found.
func NearestEnemy(candidates []Ref, selfFaction model.Faction, x, y, r float64) (id uint32, dist float64, ok bool) {
	bestDistSq := r * r
	found := false
	var bestID uint32
	var bestDistSqFinal float64
	for _, ref := range candidates {
		if ref.Faction == selfFaction {
			continue
		}
		ddx := ref.X - x
		ddy := ref.Y - y
		dSq := ddx*ddx + ddy*ddy
		if dSq > bestDistSq {
			continue
		}
		if !found || dSq < bestDistSqFinal || (dSq == bestDistSqFinal && ref.ID < bestID) {
			found = true
			bestID = ref.ID
			bestDistSqFinal = dSq
		}
	}
	if !found {
		return 0, 0, false
	}
	return bestID, math.Sqrt(bestDistSqFinal), true
}
