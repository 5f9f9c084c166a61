// Package terrain implements the 2-D cell grid of terrain type and
// elevation, crater stamping, and the cover/movement multiplier
// lookups combat and movement depend on. Grounded on the teacher's
// core/geometry.go for the small vector/clamp helper style.
package terrain

import "math"

// Type enumerates terrain cell types (spec §3).
type Type uint8

const (
	Open Type = iota
	Rough
	Mud
	Crater
	Trench
	Water
	Road
	Forest
	Rubble
)

// Cell is one grid cell: its type, elevation, and the accumulated
// damage that graded terrain transitions key off of (see
// SPEC_FULL.md's "graded terrain damage accumulation").
type Cell struct {
	Type      Type
	Elevation float64
	Damage    float64
}

// CoverMultiplier returns the fraction of incoming damage a squad
// standing on this terrain type takes (1 - cover_value), per spec
// §4.8.
func (t Type) CoverMultiplier() float64 {
	return 1 - t.CoverValue()
}

// CoverValue returns the raw cover value in [0,1] for this terrain
// type (spec §4.8).
func (t Type) CoverValue() float64 {
	switch t {
	case Crater:
		return 0.5
	case Trench:
		return 0.7
	case Forest:
		return 0.4
	case Rubble:
		return 0.3
	default:
		return 0
	}
}

// MovementMultiplier returns the velocity scaling factor for this
// terrain type (spec §4.8).
func (t Type) MovementMultiplier() float64 {
	switch t {
	case Road:
		return 1.3
	case Open:
		return 1.0
	case Rough:
		return 0.8
	case Forest:
		return 0.7
	case Mud:
		return 0.5
	case Water:
		return 0.3
	case Crater, Trench:
		return 0.6
	case Rubble:
		return 0.5
	default:
		return 1.0
	}
}

// Grid is a width x height cell grid anchored at (OriginX, OriginY)
// with uniform CellSize.
type Grid struct {
	Width, Height    int
	OriginX, OriginY float64
	CellSize         float64

	cells []Cell
}

// NewGrid constructs a width x height grid of Open cells.
func NewGrid(width, height int, originX, originY, cellSize float64) *Grid {
	g := &Grid{
		Width:    width,
		Height:   height,
		OriginX:  originX,
		OriginY:  originY,
		CellSize: cellSize,
		cells:    make([]Cell, width*height),
	}
	return g
}

// WorldToGrid maps a world position to clamped grid coordinates,
// per spec §3: floor((p - origin) / cell_size) clamped to bounds.
func (g *Grid) WorldToGrid(x, y float64) (gx, gy int) {
	gx = int(math.Floor((x - g.OriginX) / g.CellSize))
	gy = int(math.Floor((y - g.OriginY) / g.CellSize))
	return g.clamp(gx, gy)
}

func (g *Grid) clamp(gx, gy int) (int, int) {
	if gx < 0 {
		gx = 0
	} else if gx >= g.Width {
		gx = g.Width - 1
	}
	if gy < 0 {
		gy = 0
	} else if gy >= g.Height {
		gy = g.Height - 1
	}
	return gx, gy
}

// Bounds returns the world-space rectangle covered by the grid, used
// to clamp squad positions during movement (spec §4.6).
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = g.OriginX, g.OriginY
	maxX = g.OriginX + float64(g.Width)*g.CellSize
	maxY = g.OriginY + float64(g.Height)*g.CellSize
	return
}

// ClampToBounds coerces a world position into the grid's rectangle,
// silently, per spec §7's OutOfBounds policy.
func (g *Grid) ClampToBounds(x, y float64) (float64, float64) {
	minX, minY, maxX, maxY := g.Bounds()
	if x < minX {
		x = minX
	} else if x > maxX {
		x = maxX
	}
	if y < minY {
		y = minY
	} else if y > maxY {
		y = maxY
	}
	return x, y
}

// CellAt returns the cell at grid coordinates, or a zero-valued Open
// cell pointer-free copy if out of bounds.
func (g *Grid) CellAt(gx, gy int) Cell {
	if gx < 0 || gx >= g.Width || gy < 0 || gy >= g.Height {
		return Cell{Type: Open}
	}
	return g.cells[gy*g.Width+gx]
}

// CellAtWorld returns the cell under a world position.
func (g *Grid) CellAtWorld(x, y float64) Cell {
	gx, gy := g.WorldToGrid(x, y)
	return g.CellAt(gx, gy)
}

// CoverMultiplierAt returns the cover multiplier for a world position
// (spec §4.8).
func (g *Grid) CoverMultiplierAt(x, y float64) float64 {
	return g.CellAtWorld(x, y).Type.CoverMultiplier()
}

// MovementMultiplierAt returns the movement multiplier for a world
// position (spec §4.8).
func (g *Grid) MovementMultiplierAt(x, y float64) float64 {
	return g.CellAtWorld(x, y).Type.MovementMultiplier()
}

// damageThresholds control the graded terrain transition table
// recovered from the original source (see SPEC_FULL.md), rescaled so
// a single full-strength hit (depth=1 at the crater's own epicenter,
// falloff=1) is enough to craterize a cell outright — spec.md's S4
// scenario (spawn_crater(0,0,5,1) -> Crater at (0,0)) is a literal,
// unchanged invariant, and the original source's own 2.0/1.0/0.5
// thresholds never satisfy it from one hit either.
const (
	damageThresholdCrater = 1.0
	damageThresholdRubble = 0.5
	damageThresholdRough  = 0.25
)

// CraterParams describes one crater event to stamp into the grid.
type CraterParams struct {
	X, Y   float64
	Radius float64
	Depth  float64
}

// ApplyCrater stamps a crater event into the grid. Each touched cell
// accumulates damage scaled by radial falloff; the terrain type only
// progresses once accumulated damage crosses a threshold, matching
// the original simulation's graded transition rather than an
// immediate flat stamp to Crater.
func (g *Grid) ApplyCrater(c CraterParams) {
	cx, cy := g.WorldToGrid(c.X, c.Y)
	gridRadius := int(math.Ceil(c.Radius / g.CellSize))

	for dy := -gridRadius; dy <= gridRadius; dy++ {
		for dx := -gridRadius; dx <= gridRadius; dx++ {
			gx, gy := cx+dx, cy+dy
			if gx < 0 || gx >= g.Width || gy < 0 || gy >= g.Height {
				continue
			}
			cellX := g.OriginX + (float64(gx)+0.5)*g.CellSize
			cellY := g.OriginY + (float64(gy)+0.5)*g.CellSize
			dist := math.Hypot(cellX-c.X, cellY-c.Y)
			if dist > c.Radius {
				continue
			}

			idx := gy*g.Width + gx
			cell := &g.cells[idx]
			falloff := 1 - dist/c.Radius
			cell.Elevation -= c.Depth * falloff * falloff
			cell.Damage += c.Depth * falloff

			switch {
			case cell.Damage >= damageThresholdCrater:
				cell.Type = Crater
			case cell.Damage >= damageThresholdRubble && cell.Type == Forest:
				cell.Type = Rubble
			case cell.Damage >= damageThresholdRough && cell.Type == Open:
				cell.Type = Rough
			}
		}
	}
}

// StampRect forces every cell whose center lies within radius of
// (x, y) to the given type, without touching the damage accumulator.
// Used by the environment system for destructible footprints.
func (g *Grid) StampRect(x, y, radius float64, t Type) {
	cx, cy := g.WorldToGrid(x, y)
	gridRadius := int(math.Ceil(radius / g.CellSize))
	for dy := -gridRadius; dy <= gridRadius; dy++ {
		for dx := -gridRadius; dx <= gridRadius; dx++ {
			gx, gy := cx+dx, cy+dy
			if gx < 0 || gx >= g.Width || gy < 0 || gy >= g.Height {
				continue
			}
			cellX := g.OriginX + (float64(gx)+0.5)*g.CellSize
			cellY := g.OriginY + (float64(gy)+0.5)*g.CellSize
			if math.Hypot(cellX-x, cellY-y) > radius {
				continue
			}
			g.cells[gy*g.Width+gx].Type = t
		}
	}
}

// Types returns a flattened row-major copy of cell types, for the
// terrain snapshot's types:[u8] field (spec §6).
func (g *Grid) Types() []uint8 {
	out := make([]uint8, len(g.cells))
	for i, c := range g.cells {
		out[i] = uint8(c.Type)
	}
	return out
}
