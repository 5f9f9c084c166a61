package snapshot

import "github.com/signalsfoundry/constellation-simulator/internal/terrain"

// TerrainSnapshot is the on-demand terrain view (spec §6): the full
// type grid plus the crater events reported by the most recent tick.
type TerrainSnapshot struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	OriginX  float64      `json:"origin_x"`
	OriginY  float64      `json:"origin_y"`
	CellSize float64      `json:"cell_size"`
	Types    []uint8      `json:"types"`
	Craters  []CraterView `json:"craters"`
}

// BuildTerrain assembles a terrain snapshot. craters is the crater
// events the most recent tick reported, mirroring the structured
// snapshot's new_craters list.
func BuildTerrain(grid *terrain.Grid, craters []CraterView) TerrainSnapshot {
	return TerrainSnapshot{
		Width:    grid.Width,
		Height:   grid.Height,
		OriginX:  grid.OriginX,
		OriginY:  grid.OriginY,
		CellSize: grid.CellSize,
		Types:    grid.Types(),
		Craters:  craters,
	}
}
