package systems

import (
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
	"github.com/signalsfoundry/constellation-simulator/internal/world"
)

func TestMovementIntegratesVelocity(t *testing.T) {
	store := world.New()
	grid := terrain.NewGrid(200, 200, -500, -500, 5)
	sq := &model.Squad{ID: 1, X: 0, Y: 0, VX: 10, VY: -4, Alive: true}
	if err := store.SpawnSquad(sq); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	Movement(store, grid, 500*time.Millisecond)

	if sq.X != 5 || sq.Y != -2 {
		t.Fatalf("position = (%v,%v), want (5,-2)", sq.X, sq.Y)
	}
}

func TestMovementClampsToGridBounds(t *testing.T) {
	store := world.New()
	grid := terrain.NewGrid(10, 10, 0, 0, 5) // bounds: [0,50] x [0,50]
	sq := &model.Squad{ID: 1, X: 45, Y: 45, VX: 1000, VY: 1000, Alive: true}
	if err := store.SpawnSquad(sq); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	Movement(store, grid, time.Second)

	if sq.X != 50 || sq.Y != 50 {
		t.Fatalf("position = (%v,%v), want clamped to (50,50)", sq.X, sq.Y)
	}
}

func TestMovementIgnoresDeadSquads(t *testing.T) {
	store := world.New()
	grid := terrain.NewGrid(200, 200, -500, -500, 5)
	sq := &model.Squad{ID: 1, X: 0, Y: 0, VX: 10, VY: 10, Health: 0, Alive: false}
	if err := store.SpawnSquad(sq); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	sq.Alive = false // SpawnSquad always spawns alive; flag it dead afterwards

	Movement(store, grid, time.Second)

	if sq.X != 0 || sq.Y != 0 {
		t.Fatalf("dead squad moved: position = (%v,%v), want (0,0)", sq.X, sq.Y)
	}
}
