// Package world models the agent's surroundings as far as perception needs
// them: a bounded grid, the agent's cell, and the direction it faces.
package world

import (
	"fmt"
	"strings"
	"sync"
)

// Direction is a compass heading.
type Direction byte

const (
	North Direction = 'N'
	South Direction = 'S'
	East  Direction = 'E'
	West  Direction = 'W'
)

// ParseDirection accepts N, S, E, W or their full names, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "N", "NORTH":
		return North, nil
	case "S", "SOUTH":
		return South, nil
	case "E", "EAST":
		return East, nil
	case "W", "WEST":
		return West, nil
	default:
		return 0, fmt.Errorf("invalid direction %q (valid: N, S, E, W)", s)
	}
}

// String returns the single-letter heading.
func (d Direction) String() string {
	return string(d)
}

// Step returns the cell one step from (x, y) along d. North decreases y.
func (d Direction) Step(x, y int) (int, int) {
	switch d {
	case North:
		return x, y - 1
	case South:
		return x, y + 1
	case East:
		return x + 1, y
	case West:
		return x - 1, y
	default:
		return x, y
	}
}

// Cell is a grid coordinate.
type Cell struct {
	X, Y int
}

// Key renders the cell as "x_y".
func (c Cell) Key() string {
	return fmt.Sprintf("%d_%d", c.X, c.Y)
}

// Environment reports the agent's situation.
type Environment interface {
	AgentCell() Cell
	Facing() Direction
	InBounds(c Cell) bool
}

// Grid is a mutable, concurrency-safe Environment.
type Grid struct {
	Width, Height int

	mu     sync.RWMutex
	agent  Cell
	facing Direction
}

// NewGrid creates a width×height grid with the agent at (0, 0) facing north.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, facing: North}
}

// Place moves the agent.
func (g *Grid) Place(c Cell, facing Direction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.agent = c
	g.facing = facing
}

// AgentCell implements Environment.
func (g *Grid) AgentCell() Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.agent
}

// Facing implements Environment.
func (g *Grid) Facing() Direction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.facing
}

// InBounds implements Environment.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Site returns the location key perception records for an object. Predicted
// objects sit in the cell the agent faces, falling back to the agent's own
// cell when that is off the grid. Everything else is where the agent is.
func Site(env Environment, predicted bool) string {
	here := env.AgentCell()
	if !predicted {
		return here.Key()
	}
	x, y := env.Facing().Step(here.X, here.Y)
	ahead := Cell{X: x, Y: y}
	if env.InBounds(ahead) {
		return ahead.Key()
	}
	return here.Key()
}
