// Package core provides fundamental types shared by the simulation, network
// and rendering layers. It contains no external dependencies (especially no
// Bubble Tea) to keep game logic pure, deterministic and testable.
package core

import "math"

// Fixed is a signed fixed-point number with FracBits fractional bits.
// Simulation positions use Fixed so that host and clients reproduce
// bit-identical trajectories independent of platform floating-point behaviour.
type Fixed int64

const (
	// FracBits is the number of fractional bits in a Fixed value.
	FracBits = 16

	// One is the Fixed representation of 1.0.
	One Fixed = 1 << FracBits

	// HalfOne is the Fixed representation of 0.5.
	HalfOne Fixed = One / 2
)

// FromInt converts an integer to Fixed.
func FromInt(i int) Fixed {
	return Fixed(i) << FracBits
}

// FromFloat converts a float64 to the nearest Fixed value.
// Only used for configuration values, never inside the tick loop.
func FromFloat(f float64) Fixed {
	return Fixed(math.Round(f * float64(One)))
}

// Float returns the value as float64 (for display only).
func (f Fixed) Float() float64 {
	return float64(f) / float64(One)
}

// Floor returns the largest integer not greater than f.
func (f Fixed) Floor() int {
	return int(f >> FracBits)
}

// Even truncates f toward zero to an even number of units.
func (f Fixed) Even() Fixed {
	return f - f%2
}

// Mul multiplies two Fixed values. The result truncates toward zero so that
// Mul(-a, b) == -Mul(a, b); mirrored trajectories stay exactly mirrored.
func (f Fixed) Mul(g Fixed) Fixed {
	return f * g / One
}

// Vec is a 2D position or displacement in arena space (x right, y down).
type Vec struct {
	X, Y Fixed
}

// V builds a Vec from float coordinates (configuration and tests only).
func V(x, y float64) Vec {
	return Vec{X: FromFloat(x), Y: FromFloat(y)}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies both components by s.
func (v Vec) Scale(s Fixed) Vec {
	return Vec{X: v.X.Mul(s), Y: v.Y.Mul(s)}
}

// Cell returns the grid cell containing v.
func (v Vec) Cell() Cell {
	return Cell{X: v.X.Floor(), Y: v.Y.Floor()}
}

// Cell is a discretized grid coordinate used by trails and collisions.
type Cell struct {
	X, Y int
}

// Center returns the spawn position inside the cell: its middle plus one
// unit. Simulated positions keep an odd unit count (see Step) so they never
// lie exactly on a cell boundary, and mirrored positions fall in mirrored
// cells.
func (c Cell) Center() Vec {
	return Vec{X: FromInt(c.X) + HalfOne + 1, Y: FromInt(c.Y) + HalfOne + 1}
}

// Rect represents an axis-aligned bounding box in cell units.
type Rect struct {
	X, Y int // Top-left corner position
	W, H int // Width and height
}

// NewRect creates a new rectangle with the given position and dimensions.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Right returns the x-coordinate of the right edge.
func (r Rect) Right() int {
	return r.X + r.W
}

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Contains returns true if the point (x, y) is inside this rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// ContainsCell is Contains for a Cell.
func (r Rect) ContainsCell(c Cell) bool {
	return r.Contains(c.X, c.Y)
}

// Intersects returns true if this rectangle overlaps with another.
func (r Rect) Intersects(other Rect) bool {
	if r.X >= other.Right() || other.X >= r.Right() {
		return false
	}
	if r.Y >= other.Bottom() || other.Y >= r.Bottom() {
		return false
	}
	return true
}

// Line returns the 4-connected chain of cells from a to b, inclusive of
// both ends. Diagonal steps are split into an x step followed by a y step
// (x first on exact ties), so consecutive cells always share an edge and
// two trails can never cross through a shared corner.
func Line(a, b Cell) []Cell {
	dx, dy := Abs(b.X-a.X), Abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	cells := make([]Cell, 0, dx+dy+1)
	cells = append(cells, a)
	x, y := a.X, a.Y
	for ix, iy := 0, 0; ix < dx || iy < dy; {
		// Step along the axis whose next boundary is nearer.
		if (1+2*ix)*dy <= (1+2*iy)*dx {
			x += sx
			ix++
		} else {
			y += sy
			iy++
		}
		cells = append(cells, Cell{X: x, Y: y})
	}
	return cells
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Max returns the larger of two integers.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
