// Package env implements the N-dimensional toroidal (or bounded) grid that organisms live on: a
// flat array of packed molecules plus a parallel array of owner IDs.
package env

import (
	"fmt"

	"github.com/vitae-sim/vitae/internal/molecule"
)

// Coord is a point in the N-dimensional grid. Its length must equal the Environment's
// dimensionality for every operation below.
type Coord []int32

// Clone returns a copy of the coordinate, safe to mutate independently of the original.
func (c Coord) Clone() Coord {
	out := make(Coord, len(c))
	copy(out, c)
	return out
}

// Add returns the componentwise sum of two coordinates (or deltas).
func (c Coord) Add(d Coord) Coord {
	out := make(Coord, len(c))
	for i := range c {
		out[i] = c[i] + d[i]
	}
	return out
}

// Sub returns the componentwise difference c - d.
func (c Coord) Sub(d Coord) Coord {
	out := make(Coord, len(c))
	for i := range c {
		out[i] = c[i] - d[i]
	}
	return out
}

// Equal reports whether two coordinates are identical componentwise.
func (c Coord) Equal(d Coord) bool {
	if len(c) != len(d) {
		return false
	}
	for i := range c {
		if c[i] != d[i] {
			return false
		}
	}
	return true
}

func (c Coord) String() string {
	return fmt.Sprint([]int32(c))
}

// OwnerID identifies the organism that owns a cell. Zero means unowned.
type OwnerID uint64

// Environment is a fixed-shape N-D array of molecules and owner IDs, with a sparse index of
// occupied cells for fast iteration.
type Environment struct {
	shape    []int32
	toroidal bool

	molecules []molecule.Word
	owners    []OwnerID

	occupied map[int]struct{} // flat index -> presence
}

// New creates an environment with the given shape. toroidal selects wrap-around addressing; when
// false, out-of-range reads return CODE:0 and writes are silently elided.
func New(shape []int32, toroidal bool) *Environment {
	size := 1
	for _, s := range shape {
		size *= int(s)
	}

	return &Environment{
		shape:     append([]int32(nil), shape...),
		toroidal:  toroidal,
		molecules: make([]molecule.Word, size),
		owners:    make([]OwnerID, size),
		occupied:  make(map[int]struct{}),
	}
}

// Shape returns the dimensionality and extents of the environment.
func (e *Environment) Shape() []int32 {
	return append([]int32(nil), e.shape...)
}

// Dimensions returns the number of axes in the environment.
func (e *Environment) Dimensions() int {
	return len(e.shape)
}

// Toroidal reports whether the environment wraps coordinates.
func (e *Environment) Toroidal() bool {
	return e.toroidal
}

// normalize applies floored-modulo wrap-around per axis when toroidal, and returns ok=false for
// any out-of-range coordinate when not.
func (e *Environment) normalize(c Coord) (Coord, bool) {
	out := make(Coord, len(c))

	for i, v := range c {
		extent := e.shape[i]

		if e.toroidal {
			m := v % extent
			if m < 0 {
				m += extent
			}
			out[i] = m
		} else if v < 0 || v >= extent {
			return nil, false
		} else {
			out[i] = v
		}
	}

	return out, true
}

// Normalize returns the wrapped form of a coordinate. Non-toroidal environments return the
// coordinate unchanged; out-of-range queries are instead rejected by the accessors themselves.
func (e *Environment) Normalize(c Coord) Coord {
	if e.toroidal {
		norm, _ := e.normalize(c)
		return norm
	}

	return c.Clone()
}

func (e *Environment) flatIndex(c Coord) (int, bool) {
	norm, ok := e.normalize(c)
	if !ok {
		return 0, false
	}

	idx := 0
	for i, v := range norm {
		idx = idx*int(e.shape[i]) + int(v)
	}

	return idx, true
}

// Get reads the molecule at a coordinate. Out-of-range reads on a non-toroidal environment
// return CODE:0.
func (e *Environment) Get(c Coord) molecule.Word {
	idx, ok := e.flatIndex(c)
	if !ok {
		return 0
	}

	return e.molecules[idx]
}

// Owner returns the owner of a cell. Out-of-range coordinates are reported unowned.
func (e *Environment) Owner(c Coord) OwnerID {
	idx, ok := e.flatIndex(c)
	if !ok {
		return 0
	}

	return e.owners[idx]
}

// Set writes a molecule at a coordinate without changing its owner. Writes to out-of-range
// coordinates on a non-toroidal environment are elided.
func (e *Environment) Set(c Coord, m molecule.Word) {
	idx, ok := e.flatIndex(c)
	if !ok {
		return
	}

	e.molecules[idx] = m
	e.updateOccupied(idx)
}

// SetWithOwner writes a molecule and its owner together. The owner field is written
// unconditionally, even when m is CODE:0 (erase), so callers always observe a consistent owner
// after a write -- this is the design of record where the teacher's two variants disagreed.
func (e *Environment) SetWithOwner(c Coord, m molecule.Word, owner OwnerID) {
	idx, ok := e.flatIndex(c)
	if !ok {
		return
	}

	e.molecules[idx] = m
	e.owners[idx] = owner
	e.updateOccupied(idx)
}

// SetOwner changes the owner of a cell without touching its molecule.
func (e *Environment) SetOwner(c Coord, owner OwnerID) {
	idx, ok := e.flatIndex(c)
	if !ok {
		return
	}

	e.owners[idx] = owner
	e.updateOccupied(idx)
}

func (e *Environment) updateOccupied(idx int) {
	if e.molecules[idx] != 0 || e.owners[idx] != 0 {
		e.occupied[idx] = struct{}{}
	} else {
		delete(e.occupied, idx)
	}
}

// IsAreaUnowned reports whether every cell within radius (Chebyshev distance) of center is
// unowned.
func (e *Environment) IsAreaUnowned(center Coord, radius int32) bool {
	ranges := make([][2]int32, len(center))
	for i, v := range center {
		ranges[i] = [2]int32{v - radius, v + radius}
	}

	var walk func(axis int, c Coord) bool
	walk = func(axis int, c Coord) bool {
		if axis == len(center) {
			return e.Owner(c) == 0
		}

		for v := ranges[axis][0]; v <= ranges[axis][1]; v++ {
			next := append(c.Clone(), v)
			if !walk(axis+1, next) {
				return false
			}
		}

		return true
	}

	return walk(0, Coord{})
}

// coordAt reconstructs the N-D coordinate for a flat index.
func (e *Environment) coordAt(idx int) Coord {
	c := make(Coord, len(e.shape))
	for i := len(e.shape) - 1; i >= 0; i-- {
		extent := int(e.shape[i])
		c[i] = int32(idx % extent)
		idx /= extent
	}

	return c
}

// ForEachOccupied calls fn once for every cell whose molecule or owner is non-zero, in
// unspecified order.
func (e *Environment) ForEachOccupied(fn func(c Coord, m molecule.Word, owner OwnerID)) {
	for idx := range e.occupied {
		fn(e.coordAt(idx), e.molecules[idx], e.owners[idx])
	}
}
