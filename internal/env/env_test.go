package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/molecule"
)

func TestToroidalWrap(t *testing.T) {
	e := env.New([]int32{4, 4}, true)

	m := molecule.Pack(molecule.Data, 7)
	e.Set(env.Coord{0, 0}, m)

	for _, c := range []env.Coord{{0, 0}, {4, 0}, {-4, 0}, {0, 4}, {8, 8}} {
		assert.Equal(t, m, e.Get(c), "get(%v)", c)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	e := env.New([]int32{5, 5}, true)
	c := env.Coord{12, -3}

	once := e.Normalize(c)
	twice := e.Normalize(once)

	assert.True(t, once.Equal(twice))
}

func TestNonToroidalOutOfRangeReadsEmpty(t *testing.T) {
	e := env.New([]int32{4, 4}, false)

	require.True(t, molecule.IsEmpty(e.Get(env.Coord{10, 10})))
}

func TestNonToroidalOutOfRangeWriteElided(t *testing.T) {
	e := env.New([]int32{4, 4}, false)
	before := 0

	e.ForEachOccupied(func(env.Coord, molecule.Word, env.OwnerID) { before++ })
	e.Set(env.Coord{-1, -1}, molecule.Pack(molecule.Data, 1))

	after := 0
	e.ForEachOccupied(func(env.Coord, molecule.Word, env.OwnerID) { after++ })

	assert.Equal(t, before, after)
}

func TestOccupiedTracksWritesAndErasure(t *testing.T) {
	e := env.New([]int32{2, 2}, true)

	count := func() int {
		n := 0
		e.ForEachOccupied(func(env.Coord, molecule.Word, env.OwnerID) { n++ })
		return n
	}

	require.Equal(t, 0, count())

	e.SetWithOwner(env.Coord{1, 1}, molecule.Pack(molecule.Energy, 3), 9)
	assert.Equal(t, 1, count())

	// Erasing the molecule but leaving the owner keeps the cell occupied.
	e.Set(env.Coord{1, 1}, molecule.Pack(molecule.Code, 0))
	e.SetOwner(env.Coord{1, 1}, 9)
	assert.Equal(t, 1, count())

	e.SetOwner(env.Coord{1, 1}, 0)
	assert.Equal(t, 0, count())
}

func TestSetWithOwnerAlwaysWritesOwnerEvenOnErase(t *testing.T) {
	e := env.New([]int32{2, 2}, true)

	e.SetWithOwner(env.Coord{0, 0}, molecule.Pack(molecule.Data, 1), 5)
	require.Equal(t, env.OwnerID(5), e.Owner(env.Coord{0, 0}))

	e.SetWithOwner(env.Coord{0, 0}, molecule.Pack(molecule.Code, 0), 0)
	assert.Equal(t, env.OwnerID(0), e.Owner(env.Coord{0, 0}))
}

func TestIsAreaUnowned(t *testing.T) {
	e := env.New([]int32{10, 10}, true)

	assert.True(t, e.IsAreaUnowned(env.Coord{5, 5}, 2))

	e.SetOwner(env.Coord{6, 5}, 1)
	assert.False(t, e.IsAreaUnowned(env.Coord{5, 5}, 2))
}
