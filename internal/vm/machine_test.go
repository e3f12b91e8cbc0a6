package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
	"github.com/vitae-sim/vitae/internal/vmconfig"
)

func newTestMachine(t *testing.T) (*Machine, *isa.Registry) {
	t.Helper()
	cfg := vmconfig.Default()
	e := env.New(cfg.Shape, cfg.Toroidal)
	reg := isa.Default()
	return NewMachine(e, reg, cfg), reg
}

func place(e *env.Environment, c env.Coord, words ...int32) {
	cur := c.Clone()
	for _, w := range words {
		e.Set(cur, molecule.Word(uint32(w)))
		cur = cur.Add(env.Coord{0, 1})
	}
}

func TestTickAdvancesIPPastNOP(t *testing.T) {
	m, reg := newTestMachine(t)
	nop, _ := reg.ByName("NOP")

	start := env.Coord{5, 5}
	place(m.Environment(), start, int32(molecule.Pack(molecule.Code, int32(nop.ID))))

	org := m.Spawn(start, env.Coord{0, 1}, 1)
	m.Tick()

	assert.True(t, org.Alive)
	assert.Equal(t, env.Coord{5, 6}, org.IP)
}

func TestHALTKillsOrganism(t *testing.T) {
	m, reg := newTestMachine(t)
	halt, _ := reg.ByName("HALT")

	start := env.Coord{0, 0}
	place(m.Environment(), start, int32(molecule.Pack(molecule.Code, int32(halt.ID))))

	org := m.Spawn(start, env.Coord{0, 1}, 1)
	m.Tick()

	assert.False(t, org.Alive)
}

func TestADDIAddsImmediateToRegister(t *testing.T) {
	m, reg := newTestMachine(t)
	addi, _ := reg.ByName("ADDI")

	start := env.Coord{1, 1}
	e := m.Environment()
	cur := start.Clone()
	e.Set(cur, molecule.Pack(molecule.Code, int32(addi.ID)))
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Code, 0)) // dst DR0
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Code, 0)) // src DR0
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Data, 7)) // literal DATA:7

	org := m.Spawn(start, env.Coord{0, 1}, 1)
	org.WriteRegister(0, isa.RegisterValue{Scalar: 10})

	m.Tick()

	rv := org.ReadRegister(0)
	require.False(t, rv.IsVector)
	assert.Equal(t, int32(17), rv.Scalar)
	assert.Equal(t, env.Coord{1, 5}, org.IP)
}

func TestJMPRMovesIPByDelta(t *testing.T) {
	m, reg := newTestMachine(t)
	jmpr, _ := reg.ByName("JMPR")

	start := env.Coord{2, 2}
	e := m.Environment()
	cur := start.Clone()
	e.Set(cur, molecule.Pack(molecule.Code, int32(jmpr.ID)))
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Code, 3))
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Code, 3))

	org := m.Spawn(start, env.Coord{0, 1}, 1)
	m.Tick()

	assert.Equal(t, env.Coord{5, 5}, org.IP)
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	m, reg := newTestMachine(t)
	call, _ := reg.ByName("CALL")
	ret, _ := reg.ByName("RET")
	nop, _ := reg.ByName("NOP")

	e := m.Environment()

	callSite := env.Coord{0, 0}
	cur := callSite.Clone()
	e.Set(cur, molecule.Pack(molecule.Code, int32(call.ID)))
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Code, 10))
	cur = cur.Add(env.Coord{0, 1})
	e.Set(cur, molecule.Pack(molecule.Code, 10))
	cur = cur.Add(env.Coord{0, 1})
	// after CALL, natural next instruction here is a NOP marking the return site
	e.Set(cur, molecule.Pack(molecule.Code, int32(nop.ID)))

	procSite := env.Coord{10, 10}
	e.Set(procSite, molecule.Pack(molecule.Code, int32(ret.ID)))

	org := m.Spawn(callSite, env.Coord{0, 1}, 1)

	m.Tick() // executes CALL, jumps to procSite
	assert.Equal(t, procSite, org.IP)
	assert.Len(t, org.CS, 1)

	m.Tick() // executes RET, returns to the NOP after CALL
	assert.Equal(t, env.Coord{0, 3}, org.IP)
	assert.Len(t, org.CS, 0)
}
