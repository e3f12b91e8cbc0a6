package vm

import (
	"math/rand"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
)

// execContext adapts one Organism executing one instruction, against one Machine, into
// isa.Context. It is created fresh for every fetched instruction and discarded after.
type execContext struct {
	m   *Machine
	org *Organism

	opcode isa.Opcode
	args   []int32

	skipAdvance bool
}

var _ isa.Context = (*execContext)(nil)

func (c *execContext) Opcode() isa.Opcode { return c.opcode }
func (c *execContext) Args() []int32      { return c.args }

func (c *execContext) ReadRegister(id int) isa.RegisterValue  { return c.org.ReadRegister(id) }
func (c *execContext) WriteRegister(id int, v isa.RegisterValue) { c.org.WriteRegister(id, v) }

func (c *execContext) IP() env.Coord     { return c.org.IP }
func (c *execContext) DV() env.Coord     { return c.org.DV }
func (c *execContext) SetIP(v env.Coord) { c.org.IP = v.Clone() }
func (c *execContext) SetDV(v env.Coord) { c.org.DV = v.Clone() }

func (c *execContext) RequestSkipAdvance() { c.skipAdvance = true }

func (c *execContext) PushData(v isa.RegisterValue) error   { return c.org.PushData(v) }
func (c *execContext) PopData() (isa.RegisterValue, error)  { return c.org.PopData() }
func (c *execContext) PushLocation(v env.Coord) error       { return c.org.PushLocation(v) }
func (c *execContext) PopLocation() (env.Coord, error)      { return c.org.PopLocation() }

func (c *execContext) Call(procName string, bindings map[int]int) error {
	next := c.naturalNextIP()
	return c.org.call(procName, next, bindings)
}

func (c *execContext) Return() error {
	target, err := c.org.ret()
	if err != nil {
		return err
	}
	c.org.IP = target
	c.skipAdvance = true
	return nil
}

// naturalNextIP is where fetch/advance would have placed IP had this instruction not branched:
// the current IP stepped by DV and the instruction's own cell length.
func (c *execContext) naturalNextIP() env.Coord {
	info, ok := c.m.registry.ByID(c.opcode)
	length := 1
	if ok {
		length = info.Length(c.m.env.Dimensions())
	}

	next := c.org.IP.Clone()
	for i := 0; i < length; i++ {
		next = next.Add(c.org.DV)
	}

	return c.m.env.Normalize(next)
}

func (c *execContext) AddEnergy(delta int64) { c.org.AddEnergy(delta) }
func (c *execContext) Energy() int64         { return c.org.Energy }
func (c *execContext) Kill()                 { c.org.Kill() }

func (c *execContext) Get(v env.Coord) molecule.Word { return c.m.env.Get(v) }

func (c *execContext) Set(v env.Coord, w molecule.Word) error {
	if !c.CanAccess(v) {
		return errCellOwned
	}
	c.m.env.SetWithOwner(v, w, c.org.OwnerID)
	return nil
}

func (c *execContext) CanAccess(v env.Coord) bool {
	owner := c.m.env.Owner(v)
	return owner == 0 || owner == c.org.OwnerID
}

func (c *execContext) Fail(reason string) { c.org.Fail(reason) }

func (c *execContext) Random() *rand.Rand { return c.org.Random() }
