package vm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
	"github.com/vitae-sim/vitae/internal/vmconfig"
)

var errCellOwned = errors.New("cell is owned by another organism")

// Machine ties an Environment, an instruction registry, and a live population of Organisms
// together, and drives them one tick at a time.
type Machine struct {
	env       *env.Environment
	registry  *isa.Registry
	config    vmconfig.Config
	organisms map[uuid.UUID]*Organism
	nextOwner env.OwnerID
}

// NewMachine creates a machine over an already-populated environment.
func NewMachine(e *env.Environment, registry *isa.Registry, config vmconfig.Config) *Machine {
	return &Machine{
		env:       e,
		registry:  registry,
		config:    config,
		organisms: map[uuid.UUID]*Organism{},
	}
}

// Environment exposes the underlying grid, mainly for tests and inspection tools.
func (m *Machine) Environment() *env.Environment { return m.env }

// Spawn creates a new organism at ip facing dv, registers it, and claims ownership of ip itself.
func (m *Machine) Spawn(ip, dv env.Coord, seed int64) *Organism {
	m.nextOwner++
	owner := m.nextOwner

	org := NewOrganism(
		uuid.New(), owner, ip, dv,
		m.config.DataRegisters, m.config.ProcRegisters, m.config.ParamRegisters, m.config.LocationRegisters,
		m.config.DataPointers, m.config.DataStackDepth, m.config.LocationStackDepth, m.config.CallStackDepth,
		m.config.StartEnergy, seed,
	)

	m.organisms[org.ID] = org
	m.env.SetOwner(ip, owner)

	return org
}

// Organisms returns every organism currently tracked, alive or not.
func (m *Machine) Organisms() map[uuid.UUID]*Organism { return m.organisms }

// fetch reads one instruction's opcode and raw argument words starting at org.IP, stepping org.DV
// one cell at a time.
func (m *Machine) fetch(org *Organism) (isa.Opcode, []int32, error) {
	head := m.env.Get(org.IP)
	t, v := molecule.Unpack(head)
	if t != molecule.Code && m.config.StrictTyping {
		return 0, nil, fmt.Errorf("ip does not point at code: %s", head)
	}

	op := isa.Opcode(v)
	info, ok := m.registry.ByID(op)
	if !ok {
		return 0, nil, fmt.Errorf("unknown opcode %d", op)
	}

	n := info.Length(m.env.Dimensions()) - 1
	args := make([]int32, n)
	cursor := org.IP.Clone()

	for i := 0; i < n; i++ {
		cursor = m.env.Normalize(cursor.Add(org.DV))
		args[i] = int32(m.env.Get(cursor))
	}

	return op, args, nil
}

// Tick advances every living organism by one instruction: reset its sticky failure flag, fetch,
// plan, execute, and (unless the instruction branched) advance IP past the instruction.
func (m *Machine) Tick() {
	for _, org := range m.organisms {
		if !org.Alive {
			continue
		}
		m.tickOne(org)
	}
}

func (m *Machine) tickOne(org *Organism) {
	org.Failed = false
	org.FailReason = ""

	op, args, err := m.fetch(org)
	if err != nil {
		m.penalize(org, err.Error())
		return
	}

	info, ok := m.registry.ByID(op)
	if !ok {
		m.penalize(org, "unknown opcode")
		return
	}

	ctx := &execContext{m: m, org: org, opcode: op, args: args}
	behavior := info.Plan(args, m.env.Dimensions())

	if err := behavior(ctx); err != nil {
		org.AddEnergy(-info.Cost)
		m.penalize(org, err.Error())
		return
	}

	org.AddEnergy(-info.Cost)
	if org.Energy <= 0 {
		org.Kill()
		return
	}

	if op == isa.OpFORK {
		m.spawnFromFork(org, ctx)
	}

	if op == isa.OpSKIP {
		// SKIP moves IP past itself and past the whole instruction that follows it.
		next := ctx.naturalNextIP()
		skipped := 1
		if t, v := molecule.Unpack(m.env.Get(next)); t == molecule.Code {
			if nextInfo, ok := m.registry.ByID(isa.Opcode(v)); ok {
				skipped = nextInfo.Length(m.env.Dimensions())
			}
		}
		for i := 0; i < skipped; i++ {
			next = next.Add(org.DV)
		}
		org.IP = m.env.Normalize(next)
		return
	}

	if !ctx.skipAdvance {
		org.IP = ctx.naturalNextIP()
	}
}

func (m *Machine) penalize(org *Organism, reason string) {
	org.Fail(reason)
	org.AddEnergy(-m.config.ErrorPenalty)
	if org.Energy <= 0 {
		org.Kill()
	}
}

// spawnFromFork instantiates a daughter organism at FORK's resolved target, provided the target
// area is unowned and the parent can afford the split; it charges half the parent's remaining
// energy to the daughter.
func (m *Machine) spawnFromFork(parent *Organism, ctx *execContext) {
	target := env.Coord(append([]int32(nil), ctx.args...))

	if !m.env.IsAreaUnowned(target, 0) {
		parent.Fail("fork target is owned")
		return
	}

	if parent.Energy < 2 {
		parent.Fail("insufficient energy to fork")
		return
	}

	share := parent.Energy / 2
	parent.AddEnergy(-share)

	daughter := m.Spawn(target, parent.DV.Clone(), parent.Random().Int63())
	daughter.Energy = share
}
