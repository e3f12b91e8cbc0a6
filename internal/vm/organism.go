// Package vm implements the register/stack virtual machine that executes an assembled Artifact
// against a live Environment: one Organism per running program, advanced tick by tick by Machine.
package vm

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
)

// ProcFrame is a snapshot pushed by CALL and popped by RET: where to resume, and what the caller's
// PR/FPR banks looked like before the callee's .WITH bindings overwrote them.
type ProcFrame struct {
	ProcName   string
	ReturnIP   env.Coord
	SavedPR    []isa.RegisterValue
	SavedFPR   []isa.RegisterValue
	Bindings   map[int]int // FPR index -> caller register id, for copy-out on Return
}

// Organism is one running program: its position and facing in the environment, its register
// banks, its stacks, and its energy and failure bookkeeping.
type Organism struct {
	ID      uuid.UUID
	OwnerID env.OwnerID

	IP env.Coord
	DV env.Coord

	DP []env.Coord // data pointers

	DR  []isa.RegisterValue
	PR  []isa.RegisterValue
	FPR []isa.RegisterValue
	LR  []isa.RegisterValue

	DS []isa.RegisterValue // data stack
	LS []env.Coord         // location stack
	CS []ProcFrame         // call stack

	Energy int64
	Alive  bool

	// Failed and FailReason record a sticky per-tick instruction failure, cleared at the start of
	// the next tick's Plan phase.
	Failed     bool
	FailReason string

	dsDepth   int
	lsDepth   int
	callDepth int
	rng       *rand.Rand
}

// NewOrganism creates an organism with register banks and stacks sized per the given counts,
// seeded at ip facing dv.
func NewOrganism(id uuid.UUID, owner env.OwnerID, ip, dv env.Coord, dataRegs, procRegs, paramRegs, locRegs, dataPtrs, dsDepth, lsDepth, callDepth int, startEnergy int64, seed int64) *Organism {
	dp := make([]env.Coord, dataPtrs)
	for i := range dp {
		dp[i] = ip.Clone()
	}

	return &Organism{
		ID:        id,
		OwnerID:   owner,
		IP:        ip.Clone(),
		DV:        dv.Clone(),
		DP:        dp,
		DR:        make([]isa.RegisterValue, dataRegs),
		PR:        make([]isa.RegisterValue, procRegs),
		FPR:       make([]isa.RegisterValue, paramRegs),
		LR:        make([]isa.RegisterValue, locRegs),
		Energy:    startEnergy,
		Alive:     true,
		dsDepth:   dsDepth,
		lsDepth:   lsDepth,
		callDepth: callDepth,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (o *Organism) bank(id int) (*[]isa.RegisterValue, int) {
	b, idx := isa.Route(id)
	switch b {
	case isa.BankPR:
		return &o.PR, idx
	case isa.BankFPR:
		return &o.FPR, idx
	case isa.BankLR:
		return &o.LR, idx
	default:
		return &o.DR, idx
	}
}

// ReadRegister implements isa.Context.
func (o *Organism) ReadRegister(id int) isa.RegisterValue {
	bank, idx := o.bank(id)
	if idx < 0 || idx >= len(*bank) {
		return isa.Zero
	}
	return (*bank)[idx]
}

// WriteRegister implements isa.Context.
func (o *Organism) WriteRegister(id int, v isa.RegisterValue) {
	bank, idx := o.bank(id)
	if idx < 0 || idx >= len(*bank) {
		return
	}
	(*bank)[idx] = v
}

func (o *Organism) PushData(v isa.RegisterValue) error {
	if len(o.DS) >= o.dsDepth {
		return fmt.Errorf("data stack overflow")
	}
	o.DS = append(o.DS, v)
	return nil
}

func (o *Organism) PopData() (isa.RegisterValue, error) {
	if len(o.DS) == 0 {
		return isa.Zero, fmt.Errorf("data stack underflow")
	}
	v := o.DS[len(o.DS)-1]
	o.DS = o.DS[:len(o.DS)-1]
	return v, nil
}

func (o *Organism) PushLocation(c env.Coord) error {
	if len(o.LS) >= o.lsDepth {
		return fmt.Errorf("location stack overflow")
	}
	o.LS = append(o.LS, c.Clone())
	return nil
}

func (o *Organism) PopLocation() (env.Coord, error) {
	if len(o.LS) == 0 {
		return nil, fmt.Errorf("location stack underflow")
	}
	c := o.LS[len(o.LS)-1]
	o.LS = o.LS[:len(o.LS)-1]
	return c, nil
}

// call pushes a ProcFrame capturing the current PR/FPR banks and the organism's natural next
// address (computed by the tick driver as nextIP), then applies bindings: each FPR slot named in
// bindings is loaded from the caller's register before the callee runs.
func (o *Organism) call(procName string, nextIP env.Coord, bindings map[int]int) error {
	if len(o.CS) >= o.callDepth {
		return fmt.Errorf("call stack overflow")
	}

	frame := ProcFrame{
		ProcName: procName,
		ReturnIP: nextIP.Clone(),
		SavedPR:  append([]isa.RegisterValue(nil), o.PR...),
		SavedFPR: append([]isa.RegisterValue(nil), o.FPR...),
		Bindings: bindings,
	}

	for fprIdx, callerID := range bindings {
		if fprIdx < 0 || fprIdx >= len(o.FPR) {
			continue
		}
		o.FPR[fprIdx] = o.ReadRegister(callerID)
	}

	o.CS = append(o.CS, frame)

	return nil
}

// ret pops the top frame, copies FPR values back into the caller registers named by its bindings,
// restores PR/FPR, and returns the coordinate execution should resume at.
func (o *Organism) ret() (env.Coord, error) {
	if len(o.CS) == 0 {
		return nil, fmt.Errorf("call stack underflow")
	}

	frame := o.CS[len(o.CS)-1]
	o.CS = o.CS[:len(o.CS)-1]

	for fprIdx, callerID := range frame.Bindings {
		if fprIdx < 0 || fprIdx >= len(o.FPR) {
			continue
		}
		o.WriteRegister(callerID, o.FPR[fprIdx])
	}

	o.PR = frame.SavedPR
	o.FPR = frame.SavedFPR

	return frame.ReturnIP, nil
}

func (o *Organism) AddEnergy(delta int64) {
	o.Energy += delta
}

func (o *Organism) Kill() {
	o.Alive = false
}

func (o *Organism) Fail(reason string) {
	o.Failed = true
	o.FailReason = reason
}

func (o *Organism) Random() *rand.Rand {
	return o.rng
}
