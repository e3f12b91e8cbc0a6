package isa

import (
	"math/rand"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/molecule"
)

// RegisterValue is what one register slot holds: either a scalar or a vector, per §4 ("registers
// hold either a scalar or a vector").
type RegisterValue struct {
	IsVector bool
	Scalar   int32
	Vector   []int32
}

// Zero is the zero scalar value, useful as a register reset value.
var Zero = RegisterValue{}

// Context is the narrow surface a Behavior needs: register and stack access, IP/DV control,
// energy accounting, world access gated by ownership, and failure reporting. vm.Organism and
// vm.Machine together implement it through a wrapper so that isa never imports vm, keeping the
// registry free of a dependency cycle with the package that consumes it.
type Context interface {
	// Opcode and Args identify and supply the operands of the instruction being executed.
	Opcode() Opcode
	Args() []int32

	ReadRegister(id int) RegisterValue
	WriteRegister(id int, v RegisterValue)

	IP() env.Coord
	DV() env.Coord
	SetIP(c env.Coord)
	SetDV(c env.Coord)
	// RequestSkipAdvance suppresses the automatic IP advance at the end of the tick; CALL, RET
	// and JMP* all request it since they set IP themselves.
	RequestSkipAdvance()

	PushData(v RegisterValue) error
	PopData() (RegisterValue, error)
	PushLocation(c env.Coord) error
	PopLocation() (env.Coord, error)

	// Call pushes a procedure frame: the callee's name (for diagnostics), a snapshot of PR/FPR, and
	// the symbolic FPR->caller-register bindings used by .WITH. The return coordinate is the
	// organism's natural next address, computed by the tick driver's context when Call runs; Call does not
	// take it as an argument because a Behavior has no other way to learn the fetched
	// instruction's length. CALL itself still sets IP to the callee via SetIP.
	Call(procName string, bindings map[int]int) error
	// Return pops the top frame, restores PR/FPR from its snapshot, and sets IP to its return
	// coordinate.
	Return() error

	AddEnergy(delta int64)
	Energy() int64
	Kill()

	Get(c env.Coord) molecule.Word
	Set(c env.Coord, m molecule.Word) error
	CanAccess(c env.Coord) bool

	Fail(reason string)

	Random() *rand.Rand
}
