// Package isa is the instruction set registry: a process-wide table mapping opcode id to
// mnemonic, cell length, argument-type vector, a pass-2 encoder and a per-tick planner. Both the
// assembler's pass manager and the virtual machine's tick loop rely on this table alone; adding an
// opcode requires only a new registry entry.
package isa

import "fmt"

// ArgType is the kind of one instruction argument.
type ArgType int

const (
	ArgRegister ArgType = iota
	ArgLiteral
	ArgVector
	ArgLabel
)

func (t ArgType) String() string {
	switch t {
	case ArgRegister:
		return "register"
	case ArgLiteral:
		return "literal"
	case ArgVector:
		return "vector"
	case ArgLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Width is the number of cells one argument of this type occupies: one for a register or literal,
// one per world dimension for a vector or label.
func (t ArgType) Width(dims int) int {
	switch t {
	case ArgVector, ArgLabel:
		return dims
	default:
		return 1
	}
}

// Opcode identifies an instruction in the registry.
type Opcode int

// Register id space partitioning. A bank is identified by which half-open range its numeric id
// falls in; DR occupies the bottom of the space, PR/FPR/LR are offset well above any plausible DR
// count so a single range check routes a read or write to the right bank.
const (
	DRBase  = 0
	PRBase  = 1000
	FPRBase = 2000
	LRBase  = 3000
)

// Bank names a register bank.
type Bank int

const (
	BankDR Bank = iota
	BankPR
	BankFPR
	BankLR
)

func (b Bank) String() string {
	switch b {
	case BankDR:
		return "DR"
	case BankPR:
		return "PR"
	case BankFPR:
		return "FPR"
	case BankLR:
		return "LR"
	default:
		return "?"
	}
}

// Route dispatches a register id to its bank and within-bank index.
func Route(id int) (Bank, int) {
	switch {
	case id >= LRBase:
		return BankLR, id - LRBase
	case id >= FPRBase:
		return BankFPR, id - FPRBase
	case id >= PRBase:
		return BankPR, id - PRBase
	default:
		return BankDR, id - DRBase
	}
}

// RegisterResolver maps a source-level register token (a named alias, a formal parameter name, or
// a bare %DRn/%PRn/%FPRn/%LRn) to its numeric id. The assembler builds one per encode call, since
// the effective map depends on the enclosing .PROC context.
type RegisterResolver interface {
	Resolve(name string) (id int, ok bool)
}

// JumpRequest asks the placeholder resolver to patch a jump delta at encode time; the N argument
// cells following the opcode are reserved and filled with targetCoord - opcodeCoord once the
// target label's coordinate is known.
type JumpRequest struct {
	Label string
}

// LabelVectorRequest asks the resolver to write a label's absolute coordinate into the argument
// cells that follow a register operand.
type LabelVectorRequest struct {
	Register int
	Label    string
}

// VectorRequest asks the resolver to write a label's absolute coordinate into a bare vector
// argument (no preceding register operand).
type VectorRequest struct {
	Label string
}

// EncodeResult is what an opcode's Encoder returns for one argument list: either literal words to
// emit directly, or exactly one placeholder request for the resolver to patch later.
type EncodeResult struct {
	Words  []int32
	Jump   *JumpRequest
	LabelV *LabelVectorRequest
	Vector *VectorRequest
}

// IsPlaceholder reports whether this result reserves cells for the resolver rather than emitting
// literal words now.
func (r EncodeResult) IsPlaceholder() bool {
	return r.Jump != nil || r.LabelV != nil || r.Vector != nil
}

// Encoder converts parsed source operands into an EncodeResult during pass 2.
type Encoder func(args []string, dims int, regs RegisterResolver) (EncodeResult, error)

// Planner returns the Behavior the virtual machine should run for one fetched instruction, given
// its raw argument words and the world's dimensionality (needed to split vector/label arguments,
// which occupy dims cells each, out of the flat argument slice).
type Planner func(args []int32, dims int) Behavior

// Behavior is the callable the virtual machine invokes during the execute phase of a tick.
type Behavior func(ctx Context) error

// Info is one registry entry.
type Info struct {
	Name     string
	ID       Opcode
	ArgTypes []ArgType
	Cost     int64
	Encode   Encoder
	Plan     Planner
}

// Length returns the total cell length of an instruction of this opcode in a world of the given
// dimensionality: 1 (the opcode cell) plus the width of every argument.
func (info *Info) Length(dims int) int {
	n := 1
	for _, t := range info.ArgTypes {
		n += t.Width(dims)
	}
	return n
}

// Registry is a process-wide table of opcode Info, indexed by both mnemonic and numeric id.
type Registry struct {
	byName map[string]*Info
	byID   map[Opcode]*Info
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]*Info{},
		byID:   map[Opcode]*Info{},
	}
}

// Register adds an opcode to the registry. It panics on a duplicate name or id, since the
// registry is meant to be built once, at process startup, not mutated at runtime.
func (r *Registry) Register(info Info) {
	if _, ok := r.byName[info.Name]; ok {
		panic(fmt.Sprintf("isa: duplicate mnemonic: %s", info.Name))
	}
	if _, ok := r.byID[info.ID]; ok {
		panic(fmt.Sprintf("isa: duplicate opcode id: %d", info.ID))
	}

	cp := info
	r.byName[info.Name] = &cp
	r.byID[info.ID] = &cp
}

// ByName looks up an opcode by its mnemonic.
func (r *Registry) ByName(name string) (*Info, bool) {
	info, ok := r.byName[name]
	return info, ok
}

// ByID looks up an opcode by its numeric id.
func (r *Registry) ByID(id Opcode) (*Info, bool) {
	info, ok := r.byID[id]
	return info, ok
}
