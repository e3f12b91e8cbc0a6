// Package vmconfig centralizes the tunables every other package needs at construction time: world
// shape, register bank sizes, stack depths, and energy costs. It parses nothing -- a YAML or TOML
// loader in surrounding tooling is expected to populate a Config and hand it to the assembler and
// the machine.
package vmconfig

// Config groups the knobs that size and price a world.
type Config struct {
	// Shape is the extent of each axis of the environment.
	Shape []int32

	// Toroidal selects wrap-around addressing for the environment.
	Toroidal bool

	// DataRegisters, ProcRegisters, ParamRegisters, LocationRegisters size the organism's
	// register banks (DR, PR, FPR, LR).
	DataRegisters      int
	ProcRegisters      int
	ParamRegisters     int
	LocationRegisters  int
	DataPointers       int

	// DataStackDepth, LocationStackDepth, CallStackDepth bound the organism's stacks; exceeding
	// one fails the offending instruction rather than growing unbounded.
	DataStackDepth     int
	LocationStackDepth int
	CallStackDepth     int

	// StartEnergy is the energy an organism is created with.
	StartEnergy int64

	// ErrorPenalty is charged in addition to an opcode's own cost whenever an instruction fails.
	ErrorPenalty int64

	// StrictTyping rejects fetching a non-CODE, non-empty cell as an instruction, failing the
	// tick as a NOP instead of attempting to decode garbage.
	StrictTyping bool

	// MaxExpansionDepth bounds recursive macro/routine/include expansion.
	MaxExpansionDepth int
}

// Default returns a Config with reasonable values for a small 2-D world.
func Default() Config {
	return Config{
		Shape:              []int32{64, 64},
		Toroidal:           true,
		DataRegisters:      8,
		ProcRegisters:      8,
		ParamRegisters:     8,
		LocationRegisters:  4,
		DataPointers:       2,
		DataStackDepth:     64,
		LocationStackDepth: 64,
		CallStackDepth:     32,
		StartEnergy:        1000,
		ErrorPenalty:       5,
		StrictTyping:       true,
		MaxExpansionDepth:  100,
	}
}
