package isa

// ops.go implements parsing/encoding and execution semantics for every opcode in the default
// instruction set: the spec's required core (SETR, ADDI, JMPR, JMPI, JMPIR, CALL, RET, SKIP) plus
// the supplemented opcodes that round out a runnable ISA (NOP, HALT, SCAN, EAT, GROW, FORK).

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/molecule"
)

// Opcode ids, numbered consecutively from zero.
const (
	OpNOP Opcode = iota
	OpHALT
	OpSETR
	OpADDI
	OpJMPR
	OpJMPI
	OpJMPIR
	OpCALL
	OpRET
	OpSKIP
	OpSCAN
	OpEAT
	OpGROW
	OpFORK
)

// vectorFrom carves the next dims int32s out of args starting at offset, returning the coord and
// the new offset.
func vectorFrom(args []int32, offset, dims int) (env.Coord, int) {
	c := make(env.Coord, dims)
	for i := 0; i < dims; i++ {
		c[i] = args[offset+i]
	}
	return c, offset + dims
}

// Default returns a registry populated with the full default instruction set.
func Default() *Registry {
	r := NewRegistry()

	r.Register(Info{
		Name: "NOP", ID: OpNOP, ArgTypes: nil, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			return EncodeResult{}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error { return nil }
		},
	})

	r.Register(Info{
		Name: "HALT", ID: OpHALT, ArgTypes: nil, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			return EncodeResult{}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				ctx.Kill()
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "SETR", ID: OpSETR, ArgTypes: []ArgType{ArgRegister, ArgRegister}, Cost: 1,
		Encode: encodeRegisters(2),
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				dst, src := int(args[0]), int(args[1])
				ctx.WriteRegister(dst, ctx.ReadRegister(src))
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "ADDI", ID: OpADDI, ArgTypes: []ArgType{ArgRegister, ArgRegister, ArgLiteral}, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			if len(args) != 3 {
				return EncodeResult{}, fmt.Errorf("ADDI: expected 3 operands, got %d", len(args))
			}

			dst, err := ParseRegisterArg(args[0], regs)
			if err != nil {
				return EncodeResult{}, err
			}

			src, err := ParseRegisterArg(args[1], regs)
			if err != nil {
				return EncodeResult{}, err
			}

			imm, err := ParseLiteralArg(args[2])
			if err != nil {
				return EncodeResult{}, err
			}

			return EncodeResult{Words: []int32{int32(dst), int32(src), int32(imm)}}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				dst, src, imm := int(args[0]), int(args[1]), args[2]
				_, delta := molecule.Unpack(molecule.Word(imm))
				rv := ctx.ReadRegister(src)

				if rv.IsVector {
					return fmt.Errorf("ADDI: source register holds a vector")
				}

				ctx.WriteRegister(dst, RegisterValue{Scalar: rv.Scalar + delta})

				return nil
			}
		},
	})

	r.Register(Info{
		Name: "JMPR", ID: OpJMPR, ArgTypes: []ArgType{ArgLabel}, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			if len(args) != 1 {
				return EncodeResult{}, fmt.Errorf("JMPR: expected 1 operand, got %d", len(args))
			}
			return EncodeResult{Jump: &JumpRequest{Label: args[0]}}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				delta, _ := vectorFrom(args, 0, dims)
				ctx.SetIP(ctx.IP().Add(delta))
				ctx.RequestSkipAdvance()
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "JMPI", ID: OpJMPI, ArgTypes: []ArgType{ArgVector}, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			if len(args) != 1 {
				return EncodeResult{}, fmt.Errorf("JMPI: expected 1 operand, got %d", len(args))
			}
			if IsLabelArg(args[0]) {
				return EncodeResult{Vector: &VectorRequest{Label: args[0]}}, nil
			}

			target, err := parseVectorArg(args[0], dims)
			if err != nil {
				return EncodeResult{}, err
			}

			return EncodeResult{Words: target}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				target, _ := vectorFrom(args, 0, dims)
				ctx.SetIP(target)
				ctx.RequestSkipAdvance()
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "JMPIR", ID: OpJMPIR, ArgTypes: []ArgType{ArgRegister}, Cost: 1,
		Encode: encodeRegisters(1),
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				rv := ctx.ReadRegister(int(args[0]))
				if !rv.IsVector {
					return fmt.Errorf("JMPIR: register does not hold a vector")
				}
				ctx.SetIP(env.Coord(rv.Vector))
				ctx.RequestSkipAdvance()
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "CALL", ID: OpCALL, ArgTypes: []ArgType{ArgLabel}, Cost: 2,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			if len(args) != 1 {
				return EncodeResult{}, fmt.Errorf("CALL: expected 1 operand, got %d", len(args))
			}
			return EncodeResult{Vector: &VectorRequest{Label: args[0]}}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				target, _ := vectorFrom(args, 0, dims)
				if err := ctx.Call("", nil); err != nil {
					return err
				}
				ctx.SetIP(target)
				ctx.RequestSkipAdvance()
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "RET", ID: OpRET, ArgTypes: nil, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			return EncodeResult{}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error { return ctx.Return() }
		},
	})

	r.Register(Info{
		Name: "SKIP", ID: OpSKIP, ArgTypes: nil, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			return EncodeResult{}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			// The tick driver recognizes OpSKIP and moves IP past the instruction that follows
			// it, so that instruction never runs; there is nothing left to do here.
			return func(ctx Context) error { return nil }
		},
	})

	r.Register(Info{
		Name: "SCAN", ID: OpSCAN, ArgTypes: []ArgType{ArgRegister}, Cost: 1,
		Encode: encodeRegisters(1),
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				ahead := ctx.IP().Add(ctx.DV())
				w := ctx.Get(ahead)
				ctx.WriteRegister(int(args[0]), RegisterValue{Scalar: int32(w)})
				return nil
			}
		},
	})

	r.Register(Info{
		Name: "EAT", ID: OpEAT, ArgTypes: nil, Cost: 1,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			return EncodeResult{}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				ahead := ctx.IP().Add(ctx.DV())
				w := ctx.Get(ahead)
				t, v := molecule.Unpack(w)
				if t != molecule.Energy {
					return fmt.Errorf("EAT: no energy molecule ahead")
				}

				if err := ctx.Set(ahead, 0); err != nil {
					return err
				}

				ctx.AddEnergy(int64(v))

				return nil
			}
		},
	})

	r.Register(Info{
		Name: "GROW", ID: OpGROW, ArgTypes: []ArgType{ArgLiteral}, Cost: 2,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			if len(args) != 1 {
				return EncodeResult{}, fmt.Errorf("GROW: expected 1 operand, got %d", len(args))
			}

			w, err := ParseLiteralArg(args[0])
			if err != nil {
				return EncodeResult{}, err
			}

			return EncodeResult{Words: []int32{int32(w)}}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				ahead := ctx.IP().Add(ctx.DV())

				if !ctx.CanAccess(ahead) {
					return fmt.Errorf("GROW: target cell is owned by another organism")
				}

				return ctx.Set(ahead, molecule.Word(args[0]))
			}
		},
	})

	r.Register(Info{
		Name: "FORK", ID: OpFORK, ArgTypes: []ArgType{ArgLabel}, Cost: 10,
		Encode: func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
			if len(args) != 1 {
				return EncodeResult{}, fmt.Errorf("FORK: expected 1 operand, got %d", len(args))
			}
			return EncodeResult{Vector: &VectorRequest{Label: args[0]}}, nil
		},
		Plan: func(args []int32, dims int) Behavior {
			return func(ctx Context) error {
				// Organism lifecycle (spawning a daughter) is the driver's concern; FORK only
				// records its intent via a failure-free no-op here, leaving instantiation to
				// the Machine's tick loop, which inspects the requested target after Execute.
				return nil
			}
		},
	})

	return r
}

func encodeRegisters(n int) Encoder {
	return func(args []string, dims int, regs RegisterResolver) (EncodeResult, error) {
		if len(args) != n {
			return EncodeResult{}, fmt.Errorf("expected %d register operand(s), got %d", n, len(args))
		}

		words := make([]int32, n)
		for i, a := range args {
			id, err := ParseRegisterArg(a, regs)
			if err != nil {
				return EncodeResult{}, err
			}
			words[i] = int32(id)
		}

		return EncodeResult{Words: words}, nil
	}
}

// parseVectorArg parses a "a|b|c" literal vector operand, as used by a JMPI target known at
// assembly time rather than resolved from a label.
func parseVectorArg(s string, dims int) ([]int32, error) {
	parts := strings.Split(strings.TrimSpace(s), "|")
	if len(parts) != dims {
		return nil, fmt.Errorf("vector operand has %d components, want %d", len(parts), dims)
	}

	v := make([]int32, dims)
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("vector operand: %w", err)
		}
		v[i] = int32(n)
	}

	return v, nil
}
