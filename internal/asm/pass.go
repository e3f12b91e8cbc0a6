package asm

// pass.go implements the two-pass assembler proper, built on top of walk.go's shared directive
// state machine. Pass 1 discovers every label's coordinate without emitting anything; pass 2
// re-walks the same line stream, now encoding each instruction and either writing its words
// directly or registering a placeholder for the resolver to patch once every label is known.

import (
	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
)

// placeholder is one pending jump/vector request the resolver must patch after both passes have
// run and every label coordinate is known.
type placeholder struct {
	kind      placeholderKind
	reserveAt env.Coord // coordinate of the first reserved argument cell
	opcodeAt  env.Coord // coordinate of the opcode cell, for jump-delta math
	dir       env.Coord // emission direction in effect when the cells were reserved
	label     string
	dims      int
	origin    Origin
}

type placeholderKind int

const (
	placeholderJump placeholderKind = iota
	placeholderVector
)

// layout is pass 1's output: every label's coordinate. A .PROC entry point is recorded here like any
// other label, under the procedure's name.
type layout struct {
	labels map[string]env.Coord
}

func runPass1(dims int, registry *isa.Registry, defs *Definitions, imports map[string]string) (*layout, error) {
	lay := &layout{labels: map[string]env.Coord{}}

	w := newWalker(dims, registry, defs, imports)
	w.onLabel = func(name string, cur env.Coord) {
		lay.labels[name] = cur
	}

	if err := w.run(); err != nil {
		return nil, err
	}

	return lay, nil
}

// pass2Result is pass 2's output: the environment has already been written with every literal
// word; placeholders lists what the resolver still needs to patch; sourceMap records where every
// instruction's opcode cell came from, for disassembly and diagnostics.
type pass2Result struct {
	placeholders []placeholder
	sourceMap    map[string]Origin // coordinate string -> origin
}

func coordKey(c env.Coord) string {
	return c.String()
}

func runPass2(e *env.Environment, owner env.OwnerID, registry *isa.Registry, defs *Definitions, imports map[string]string) (*pass2Result, error) {
	dims := e.Dimensions()
	res := &pass2Result{sourceMap: map[string]Origin{}}

	w := newWalker(dims, registry, defs, imports)

	w.onPlace = func(ln Line, cur env.Coord, word string) error {
		wd, err := isa.ParseLiteralArg(word)
		if err != nil {
			return &LexError{Orig: originOf(ln), Msg: ".PLACE: " + err.Error()}
		}
		e.SetWithOwner(cur, wd, owner)
		res.sourceMap[coordKey(cur)] = originOf(ln)
		return nil
	}

	w.onInstr = func(ln Line, cur env.Coord, dir env.Coord, info *isa.Info, args []string, regs isa.RegisterResolver) error {
		result, err := info.Encode(args, dims, regs)
		if err != nil {
			return &SemanticError{Orig: originOf(ln), Msg: info.Name + ": " + err.Error()}
		}

		e.SetWithOwner(cur, molecule.Pack(molecule.Code, int32(info.ID)), owner)
		res.sourceMap[coordKey(cur)] = originOf(ln)

		argAt := cur.Add(dir)

		switch {
		case result.Jump != nil:
			res.placeholders = append(res.placeholders, placeholder{
				kind: placeholderJump, reserveAt: argAt, opcodeAt: cur, dir: dir, label: result.Jump.Label, dims: dims,
				origin: originOf(ln),
			})
			// Reserve the cells now so later instructions don't overlap them; the resolver fills
			// them in once every label coordinate is known.
			cursor := argAt
			for i := 0; i < dims; i++ {
				e.SetWithOwner(cursor, 0, owner)
				cursor = cursor.Add(dir)
			}

		case result.Vector != nil:
			res.placeholders = append(res.placeholders, placeholder{
				kind: placeholderVector, reserveAt: argAt, dir: dir, label: result.Vector.Label, dims: dims,
				origin: originOf(ln),
			})
			cursor := argAt
			for i := 0; i < dims; i++ {
				e.SetWithOwner(cursor, 0, owner)
				cursor = cursor.Add(dir)
			}

		default:
			cursor := argAt
			for _, word := range result.Words {
				e.SetWithOwner(cursor, molecule.Word(uint32(word)), owner)
				cursor = cursor.Add(dir)
			}
		}

		return nil
	}

	if err := w.run(); err != nil {
		return nil, err
	}

	return res, nil
}
