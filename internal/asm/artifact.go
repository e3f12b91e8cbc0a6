package asm

// artifact.go defines the immutable result of a successful assembly: where the program's labels
// and procedures live in the environment, and enough of a source map to diagnose it later. An
// Artifact never changes after Assemble returns it; re-assembling produces a new one.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
)

// Artifact is the output of assembling one program.
type Artifact struct {
	Origin env.Coord // the zero coordinate of the world this artifact was assembled into
	Labels map[string]env.Coord
	Procs  map[string]ProcMeta

	// SourceMap maps a coordinate's string form to the source line that put code there.
	SourceMap map[string]Origin

	source string // concatenated original source text, hashed for ProgramID
}

// ProgramID returns a stable content hash of the artifact's original source text, usable as a
// lineage identifier when an organism's code is copied or mutated.
func (a *Artifact) ProgramID() uint64 {
	return xxhash.Sum64String(a.source)
}

// OriginAt returns the source line that originally put a word at c, if any. Unlike Disassemble,
// this reflects the program as written, not the environment's current (possibly self-modified)
// contents.
func (a *Artifact) OriginAt(c env.Coord) (Origin, bool) {
	o, ok := a.SourceMap[coordKey(c)]
	return o, ok
}

// Disassemble renders the word at c as a live instruction or literal datum, resolving jump/vector
// targets back to label names from this artifact's Labels table. Register operands render as their
// bank and index ("%DRn", "%PRn", ...); .REG/.PREG aliases are not recovered. dir is the direction
// argument cells are read along (an organism's DV, for a running program).
func (a *Artifact) Disassemble(e *env.Environment, registry *isa.Registry, c, dir env.Coord) string {
	return Disassemble(e, registry, c, dir, a)
}

// Disassemble decodes the word at c against registry: a CODE word is read as an opcode, its
// operands fetched by stepping dir one cell at a time per the registry's own ArgTypes, exactly as
// the virtual machine's fetch does. art resolves vector/label targets to label names; it may be
// nil, in which case (or when a target names no label art recognizes) the target falls back to a
// raw "a|b|c" coordinate. Register operands always render in their bare bank-and-index form
// ("%DRn", "%PRn", ...), with or without art. A non-CODE word, or a
// CODE word whose value names no registered opcode, falls back to its own literal "TYPE:VALUE"
// rendering.
func Disassemble(e *env.Environment, registry *isa.Registry, c, dir env.Coord, art *Artifact) string {
	w := e.Get(c)
	t, v := molecule.Unpack(w)

	if t != molecule.Code {
		return w.String()
	}

	info, ok := registry.ByID(isa.Opcode(v))
	if !ok {
		return w.String()
	}

	dims := e.Dimensions()
	parts := []string{info.Name}
	cursor := c.Clone()

	for _, at := range info.ArgTypes {
		cursor = cursor.Add(dir)

		switch at {
		case isa.ArgRegister:
			parts = append(parts, registerName(int32(e.Get(cursor))))

		case isa.ArgLiteral:
			parts = append(parts, e.Get(cursor).String())

		default: // isa.ArgVector, isa.ArgLabel
			raw := make(env.Coord, dims)
			cell := cursor
			for i := 0; i < dims; i++ {
				raw[i] = int32(e.Get(cell))
				if i < dims-1 {
					cell = cell.Add(dir)
				}
			}
			cursor = cell

			// JMPR is the one opcode whose operand cells hold a coordinate delta rather than an
			// absolute target; every other vector/label operand (JMPI, CALL, FORK) is absolute.
			target := raw
			if info.ID == isa.OpJMPR {
				target = c.Add(raw)
			}

			if name, ok := labelAt(art, target); ok {
				parts = append(parts, name)
			} else if info.ID == isa.OpJMPR {
				parts = append(parts, vectorString(raw))
			} else {
				parts = append(parts, vectorString(target))
			}
		}
	}

	return strings.Join(parts, " ")
}

func registerName(id int32) string {
	bank, idx := isa.Route(int(id))
	return fmt.Sprintf("%%%s%d", bank, idx)
}

func labelAt(art *Artifact, target env.Coord) (string, bool) {
	if art == nil {
		return "", false
	}
	for name, c := range art.Labels {
		if c.Equal(target) {
			return name, true
		}
	}
	return "", false
}

func vectorString(c env.Coord) string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, "|")
}
