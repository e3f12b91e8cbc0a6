package asm

// walk.go is the directive-walking state machine shared by both assembler passes: it tracks the
// assembly cursor (.ORG), the emission direction (.DIR), global register aliases (.REG), label
// bindings, and which .PROC scope (if any) the cursor is currently inside, and dispatches to a
// pass-specific visitor for every instruction line it encounters.

import (
	"strconv"
	"strings"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
)

// instrVisitor receives one decoded instruction line during a walk, already resolved to an
// opcode, raw operand tokens, and the register resolver in effect at that point in the source.
type instrVisitor func(ln Line, cur env.Coord, dir env.Coord, info *isa.Info, args []string, regs isa.RegisterResolver) error

// placeVisitor receives one .PLACE directive.
type placeVisitor func(ln Line, cur env.Coord, word string) error

// walker carries state across one full pass over Definitions.Main.
type walker struct {
	dims     int
	registry *isa.Registry
	defs     *Definitions
	imports  map[string]string // alias -> target proc, from .IMPORT

	cur env.Coord
	dir env.Coord

	globalRegs map[string]int

	activeProc string // name of the .PROC scope the cursor is currently inside, or ""

	onLabel func(name string, cur env.Coord)
	onInstr instrVisitor
	onPlace placeVisitor
}

func newWalker(dims int, registry *isa.Registry, defs *Definitions, imports map[string]string) *walker {
	cur := make(env.Coord, dims)
	dir := make(env.Coord, dims)
	if dims > 0 {
		dir[dims-1] = 1
	}

	return &walker{
		dims:       dims,
		registry:   registry,
		defs:       defs,
		imports:    imports,
		cur:        cur,
		dir:        dir,
		globalRegs: map[string]int{},
	}
}

// run walks defs.Main once, invoking the registered callbacks. It does not itself record
// anything; callers set onLabel/onInstr/onPlace before calling run.
func (w *walker) run() error {
	seen := map[string]bool{}

	for _, ln := range w.defs.Main {
		if ln.IsBlank() {
			continue
		}

		fields := ln.Fields()
		if len(fields) == 0 {
			continue
		}

		tok := fields[0]

		switch {
		case strings.HasSuffix(tok, ":") && len(fields) == 1:
			name := strings.TrimSuffix(tok, ":")
			if _, ok := w.registry.ByName(name); ok {
				return &SemanticError{Orig: originOf(ln), Msg: "label collides with opcode: " + name}
			}
			if seen[name] {
				return &SemanticError{Orig: originOf(ln), Msg: "duplicate label: " + name}
			}
			seen[name] = true
			if _, ok := w.defs.Procs[name]; ok {
				w.activeProc = name
			}
			if w.onLabel != nil {
				w.onLabel(name, w.cur.Clone())
			}

		case strings.EqualFold(tok, ".ORG"):
			v, err := parseVector(fields[1])
			if err != nil {
				return &LexError{Orig: originOf(ln), Msg: ".ORG: " + err.Error()}
			}
			w.cur = env.Coord(v)

		case strings.EqualFold(tok, ".DIR"):
			v, err := parseVector(fields[1])
			if err != nil {
				return &LexError{Orig: originOf(ln), Msg: ".DIR: " + err.Error()}
			}
			w.dir = env.Coord(v)

		case strings.EqualFold(tok, ".REG"):
			if len(fields) != 3 {
				return &LexError{Orig: originOf(ln), Msg: ".REG requires a name and id"}
			}
			id, err := parseBareOrNumericRegister(fields[2])
			if err != nil {
				return &LexError{Orig: originOf(ln), Msg: ".REG: " + err.Error()}
			}
			w.globalRegs[fields[1]] = id

		case strings.EqualFold(tok, ".PLACE"):
			if len(fields) != 2 {
				return &LexError{Orig: originOf(ln), Msg: ".PLACE requires one molecule literal"}
			}
			if w.onPlace != nil {
				if err := w.onPlace(ln, w.cur.Clone(), fields[1]); err != nil {
					return err
				}
			}
			w.cur = w.cur.Add(w.dir)

		default:
			name, args := resolvePseudoMnemonic(tok, fields[1:])

			info, ok := w.registry.ByName(name)
			if !ok {
				return &SemanticError{Orig: originOf(ln), Msg: "unknown opcode: " + name}
			}

			regs := w.registerResolver()

			if w.onInstr != nil {
				if err := w.onInstr(ln, w.cur.Clone(), w.dir.Clone(), info, args, regs); err != nil {
					return err
				}
			}

			w.cur = w.cur.Add(scale(w.dir, info.Length(w.dims)))
		}
	}

	return nil
}

// resolvePseudoMnemonic expands the source-level JUMP pseudo-mnemonic into the concrete opcode its
// single operand's shape selects: a label operand compiles to JMPR (relative), a register operand
// to JMPIR (indirect through a register holding an absolute coordinate).
func resolvePseudoMnemonic(name string, args []string) (string, []string) {
	if !strings.EqualFold(name, "JUMP") || len(args) != 1 {
		return name, args
	}

	if strings.HasPrefix(strings.TrimSpace(args[0]), "%") {
		return "JMPIR", args
	}

	return "JMPR", args
}

// scale multiplies every component of a coordinate (used as a direction) by n, the instruction
// length, to find the next cursor position.
func scale(d env.Coord, n int) env.Coord {
	out := make(env.Coord, len(d))
	for i, v := range d {
		out[i] = v * int32(n)
	}
	return out
}

func parseBareOrNumericRegister(s string) (int, error) {
	if id, ok := parseBareRegisterName(s); ok {
		return id, nil
	}
	return strconv.Atoi(s)
}

// parseBareRegisterName recognizes "DRn", "PRn", "FPRn", "LRn" and maps to the registry's id
// space.
func parseBareRegisterName(s string) (int, bool) {
	s = strings.TrimPrefix(s, "%")

	for _, p := range []struct {
		prefix string
		base   int
	}{
		{"FPR", isa.FPRBase},
		{"LR", isa.LRBase},
		{"PR", isa.PRBase},
		{"DR", isa.DRBase},
	} {
		if strings.HasPrefix(s, p.prefix) {
			n, err := strconv.Atoi(strings.TrimPrefix(s, p.prefix))
			if err != nil {
				continue
			}
			return p.base + n, true
		}
	}

	return 0, false
}

// registerResolver returns the RegisterResolver in effect at the walker's current position: the
// active .PROC's formals and .PREG aliases layered over the global .REG table and bare register
// names.
func (w *walker) registerResolver() isa.RegisterResolver {
	var proc ProcMeta
	if w.activeProc != "" {
		proc = w.defs.Procs[w.activeProc]
	}

	return scopedResolver{global: w.globalRegs, formals: proc.Formals, pregAlias: proc.PRegAlias}
}

type scopedResolver struct {
	global    map[string]int
	formals   []string
	pregAlias map[string]int
}

func (r scopedResolver) Resolve(name string) (int, bool) {
	for i, f := range r.formals {
		if f == name {
			return isa.DRBase + i, true
		}
	}

	if idx, ok := r.pregAlias[name]; ok {
		return isa.PRBase + idx, true
	}

	if id, ok := r.global[name]; ok {
		return id, true
	}

	return parseBareRegisterName(name)
}
