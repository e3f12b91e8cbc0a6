package asm

// defs.go implements the definition extractor: it walks a line stream once, pulls out
// .MACRO/.ENDM, .ROUTINE/.ENDR and .PROC/.ENDP blocks plus .DEFINE lines, and returns the
// residual main code with everything else tabulated for the expander and pass manager.

import (
	"strings"
)

// MacroDef is a parsed $NAME macro: its formal parameters and its body, substituted at every
// call site during expansion.
type MacroDef struct {
	Name   string
	Params []string
	Body   LineSource
	File   string
}

// RoutineDef is a parsed .ROUTINE, inlined by name at every .INCLUDE/.INCLUDE_STRICT site.
type RoutineDef struct {
	Name   string
	Params []string
	Body   LineSource
	File   string
}

// ProcMeta describes a .PROC block's calling convention: whether it is exported, its formal
// parameters (register-ABI calls bind actuals to DR[0..k-1]), and any .PREG register aliases
// declared inside the body.
type ProcMeta struct {
	Name      string
	Exported  bool
	Formals   []string
	PRegAlias map[string]int // alias -> PR index
	Origin    Origin
}

// IsRegisterABI reports whether the procedure takes bound formals (and therefore requires
// CALL ... .WITH ... at call sites) as opposed to a bare stack-ABI call.
func (p ProcMeta) IsRegisterABI() bool {
	return len(p.Formals) > 0
}

// Definitions is the result of extracting blocks from a raw line stream.
type Definitions struct {
	Main     LineSource
	Macros   map[string]MacroDef
	Routines map[string]RoutineDef
	Procs    map[string]ProcMeta
	// ProcBodies holds the deferred body lines for each procedure, keyed by name. They are
	// appended to the end of Main, in declaration order, so caller code starts at the program
	// origin.
	ProcBodies map[string]LineSource
	ProcOrder  []string
	Defines    map[string]string
}

type blockKind int

const (
	blockNone blockKind = iota
	blockMacro
	blockRoutine
	blockProc
)

// ExtractDefinitions partitions a line stream into main code and the macro/routine/proc/define
// tables. Block directives are non-nestable; mismatched or missing end tags are errors.
func ExtractDefinitions(lines LineSource) (*Definitions, error) {
	defs := &Definitions{
		Main:       LineSource{},
		Macros:     map[string]MacroDef{},
		Routines:   map[string]RoutineDef{},
		Procs:      map[string]ProcMeta{},
		ProcBodies: map[string]LineSource{},
		Defines:    map[string]string{},
	}

	var (
		kind       blockKind
		name       string
		params     []string
		body       LineSource
		file       string
		procExp    bool
		procAlias  map[string]int
		blockStart Line
	)

	for _, ln := range lines {
		fields := ln.Fields()

		if kind != blockNone {
			if len(fields) > 0 && isEndTag(fields[0], kind) {
				switch kind {
				case blockMacro:
					defs.Macros[name] = MacroDef{Name: name, Params: params, Body: body, File: file}
				case blockRoutine:
					defs.Routines[name] = RoutineDef{Name: name, Params: params, Body: body, File: file}
				case blockProc:
					defs.Procs[name] = ProcMeta{
						Name:      name,
						Exported:  procExp,
						Formals:   params,
						PRegAlias: procAlias,
						Origin:    Origin{File: blockStart.File, Line: blockStart.Num, Text: blockStart.Trimmed()},
					}
					defs.ProcBodies[name] = body
					defs.ProcOrder = append(defs.ProcOrder, name)
				}

				kind = blockNone
				continue
			}

			if len(fields) > 0 && isBlockStart(fields[0]) {
				return nil, &StructuralError{
					Orig: originOf(ln),
					Msg:  "nested block directive: " + fields[0],
				}
			}

			if kind == blockProc && len(fields) > 0 && strings.EqualFold(fields[0], ".PREG") {
				if len(fields) != 3 {
					return nil, &LexError{Orig: originOf(ln), Msg: ".PREG requires a name and index"}
				}

				idx, err := parseIntField(fields[2])
				if err != nil {
					return nil, &LexError{Orig: originOf(ln), Msg: ".PREG index: " + err.Error()}
				}

				procAlias[strings.TrimPrefix(fields[1], "%")] = idx
				continue
			}

			body = append(body, ln)
			continue
		}

		if ln.IsBlank() {
			continue
		}

		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case ".MACRO":
			if len(fields) < 2 {
				return nil, &LexError{Orig: originOf(ln), Msg: ".MACRO requires a name"}
			}

			kind, name, file, blockStart = blockMacro, fields[1], ln.File, ln
			params = append([]string(nil), fields[2:]...)
			body = LineSource{}

			continue

		case ".ROUTINE":
			if len(fields) < 2 {
				return nil, &LexError{Orig: originOf(ln), Msg: ".ROUTINE requires a name"}
			}

			kind, name, file, blockStart = blockRoutine, fields[1], ln.File, ln
			params = append([]string(nil), fields[2:]...)
			body = LineSource{}

			continue

		case ".PROC":
			if len(fields) < 2 {
				return nil, &LexError{Orig: originOf(ln), Msg: ".PROC requires a name"}
			}

			kind, name, blockStart = blockProc, fields[1], ln
			procExp = false
			procAlias = map[string]int{}
			params = nil
			body = LineSource{}

			rest := fields[2:]
			for i := 0; i < len(rest); i++ {
				switch strings.ToUpper(rest[i]) {
				case "EXPORTED":
					procExp = true
				case "WITH":
					params = append(params, rest[i+1:]...)
					i = len(rest)
				}
			}

			continue

		case ".PREG":
			return nil, &StructuralError{Orig: originOf(ln), Msg: ".PREG outside .PROC"}

		case ".DEFINE":
			if len(fields) != 3 {
				return nil, &LexError{Orig: originOf(ln), Msg: ".DEFINE requires a name and a token"}
			}

			defs.Defines[fields[1]] = fields[2]

			continue

		case ".ENDM", ".ENDR", ".ENDP":
			return nil, &StructuralError{Orig: originOf(ln), Msg: "unexpected end tag: " + fields[0]}
		}

		defs.Main = append(defs.Main, ln)
	}

	if kind != blockNone {
		return nil, &LexError{
			Orig: originOf(blockStart),
			Msg:  "missing end tag for block started here",
		}
	}

	// Append deferred .PROC bodies, in declaration order, so caller code begins at the program
	// origin.
	for _, name := range defs.ProcOrder {
		defs.Main = append(defs.Main, Line{Text: name + ":", File: defs.Procs[name].Origin.File, Num: defs.Procs[name].Origin.Line})
		defs.Main = append(defs.Main, defs.ProcBodies[name]...)
	}

	return defs, nil
}

func isBlockStart(tok string) bool {
	switch strings.ToUpper(tok) {
	case ".MACRO", ".ROUTINE", ".PROC":
		return true
	default:
		return false
	}
}

func isEndTag(tok string, kind blockKind) bool {
	switch kind {
	case blockMacro:
		return strings.EqualFold(tok, ".ENDM")
	case blockRoutine:
		return strings.EqualFold(tok, ".ENDR")
	case blockProc:
		return strings.EqualFold(tok, ".ENDP")
	default:
		return false
	}
}

func originOf(l Line) Origin {
	return Origin{File: l.File, Line: l.Num, Text: l.Trimmed()}
}
