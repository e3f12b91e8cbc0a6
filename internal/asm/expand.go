package asm

// expand.go implements the recursive macro/routine/import/include expander: the third stage of
// the pipeline, turning the definition extractor's residual main stream into a fully linear
// instruction stream with every macro call, routine include and import alias resolved.

import (
	"fmt"
	"strings"
)

// Expander drives recursive expansion of a line stream against a fixed set of macro and routine
// definitions. One Expander is used for one assembly; it accumulates a hygienic-renaming nonce
// counter and an include dedup table across the whole expansion.
type Expander struct {
	defs      *Definitions
	maxDepth  int
	nonce     int
	callStack []string // currently-expanding macro/routine names, for cycle detection

	// includeSig dedups .INCLUDE (not .INCLUDE_STRICT) by "name(args)" signature to the label of
	// the first expanded instance.
	includeSig map[string]string

	// ImportAliases records alias -> target proc name, populated as .IMPORT directives are seen.
	ImportAliases map[string]string
}

// NewExpander creates an expander bound to a set of definitions.
func NewExpander(defs *Definitions, maxDepth int) *Expander {
	return &Expander{
		defs:          defs,
		maxDepth:      maxDepth,
		includeSig:    map[string]string{},
		ImportAliases: map[string]string{},
	}
}

// Expand fully expands a line stream: macro calls, .INCLUDE/.INCLUDE_STRICT and .IMPORT.
func (ex *Expander) Expand(lines LineSource) (LineSource, error) {
	return ex.expandLines(lines)
}

func (ex *Expander) expandLines(lines LineSource) (LineSource, error) {
	var out LineSource

	for _, ln := range lines {
		if ln.IsBlank() {
			out = append(out, ln)
			continue
		}

		fields := ln.Fields()
		if len(fields) == 0 {
			out = append(out, ln)
			continue
		}

		switch {
		case strings.HasPrefix(fields[0], "$"):
			expanded, err := ex.expandMacroCall(ln, fields)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case strings.EqualFold(fields[0], ".INCLUDE"):
			expanded, err := ex.expandInclude(ln, fields, false)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case strings.EqualFold(fields[0], ".INCLUDE_STRICT"):
			expanded, err := ex.expandInclude(ln, fields, true)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case strings.EqualFold(fields[0], ".IMPORT"):
			expanded, err := ex.expandImport(ln, fields)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case strings.EqualFold(fields[0], "CALL"):
			expanded, err := ex.expandCall(ln, fields)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		default:
			out = append(out, ln)
		}
	}

	return out, nil
}

func (ex *Expander) pushCall(name string, ln Line) error {
	for _, c := range ex.callStack {
		if c == name {
			return &RecursionError{Orig: originOf(ln), Chain: append(append([]string{}, ex.callStack...), name)}
		}
	}

	if len(ex.callStack) >= ex.maxDepth {
		return &RecursionError{Orig: originOf(ln), Chain: append(append([]string{}, ex.callStack...), name)}
	}

	ex.callStack = append(ex.callStack, name)

	return nil
}

func (ex *Expander) popCall() {
	ex.callStack = ex.callStack[:len(ex.callStack)-1]
}

// expandMacroCall substitutes a "$NAME args..." call with its body, applying word-boundary
// parameter replacement and hygienic @@ renaming.
func (ex *Expander) expandMacroCall(ln Line, fields []string) (LineSource, error) {
	name := fields[0][1:]

	def, ok := ex.defs.Macros[name]
	if !ok {
		return nil, &SemanticError{Orig: originOf(ln), Msg: "unknown macro: $" + name}
	}

	var args []string

	if len(def.Params) == 1 {
		// A single-parameter macro takes the entire remainder of the line as one argument.
		rest := strings.TrimSpace(strings.TrimPrefix(StripComment(ln.Text), fields[0]))
		args = []string{rest}
	} else {
		args = fields[1:]
	}

	if len(args) != len(def.Params) {
		return nil, &ArityError{Orig: originOf(ln), Name: "$" + name, Want: len(def.Params), Got: len(args)}
	}

	if err := ex.pushCall("$"+name, ln); err != nil {
		return nil, err
	}
	defer ex.popCall()

	ex.nonce++
	prefix := fmt.Sprintf("%s_%d_", name, ex.nonce)

	body := make(LineSource, len(def.Body))
	for i, bl := range def.Body {
		text := bl.Text

		for pi, p := range def.Params {
			text = replaceWordBoundary(text, p, args[pi])
		}

		text = strings.ReplaceAll(text, "@@", prefix)

		body[i] = Line{Text: text, File: bl.File, Num: bl.Num}
	}

	return ex.expandLines(body)
}

// expandInclude inlines a routine body at an .INCLUDE/.INCLUDE_STRICT site, renaming local labels
// to "instance_<symbol>". Plain .INCLUDE deduplicates by (name, args) signature: later
// occurrences of the same signature contribute only a one-instruction trampoline.
func (ex *Expander) expandInclude(ln Line, fields []string, strict bool) (LineSource, error) {
	if len(fields) < 4 || !strings.EqualFold(fields[2], "AS") {
		return nil, &LexError{Orig: originOf(ln), Msg: "expected: .INCLUDE NAME AS INSTANCE [WITH args...]"}
	}

	name, instance := fields[1], fields[3]

	var args []string
	if len(fields) > 4 {
		if !strings.EqualFold(fields[4], "WITH") {
			return nil, &LexError{Orig: originOf(ln), Msg: "expected WITH after instance name"}
		}
		args = fields[5:]
	}

	def, ok := ex.defs.Routines[name]
	if !ok {
		return nil, &SemanticError{Orig: originOf(ln), Msg: "unknown routine: " + name}
	}

	sig := name + "(" + strings.Join(args, ",") + ")"

	if !strict {
		if primary, seen := ex.includeSig[sig]; seen {
			return LineSource{
				{Text: instance + ":", File: ln.File, Num: ln.Num},
				{Text: "JMPI " + primary, File: ln.File, Num: ln.Num},
			}, nil
		}
	}

	if len(args) != len(def.Params) {
		return nil, &ArityError{Orig: originOf(ln), Name: name, Want: len(def.Params), Got: len(args)}
	}

	if err := ex.pushCall(name, ln); err != nil {
		return nil, err
	}
	defer ex.popCall()

	locals := findLocalLabels(def.Body)

	body := make(LineSource, len(def.Body))
	for i, bl := range def.Body {
		text := bl.Text

		for pi, p := range def.Params {
			text = replaceWordBoundary(text, p, args[pi])
		}

		for _, l := range locals {
			text = replaceWordBoundary(text, l, instance+"_"+l)
		}

		body[i] = Line{Text: text, File: bl.File, Num: bl.Num}
	}

	// The instance label itself marks the primary expansion's entry point.
	body = append(LineSource{{Text: instance + ":", File: ln.File, Num: ln.Num}}, body...)

	if !strict {
		ex.includeSig[sig] = instance
	}

	return ex.expandLines(body)
}

// expandImport records an alias and emits a trampoline that jumps indirectly to the aliased
// procedure.
func (ex *Expander) expandImport(ln Line, fields []string) (LineSource, error) {
	if len(fields) != 4 || !strings.EqualFold(fields[2], "AS") {
		return nil, &LexError{Orig: originOf(ln), Msg: "expected: .IMPORT PROC AS ALIAS"}
	}

	proc, alias := fields[1], fields[3]
	ex.ImportAliases[alias] = proc

	return LineSource{
		{Text: alias + ":", File: ln.File, Num: ln.Num},
		{Text: "JMPI " + proc, File: ln.File, Num: ln.Num},
	}, nil
}

// expandCall rewrites "CALL target .WITH a1 a2 ..." into its three-part register-ABI expansion:
// copy-in SETR moves from each actual into the formal's bound DR slot, the native CALL, and
// copy-out SETR moves back, eliding any move whose actual already names the slot it would copy to
// or from. A register-ABI procedure called without .WITH, .WITH used on one with no formals, a
// wrong actual count, or a non-register actual are all errors. A bare "CALL target" with no .WITH
// passes through unchanged when target isn't register-ABI.
func (ex *Expander) expandCall(ln Line, fields []string) (LineSource, error) {
	if len(fields) < 2 {
		return nil, &LexError{Orig: originOf(ln), Msg: "CALL requires a target"}
	}

	target := fields[1]

	withIdx := -1
	for i := 2; i < len(fields); i++ {
		if strings.EqualFold(fields[i], ".WITH") {
			withIdx = i
			break
		}
	}

	resolved := target
	if alias, ok := ex.ImportAliases[target]; ok {
		resolved = alias
	}
	meta, hasMeta := ex.defs.Procs[resolved]

	if withIdx < 0 {
		if hasMeta && meta.IsRegisterABI() {
			return nil, &ABIError{Orig: originOf(ln), Msg: "register-ABI procedure called without .WITH: " + target}
		}
		return LineSource{ln}, nil
	}

	if !hasMeta || !meta.IsRegisterABI() {
		return nil, &ABIError{Orig: originOf(ln), Msg: ".WITH used on a procedure with no register formals: " + target}
	}

	actuals := fields[withIdx+1:]

	if len(actuals) != len(meta.Formals) {
		return nil, &ArityError{Orig: originOf(ln), Name: "CALL " + target + " .WITH", Want: len(meta.Formals), Got: len(actuals)}
	}

	for _, a := range actuals {
		if !strings.HasPrefix(strings.TrimSpace(a), "%") {
			return nil, &ABIError{Orig: originOf(ln), Msg: ".WITH actual is not a register: " + a}
		}
	}

	var out LineSource

	for i, a := range actuals {
		dr := fmt.Sprintf("%%DR%d", i)
		if !strings.EqualFold(strings.TrimSpace(a), dr) {
			out = append(out, Line{Text: fmt.Sprintf("SETR %s %s", dr, a), File: ln.File, Num: ln.Num})
		}
	}

	out = append(out, Line{Text: "CALL " + target, File: ln.File, Num: ln.Num})

	for i, a := range actuals {
		dr := fmt.Sprintf("%%DR%d", i)
		if !strings.EqualFold(strings.TrimSpace(a), dr) {
			out = append(out, Line{Text: fmt.Sprintf("SETR %s %s", a, dr), File: ln.File, Num: ln.Num})
		}
	}

	return out, nil
}

// findLocalLabels discovers every "LABEL:" defined in a body, up front, so references can be
// renamed consistently within one expansion instance.
func findLocalLabels(body LineSource) []string {
	var labels []string

	for _, bl := range body {
		fields := bl.Fields()
		if len(fields) == 0 {
			continue
		}

		tok := fields[0]
		if strings.HasSuffix(tok, ":") {
			labels = append(labels, strings.TrimSuffix(tok, ":"))
		}
	}

	return labels
}
