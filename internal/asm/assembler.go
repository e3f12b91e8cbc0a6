package asm

// assembler.go is the pipeline's top-level entry point: extract definitions, expand macros and
// includes, lay out labels, encode instructions, and patch every jump and vector placeholder, in
// that order.

import (
	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
)

// Assemble compiles source text into an Artifact, writing the resulting code directly into e and
// claiming every written cell for owner. maxExpansionDepth bounds macro/routine recursion and
// include nesting.
func Assemble(file, source string, e *env.Environment, owner env.OwnerID, registry *isa.Registry, maxExpansionDepth int) (*Artifact, error) {
	lines := FromText(file, source)

	defs, err := ExtractDefinitions(lines)
	if err != nil {
		return nil, err
	}

	expander := NewExpander(defs, maxExpansionDepth)

	expanded, err := expander.Expand(defs.Main)
	if err != nil {
		return nil, err
	}

	finalDefs := &Definitions{
		Main:       expanded,
		Macros:     defs.Macros,
		Routines:   defs.Routines,
		Procs:      defs.Procs,
		ProcBodies: defs.ProcBodies,
		ProcOrder:  defs.ProcOrder,
		Defines:    defs.Defines,
	}

	dims := e.Dimensions()

	lay, err := runPass1(dims, registry, finalDefs, expander.ImportAliases)
	if err != nil {
		return nil, err
	}

	p2, err := runPass2(e, owner, registry, finalDefs, expander.ImportAliases)
	if err != nil {
		return nil, err
	}

	if err := resolvePlaceholders(e, owner, lay, p2.placeholders); err != nil {
		return nil, err
	}

	origin := make(env.Coord, dims)

	return &Artifact{
		Origin:    origin,
		Labels:    lay.labels,
		Procs:     finalDefs.Procs,
		SourceMap: p2.sourceMap,
		source:    source,
	}, nil
}
