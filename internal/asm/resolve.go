package asm

// resolve.go patches the placeholders pass 2 left behind, once every label's coordinate is known
// from pass 1's layout. A jump placeholder is patched with the componentwise coordinate
// difference (target - opcode); a vector placeholder is patched with the target's absolute
// coordinate directly.

import (
	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/molecule"
)

func resolvePlaceholders(e *env.Environment, owner env.OwnerID, lay *layout, placeholders []placeholder) error {
	for _, ph := range placeholders {
		target, ok := lay.labels[ph.label]
		if !ok {
			return &ResolverError{Orig: ph.origin, Msg: "undefined label: " + ph.label}
		}

		var value env.Coord

		switch ph.kind {
		case placeholderJump:
			value = target.Sub(ph.opcodeAt)
		case placeholderVector:
			value = target
		}

		cursor := ph.reserveAt.Clone()

		for i := 0; i < ph.dims; i++ {
			e.SetWithOwner(cursor, molecule.Word(uint32(value[i])), owner)
			cursor = cursor.Add(ph.dir)
		}
	}

	return nil
}
