package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
)

func TestDisassembleResolvesRegistersAndLabels(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
NOP
JUMP SKIP_ONE
NOP
SKIP_ONE:
HALT
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	dir := env.Coord{0, 1}

	assert.Equal(t, "NOP", art.Disassemble(e, reg, env.Coord{0, 0}, dir))
	assert.Equal(t, "JMPR SKIP_ONE", art.Disassemble(e, reg, env.Coord{0, 1}, dir))
	assert.Equal(t, "HALT", art.Disassemble(e, reg, env.Coord{0, 5}, dir))
}

func TestDisassembleResolvesRegisterOperands(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
SETR %PR2 %DR5
HALT
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	dir := env.Coord{0, 1}
	assert.Equal(t, "SETR %PR2 %DR5", art.Disassemble(e, reg, env.Coord{0, 0}, dir))
}

func TestDisassembleFallsBackToLiteralForNonCode(t *testing.T) {
	e := env.New([]int32{4, 4}, true)
	e.Set(env.Coord{1, 1}, molecule.Pack(molecule.Energy, 12))

	reg := isa.Default()
	dir := env.Coord{0, 1}

	assert.Equal(t, "ENERGY:12", Disassemble(e, reg, env.Coord{1, 1}, dir, nil))
}

func TestDisassembleWithNoArtifactRendersBareCoordinate(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
JUMP FAR
FAR:
HALT
`
	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	_, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	dir := env.Coord{0, 1}

	// Without the artifact's label table, the jump target renders as a bare coordinate instead of
	// a label name.
	got := Disassemble(e, reg, env.Coord{0, 0}, dir, nil)
	assert.Equal(t, "JMPR 0|3", got)
}
