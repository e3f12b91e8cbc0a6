package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
	"github.com/vitae-sim/vitae/internal/molecule"
)

func TestAssembleSimpleProgramAndJump(t *testing.T) {
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

	target, ok := art.Labels["SKIP_ONE"]
	require.True(t, ok)
	assert.Equal(t, env.Coord{0, 5}, target)

	nop, _ := reg.ByName("NOP")
	jmpr, _ := reg.ByName("JMPR")
	halt, _ := reg.ByName("HALT")

	assertCode := func(c env.Coord, want *isa.Info) {
		w := e.Get(c)
		ty, v := molecule.Unpack(w)
		require.Equal(t, molecule.Code, ty)
		assert.Equal(t, int32(want.ID), v)
	}

	assertCode(env.Coord{0, 0}, nop)
	assertCode(env.Coord{0, 1}, jmpr)
	assertCode(env.Coord{0, 5}, halt)

	// JMPR's delta operand (dims=2 cells at {0,2},{0,3}) should equal target - opcodeCoord = {0,4}.
	d0 := molecule.Scalar(e.Get(env.Coord{0, 2}))
	d1 := molecule.Scalar(e.Get(env.Coord{0, 3}))
	assert.Equal(t, int32(0), d0)
	assert.Equal(t, int32(4), d1)
}

func TestAssembleUnknownLabelFails(t *testing.T) {
	src := "JUMP NOWHERE\n"

	e := env.New([]int32{8, 8}, true)
	reg := isa.Default()

	_, err := Assemble("test.vasm", src, e, 1, reg, 100)
	assert.Error(t, err)
}

func TestAssembleMacroExpansion(t *testing.T) {
	src := `
.MACRO DOUBLE_NOP
NOP
NOP
.ENDM
$DOUBLE_NOP
HALT
`
	e := env.New([]int32{8, 8}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)
	assert.NotNil(t, art)

	nop, _ := reg.ByName("NOP")
	halt, _ := reg.ByName("HALT")

	w0 := e.Get(env.Coord{0, 0})
	w1 := e.Get(env.Coord{0, 1})
	w2 := e.Get(env.Coord{0, 2})

	_, v0 := molecule.Unpack(w0)
	_, v1 := molecule.Unpack(w1)
	_, v2 := molecule.Unpack(w2)

	assert.Equal(t, int32(nop.ID), v0)
	assert.Equal(t, int32(nop.ID), v1)
	assert.Equal(t, int32(halt.ID), v2)
}

// TestAssembleIncludeDedup covers scenario 2: two .INCLUDE sites with the same (name, args)
// signature. The first expands the routine body in full under its instance label; the second
// contributes only a one-instruction trampoline, but both instance labels reach the same code.
func TestAssembleIncludeDedup(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1

.ROUTINE FOO %DR0
NOP
.ENDR

.INCLUDE FOO AS A WITH %DR0
.INCLUDE FOO AS B WITH %DR0
HALT
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	aCoord, ok := art.Labels["A"]
	require.True(t, ok)
	bCoord, ok := art.Labels["B"]
	require.True(t, ok)

	// A's body is the full routine (one NOP); B is a single JMPI trampoline back to it.
	assert.NotEqual(t, aCoord, bCoord)

	jmpi, _ := reg.ByName("JMPI")

	w := e.Get(bCoord)
	ty, v := molecule.Unpack(w)
	require.Equal(t, molecule.Code, ty)
	assert.Equal(t, int32(jmpi.ID), v)

	// B's JMPI target should be A's coordinate.
	dims := e.Dimensions()
	cur := bCoord.Add(env.Coord{0, 1})
	target := make(env.Coord, dims)
	for i := 0; i < dims; i++ {
		target[i] = int32(e.Get(cur))
		cur = cur.Add(env.Coord{0, 1})
	}
	assert.Equal(t, aCoord, target)
}

// TestAssembleCallWithRegisterABI covers scenario 4: a register-ABI .PROC called with CALL .WITH
// expands into copy-in, the native CALL, and copy-out, with no elision when the actual differs
// from the bound DR slot.
func TestAssembleCallWithRegisterABI(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
CALL SQ .WITH %DR3
HALT

.PROC SQ WITH X
RET
.ENDP
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	setr, _ := reg.ByName("SETR")
	call, _ := reg.ByName("CALL")

	sq, ok := art.Labels["SQ"]
	require.True(t, ok)

	// copy-in: SETR %DR0 %DR3
	copyIn := env.Coord{0, 0}
	w := e.Get(copyIn)
	ty, v := molecule.Unpack(w)
	require.Equal(t, molecule.Code, ty)
	assert.Equal(t, int32(setr.ID), v)
	assert.Equal(t, int32(0), int32(e.Get(env.Coord{0, 1})))
	assert.Equal(t, int32(3), int32(e.Get(env.Coord{0, 2})))

	// native CALL, resolved to SQ
	callSite := env.Coord{0, 3}
	w = e.Get(callSite)
	ty, v = molecule.Unpack(w)
	require.Equal(t, molecule.Code, ty)
	assert.Equal(t, int32(call.ID), v)

	dims := e.Dimensions()
	cur := callSite.Add(env.Coord{0, 1})
	target := make(env.Coord, dims)
	for i := 0; i < dims; i++ {
		target[i] = int32(e.Get(cur))
		cur = cur.Add(env.Coord{0, 1})
	}
	assert.Equal(t, sq, target)

	// copy-out: SETR %DR3 %DR0
	copyOut := env.Coord{0, 6}
	w = e.Get(copyOut)
	ty, v = molecule.Unpack(w)
	require.Equal(t, molecule.Code, ty)
	assert.Equal(t, int32(setr.ID), v)
	assert.Equal(t, int32(3), int32(e.Get(env.Coord{0, 7})))
	assert.Equal(t, int32(0), int32(e.Get(env.Coord{0, 8})))
}

// TestAssembleCallWithElidesIdentityMoves covers the universal property: when an actual already
// names the formal's bound DR slot, the corresponding copy-in/copy-out move is elided entirely.
func TestAssembleCallWithElidesIdentityMoves(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
CALL SQ .WITH %DR0
HALT

.PROC SQ WITH X
RET
.ENDP
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	call, _ := reg.ByName("CALL")
	halt, _ := reg.ByName("HALT")

	// With the identity move elided, CALL is the very first instruction.
	w := e.Get(env.Coord{0, 0})
	ty, v := molecule.Unpack(w)
	require.Equal(t, molecule.Code, ty)
	assert.Equal(t, int32(call.ID), v)

	// HALT follows immediately after CALL's 3-cell encoding, with no copy-out move in between.
	w = e.Get(env.Coord{0, 3})
	ty, v = molecule.Unpack(w)
	require.Equal(t, molecule.Code, ty)
	assert.Equal(t, int32(halt.ID), v)

	require.NotNil(t, art)
}

// TestAssembleCallWithArityMismatchFails covers the §7 error table: a .WITH actual count that
// doesn't match the procedure's formal count is an assembly error.
func TestAssembleCallWithArityMismatchFails(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
CALL SQ .WITH %DR0 %DR1
HALT

.PROC SQ WITH X
RET
.ENDP
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	_, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.Error(t, err)

	var arityErr *ArityError
	assert.ErrorAs(t, err, &arityErr)
}

// TestAssembleRegisterABICallWithoutWithFails covers the §7 error table: a register-ABI procedure
// called without .WITH is an ABI error, not a silent stack-ABI call.
func TestAssembleRegisterABICallWithoutWithFails(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
CALL SQ
HALT

.PROC SQ WITH X
RET
.ENDP
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	_, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.Error(t, err)

	var abiErr *ABIError
	assert.ErrorAs(t, err, &abiErr)
}
