package asm

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitae-sim/vitae/internal/env"
	"github.com/vitae-sim/vitae/internal/isa"
)

// TestArtifactGoldenDump guards the full shape of an assembled Artifact with a struct dump rather
// than field-by-field assertions: a regression in any of Labels, Procs or the formal-binding table
// should show up here even if no single field-level test happens to cover it.
func TestArtifactGoldenDump(t *testing.T) {
	src := `
.ORG 0|0
.DIR 0|1
CALL SQ .WITH %DR3
HALT

.PROC SQ EXPORTED WITH X
RET
.ENDP
`

	e := env.New([]int32{16, 16}, true)
	reg := isa.Default()

	art, err := Assemble("test.vasm", src, e, 1, reg, 100)
	require.NoError(t, err)

	dump := spew.Sdump(art)

	assert.Contains(t, dump, "Labels")
	assert.Contains(t, dump, "SQ")
	assert.Contains(t, dump, "ProcMeta")
	assert.Contains(t, dump, "Formals")
	assert.Contains(t, dump, `"X"`)
}
