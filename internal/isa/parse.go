package isa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitae-sim/vitae/internal/molecule"
)

// ParseRegisterArg resolves a "%NAME" operand to a register id using the caller-supplied
// resolver. It is shared by every encoder that takes a register operand.
func ParseRegisterArg(arg string, regs RegisterResolver) (int, error) {
	name := strings.TrimPrefix(strings.TrimSpace(arg), "%")

	id, ok := regs.Resolve(name)
	if !ok {
		return 0, fmt.Errorf("unknown register: %%%s", name)
	}

	return id, nil
}

// ParseLiteralArg parses a "TYPE:VALUE" literal operand into a packed molecule word.
func ParseLiteralArg(arg string) (molecule.Word, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("literal operand must be TYPE:VALUE, got %q", arg)
	}

	var t molecule.Type

	switch strings.ToUpper(parts[0]) {
	case "CODE":
		t = molecule.Code
	case "DATA":
		t = molecule.Data
	case "ENERGY":
		t = molecule.Energy
	case "STRUCTURE":
		t = molecule.Structure
	default:
		return 0, fmt.Errorf("unknown molecule type: %s", parts[0])
	}

	v, err := strconv.ParseInt(parts[1], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("literal value: %w", err)
	}

	return molecule.Pack(t, int32(v)), nil
}

// IsLabelArg reports whether an operand names a label rather than a register or literal: it does
// not start with '%' (register) or contain ':' (a type:value literal) or '|' (a vector).
func IsLabelArg(arg string) bool {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return false
	}
	return !strings.HasPrefix(arg, "%") && !strings.Contains(arg, ":") && !strings.Contains(arg, "|")
}
