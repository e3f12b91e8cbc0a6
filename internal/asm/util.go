package asm

import (
	"strconv"
	"strings"
)

func parseIntField(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseInt32Field(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	return int32(v), err
}

// parseVector parses a "a|b|c" field into N signed integers.
func parseVector(s string) ([]int32, error) {
	parts := strings.Split(s, "|")
	out := make([]int32, len(parts))

	for i, p := range parts {
		v, err := parseInt32Field(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

// isWordBoundaryMatch reports whether name occurs in s as a whole token (not a substring of a
// larger identifier), used for macro parameter substitution.
func isWordBoundaryMatch(s string, at int, name string) bool {
	if at > 0 && isIdentChar(s[at-1]) {
		return false
	}

	end := at + len(name)
	if end < len(s) && isIdentChar(s[end]) {
		return false
	}

	return true
}

func isIdentChar(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// replaceWordBoundary replaces every whole-token occurrence of name in s with repl.
func replaceWordBoundary(s, name, repl string) string {
	var b strings.Builder

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], name) && isWordBoundaryMatch(s, i, name) {
			b.WriteString(repl)
			i += len(name)
		} else {
			b.WriteByte(s[i])
			i++
		}
	}

	return b.String()
}
