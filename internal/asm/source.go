package asm

// source.go carries tagged source lines through every assembler transformation, so that a
// diagnostic anywhere in the pipeline can still report the file and line the offending text
// originally came from.

import "strings"

// Line is one line of source text, annotated with where it came from. Origin survives macro
// expansion, routine inlining and import trampolining: a line produced by expanding a macro still
// points at the macro body's file and line, not the call site.
type Line struct {
	Text string
	File string
	Num  int
}

// Origin returns the (file, line, text) triple used by diagnostics.
func (l Line) Origin() (string, int, string) {
	return l.File, l.Num, l.Text
}

// Trimmed returns the line text with surrounding whitespace removed.
func (l Line) Trimmed() string {
	return strings.TrimSpace(l.Text)
}

// IsBlank reports whether the line is empty or comment-only once trimmed.
func (l Line) IsBlank() bool {
	t := l.Trimmed()
	return t == "" || strings.HasPrefix(t, "#")
}

// StripComment removes a trailing "# ..." comment from a line's text, preserving everything
// before the first '#'. There is no escape for a literal '#'.
func StripComment(text string) string {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		return text[:i]
	}
	return text
}

// LineSource is an ordered stream of annotated lines, the common currency of every assembler
// stage from raw text through fully expanded code.
type LineSource []Line

// FromText splits raw text into a LineSource, tagging every line with the given file name and a
// 1-based line number.
func FromText(file, text string) LineSource {
	raw := strings.Split(text, "\n")
	lines := make(LineSource, 0, len(raw))

	for i, t := range raw {
		lines = append(lines, Line{Text: t, File: file, Num: i + 1})
	}

	return lines
}

// Fields splits a line's (comment-stripped) text into whitespace-separated tokens.
func (l Line) Fields() []string {
	return strings.Fields(StripComment(l.Text))
}
