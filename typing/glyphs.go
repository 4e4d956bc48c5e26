package typing

import (
	"autotype/buffer"
)

// Op is what a single rune of page content does to the buffer
type Op int

const (
	OpInsert Op = iota
	OpDown
	OpUp
	OpRight
	OpLeft
	OpLineStart
	OpLineEnd
	OpBackspace
)

// Glyphs maps the control glyphs recognised in page content to their ops.
// Any rune not listed is typed literally.
var Glyphs = map[rune]Op{
	'↓': OpDown,
	'↑': OpUp,
	'→': OpRight,
	'←': OpLeft,
	'⇤': OpLineStart,
	'⇥': OpLineEnd,
	'⌫': OpBackspace,
}

var opNames = map[Op]string{
	OpInsert:    "insert",
	OpDown:      "down",
	OpUp:        "up",
	OpRight:     "right",
	OpLeft:      "left",
	OpLineStart: "line-start",
	OpLineEnd:   "line-end",
	OpBackspace: "backspace",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

// Classify returns the op for r
func Classify(r rune) Op {
	if op, ok := Glyphs[r]; ok {
		return op
	}
	return OpInsert
}

// Step is the planned effect of one rune at a cursor position
type Step struct {
	Op     Op
	Edit   *buffer.Edit    // nil for pure cursor movement and no-op backspace
	Caret  buffer.Position // caret set before Edit is applied
	Cursor buffer.Position // tracked cursor after the step
}

// Plan computes the step for r at cur. Coordinates never go negative:
// moving up from the first line, left from column zero, or backspacing at
// column zero leaves the cursor where it is. Moving right or down is not
// bounded here; the buffer clamps such positions when they are used.
func Plan(r rune, cur buffer.Position, lineEnd func(line int) buffer.Position) Step {
	op := Classify(r)
	s := Step{Op: op, Caret: cur, Cursor: cur}

	switch op {
	case OpDown:
		s.Cursor.Line++
	case OpUp:
		if s.Cursor.Line > 0 {
			s.Cursor.Line--
		}
	case OpRight:
		s.Cursor.Col++
	case OpLeft:
		if s.Cursor.Col > 0 {
			s.Cursor.Col--
		}
	case OpLineStart:
		s.Cursor.Col = 0
	case OpLineEnd:
		s.Cursor = lineEnd(cur.Line)
	case OpBackspace:
		if cur.Col > 0 {
			prev := buffer.Position{Line: cur.Line, Col: cur.Col - 1}
			e := buffer.Delete(buffer.Range{Start: prev, End: cur})
			s.Edit = &e
			s.Cursor = prev
		}
	case OpInsert:
		e := buffer.Insert(cur, string(r))
		s.Edit = &e
		if r == '\n' {
			s.Cursor = buffer.Position{Line: cur.Line + 1}
		} else {
			s.Cursor.Col++
		}
		// caret stays at the insert point; the edit carries it forward
		return s
	}

	s.Caret = s.Cursor
	return s
}
