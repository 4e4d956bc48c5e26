package typing

import (
	"testing"

	"autotype/buffer"
)

func TestClassify(t *testing.T) {
	tests := map[rune]Op{
		'↓':  OpDown,
		'↑':  OpUp,
		'→':  OpRight,
		'←':  OpLeft,
		'⇤':  OpLineStart,
		'⇥':  OpLineEnd,
		'⌫':  OpBackspace,
		'a':  OpInsert,
		'\n': OpInsert,
		'⇒':  OpInsert,
	}
	for r, want := range tests {
		if got := Classify(r); got != want {
			t.Errorf("Classify(%q) = %v, want %v", r, got, want)
		}
	}
}

func TestPlan(t *testing.T) {
	lineEnd := func(line int) buffer.Position { return buffer.Position{Line: line, Col: 9} }
	at := func(l, c int) buffer.Position { return buffer.Position{Line: l, Col: c} }

	tests := []struct {
		name     string
		r        rune
		cur      buffer.Position
		cursor   buffer.Position
		caret    buffer.Position
		hasEdit  bool
		editText string
	}{
		{"down", '↓', at(2, 3), at(3, 3), at(3, 3), false, ""},
		{"up", '↑', at(2, 3), at(1, 3), at(1, 3), false, ""},
		{"up at top", '↑', at(0, 3), at(0, 3), at(0, 3), false, ""},
		{"right", '→', at(2, 3), at(2, 4), at(2, 4), false, ""},
		{"left", '←', at(2, 3), at(2, 2), at(2, 2), false, ""},
		{"left at column zero", '←', at(2, 0), at(2, 0), at(2, 0), false, ""},
		{"line start", '⇤', at(2, 3), at(2, 0), at(2, 0), false, ""},
		{"line end", '⇥', at(2, 3), at(2, 9), at(2, 9), false, ""},
		{"backspace", '⌫', at(2, 3), at(2, 2), at(2, 2), true, ""},
		{"backspace at column zero", '⌫', at(2, 0), at(2, 0), at(2, 0), false, ""},
		{"literal", 'x', at(2, 3), at(2, 4), at(2, 3), true, "x"},
		{"newline", '\n', at(2, 3), at(3, 0), at(2, 3), true, "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Plan(tt.r, tt.cur, lineEnd)
			if s.Cursor != tt.cursor {
				t.Errorf("Expected cursor %+v, got %+v", tt.cursor, s.Cursor)
			}
			if s.Caret != tt.caret {
				t.Errorf("Expected caret %+v, got %+v", tt.caret, s.Caret)
			}
			if (s.Edit != nil) != tt.hasEdit {
				t.Fatalf("Expected edit=%v, got %+v", tt.hasEdit, s.Edit)
			}
			if s.Edit != nil && s.Edit.Text != tt.editText {
				t.Errorf("Expected edit text %q, got %q", tt.editText, s.Edit.Text)
			}
		})
	}
}

func TestPlanBackspaceRange(t *testing.T) {
	s := Plan('⌫', buffer.Position{Line: 1, Col: 5}, nil)
	want := buffer.Range{Start: buffer.Position{Line: 1, Col: 4}, End: buffer.Position{Line: 1, Col: 5}}
	if s.Edit == nil || s.Edit.Range != want {
		t.Errorf("Expected delete of %+v, got %+v", want, s.Edit)
	}
}
