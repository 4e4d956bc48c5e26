package buffer

import (
	"strings"
)

// Position is a zero-based line/column location in a document.
// Columns count runes, not bytes.
type Position struct {
	Line int
	Col  int
}

// Before reports whether p sorts strictly before o
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Col < o.Col
}

// Range is a span between two positions, Start never after End.
type Range struct {
	Start Position
	End   Position
}

// NewRange orders a and b into a range
func NewRange(a, b Position) Range {
	if b.Before(a) {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// Empty reports whether the range covers no text
func (r Range) Empty() bool {
	return r.Start == r.End
}

// Selection is an anchored range; Active is where the caret is drawn.
type Selection struct {
	Anchor Position
	Active Position
}

// Caret returns a zero-width selection at p
func Caret(p Position) Selection {
	return Selection{Anchor: p, Active: p}
}

// Range returns the ordered span of the selection
func (s Selection) Range() Range {
	return NewRange(s.Anchor, s.Active)
}

// Empty reports whether the selection is a bare caret
func (s Selection) Empty() bool {
	return s.Anchor == s.Active
}

// Edit replaces Range with Text. An empty range is an insert, empty text a delete.
type Edit struct {
	Range Range
	Text  string
}

// Insert builds an edit inserting text at p
func Insert(p Position, text string) Edit {
	return Edit{Range: Range{Start: p, End: p}, Text: text}
}

// Delete builds an edit removing r
func Delete(r Range) Edit {
	return Edit{Range: r}
}

// Document is a mutable text held as lines of runes. It is not safe for
// concurrent use; callers serialise access.
type Document struct {
	path    string
	lines   [][]rune
	eol     string
	dirty   bool
	version int
}

// New creates a document for path holding text
func New(path, text string) *Document {
	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}

	parts := strings.Split(text, "\n")
	lines := make([][]rune, len(parts))
	for i, p := range parts {
		lines[i] = []rune(p)
	}

	return &Document{path: path, lines: lines, eol: eol}
}

// Path returns the file the document was loaded from
func (d *Document) Path() string {
	return d.path
}

// LineCount returns the number of lines, always at least one
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line returns the text of line n, or "" when n is out of range
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lines) {
		return ""
	}
	return string(d.lines[n])
}

// Lines returns a copy of every line
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	for i, l := range d.lines {
		out[i] = string(l)
	}
	return out
}

// Text returns the whole document using its original line ending
func (d *Document) Text() string {
	return strings.Join(d.Lines(), d.eol)
}

// Dirty reports whether the document changed since it was loaded or last saved
func (d *Document) Dirty() bool {
	return d.dirty
}

// MarkClean clears the dirty flag after a save
func (d *Document) MarkClean() {
	d.dirty = false
}

// Version increments on every applied edit
func (d *Document) Version() int {
	return d.version
}

// Validate clamps p into the document: the line into [0, LineCount-1] and
// the column into [0, len(line)].
func (d *Document) Validate(p Position) Position {
	if p.Line < 0 {
		return Position{}
	}
	if p.Line >= len(d.lines) {
		last := len(d.lines) - 1
		return Position{Line: last, Col: len(d.lines[last])}
	}
	if p.Col < 0 {
		p.Col = 0
	}
	if n := len(d.lines[p.Line]); p.Col > n {
		p.Col = n
	}
	return p
}

// LineEnd returns the position just past the last character of line
func (d *Document) LineEnd(line int) Position {
	p := d.Validate(Position{Line: line})
	return Position{Line: p.Line, Col: len(d.lines[p.Line])}
}

// LineRange returns the span of line, excluding its line break
func (d *Document) LineRange(line int) Range {
	end := d.LineEnd(line)
	return Range{Start: Position{Line: end.Line}, End: end}
}

// Apply performs e after validating its range and returns the position just
// past the inserted text.
func (d *Document) Apply(e Edit) Position {
	r := NewRange(d.Validate(e.Range.Start), d.Validate(e.Range.End))

	prefix := d.lines[r.Start.Line][:r.Start.Col]
	suffix := d.lines[r.End.Line][r.End.Col:]

	parts := strings.Split(e.Text, "\n")
	replaced := make([][]rune, len(parts))
	for i, p := range parts {
		replaced[i] = []rune(p)
	}

	last := len(replaced) - 1
	end := Position{Line: r.Start.Line + last, Col: len(replaced[last])}
	if last == 0 {
		end.Col += len(prefix)
	}

	first := make([]rune, 0, len(prefix)+len(replaced[0]))
	first = append(first, prefix...)
	replaced[0] = append(first, replaced[0]...)
	replaced[last] = append(replaced[last], suffix...)

	lines := make([][]rune, 0, len(d.lines)-(r.End.Line-r.Start.Line)+last)
	lines = append(lines, d.lines[:r.Start.Line]...)
	lines = append(lines, replaced...)
	lines = append(lines, d.lines[r.End.Line+1:]...)
	d.lines = lines

	if !r.Empty() || e.Text != "" {
		d.dirty = true
		d.version++
	}
	return end
}

// Transform maps p across an edit that replaced r and ended at end.
// Positions before r are unchanged, positions inside r collapse to end, and
// positions at or after r.End move with the text that followed them.
func Transform(p Position, r Range, end Position) Position {
	if p.Before(r.Start) {
		return p
	}
	if p.Before(r.End) {
		return end
	}
	if p.Line == r.End.Line {
		return Position{Line: end.Line, Col: end.Col + p.Col - r.End.Col}
	}
	return Position{Line: p.Line + end.Line - r.End.Line, Col: p.Col}
}
