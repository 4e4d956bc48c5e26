package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Align controls how the view scrolls to reveal the start of a page
type Align int

const (
	// AlignCenter puts the start line in the middle of the view
	AlignCenter Align = iota
	// AlignNearest scrolls as little as possible
	AlignNearest
)

// AlignMiddle is the header token selecting AlignCenter
const AlignMiddle = "middle"

// String returns the header token for the alignment
func (a Align) String() string {
	if a == AlignCenter {
		return AlignMiddle
	}
	return "nearest"
}

// ParseAlign maps a header token to an alignment. Empty and "middle" centre,
// anything else scrolls minimally.
func ParseAlign(token string) Align {
	if token == "" || token == AlignMiddle {
		return AlignCenter
	}
	return AlignNearest
}

// FrontMatter is the typed header of a script page. Line and Col are zero-based.
type FrontMatter struct {
	File  string
	Line  int
	Col   int
	Align Align
}

// String renders the front matter back into header form with 1-based coordinates
func (fm FrontMatter) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "file: %s\n", fm.File)
	fmt.Fprintf(&b, "line: %d\n", fm.Line+1)
	fmt.Fprintf(&b, "col: %d\n", fm.Col+1)
	fmt.Fprintf(&b, "align: %s\n", fm.Align)
	return b.String()
}

var keySeparator = regexp.MustCompile(`\s*:\s*`)

// ParseFrontMatter parses a header block of "key: value" lines.
// When a key repeats, the first occurrence wins. line and col default to 1
// and are converted to zero-based; a non-integer value is an error.
func ParseFrontMatter(text string) (FrontMatter, error) {
	raw := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kv := keySeparator.Split(line, 2)
		if len(kv) != 2 {
			continue
		}
		if _, seen := raw[kv[0]]; seen {
			continue
		}
		raw[kv[0]] = kv[1]
	}

	line, err := parseCoordinate(raw, "line")
	if err != nil {
		return FrontMatter{}, err
	}
	col, err := parseCoordinate(raw, "col")
	if err != nil {
		return FrontMatter{}, err
	}

	return FrontMatter{
		File:  raw["file"],
		Line:  line,
		Col:   col,
		Align: ParseAlign(raw["align"]),
	}, nil
}

// parseCoordinate reads a 1-based integer header value and returns it 0-based
func parseCoordinate(raw map[string]string, key string) (int, error) {
	v, ok := raw[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q is not an integer", ErrInvalidHeader, key, v)
	}
	return n - 1, nil
}
