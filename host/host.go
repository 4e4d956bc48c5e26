// Package host defines what the player needs from the editor it types into,
// and provides Workspace, an implementation over files on disk.
package host

import (
	"context"

	"autotype/buffer"
	"autotype/script"
	"autotype/typing"
)

// Document is an open text document
type Document interface {
	Path() string
}

// Editor is a document shown to the user with a caret
type Editor interface {
	typing.Editor
	Document() Document
	Selection() buffer.Selection
	LineRange(line int) buffer.Range
	Reveal(r buffer.Range, align script.Align)
}

// ShowOptions controls how a document is brought to the foreground
type ShowOptions struct {
	// Preview documents are replaced by the next previewed document
	Preview bool
}

// Host is the editor environment playback runs in
type Host interface {
	// ActiveEditor returns the focused editor, if any
	ActiveEditor() (Editor, bool)
	// Root returns the workspace root directory, if any
	Root() (string, bool)
	OpenDocument(ctx context.Context, path string) (Document, error)
	ShowDocument(doc Document, opts ShowOptions) (Editor, error)
	// Documents lists open documents in the order they were opened
	Documents() []Document
	Warn(msg string)
	Inform(msg string)
}
