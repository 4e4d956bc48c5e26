package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"autotype/buffer"
	"autotype/logging"
	"autotype/script"
)

// ErrEditorClosed is returned when editing a document that is no longer open
var ErrEditorClosed = errors.New("editor closed")

// Level tags a host message
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
)

// Message is a notification shown to the user
type Message struct {
	Level Level
	Text  string
}

// View is a copy of what should be on screen
type View struct {
	Path      string
	Lines     []string
	Selection buffer.Selection
	Top       int // first visible line
	Dirty     bool
	Message   Message
	Open      int // number of open documents
}

// Workspace is a Host over files on disk. Documents are read on open and
// only written back by Save. All methods are safe for concurrent use and
// every edit is applied atomically.
type Workspace struct {
	mu         sync.Mutex
	root       string
	docs       []*document
	byPath     map[string]*document
	active     *document
	preview    *document
	viewHeight int
	message    Message

	// OnMessage receives Warn and Inform messages
	OnMessage func(Message)
	// OnChange is called after any visible change
	OnChange func()

	log *slog.Logger
}

type document struct {
	doc    *buffer.Document
	sel    buffer.Selection
	top    int
	pinned bool
}

func (d *document) Path() string {
	return d.doc.Path()
}

// NewWorkspace creates an empty workspace rooted at root. An empty root
// means there is no workspace folder.
func NewWorkspace(root string) *Workspace {
	return &Workspace{
		root:       root,
		byPath:     make(map[string]*document),
		viewHeight: 24,
		log:        logging.WithComponent("host"),
	}
}

// Root implements Host
func (w *Workspace) Root() (string, bool) {
	return w.root, w.root != ""
}

// OpenDocument reads path into a document. Opening an already open path
// returns the same document.
func (w *Workspace) OpenDocument(ctx context.Context, path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	d, ok := w.byPath[abs]
	w.mu.Unlock()
	if ok {
		return d, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", abs, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// another caller may have opened it while we were reading
	if d, ok := w.byPath[abs]; ok {
		return d, nil
	}
	d = &document{doc: buffer.New(abs, string(data))}
	w.byPath[abs] = d
	w.docs = append(w.docs, d)
	w.log.Debug("document opened", slog.String("path", abs))
	return d, nil
}

// ShowDocument makes doc the active editor
func (w *Workspace) ShowDocument(doc Document, opts ShowOptions) (Editor, error) {
	w.mu.Lock()
	d, ok := w.byPath[doc.Path()]
	if !ok {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrEditorClosed, doc.Path())
	}

	if opts.Preview {
		if p := w.preview; p != nil && p != d && !p.pinned {
			w.closeLocked(p)
		}
		if !d.pinned {
			w.preview = d
		}
	} else {
		d.pinned = true
		if w.preview == d {
			w.preview = nil
		}
	}
	w.active = d
	w.mu.Unlock()

	w.changed()
	return &editor{ws: w, d: d}, nil
}

// ActiveEditor implements Host
func (w *Workspace) ActiveEditor() (Editor, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return nil, false
	}
	return &editor{ws: w, d: w.active}, true
}

// Documents implements Host
func (w *Workspace) Documents() []Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Document, len(w.docs))
	for i, d := range w.docs {
		out[i] = d
	}
	return out
}

// CloseDocument closes the document at path. Closing the active document
// leaves no active editor.
func (w *Workspace) CloseDocument(path string) {
	w.mu.Lock()
	if d, ok := w.byPath[path]; ok {
		w.closeLocked(d)
	}
	w.mu.Unlock()
	w.changed()
}

func (w *Workspace) closeLocked(d *document) {
	delete(w.byPath, d.Path())
	for i, o := range w.docs {
		if o == d {
			w.docs = append(w.docs[:i], w.docs[i+1:]...)
			break
		}
	}
	if w.active == d {
		w.active = nil
	}
	if w.preview == d {
		w.preview = nil
	}
}

// Warn implements Host
func (w *Workspace) Warn(msg string) {
	w.log.Warn(msg)
	w.post(Message{Level: LevelWarn, Text: msg})
}

// Inform implements Host
func (w *Workspace) Inform(msg string) {
	w.log.Info(msg)
	w.post(Message{Level: LevelInfo, Text: msg})
}

func (w *Workspace) post(m Message) {
	w.mu.Lock()
	w.message = m
	cb := w.OnMessage
	w.mu.Unlock()
	if cb != nil {
		cb(m)
	}
	w.changed()
}

// SetViewHeight sets how many lines the view shows, used when revealing
func (w *Workspace) SetViewHeight(h int) {
	w.mu.Lock()
	w.viewHeight = max(h, 1)
	w.mu.Unlock()
}

// Snapshot copies the active editor's state for drawing. The top line is
// adjusted so the caret stays visible.
func (w *Workspace) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{Message: w.message, Open: len(w.docs)}
	d := w.active
	if d == nil {
		return v
	}
	d.top = scrollNearest(d.top, d.sel.Active.Line, w.viewHeight)
	v.Path = d.Path()
	v.Lines = d.doc.Lines()
	v.Selection = d.sel
	v.Top = d.top
	v.Dirty = d.doc.Dirty()
	return v
}

// Save writes every modified document back to disk
func (w *Workspace) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for _, d := range w.docs {
		if !d.doc.Dirty() {
			continue
		}
		mode := os.FileMode(0o644)
		if info, err := os.Stat(d.Path()); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.WriteFile(d.Path(), []byte(d.doc.Text()), mode); err != nil {
			errs = append(errs, fmt.Errorf("failed to save %s: %w", d.Path(), err))
			continue
		}
		d.doc.MarkClean()
		w.log.Info("document saved", slog.String("path", d.Path()))
	}
	return errors.Join(errs...)
}

// Modified lists the paths of documents with unsaved edits
func (w *Workspace) Modified() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var paths []string
	for _, d := range w.docs {
		if d.doc.Dirty() {
			paths = append(paths, d.Path())
		}
	}
	return paths
}

// Text returns the current contents of the open document at path
func (w *Workspace) Text(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.byPath[path]
	if !ok {
		return "", false
	}
	return d.doc.Text(), true
}

func (w *Workspace) changed() {
	w.mu.Lock()
	cb := w.OnChange
	w.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// editor is a handle on a document shown in the workspace
type editor struct {
	ws *Workspace
	d  *document
}

func (e *editor) Document() Document {
	return e.d
}

// open reports whether the document is still open; callers hold ws.mu
func (e *editor) open() bool {
	return e.ws.byPath[e.d.Path()] == e.d
}

// Edit sets the caret and then applies ed, carrying the caret across it
func (e *editor) Edit(ed buffer.Edit, caret buffer.Position) error {
	e.ws.mu.Lock()
	if !e.open() {
		e.ws.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEditorClosed, e.d.Path())
	}
	doc := e.d.doc
	caret = doc.Validate(caret)
	r := buffer.NewRange(doc.Validate(ed.Range.Start), doc.Validate(ed.Range.End))
	end := doc.Apply(ed)
	e.d.sel = buffer.Caret(buffer.Transform(caret, r, end))
	e.ws.mu.Unlock()

	e.ws.changed()
	return nil
}

func (e *editor) SetSelection(sel buffer.Selection) {
	e.ws.mu.Lock()
	doc := e.d.doc
	e.d.sel = buffer.Selection{Anchor: doc.Validate(sel.Anchor), Active: doc.Validate(sel.Active)}
	e.ws.mu.Unlock()
	e.ws.changed()
}

func (e *editor) Selection() buffer.Selection {
	e.ws.mu.Lock()
	defer e.ws.mu.Unlock()
	return e.d.sel
}

func (e *editor) LineEnd(line int) buffer.Position {
	e.ws.mu.Lock()
	defer e.ws.mu.Unlock()
	return e.d.doc.LineEnd(line)
}

func (e *editor) LineRange(line int) buffer.Range {
	e.ws.mu.Lock()
	defer e.ws.mu.Unlock()
	return e.d.doc.LineRange(line)
}

// Reveal scrolls so r.Start is visible
func (e *editor) Reveal(r buffer.Range, align script.Align) {
	e.ws.mu.Lock()
	line := e.d.doc.Validate(r.Start).Line
	h := e.ws.viewHeight
	if align == script.AlignCenter {
		e.d.top = max(line-h/2, 0)
	} else {
		e.d.top = scrollNearest(e.d.top, line, h)
	}
	e.ws.mu.Unlock()
	e.ws.changed()
}

// scrollNearest returns the smallest change to top that shows line
func scrollNearest(top, line, height int) int {
	if line < top {
		return line
	}
	if line >= top+height {
		return line - height + 1
	}
	return top
}
