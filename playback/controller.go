package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"autotype/buffer"
	"autotype/host"
	"autotype/logging"
	"autotype/script"
	"autotype/typing"
)

// DefaultScriptDir is the script directory name inside the workspace root
const DefaultScriptDir = ".auto-type"

var (
	// ErrNoMorePages is returned once every page has been dispatched
	ErrNoMorePages = errors.New("no more script pages")
	// ErrPlaybackInFlight is returned by an exclusive controller while a page
	// is still being typed
	ErrPlaybackInFlight = errors.New("a script page is still being typed")
)

// Options configures a Controller
type Options struct {
	// ScriptDir is resolved against the workspace root unless absolute
	ScriptDir string
	Pacer     *typing.Pacer
	Mode      typing.Mode
	// Exclusive refuses to start a page while the previous one is typing
	Exclusive bool
}

// Controller plays the next page of the script into the host
type Controller struct {
	Host    host.Host
	Session *Session
	Engine  *typing.Engine
	opts    Options

	mu       sync.Mutex
	inFlight *typing.Run

	log *slog.Logger
}

// NewController builds a controller with a fresh session. The engine types
// into whichever editor the host reports active at each step.
func NewController(h host.Host, opts Options) *Controller {
	if opts.ScriptDir == "" {
		opts.ScriptDir = DefaultScriptDir
	}
	engine := typing.NewEngine(ActiveEditor(h), opts.Pacer, opts.Mode)
	return &Controller{
		Host:    h,
		Session: &Session{},
		Engine:  engine,
		opts:    opts,
		log:     logging.WithComponent("playback"),
	}
}

// ActiveEditor adapts a host to the engine's view of the active editor
func ActiveEditor(h host.Host) func() (typing.Editor, bool) {
	return func() (typing.Editor, bool) {
		ed, ok := h.ActiveEditor()
		if !ok {
			return nil, false
		}
		return ed, true
	}
}

// ScriptDir returns the script directory for a workspace root
func (c *Controller) ScriptDir(root string) string {
	if filepath.IsAbs(c.opts.ScriptDir) {
		return c.opts.ScriptDir
	}
	return filepath.Join(root, c.opts.ScriptDir)
}

// Reset rewinds playback to the first page
func (c *Controller) Reset() {
	c.Session.Reset()
	c.log.Debug("script reset")
}

// PlayNextPage dispatches the next page. It returns the run typing the page,
// or nil when nothing was started. Without an active editor or a workspace
// root it does nothing. The page counter advances as soon as a page is
// selected, so a page whose document cannot be found is skipped.
func (c *Controller) PlayNextPage(ctx context.Context) (*typing.Run, error) {
	if _, ok := c.Host.ActiveEditor(); !ok {
		return nil, nil
	}
	root, ok := c.Host.Root()
	if !ok {
		return nil, nil
	}

	if c.opts.Exclusive && c.busy() {
		c.Host.Inform("Still typing the previous script page.")
		return nil, ErrPlaybackInFlight
	}

	pages, err := script.Load(c.ScriptDir(root), c.Host.Warn)
	if err != nil {
		c.Host.Warn(err.Error())
		return nil, err
	}

	index, ok := c.Session.claim(len(pages))
	if !ok {
		c.Host.Inform("No more script pages.")
		return nil, ErrNoMorePages
	}
	page := pages[index]
	log := c.log.With(slog.String("page", page.Name), slog.Int("index", index))
	log.Info("dispatching script page", slog.String("file", page.File))

	opened, err := c.openAll(ctx, root, pages)
	if err != nil {
		c.Host.Warn(err.Error())
		return nil, err
	}

	doc, ok := c.find(opened, page.File)
	if !ok {
		log.Debug("no open document matches page file", slog.String("file", page.File))
		return nil, nil
	}

	ed, err := c.Host.ShowDocument(doc, host.ShowOptions{})
	if err != nil {
		log.Warn("failed to show document", slog.Any("err", err))
		return nil, nil
	}
	r := ed.LineRange(max(page.Line, 0))
	ed.SetSelection(buffer.Selection{Anchor: r.Start, Active: r.End})
	ed.Reveal(r, page.Align)

	start := buffer.Position{Line: max(page.Line, 0), Col: max(page.Col, 0)}
	run := c.Engine.Start(ctx, page.Text(), start)

	c.mu.Lock()
	c.inFlight = run
	c.mu.Unlock()
	return run, nil
}

// OpenPages opens the document of every page without dispatching anything,
// leaving the file of the next page in the active editor. It gives an
// interactive session an editor to start from.
func (c *Controller) OpenPages(ctx context.Context) error {
	root, ok := c.Host.Root()
	if !ok {
		return nil
	}
	pages, err := script.Load(c.ScriptDir(root), c.Host.Warn)
	if err != nil {
		c.Host.Warn(err.Error())
		return err
	}
	if len(pages) == 0 {
		return nil
	}
	opened, err := c.openAll(ctx, root, pages)
	if err != nil {
		c.Host.Warn(err.Error())
		return err
	}

	next := pages[min(c.Session.Index(), len(pages)-1)]
	if doc, ok := c.find(opened, next.File); ok {
		if _, err := c.Host.ShowDocument(doc, host.ShowOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight == nil {
		return false
	}
	select {
	case <-c.inFlight.Done():
		return false
	default:
		return true
	}
}

// openAll opens the file of every page in parallel, then shows them in
// script order. The documents are returned in page order.
func (c *Controller) openAll(ctx context.Context, root string, pages []script.Page) ([]host.Document, error) {
	docs := make([]host.Document, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pages {
		path := p.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		g.Go(func() error {
			doc, err := c.Host.OpenDocument(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to open %s for script page %s: %w", path, p.Name, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if _, err := c.Host.ShowDocument(doc, host.ShowOptions{}); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// find returns the first document whose path contains file. The page
// documents are searched in page order before the rest of the open
// documents, so the match does not depend on which read finished first.
func (c *Controller) find(opened []host.Document, file string) (host.Document, bool) {
	for _, doc := range opened {
		if strings.Contains(doc.Path(), file) {
			return doc, true
		}
	}
	for _, doc := range c.Host.Documents() {
		if strings.Contains(doc.Path(), file) {
			return doc, true
		}
	}
	return nil, false
}
