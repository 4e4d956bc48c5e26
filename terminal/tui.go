// Package terminal runs the interactive player: the active document is drawn
// on a tcell screen and keys trigger script playback.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"autotype/host"
	"autotype/logging"
	"autotype/playback"
)

const tabWidth = 4

var (
	styleText      = tcell.StyleDefault
	styleSelection = tcell.StyleDefault.Reverse(true)
	styleStatus    = tcell.StyleDefault.Reverse(true)
	styleWarn      = tcell.StyleDefault.Reverse(true).Foreground(tcell.ColorYellow)
	styleGutter    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// App is the interactive player
type App struct {
	screen tcell.Screen
	ws     *host.Workspace
	ctrl   *playback.Controller

	redraw chan struct{}
	left   int // first visible column
	log    *slog.Logger
}

// New creates an app drawing on screen and redrawing whenever the workspace
// changes. The screen is initialised by Run.
func New(screen tcell.Screen, ws *host.Workspace, ctrl *playback.Controller) *App {
	a := &App{
		screen: screen,
		ws:     ws,
		ctrl:   ctrl,
		redraw: make(chan struct{}, 1),
		log:    logging.WithComponent("terminal"),
	}
	ws.OnChange = a.requestRedraw
	return a
}

// Run takes over the terminal until the user quits or ctx is done.
// Typing still in flight is cancelled on return.
func (a *App) Run(ctx context.Context) (err error) {
	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("failed to setup terminal: %w", err)
	}
	// Ensure terminal is restored even on panic
	defer func() {
		a.screen.Fini()
		if r := recover(); r != nil {
			err = fmt.Errorf("terminal: %v", r)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go a.screen.ChannelEvents(events, quit)
	defer close(quit)

	a.resize()
	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.redraw:
		case ev := <-events:
			switch ev := ev.(type) {
			case nil:
				return nil
			case *tcell.EventResize:
				a.resize()
				a.screen.Sync()
			case *tcell.EventKey:
				if a.handleKey(ctx, ev) {
					return nil
				}
			}
		}
		a.draw()
	}
}

func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

func (a *App) resize() {
	_, h := a.screen.Size()
	a.ws.SetViewHeight(h - 1)
}

// handleKey maps a key to a command and reports whether to quit
func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return true
	case tcell.KeyEnter:
		a.playNext(ctx)
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case 'n', ' ':
		a.playNext(ctx)
	case 'r':
		a.ctrl.Reset()
		a.ws.Inform("Script reset to the first page.")
	case 'w':
		if err := a.ws.Save(); err != nil {
			a.ws.Warn(err.Error())
		} else {
			a.ws.Inform("Saved.")
		}
	case 'x':
		a.closeActive()
	}
	return false
}

// closeActive closes the active document, dropping unsaved edits. A page
// still typing into it stops at its next step.
func (a *App) closeActive() {
	path := a.ws.Snapshot().Path
	if path == "" {
		return
	}
	a.ws.CloseDocument(path)
	a.ws.Inform(fmt.Sprintf("Closed %s.", filepath.Base(path)))
}

func (a *App) playNext(ctx context.Context) {
	run, err := a.ctrl.PlayNextPage(ctx)
	if err != nil && !errors.Is(err, playback.ErrNoMorePages) {
		a.log.Debug("page not played", slog.Any("err", err))
	}
	if run == nil {
		return
	}
	go func() {
		res := run.Wait()
		a.log.Debug("page done", slog.String("outcome", res.Outcome.String()), slog.Int("steps", res.Steps))
		a.requestRedraw()
	}()
}

// draw renders the workspace snapshot
func (a *App) draw() {
	v := a.ws.Snapshot()
	w, h := a.screen.Size()
	a.screen.Clear()
	if w <= 0 || h <= 0 {
		return
	}

	bodyHeight := h - 1
	if v.Path == "" {
		drawString(a.screen, 0, 0, w, "No document open. Press n to play the next script page, q to quit.", styleGutter)
		a.screen.HideCursor()
	} else {
		a.drawBody(v, w, bodyHeight)
	}
	a.drawStatus(v, w, h-1)
	a.screen.Show()
}

func (a *App) drawBody(v host.View, w, h int) {
	caret := v.Selection.Active
	caretX := -1
	if caret.Line < len(v.Lines) {
		caretX = cellX([]rune(v.Lines[caret.Line]), caret.Col)
	}
	// keep the caret column in view
	if caretX >= 0 {
		if caretX < a.left {
			a.left = caretX
		} else if caretX >= a.left+w {
			a.left = caretX - w + 1
		}
	}

	sel := v.Selection.Range()
	for row := 0; row < h; row++ {
		n := v.Top + row
		if n >= len(v.Lines) {
			drawString(a.screen, 0, row, w, "~", styleGutter)
			continue
		}
		line := []rune(v.Lines[n])
		x := 0
		for col, r := range line {
			style := styleText
			if !sel.Empty() && inRange(sel.Start.Line, sel.Start.Col, sel.End.Line, sel.End.Col, n, col) {
				style = styleSelection
			}
			width := runeCells(r, x)
			for i := 0; i < width; i++ {
				sx := x + i - a.left
				if sx < 0 || sx >= w {
					continue
				}
				if r == '\t' {
					a.screen.SetContent(sx, row, ' ', nil, style)
				} else if i == 0 {
					a.screen.SetContent(sx, row, r, nil, style)
				}
			}
			x += width
		}
	}

	sy := caret.Line - v.Top
	sx := caretX - a.left
	if caretX >= 0 && sy >= 0 && sy < h && sx >= 0 && sx < w {
		a.screen.ShowCursor(sx, sy)
	} else {
		a.screen.HideCursor()
	}
}

func (a *App) drawStatus(v host.View, w, y int) {
	for x := 0; x < w; x++ {
		a.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	name := "no document"
	if v.Path != "" {
		name = filepath.Base(v.Path)
		if v.Dirty {
			name += " [+]"
		}
	}
	left := fmt.Sprintf(" %s | page %d | %d open ", name, a.ctrl.Session.Index(), v.Open)
	drawString(a.screen, 0, y, w, left, styleStatus)

	if v.Message.Text != "" {
		style := styleStatus
		if v.Message.Level == host.LevelWarn {
			style = styleWarn
		}
		x := runewidth.StringWidth(left)
		drawString(a.screen, x, y, w-x, " "+v.Message.Text, style)
	}
}

// drawString writes s at (x, y), clipped to width cells
func drawString(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	used := 0
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			return
		}
		s.SetContent(x+used, y, r, nil, style)
		used += rw
	}
}

// cellX returns the screen column of rune index col in line
func cellX(line []rune, col int) int {
	x := 0
	for i, r := range line {
		if i >= col {
			break
		}
		x += runeCells(r, x)
	}
	if col > len(line) {
		x += col - len(line)
	}
	return x
}

// runeCells is the number of cells r takes when drawn at column x
func runeCells(r rune, x int) int {
	if r == '\t' {
		return tabWidth - x%tabWidth
	}
	if w := runewidth.RuneWidth(r); w > 0 {
		return w
	}
	return 1
}

func inRange(sl, sc, el, ec, line, col int) bool {
	if line < sl || line > el {
		return false
	}
	if line == sl && col < sc {
		return false
	}
	if line == el && col >= ec {
		return false
	}
	return true
}
