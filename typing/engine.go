package typing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autotype/buffer"
	"autotype/logging"
)

// Editor is the part of a host editor the engine drives
type Editor interface {
	// Edit moves the caret to caret and then applies e as one atomic change.
	Edit(e buffer.Edit, caret buffer.Position) error
	SetSelection(sel buffer.Selection)
	LineEnd(line int) buffer.Position
}

// Mode selects how steps are sequenced
type Mode int

const (
	// ModeAwait runs the steps in one goroutine, sleeping between them
	ModeAwait Mode = iota
	// ModeChain schedules each step as a timer callback of the previous one
	ModeChain
)

// ParseMode maps "await" and "chain" to a mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "await":
		return ModeAwait, nil
	case "chain":
		return ModeChain, nil
	}
	return ModeAwait, fmt.Errorf("unknown typing mode %q", s)
}

func (m Mode) String() string {
	if m == ModeChain {
		return "chain"
	}
	return "await"
}

// Outcome says how a run ended
type Outcome int

const (
	Completed Outcome = iota
	// Aborted means the editor went away mid-run
	Aborted
	// Cancelled means the run's context was cancelled
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "cancelled"
	}
}

// Result summarises a finished run
type Result struct {
	Outcome Outcome
	Steps   int
	Cursor  buffer.Position
}

// Engine types page content into whichever editor is active at each step
type Engine struct {
	// Active returns the editor to type into, or false when there is none
	Active func() (Editor, bool)
	Pacer  *Pacer
	Mode   Mode

	sleep func(ctx context.Context, d time.Duration) error
	after func(d time.Duration, f func())
}

// NewEngine returns an engine with the default pacing
func NewEngine(active func() (Editor, bool), pacer *Pacer, mode Mode) *Engine {
	if pacer == nil {
		pacer = NewPacer(DefaultBaseDelay, DefaultVariableDelay)
	}
	return &Engine{Active: active, Pacer: pacer, Mode: mode}
}

// Run is a page being typed
type Run struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

// Done is closed when the run has finished
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its result
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

func (r *Run) finish(res Result) {
	r.once.Do(func() {
		r.result = res
		close(r.done)
	})
}

// Start begins typing text at start and returns immediately
func (e *Engine) Start(ctx context.Context, text string, start buffer.Position) *Run {
	run := &Run{done: make(chan struct{})}
	log := logging.WithComponent("typing")
	log.Debug("typing started",
		slog.String("mode", e.Mode.String()),
		slog.Int("runes", len([]rune(text))),
		slog.Int("line", start.Line), slog.Int("col", start.Col))

	finish := func(res Result) {
		log.Debug("typing finished",
			slog.String("outcome", res.Outcome.String()),
			slog.Int("steps", res.Steps))
		run.finish(res)
	}

	if e.Mode == ModeChain {
		st := &cursorState{cursor: start}
		e.schedule(0, func() { e.chain(ctx, []rune(text), st, finish) })
		return run
	}

	go func() {
		finish(e.Play(ctx, text, start))
	}()
	return run
}

// Play types text at start and returns when done. Each step is applied and
// its selection set before the following pause begins.
func (e *Engine) Play(ctx context.Context, text string, start buffer.Position) Result {
	st := &cursorState{cursor: start}
	for _, r := range text {
		if ctx.Err() != nil {
			return st.result(Cancelled)
		}
		if !e.step(st, r) {
			return st.result(Aborted)
		}
		if err := e.pause(ctx, e.Pacer.Delay()); err != nil {
			return st.result(Cancelled)
		}
	}
	return st.result(Completed)
}

// chain applies the first rune of rest and schedules the remainder
func (e *Engine) chain(ctx context.Context, rest []rune, st *cursorState, finish func(Result)) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(rest) == 0 {
		finish(st.result(Completed))
		return
	}
	if ctx.Err() != nil {
		finish(st.result(Cancelled))
		return
	}
	if !e.step(st, rest[0]) {
		finish(st.result(Aborted))
		return
	}
	e.schedule(e.Pacer.Delay(), func() { e.chain(ctx, rest[1:], st, finish) })
}

type cursorState struct {
	mu     sync.Mutex // held by each chained step
	cursor buffer.Position
	steps  int
}

func (s *cursorState) result(o Outcome) Result {
	return Result{Outcome: o, Steps: s.steps, Cursor: s.cursor}
}

// step applies one rune. It returns false when no editor can take it.
func (e *Engine) step(st *cursorState, r rune) bool {
	ed, ok := e.activeEditor()
	if !ok {
		return false
	}

	s := Plan(r, st.cursor, ed.LineEnd)
	if s.Edit != nil {
		if err := ed.Edit(*s.Edit, s.Caret); err != nil {
			return false
		}
	} else {
		ed.SetSelection(buffer.Caret(s.Caret))
	}

	st.cursor = s.Cursor
	st.steps++
	return true
}

func (e *Engine) activeEditor() (Editor, bool) {
	if e.Active == nil {
		return nil, false
	}
	ed, ok := e.Active()
	if !ok || ed == nil {
		return nil, false
	}
	return ed, true
}

func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	if e.sleep != nil {
		return e.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// schedule runs f after d. It is called with the step lock held, so f must
// not run before schedule returns.
func (e *Engine) schedule(d time.Duration, f func()) {
	if e.after != nil {
		e.after(d, f)
		return
	}
	time.AfterFunc(d, f)
}
