package terminal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"autotype/host"
	"autotype/playback"
	"autotype/typing"
)

type harness struct {
	root   string
	screen tcell.SimulationScreen
	ws     *host.Workspace
	ctrl   *playback.Controller
	done   chan error
}

func startApp(t *testing.T, files map[string]string, pages []string) *harness {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	scriptDir := filepath.Join(root, playback.DefaultScriptDir)
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i, p := range pages {
		name := filepath.Join(scriptDir, string(rune('a'+i))+".page")
		if err := os.WriteFile(name, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	h := &harness{
		root:   root,
		screen: tcell.NewSimulationScreen("UTF-8"),
		ws:     host.NewWorkspace(root),
		done:   make(chan error, 1),
	}
	h.ctrl = playback.NewController(h.ws, playback.Options{Pacer: typing.NewPacer(0, 0)})
	if err := h.ctrl.OpenPages(context.Background()); err != nil {
		t.Fatalf("OpenPages failed: %v", err)
	}

	app := New(h.screen, h.ws, h.ctrl)
	go func() { h.done <- app.Run(context.Background()) }()
	t.Cleanup(func() { h.quit(t) })

	h.waitFor(t, "page 0")
	return h
}

func (h *harness) quit(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
		return
	default:
	}
	h.screen.InjectKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("app did not quit")
	}
	h.done <- nil
}

func (h *harness) key(r rune) {
	h.screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
}

// screenText returns the visible rows
func (h *harness) screenText() string {
	cells, w, ht := h.screen.GetContents()
	var b strings.Builder
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteRune(c.Runes[0])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (h *harness) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(h.screenText(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected screen to show %q, got:\n%s", want, h.screenText())
}

func TestPlayPageFromKeyboard(t *testing.T) {
	h := startApp(t,
		map[string]string{"hello.go": "package main\n"},
		[]string{"file: hello.go\nline: 2\n---\nfunc main() {}"})

	h.waitFor(t, "hello.go")
	h.key('n')
	h.waitFor(t, "func main() {}")
	h.waitFor(t, "page 1")
	h.waitFor(t, "[+]")

	text, _ := h.ws.Text(filepath.Join(h.root, "hello.go"))
	if text != "package main\nfunc main() {}" {
		t.Errorf("Unexpected document text %q", text)
	}

	h.key('n')
	h.waitFor(t, "No more script pages.")
}

func TestResetAndSaveKeys(t *testing.T) {
	h := startApp(t,
		map[string]string{"a.txt": ""},
		[]string{"file: a.txt\n---\nhi"})

	h.key(' ')
	h.waitFor(t, "page 1")

	h.key('r')
	h.waitFor(t, "Script reset to the first page.")
	h.waitFor(t, "page 0")

	h.key('w')
	h.waitFor(t, "Saved.")

	data, err := os.ReadFile(filepath.Join(h.root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hi" {
		t.Errorf("Expected saved file to hold %q, got %q", "hi", data)
	}
}

func TestCloseKey(t *testing.T) {
	h := startApp(t, map[string]string{"a.txt": "", "b.txt": ""},
		[]string{"file: a.txt\n---\nx", "file: b.txt\n---\ny"})
	h.waitFor(t, "a.txt")
	h.waitFor(t, "2 open")

	h.key('x')
	h.waitFor(t, "Closed a.txt.")
	h.waitFor(t, "1 open")
	if _, ok := h.ws.Text(filepath.Join(h.root, "a.txt")); ok {
		t.Error("Expected a.txt to be closed")
	}
	if _, ok := h.ws.ActiveEditor(); ok {
		t.Error("Expected no active editor after closing it")
	}

	// with nothing active the next page is not dispatched
	h.key('n')
	h.key('w')
	h.waitFor(t, "Saved.")
	h.waitFor(t, "No document open")
	if h.ctrl.Session.Index() != 0 {
		t.Errorf("Expected index 0, got %d", h.ctrl.Session.Index())
	}
}

func TestCloseKeyStopsTyping(t *testing.T) {
	h := startApp(t, map[string]string{"a.txt": ""},
		[]string{"file: a.txt\n---\n" + strings.Repeat("z", 100)})
	h.ctrl.Engine.Pacer = typing.NewPacer(20, 0)

	h.key('n')
	h.waitFor(t, "[+]")
	h.key('x')
	h.waitFor(t, "Closed a.txt.")

	time.Sleep(100 * time.Millisecond)
	if _, ok := h.ws.ActiveEditor(); ok {
		t.Error("Expected no active editor after closing it")
	}
	if n := len(h.ws.Documents()); n != 0 {
		t.Errorf("Expected no open documents, got %d", n)
	}
	if !strings.Contains(h.screenText(), "No document open") {
		t.Errorf("Expected the empty view, got:\n%s", h.screenText())
	}
}

func TestQuitKey(t *testing.T) {
	h := startApp(t, map[string]string{"a.txt": ""}, []string{"file: a.txt\n---\nx"})

	h.key('q')
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
		h.done <- nil
	case <-time.After(2 * time.Second):
		t.Fatal("app did not quit on q")
	}
}

func TestCellX(t *testing.T) {
	tests := []struct {
		line     string
		col      int
		expected int
	}{
		{"abc", 2, 2},
		{"\tx", 1, 4},
		{"a\tx", 2, 4},
		{"日本", 1, 2},
		{"ab", 5, 5},
	}
	for _, tt := range tests {
		if got := cellX([]rune(tt.line), tt.col); got != tt.expected {
			t.Errorf("cellX(%q, %d) = %d, want %d", tt.line, tt.col, got, tt.expected)
		}
	}
}
