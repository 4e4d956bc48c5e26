package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"autotype/buffer"
	"autotype/script"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenDocumentReusesOpenDocuments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.go", "package main\n")
	ws := NewWorkspace(dir)

	first, err := ws.OpenDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}
	second, err := ws.OpenDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}

	if first != second {
		t.Error("Expected the same document for the same path")
	}
	if n := len(ws.Documents()); n != 1 {
		t.Errorf("Expected 1 open document, got %d", n)
	}
}

func TestOpenDocumentMissingFile(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	if _, err := ws.OpenDocument(context.Background(), "/does/not/exist.go"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestShowDocumentSetsActiveEditor(t *testing.T) {
	dir := t.TempDir()
	ws := NewWorkspace(dir)

	if _, ok := ws.ActiveEditor(); ok {
		t.Fatal("Expected no active editor in a new workspace")
	}

	doc, _ := ws.OpenDocument(context.Background(), writeFile(t, dir, "a.txt", "alpha"))
	if _, err := ws.ShowDocument(doc, ShowOptions{}); err != nil {
		t.Fatalf("ShowDocument failed: %v", err)
	}

	ed, ok := ws.ActiveEditor()
	if !ok {
		t.Fatal("Expected an active editor")
	}
	if ed.Document().Path() != doc.Path() {
		t.Errorf("Expected active document %s, got %s", doc.Path(), ed.Document().Path())
	}
}

func TestPreviewIsReplaced(t *testing.T) {
	dir := t.TempDir()
	ws := NewWorkspace(dir)
	ctx := context.Background()

	a, _ := ws.OpenDocument(ctx, writeFile(t, dir, "a.txt", "a"))
	b, _ := ws.OpenDocument(ctx, writeFile(t, dir, "b.txt", "b"))
	c, _ := ws.OpenDocument(ctx, writeFile(t, dir, "c.txt", "c"))

	ws.ShowDocument(a, ShowOptions{})
	ws.ShowDocument(b, ShowOptions{Preview: true})
	ws.ShowDocument(c, ShowOptions{Preview: true})

	var paths []string
	for _, d := range ws.Documents() {
		paths = append(paths, filepath.Base(d.Path()))
	}
	expected := []string{"a.txt", "c.txt"}
	if len(paths) != len(expected) {
		t.Fatalf("Expected documents %v, got %v", expected, paths)
	}
	for i := range expected {
		if paths[i] != expected[i] {
			t.Errorf("Expected documents %v, got %v", expected, paths)
			break
		}
	}

	// a pinned document survives the next preview
	ws.ShowDocument(a, ShowOptions{Preview: true})
	if _, ok := ws.Text(a.Path()); !ok {
		t.Error("Pinned document should stay open")
	}
}

func TestEditorEditCarriesCaret(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		edit          buffer.Edit
		caret         buffer.Position
		expectedText  string
		expectedCaret buffer.Position
	}{
		{
			name:          "insert at caret",
			content:       "ac",
			edit:          buffer.Insert(buffer.Position{Line: 0, Col: 1}, "b"),
			caret:         buffer.Position{Line: 0, Col: 1},
			expectedText:  "abc",
			expectedCaret: buffer.Position{Line: 0, Col: 2},
		},
		{
			name:          "newline splits the line",
			content:       "ab",
			edit:          buffer.Insert(buffer.Position{Line: 0, Col: 1}, "\n"),
			caret:         buffer.Position{Line: 0, Col: 1},
			expectedText:  "a\nb",
			expectedCaret: buffer.Position{Line: 1, Col: 0},
		},
		{
			name:          "caret past line end is clamped",
			content:       "ab",
			edit:          buffer.Insert(buffer.Position{Line: 0, Col: 9}, "c"),
			caret:         buffer.Position{Line: 0, Col: 9},
			expectedText:  "abc",
			expectedCaret: buffer.Position{Line: 0, Col: 3},
		},
		{
			name:          "delete before caret",
			content:       "abc",
			edit:          buffer.Delete(buffer.NewRange(buffer.Position{Line: 0, Col: 1}, buffer.Position{Line: 0, Col: 2})),
			caret:         buffer.Position{Line: 0, Col: 2},
			expectedText:  "ac",
			expectedCaret: buffer.Position{Line: 0, Col: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ws := NewWorkspace(dir)
			doc, _ := ws.OpenDocument(context.Background(), writeFile(t, dir, "f.txt", tt.content))
			ed, _ := ws.ShowDocument(doc, ShowOptions{})

			if err := ed.Edit(tt.edit, tt.caret); err != nil {
				t.Fatalf("Edit failed: %v", err)
			}

			if got, _ := ws.Text(doc.Path()); got != tt.expectedText {
				t.Errorf("Expected text %q, got %q", tt.expectedText, got)
			}
			if sel := ed.Selection(); !sel.Empty() || sel.Active != tt.expectedCaret {
				t.Errorf("Expected caret %+v, got %+v", tt.expectedCaret, sel)
			}
		})
	}
}

func TestEditAfterClose(t *testing.T) {
	dir := t.TempDir()
	ws := NewWorkspace(dir)
	doc, _ := ws.OpenDocument(context.Background(), writeFile(t, dir, "f.txt", "x"))
	ed, _ := ws.ShowDocument(doc, ShowOptions{})

	ws.CloseDocument(doc.Path())

	err := ed.Edit(buffer.Insert(buffer.Position{}, "y"), buffer.Position{})
	if !errors.Is(err, ErrEditorClosed) {
		t.Errorf("Expected ErrEditorClosed, got %v", err)
	}
	if _, ok := ws.ActiveEditor(); ok {
		t.Error("Closing the active document should leave no active editor")
	}
}

func TestReveal(t *testing.T) {
	dir := t.TempDir()
	content := ""
	for i := 0; i < 100; i++ {
		content += "line\n"
	}
	ws := NewWorkspace(dir)
	ws.SetViewHeight(10)
	doc, _ := ws.OpenDocument(context.Background(), writeFile(t, dir, "long.txt", content))
	ed, _ := ws.ShowDocument(doc, ShowOptions{})

	tests := []struct {
		name        string
		line        int
		align       script.Align
		expectedTop int
	}{
		{"center", 50, script.AlignCenter, 45},
		{"center near top", 2, script.AlignCenter, 0},
		{"nearest below view", 60, script.AlignNearest, 51},
		{"nearest already visible", 55, script.AlignNearest, 51},
		{"nearest above view", 20, script.AlignNearest, 20},
	}

	for _, tt := range tests {
		r := ed.LineRange(tt.line)
		ed.SetSelection(buffer.Selection{Anchor: r.Start, Active: r.End})
		ed.Reveal(r, tt.align)
		if top := ws.Snapshot().Top; top != tt.expectedTop {
			t.Errorf("%s: expected top %d, got %d", tt.name, tt.expectedTop, top)
		}
	}
}

func TestSaveWritesDirtyDocuments(t *testing.T) {
	dir := t.TempDir()
	ws := NewWorkspace(dir)
	path := writeFile(t, dir, "f.txt", "hello")
	doc, _ := ws.OpenDocument(context.Background(), path)
	ed, _ := ws.ShowDocument(doc, ShowOptions{})

	ed.Edit(buffer.Insert(buffer.Position{Line: 0, Col: 5}, " world"), buffer.Position{Line: 0, Col: 5})
	if !ws.Snapshot().Dirty {
		t.Error("Expected dirty document after edit")
	}
	if m := ws.Modified(); len(m) != 1 || m[0] != doc.Path() {
		t.Errorf("Expected %s modified, got %v", doc.Path(), m)
	}

	if err := ws.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("Expected %q on disk, got %q", "hello world", data)
	}
	if ws.Snapshot().Dirty || len(ws.Modified()) != 0 {
		t.Error("Expected clean document after save")
	}
}

func TestMessages(t *testing.T) {
	ws := NewWorkspace("")
	if _, ok := ws.Root(); ok {
		t.Error("Expected no root for an empty workspace")
	}

	var got []Message
	ws.OnMessage = func(m Message) { got = append(got, m) }

	ws.Inform("No more script pages.")
	ws.Warn("No script pages found")

	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	if got[0].Level != LevelInfo || got[1].Level != LevelWarn {
		t.Errorf("Unexpected message levels: %+v", got)
	}
	if ws.Snapshot().Message.Text != "No script pages found" {
		t.Errorf("Expected the last message in the view, got %+v", ws.Snapshot().Message)
	}
}
