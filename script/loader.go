package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"autotype/logging"
)

// Separator is the line dividing a page header from its content
const Separator = "---"

// Page is one parsed script page
type Page struct {
	FrontMatter
	Name    string   // file name of the page inside the script directory
	Path    string   // full path of the page file
	Content []string // chunks typed back to back
}

// Text returns the content chunks joined with no separator
func (p Page) Text() string {
	return strings.Join(p.Content, "")
}

// Load reads every page in dir in directory listing order.
// A missing or empty directory is not an error: warn is called and no pages
// are returned. Any page failing to parse or validate aborts the whole load.
func Load(dir string, warn func(msg string)) ([]Page, error) {
	log := logging.WithComponent("script")

	if warn == nil {
		warn = func(string) {}
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("The script directory %s does not exist. Nothing for auto-type to do.", dir)
		log.Warn("script directory missing", slog.String("dir", dir))
		warn(msg)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read script directory %s: %w", dir, err)
	}

	var pages []Page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, err := ParsePage(dir, entry.Name())
		if err != nil {
			log.Warn("script page rejected", slog.String("page", entry.Name()), slog.Any("err", err))
			return nil, err
		}
		pages = append(pages, page)
	}

	if len(pages) == 0 {
		msg := fmt.Sprintf("No script pages found in %s. Nothing for auto-type to do.", dir)
		log.Warn("script directory empty", slog.String("dir", dir))
		warn(msg)
		return nil, nil
	}

	log.Debug("script loaded", slog.String("dir", dir), slog.Int("pages", len(pages)))
	return pages, nil
}

// ParsePage reads and validates the page called name inside dir
func ParsePage(dir, name string) (Page, error) {
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return Page{}, &PageError{Path: path, Err: err}
	}

	header, body := SplitPage(string(data))

	fm, err := ParseFrontMatter(header)
	if err != nil {
		return Page{}, &PageError{Path: path, Err: err}
	}

	page := Page{
		FrontMatter: fm,
		Name:        name,
		Path:        path,
	}
	if body != "" {
		page.Content = []string{body}
	}

	if page.File == "" {
		return Page{}, &PageError{Path: path, Err: ErrMissingFileProperty}
	}
	if !exists(page.File) && !exists(filepath.Join(dir, "..", page.File)) {
		return Page{}, &PageError{Path: path, Err: fmt.Errorf("%w %s", ErrTargetFileNotFound, page.File)}
	}

	return page, nil
}

// SplitPage separates the header from the content at the first line holding
// only the separator. Later separator lines stay in the content.
func SplitPage(text string) (header, body string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	header, body, found := strings.Cut(text, "\n"+Separator+"\n")
	if !found {
		return text, ""
	}
	return header, body
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
