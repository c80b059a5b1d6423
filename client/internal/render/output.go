package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// pageMode is the permission of the written page, readable by a web server.
const pageMode os.FileMode = 0o644

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Monitor status</title>
</head>
<body{{with .Class}} class="{{.}}"{{end}}>
<div id="app-container">{{if .Class}}<div class="{{.Class}}">{{.Content}}</div>{{else}}{{.Content}}{{end}}</div>
</body>
</html>
`))

// HTMLFile rewrites a static page holding the display content on every
// update. The payload is inserted unescaped.
type HTMLFile struct {
	Path string
}

type pageData struct {
	Class   string
	Content template.HTML
}

// Write renders s into the page and atomically replaces the file.
func (h *HTMLFile) Write(s State) error {
	var buf bytes.Buffer
	data := pageData{
		Class:   string(s.Class),
		Content: template.HTML(s.Content), //nolint:gosec // monitor output is trusted and rendered verbatim
	}
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render: execute page: %w", err)
	}

	dir := filepath.Dir(h.Path)
	tmp, err := os.CreateTemp(dir, ".statuswatch-*.html")
	if err != nil {
		return fmt.Errorf("render: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("render: write temp: %w", err)
	}
	// CreateTemp opens 0600; the page is served by whatever reads path.
	if err := tmp.Chmod(pageMode); err != nil {
		tmp.Close()
		return fmt.Errorf("render: chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("render: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.Path); err != nil {
		return fmt.Errorf("render: replace %s: %w", h.Path, err)
	}
	return nil
}

// Writer prints one line per update to an io.Writer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer output on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write prints the update time, class and content.
func (o *Writer) Write(s State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	class := string(s.Class)
	if class == "" {
		class = "-"
	}
	_, err := fmt.Fprintf(o.w, "%s [%s] %s\n", s.UpdatedAt.Format(time.RFC3339), class, s.Content)
	return err
}
