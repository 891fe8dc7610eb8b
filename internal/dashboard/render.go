package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/internal/identity"
)

//go:embed templates/*.html
var templateFS embed.FS

var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

// renderMarkdown converts announcement markdown to HTML. Raw HTML in the
// source is dropped by goldmark's default (unsafe-off) renderer.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

var funcs = template.FuncMap{
	"markdown": renderMarkdown,
	"amount":   booking.FormatAmount,
	"join":     strings.Join,
}

// page is what every template receives.
type page struct {
	Principal *identity.Principal
	CSRFField template.HTML
	Flash     string
	Data      any
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := strings.TrimPrefix(name, "templates/")
		if base == "layout.html" {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", base, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	s.renderFlash(w, r, status, name, "", data)
}

func (s *Server) renderFlash(w http.ResponseWriter, r *http.Request, status int, name, flash string, data any) {
	t, ok := s.pages.pages[name]
	if !ok {
		http.Error(w, "unknown page "+name, http.StatusInternalServerError)
		return
	}
	view := page{
		Principal: s.sessions.CurrentPrincipal(),
		CSRFField: csrf.TemplateField(r),
		Flash:     flash,
		Data:      data,
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		log.Printf("dashboard: render %s: %v", name, err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
