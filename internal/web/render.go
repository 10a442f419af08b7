package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/config"
	"github.com/hyesung/opsbundle/internal/errors"
	"github.com/hyesung/opsbundle/internal/linktree"
	"github.com/hyesung/opsbundle/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title    string
	Version  string
	Nav      string // active nav item: "bundles", "links"
	Dataset  config.Dataset
	Datasets config.Datasets
}

// ListPageData is the template data for the bundle list page.
type ListPageData struct {
	PageData
	Bundles   []bundle.Bundle
	Keywords  []string
	Name      string
	Keyword   string
	Filtered  bool
	Imported  int
	Skipped   int
	HasImport bool
}

// MemoView is one command row on the detail page with its memo text
// rendered as markdown.
type MemoView struct {
	CommandID     int
	CommandText   string
	Description   string
	MemoText      string
	MemoHTML      template.HTML
	ReferenceLink string
}

// DetailPageData is the template data for the bundle detail page.
type DetailPageData struct {
	PageData
	Bundle       *bundle.Bundle
	Memos        []MemoView
	Links        []ops.ResolvedLink
	ErrorMessage string
}

// FormPageData is the template data for the create and edit forms.
type FormPageData struct {
	PageData
	Action       string
	Fields       ops.BundleFields
	IsEdit       bool
	ErrorMessage string
}

// LinksPageData is the template data for the links page.
type LinksPageData struct {
	PageData
	Links        []ops.ResolvedLink
	Tree         []*linktree.View
	Unmatched    []bundle.LinkEntry
	ErrorMessage string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":         func(a, b int) int { return a + b },
		"formatTime":  formatTime,
		"joinStrings": func(values []string) string { return strings.Join(values, ", ") },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"list":   "list.html",
		"detail": "detail.html",
		"form":   "form.html",
		"links":  "links.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error, page PageData) {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewStorage(err)
	}

	status := appErr.Status
	message := appErr.Message

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    string(appErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	page.Title = fmt.Sprintf("Error %d", status)
	page.Version = r.version
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   page,
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
