package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/multitemplate"

	"examview-server/utils"
)

//go:embed html/*.html
var files embed.FS

//go:embed static
var staticFiles embed.FS

// Page names passed to gin's c.HTML.
const (
	ExamPage           = "exam_page"
	QuestionsFragment  = "questions_fragment"
	AdminDashboardPage = "admin_dashboard"
	AdminErrorLogsPage = "admin_error_logs"
	ErrorPage          = "error_page"
)

// pages lists each page's files; the first one is executed.
var pages = map[string][]string{
	ExamPage:           {"layout.html", "exam.html", "questions.html", "sidebar.html"},
	QuestionsFragment:  {"questions.html"},
	AdminDashboardPage: {"layout.html", "admin_dashboard.html"},
	AdminErrorLogsPage: {"layout.html", "admin_error_logs.html"},
	ErrorPage:          {"layout.html", "error.html"},
}

// FuncMap is available to every page.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"markup": utils.RenderMarkup,
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04 MST")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"shortsum": func(s string) string {
			if len(s) > 12 {
				return s[:12]
			}
			return s
		},
	}
}

// Parse builds one named page from the embedded files.
func Parse(name string) (*template.Template, error) {
	names, ok := pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	patterns := make([]string, len(names))
	for i, n := range names {
		patterns[i] = path.Join("html", n)
	}
	tmpl, err := template.New(names[0]).Funcs(FuncMap()).ParseFS(files, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
	}
	return tmpl, nil
}

// NewRenderer registers every page with a gin multitemplate renderer.
func NewRenderer() (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()
	for name := range pages {
		tmpl, err := Parse(name)
		if err != nil {
			return nil, err
		}
		r.Add(name, tmpl)
	}
	return r, nil
}

// StaticFS serves the client script the layout links to.
func StaticFS() (http.FileSystem, error) {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}
	return http.FS(sub), nil
}
