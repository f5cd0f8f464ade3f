package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/toolshare/internal/model"
	webembed "github.com/erazemk/toolshare/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"date":    formatDate,
		"actions": model.ActionsFor,
		"actionLabel": func(action string) string {
			switch action {
			case model.ActionApprove:
				return "Approve"
			case model.ActionReject:
				return "Reject"
			case model.ActionReturned:
				return "Mark Returned"
			default:
				return action
			}
		},
		"statusName": func(status string) string {
			if status == "" {
				return status
			}
			return strings.ToUpper(status[:1]) + status[1:]
		},
		"add": func(a, b int) int { return a + b },
	}
}

// formatDate renders a date for display, or "-" when it is unset.
func formatDate(v any) string {
	const layout = "Jan 2, 2006"
	switch d := v.(type) {
	case *model.Date:
		if d == nil {
			return "-"
		}
		return d.Format(layout)
	case model.Date:
		return d.Format(layout)
	case time.Time:
		if d.IsZero() {
			return "-"
		}
		return d.Format(layout)
	default:
		return "-"
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	// Read layout.
	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"signup.html",
		"logout.html",
		"dashboard.html",
		"add_tool.html",
		"my_tools.html",
		"borrow_tool.html",
		"my_requests.html",
		"incoming_requests.html",
		"borrowed_tools.html",
		"lent_tools.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}
