package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/naukovi-znahidky/client/types"
	"go.uber.org/zap"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var pageNames = []string{
	"home", "login", "register", "contents", "content", "editor",
	"users", "user", "profile", "error",
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

// page is the data every template receives.
type page struct {
	Title  string
	Viewer *types.User
	Error  string
	Data   any
}

// commentAction feeds the delete button of one comment.
type commentAction struct {
	Comment types.Comment
	Slug    string
	Own     bool
}

func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := bluemonday.UGCPolicy()
	funcs := template.FuncMap{
		// rich renders user-written text: markup is sanitised and line
		// breaks are kept.
		"rich": func(s string) template.HTML {
			return template.HTML(strings.ReplaceAll(policy.Sanitize(s), "\n", "<br>\n"))
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02.01.2006")
		},
		"contentTypes": func() []types.ContentType { return types.ContentTypes },
		"statuses":     func() []types.ContentStatus { return types.ContentStatuses },
		"roles": func() []types.Role {
			return []types.Role{types.RoleStudent, types.RoleTeacher, types.RoleResearcher}
		},
		"educationLevels": func() []types.EducationLevel {
			return []types.EducationLevel{
				types.EducationIncompleteSecondary, types.EducationSecondary, types.EducationBachelor,
				types.EducationMaster, types.EducationPhD, types.EducationDoctor,
			}
		},
		"commentAction": func(p page, c types.Comment) commentAction {
			a := commentAction{Comment: c, Own: p.Viewer != nil && p.Viewer.ID == c.Author.ID}
			if d, ok := p.Data.(contentData); ok {
				a.Slug = d.Item.Data.Slug
			}
			return a
		},
		"nextPage": func(n int) int { return max(n, 1) + 1 },
		"prevPage": func(n int) int { return max(n-1, 1) },
		"pageQuery": func(f types.ContentFilter, n int) string {
			f.Page = n
			return f.Query().Encode()
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.gohtml").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.gohtml", "templates/"+name+".gohtml")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes the page. Templates are executed into a buffer before
// any header is sent.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data page) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown template", zap.String("name", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.logger.Error("render template", zap.String("name", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
