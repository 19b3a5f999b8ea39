package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"feedback-portal/internal/types/analytics"
	"feedback-portal/internal/types/feedback"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var files embed.FS

const (
	PageLogin     = "login"
	PageRegister  = "register"
	PageHome      = "home"
	PageFeedback  = "feedback"
	PageAnalytics = "analytics"
	PageForbidden = "forbidden"
)

var pages = []string{
	PageLogin,
	PageRegister,
	PageHome,
	PageFeedback,
	PageAnalytics,
	PageForbidden,
}

// Page - данные для шаблона. Отзывы уже отфильтрованы по роли
type Page struct {
	Title         string
	Authenticated bool
	Username      string
	Admin         bool
	CSRFField     template.HTML
	Error         string
	Notice        string

	Feedback  feedback.Collection
	Analytics *analytics.Analytics
	Loaded    bool
	LoadedAt  time.Time
}

type Renderer struct {
	templates map[string]*template.Template
	Logger    *zap.SugaredLogger
}

func NewRenderer(logger *zap.SugaredLogger) (*Renderer, error) {
	funcs := template.FuncMap{
		"timestamp": formatTimestamp,
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New("layout.html").
			Funcs(funcs).
			ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		Logger:    logger,
	}, nil
}

// Render рисует страницу целиком в буфер, чтобы ошибка шаблона не оставила полстраницы
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) {
	t, ok := r.templates[name]
	if !ok {
		r.Logger.Errorw("Unknown page", "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		r.Logger.Errorw("Failed to render page", "page", name, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.Logger.Warnw("Failed to write page", "page", name, zap.Error(err))
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// formatTimestamp - время отзыва в читаемом виде; нераспознанную строку показываем как есть
func formatTimestamp(raw string) string {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Format("02 Jan 2006 15:04")
		}
	}
	return raw
}
