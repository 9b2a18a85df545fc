package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inkpost/app/middleware"
	"inkpost/app/models"
	"inkpost/app/services"

	"go.uber.org/zap"
)

const flashCookie = "inkpost_flash"

// pages maps a template name to the files parsed alongside the layout.
var pages = map[string][]string{
	"posts/index":          {"posts/index.html", "shared/pagination.html"},
	"posts/show":           {"posts/show.html", "shared/comments.html"},
	"posts/form":           {"posts/form.html"},
	"posts/confirm_delete": {"posts/confirm_delete.html"},
	"posts/mine":           {"posts/mine.html"},
	"accounts/login":       {"accounts/login.html"},
	"accounts/register":    {"accounts/register.html"},
	"accounts/profile":     {"accounts/profile.html"},
	"admin/index":          {"admin/index.html"},
	"admin/changelist":     {"admin/changelist.html"},
}

// Page is the data every template receives.
type Page struct {
	Title  string
	Site   string
	Caller services.Caller
	Flash  string
	Next   string
	Data   any
	Form   any
	Errors map[string]string
}

// Renderer executes the page templates inside the shared layout.
type Renderer struct {
	templates map[string]*template.Template
	site      string
	log       *zap.Logger
}

// NewRenderer parses every page from fsys. site is the blog title shown in
// the header.
func NewRenderer(fsys fs.FS, site string, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.L()
	}
	templates := make(map[string]*template.Template, len(pages))
	for name, files := range pages {
		patterns := append([]string{"layout.html", "shared/errors.html"}, files...)
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, patterns...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return &Renderer{templates: templates, site: site, log: log}, nil
}

// HTML renders the named page with the given status. Rendering happens
// into a buffer so a template error still produces a clean 500.
func (rd *Renderer) HTML(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := rd.templates[name]
	if !ok {
		rd.log.Error("unknown template", zap.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page.Site = rd.site
	page.Caller = middleware.CallerFrom(r.Context())
	page.Flash = takeFlash(w, r)
	if page.Errors == nil {
		page.Errors = map[string]string{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		rd.log.Error("template error",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("template", name),
			zap.Error(err),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("January 2, 2006")
	},
	"linebreaks": func(s string) template.HTML {
		escaped := template.HTMLEscapeString(s)
		escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	},
	"truncate": truncateWords,
	"tags":     splitTags,
	"statuses": func() []models.Status { return models.Statuses },
	"int":      func(s models.Status) int { return int(s) },
	"join":     strings.Join,
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

// base holds what every controller shares.
type base struct {
	render *Renderer
	log    *zap.Logger
}

func newBase(render *Renderer, log *zap.Logger) base {
	if log == nil {
		log = zap.L()
	}
	return base{render: render, log: log}
}

func (b base) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (b base) sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if middleware.WantsJSON(r) {
		b.sendJSON(w, status, map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}

func (b base) sendValidation(w http.ResponseWriter, ve *services.ValidationError) {
	b.sendJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": ve.Fields})
}

func (b base) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	b.sendError(w, r, "Method Not Allowed", http.StatusMethodNotAllowed)
}

// fail maps a service error onto a response. Validation errors reaching
// this point are answered as JSON; HTML forms re-render before calling it.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := services.AsValidationError(err); ok {
		if middleware.WantsJSON(r) {
			b.sendValidation(w, ve)
			return
		}
		b.sendError(w, r, ve.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		middleware.RedirectToLogin(w, r)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrInvalidPage):
		b.sendError(w, r, "Not Found", http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		b.sendError(w, r, "Forbidden", http.StatusForbidden)
	default:
		b.log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		b.sendError(w, r, "Internal Server Error", http.StatusInternalServerError)
	}
}

// decode reads a JSON body into dst, or hands a submitted form to fromForm.
func decode(r *http.Request, dst any, fromForm func(url.Values)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form body: %w", err)
	}
	fromForm(r.PostForm)
	return nil
}
