package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"expensetracker/internal/auth"
	applog "expensetracker/internal/log"
)

const flashCookie = "flash"

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// pageData is what every full-page template receives.
type pageData struct {
	Title   string
	User    *auth.Claims
	Flash   *Flash
	Content any
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	funcs := template.FuncMap{
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
	return template.New("").Funcs(funcs).ParseFS(fsys, "templates/*.html")
}

// setFlash stores a message for the next page the browser renders.
func setFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    kind + "." + base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending message.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	kind, encoded, ok := strings.Cut(c.Value, ".")
	if !ok {
		return nil
	}
	msg, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	switch kind {
	case FlashSuccess, FlashError, FlashInfo:
	default:
		return nil
	}
	return &Flash{Kind: kind, Message: string(msg)}
}

// redirectWithFlash answers a form post with 303 See Other.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, message string) {
	setFlash(w, r, kind, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// render executes a full-page template. A flash passed in wins over one
// waiting in the cookie, which then stays for the next page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, content any, flash *Flash) {
	if flash == nil {
		flash = popFlash(w, r)
	}
	data := pageData{
		Title:   title,
		User:    auth.UserFromContext(r.Context()),
		Flash:   flash,
		Content: content,
	}
	s.executeTemplate(w, r, status, name, data)
}

// executeTemplate renders into a buffer first so a template error still
// produces a clean 500.
func (s *Server) executeTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFragment renders a partial into a string for the response builder.
func (s *Server) renderFragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
