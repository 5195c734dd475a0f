package http

import (
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const (
	loginForm    = "login"
	registerForm = "register"
)

// handleLogin shows the login form and signs users in.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	def, err := s.forms.Get(loginForm)
	if err != nil {
		InternalServerError("Login form unavailable").Write(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if auth.UserFromContext(r.Context()) != nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		s.showForm(w, r, def)
	case http.MethodPost:
		page, ok := s.submitForm(w, r, def)
		if !ok {
			return
		}
		values := page.Values()
		token, user, err := s.auth.Login(r.Context(), strings.TrimSpace(values["username"]), values["password"])
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				s.renderForm(w, r, http.StatusUnauthorized, def, page, &Flash{Kind: FlashError, Message: "Invalid username or password"})
				return
			}
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Login failed", applog.FieldError, err)
			s.renderForm(w, r, http.StatusInternalServerError, def, page, &Flash{Kind: FlashError, Message: "Login failed. Please try again."})
			return
		}
		auth.SetCookie(w, r, token, s.auth.TTL())
		redirectWithFlash(w, r, "/dashboard", FlashSuccess, "Welcome back, "+user.Username+"!")
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// handleRegister shows the registration form and creates accounts.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	def, err := s.forms.Get(registerForm)
	if err != nil {
		InternalServerError("Registration form unavailable").Write(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.showForm(w, r, def)
	case http.MethodPost:
		page, ok := s.submitForm(w, r, def)
		if !ok {
			return
		}
		values := page.Values()
		_, err := s.auth.Register(r.Context(), strings.TrimSpace(values["username"]), strings.TrimSpace(values["email"]), values["password"])
		switch {
		case err == nil:
			redirectWithFlash(w, r, "/login", FlashSuccess, "Registration successful! Please login.")
		case errors.Is(err, core.ErrUserExists),
			errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrWeakPassword):
			s.renderForm(w, r, http.StatusUnprocessableEntity, def, page, &Flash{Kind: FlashError, Message: sentence(err.Error())})
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Registration failed", applog.FieldError, err)
			s.renderForm(w, r, http.StatusInternalServerError, def, page, &Flash{Kind: FlashError, Message: "Registration failed. Please try again."})
		}
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	auth.ClearCookie(w, r)
	redirectWithFlash(w, r, "/", FlashInfo, "You have been logged out.")
}

// sentence upper-cases the first letter of an error message for display.
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
