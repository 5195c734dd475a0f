package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/formguard"
	"expensetracker/internal/forms"
	"expensetracker/internal/kv"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
	appweb "expensetracker/web"
)

// Readiness reports whether the storage behind the server can serve.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Options wires the server to its collaborators. Ready and Caches may be nil.
type Options struct {
	Addr          string
	Logger        *applog.Logger
	Expenses      *services.ExpenseService
	Auth          *auth.Service
	Forms         *forms.Registry
	Taxonomy      sheets.TaxonomyReader
	Drafts        kv.Store
	DraftDebounce time.Duration
	Ready         Readiness
	Caches        *cache.Manager
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	expenses  *services.ExpenseService
	auth      *auth.Service
	forms     *forms.Registry
	taxonomy  sheets.TaxonomyReader
	guard     *formguard.Guard
	drafts    *draftSessions
	sanitizer *textSanitizer
	ready     Readiness

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	started         time.Time
	expensesCreated atomic.Int64
	now             func() time.Time
	shutdownOnce    sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Expenses == nil || opts.Auth == nil || opts.Forms == nil || opts.Drafts == nil {
		return nil, errors.New("http: expenses, auth, forms and drafts are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	t, err := parseTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:   t,
		logger:      logger,
		expenses:    opts.Expenses,
		auth:        opts.Auth,
		forms:       opts.Forms,
		taxonomy:    opts.Taxonomy,
		guard:       formguard.New(logger.Logger),
		drafts:      newDraftSessions(opts.Drafts, opts.DraftDebounce, logger.Logger),
		sanitizer:   newTextSanitizer(),
		ready:       opts.Ready,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		started:     time.Now(),
		now:         time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	if opts.Caches != nil {
		opts.Caches.Register(s.drafts)
	}

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.HandleFunc("/dashboard", s.requireUser(s.handleDashboard))
	mux.HandleFunc("/add_expense", s.requireUser(s.handleAddExpense))
	mux.HandleFunc("/view_expenses", s.requireUser(s.handleViewExpenses))
	mux.HandleFunc("/view_expenses/export.csv", s.requireUser(s.handleExportCSV))
	mux.HandleFunc("/api/expenses/summary", s.requireUser(s.handleSummaryAPI))

	// Form behaviour endpoints driven by htmx.
	mux.HandleFunc("/ui/forms/{key}/{action}", s.handleFormEvent)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// middleware wraps h, outermost first: tracing, request logger, security
// headers, scanner detection, rate limiting of form posts, session lookup.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = security.NoStore(h)
	h = s.auth.Middleware(h)
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, skipRateLimit, s.onRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(s.logger, trace.RequestID)(h)
	return s.tracer.Middleware(h)
}

// skipRateLimit exempts reads and the per-keystroke form endpoints; logins,
// registrations and submissions are limited.
func skipRateLimit(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/ui/")
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// requireUser lets signed-in requests through. Pages redirect to the login
// form with a flash; API and fragment requests get 401.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		if user != nil {
			next(w, r, user)
			return
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/"):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		case r.Header.Get("HX-Request") == "true":
			NewHTMXResponse().Redirect("/login").Status(http.StatusUnauthorized).Write(w)
		default:
			redirectWithFlash(w, r, "/login", FlashInfo, "Please login to access this page.")
		}
	}
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
