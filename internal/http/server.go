package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"kaskelas/internal/cache"
	"kaskelas/internal/log"
	"kaskelas/internal/middleware/ratelimit"
	"kaskelas/internal/middleware/security"
	"kaskelas/internal/middleware/trace"
	"kaskelas/internal/services"
	"kaskelas/internal/session"
	"kaskelas/internal/store"
	"kaskelas/internal/view"
	appweb "kaskelas/web"
)

// Deps are the collaborators the server renders from and writes through.
type Deps struct {
	Store    store.Store // writes go through here so changes fan out
	View     *view.Controller
	Sessions *session.Manager
	Policy   session.Policy
	Caches   *cache.Manager // sweeps expired sessions when set
	Ready    func(context.Context) error

	Cohort         string
	PublicBaseURL  string
	TrustedProxies []string
	RateLimit      ratelimit.Config
	Logger         *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template

	view     *view.Controller
	sessions *session.Manager
	policy   session.Policy
	ready    func(context.Context) error

	payments *services.PaymentService
	students *services.StudentService
	expenses *services.ExpenseService

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	feed     *Feed

	cohort        string
	publicBaseURL string
	logger        *log.Logger
	now           func() time.Time
	started       time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Store == nil || d.View == nil || d.Sessions == nil {
		return nil, errors.New("http server needs a store, a view controller and a session manager")
	}
	if d.Logger == nil {
		d.Logger = log.New(log.DefaultConfig())
	}
	if d.Ready == nil {
		d.Ready = func(context.Context) error { return nil }
	}
	logger := d.Logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector(d.Logger)
	for _, cidr := range d.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		templates:     t,
		view:          d.View,
		sessions:      d.Sessions,
		policy:        d.Policy,
		ready:         d.Ready,
		payments:      services.NewPaymentService(d.Store, d.Logger),
		students:      services.NewStudentService(d.Store, d.Logger),
		expenses:      services.NewExpenseService(d.Store, d.Logger),
		detector:      detector,
		limiter:       ratelimit.NewLimiter(d.RateLimit),
		tracer:        trace.NewMiddleware(detector.ExtractClientIP, d.Logger),
		cohort:        d.Cohort,
		publicBaseURL: d.PublicBaseURL,
		logger:        logger,
		now:           time.Now,
		started:       time.Now(),
	}
	if s.policy.MaxAttempts <= 0 {
		s.policy = session.DefaultPolicy()
	}
	s.feed = NewFeed(d.View, d.Logger)
	if d.Caches != nil {
		d.Caches.Register("sessions", d.Sessions.Cleaner())
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, ratelimit.UnsafeMethods, nil)(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig(), detector.Scheme).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.HandleFunc("GET /ui/students", s.handleStudentSearch)
	mux.HandleFunc("GET /ui/students/{id}", s.handleStudentDetail)
	mux.HandleFunc("GET /ui/snapshot", s.handleSnapshotPartial)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /admin/pending", s.requireAdmin(s.handlePendingPartial))
	mux.HandleFunc("GET /admin/students", s.requireAdmin(s.handleStudentTable))
	mux.HandleFunc("POST /admin/payments/{id}/approve", s.requireAdmin(s.handleApprove))
	mux.HandleFunc("POST /admin/payments/{id}/reject", s.requireAdmin(s.handleReject))
	mux.HandleFunc("POST /admin/expenses", s.requireAdmin(s.handleAddExpense))
	mux.HandleFunc("POST /admin/students", s.requireAdmin(s.handleCreateStudent))
	mux.HandleFunc("POST /admin/students/{id}", s.requireAdmin(s.handleUpdateStudent))
	mux.HandleFunc("POST /admin/students/{id}/delete", s.requireAdmin(s.handleDeleteStudent))
	mux.HandleFunc("GET /admin/export", s.requireAdmin(s.handleExport))
	mux.HandleFunc("GET /admin/share", s.requireAdmin(s.handleShare))

	mux.HandleFunc("GET /ws", s.feed.ServeHTTP)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
}

// Shutdown stops background loops, closes websocket clients and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.feed.Close()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a named template into a buffer so a failure never leaves
// a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Gagal menampilkan halaman.").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// renderString executes a fragment for use as an HTMX response body.
func (s *Server) renderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
