package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"eoranica/internal/core"
	"eoranica/internal/log"
	"eoranica/internal/middleware/ratelimit"
	"eoranica/internal/middleware/security"
	"eoranica/internal/middleware/trace"
	"eoranica/internal/ports"
	appweb "eoranica/web"
)

// SummaryProvider is satisfied by *services.DashboardService.
type SummaryProvider interface {
	Summary(ctx context.Context) (core.DashboardSummary, error)
	// Latest returns the report worker's last saved summary.
	Latest(ctx context.Context) (core.DashboardSummary, time.Time, error)
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type appMetrics struct {
	started   time.Time
	writes    atomic.Int64
	summaries atomic.Int64
	failures  atomic.Int64
}

type Server struct {
	http.Server
	templates *template.Template
	farm      ports.Repository
	dashboard SummaryProvider
	logger    *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"euros": func(m core.Money) string { return formatEuros(m.Cents) },
	"date":  formatDate,
}

// NewServer wires routes, middleware and templates into an http.Server.
// farm is normally a *services.FarmService so writes publish change events.
func NewServer(addr string, farm ports.Repository, dashboard SummaryProvider) *Server {
	mux := http.NewServeMux()
	logger := log.FromSlog(nil, log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		farm:             farm,
		dashboard:        dashboard,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: security.NewDetector(),
		appMetrics:       appMetrics{started: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/summary", s.handleSummarizeSnapshot)
	mux.HandleFunc("GET /api/summary/latest", s.handleLatestSummary)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.registerResources(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(mux)
	s.Handler = s.traceMiddleware.Middleware(
		headers.Middleware(
			s.securityDetector.Middleware(limited)))

	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)

	var b *ResponseBuilder
	if wantsJSON(r) {
		b = JSONError(http.StatusTooManyRequests, "rate limit exceeded")
	} else {
		b = ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}
	b.Header("Retry-After", "60").Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// fail logs err and answers with the status it maps to, as JSON or HTML.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.appMetrics.failures.Add(1)
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		msg = "internal error"
	}
	if wantsJSON(r) {
		JSONError(status, msg).Write(w)
		return
	}
	ErrorResponse(status, msg).Write(w)
}

// render executes a page template; templates missing at startup give a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldOperation, log.OpRender)
		InternalServerError("failed to render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
