package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"dayplan/internal/core"
	applog "dayplan/internal/log"
	"dayplan/internal/middleware/cors"
	"dayplan/internal/middleware/ratelimit"
	"dayplan/internal/middleware/security"
	"dayplan/internal/middleware/trace"
)

// Planner is the application surface the handlers drive.
type Planner interface {
	Users(ctx context.Context) ([]core.User, error)
	CreateUser(ctx context.Context, username string) (core.User, error)
	DeleteUser(ctx context.Context, id int64) error
	DayData(ctx context.Context, date string, userID int64) (core.DayData, error)
	CreateTodo(ctx context.Context, t core.NewTodo) (int64, error)
	ToggleTodo(ctx context.Context, id int64) error
	DeleteTodo(ctx context.Context, id int64) error
	CreateTransaction(ctx context.Context, t core.NewTransaction) (int64, error)
	DeleteTransaction(ctx context.Context, id int64) error
	YearStats(ctx context.Context, year int, userID int64) ([]core.Transaction, error)
	CategoryStats(ctx context.Context, year, month int, userID int64) ([]core.CategoryTotal, error)
	Export(ctx context.Context, start, end string, userID int64) (core.ExportData, error)
	ExportToSheet(ctx context.Context, start, end string, userID int64) (string, int, error)
	Ready(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Addr              string
	CORSAllowedOrigin string
	RateLimitPerMin   int
	Logger            *applog.Logger
}

type Server struct {
	http.Server
	planner Planner
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
	now          func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, planner Planner) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = opts.RateLimitPerMin

	s := &Server{
		planner: planner,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		limiter: ratelimit.NewLimiter(rlCfg),
		now:     time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, clientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("DELETE /api/users/{id}", s.handleDeleteUser)

	mux.HandleFunc("GET /api/data", s.handleDayData)

	mux.HandleFunc("POST /api/todos", s.handleCreateTodo)
	mux.HandleFunc("PUT /api/todos/{id}/toggle", s.handleToggleTodo)
	mux.HandleFunc("DELETE /api/todos/{id}", s.handleDeleteTodo)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/stats", s.handleYearStats)
	mux.HandleFunc("GET /api/category-stats", s.handleCategoryStats)
	mux.HandleFunc("GET /api/export", s.handleExportCSV)
	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(clientIP, s.handleRateLimited)(handler)
	handler = cors.Middleware(opts.CORSAllowedOrigin)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// Metrics exposes the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		m := s.Metrics()
		s.logger.Info("HTTP server shutting down",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.Rejected())
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.planner.Ready(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, clientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody("rate limit exceeded, please try again later"))
}

// clientIP extracts the caller address, considering proxies.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
