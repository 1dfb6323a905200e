package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/yuin/goldmark"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

type serverOption func(*server)

func withAddr(addr string) serverOption {
	return func(s *server) {
		s.addr = addr
	}
}

func withAnalyzer(analyzer *pdfask.Analyzer) serverOption {
	return func(s *server) {
		s.analyzer = analyzer
	}
}

// withRateLimit bounds analysis requests across all clients. A zero limit
// disables limiting.
func withRateLimit(limit float64, burst int) serverOption {
	return func(s *server) {
		if limit <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

func withCORSOrigins(origins []string) serverOption {
	return func(s *server) {
		s.corsOrigins = origins
	}
}

func withTimeout(timeout time.Duration) serverOption {
	return func(s *server) {
		s.timeout = timeout
	}
}

func withLogger(logger *slog.Logger) serverOption {
	return func(s *server) {
		s.logger = logger
	}
}

type server struct {
	addr        string
	analyzer    *pdfask.Analyzer
	limiter     *rate.Limiter
	corsOrigins []string
	timeout     time.Duration
	logger      *slog.Logger
	markdown    goldmark.Markdown
	router      *chi.Mux
	root        http.Handler
}

func newServer(opts ...serverOption) *server {
	s := &server{
		addr:        ":8080",
		analyzer:    pdfask.New(nil),
		corsOrigins: []string{"*"},
		logger:      slog.Default(),
		markdown:    goldmark.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequest)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/render", s.handleRender)
	r.Get("/", s.handleForm)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/api/analyze", s.handleAnalyze)
		r.Post("/", s.handleFormSubmit)
	})

	s.router = r
	s.root = otelhttp.NewHandler(r, "pdfask",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}

// logRequest puts a request scoped logger into the context and logs the
// outcome of each request.
func (s *server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With(slog.String("request_id", middleware.GetReqID(r.Context())))
		ctx := ctxlog.With(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handler() http.Handler {
	return s.root
}

func (s *server) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", s.addr))
	}

	addr := listener.Addr().String()
	s.logger.Info("starting pdfask server", slog.String("addr", addr), slog.String("url", "http://"+addr))

	srv := &http.Server{
		Handler:           s.root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to shut down server", slog.Any("error", err))
		}
	}()

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return goerr.Wrap(err, "server error")
	}

	return nil
}
