package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digkill/artrelay/internal/models"
	"github.com/digkill/artrelay/internal/service"
)

// UserService, PaymentService and TransformService are implemented by the
// types of the same name in the service package.
type UserService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	CreateOrUpdate(ctx context.Context, id string, fields map[string]any) (*models.User, error)
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	ListImages(ctx context.Context, userID string) ([]models.ImageRecord, error)
}

type PaymentService interface {
	CreateOrder(ctx context.Context, price float64, userID string, credits int) (*service.OrderResult, error)
	VerifyPayment(ctx context.Context, in service.VerifyInput) (int, error)
}

type TransformService interface {
	Transform(ctx context.Context, req service.TransformRequest) (*service.TransformResult, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Config struct {
	Addr       string
	Production bool
	// UploadDir is served under /uploads/ when set.
	UploadDir             string
	CORSAllowedOrigins    []string
	UploadRateLimitPerMin int
	MetricsUsername       string
	MetricsPassword       string
}

type Server struct {
	cfg        Config
	log        *slog.Logger
	users      UserService
	payments   PaymentService
	transforms TransformService
	db         Pinger
	router     *chi.Mux
}

func NewServer(cfg Config, log *slog.Logger, db Pinger, users UserService, payments PaymentService, transforms TransformService) *Server {
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:        cfg,
		log:        log,
		users:      users,
		payments:   payments,
		transforms: transforms,
		db:         db,
		router:     r,
	}

	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Group(func(protected chi.Router) {
		if cfg.MetricsUsername != "" {
			protected.Use(s.basicAuthMiddleware())
		}
		protected.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/create", s.handleCreateUser)
		r.Get("/user/{userId}", s.handleGetUser)
		r.Get("/user/{userId}/transactions", s.handleListTransactions)
		r.Get("/user/{userId}/images", s.handleListImages)

		r.Post("/create-order", s.handleCreateOrder)
		r.Post("/verify-payment", s.handleVerifyPayment)

		r.With(s.uploadRateLimit()).Post("/upload-image", s.handleUploadImage)
		r.Post("/generate-image", s.handleGenerateImageRetired)
	})

	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(uploadsFS{root: http.Dir(cfg.UploadDir)})))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Vision plus generation calls can hold a response open for minutes.
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) uploadRateLimit() func(http.Handler) http.Handler {
	if s.cfg.UploadRateLimitPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.UploadRateLimitPerMin,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.writeError(w, r, errRateLimited)
		}),
	)
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.cfg.MetricsUsername || pass != s.cfg.MetricsPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="artrelay"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
