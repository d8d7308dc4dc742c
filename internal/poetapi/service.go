// Package poetapi exposes the enclave's ten operations over HTTP, in the
// same chi-router, JWT-gated-admin-routes shape the teacher's API service
// uses for its own functions/secrets/gasbank surface.
package poetapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/poet-enclave/simulator/internal/poetenclave"
)

// Config configures Service. Zero values are filled in by NewService with
// the same defaults internal/common/config.Load already applies; this lets
// a caller construct a Service directly in tests without going through
// config.Load.
type Config struct {
	Host                   string
	Port                   int
	EnableCORS             bool
	AllowedOrigins         []string
	JWTSecret              string
	RateLimitPerMinute     int
	DefaultMinimumWaitTime float64
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
}

// Service is the PoET enclave HTTP surface: one chi router, one enclave
// core, one JWT verifier for the admin-only unseal route.
type Service struct {
	config    Config
	core      *poetenclave.EnclaveCore
	router    *chi.Mux
	server    *http.Server
	tokenAuth *jwtauth.JWTAuth
	log       *logrus.Logger
	limiters  *rateLimiterMap
	startedAt time.Time
}

// NewService constructs a Service bound to core. config fields left at
// their zero value are defaulted the same way internal/common/config does.
func NewService(config Config, core *poetenclave.EnclaveCore, log *logrus.Logger) (*Service, error) {
	if core == nil {
		return nil, errors.New("enclave core cannot be nil")
	}
	if log == nil {
		log = logrus.New()
	}

	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port <= 0 {
		config.Port = 8080
	}
	if config.JWTSecret == "" {
		config.JWTSecret = "poet-enclave-dev-secret"
	}
	if config.RateLimitPerMinute <= 0 {
		config.RateLimitPerMinute = 120
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 60 * time.Second
	}

	svc := &Service{
		config:    config,
		core:      core,
		tokenAuth: jwtauth.New("HS256", []byte(config.JWTSecret), nil),
		log:       log,
		limiters:  newRateLimiterMap(config.RateLimitPerMinute),
		startedAt: time.Now(),
	}

	svc.initRouter()
	svc.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      svc.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return svc, nil
}

func (s *Service) initRouter() {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(chimiddleware.SetHeader("Content-Type", "application/json"))
	r.Use(s.rateLimit)

	if s.config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", s.handleInfo)
		r.Post("/signup", s.handleCreateSignupInfo)
		r.Post("/signup/verify", s.handleVerifySignupInfo)
		r.Post("/timers", s.handleCreateWaitTimer)
		r.Post("/certificates", s.handleCreateWaitCertificate)
		r.Post("/certificates/verify", s.handleVerifyWaitCertificate)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(s.tokenAuth))
			r.Use(jwtauth.Authenticator(s.tokenAuth))
			r.Post("/unseal", s.handleUnsealSignupData)
		})
	})

	s.router = r
}

// Start blocks serving HTTP until the server is shut down.
func (s *Service) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("starting poet enclave HTTP service")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("stopping poet enclave HTTP service")
	return s.server.Shutdown(ctx)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}
