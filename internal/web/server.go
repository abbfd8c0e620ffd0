// Package web serves the contribution dashboard: HTML pages for members and
// admins, CSV exports, and a small JSON API.
package web

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mmynk/familyfund/internal/auth"
	"github.com/mmynk/familyfund/internal/metrics"
	"github.com/mmynk/familyfund/internal/middleware"
	"github.com/mmynk/familyfund/internal/service"
	"github.com/mmynk/familyfund/internal/session"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Auth          *service.AuthService
	Contributions *service.ContributionService
	Reports       *service.ReportService
	Signer        *session.Signer
	JWT           *auth.JWTManager
	Logger        *slog.Logger

	// CSRFKey is the 32-byte form protection key; nil disables the check.
	CSRFKey []byte
	// Secure marks cookies Secure; set it when served over HTTPS.
	Secure bool
	// AllowedOrigins for the JSON API. Empty allows any origin.
	AllowedOrigins []string
}

// Server holds the page templates and the services behind them.
type Server struct {
	Deps
	pages map[string]*template.Template
}

// NewServer parses the templates and returns a Server.
func NewServer(deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Contributions == nil || deps.Reports == nil {
		return nil, errors.New("web: services are required")
	}
	if deps.Signer == nil || deps.JWT == nil {
		return nil, errors.New("web: session signer and JWT manager are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{Deps: deps, pages: pages}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	// HTML pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(s.CSRFKey, s.Secure))
		r.Use(middleware.Sessions(s.Signer))

		r.Get("/", s.index)
		r.Get("/login", s.loginPage)
		r.Post("/login", s.login)
		r.Get("/signup", s.signupPage)
		r.Post("/signup", s.signup)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMember)
			r.Get("/dashboard", s.dashboard)
			r.Get("/submit", s.submitPage)
			r.Post("/submit", s.submit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", s.admin)
			r.Get("/review", s.review)
			r.Get("/export/{kind}.csv", s.export)
		})
	})

	// JSON API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins(),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))

		r.Post("/token", s.issueToken)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.JWT))
			r.Get("/me/summary", s.mySummary)
			r.With(middleware.RequireAPIAdmin).Get("/admin/summary", s.adminSummary)
		})
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.AllowedOrigins) == 0 {
		return []string{"https://*", "http://*"}
	}
	return s.AllowedOrigins
}
