// SPDX-License-Identifier: MIT

// Package api is the voxhired REST surface: document intake, analysis,
// session lifecycle, reports, dashboard stats, and the realtime gateway
// mount. Every JSON response uses the common success/error envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voxhire/voxhire/internal/analysis"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/dashboard"
	"github.com/voxhire/voxhire/internal/documents"
	"github.com/voxhire/voxhire/internal/health"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/report"
	"github.com/voxhire/voxhire/internal/rtc"
	"github.com/voxhire/voxhire/internal/session"
)

// Question-count bounds for generate-questions and create-session.
const (
	maxQuestions        = 20
	defaultNumQuestions = 6
)

// Deps carries the collaborators the server routes to.
type Deps struct {
	Config    *config.Holder
	Store     session.Store
	Documents *documents.Processor
	Analysis  *analysis.Service
	Mailer    *report.Mailer
	Reports   *report.Store
	Issuer    *rtc.TokenIssuer
	Gateway   *rtc.Gateway
	Dashboard *dashboard.Service
	Health    *health.Manager
}

// Server routes HTTP requests to the collaborators.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router http.Handler
	now    func() time.Time
}

// New builds the server and mounts all routes.
func New(deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: log.WithComponent("api"),
		now:    time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth)

		r.Group(func(r chi.Router) {
			// Document intake and session creation are the expensive
			// entry points; rate-limit them per client.
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Post("/upload", s.handleUpload)
			r.Post("/create-session", s.handleCreateSession)
		})

		r.Post("/analyze", s.handleAnalyze)
		r.Post("/generate-questions", s.handleGenerateQuestions)

		r.Get("/session/{id}", s.handleGetSession)
		r.Put("/session/{id}", s.handleUpdateSession)
		r.Get("/sessions", s.handleListSessions)

		r.Post("/reports/{id}/send", s.handleSendReport)
		r.Get("/reports/{id}", s.handleDownloadReport)

		r.Get("/dashboard/stats", s.handleDashboardStats)
	})

	if s.deps.Gateway != nil {
		r.Get("/rtc/{room}", s.deps.Gateway.ServeHTTP)
	}

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.HandleLive)
		r.Get("/readyz", s.deps.Health.HandleReady)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "voxhired.http")
}
