// Package api serves the public request endpoints and the moderator
// console over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"request-service/internal/auth"
	"request-service/internal/catalog"
	"request-service/internal/moderation"
	"request-service/internal/requests"
)

const (
	DefaultBodyLimit    = 16 * 1024
	DefaultCatalogRPM   = 60
	DefaultRouteTimeout = 30 * time.Second
)

type Config struct {
	CORSOrigins []string
	BodyLimit   int64
	// CatalogRPM limits catalog calls per client IP and minute.
	CatalogRPM int
}

type Server struct {
	requests *requests.Service
	filters  *moderation.Filters
	bans     *moderation.Bans
	catalog  catalog.Catalog
	auth     *auth.Authenticator
	ws       http.Handler
	metrics  *Metrics
	log      *zap.Logger
	cfg      Config
}

// NewServer wires the handlers. ws serves /ws and may be nil.
func NewServer(
	reqs *requests.Service,
	filters *moderation.Filters,
	bans *moderation.Bans,
	cat catalog.Catalog,
	authn *auth.Authenticator,
	ws http.Handler,
	metrics *Metrics,
	log *zap.Logger,
	cfg Config,
) *Server {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.CatalogRPM <= 0 {
		cfg.CatalogRPM = DefaultCatalogRPM
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		requests: reqs,
		filters:  filters,
		bans:     bans,
		catalog:  cat,
		auth:     authn,
		ws:       ws,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(corsMiddleware(s.cfg.CORSOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogMiddleware(s.log))
	r.Use(middleware.Recoverer)
	for _, m := range middlewares {
		r.Use(m)
	}

	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}
	r.With(jwtAuthMiddleware(s.auth)).Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(DefaultRouteTimeout))
		r.Use(secureHeadersMiddleware())
		r.Use(bodySizeLimitMiddleware(s.cfg.BodyLimit))

		r.Get("/health", s.HandleHealth)
		r.Post("/devices", s.HandleNewDevice)

		r.Route("/catalog", func(r chi.Router) {
			r.Use(httprate.LimitByIP(s.cfg.CatalogRPM, time.Minute))
			r.Get("/search", s.HandleSearch)
			r.Get("/preview", s.HandlePreview)
		})

		r.Post("/requests", s.HandleSubmit)
		r.Get("/requests/top", s.HandleTop)

		r.With(httprate.LimitByIP(10, time.Minute)).Post("/auth/login", s.HandleLogin)

		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuthMiddleware(s.auth))

			r.Get("/requests", s.HandleListRequests)
			r.Patch("/requests/{id}", s.HandleSetStatus)
			r.Post("/requests/{id}/accept", s.HandleAccept)
			r.Post("/requests/{id}/reject", s.HandleReject)
			r.Post("/requests/{id}/ban", s.HandleBanOwner)

			r.Get("/archive", s.HandleListArchive)
			r.Post("/archive/{id}/restore", s.HandleRestore)
			r.Get("/history", s.HandleListHistory)

			r.Get("/blacklist", s.HandleListBlacklist)
			r.Post("/blacklist", s.HandleAddBlacklist)
			r.Delete("/blacklist/{id}", s.HandleRemoveBlacklist)

			r.Get("/words", s.HandleListWords)
			r.Post("/words", s.HandleAddWord)
			r.Delete("/words/{word}", s.HandleRemoveWord)

			r.Get("/devices", s.HandleListBans)
			r.Post("/devices", s.HandleBan)
			r.Delete("/devices/{deviceId}", s.HandleUnban)
		})
	})

	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "request-service",
	})
}
