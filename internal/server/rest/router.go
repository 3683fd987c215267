// Package rest exposes the eventhub HTTP API on a chi router.
package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/metrics"
	"github.com/dmitrijs2005/eventhub/internal/server/storage"
)

type RouterConfig struct {
	Users   UserService
	Events  EventService
	Health  Pinger
	Metrics *metrics.Metrics
	Log     logging.Logger

	AllowedOrigins []string
	// AuthRateLimit is a limiter rate such as "30-M" applied per IP to
	// /api/auth. Empty disables it.
	AuthRateLimit string
	// UploadDir is served under /uploads when set.
	UploadDir string
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	authLimit, err := ipRateLimit(cfg.AuthRateLimit)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit %q: %w", cfg.AuthRateLimit, err)
	}

	authH := NewAuthHandler(cfg.Users, cfg.Log)
	usersH := NewUsersHandler(cfg.Users, cfg.Log)
	eventsH := NewEventsHandler(cfg.Events, cfg.Log)
	bearer := requireBearer(cfg.Users, cfg.Log)

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(accessLog(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics != nil {
		r.Use(observe(cfg.Metrics))
	}
	r.Use(secureHeaders())
	r.Use(corsPolicy(cfg.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, messageResponse{Message: "API is working"})
	})
	r.Method(http.MethodGet, "/health", NewHealthHandler(cfg.Health))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.UploadDir != "" {
		r.Method(http.MethodGet, storage.UploadsURLPrefix+"/*", uploads(cfg.UploadDir))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/refresh", authH.Refresh)
			r.With(bearer).Post("/logout", authH.Logout)
		})

		r.Get("/public/events", eventsH.Public)

		r.Group(func(r chi.Router) {
			r.Use(bearer)

			r.Get("/users", usersH.List)
			r.Get("/users/me", usersH.Me)
			r.Put("/users/{id}", usersH.Update)

			r.Get("/events", eventsH.List)
			r.Post("/events", eventsH.Create)
			r.Get("/events/{id}", eventsH.Get)
			r.Put("/events/{id}", eventsH.Update)
			r.Delete("/events/{id}", eventsH.Delete)
			r.Post("/events/{id}/image", eventsH.UploadImage)
		})
	})

	return r, nil
}

// uploads serves stored images without directory listings.
func uploads(dir string) http.Handler {
	fs := http.StripPrefix(storage.UploadsURLPrefix+"/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fs.ServeHTTP(w, r)
	})
}
