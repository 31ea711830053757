package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Auth   *Authenticator
	Logger zerolog.Logger
	// StaticPrefix and StaticDir serve locally stored thumbnails. Both
	// empty disables the file server.
	StaticPrefix string
	StaticDir    string
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger.With().Str("component", "http").Logger()))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Post("/webhooks/video-host/video-updates", h.VideoUpdates)

	if cfg.StaticPrefix != "" && cfg.StaticDir != "" {
		prefix := "/" + strings.Trim(cfg.StaticPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.StaticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Middleware)

		r.Route("/creator/movies", func(r chi.Router) {
			r.Use(RequireRole(RoleCreator))
			r.Get("/", h.ListOwnMovies)
			r.Post("/", h.CreateMovie)
			r.Get("/{id}", h.GetOwnMovie)
			r.Put("/{id}", h.UpdateMovie)
			r.Patch("/{id}/uploads", h.MarkUploads)
			r.Get("/{id}/upload-credentials", h.UploadCredentials)
			r.Get("/{id}/upload-progress", h.UploadProgress)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Get("/movies", h.ListAllMovies)
			r.Patch("/movies/{id}/status", h.SetMovieStatus)
			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{id}", h.UpdateCategory)
		})

		r.Route("/app", func(r chi.Router) {
			r.Use(RequireRole(RoleUser, RoleCreator, RoleAdmin))
			r.Get("/movies", h.ListPublished)
			r.Get("/movies/{id}", h.GetPublished)
			r.Get("/categories", h.ActiveCategories)
			r.Get("/favourite-categories", h.FavouriteCategories)
			r.Put("/favourite-categories", h.SetFavouriteCategories)
			r.Get("/dashboard", h.Dashboard)
		})
	})

	return r
}
