// Package server assembles the HTTP router of the media service.
package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/talmud/media-service/internal/file"
	appMiddleware "github.com/talmud/media-service/internal/middleware"
	"github.com/talmud/media-service/internal/response"
	"github.com/talmud/media-service/internal/storage"
)

// Options wires the router's dependencies.
type Options struct {
	Files *file.Handler
	// Static serves stored files when the backend keeps them locally; nil
	// for remote backends.
	Static storage.StaticServer
	// Driver names the active backend in health responses.
	Driver string
	// Metrics is the registry exposed on /metrics; nil disables the endpoint.
	Metrics prometheus.Gatherer
}

type healthData struct {
	Status  string `json:"status"  example:"OK"`
	Message string `json:"message" example:"media service running"`
	Storage string `json:"storage" example:"local"`
}

// NewRouter returns the service's HTTP handler.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(appMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, "method not allowed")
	})

	r.Post("/upload/audio", opts.Files.UploadAudio)
	r.Post("/upload/image", opts.Files.UploadImage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health(opts.Driver))
		r.Get("/files", opts.Files.ListFiles)
		r.Delete("/file", opts.Files.DeleteFile)
	})

	if opts.Static != nil {
		prefix := "/" + strings.Trim(opts.Static.URLPrefix(), "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, opts.Static.Handler()))
	}

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{}))
	}

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// health godoc
//
//	@Summary		Health check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	healthData
//	@Router			/api/health [get]
func health(driver string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, healthData{Status: "OK", Message: "media service running", Storage: driver})
	}
}
