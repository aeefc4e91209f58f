package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"headshot/internal/http/handlers"
	"headshot/internal/infra"
	"headshot/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger, cfg *infra.Config) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, middleware.RequestID, middleware.Logger(logger), chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.SessionCreate)
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", app.SessionState)
			r.Post("/image", app.SessionUpload)
			r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).
				Post("/generate", app.SessionGenerate)
			r.Get("/download", app.SessionDownload)
		})
	})

	return r
}
