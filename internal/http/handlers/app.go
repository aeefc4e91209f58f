package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
	"headshot/internal/headshot"
)

// App bundles the handler dependencies: the in-memory session store and the
// generation pipeline.
type App struct {
	Sessions *domain.Store
	Pipeline *headshot.Service
	Logger   zerolog.Logger
}

func NewApp(sessions *domain.Store, pipeline *headshot.Service, logger zerolog.Logger) *App {
	return &App{Sessions: sessions, Pipeline: pipeline, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
