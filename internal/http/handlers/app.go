// Package handlers implements the HTTP surface of the conversion service.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/jobs"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/pipeline"
)

// maxUploadBytes caps multipart deck uploads at 200 MiB.
const maxUploadBytes = 200 << 20

type App struct {
	Service  *pipeline.Service
	Store    *jobs.Store
	Defaults domain.PipelineSettings
	Logger   zerolog.Logger
}

func NewApp(service *pipeline.Service, store *jobs.Store, defaults domain.PipelineSettings, logger zerolog.Logger) *App {
	return &App{
		Service:  service,
		Store:    store,
		Defaults: domain.NormalizeSettings(defaults),
		Logger:   logger.With().Str("component", "http").Logger(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, detail string) {
	a.json(w, code, map[string]string{"error": kind, "message": detail})
}
