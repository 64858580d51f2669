// Package httpapi assembles the chi router for the conversion service.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/http/handlers"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)

	r.Get("/healthz", app.Health)

	r.Post("/convert", app.Convert)
	r.Post("/preview-notes", app.PreviewNotes)
	r.Get("/status/{job_id}", app.Status)
	r.Get("/logs/{job_id}", app.Logs)
	r.Get("/download/{job_id}", app.Download)
	r.Get("/api/history", app.History)

	return r
}
