package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// downloadName is the filename handed to browsers for the finished video.
const downloadName = "presentation.mp4"

// Download streams the finished video. Jobs that have not completed get a
// conflict response describing their current state instead of a partial file.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Store.Load(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("download lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	if job.Status != domain.JobStatusCompleted {
		a.json(w, http.StatusConflict, map[string]any{
			"error":    "not_ready",
			"message":  "video is not ready for download",
			"status":   job.Status,
			"stage":    job.Stage,
			"progress": job.Progress,
		})
		return
	}
	if job.Output == "" {
		a.error(w, http.StatusInternalServerError, "internal", "completed job has no output")
		return
	}
	if _, err := os.Stat(job.Output); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Str("output", job.Output).Msg("output artifact missing")
		a.error(w, http.StatusGone, "gone", "the rendered video is no longer available")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, job.Output)
}
