package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// Logs serves the per-job event log as plain text. With ?download=true the
// response carries an attachment disposition so browsers save it as a file.
func (a *App) Logs(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if _, err := a.Store.Load(jobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("log lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	// A job can exist before its first log line lands; that is an empty
	// log, not an error.
	log, err := a.Store.ReadLog(jobID)
	if err != nil {
		log = ""
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Get("download") == "true" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+jobID+`_logs.txt"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(log))
}
