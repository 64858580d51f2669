package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// Convert accepts a multipart deck upload, creates a conversion job and
// returns immediately with the job id and the URLs to poll.
func (a *App) Convert(w http.ResponseWriter, r *http.Request) {
	file, header, ok := a.deckUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	settings := a.settingsFromForm(r)
	job, err := a.Service.Submit(file, header.Filename, settings)
	if err != nil {
		a.Logger.Error().Err(err).Str("filename", header.Filename).Msg("submission failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start conversion")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"job_id":       job.ID,
		"status":       job.Status,
		"message":      "Conversion started",
		"status_url":   "/status/" + job.ID,
		"logs_url":     "/logs/" + job.ID,
		"download_url": "/download/" + job.ID,
		"history_url":  "/api/history",
	})
}

// deckUpload extracts the "ppt" form file, rejecting absent or non-deck
// uploads with a 400 before any job state is created.
func (a *App) deckUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return nil, nil, false
	}
	file, header, err := r.FormFile("ppt")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "ppt file is required")
		return nil, nil, false
	}
	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".pptx") && !strings.HasSuffix(name, ".ppt") {
		file.Close()
		a.error(w, http.StatusBadRequest, "bad_request", "only .pptx and .ppt files are supported")
		return nil, nil, false
	}
	return file, header, true
}

// settingsFromForm overlays submitted form fields onto the configured
// defaults. Unparseable numbers fall back to the defaults; range clamping
// happens during normalization.
func (a *App) settingsFromForm(r *http.Request) domain.PipelineSettings {
	settings := a.Defaults
	if v := r.FormValue("voice"); v != "" {
		settings.Voice = v
	}
	if v := r.FormValue("speaking_rate"); v != "" {
		settings.SpeakingRate = v
	}
	if v := r.FormValue("resolution"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Resolution = n
		}
	}
	if v := r.FormValue("fps"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.FPS = n
		}
	}
	if v := r.FormValue("quality"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Quality = n
		}
	}
	return domain.NormalizeSettings(settings)
}
