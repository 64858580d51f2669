package handlers

import (
	"net/http"
	"strconv"
)

const (
	defaultHistoryLimit = 25
	maxHistoryLimit     = 100
)

// History lists recent jobs, newest first.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	jobs := a.Store.ListRecent(limit)
	a.json(w, http.StatusOK, map[string]any{"jobs": jobs})
}
