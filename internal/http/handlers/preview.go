package handlers

import (
	"net/http"
)

// PreviewNotes extracts speaker notes from an uploaded deck without creating
// a job, so callers can confirm the deck is convertible first.
func (a *App) PreviewNotes(w http.ResponseWriter, r *http.Request) {
	file, header, ok := a.deckUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := a.Service.Preview(file, header.Filename, a.settingsFromForm(r))
	if err != nil {
		a.Logger.Error().Err(err).Str("filename", header.Filename).Msg("notes preview failed")
		a.error(w, http.StatusUnprocessableEntity, "unreadable_deck", "could not extract notes from the deck")
		return
	}
	a.json(w, http.StatusOK, preview)
}
