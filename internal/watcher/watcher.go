// Package watcher auto-submits decks dropped into an intake directory.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// Submitter accepts a deck already on disk and starts a conversion job.
type Submitter interface {
	SubmitPath(path string, raw domain.PipelineSettings) (domain.Job, error)
}

// Watcher monitors one directory for new deck files and submits each with
// the default pipeline settings.
type Watcher struct {
	dir       string
	submitter Submitter
	settings  domain.PipelineSettings
	// settleDelay gives the writer time to finish before the deck is read.
	settleDelay time.Duration
	fsw         *fsnotify.Watcher
	logger      zerolog.Logger
}

// New creates a watcher over dir.
func New(dir string, submitter Submitter, settings domain.PipelineSettings, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watcher: watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:         dir,
		submitter:   submitter,
		settings:    domain.NormalizeSettings(settings),
		settleDelay: 500 * time.Millisecond,
		fsw:         fsw,
		logger:      logger.With().Str("component", "watcher").Logger(),
	}, nil
}

// Run consumes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info().Str("dir", w.dir).Msg("intake watcher started")
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("intake watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher: event channel closed")
			}
			if !event.Has(fsnotify.Create) || !isDeck(event.Name) {
				continue
			}
			w.logger.Info().Str("deck", event.Name).Msg("new deck detected")
			time.Sleep(w.settleDelay)
			job, err := w.submitter.SubmitPath(event.Name, w.settings)
			if err != nil {
				w.logger.Error().Err(err).Str("deck", event.Name).Msg("intake submission failed")
				continue
			}
			w.logger.Info().Str("deck", event.Name).Str("job_id", job.ID).Msg("intake deck submitted")

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher: error channel closed")
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func isDeck(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pptx", ".ppt":
		return true
	default:
		return false
	}
}
