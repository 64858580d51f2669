package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/jobs"
)

// Service is the submission façade shared by the HTTP layer and the intake
// watcher: it normalizes settings, creates the durable job record, saves the
// uploaded deck and launches the worker. Submission returns as soon as the
// worker is scheduled, never blocking on pipeline completion.
type Service struct {
	store     *jobs.Store
	runner    *jobs.Runner
	orch      *Orchestrator
	notes     NotesReader
	uploadDir string
	logger    zerolog.Logger
}

// NewService wires the submission façade.
func NewService(store *jobs.Store, runner *jobs.Runner, orch *Orchestrator, notes NotesReader, uploadDir string, logger zerolog.Logger) (*Service, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: ensure upload directory: %w", err)
	}
	return &Service{
		store:     store,
		runner:    runner,
		orch:      orch,
		notes:     notes,
		uploadDir: uploadDir,
		logger:    logger.With().Str("component", "service").Logger(),
	}, nil
}

// Submit creates a job for the deck read from src and schedules its worker.
func (s *Service) Submit(src io.Reader, filename string, raw domain.PipelineSettings) (domain.Job, error) {
	settings := domain.NormalizeSettings(raw)
	id := uuid.NewString()
	filename = sanitizeFilename(filename)

	job := domain.Job{
		ID:       id,
		Status:   domain.JobStatusProcessing,
		Stage:    domain.StageUpload,
		Progress: domain.StageProgress[domain.StageUpload],
		Message:  "Saving deck",
		Filename: filename,
		Settings: settings,
	}
	if err := s.store.Create(job); err != nil {
		return domain.Job{}, err
	}

	deckPath := filepath.Join(s.uploadDir, id+"_"+filename)
	if err := saveFile(src, deckPath); err != nil {
		s.failBeforeStart(id, fmt.Errorf("save uploaded deck: %w", err))
		return domain.Job{}, err
	}
	msg := "Saved deck: " + filename
	if err := s.store.Update(id, jobs.Update{Message: &msg}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("failed to record upload")
	}

	s.runner.Go(id, func(ctx context.Context) {
		s.orch.Run(ctx, id, deckPath)
	})

	s.logger.Info().Str("job_id", id).Str("filename", filename).Msg("background conversion started")
	created, err := s.store.Load(id)
	if err != nil {
		return job, nil
	}
	return created, nil
}

// SubmitPath submits a deck already on disk, used by the intake watcher.
func (s *Service) SubmitPath(path string, raw domain.PipelineSettings) (domain.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Job{}, fmt.Errorf("pipeline: open intake deck: %w", err)
	}
	defer f.Close()
	return s.Submit(f, filepath.Base(path), raw)
}

// NotesPreview holds the dry-run notes extraction returned before a user
// commits to a conversion.
type NotesPreview struct {
	SlidesTotal     int                     `json:"slides_total"`
	SlidesWithNotes int                     `json:"slides_with_notes"`
	Settings        domain.PipelineSettings `json:"settings"`
	Notes           []domain.SlideNote      `json:"notes"`
	CanConvert      bool                    `json:"can_convert"`
}

// Preview extracts notes from the deck without creating a job. The deck is
// staged to a temporary file and removed afterwards.
func (s *Service) Preview(src io.Reader, filename string, raw domain.PipelineSettings) (NotesPreview, error) {
	settings := domain.NormalizeSettings(raw)

	tmpPath := filepath.Join(s.uploadDir, "preview_"+uuid.NewString()+"_"+sanitizeFilename(filename))
	if err := saveFile(src, tmpPath); err != nil {
		return NotesPreview{}, fmt.Errorf("pipeline: stage preview deck: %w", err)
	}
	defer os.Remove(tmpPath)

	notes, err := s.notes.Notes(tmpPath)
	if err != nil {
		return NotesPreview{}, err
	}
	withNotes := domain.SlidesWithNotes(notes)
	return NotesPreview{
		SlidesTotal:     len(notes),
		SlidesWithNotes: withNotes,
		Settings:        settings,
		Notes:           notes,
		CanConvert:      withNotes > 0,
	}, nil
}

// failBeforeStart marks a job failed before its worker ever ran.
func (s *Service) failBeforeStart(id string, cause error) {
	status := domain.JobStatusError
	progress := 100
	message := "Conversion failed: " + cause.Error()
	if err := s.store.Update(id, jobs.Update{Status: &status, Progress: &progress, Message: &message}); err != nil {
		s.logger.Error().Err(err).Str("job_id", id).Msg("failed to persist early failure")
	}
}

func saveFile(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return err
	}
	return f.Close()
}

// sanitizeFilename strips path separators from client-supplied names.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "deck.pptx"
	}
	return name
}
