// Package pipeline runs the deck-to-narrated-video conversion: notes
// extraction, narration synthesis, timed video export and the final mux, with
// every transition persisted to the job record store.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/export"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/fsutil"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/jobs"
)

// Artifact names inside a job directory.
const (
	rawVideoFile  = "video_raw.mp4"
	narrationFile = "narration.mp3"
	finalFile     = "final.mp4"
)

// NotesReader extracts per-slide speaker notes from a deck.
type NotesReader interface {
	Notes(path string) ([]domain.SlideNote, error)
}

// Synthesizer converts narration text to audio bytes.
type Synthesizer interface {
	Configured() error
	Synthesize(ctx context.Context, text, voice, rate string) ([]byte, error)
}

// MediaTool probes durations, concatenates audio and muxes streams.
type MediaTool interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Concat(ctx context.Context, clips []string, outPath string) error
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
}

// HostFactory creates a fresh export host for one job's export stage.
type HostFactory func() (export.Host, error)

// Config tunes the orchestrator's timing and retry behavior.
type Config struct {
	FallbackSlideSeconds float64
	HeadSilenceSeconds   float64
	TailSilenceSeconds   float64
	// ExportTimeout bounds the export stage end to end; on expiry the host
	// is force-closed and the job fails with a timeout error.
	ExportTimeout  time.Duration
	Export         export.Config
	DeleteAttempts int
	DeleteDelay    time.Duration
}

// DefaultConfig returns the production pipeline tuning.
func DefaultConfig() Config {
	return Config{
		FallbackSlideSeconds: DefaultFallbackSlideSeconds,
		HeadSilenceSeconds:   DefaultHeadSilenceSeconds,
		TailSilenceSeconds:   DefaultTailSilenceSeconds,
		ExportTimeout:        30 * time.Minute,
		Export:               export.DefaultConfig(),
		DeleteAttempts:       5,
		DeleteDelay:          500 * time.Millisecond,
	}
}

// Orchestrator executes the stage state machine for one job at a time. It is
// the only writer of its job's record while the run is in flight.
type Orchestrator struct {
	store   *jobs.Store
	notes   NotesReader
	tts     Synthesizer
	media   MediaTool
	newHost HostFactory
	driver  *export.Driver
	cfg     Config
	logger  zerolog.Logger
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(store *jobs.Store, notes NotesReader, tts Synthesizer, media MediaTool, newHost HostFactory, cfg Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		notes:   notes,
		tts:     tts,
		media:   media,
		newHost: newHost,
		driver:  export.NewDriver(cfg.Export, logger),
		cfg:     cfg,
		logger:  logger.With().Str("component", "pipeline").Logger(),
	}
}

// runState carries data between stages of one run.
type runState struct {
	jobID     string
	deckPath  string
	jobDir    string
	settings  domain.PipelineSettings
	notes     []domain.SlideNote
	durations map[int]float64
	clips     []string
	plan      TimingPlan
	output    string
	telemetry map[string]float64
}

// stage is one row of the pipeline's state table: the checkpoint reported on
// entry and the work that must succeed to leave it.
type stage struct {
	name    string
	message string
	run     func(ctx context.Context, st *runState) error
}

// Run executes the whole pipeline for jobID. Every failure is translated
// into a terminal error status; nothing escapes the worker goroutine.
// Partially produced artifacts are left on disk for postmortem inspection.
func (o *Orchestrator) Run(ctx context.Context, jobID, deckPath string) {
	logger := o.logger.With().Str("job_id", jobID).Logger()

	job, err := o.store.Load(jobID)
	if err != nil {
		logger.Error().Err(err).Msg("worker started for unknown job")
		return
	}

	st := &runState{
		jobID:     jobID,
		deckPath:  deckPath,
		jobDir:    o.store.JobDir(jobID),
		settings:  job.Settings,
		telemetry: map[string]float64{},
	}

	if err := o.runStages(ctx, st); err != nil {
		logger.Error().Err(err).Msg("conversion failed")
		o.fail(jobID, err)
		return
	}

	logger.Info().Str("output", st.output).Msg("conversion completed")
	o.complete(jobID, st)
}

func (o *Orchestrator) runStages(ctx context.Context, st *runState) error {
	// Cheap fail-fast: no stage may run without synthesis credentials.
	if err := o.tts.Configured(); err != nil {
		return err
	}

	stages := []stage{
		{domain.StageNotes, "Extracting speaker notes", o.stageNotes},
		{domain.StageTTS, "Synthesizing narration", o.stageTTS},
		{domain.StageExport, "Exporting timed slide video", o.stageExport},
		{domain.StageMux, "Combining narration and video", o.stageMux},
	}

	for _, s := range stages {
		o.transition(st.jobID, s.name, s.message)
		started := time.Now()
		if err := s.run(ctx, st); err != nil {
			return err
		}
		st.telemetry[s.name] = time.Since(started).Seconds()
	}
	return nil
}

// stageNotes extracts speaker notes and enforces the hard business rule: a
// silent video is not a valid output of this pipeline.
func (o *Orchestrator) stageNotes(ctx context.Context, st *runState) error {
	notes, err := o.notes.Notes(st.deckPath)
	if err != nil {
		return err
	}
	st.notes = notes
	if domain.SlidesWithNotes(notes) == 0 {
		return &domain.ValidationError{
			Detail: "narration is mandatory and the deck has no slide with speaker notes",
			Err:    domain.ErrNoNarration,
		}
	}
	return nil
}

// stageTTS synthesizes one clip per narrated slide and measures its
// duration. Any single synthesis failure aborts the job: partial-narration
// videos are never produced.
func (o *Orchestrator) stageTTS(ctx context.Context, st *runState) error {
	st.durations = make(map[int]float64)
	for _, note := range st.notes {
		if !note.HasNotes {
			continue
		}
		clipPath := filepath.Join(st.jobDir, fmt.Sprintf("slide_%02d.mp3", note.Index))
		if err := fsutil.Remove(clipPath, o.cfg.DeleteAttempts, o.cfg.DeleteDelay); err != nil {
			return err
		}
		audio, err := o.tts.Synthesize(ctx, note.Text, st.settings.Voice, st.settings.SpeakingRate)
		if err != nil {
			return fmt.Errorf("slide %d: %w", note.Index, err)
		}
		if err := os.WriteFile(clipPath, audio, 0o644); err != nil {
			return fmt.Errorf("write narration clip for slide %d: %w", note.Index, err)
		}
		seconds, err := o.media.ProbeDuration(ctx, clipPath)
		if err != nil {
			return err
		}
		st.durations[note.Index] = seconds
		st.clips = append(st.clips, clipPath)
	}
	st.plan = NewTimingPlan(st.durations, o.cfg.FallbackSlideSeconds, o.cfg.HeadSilenceSeconds, o.cfg.TailSilenceSeconds)
	return nil
}

// stageExport drives the export host through the fallback protocol and then
// sanity-checks the rendered duration against the intended timings.
func (o *Orchestrator) stageExport(ctx context.Context, st *runState) error {
	host, err := o.newHost()
	if err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "launch", Err: err}
	}

	exportCtx := ctx
	if o.cfg.ExportTimeout > 0 {
		var cancel context.CancelFunc
		exportCtx, cancel = context.WithTimeout(ctx, o.cfg.ExportTimeout)
		defer cancel()
	}

	copyPath := filepath.Join(st.jobDir, fmt.Sprintf("tmp_for_video_%d.pptx", time.Now().Unix()))
	rawPath := filepath.Join(st.jobDir, rawVideoFile)
	opts := export.ExportOptions{
		UseTimings:          true,
		DefaultSlideSeconds: 1,
		VerticalResolution:  st.settings.Resolution,
		FramesPerSecond:     st.settings.FPS,
		Quality:             st.settings.Quality,
	}
	if err := o.driver.Run(exportCtx, host, st.deckPath, copyPath, rawPath, st.plan, opts); err != nil {
		return err
	}

	// Diagnostic only: hosts round timings and drop trailing silence, so
	// divergence is logged, never an error.
	intended := st.plan.Total(len(st.notes))
	if rendered, probeErr := o.media.ProbeDuration(ctx, rawPath); probeErr == nil {
		o.logger.Info().
			Str("job_id", st.jobID).
			Float64("intended_seconds", intended).
			Float64("rendered_seconds", rendered).
			Msg("export duration check")
	}
	return nil
}

// stageMux concatenates the narration clips in slide order and muxes them
// with the exported video.
func (o *Orchestrator) stageMux(ctx context.Context, st *runState) error {
	narrationPath := filepath.Join(st.jobDir, narrationFile)
	finalPath := filepath.Join(st.jobDir, finalFile)
	if err := fsutil.Remove(narrationPath, o.cfg.DeleteAttempts, o.cfg.DeleteDelay); err != nil {
		return err
	}
	if err := fsutil.Remove(finalPath, o.cfg.DeleteAttempts, o.cfg.DeleteDelay); err != nil {
		return err
	}

	if err := o.media.Concat(ctx, st.clips, narrationPath); err != nil {
		return err
	}
	if err := o.media.Mux(ctx, filepath.Join(st.jobDir, rawVideoFile), narrationPath, finalPath); err != nil {
		return err
	}
	st.output = finalPath
	return nil
}

// transition persists a stage checkpoint so concurrent status reads always
// observe a consistent last-entered stage.
func (o *Orchestrator) transition(jobID, stageName, message string) {
	progress := domain.StageProgress[stageName]
	if err := o.store.Update(jobID, jobs.Update{
		Stage:    &stageName,
		Progress: &progress,
		Message:  &message,
	}); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to persist stage transition")
	}
}

func (o *Orchestrator) complete(jobID string, st *runState) {
	status := domain.JobStatusCompleted
	stageName := domain.StageDone
	progress := 100
	message := "Video ready for download"
	if err := o.store.Update(jobID, jobs.Update{
		Status:    &status,
		Stage:     &stageName,
		Progress:  &progress,
		Message:   &message,
		Output:    &st.output,
		Telemetry: st.telemetry,
	}); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to persist completion")
	}
}

func (o *Orchestrator) fail(jobID string, cause error) {
	status := domain.JobStatusError
	progress := 100
	message := "Conversion failed: " + cause.Error()
	if err := o.store.Update(jobID, jobs.Update{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	}); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to persist failure")
	}
}
