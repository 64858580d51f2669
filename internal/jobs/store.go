// Package jobs tracks conversion jobs: an in-memory registry mirrored to
// per-job directories on disk so a status reader in another process observes
// the same record, plus the bounded runner that executes job workers.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

const (
	statusFile = "status.json"
	logFile    = "status.log"
)

// Store is the job record store. The in-memory map and the on-disk mirror
// agree after every Create/Update call returns. Writers are expected to be
// single-writer-per-key; writes to different job ids do not interfere.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	baseDir string
	logger  zerolog.Logger
}

// NewStore creates a store rooted at baseDir, creating it if needed.
func NewStore(baseDir string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("jobs: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("jobs: ensure base directory: %w", err)
	}
	return &Store{
		jobs:    make(map[string]*domain.Job),
		baseDir: baseDir,
		logger:  logger.With().Str("component", "jobstore").Logger(),
	}, nil
}

// JobDir returns the durable directory owned by one job.
func (s *Store) JobDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Create inserts a new record and writes its durable mirror. Ids are
// generated, so an existing record with the same id is an invariant
// violation, not a user error.
func (s *Store) Create(job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("jobs: create %s: %w", job.ID, domain.ErrJobExists)
	}
	if err := os.MkdirAll(s.JobDir(job.ID), 0o755); err != nil {
		return fmt.Errorf("jobs: create job directory: %w", err)
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Telemetry == nil {
		job.Telemetry = map[string]float64{}
	}
	if job.LogPath == "" {
		job.LogPath = filepath.Join(s.JobDir(job.ID), logFile)
	}

	s.jobs[job.ID] = &job
	return s.persistLocked(job.ID)
}

// Update merges the non-nil fields of upd into the record, stamps updated_at
// and rewrites the whole durable document. A message is also appended to the
// job's event log. Unknown ids are a silent no-op: a worker racing a
// not-yet-visible record must not crash.
func (s *Store) Update(id string, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Stage != nil {
		job.Stage = *upd.Stage
	}
	if upd.Progress != nil && *upd.Progress > job.Progress {
		job.Progress = *upd.Progress
	}
	if upd.Message != nil {
		job.Message = *upd.Message
		s.appendLogLocked(job, *upd.Message)
	}
	if upd.Output != nil {
		job.Output = *upd.Output
	}
	if upd.Telemetry != nil {
		job.Telemetry = upd.Telemetry
	}
	job.UpdatedAt = time.Now().UTC()

	return s.persistLocked(id)
}

// Update carries the partial fields merged into a record by Store.Update.
type Update struct {
	Status    *domain.JobStatus
	Stage     *string
	Progress  *int
	Message   *string
	Output    *string
	Telemetry map[string]float64
}

// Load returns the in-memory record, falling back to the persisted mirror
// (which is then cached). Returns ErrJobNotFound if neither exists.
func (s *Store) Load(id string) (domain.Job, error) {
	s.mu.RLock()
	if job, ok := s.jobs[id]; ok {
		snapshot := *job
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	job, err := s.readMirror(id)
	if err != nil {
		return domain.Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.jobs[id]; ok {
		return *cached, nil
	}
	s.jobs[id] = &job
	return job, nil
}

// ListRecent scans persisted records, newest first by updated_at (falling
// back to created_at), returning at most limit. Corrupt records are skipped.
func (s *Store) ListRecent(limit int) []domain.Job {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		s.logger.Warn().Err(err).Msg("list jobs: read base directory")
		return nil
	}

	records := make([]domain.Job, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		job, err := s.readMirror(entry.Name())
		if err != nil {
			if !errors.Is(err, domain.ErrJobNotFound) {
				s.logger.Warn().Err(err).Str("job_id", entry.Name()).Msg("skipping unreadable job record")
			}
			continue
		}
		records = append(records, job)
	}

	sort.Slice(records, func(i, j int) bool {
		return sortKey(records[i]).After(sortKey(records[j]))
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// ReadLog returns the job's append-only event log, or empty text when the
// log has not been written yet.
func (s *Store) ReadLog(id string) (string, error) {
	job, err := s.Load(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(job.LogPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("jobs: read log: %w", err)
	}
	return string(data), nil
}

func sortKey(job domain.Job) time.Time {
	if !job.UpdatedAt.IsZero() {
		return job.UpdatedAt
	}
	return job.CreatedAt
}

func (s *Store) readMirror(id string) (domain.Job, error) {
	data, err := os.ReadFile(filepath.Join(s.JobDir(id), statusFile))
	if os.IsNotExist(err) {
		return domain.Job{}, fmt.Errorf("jobs: %s: %w", id, domain.ErrJobNotFound)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("jobs: read record: %w", err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.Job{}, fmt.Errorf("jobs: decode record: %w", err)
	}
	if job.ID == "" {
		job.ID = id
	}
	return job, nil
}

// persistLocked rewrites the whole status document. Callers hold s.mu.
func (s *Store) persistLocked(id string) error {
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("jobs: encode record: %w", err)
	}
	path := filepath.Join(s.JobDir(id), statusFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("jobs: persist record: %w", err)
	}
	return nil
}

// appendLogLocked appends one event line to the job's log file. Log write
// failures are logged, never escalated; the status update must still land.
func (s *Store) appendLogLocked(job *domain.Job, message string) {
	if job.LogPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(job.LogPath), 0o755); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("append log: ensure directory")
		return
	}
	f, err := os.OpenFile(job.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("append log: open")
		return
	}
	defer f.Close()
	if _, err := f.WriteString(strings.TrimRight(message, "\n") + "\n"); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("append log: write")
	}
}
