package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/export"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/jobs"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/pipeline"
)

type stubNotes struct {
	notes []domain.SlideNote
}

func (s stubNotes) Notes(path string) ([]domain.SlideNote, error) {
	return s.notes, nil
}

type stubTTS struct{}

func (stubTTS) Configured() error { return nil }

func (stubTTS) Synthesize(ctx context.Context, text, voice, rate string) ([]byte, error) {
	return []byte("mp3-bytes"), nil
}

type stubMedia struct{}

func (stubMedia) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return 2.5, nil
}

func (stubMedia) Concat(ctx context.Context, clips []string, outPath string) error {
	return os.WriteFile(outPath, []byte("narration"), 0o644)
}

func (stubMedia) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	return os.WriteFile(outPath, []byte("final-video"), 0o644)
}

type stubDocument struct{}

func (stubDocument) SlideCount() (int, error)                   { return 3, nil }
func (stubDocument) SetSlideTiming(slide int, s float64) error  { return nil }
func (stubDocument) ApplyShowSettings() error                   { return nil }
func (stubDocument) SaveCopyAs(path string) error               { return os.WriteFile(path, []byte("copy"), 0o644) }
func (stubDocument) Save() error                                { return nil }
func (stubDocument) ExportStatus() (export.ExportStatus, error) { return export.StatusDone, nil }
func (stubDocument) SaveAsVideo(path string) error              { return os.WriteFile(path, []byte("video"), 0o644) }
func (stubDocument) MarkSaved() error                           { return nil }
func (stubDocument) Close() error                               { return nil }

func (stubDocument) StartExport(path string, opts export.ExportOptions) error {
	return os.WriteFile(path, []byte("raw-video"), 0o644)
}

type stubHost struct{}

func (stubHost) Open(path string) (export.Document, error) { return stubDocument{}, nil }
func (stubHost) Quit() error                               { return nil }

func fastPipelineConfig() pipeline.Config {
	return pipeline.Config{
		FallbackSlideSeconds: 2,
		ExportTimeout:        5 * time.Second,
		Export: export.Config{
			StatusPollInterval:    time.Millisecond,
			ExistsAttempts:        3,
			ExistsDelay:           time.Millisecond,
			NonEmptyAttempts:      3,
			NonEmptyDelay:         time.Millisecond,
			RetryNonEmptyAttempts: 3,
			ReadableAttempts:      3,
			ReadableDelay:         time.Millisecond,
			DeleteAttempts:        1,
			DeleteDelay:           time.Millisecond,
		},
		DeleteAttempts: 1,
		DeleteDelay:    time.Millisecond,
	}
}

func newTestApp(t *testing.T) (*App, http.Handler) {
	t.Helper()
	logger := zerolog.Nop()
	store, err := jobs.NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	runner := jobs.NewRunner(1, logger)
	t.Cleanup(runner.Shutdown)

	notes := stubNotes{notes: []domain.SlideNote{
		{Index: 1, Text: "welcome", HasNotes: true},
		{Index: 2},
		{Index: 3, Text: "goodbye", HasNotes: true},
	}}
	newHost := func() (export.Host, error) { return stubHost{}, nil }
	orch := pipeline.NewOrchestrator(store, notes, stubTTS{}, stubMedia{}, newHost, fastPipelineConfig(), logger)
	svc, err := pipeline.NewService(store, runner, orch, notes, t.TempDir(), logger)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	app := NewApp(svc, store, domain.DefaultSettings(), logger)
	r := chi.NewRouter()
	r.Get("/healthz", app.Health)
	r.Post("/convert", app.Convert)
	r.Post("/preview-notes", app.PreviewNotes)
	r.Get("/status/{job_id}", app.Status)
	r.Get("/logs/{job_id}", app.Logs)
	r.Get("/download/{job_id}", app.Download)
	r.Get("/api/history", app.History)
	return app, r
}

func multipartDeck(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("ppt", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("deck-bytes")); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, body io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func waitCompleted(t *testing.T, router http.Handler, jobID string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var job domain.Job
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status returned %d: %s", rec.Code, rec.Body.String())
		}
		decodeJSON(t, rec.Body, &job)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished (last: %+v)", jobID, job)
	return domain.Job{}
}

func TestConvertEndToEnd(t *testing.T) {
	_, router := newTestApp(t)

	body, contentType := multipartDeck(t, "talk.pptx", map[string]string{"fps": "999"})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("convert returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID     string `json:"job_id"`
		StatusURL string `json:"status_url"`
	}
	decodeJSON(t, rec.Body, &resp)
	if resp.JobID == "" {
		t.Fatal("convert returned no job id")
	}
	if resp.StatusURL != "/status/"+resp.JobID {
		t.Fatalf("status_url = %q", resp.StatusURL)
	}

	job := waitCompleted(t, router, resp.JobID)
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s (%s)", job.Status, job.Message)
	}
	if job.Settings.FPS != domain.MaxFPS {
		t.Fatalf("fps not clamped: %d", job.Settings.FPS)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/"+resp.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download returned %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, downloadName) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("download body is empty")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/"+resp.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("logs returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Video ready for download") {
		t.Fatalf("log missing completion line:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history returned %d", rec.Code)
	}
	var history struct {
		Jobs []domain.Job `json:"jobs"`
	}
	decodeJSON(t, rec.Body, &history)
	if len(history.Jobs) != 1 || history.Jobs[0].ID != resp.JobID {
		t.Fatalf("history = %+v", history.Jobs)
	}
}

func TestConvertRequiresDeckFile(t *testing.T) {
	_, router := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("voice", "en-US-JennyNeural"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("convert without file returned %d", rec.Code)
	}
}

func TestConvertRejectsNonDeckUpload(t *testing.T) {
	_, router := newTestApp(t)

	body, contentType := multipartDeck(t, "notes.txt", nil)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("convert with .txt returned %d", rec.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	_, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/no-such-job", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rec.Body, &resp)
	if resp["error"] != "not_found" {
		t.Fatalf("error payload = %v", resp)
	}
}

func TestDownloadBeforeCompletion(t *testing.T) {
	app, router := newTestApp(t)

	job := domain.Job{
		ID:       "pending-job",
		Status:   domain.JobStatusProcessing,
		Stage:    domain.StageTTS,
		Progress: domain.StageProgress[domain.StageTTS],
		Settings: domain.DefaultSettings(),
	}
	if err := app.Store.Create(job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/pending-job", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("download of running job returned %d", rec.Code)
	}
	var resp map[string]any
	decodeJSON(t, rec.Body, &resp)
	if resp["error"] != "not_ready" {
		t.Fatalf("payload = %v", resp)
	}
}

func TestLogsDownloadDisposition(t *testing.T) {
	app, router := newTestApp(t)

	if err := app.Store.Create(domain.Job{ID: "log-job", Status: domain.JobStatusProcessing, Settings: domain.DefaultSettings()}); err != nil {
		t.Fatalf("create job: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/log-job?download=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("logs returned %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "log-job_logs.txt") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
}

func TestPreviewNotes(t *testing.T) {
	_, router := newTestApp(t)

	body, contentType := multipartDeck(t, "talk.pptx", nil)
	req := httptest.NewRequest(http.MethodPost, "/preview-notes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preview returned %d: %s", rec.Code, rec.Body.String())
	}
	var preview pipeline.NotesPreview
	decodeJSON(t, rec.Body, &preview)
	if preview.SlidesTotal != 3 || preview.SlidesWithNotes != 2 || !preview.CanConvert {
		t.Fatalf("preview = %+v", preview)
	}
}

func TestHistoryLimitClamp(t *testing.T) {
	app, router := newTestApp(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := app.Store.Create(domain.Job{ID: id, Status: domain.JobStatusProcessing, Settings: domain.DefaultSettings()}); err != nil {
			t.Fatalf("create job %s: %v", id, err)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil))
	var resp struct {
		Jobs []domain.Job `json:"jobs"`
	}
	decodeJSON(t, rec.Body, &resp)
	if len(resp.Jobs) != 2 {
		t.Fatalf("limit ignored, got %d jobs", len(resp.Jobs))
	}
}
