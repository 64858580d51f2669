package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/export"
)

type fakeNotes struct {
	notes []domain.SlideNote
	err   error
	calls int
}

func (f *fakeNotes) Notes(path string) ([]domain.SlideNote, error) {
	f.calls++
	return f.notes, f.err
}

type fakeTTS struct {
	mu            sync.Mutex
	configuredErr error
	synthErr      error
	calls         []string
	audio         []byte
}

func (f *fakeTTS) Configured() error { return f.configuredErr }

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice, rate string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	f.calls = append(f.calls, text)
	audio := f.audio
	if audio == nil {
		audio = []byte("mp3:" + text)
	}
	return audio, nil
}

// fakeMedia simulates ffprobe/concat/mux with a duration ledger keyed by
// artifact base name.
type fakeMedia struct {
	clipSeconds  map[string]float64 // base name -> duration
	rawSeconds   float64
	durations    map[string]float64
	concatCalled bool
	muxCalled    bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		clipSeconds: map[string]float64{},
		rawSeconds:  10.0,
		durations:   map[string]float64{},
	}
}

func (f *fakeMedia) ProbeDuration(ctx context.Context, path string) (float64, error) {
	base := filepath.Base(path)
	if seconds, ok := f.clipSeconds[base]; ok {
		return seconds, nil
	}
	if seconds, ok := f.durations[base]; ok {
		return seconds, nil
	}
	if base == "video_raw.mp4" {
		return f.rawSeconds, nil
	}
	return 0, fmt.Errorf("no duration scripted for %s", base)
}

func (f *fakeMedia) Concat(ctx context.Context, clips []string, outPath string) error {
	f.concatCalled = true
	total := 0.0
	for _, clip := range clips {
		total += f.clipSeconds[filepath.Base(clip)]
	}
	f.durations[filepath.Base(outPath)] = total
	return os.WriteFile(outPath, []byte("narration"), 0o644)
}

func (f *fakeMedia) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	f.muxCalled = true
	if _, err := os.Stat(audioPath); err != nil {
		return &domain.ExternalToolError{Tool: "ffmpeg", Detail: "narration track missing", Err: err}
	}
	video := f.rawSeconds
	audio := f.durations[filepath.Base(audioPath)]
	final := video
	if audio < final {
		final = audio
	}
	f.durations[filepath.Base(outPath)] = final
	return os.WriteFile(outPath, []byte("final"), 0o644)
}

// fakeDocument records timing application and simulates the async export.
type fakeDocument struct {
	slides              int
	timings             map[int]float64
	showSettingsApplied bool
	exportPayload       []byte
	exportStatus        export.ExportStatus
	saveAsPayload       []byte
	saveAsErr           error
	saveAsCalls         int
}

func (d *fakeDocument) SlideCount() (int, error) { return d.slides, nil }

func (d *fakeDocument) SetSlideTiming(slide int, seconds float64) error {
	if d.timings == nil {
		d.timings = map[int]float64{}
	}
	d.timings[slide] = seconds
	return nil
}

func (d *fakeDocument) ApplyShowSettings() error { d.showSettingsApplied = true; return nil }

func (d *fakeDocument) SaveCopyAs(path string) error {
	return os.WriteFile(path, []byte("copy"), 0o644)
}

func (d *fakeDocument) Save() error { return nil }

func (d *fakeDocument) StartExport(path string, opts export.ExportOptions) error {
	return os.WriteFile(path, d.exportPayload, 0o644)
}

func (d *fakeDocument) ExportStatus() (export.ExportStatus, error) {
	if d.exportStatus == export.StatusNone {
		return export.StatusDone, nil
	}
	return d.exportStatus, nil
}

func (d *fakeDocument) SaveAsVideo(path string) error {
	d.saveAsCalls++
	if d.saveAsErr != nil {
		return d.saveAsErr
	}
	return os.WriteFile(path, d.saveAsPayload, 0o644)
}

func (d *fakeDocument) MarkSaved() error { return nil }
func (d *fakeDocument) Close() error     { return nil }

// fakeHost hands the same document state to every Open so tests can inspect
// what the reopened working copy received.
type fakeHost struct {
	doc     *fakeDocument
	openErr error
	quit    bool
}

func (h *fakeHost) Open(path string) (export.Document, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	return h.doc, nil
}

func (h *fakeHost) Quit() error { h.quit = true; return nil }
