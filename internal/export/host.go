// Package export drives the slide video export host. The host's primary
// export API is asynchronous and occasionally silently fails, so the driver
// escalates through fallback save strategies before giving up.
package export

// ExportStatus mirrors the host's asynchronous video task status codes.
type ExportStatus int

const (
	StatusNone       ExportStatus = 0
	StatusInProgress ExportStatus = 1
	StatusQueued     ExportStatus = 2
	StatusDone       ExportStatus = 3
	StatusFailed     ExportStatus = 4
)

// ExportOptions parameterize the primary timed-export call.
type ExportOptions struct {
	UseTimings          bool
	DefaultSlideSeconds int
	VerticalResolution  int
	FramesPerSecond     int
	Quality             int
}

// Host is the narrow capability interface over the external rendering
// application. One host instance backs one job's export stage.
type Host interface {
	Open(path string) (Document, error)
	// Quit terminates the host process. Never escalated by callers; a
	// leaked host must not fail a job that already produced its artifact.
	Quit() error
}

// Document is an open deck inside the host.
type Document interface {
	SlideCount() (int, error)
	// SetSlideTiming configures slide (1-based) to auto-advance after
	// seconds, disabling advance-on-click.
	SetSlideTiming(slide int, seconds float64) error
	// ApplyShowSettings switches the slide show to timed advance with
	// animations and narration enabled.
	ApplyShowSettings() error
	SaveCopyAs(path string) error
	Save() error
	// StartExport begins the asynchronous timed video export.
	StartExport(path string, opts ExportOptions) error
	ExportStatus() (ExportStatus, error)
	// SaveAsVideo is the synchronous fallback save used when StartExport
	// fails or produces nothing.
	SaveAsVideo(path string) error
	// MarkSaved flags the document clean so Close cannot prompt.
	MarkSaved() error
	Close() error
}

// TimingApplier applies per-slide advance timings to an open document. The
// application is idempotent so it can be repeated after a save/reopen cycle
// without recomputation.
type TimingApplier interface {
	Apply(doc Document) error
}
