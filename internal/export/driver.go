package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/fsutil"
)

// Config holds the protocol's poll interval and retry budgets.
type Config struct {
	StatusPollInterval time.Duration
	// First fallback: wait for the destination file to appear.
	ExistsAttempts int
	ExistsDelay    time.Duration
	// Second fallback: wait for the file to become non-empty.
	NonEmptyAttempts      int
	NonEmptyDelay         time.Duration
	RetryNonEmptyAttempts int
	// Handle-release wait once a non-empty file exists.
	ReadableAttempts int
	ReadableDelay    time.Duration
	DeleteAttempts   int
	DeleteDelay      time.Duration
}

// DefaultConfig returns the production retry budgets.
func DefaultConfig() Config {
	return Config{
		StatusPollInterval:    2 * time.Second,
		ExistsAttempts:        30,
		ExistsDelay:           2 * time.Second,
		NonEmptyAttempts:      60,
		NonEmptyDelay:         2 * time.Second,
		RetryNonEmptyAttempts: 30,
		ReadableAttempts:      30,
		ReadableDelay:         time.Second,
		DeleteAttempts:        5,
		DeleteDelay:           500 * time.Millisecond,
	}
}

// Driver runs the export fallback protocol against one host instance.
type Driver struct {
	cfg    Config
	logger zerolog.Logger
}

// NewDriver creates a driver with the given budgets.
func NewDriver(cfg Config, logger zerolog.Logger) *Driver {
	return &Driver{cfg: cfg, logger: logger.With().Str("component", "export").Logger()}
}

// Run produces a non-empty, readable video at outPath from the deck at
// deckPath, or fails the export. The context carries the export deadline; on
// expiry the host is force-closed and a timeout error is returned.
//
// Protocol: open deck, apply timings, save a working copy at copyPath,
// reopen the copy, reapply timings (transition settings can be lost across
// save/reopen), save, start the primary async export and poll its status.
// On a non-success terminal status fall back to a synchronous save-as-video,
// once more if the file stays missing or empty, then wait for the host to
// release its handle on the artifact.
func (d *Driver) Run(ctx context.Context, host Host, deckPath, copyPath, outPath string, timings TimingApplier, opts ExportOptions) (err error) {
	doc, err := host.Open(deckPath)
	if err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "open deck", Err: err}
	}
	defer func() {
		d.closeQuietly(doc)
		if quitErr := host.Quit(); quitErr != nil {
			d.logger.Warn().Err(quitErr).Msg("failed to quit export host cleanly")
		}
	}()

	if err := timings.Apply(doc); err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "apply slide timings", Err: err}
	}

	// Hosts can behave unpredictably on decks carrying protection or
	// compatibility flags; render from a freshly saved copy instead.
	if err := fsutil.Remove(copyPath, d.cfg.DeleteAttempts, d.cfg.DeleteDelay); err != nil {
		return err
	}
	if err := doc.SaveCopyAs(copyPath); err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "save working copy", Err: err}
	}
	if err := doc.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("failed to close original deck")
	}

	doc, err = host.Open(copyPath)
	if err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "reopen working copy", Err: err}
	}
	if err := timings.Apply(doc); err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "reapply slide timings", Err: err}
	}
	if err := doc.Save(); err != nil {
		return &domain.ExternalToolError{Tool: "export host", Detail: "persist timings", Err: err}
	}

	if err := fsutil.Remove(outPath, d.cfg.DeleteAttempts, d.cfg.DeleteDelay); err != nil {
		return err
	}

	primaryOK := true
	if err := doc.StartExport(outPath, opts); err != nil {
		d.logger.Warn().Err(err).Msg("primary export call rejected, trying fallback save")
		primaryOK = false
	}

	if primaryOK {
		status, pollErr := d.pollStatus(ctx, doc)
		if pollErr != nil {
			return pollErr
		}
		if status != StatusDone {
			d.logger.Warn().Int("status", int(status)).Msg("primary export did not succeed, trying fallback save")
			primaryOK = false
		}
	}

	if !primaryOK {
		if err := doc.SaveAsVideo(outPath); err != nil {
			return &domain.ExternalToolError{Tool: "export host", Detail: "primary export and fallback save both failed", Err: err}
		}
		if !fsutil.WaitExists(outPath, d.cfg.ExistsAttempts, d.cfg.ExistsDelay) {
			return &domain.ExternalToolError{Tool: "export host", Detail: fmt.Sprintf("fallback save produced no file at %s", outPath)}
		}
	}

	if !fsutil.WaitNonEmpty(outPath, d.cfg.NonEmptyAttempts, d.cfg.NonEmptyDelay) {
		d.logger.Warn().Str("path", outPath).Msg("export wrote an empty file, retrying fallback save")
		if err := doc.SaveAsVideo(outPath); err != nil {
			return &domain.ExternalToolError{Tool: "export host", Detail: "empty export and fallback save retry failed", Err: err}
		}
		if !fsutil.WaitNonEmpty(outPath, d.cfg.RetryNonEmptyAttempts, d.cfg.NonEmptyDelay) {
			return &domain.ExternalToolError{Tool: "export host", Detail: fmt.Sprintf("host produced an empty or locked file: %s", outPath)}
		}
	}

	// The host releases its handle on the artifact asynchronously.
	if err := fsutil.WaitReadable(outPath, d.cfg.ReadableAttempts, d.cfg.ReadableDelay); err != nil {
		return err
	}
	return nil
}

// pollStatus waits for the async export task to leave the in-progress state.
func (d *Driver) pollStatus(ctx context.Context, doc Document) (ExportStatus, error) {
	ticker := time.NewTicker(d.cfg.StatusPollInterval)
	defer ticker.Stop()
	for {
		status, err := doc.ExportStatus()
		if err != nil {
			return StatusNone, &domain.ExternalToolError{Tool: "export host", Detail: "read export status", Err: err}
		}
		if status != StatusInProgress && status != StatusQueued {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return StatusNone, &domain.ExternalToolError{Tool: "export host", Detail: "export deadline exceeded", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// closeQuietly closes the document, marking it saved on a second attempt so
// the host cannot block on a save prompt. Never escalated.
func (d *Driver) closeQuietly(doc Document) {
	if doc == nil {
		return
	}
	if err := doc.Close(); err == nil {
		return
	} else {
		d.logger.Warn().Err(err).Msg("failed to close document cleanly")
	}
	if err := doc.MarkSaved(); err != nil {
		d.logger.Warn().Err(err).Msg("failed to mark document saved")
		return
	}
	if err := doc.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("document close retry failed")
	}
}
