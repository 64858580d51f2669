// Package media wraps the ffmpeg/ffprobe binaries: duration probing, lossless
// audio concatenation and the final audio/video mux.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// Runner abstracts external process execution for testability.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec, folding stderr into the error.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("command %s failed: %w\nstderr: %s", name, err, msg)
		}
		return "", fmt.Errorf("command %s failed: %w", name, err)
	}
	return stdout.String(), nil
}

// Tool is the media tool used by the pipeline.
type Tool struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
	logger  zerolog.Logger
}

// Options configures binary paths and the runner. Zero values fall back to
// the binaries on PATH and the exec runner.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Runner      Runner
}

// NewTool creates a media tool.
func NewTool(opts Options, logger zerolog.Logger) *Tool {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	return &Tool{
		ffmpeg:  opts.FFmpegPath,
		ffprobe: opts.FFprobePath,
		runner:  opts.Runner,
		logger:  logger.With().Str("component", "media").Logger(),
	}
}

// ProbeDuration returns the media duration of path in seconds.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.Run(ctx, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nk=1:nw=1",
		path,
	)
	if err != nil {
		return 0, &domain.ExternalToolError{Tool: "ffprobe", Detail: "probe " + path, Err: err}
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, &domain.ExternalToolError{Tool: "ffprobe", Detail: fmt.Sprintf("unparseable duration %q for %s", strings.TrimSpace(out), path), Err: err}
	}
	return seconds, nil
}

// Concat joins the clips, in order, into one audio file using a lossless
// stream copy driven by a concat manifest written next to the output.
func (t *Tool) Concat(ctx context.Context, clips []string, outPath string) error {
	if len(clips) == 0 {
		return &domain.ExternalToolError{Tool: "ffmpeg", Detail: "concat called with no input clips"}
	}

	manifest := filepath.Join(filepath.Dir(outPath), "audio_list.txt")
	var sb strings.Builder
	for _, clip := range clips {
		// The concat demuxer expects forward slashes and quoted paths.
		sb.WriteString("file '" + filepath.ToSlash(clip) + "'\n")
	}
	if err := os.WriteFile(manifest, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("media: write concat manifest: %w", err)
	}

	if _, err := t.runner.Run(ctx, t.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		outPath,
	); err != nil {
		return &domain.ExternalToolError{Tool: "ffmpeg", Detail: "concatenate narration clips", Err: err}
	}
	return nil
}

// Mux combines the exported video's video stream with the narration track:
// video codec copied unchanged, audio transcoded to AAC, output truncated to
// the shorter stream.
func (t *Tool) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	if _, err := os.Stat(audioPath); err != nil {
		return &domain.ExternalToolError{Tool: "ffmpeg", Detail: "narration track missing: " + audioPath, Err: err}
	}
	if _, err := t.runner.Run(ctx, t.ffmpeg,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outPath,
	); err != nil {
		return &domain.ExternalToolError{Tool: "ffmpeg", Detail: "mux video and narration", Err: err}
	}
	return nil
}
