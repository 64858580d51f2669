package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// Config represents application configuration loaded from environment
// variables, with pipeline tuning optionally overridden by a YAML file.
type Config struct {
	AppEnv string
	Port   string

	JobsDir   string
	UploadDir string
	// IntakeDir enables the watch-folder submitter when non-empty.
	IntakeDir string

	AzureTTSKey    string
	AzureTTSRegion string

	FFmpegPath  string
	FFprobePath string

	MaxConcurrentJobs int
	ExportTimeout     time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	Pipeline PipelineTuning
}

// PipelineTuning holds the defaults applied to submissions that omit fields,
// plus the timing padding parameters.
type PipelineTuning struct {
	Defaults domain.PipelineSettings `yaml:"defaults"`
	Timing   TimingTuning            `yaml:"timing"`
}

// TimingTuning adjusts the per-slide advance computation.
type TimingTuning struct {
	FallbackSlideSeconds float64 `yaml:"fallback_slide_seconds"`
	HeadSilenceSeconds   float64 `yaml:"head_silence_seconds"`
	TailSilenceSeconds   float64 `yaml:"tail_silence_seconds"`
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. A YAML file named by PIPELINE_CONFIG overrides the
// pipeline tuning block.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		JobsDir:           getEnv("JOBS_DIR", "jobs"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		IntakeDir:         os.Getenv("INTAKE_DIR"),
		AzureTTSKey:       os.Getenv("AZURE_TTS_KEY"),
		AzureTTSRegion:    os.Getenv("AZURE_TTS_REGION"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       getEnv("FFPROBE_PATH", "ffprobe"),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 2),
		ExportTimeout:     time.Second * time.Duration(getEnvInt("EXPORT_TIMEOUT_SECONDS", 1800)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		Pipeline: PipelineTuning{
			Defaults: domain.DefaultSettings(),
			Timing: TimingTuning{
				FallbackSlideSeconds: 2.0,
			},
		},
	}

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		if err := loadPipelineTuning(path, &cfg.Pipeline); err != nil {
			return nil, err
		}
	}
	cfg.Pipeline.Defaults = domain.NormalizeSettings(cfg.Pipeline.Defaults)

	return cfg, nil
}

func loadPipelineTuning(path string, tuning *PipelineTuning) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pipeline config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, tuning); err != nil {
		return fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	if tuning.Timing.FallbackSlideSeconds <= 0 {
		tuning.Timing.FallbackSlideSeconds = 2.0
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
