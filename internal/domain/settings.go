package domain

import "strings"

// Settings defaults and bounds. Out-of-range numeric inputs are clamped to
// the nearest bound, never rejected.
const (
	DefaultVoice        = "en-US-JennyNeural"
	DefaultSpeakingRate = "medium"
	DefaultResolution   = 1080
	DefaultFPS          = 30
	DefaultQuality      = 100

	MinResolution = 240
	MaxResolution = 2160
	MinFPS        = 1
	MaxFPS        = 60
	MinQuality    = 1
	MaxQuality    = 100
)

var speakingRates = map[string]bool{
	"x-slow": true,
	"slow":   true,
	"medium": true,
	"fast":   true,
	"x-fast": true,
}

// PipelineSettings are the normalized conversion parameters. Immutable once
// attached to a job.
type PipelineSettings struct {
	Voice        string `json:"voice" yaml:"voice"`
	SpeakingRate string `json:"speaking_rate" yaml:"speaking_rate"`
	Resolution   int    `json:"resolution" yaml:"resolution"`
	FPS          int    `json:"fps" yaml:"fps"`
	Quality      int    `json:"quality" yaml:"quality"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() PipelineSettings {
	return PipelineSettings{
		Voice:        DefaultVoice,
		SpeakingRate: DefaultSpeakingRate,
		Resolution:   DefaultResolution,
		FPS:          DefaultFPS,
		Quality:      DefaultQuality,
	}
}

// NormalizeSettings fills missing fields with defaults and clamps numeric
// fields into their valid range. It is idempotent: normalizing an already
// normalized record yields the same record.
func NormalizeSettings(raw PipelineSettings) PipelineSettings {
	s := raw

	s.Voice = strings.TrimSpace(s.Voice)
	if s.Voice == "" {
		s.Voice = DefaultVoice
	}

	s.SpeakingRate = strings.ToLower(strings.TrimSpace(s.SpeakingRate))
	if !speakingRates[s.SpeakingRate] {
		s.SpeakingRate = DefaultSpeakingRate
	}

	if s.Resolution == 0 {
		s.Resolution = DefaultResolution
	}
	s.Resolution = clamp(s.Resolution, MinResolution, MaxResolution)

	if s.FPS == 0 {
		s.FPS = DefaultFPS
	}
	s.FPS = clamp(s.FPS, MinFPS, MaxFPS)

	if s.Quality == 0 {
		s.Quality = DefaultQuality
	}
	s.Quality = clamp(s.Quality, MinQuality, MaxQuality)

	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
