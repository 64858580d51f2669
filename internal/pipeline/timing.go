package pipeline

import (
	"fmt"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/export"
)

// Timing defaults: slides without narration stay visible for the fallback
// duration; head and tail silence pad every slide and are tunable
// independently.
const (
	DefaultFallbackSlideSeconds = 2.0
	DefaultHeadSilenceSeconds   = 0.0
	DefaultTailSilenceSeconds   = 0.0
)

// TimingPlan converts measured per-slide narration durations into advance
// timings. A plan is immutable once built and its application is idempotent,
// so it can be reapplied after the deck is saved and reopened.
type TimingPlan struct {
	durations map[int]float64
	fallback  float64
	head      float64
	tail      float64
}

// NewTimingPlan builds a plan from the measured narration durations. Slides
// absent from durations get the fallback duration.
func NewTimingPlan(durations map[int]float64, fallback, head, tail float64) TimingPlan {
	if fallback <= 0 {
		fallback = DefaultFallbackSlideSeconds
	}
	copied := make(map[int]float64, len(durations))
	for slide, seconds := range durations {
		copied[slide] = seconds
	}
	return TimingPlan{durations: copied, fallback: fallback, head: head, tail: tail}
}

// Advance returns the advance duration for one slide: measured narration (or
// the fallback) plus head and tail silence.
func (p TimingPlan) Advance(slide int) float64 {
	seconds, ok := p.durations[slide]
	if !ok {
		seconds = p.fallback
	}
	return seconds + p.head + p.tail
}

// Total returns the intended duration of the whole show across slideCount
// slides. Used only for the diagnostic comparison against the rendered
// video; divergence is logged, never an error, since export hosts round or
// drop trailing silence.
func (p TimingPlan) Total(slideCount int) float64 {
	total := 0.0
	for slide := 1; slide <= slideCount; slide++ {
		total += p.Advance(slide)
	}
	return total
}

// Apply writes the advance timing onto every slide of the open document and
// switches the show to timed advance. Safe to call repeatedly.
func (p TimingPlan) Apply(doc export.Document) error {
	count, err := doc.SlideCount()
	if err != nil {
		return fmt.Errorf("timing: slide count: %w", err)
	}
	for slide := 1; slide <= count; slide++ {
		if err := doc.SetSlideTiming(slide, p.Advance(slide)); err != nil {
			return fmt.Errorf("timing: slide %d: %w", slide, err)
		}
	}
	if err := doc.ApplyShowSettings(); err != nil {
		return fmt.Errorf("timing: show settings: %w", err)
	}
	return nil
}
