package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Pipeline stages in execution order.
const (
	StageUpload = "upload"
	StageNotes  = "notes"
	StageTTS    = "tts"
	StageExport = "export"
	StageMux    = "mux"
	StageDone   = "done"
)

// StageProgress maps each stage to the checkpoint progress reported when the
// pipeline enters it. Progress never decreases within a job; terminal states
// always report 100.
var StageProgress = map[string]int{
	StageUpload: 5,
	StageNotes:  12,
	StageTTS:    35,
	StageExport: 60,
	StageMux:    85,
	StageDone:   100,
}

// Job encapsulates the lifecycle of one deck-to-video conversion.
type Job struct {
	ID        string             `json:"job_id"`
	Status    JobStatus          `json:"status"`
	Stage     string             `json:"stage"`
	Progress  int                `json:"progress"`
	Message   string             `json:"message"`
	Output    string             `json:"output,omitempty"`
	Filename  string             `json:"filename"`
	Settings  PipelineSettings   `json:"settings"`
	Telemetry map[string]float64 `json:"telemetry"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	LogPath   string             `json:"log"`
}

// SlideNote is the speaker-note text extracted for one slide. Indices are
// 1-based and match deck order.
type SlideNote struct {
	Index    int    `json:"slide"`
	Text     string `json:"text"`
	HasNotes bool   `json:"has_notes"`
}

// SlidesWithNotes counts notes whose text survived trimming.
func SlidesWithNotes(notes []SlideNote) int {
	n := 0
	for _, note := range notes {
		if note.HasNotes {
			n++
		}
	}
	return n
}
