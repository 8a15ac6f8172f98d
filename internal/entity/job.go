package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	StateQueued            JobState = "queued"
	StateScraping          JobState = "scraping"
	StateAnalyzingBrand    JobState = "analyzing_brand"
	StateGeneratingContent JobState = "generating_content"
	StateRendering         JobState = "rendering"
	StateCompleted         JobState = "completed"
	StateFailed            JobState = "failed"
)

// PipelineOrder is the fixed stage sequence. Each non-terminal state advances
// to the next entry once its stage adapter succeeds.
var PipelineOrder = []JobState{
	StateQueued,
	StateScraping,
	StateAnalyzingBrand,
	StateGeneratingContent,
	StateRendering,
	StateCompleted,
}

// Next returns the state that follows s in the pipeline, or "" when s is
// terminal or unknown.
func (s JobState) Next() JobState {
	for i, st := range PipelineOrder {
		if st == s && i+1 < len(PipelineOrder) {
			return PipelineOrder[i+1]
		}
	}
	return ""
}

func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s JobState) Valid() bool {
	if s == StateFailed {
		return true
	}
	for _, st := range PipelineOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Progress maps a state to a completion fraction reported on status polls.
func (s JobState) Progress() float64 {
	switch s {
	case StateScraping:
		return 0.1
	case StateAnalyzingBrand:
		return 0.3
	case StateGeneratingContent:
		return 0.5
	case StateRendering:
		return 0.8
	case StateCompleted:
		return 1.0
	default:
		return 0.0
	}
}

// Message is the human-readable status line shown to polling clients.
func (s JobState) Message() string {
	switch s {
	case StateQueued:
		return "Job queued"
	case StateScraping:
		return "Scraping website for brand assets"
	case StateAnalyzingBrand:
		return "Analyzing brand identity"
	case StateGeneratingContent:
		return "Generating slide content"
	case StateRendering:
		return "Building presentation file"
	case StateCompleted:
		return "Presentation ready"
	case StateFailed:
		return "Generation failed"
	default:
		return ""
	}
}

type StageOutcome string

const (
	OutcomeSuccess StageOutcome = "success"
	OutcomeFailure StageOutcome = "failure"
)

// StageResult is one entry of a job's append-only stage history. Successful
// entries keep the stage output so a replacement executor can resume without
// re-running committed stages; the render stage's output lives in
// Job.Artifact instead.
type StageResult struct {
	Stage    JobState        `json:"stage"`
	Outcome  StageOutcome    `json:"outcome"`
	Attempts int             `json:"attempts"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	At       time.Time       `json:"at"`
}

// GenerationInput is the immutable submission payload.
type GenerationInput struct {
	CompanyURL        string `json:"company_url"`
	Topic             string `json:"topic"`
	SlideCount        int    `json:"slide_count"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

// JobError is the structured failure detail attached to a Failed job.
type JobError struct {
	Stage   JobState `json:"stage,omitempty"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

const (
	ErrCodeStageFailed = "stage_failed"
	ErrCodeCancelled   = "cancelled"
	ErrCodeInternal    = "internal"
)

type Job struct {
	ID              uuid.UUID       `json:"id"`
	Input           GenerationInput `json:"input"`
	State           JobState        `json:"state"`
	StageResults    []StageResult   `json:"stage_results,omitempty"`
	Artifact        []byte          `json:"-"`
	Error           *JobError       `json:"error,omitempty"`
	CancelRequested bool            `json:"cancel_requested,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CompletedStages returns the names of stages with a committed success, in
// pipeline order.
func (j *Job) CompletedStages() []string {
	var out []string
	for _, sr := range j.StageResults {
		if sr.Outcome == OutcomeSuccess {
			out = append(out, string(sr.Stage))
		}
	}
	return out
}

// StageOutput returns the persisted output of the given stage's committed
// success, or nil when that stage has not succeeded yet.
func (j *Job) StageOutput(stage JobState) json.RawMessage {
	for i := len(j.StageResults) - 1; i >= 0; i-- {
		if j.StageResults[i].Stage == stage && j.StageResults[i].Outcome == OutcomeSuccess {
			return j.StageResults[i].Output
		}
	}
	return nil
}
