package check

import (
	"time"
)

// Status is the lifecycle state of a resume check job. Transitions only move
// forward: pending -> processing -> completed or failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving a job from one status to another is
// allowed by the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Qualification is a single requirement from a job posting with an integer
// importance weight between 1 and 10.
type Qualification struct {
	Name   string `json:"qualification"`
	Weight int    `json:"weight"`
}

// Analysis is the structured scoring result produced for a completed job.
type Analysis struct {
	// Score is the weighted match score scaled to 0-100.
	Score int `json:"score"`
	// ScoreCSV is the raw per-qualification CSV returned by the scoring
	// agent: qualification, weight, score rows.
	ScoreCSV string `json:"raw_score_csv"`
	// Narrative is the human-readable analysis with improvement suggestions.
	Narrative string `json:"narrative"`
}

// Job is one resume evaluation request and its lifecycle record.
type Job struct {
	ID string `json:"id"`

	JobPost          string          `json:"job_post"`
	ResumeText       string          `json:"resume_text"`
	SummarizeJobPost bool            `json:"summarize_job_post"`
	Qualifications   []Qualification `json:"qualifications,omitempty"`

	Status   Status    `json:"status"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Error    string    `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
