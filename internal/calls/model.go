package calls

import (
	"encoding/json"
	"time"
)

// Call statuses. Transitions only move forward: uploaded -> processing ->
// completed or failed.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Call is one audio recording submitted for analysis.
type Call struct {
	ID               int64      `json:"id"`
	ProjectID        *int64     `json:"project_id,omitempty"`
	Filename         string     `json:"filename"`
	StorageKey       string     `json:"storage_key"`
	OutputKey        *string    `json:"output_key,omitempty"`
	TranscriptionJob *string    `json:"transcription_job,omitempty"`
	Status           string     `json:"status"`
	AgentName        *string    `json:"agent_name,omitempty"`
	CustomerName     *string    `json:"customer_name,omitempty"`
	CallDuration     *float64   `json:"call_duration,omitempty"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
}

// QAReport is the scoring artifact of one completed pipeline run.
// Append-only: never mutated after creation.
type QAReport struct {
	ID                    int64           `json:"id"`
	CallID                int64           `json:"call_id"`
	Transcript            string          `json:"transcript"`
	CorrectedTranscript   string          `json:"corrected_transcript"`
	AgentSummary          string          `json:"agent_summary"`
	Scores                json.RawMessage `json:"qa_scores"`
	Feedback              string          `json:"qa_feedback"`
	OverallScore          float64         `json:"overall_score"`
	PositiveCount         int             `json:"positive_count"`
	NegativeCount         int             `json:"negative_count"`
	NeutralCount          int             `json:"neutral_count"`
	ModelUsed             string          `json:"model_used"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
	CreatedAt             time.Time       `json:"created_at"`
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	ProjectID *int64
	Status    string
	Agent     string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
