package dashboard

import "time"

// Stats summarizes pipeline throughput for the dashboard.
type Stats struct {
	TotalCalls          int      `json:"total_calls"`
	ProcessedCalls      int      `json:"processed_calls"`
	PendingCalls        int      `json:"pending_calls"`
	FailedCalls         int      `json:"failed_calls"`
	AverageScore        *float64 `json:"average_score"`
	TotalProcessingTime *float64 `json:"total_processing_time"`
}

// AgentPerformance aggregates scores per agent.
type AgentPerformance struct {
	AgentName    string   `json:"agent_name"`
	TotalCalls   int      `json:"total_calls"`
	AverageScore *float64 `json:"average_score"`
	RecentCalls  int      `json:"recent_calls"`
}

// Filter narrows dashboard aggregations. Zero values mean no filtering.
type Filter struct {
	ProjectID *int64
	Agent     string
	StartDate *time.Time
	EndDate   *time.Time
}
