package qa

// Assessment is the structured scoring result for one call transcript.
type Assessment struct {
	AgentSummary          string         `json:"agent_summary"`
	Scores                map[string]int `json:"qa_scores"`
	Feedback              string         `json:"qa_feedback"`
	OverallScore          int            `json:"overall_score"`
	PositiveCount         int            `json:"positive_count"`
	NegativeCount         int            `json:"negative_count"`
	NeutralCount          int            `json:"neutral_count"`
	ModelUsed             string         `json:"model_used"`
	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
}

// SubScoreNames are the fixed dimensions the scoring prompt asks for.
var SubScoreNames = []string{
	"professionalism",
	"communication",
	"problem_solving",
	"compliance",
	"customer_satisfaction",
}
