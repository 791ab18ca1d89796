package dashboard

import (
	"context"
	"database/sql"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func buildWhere(filter Filter, args *[]any) string {
	where := " WHERE 1=1"
	if filter.ProjectID != nil {
		*args = append(*args, *filter.ProjectID)
		where += fmt.Sprintf(" AND c.project_id = $%d", len(*args))
	}
	if filter.Agent != "" {
		*args = append(*args, "%"+filter.Agent+"%")
		where += fmt.Sprintf(" AND c.agent_name ILIKE $%d", len(*args))
	}
	if filter.StartDate != nil {
		*args = append(*args, *filter.StartDate)
		where += fmt.Sprintf(" AND c.uploaded_at >= $%d", len(*args))
	}
	if filter.EndDate != nil {
		*args = append(*args, *filter.EndDate)
		where += fmt.Sprintf(" AND c.uploaded_at <= $%d", len(*args))
	}
	return where
}

// Stats aggregates call counts and score averages in one pass.
func (r *PGRepo) Stats(ctx context.Context, filter Filter) (Stats, error) {
	var args []any
	query := `
SELECT
	COUNT(DISTINCT c.id),
	COUNT(DISTINCT c.id) FILTER (WHERE c.status = 'completed'),
	COUNT(DISTINCT c.id) FILTER (WHERE c.status IN ('uploaded', 'processing')),
	COUNT(DISTINCT c.id) FILTER (WHERE c.status = 'failed'),
	AVG(r.overall_score),
	SUM(r.processing_time_seconds)
FROM calls c
LEFT JOIN qa_reports r ON r.call_id = c.id` + buildWhere(filter, &args)

	var stats Stats
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalCalls,
		&stats.ProcessedCalls,
		&stats.PendingCalls,
		&stats.FailedCalls,
		&stats.AverageScore,
		&stats.TotalProcessingTime,
	)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// AgentPerformance groups completed-call scores per agent.
func (r *PGRepo) AgentPerformance(ctx context.Context, filter Filter) ([]AgentPerformance, error) {
	var args []any
	query := `
SELECT
	c.agent_name,
	COUNT(DISTINCT c.id),
	AVG(r.overall_score),
	COUNT(DISTINCT c.id) FILTER (WHERE c.status = 'completed')
FROM calls c
LEFT JOIN qa_reports r ON r.call_id = c.id` + buildWhere(filter, &args) + `
AND c.agent_name IS NOT NULL
GROUP BY c.agent_name
ORDER BY c.agent_name`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentPerformance
	for rows.Next() {
		var perf AgentPerformance
		if err := rows.Scan(&perf.AgentName, &perf.TotalCalls, &perf.AverageScore, &perf.RecentCalls); err != nil {
			return nil, err
		}
		out = append(out, perf)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
