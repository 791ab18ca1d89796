package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const callColumns = `id, project_id, filename, storage_key, output_key, transcription_job, status,
       agent_name, customer_name, call_duration, uploaded_at, processed_at, error_message`

// Create inserts a new call in uploaded status.
func (r *PGRepo) Create(ctx context.Context, call Call) (Call, error) {
	const query = `
INSERT INTO calls (project_id, filename, storage_key, status, agent_name, customer_name, call_duration)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, uploaded_at`
	status := call.Status
	if status == "" {
		status = StatusUploaded
	}
	err := r.DB.QueryRowContext(ctx, query,
		call.ProjectID,
		call.Filename,
		call.StorageKey,
		status,
		call.AgentName,
		call.CustomerName,
		call.CallDuration,
	).Scan(&call.ID, &call.UploadedAt)
	if err != nil {
		return Call{}, err
	}
	call.Status = status
	return call, nil
}

// GetByID returns a call by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Call, error) {
	query := fmt.Sprintf(`SELECT %s FROM calls WHERE id = $1 LIMIT 1`, callColumns)
	call, err := scanCall(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return call, nil
}

// List returns calls matching the filter, newest upload first.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Call, error) {
	query := fmt.Sprintf(`SELECT %s FROM calls`, callColumns)
	var (
		conds []string
		args  []any
	)
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conds = append(conds, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Agent != "" {
		args = append(args, "%"+filter.Agent+"%")
		conds = append(conds, fmt.Sprintf("agent_name ILIKE $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(filename ILIKE $%d OR agent_name ILIKE $%d OR customer_name ILIKE $%d)", n, n, n))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, fmt.Sprintf("uploaded_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("uploaded_at <= $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY uploaded_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, call)
	}
	return out, rows.Err()
}

// ClaimBatch selects and marks a batch of uploaded calls in one statement.
// FOR UPDATE SKIP LOCKED keeps concurrent claimers from selecting the same
// rows, so each call is claimed at most once.
func (r *PGRepo) ClaimBatch(ctx context.Context, maxCount int) ([]int64, error) {
	const query = `
WITH claimed AS (
	SELECT id FROM calls
	WHERE status = 'uploaded'
	ORDER BY uploaded_at ASC
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
UPDATE calls SET status = 'processing'
WHERE id IN (SELECT id FROM claimed)
RETURNING id`
	rows, err := r.DB.QueryContext(ctx, query, maxCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimByID marks one call processing via compare-and-swap on status.
// Reprocessing from a terminal status is allowed; claiming an in-flight
// call is not.
func (r *PGRepo) ClaimByID(ctx context.Context, id int64) error {
	const query = `
UPDATE calls SET status = 'processing', processed_at = NULL, error_message = NULL
WHERE id = $1 AND status IN ('uploaded', 'completed', 'failed')`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotClaimable
	}
	return nil
}

// SetTranscriptionJob records the submitted job name and output location.
func (r *PGRepo) SetTranscriptionJob(ctx context.Context, id int64, jobName, outputKey string) error {
	const query = `UPDATE calls SET transcription_job = $2, output_key = $3 WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, id, jobName, outputKey)
	return err
}

// MarkCompleted sets terminal completed status.
func (r *PGRepo) MarkCompleted(ctx context.Context, id int64, processedAt time.Time) error {
	const query = `UPDATE calls SET status = 'completed', processed_at = $2, error_message = NULL WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, id, processedAt)
	return err
}

// MarkFailed sets terminal failed status with the cause.
func (r *PGRepo) MarkFailed(ctx context.Context, id int64, errorMessage string, processedAt time.Time) error {
	const query = `UPDATE calls SET status = 'failed', processed_at = $2, error_message = $3 WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, id, processedAt, errorMessage)
	return err
}

// CreateReport inserts a QA report for a completed call.
func (r *PGRepo) CreateReport(ctx context.Context, report QAReport) (QAReport, error) {
	const query = `
INSERT INTO qa_reports (
	call_id, transcript, corrected_transcript, agent_summary, qa_scores, qa_feedback,
	overall_score, positive_count, negative_count, neutral_count, model_used, processing_time_seconds
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, created_at`
	scores := report.Scores
	if len(scores) == 0 {
		scores = []byte("{}")
	}
	err := r.DB.QueryRowContext(ctx, query,
		report.CallID,
		report.Transcript,
		report.CorrectedTranscript,
		report.AgentSummary,
		string(scores),
		report.Feedback,
		report.OverallScore,
		report.PositiveCount,
		report.NegativeCount,
		report.NeutralCount,
		report.ModelUsed,
		report.ProcessingTimeSeconds,
	).Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return QAReport{}, err
	}
	return report, nil
}

// GetLatestReport returns the most recent report for a call.
func (r *PGRepo) GetLatestReport(ctx context.Context, callID int64) (QAReport, error) {
	const query = `
SELECT id, call_id, transcript, corrected_transcript, agent_summary, qa_scores, qa_feedback,
       overall_score, positive_count, negative_count, neutral_count, model_used,
       processing_time_seconds, created_at
FROM qa_reports
WHERE call_id = $1
ORDER BY created_at DESC
LIMIT 1`
	var (
		report QAReport
		scores sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, callID).Scan(
		&report.ID,
		&report.CallID,
		&report.Transcript,
		&report.CorrectedTranscript,
		&report.AgentSummary,
		&scores,
		&report.Feedback,
		&report.OverallScore,
		&report.PositiveCount,
		&report.NegativeCount,
		&report.NeutralCount,
		&report.ModelUsed,
		&report.ProcessingTimeSeconds,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QAReport{}, ErrNotFound
		}
		return QAReport{}, err
	}
	if scores.Valid {
		report.Scores = []byte(scores.String)
	}
	return report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var call Call
	err := row.Scan(
		&call.ID,
		&call.ProjectID,
		&call.Filename,
		&call.StorageKey,
		&call.OutputKey,
		&call.TranscriptionJob,
		&call.Status,
		&call.AgentName,
		&call.CustomerName,
		&call.CallDuration,
		&call.UploadedAt,
		&call.ProcessedAt,
		&call.ErrorMessage,
	)
	return call, err
}

var _ Repo = (*PGRepo)(nil)
