package calls

import (
	"context"
	"time"
)

// Repo defines persistence operations for calls and their reports.
//
// ClaimBatch and ClaimByID are the only mutators of a call's status while it
// is contended; everything else runs under the claim held by one pipeline
// instance.
type Repo interface {
	Create(ctx context.Context, call Call) (Call, error)
	GetByID(ctx context.Context, id int64) (Call, error)
	List(ctx context.Context, filter ListFilter) ([]Call, error)

	// ClaimBatch atomically selects up to maxCount calls in uploaded status,
	// oldest upload first, marks them processing, and returns their IDs.
	// Implementations without row-level lock skipping provide best-effort
	// exclusivity only and must log that weaker guarantee.
	ClaimBatch(ctx context.Context, maxCount int) ([]int64, error)

	// ClaimByID marks a single call processing if its current status allows
	// claiming. Returns ErrNotClaimable when the call is already in flight.
	ClaimByID(ctx context.Context, id int64) error

	SetTranscriptionJob(ctx context.Context, id int64, jobName, outputKey string) error
	MarkCompleted(ctx context.Context, id int64, processedAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMessage string, processedAt time.Time) error

	CreateReport(ctx context.Context, report QAReport) (QAReport, error)
	GetLatestReport(ctx context.Context, callID int64) (QAReport, error)
}
