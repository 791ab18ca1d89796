package calls

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"callqa-backend/internal/shared/telemetry"
)

// MemoryRepo implements Repo in memory for tests and local development.
//
// The claim path here is best-effort only: the mutex serializes claimers
// within this process, but there is no cross-process row locking, so the
// atomic-claim guarantee of the Postgres path does not hold. That weaker
// guarantee is logged at claim time.
type MemoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	calls   map[int64]Call
	reports []QAReport
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		nextID: 1,
		calls:  make(map[int64]Call),
	}
}

// Create inserts a new call.
func (r *MemoryRepo) Create(ctx context.Context, call Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call.ID = r.nextID
	r.nextID++
	if call.Status == "" {
		call.Status = StatusUploaded
	}
	if call.UploadedAt.IsZero() {
		call.UploadedAt = time.Now().UTC()
	}
	r.calls[call.ID] = call
	return call, nil
}

// GetByID returns a call by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return call, nil
}

// List returns calls matching the filter, newest upload first.
func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call
	for _, call := range r.calls {
		if filter.ProjectID != nil && (call.ProjectID == nil || *call.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.Status != "" && call.Status != filter.Status {
			continue
		}
		if filter.Agent != "" && !containsFold(deref(call.AgentName), filter.Agent) {
			continue
		}
		if filter.Search != "" &&
			!containsFold(call.Filename, filter.Search) &&
			!containsFold(deref(call.AgentName), filter.Search) &&
			!containsFold(deref(call.CustomerName), filter.Search) {
			continue
		}
		if filter.StartDate != nil && call.UploadedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && call.UploadedAt.After(*filter.EndDate) {
			continue
		}
		out = append(out, call)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ClaimBatch marks up to maxCount uploaded calls as processing, oldest first.
// Exclusivity holds only within this process.
func (r *MemoryRepo) ClaimBatch(ctx context.Context, maxCount int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	telemetry.Info("calls.claim_best_effort", map[string]any{
		"note": "in-memory claim has no cross-process exclusivity",
	})

	var eligible []Call
	for _, call := range r.calls {
		if call.Status == StatusUploaded {
			eligible = append(eligible, call)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].UploadedAt.Before(eligible[j].UploadedAt) })
	if len(eligible) > maxCount {
		eligible = eligible[:maxCount]
	}

	ids := make([]int64, 0, len(eligible))
	for _, call := range eligible {
		call.Status = StatusProcessing
		r.calls[call.ID] = call
		ids = append(ids, call.ID)
	}
	return ids, nil
}

// ClaimByID marks one call processing if its status allows claiming.
func (r *MemoryRepo) ClaimByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	switch call.Status {
	case StatusUploaded, StatusCompleted, StatusFailed:
		call.Status = StatusProcessing
		call.ProcessedAt = nil
		call.ErrorMessage = nil
		r.calls[id] = call
		return nil
	default:
		return ErrNotClaimable
	}
}

// SetTranscriptionJob records the submitted job name and output location.
func (r *MemoryRepo) SetTranscriptionJob(ctx context.Context, id int64, jobName, outputKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	call.TranscriptionJob = &jobName
	call.OutputKey = &outputKey
	r.calls[id] = call
	return nil
}

// MarkCompleted sets terminal completed status.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, id int64, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	call.Status = StatusCompleted
	call.ProcessedAt = &processedAt
	call.ErrorMessage = nil
	r.calls[id] = call
	return nil
}

// MarkFailed sets terminal failed status with the cause.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id int64, errorMessage string, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	call.Status = StatusFailed
	call.ProcessedAt = &processedAt
	call.ErrorMessage = &errorMessage
	r.calls[id] = call
	return nil
}

// CreateReport appends a QA report.
func (r *MemoryRepo) CreateReport(ctx context.Context, report QAReport) (QAReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report.ID = r.nextID
	r.nextID++
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	r.reports = append(r.reports, report)
	return report, nil
}

// GetLatestReport returns the most recent report for a call.
func (r *MemoryRepo) GetLatestReport(ctx context.Context, callID int64) (QAReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		found  bool
		latest QAReport
	)
	for _, report := range r.reports {
		if report.CallID != callID {
			continue
		}
		if !found || report.CreatedAt.After(latest.CreatedAt) || (report.CreatedAt.Equal(latest.CreatedAt) && report.ID > latest.ID) {
			latest = report
			found = true
		}
	}
	if !found {
		return QAReport{}, ErrNotFound
	}
	return latest, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Repo = (*MemoryRepo)(nil)
