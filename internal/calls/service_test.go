package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"callqa-backend/internal/dispatch"
	"callqa-backend/internal/qa"
)

type fakeTranscriber struct {
	mu        sync.Mutex
	submitted []string
	submitErr error
	text      string
	ok        bool
}

func (f *fakeTranscriber) Submit(ctx context.Context, storageKey, jobName string) (string, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, jobName)
	f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "transcriptions/" + jobName + ".json", nil
}

func (f *fakeTranscriber) Await(ctx context.Context, jobName string) (string, bool) {
	return f.text, f.ok
}

type fakeScorer struct {
	corrected  string
	assessment qa.Assessment
}

func (f *fakeScorer) Correct(ctx context.Context, transcript string) string {
	if f.corrected != "" {
		return f.corrected
	}
	return transcript
}

func (f *fakeScorer) Score(ctx context.Context, transcript, model string) qa.Assessment {
	a := f.assessment
	if a.ModelUsed == "" {
		a.ModelUsed = model
	}
	return a
}

func newTestService(t *testing.T, repo Repo, transcriber Transcriber, scorer Scorer) (*Service, *dispatch.Pool) {
	t.Helper()
	pool := dispatch.NewPool(4, 32)
	t.Cleanup(pool.Shutdown)
	return NewService(repo, transcriber, scorer, pool, "gpt-4o", 10), pool
}

func createUploaded(t *testing.T, repo Repo, filename string, uploadedAt time.Time) Call {
	t.Helper()
	call, err := repo.Create(context.Background(), Call{
		Filename:   filename,
		StorageKey: "uploads/0/" + filename,
		Status:     StatusUploaded,
		UploadedAt: uploadedAt,
	})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}
	return call
}

func TestProcessCompletesCallWithReport(t *testing.T) {
	repo := NewMemoryRepo()
	transcriber := &fakeTranscriber{text: "hello world", ok: true}
	scorer := &fakeScorer{
		corrected: "Hello, world.",
		assessment: qa.Assessment{
			AgentSummary: "Good call",
			Scores:       map[string]int{"professionalism": 90},
			Feedback:     "Solid handling",
			OverallScore: 88,
		},
	}
	svc, _ := newTestService(t, repo, transcriber, scorer)

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())
	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	svc.Process(context.Background(), call.ID, "gpt-4o")

	got, err := repo.GetByID(context.Background(), call.ID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.ProcessedAt == nil {
		t.Fatalf("processed_at not set on completed call")
	}
	if got.ErrorMessage != nil {
		t.Fatalf("error_message = %q, want nil", *got.ErrorMessage)
	}
	if got.TranscriptionJob == nil || !strings.HasPrefix(*got.TranscriptionJob, fmt.Sprintf("qa-call-%d-", call.ID)) {
		t.Fatalf("transcription job not recorded: %v", got.TranscriptionJob)
	}

	report, err := repo.GetLatestReport(context.Background(), call.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.Transcript != "hello world" || report.CorrectedTranscript != "Hello, world." {
		t.Fatalf("report transcripts = %q / %q", report.Transcript, report.CorrectedTranscript)
	}
	if report.OverallScore != 88 {
		t.Fatalf("overall score = %v, want 88", report.OverallScore)
	}
	if report.ModelUsed != "gpt-4o" {
		t.Fatalf("model used = %q", report.ModelUsed)
	}
}

func TestProcessFailsWhenTranscriptionYieldsNothing(t *testing.T) {
	repo := NewMemoryRepo()
	transcriber := &fakeTranscriber{ok: false}
	svc, _ := newTestService(t, repo, transcriber, &fakeScorer{})

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())
	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	svc.Process(context.Background(), call.ID, "")

	got, err := repo.GetByID(context.Background(), call.ID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage == "" {
		t.Fatalf("error_message not populated on failed call")
	}
	if got.ProcessedAt == nil {
		t.Fatalf("processed_at not set on failed call")
	}
	if _, err := repo.GetLatestReport(context.Background(), call.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no report for failed call, got %v", err)
	}
}

func TestProcessFailsWhenSubmitErrors(t *testing.T) {
	repo := NewMemoryRepo()
	transcriber := &fakeTranscriber{submitErr: errors.New("provider unavailable")}
	svc, _ := newTestService(t, repo, transcriber, &fakeScorer{})

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())
	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	svc.Process(context.Background(), call.ID, "")

	got, _ := repo.GetByID(context.Background(), call.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "provider unavailable") {
		t.Fatalf("error_message = %v, want submit cause", got.ErrorMessage)
	}
}

func TestDegradedScoringStillCompletesCall(t *testing.T) {
	repo := NewMemoryRepo()
	transcriber := &fakeTranscriber{text: "transcript", ok: true}
	scorer := &fakeScorer{
		assessment: qa.Assessment{
			AgentSummary: "Analysis failed",
			Scores:       map[string]int{},
			Feedback:     "Error generating feedback: provider exploded",
			OverallScore: 0,
		},
	}
	svc, _ := newTestService(t, repo, transcriber, scorer)

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())
	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	svc.Process(context.Background(), call.ID, "gpt-4o")

	got, _ := repo.GetByID(context.Background(), call.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed despite degraded scoring", got.Status)
	}
	report, err := repo.GetLatestReport(context.Background(), call.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.OverallScore != 0 || !strings.Contains(report.Feedback, "Error generating feedback") {
		t.Fatalf("degraded report not persisted: score=%v feedback=%q", report.OverallScore, report.Feedback)
	}
}

// failingReportRepo simulates storage loss at report persistence time.
type failingReportRepo struct {
	Repo
}

func (f *failingReportRepo) CreateReport(ctx context.Context, report QAReport) (QAReport, error) {
	return QAReport{}, errors.New("storage unavailable")
}

func TestPersistenceErrorResolvesToFailed(t *testing.T) {
	inner := NewMemoryRepo()
	repo := &failingReportRepo{Repo: inner}
	transcriber := &fakeTranscriber{text: "transcript", ok: true}
	svc, _ := newTestService(t, repo, transcriber, &fakeScorer{})

	call := createUploaded(t, inner, "call.wav", time.Now().UTC())
	if err := inner.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	svc.Process(context.Background(), call.ID, "")

	got, _ := inner.GetByID(context.Background(), call.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed on persistence error", got.Status)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "storage unavailable") {
		t.Fatalf("error_message = %v", got.ErrorMessage)
	}
}

func TestClaimBatchOrdersOldestFirstAndBounds(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Now().UTC().Add(-time.Hour)
	var ids []int64
	for i := 0; i < 5; i++ {
		call := createUploaded(t, repo, fmt.Sprintf("call-%d.wav", i), base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, call.ID)
	}

	claimed, err := repo.ClaimBatch(context.Background(), 3)
	if err != nil {
		t.Fatalf("claim batch: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("claimed %d calls, want 3", len(claimed))
	}
	for i, id := range claimed {
		if id != ids[i] {
			t.Fatalf("claimed[%d] = %d, want %d (oldest first)", i, id, ids[i])
		}
		call, _ := repo.GetByID(context.Background(), id)
		if call.Status != StatusProcessing {
			t.Fatalf("claimed call %d status = %q, want processing", id, call.Status)
		}
	}
}

func TestClaimByIDRejectsInFlightCall(t *testing.T) {
	repo := NewMemoryRepo()
	call := createUploaded(t, repo, "call.wav", time.Now().UTC())

	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := repo.ClaimByID(context.Background(), call.ID); !errors.Is(err, ErrNotClaimable) {
		t.Fatalf("second claim err = %v, want ErrNotClaimable", err)
	}
}

func TestClaimByIDAllowsReprocessingTerminalCall(t *testing.T) {
	repo := NewMemoryRepo()
	call := createUploaded(t, repo, "call.wav", time.Now().UTC())

	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.MarkFailed(context.Background(), call.ID, "boom", time.Now().UTC()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("reclaim after terminal state: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), call.ID)
	if got.Status != StatusProcessing || got.ErrorMessage != nil || got.ProcessedAt != nil {
		t.Fatalf("reclaimed call not reset: %+v", got)
	}
}

func TestConcurrentClaimersClaimEachCallAtMostOnce(t *testing.T) {
	repo := NewMemoryRepo()
	transcriber := &fakeTranscriber{text: "transcript", ok: true}
	svc, _ := newTestService(t, repo, transcriber, &fakeScorer{})

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		createUploaded(t, repo, fmt.Sprintf("call-%d.wav", i), base.Add(time.Duration(i)*time.Second))
	}

	// Two on-demand triggers and one sweep firing together, each allowed 10.
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := svc.ClaimAndProcessPending(context.Background(), 10)
			if err != nil {
				t.Errorf("claim and process: %v", err)
				return
			}
			mu.Lock()
			total += claimed
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 15 {
		t.Fatalf("claimed %d calls across claimers, want exactly 15", total)
	}

	// Every call leaves the uploaded state; none is claimed twice, none left behind.
	remaining, err := repo.List(context.Background(), ListFilter{Status: StatusUploaded})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("%d calls left unclaimed with capacity to spare", len(remaining))
	}
}

func TestClaimAndProcessPendingEmptyIsNotAnError(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(t, repo, &fakeTranscriber{ok: true}, &fakeScorer{})

	claimed, err := svc.ClaimAndProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("claim with no pending calls: %v", err)
	}
	if claimed != 0 {
		t.Fatalf("claimed = %d, want 0", claimed)
	}
}

func TestTriggerAnalysisQueuesAndCompletes(t *testing.T) {
	repo := NewMemoryRepo()
	transcriber := &fakeTranscriber{text: "transcript", ok: true}
	svc, pool := newTestService(t, repo, transcriber, &fakeScorer{assessment: qa.Assessment{OverallScore: 75}})

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())
	if err := svc.TriggerAnalysis(context.Background(), call.ID, "gpt-4o"); err != nil {
		t.Fatalf("trigger analysis: %v", err)
	}

	// The claim is durable before TriggerAnalysis returns.
	got, _ := repo.GetByID(context.Background(), call.ID)
	if got.Status == StatusUploaded {
		t.Fatalf("call not claimed before return")
	}

	pool.Shutdown()

	got, _ = repo.GetByID(context.Background(), call.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed after drain", got.Status)
	}
}

func TestTriggerAnalysisMissingCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _ := newTestService(t, repo, &fakeTranscriber{ok: true}, &fakeScorer{})

	if err := svc.TriggerAnalysis(context.Background(), 404, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
