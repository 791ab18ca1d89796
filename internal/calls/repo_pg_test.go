package calls

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoClaimBatchUsesSkipLocked(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	ids, err := repo.ClaimBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids = %v, want [1 2]", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoClaimBatchEmptyIsNotAnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := repo.ClaimBatch(context.Background(), 5)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want empty", ids)
	}
}

func TestPGRepoClaimByIDNotClaimable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE calls SET status = 'processing'`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{
		"id", "project_id", "filename", "storage_key", "output_key", "transcription_job", "status",
		"agent_name", "customer_name", "call_duration", "uploaded_at", "processed_at", "error_message",
	}).AddRow(int64(7), nil, "call.wav", "uploads/0/call.wav", nil, nil, StatusProcessing,
		nil, nil, nil, time.Now().UTC(), nil, nil)
	mock.ExpectQuery(`FROM calls WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	if err := repo.ClaimByID(context.Background(), 7); err != ErrNotClaimable {
		t.Fatalf("err = %v, want ErrNotClaimable", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailedPersistsErrorMessage(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE calls SET status = 'failed'`).
		WithArgs(int64(3), now, "transcription failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkFailed(context.Background(), 3, "transcription failed", now); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateReport(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO qa_reports`).
		WithArgs(
			int64(9),
			"raw",
			"corrected",
			"summary",
			`{"professionalism":90}`,
			"feedback",
			88.0,
			3,
			1,
			2,
			"gpt-4o",
			12.5,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now().UTC()))

	report, err := repo.CreateReport(context.Background(), QAReport{
		CallID:                9,
		Transcript:            "raw",
		CorrectedTranscript:   "corrected",
		AgentSummary:          "summary",
		Scores:                []byte(`{"professionalism":90}`),
		Feedback:              "feedback",
		OverallScore:          88,
		PositiveCount:         3,
		NegativeCount:         1,
		NeutralCount:          2,
		ModelUsed:             "gpt-4o",
		ProcessingTimeSeconds: 12.5,
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if report.ID != 1 {
		t.Fatalf("report id = %d, want 1", report.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
