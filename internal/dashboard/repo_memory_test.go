package dashboard

import (
	"context"
	"testing"
	"time"

	"callqa-backend/internal/calls"
)

func seedCall(t *testing.T, repo *calls.MemoryRepo, agent, status string, score float64, processingTime float64) calls.Call {
	t.Helper()
	ctx := context.Background()

	var agentName *string
	if agent != "" {
		agentName = &agent
	}
	call, err := repo.Create(ctx, calls.Call{
		Filename:   "call.wav",
		StorageKey: "uploads/0/call.wav",
		Status:     calls.StatusUploaded,
		AgentName:  agentName,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}

	switch status {
	case calls.StatusUploaded:
		return call
	case calls.StatusProcessing:
		if err := repo.ClaimByID(ctx, call.ID); err != nil {
			t.Fatalf("claim: %v", err)
		}
		return call
	}

	if err := repo.ClaimByID(ctx, call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if status == calls.StatusFailed {
		if err := repo.MarkFailed(ctx, call.ID, "boom", time.Now().UTC()); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
		return call
	}

	if _, err := repo.CreateReport(ctx, calls.QAReport{
		CallID:                call.ID,
		OverallScore:          score,
		ProcessingTimeSeconds: processingTime,
	}); err != nil {
		t.Fatalf("create report: %v", err)
	}
	if err := repo.MarkCompleted(ctx, call.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	return call
}

func TestStatsCountsByStatusAndAveragesScores(t *testing.T) {
	callsRepo := calls.NewMemoryRepo()
	repo := &MemoryRepo{Calls: callsRepo}

	seedCall(t, callsRepo, "Alice", calls.StatusCompleted, 80, 10)
	seedCall(t, callsRepo, "Alice", calls.StatusCompleted, 90, 14)
	seedCall(t, callsRepo, "Bob", calls.StatusFailed, 0, 0)
	seedCall(t, callsRepo, "Bob", calls.StatusUploaded, 0, 0)
	seedCall(t, callsRepo, "", calls.StatusProcessing, 0, 0)

	stats, err := repo.Stats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCalls != 5 {
		t.Fatalf("total = %d, want 5", stats.TotalCalls)
	}
	if stats.ProcessedCalls != 2 || stats.FailedCalls != 1 || stats.PendingCalls != 2 {
		t.Fatalf("processed/failed/pending = %d/%d/%d", stats.ProcessedCalls, stats.FailedCalls, stats.PendingCalls)
	}
	if stats.AverageScore == nil || *stats.AverageScore != 85 {
		t.Fatalf("average score = %v, want 85", stats.AverageScore)
	}
	if stats.TotalProcessingTime == nil || *stats.TotalProcessingTime != 24 {
		t.Fatalf("total processing time = %v, want 24", stats.TotalProcessingTime)
	}
}

func TestStatsWithNoReportsLeavesAveragesNil(t *testing.T) {
	callsRepo := calls.NewMemoryRepo()
	repo := &MemoryRepo{Calls: callsRepo}

	seedCall(t, callsRepo, "Alice", calls.StatusUploaded, 0, 0)

	stats, err := repo.Stats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.AverageScore != nil || stats.TotalProcessingTime != nil {
		t.Fatalf("averages = %v/%v, want nil with no scored calls", stats.AverageScore, stats.TotalProcessingTime)
	}
}

func TestAgentPerformanceGroupsByAgent(t *testing.T) {
	callsRepo := calls.NewMemoryRepo()
	repo := &MemoryRepo{Calls: callsRepo}

	seedCall(t, callsRepo, "Alice", calls.StatusCompleted, 70, 5)
	seedCall(t, callsRepo, "Alice", calls.StatusCompleted, 90, 5)
	seedCall(t, callsRepo, "Alice", calls.StatusFailed, 0, 0)
	seedCall(t, callsRepo, "Bob", calls.StatusCompleted, 60, 5)
	seedCall(t, callsRepo, "", calls.StatusCompleted, 100, 5)

	perf, err := repo.AgentPerformance(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("AgentPerformance: %v", err)
	}
	if len(perf) != 2 {
		t.Fatalf("agents = %d, want 2 (unattributed calls excluded)", len(perf))
	}

	alice, bob := perf[0], perf[1]
	if alice.AgentName != "Alice" || bob.AgentName != "Bob" {
		t.Fatalf("agents = %q, %q", alice.AgentName, bob.AgentName)
	}
	if alice.TotalCalls != 3 || alice.RecentCalls != 2 {
		t.Fatalf("alice total/recent = %d/%d", alice.TotalCalls, alice.RecentCalls)
	}
	if alice.AverageScore == nil || *alice.AverageScore != 80 {
		t.Fatalf("alice average = %v, want 80", alice.AverageScore)
	}
	if bob.TotalCalls != 1 || bob.AverageScore == nil || *bob.AverageScore != 60 {
		t.Fatalf("bob = %+v", bob)
	}
}

func TestStatsHonorsAgentFilter(t *testing.T) {
	callsRepo := calls.NewMemoryRepo()
	repo := &MemoryRepo{Calls: callsRepo}

	seedCall(t, callsRepo, "Alice", calls.StatusCompleted, 80, 10)
	seedCall(t, callsRepo, "Bob", calls.StatusCompleted, 40, 10)

	stats, err := repo.Stats(context.Background(), Filter{Agent: "alice"})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCalls != 1 {
		t.Fatalf("total = %d, want agent-filtered 1", stats.TotalCalls)
	}
	if stats.AverageScore == nil || *stats.AverageScore != 80 {
		t.Fatalf("average = %v, want 80", stats.AverageScore)
	}
}
