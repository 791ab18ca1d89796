package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callqa-backend/internal/dispatch"
	"callqa-backend/internal/qa"
	"callqa-backend/internal/shared/metrics"
	"callqa-backend/internal/shared/telemetry"
)

// Transcriber is the speech-to-text boundary the pipeline depends on.
type Transcriber interface {
	Submit(ctx context.Context, storageKey, jobName string) (string, error)
	Await(ctx context.Context, jobName string) (string, bool)
}

// Scorer is the text-generation boundary for correction and scoring.
// Both operations degrade internally and never fail the pipeline.
type Scorer interface {
	Correct(ctx context.Context, transcript string) string
	Score(ctx context.Context, transcript, model string) qa.Assessment
}

// Service drives calls through the processing pipeline.
type Service struct {
	repo        Repo
	transcriber Transcriber
	scorer      Scorer
	pool        *dispatch.Pool

	defaultModel string
	claimBatch   int

	// now is swappable in tests.
	now func() time.Time
}

// NewService wires the pipeline service.
func NewService(repo Repo, transcriber Transcriber, scorer Scorer, pool *dispatch.Pool, defaultModel string, claimBatch int) *Service {
	if claimBatch <= 0 {
		claimBatch = 10
	}
	return &Service{
		repo:         repo,
		transcriber:  transcriber,
		scorer:       scorer,
		pool:         pool,
		defaultModel: defaultModel,
		claimBatch:   claimBatch,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// TriggerAnalysis claims one call and queues it for async processing.
// Returns once the call is durably marked processing and queued.
func (s *Service) TriggerAnalysis(ctx context.Context, callID int64, model string) error {
	if err := s.repo.ClaimByID(ctx, callID); err != nil {
		return err
	}
	metrics.IncCallsClaimed(1)

	if err := s.pool.Submit(ctx, func(taskCtx context.Context) {
		s.Process(taskCtx, callID, model)
	}); err != nil {
		s.markFailed(callID, fmt.Errorf("queue analysis: %w", err))
		return err
	}

	telemetry.Info("calls.analysis_queued", map[string]any{"callId": callID, "model": model})
	return nil
}

// ClaimAndProcessPending claims up to maxCount uploaded calls and queues each
// for processing. Used by both the periodic sweep and the on-demand endpoint.
// Returns the number of calls claimed.
func (s *Service) ClaimAndProcessPending(ctx context.Context, maxCount int) (int, error) {
	if maxCount <= 0 {
		maxCount = s.claimBatch
	}

	ids, err := s.repo.ClaimBatch(ctx, maxCount)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	metrics.IncCallsClaimed(len(ids))
	telemetry.Info("calls.batch_claimed", map[string]any{"count": len(ids)})

	for _, id := range ids {
		callID := id
		if err := s.pool.Submit(ctx, func(taskCtx context.Context) {
			s.Process(taskCtx, callID, s.defaultModel)
		}); err != nil {
			// Already claimed; resolve to failed rather than leaving the
			// row stuck in processing.
			s.markFailed(callID, fmt.Errorf("queue analysis: %w", err))
		}
	}
	return len(ids), nil
}

// Process runs one claimed call through transcription, correction, scoring,
// and report persistence, resolving the call to a terminal status. The
// caller must hold the claim (status already processing).
func (s *Service) Process(ctx context.Context, callID int64, model string) {
	start := s.now()
	if model == "" {
		model = s.defaultModel
	}

	call, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		s.markFailed(callID, fmt.Errorf("load call: %w", err))
		return
	}

	jobName := fmt.Sprintf("qa-call-%d-%d", call.ID, start.Unix())
	outputKey, err := s.transcriber.Submit(ctx, call.StorageKey, jobName)
	if err != nil {
		s.markFailed(callID, fmt.Errorf("start transcription: %w", err))
		return
	}
	if err := s.repo.SetTranscriptionJob(ctx, callID, jobName, outputKey); err != nil {
		s.markFailed(callID, fmt.Errorf("record transcription job: %w", err))
		return
	}

	transcript, ok := s.transcriber.Await(ctx, jobName)
	if !ok {
		s.markFailed(callID, fmt.Errorf("transcription failed or timed out for job %s", jobName))
		return
	}

	corrected := s.scorer.Correct(ctx, transcript)
	assessment := s.scorer.Score(ctx, corrected, model)

	scores, err := json.Marshal(assessment.Scores)
	if err != nil {
		scores = []byte("{}")
	}
	report := QAReport{
		CallID:                callID,
		Transcript:            transcript,
		CorrectedTranscript:   corrected,
		AgentSummary:          assessment.AgentSummary,
		Scores:                scores,
		Feedback:              assessment.Feedback,
		OverallScore:          float64(assessment.OverallScore),
		PositiveCount:         assessment.PositiveCount,
		NegativeCount:         assessment.NegativeCount,
		NeutralCount:          assessment.NeutralCount,
		ModelUsed:             assessment.ModelUsed,
		ProcessingTimeSeconds: assessment.ProcessingTimeSeconds,
	}
	if _, err := s.repo.CreateReport(ctx, report); err != nil {
		s.markFailed(callID, fmt.Errorf("persist report: %w", err))
		return
	}

	if err := s.repo.MarkCompleted(ctx, callID, s.now()); err != nil {
		s.markFailed(callID, fmt.Errorf("mark completed: %w", err))
		return
	}

	elapsed := s.now().Sub(start).Seconds()
	metrics.IncCallsCompleted()
	metrics.ObservePipelineDurationSeconds(elapsed)
	telemetry.Info("calls.processing_completed", map[string]any{
		"callId":     callID,
		"model":      model,
		"elapsedSec": elapsed,
	})
}

// markFailed resolves a call to failed status. Runs on a background context
// so a canceled pipeline context cannot block recording the failure. If this
// secondary write also fails, the error is only logged and the call stays in
// its last durable state.
func (s *Service) markFailed(callID int64, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	telemetry.Error("calls.processing_failed", map[string]any{"callId": callID, "error": cause.Error()})

	if _, err := s.repo.GetByID(ctx, callID); err != nil {
		telemetry.Error("calls.mark_failed_load_error", map[string]any{"callId": callID, "error": err.Error()})
		return
	}
	if err := s.repo.MarkFailed(ctx, callID, cause.Error(), s.now()); err != nil {
		telemetry.Error("calls.mark_failed_write_error", map[string]any{"callId": callID, "error": err.Error()})
		return
	}
	metrics.IncCallsFailed()
}
