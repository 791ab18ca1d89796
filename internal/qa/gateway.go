package qa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callqa-backend/internal/llm"
	"callqa-backend/internal/llm/openai"
	"callqa-backend/internal/shared/telemetry"
)

const (
	correctionTemperature = 0.1
	scoringTemperature    = 0.3
)

// Gateway talks to the text-generation provider for transcript correction
// and performance scoring. Both operations absorb provider failures so the
// pipeline never fails on a degraded generation step.
type Gateway struct {
	client       llm.Client
	defaultModel string
	maxRetryTime time.Duration
}

// NewGateway constructs a scoring gateway around an LLM client.
func NewGateway(client llm.Client, defaultModel string, maxRetryTime time.Duration) *Gateway {
	if maxRetryTime <= 0 {
		maxRetryTime = 30 * time.Second
	}
	return &Gateway{
		client:       client,
		defaultModel: defaultModel,
		maxRetryTime: maxRetryTime,
	}
}

// DefaultModel returns the model used when callers do not request one.
func (g *Gateway) DefaultModel() string {
	return g.defaultModel
}

// Correct cleans up transcription artifacts in the transcript. On any
// provider failure the raw transcript is returned unchanged.
func (g *Gateway) Correct(ctx context.Context, transcript string) string {
	out, err := g.complete(ctx, llm.CompletionRequest{
		Model:       g.defaultModel,
		System:      correctionSystemPrompt,
		User:        "Please correct this call center transcript:\n\n" + transcript,
		Temperature: correctionTemperature,
	})
	if err != nil {
		telemetry.Error("qa.correct_failed", map[string]any{"error": err.Error()})
		return transcript
	}
	telemetry.Info("qa.transcript_corrected", nil)
	return out
}

// Score produces a structured assessment of agent performance. On any
// provider or parse failure a zero assessment is returned whose feedback
// carries the error description.
func (g *Gateway) Score(ctx context.Context, transcript, model string) Assessment {
	if model == "" {
		model = g.defaultModel
	}
	start := time.Now()

	content, err := g.complete(ctx, llm.CompletionRequest{
		Model:       model,
		System:      scoringSystemPrompt,
		User:        "Analyze this call transcript:\n\n" + transcript,
		Temperature: scoringTemperature,
	})
	if err != nil {
		return g.fallback(model, start, err)
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &assessment); err != nil {
		return g.fallback(model, start, fmt.Errorf("parse assessment: %w", err))
	}

	assessment.ModelUsed = model
	assessment.ProcessingTimeSeconds = time.Since(start).Seconds()
	telemetry.Info("qa.analysis_completed", map[string]any{
		"model":        model,
		"overallScore": assessment.OverallScore,
		"elapsedSec":   assessment.ProcessingTimeSeconds,
	})
	return assessment
}

func (g *Gateway) fallback(model string, start time.Time, cause error) Assessment {
	telemetry.Error("qa.score_failed", map[string]any{"model": model, "error": cause.Error()})
	return Assessment{
		AgentSummary:          "Analysis failed",
		Scores:                map[string]int{},
		Feedback:              fmt.Sprintf("Error generating feedback: %s", cause.Error()),
		OverallScore:          0,
		PositiveCount:         0,
		NegativeCount:         0,
		NeutralCount:          0,
		ModelUsed:             model,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}
}

// complete wraps the LLM call with exponential backoff. Client errors from
// the provider (bad request, auth) are not retried.
func (g *Gateway) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	var out string
	operation := func() error {
		result, err := g.client.Complete(ctx, req)
		if err != nil {
			var statusErr *openai.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 && statusErr.StatusCode != 429 {
				return backoff.Permanent(err)
			}
			return err
		}
		out = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = g.maxRetryTime
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return "", err
	}
	return out, nil
}

// stripCodeFence removes surrounding markdown code-fence markup the provider
// may wrap JSON payloads in.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
	} else {
		return trimmed
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
