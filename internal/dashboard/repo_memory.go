package dashboard

import (
	"context"
	"errors"
	"sort"

	"callqa-backend/internal/calls"
)

// MemoryRepo implements Repo over the in-memory calls repo for tests and
// local development. Aggregations use each call's latest report.
type MemoryRepo struct {
	Calls *calls.MemoryRepo
}

// Stats aggregates call counts and score averages.
func (r *MemoryRepo) Stats(ctx context.Context, filter Filter) (Stats, error) {
	rows, err := r.list(ctx, filter)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	var scoreSum, timeSum float64
	var scored int
	for _, call := range rows {
		stats.TotalCalls++
		switch call.Status {
		case calls.StatusCompleted:
			stats.ProcessedCalls++
		case calls.StatusUploaded, calls.StatusProcessing:
			stats.PendingCalls++
		case calls.StatusFailed:
			stats.FailedCalls++
		}

		report, err := r.Calls.GetLatestReport(ctx, call.ID)
		if err != nil {
			if errors.Is(err, calls.ErrNotFound) {
				continue
			}
			return Stats{}, err
		}
		scoreSum += report.OverallScore
		timeSum += report.ProcessingTimeSeconds
		scored++
	}

	if scored > 0 {
		avg := scoreSum / float64(scored)
		stats.AverageScore = &avg
		stats.TotalProcessingTime = &timeSum
	}
	return stats, nil
}

// AgentPerformance groups completed-call scores per agent.
func (r *MemoryRepo) AgentPerformance(ctx context.Context, filter Filter) ([]AgentPerformance, error) {
	rows, err := r.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		total    int
		recent   int
		scoreSum float64
		scored   int
	}
	buckets := make(map[string]*bucket)

	for _, call := range rows {
		if call.AgentName == nil || *call.AgentName == "" {
			continue
		}
		b, ok := buckets[*call.AgentName]
		if !ok {
			b = &bucket{}
			buckets[*call.AgentName] = b
		}
		b.total++
		if call.Status == calls.StatusCompleted {
			b.recent++
		}

		report, err := r.Calls.GetLatestReport(ctx, call.ID)
		if err != nil {
			if errors.Is(err, calls.ErrNotFound) {
				continue
			}
			return nil, err
		}
		b.scoreSum += report.OverallScore
		b.scored++
	}

	out := make([]AgentPerformance, 0, len(buckets))
	for name, b := range buckets {
		perf := AgentPerformance{AgentName: name, TotalCalls: b.total, RecentCalls: b.recent}
		if b.scored > 0 {
			avg := b.scoreSum / float64(b.scored)
			perf.AverageScore = &avg
		}
		out = append(out, perf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentName < out[j].AgentName })
	return out, nil
}

func (r *MemoryRepo) list(ctx context.Context, filter Filter) ([]calls.Call, error) {
	return r.Calls.List(ctx, calls.ListFilter{
		ProjectID: filter.ProjectID,
		Agent:     filter.Agent,
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	})
}

var _ Repo = (*MemoryRepo)(nil)
