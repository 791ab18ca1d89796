package dashboard

import "context"

// Repo defines the read-side aggregation queries the dashboard needs.
type Repo interface {
	Stats(ctx context.Context, filter Filter) (Stats, error)
	AgentPerformance(ctx context.Context, filter Filter) ([]AgentPerformance, error)
}
