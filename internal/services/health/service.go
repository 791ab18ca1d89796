package health

import "callqa-backend/internal/dispatch"

// Service encapsulates health-related checks.
type Service struct {
	pool *dispatch.Pool
}

// NewService constructs a new health service. Pool may be nil.
func NewService(pool *dispatch.Pool) *Service {
	return &Service{pool: pool}
}

// Status returns a health payload including worker pool saturation.
func (s *Service) Status() map[string]any {
	out := map[string]any{"ok": true}
	if s.pool != nil {
		out["pipeline"] = map[string]int{
			"inFlight":   s.pool.InFlight(),
			"queueDepth": s.pool.QueueDepth(),
			"capacity":   s.pool.Capacity(),
		}
	}
	return out
}
