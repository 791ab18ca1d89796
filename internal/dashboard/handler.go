package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/shared/cache"
	"callqa-backend/internal/shared/server/respond"
)

const statsCacheTTL = time.Minute

// Handler wires HTTP handlers to the dashboard repo.
type Handler struct {
	Repo  Repo
	Cache *cache.Cache
}

// NewHandler constructs a Handler. Cache may be nil.
func NewHandler(repo Repo, c *cache.Cache) *Handler {
	return &Handler{Repo: repo, Cache: c}
}

// RegisterRoutes attaches dashboard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", h.getStats)
	rg.GET("/dashboard/agent-performance", h.getAgentPerformance)
	rg.GET("/dashboard/agent-performance/export", h.exportAgentPerformance)
}

func (h *Handler) getStats(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}

	cacheKey := statsCacheKey(filter)
	if cached, err := h.Cache.Get(c.Request.Context(), cacheKey); err == nil {
		var stats Stats
		if json.Unmarshal([]byte(cached), &stats) == nil {
			respond.OK(c, stats)
			return
		}
	}

	stats, err := h.Repo.Stats(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load dashboard stats", nil)
		return
	}

	if payload, err := json.Marshal(stats); err == nil {
		h.Cache.Set(c.Request.Context(), cacheKey, string(payload), statsCacheTTL)
	}
	respond.OK(c, stats)
}

func (h *Handler) getAgentPerformance(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}

	out, err := h.Repo.AgentPerformance(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load agent performance", nil)
		return
	}
	if out == nil {
		out = []AgentPerformance{}
	}
	respond.OK(c, out)
}

func (h *Handler) exportAgentPerformance(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}

	rows, err := h.Repo.AgentPerformance(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export agent performance", nil)
		return
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	c.Header("Content-Disposition", "attachment; filename=agent_performance_"+stamp+".csv")
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"agent_name", "total_calls", "average_score", "recent_calls"})
	for _, perf := range rows {
		avg := ""
		if perf.AverageScore != nil {
			avg = fmt.Sprintf("%.2f", *perf.AverageScore)
		}
		_ = w.Write([]string{
			perf.AgentName,
			strconv.Itoa(perf.TotalCalls),
			avg,
			strconv.Itoa(perf.RecentCalls),
		})
	}
	w.Flush()
}

func statsCacheKey(filter Filter) string {
	key := "dashboard:stats"
	if filter.ProjectID != nil {
		key += fmt.Sprintf(":p%d", *filter.ProjectID)
	}
	if filter.Agent != "" {
		key += ":a" + filter.Agent
	}
	if filter.StartDate != nil {
		key += ":s" + filter.StartDate.UTC().Format("20060102")
	}
	if filter.EndDate != nil {
		key += ":e" + filter.EndDate.UTC().Format("20060102")
	}
	return key
}

func filterFromQuery(c *gin.Context) (Filter, bool) {
	var filter Filter

	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "project_id must be an integer", nil)
			return Filter{}, false
		}
		filter.ProjectID = &id
	}
	filter.Agent = c.Query("agent")

	if v := c.Query("start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "start_date must be RFC 3339 or YYYY-MM-DD", nil)
			return Filter{}, false
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "end_date must be RFC 3339 or YYYY-MM-DD", nil)
			return Filter{}, false
		}
		filter.EndDate = &t
	}
	return filter, true
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
