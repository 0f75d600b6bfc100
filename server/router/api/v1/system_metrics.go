package v1

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// MetricsOverviewResponse represents the overview response of system metrics.
type MetricsOverviewResponse struct {
	TotalRequests int64                     `json:"total_requests"`
	ErrorCount    int64                     `json:"error_count"`
	SuccessRate   float64                   `json:"success_rate"`
	P50LatencyMs  int64                     `json:"p50_latency_ms"`
	P95LatencyMs  int64                     `json:"p95_latency_ms"`
	P99LatencyMs  int64                     `json:"p99_latency_ms"`
	Outcomes      map[string]int64          `json:"outcomes"`
	Endpoints     []EndpointMetricsResponse `json:"endpoints"`
	KBVersion     string                    `json:"knowledge_base_version"`
}

// EndpointMetricsResponse is the per-endpoint breakdown.
type EndpointMetricsResponse struct {
	Endpoint     string `json:"endpoint"`
	RequestCount int64  `json:"request_count"`
	ErrorCount   int64  `json:"error_count"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

// GetMetricsOverview returns the in-process request metrics since start.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()

	resp := MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		ErrorCount:    snapshot.RequestFailed,
		SuccessRate:   snapshot.SuccessRate(),
		P50LatencyMs:  snapshot.P50.Milliseconds(),
		P95LatencyMs:  snapshot.P95.Milliseconds(),
		P99LatencyMs:  snapshot.P99.Milliseconds(),
		Outcomes:      snapshot.Outcomes,
		Endpoints:     []EndpointMetricsResponse{},
		KBVersion:     s.KnowledgeBase.Version(),
	}
	for name, em := range snapshot.EndpointMetrics {
		resp.Endpoints = append(resp.Endpoints, EndpointMetricsResponse{
			Endpoint:     name,
			RequestCount: em.RequestCount,
			ErrorCount:   em.ErrorCount,
			AvgLatencyMs: em.AverageDuration,
		})
	}
	sort.Slice(resp.Endpoints, func(i, j int) bool {
		return resp.Endpoints[i].Endpoint < resp.Endpoints[j].Endpoint
	})
	return c.JSON(http.StatusOK, resp)
}
