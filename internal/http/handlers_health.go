package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports not ready until the store answers and the first view
// load has been applied.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	notReady := func(name, reason string) {
		checks[name] = reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if err := s.ready(ctx); err != nil {
		notReady("store", fmt.Sprintf("failed: %v", err))
	} else {
		checks["store"] = "ok"
	}

	if !s.view.Ready() {
		notReady("view", "loading")
	} else {
		d := s.view.Data()
		checks["view"] = map[string]interface{}{
			"status":       "ok",
			"loaded_at":    d.LoadedAt.Format(time.RFC3339),
			"students":     len(d.Students),
			"payments":     len(d.Payments),
			"transactions": len(d.Transactions),
		}
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()
	d := s.view.Data()

	metric := func(name, help, kind string, value interface{}) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "Requests refused by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Requests refused by method", "counter", securityMetrics.BlockedRequests)
	metric("admin_sessions", "Stored browser sessions", "gauge", s.sessions.Count())
	metric("websocket_clients", "Connected live update clients", "gauge", s.feed.Clients())

	fmt.Fprintf(w, "# HELP ledger_records Records in the current view\n# TYPE ledger_records gauge\n")
	fmt.Fprintf(w, "ledger_records{collection=\"students\"} %d\n", len(d.Students))
	fmt.Fprintf(w, "ledger_records{collection=\"payments\"} %d\n", len(d.Payments))
	fmt.Fprintf(w, "ledger_records{collection=\"transactions\"} %d\n\n", len(d.Transactions))

	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.started).Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
