package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"plutus/internal/adapters/redis"
	"plutus/pkg/logger"
)

// Checker verifies one dependency.
type Checker func(ctx context.Context) error

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	checkers    map[string]Checker
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. Redis is optional; when nil it is
// excluded from the checks entirely.
func New(log *logger.Logger, redisClient *redis.Client, serviceName, version string) *Handler {
	checkers := make(map[string]Checker)
	if redisClient != nil {
		checkers["redis"] = redisClient.Health
	}

	return &Handler{
		log:         log,
		checkers:    checkers,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// AddChecker registers an extra dependency check.
func (h *Handler) AddChecker(name string, check Checker) {
	h.checkers[name] = check
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness probe
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks if service is ready to accept traffic
// Used by Kubernetes readiness probe
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, allHealthy := h.runChecks(ctx)

	statusCode := http.StatusOK
	if !allHealthy {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("readiness check failed", "checks", status.Checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(status)
}

// HandleHealth returns detailed health status (includes all checks)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, allHealthy := h.runChecks(ctx)

	statusCode := http.StatusOK
	if !allHealthy {
		if len(status.Checks) > 0 && healthyCount(status.Checks) == 0 {
			status.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		} else {
			// Still return 200 for degraded
			status.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(status)
}

func (h *Handler) runChecks(ctx context.Context) (HealthStatus, bool) {
	checks := make(map[string]ComponentHealth, len(h.checkers))
	allHealthy := true

	for name, check := range h.checkers {
		result := h.runCheck(ctx, name, check)
		checks[name] = result
		if result.Status != "healthy" {
			allHealthy = false
		}
	}

	return HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}, allHealthy
}

func (h *Handler) runCheck(ctx context.Context, name string, check Checker) ComponentHealth {
	start := time.Now()
	err := check(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func healthyCount(checks map[string]ComponentHealth) int {
	n := 0
	for _, c := range checks {
		if c.Status == "healthy" {
			n++
		}
	}
	return n
}
