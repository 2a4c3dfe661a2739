package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const maxRecentErrors = 10

// HealthChecker tracks the liveness of the signal loop
type HealthChecker struct {
	mu             sync.RWMutex
	started        time.Time
	staleAfter     time.Duration
	lastEvaluation time.Time
	lastPrice      float64
	isConnected    bool
	errors         []string
	now            func() time.Time
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastEvaluation time.Time `json:"last_evaluation"`
	LastPrice      float64   `json:"last_price"`
	IsConnected    bool      `json:"is_connected"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports degraded when no evaluation happened within staleAfter
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		started:    time.Now(),
		staleAfter: staleAfter,
		errors:     make([]string, 0),
		now:        time.Now,
	}
}

// RecordEvaluation marks a successful poll and clears earlier errors
func (h *HealthChecker) RecordEvaluation(price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastEvaluation = h.now()
	h.lastPrice = price
	h.isConnected = true
	h.errors = h.errors[:0]
}

// RecordError keeps the most recent errors for the health report
func (h *HealthChecker) RecordError(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = false
	h.errors = append(h.errors, err.Error())
	if len(h.errors) > maxRecentErrors {
		h.errors = h.errors[len(h.errors)-maxRecentErrors:]
	}
}

// Status builds the current report and its HTTP status code
func (h *HealthChecker) Status() (HealthStatus, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status, code := "healthy", http.StatusOK
	if !h.isConnected || (h.staleAfter > 0 && now.Sub(h.lastEvaluation) > h.staleAfter) {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status, code = "unhealthy", http.StatusInternalServerError
	}

	return HealthStatus{
		Status:         status,
		Timestamp:      now,
		LastEvaluation: h.lastEvaluation,
		LastPrice:      h.lastPrice,
		IsConnected:    h.isConnected,
		Uptime:         now.Sub(h.started).Round(time.Second).String(),
		Errors:         append([]string(nil), h.errors...),
	}, code
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health, code := h.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
