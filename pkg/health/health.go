package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Check probes a single dependency.
type Check func(ctx context.Context) error

// Status of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Report is the JSON body returned by the health endpoints.
type Report struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]Result `json:"checks,omitempty"`
}

// Result is the outcome of one dependency check.
type Result struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

const checkTimeout = 5 * time.Second

// Handler serves liveness and readiness endpoints over registered checks.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewHandler() *Handler {
	return &Handler{checks: make(map[string]Check)}
}

// Register adds a named dependency check used by the readiness endpoint.
func (h *Handler) Register(name string, c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// Live reports 200 whenever the process is able to serve requests.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, Report{Status: StatusUp, Timestamp: time.Now().UTC()})
}

// Ready runs all registered checks and reports 200 or 503.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	h.mu.RLock()
	checks := make(map[string]Check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	report := Report{
		Status:    StatusUp,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]Result, len(checks)),
	}

	for name, c := range checks {
		if err := c(ctx); err != nil {
			report.Checks[name] = Result{Status: StatusDown, Error: err.Error()}
			report.Status = StatusDown
		} else {
			report.Checks[name] = Result{Status: StatusUp}
		}
	}

	status := http.StatusOK
	if report.Status == StatusDown {
		status = http.StatusServiceUnavailable
	}
	writeReport(w, status, report)
}

func writeReport(w http.ResponseWriter, status int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
