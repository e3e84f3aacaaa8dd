package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"multinic-bond/internal/application/sampler"
	"multinic-bond/internal/application/usecases"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// StateProvider는 트랜잭션 상태 조회 기능입니다
type StateProvider interface {
	State() usecases.StateView
}

// SamplerStatusProvider는 샘플러 상태 조회 기능입니다
type SamplerStatusProvider interface {
	Status() sampler.Status
}

// HealthService provides health check functionality
type HealthService struct {
	mu             sync.RWMutex
	clock          interfaces.Clock
	logger         *logrus.Logger
	startTime      time.Time
	transactions   StateProvider
	sampler        SamplerStatusProvider
	staleAfter     time.Duration
	historyEnabled bool
	dbHealthy      bool
	dbError        error
	applied        int64
	rollbacks      int64
	backend        string
}

// HealthStatus represents health check status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the health check response struct
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
	Statistics map[string]interface{} `json:"statistics"`
}

// NewHealthService creates a new HealthService.
// staleAfter is how long the sampler may go without a tick before it is reported as degraded.
func NewHealthService(
	clock interfaces.Clock,
	transactions StateProvider,
	sampler SamplerStatusProvider,
	staleAfter time.Duration,
	logger *logrus.Logger,
) *HealthService {
	return &HealthService{
		clock:        clock,
		logger:       logger,
		startTime:    clock.Now(),
		transactions: transactions,
		sampler:      sampler,
		staleAfter:   staleAfter,
	}
}

// SetHistoryEnabled marks whether the history database is part of the health picture
func (h *HealthService) SetHistoryEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.historyEnabled = enabled
}

// UpdateDBHealth updates the database health status
func (h *HealthService) UpdateDBHealth(healthy bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dbHealthy = healthy
	h.dbError = err
}

// SetBackend sets the network backend name in use
func (h *HealthService) SetBackend(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.backend = name
}

// ObserveTransition counts applies that reached Active and applies that rolled back
func (h *HealthService) ObserveTransition(from, to entities.TransactionState) {
	if from != entities.StateApplying {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch to {
	case entities.StateActive:
		h.applied++
	case entities.StateRollingBack:
		h.rollbacks++
	}
}

// ServeHTTP handles the HTTP health check endpoint
func (h *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := h.buildHealthResponse()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("failed to encode health check response")
	}
}

// buildHealthResponse constructs the health check response
func (h *HealthService) buildHealthResponse() HealthResponse {
	// 협력자 조회는 락 밖에서
	state := h.transactions.State()
	samplerStatus := h.sampler.Status()

	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.clock.Now()
	samplerStale := h.isStale(now, samplerStatus)

	database := map[string]interface{}{
		"enabled": h.historyEnabled,
	}
	if h.historyEnabled {
		database["healthy"] = h.dbHealthy
		database["error"] = h.formatError(h.dbError)
	}

	components := map[string]interface{}{
		"transaction": map[string]interface{}{
			"state":           state.State,
			"mode":            state.Mode,
			"selection":       state.Selection,
			"pending_restore": state.PendingRestore,
		},
		"sampler": map[string]interface{}{
			"known_interfaces": samplerStatus.Known,
			"ticks":            samplerStatus.Ticks,
			"last_tick":        h.formatTime(samplerStatus.LastTick),
			"last_error":       samplerStatus.LastError,
			"stale":            samplerStale,
		},
		"backend": map[string]interface{}{
			"name": h.backend,
		},
		"database": database,
	}

	statistics := map[string]interface{}{
		"applied_transactions": h.applied,
		"rollbacks":            h.rollbacks,
		"uptime":               h.formatUptime(now.Sub(h.startTime)),
	}

	return HealthResponse{
		Status:     h.determineOverallStatus(state, samplerStatus, samplerStale),
		Timestamp:  now.Format(time.RFC3339),
		Components: components,
		Statistics: statistics,
	}
}

// determineOverallStatus determines the overall health status
func (h *HealthService) determineOverallStatus(state usecases.StateView, status sampler.Status, samplerStale bool) HealthStatus {
	if h.historyEnabled && !h.dbHealthy {
		return StatusUnhealthy
	}

	// Idle인데 스냅샷이 남아 있으면 이전 복원이 불완전했던 것
	if state.State == entities.StateIdle && state.PendingRestore {
		return StatusDegraded
	}

	if status.LastError != "" || samplerStale {
		return StatusDegraded
	}

	if h.rollbacks > 0 {
		failureRate := float64(h.rollbacks) / float64(h.applied+h.rollbacks)
		if failureRate >= 0.5 {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

func (h *HealthService) isStale(now time.Time, status sampler.Status) bool {
	if h.staleAfter <= 0 {
		return false
	}
	last := status.LastTick
	if last.IsZero() {
		// 첫 주기 전에는 기동 시각 기준
		last = h.startTime
	}
	return now.Sub(last) > h.staleAfter
}

// formatError formats an error to string
func (h *HealthService) formatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (h *HealthService) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// formatUptime formats uptime duration to human-readable format
func (h *HealthService) formatUptime(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
