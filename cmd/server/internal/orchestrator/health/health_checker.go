// Package health runs periodic probes against a speech-to-text backend.
// Consecutive failures past a threshold mark the service unhealthy, which
// the degradation controller uses to switch transcribers.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hysio/scribe-audio/cmd/server/internal/asr"
	"github.com/hysio/scribe-audio/pkg/logger"
)

// ServiceStatus is the current health state of a transcription backend.
// It is JSON-serializable for the status API endpoint.
type ServiceStatus struct {
	// IsHealthy indicates whether the service passed recent health checks
	IsHealthy bool `json:"is_healthy"`

	// LastCheckTime records when the most recent health check ran
	LastCheckTime time.Time `json:"last_check_time"`

	// ConsecutiveFails counts failed checks in a row, reset on success
	ConsecutiveFails int `json:"consecutive_fails"`

	// ErrorMessage holds the last failure message, empty when healthy
	ErrorMessage string `json:"error_message"`
}

// Checker probes one transcriber at a fixed interval. All public methods
// are safe for concurrent use.
type Checker struct {
	transcriber   asr.Transcriber
	status        *ServiceStatus
	mu            sync.RWMutex
	checkInterval time.Duration
	failThreshold int
	stopChan      chan struct{}
}

// NewChecker creates a Checker for the given transcriber. checkInterval is
// the probe period; failThreshold is how many consecutive failures flip the
// status to unhealthy. The checker starts optimistic.
func NewChecker(transcriber asr.Transcriber, checkInterval time.Duration, failThreshold int) *Checker {
	return &Checker{
		transcriber:   transcriber,
		checkInterval: checkInterval,
		failThreshold: failThreshold,
		stopChan:      make(chan struct{}),
		status: &ServiceStatus{
			IsHealthy:     true,
			LastCheckTime: time.Now(),
		},
	}
}

// Start runs the probe loop until Stop is called or the context ends. It
// performs an immediate check, then ticks at the configured interval.
// Callers run this in its own goroutine.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	c.performCheck(ctx)

	for {
		select {
		case <-ticker.C:
			c.performCheck(ctx)
		case <-c.stopChan:
			logger.L().Info("health checker stopped", "transcriber", c.transcriber.Name())
			return
		case <-ctx.Done():
			logger.L().Info("health checker context cancelled", "transcriber", c.transcriber.Name())
			return
		}
	}
}

// ProbeOnce runs a single synchronous health check, outside the Start loop.
// Useful at startup to settle the status before serving traffic.
func (c *Checker) ProbeOnce(ctx context.Context) {
	c.performCheck(ctx)
}

func (c *Checker) performCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	isHealthy, err := c.transcriber.HealthCheck(checkCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.LastCheckTime = time.Now()

	if isHealthy {
		c.status.IsHealthy = true
		c.status.ConsecutiveFails = 0
		c.status.ErrorMessage = ""
		logger.L().Debug("health check passed", "transcriber", c.transcriber.Name())
		return
	}

	c.status.ConsecutiveFails++
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	c.status.ErrorMessage = fmt.Sprintf("health check failed: %s", errMsg)

	if c.status.ConsecutiveFails >= c.failThreshold {
		c.status.IsHealthy = false
		logger.L().Error("marking transcriber unhealthy",
			"transcriber", c.transcriber.Name(),
			"consecutive_fails", c.status.ConsecutiveFails,
		)
	} else {
		logger.L().Warn("health check failed",
			"transcriber", c.transcriber.Name(),
			"fails", c.status.ConsecutiveFails,
			"threshold", c.failThreshold,
			"error", errMsg,
		)
	}
}

// GetStatus returns a copy of the current status.
func (c *Checker) GetStatus() ServiceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.status
}

// Stop terminates the probe loop. Safe to call more than once.
func (c *Checker) Stop() {
	select {
	case <-c.stopChan:
	default:
		close(c.stopChan)
	}
}
