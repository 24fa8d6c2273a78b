// Package degradation switches between a primary and a fallback transcriber
// based on health status, so transcription requests keep getting answered
// when the ASR backend is down.
package degradation

import (
	"sync"

	"github.com/hysio/scribe-audio/cmd/server/internal/asr"
	"github.com/hysio/scribe-audio/cmd/server/internal/metrics"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/health"
	"github.com/hysio/scribe-audio/pkg/logger"
)

// Controller picks the active transcriber. When the health checker reports
// the primary unhealthy it degrades to the fallback (typically
// asr.MockTranscriber) and recovers automatically once health returns.
// All public methods are safe for concurrent use.
type Controller struct {
	primary       asr.Transcriber
	fallback      asr.Transcriber
	healthChecker *health.Checker
	current       asr.Transcriber
	mu            sync.RWMutex
	isDegraded    bool
}

// NewController builds a Controller starting on the primary transcriber.
// All three arguments must be non-nil.
func NewController(primary, fallback asr.Transcriber, hc *health.Checker) *Controller {
	return &Controller{
		primary:       primary,
		fallback:      fallback,
		healthChecker: hc,
		current:       primary,
	}
}

// GetTranscriber returns the active transcriber, switching to the fallback
// when the primary is unhealthy and back when it recovers. Transitions are
// logged and reflected in the degradation gauge; steady state returns
// without logging.
func (c *Controller) GetTranscriber() asr.Transcriber {
	status := c.healthChecker.GetStatus()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !status.IsHealthy && !c.isDegraded {
		logger.L().Warn("degrading to fallback transcriber",
			"fallback", c.fallback.Name(),
			"primary", c.primary.Name(),
			"reason", status.ErrorMessage,
		)
		c.current = c.fallback
		c.isDegraded = true
		metrics.SetDegradedMode(true)
	}

	if status.IsHealthy && c.isDegraded {
		logger.L().Info("recovering to primary transcriber", "primary", c.primary.Name())
		c.current = c.primary
		c.isDegraded = false
		metrics.SetDegradedMode(false)
	}

	return c.current
}

// IsDegraded reports whether the fallback transcriber is active.
func (c *Controller) IsDegraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isDegraded
}
