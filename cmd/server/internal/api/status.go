package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/degradation"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/health"
)

// HandleHealth reports service liveness.
// GET /api/v1/health
func HandleHealth() gin.HandlerFunc {
	started := time.Now()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "ok",
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}

// HandleASRStatus reports the transcription backend's health and whether the
// service is running on the fallback transcriber.
// GET /api/v1/asr/status
//
// Response:
//
//	{
//	  "success": true,
//	  "data": {
//	    "implementation": "groq-whisper",
//	    "is_healthy": true,
//	    "is_degraded": false,
//	    "last_check_time": "2026-08-30T10:00:00Z",
//	    "consecutive_fails": 0,
//	    "error_message": ""
//	  }
//	}
func HandleASRStatus(ctrl *degradation.Controller, checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctrl == nil || checker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "ASR service not initialized",
			})
			return
		}

		current := ctrl.GetTranscriber()
		status := checker.GetStatus()

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"implementation":    current.Name(),
				"is_healthy":        status.IsHealthy,
				"is_degraded":       ctrl.IsDegraded(),
				"last_check_time":   status.LastCheckTime,
				"consecutive_fails": status.ConsecutiveFails,
				"error_message":     status.ErrorMessage,
			},
		})
	}
}
