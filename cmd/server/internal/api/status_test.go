package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hysio/scribe-audio/cmd/server/internal/asr"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/degradation"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/health"
)

func TestHandleHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	HandleHealth()(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "ok", response["status"])
}

func TestHandleASRStatus_NotInitialized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/asr/status", nil)

	HandleASRStatus(nil, nil)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleASRStatus_Healthy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	primary := &cannedTranscriber{text: "ok"}
	fallback := asr.NewMockTranscriber()
	checker := health.NewChecker(primary, time.Minute, 3)
	checker.ProbeOnce(context.Background())
	ctrl := degradation.NewController(primary, fallback, checker)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/asr/status", nil)

	HandleASRStatus(ctrl, checker)(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Implementation   string `json:"implementation"`
			IsHealthy        bool   `json:"is_healthy"`
			IsDegraded       bool   `json:"is_degraded"`
			ConsecutiveFails int    `json:"consecutive_fails"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.True(t, response.Success)
	assert.Equal(t, "canned", response.Data.Implementation)
	assert.True(t, response.Data.IsHealthy)
	assert.False(t, response.Data.IsDegraded)
	assert.Equal(t, 0, response.Data.ConsecutiveFails)
}
