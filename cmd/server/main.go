package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hysio/scribe-audio/cmd/server/internal/api"
	"github.com/hysio/scribe-audio/cmd/server/internal/asr"
	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
	"github.com/hysio/scribe-audio/cmd/server/internal/config"
	"github.com/hysio/scribe-audio/cmd/server/internal/middleware"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/degradation"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator/health"
	"github.com/hysio/scribe-audio/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		WithSource:  !strings.EqualFold(cfg.Server.Env, "production"),
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "scribe-server")

	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)
	fmt.Println(cfg.PrintConfig())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ASR backend: Groq-style HTTP client wrapped with retries, with a mock
	// fallback when degradation is enabled.
	groq := asr.NewGroqTranscriber(cfg.ASR.APIURL, cfg.ASR.APIKey, cfg.ASR.Model)
	primary := asr.NewRetryTranscriber(groq, cfg.ASR.MaxRetries, cfg.ASR.RetryBackoff)

	checker := health.NewChecker(primary, cfg.Health.CheckInterval, cfg.Health.FailThreshold)
	rootCtx, stopChecker := context.WithCancel(context.Background())
	go checker.Start(rootCtx)

	var source orchestrator.TranscriberSource
	var ctrl *degradation.Controller
	if cfg.Health.EnableDegradation {
		ctrl = degradation.NewController(primary, asr.NewMockTranscriber(), checker)
		source = ctrl
	} else {
		source = orchestrator.StaticSource{T: primary}
	}

	splitter := audio.NewSplitter(cfg.Audio.MaxSegmentBytes, cfg.Audio.SegmentMarginBytes, cfg.Audio.FFmpegPath)
	proc := orchestrator.NewProcessor(splitter, source, cfg.ASR.MaxConcurrent, cfg.ASR.SegmentTimeout)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.MaxMultipartMemory = 32 << 20 // larger uploads spill to disk

	v1 := r.Group("/api/v1")
	{
		v1.POST("/transcribe", api.HandleTranscribe(proc, cfg))
		v1.GET("/health", api.HandleHealth())
		v1.GET("/asr/status", api.HandleASRStatus(ctrl, checker))
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	checker.Stop()
	stopChecker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}
