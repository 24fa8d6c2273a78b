// Package api holds the gin HTTP handlers for the transcription service.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hysio/scribe-audio/cmd/server/internal/asr"
	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
	"github.com/hysio/scribe-audio/cmd/server/internal/config"
	"github.com/hysio/scribe-audio/cmd/server/internal/middleware"
	"github.com/hysio/scribe-audio/cmd/server/internal/orchestrator"
)

// TranscribeResponse is the success body of POST /api/v1/transcribe.
type TranscribeResponse struct {
	Success        bool     `json:"success"`
	Transcript     string   `json:"transcript"`
	Duration       float64  `json:"duration"`
	Confidence     float64  `json:"confidence"`
	Segmented      bool     `json:"segmented"`
	SegmentCount   int      `json:"segment_count"`
	FailedSegments []int    `json:"failed_segments,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	FileSize       string   `json:"fileSize"`
	Transcriber    string   `json:"transcriber"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// HandleTranscribe processes an uploaded audio file end to end.
// POST /api/v1/transcribe
//
// Multipart fields: audio (file, required), language, prompt, temperature.
// Validation and segmentation failures return 400; oversized uploads 413;
// internal failures 500. A request with some failed segments still returns
// 200, the gaps are visible in the transcript.
func HandleTranscribe(proc *orchestrator.Processor, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("audio")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   fmt.Sprintf("missing audio file: %v", err),
			})
			return
		}

		if audio.FileSizeExceeded(file.Size, cfg.Audio.MaxUploadBytes) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error": fmt.Sprintf("file size %s exceeds the %s upload limit",
					audio.FormatFileSize(file.Size),
					audio.FormatFileSize(cfg.Audio.MaxUploadBytes)),
			})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   fmt.Sprintf("failed to open upload: %v", err),
			})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   fmt.Sprintf("failed to read upload: %v", err),
			})
			return
		}

		blob := audio.Blob{Data: data, MIME: uploadMIME(file.Header.Get("Content-Type"), file.Filename)}

		if estimate, exact := audio.EstimateDuration(blob); estimate > 0 {
			middleware.FromContext(c).Info("upload received",
				"file_size", audio.FormatFileSize(file.Size),
				"mime", blob.MIME,
				"estimated_duration", estimate,
				"exact", exact,
			)
		}

		opts := &asr.Options{
			Model:    cfg.ASR.Model,
			Language: c.PostForm("language"),
			Prompt:   c.PostForm("prompt"),
		}
		if temp := c.PostForm("temperature"); temp != "" {
			parsed, err := strconv.ParseFloat(temp, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error":   fmt.Sprintf("invalid temperature %q (must be a number between 0 and 1)", temp),
				})
				return
			}
			opts.Temperature = parsed
		}

		result, err := proc.Process(c.Request.Context(), blob, opts)
		if err != nil {
			status, code := statusForError(err)
			middleware.FromContext(c).Error("transcription request failed",
				"error", err.Error(),
				"error_code", code,
				"file_size", audio.FormatFileSize(file.Size),
			)
			c.JSON(status, gin.H{
				"success":    false,
				"error":      err.Error(),
				"error_code": code,
			})
			return
		}

		confidence := 1.0
		if n := len(result.FailedSegments); n > 0 {
			confidence = float64(result.SegmentCount-n) / float64(result.SegmentCount)
		}

		c.JSON(http.StatusOK, TranscribeResponse{
			Success:        true,
			Transcript:     result.Transcript,
			Duration:       result.TotalDuration,
			Confidence:     confidence,
			Segmented:      result.Segmented,
			SegmentCount:   result.SegmentCount,
			FailedSegments: result.FailedSegments,
			Errors:         result.Errors,
			FileSize:       audio.FormatFileSize(file.Size),
			Transcriber:    result.Transcriber,
			Degraded:       result.Degraded,
		})
	}
}

// statusForError maps pipeline errors onto HTTP statuses: client-side audio
// problems are 400, everything else 500.
func statusForError(err error) (int, string) {
	var perr *orchestrator.PipelineError
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError, ""
	}
	switch perr.Code {
	case orchestrator.AUDIO_EMPTY, orchestrator.AUDIO_UNSUPPORTED, orchestrator.SEGMENTATION_FAILED:
		return http.StatusBadRequest, string(perr.Code)
	case orchestrator.AUDIO_TOO_LARGE:
		return http.StatusRequestEntityTooLarge, string(perr.Code)
	default:
		return http.StatusInternalServerError, string(perr.Code)
	}
}

// uploadMIME resolves the blob MIME from the part header, falling back to
// the filename extension for clients that send application/octet-stream.
func uploadMIME(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/m4a"
	case ".mp4":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return ct
	}
}
