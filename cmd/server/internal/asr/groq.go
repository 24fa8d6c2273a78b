package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
	"github.com/hysio/scribe-audio/pkg/logger"
)

const defaultTranscribeTimeout = 2 * time.Minute

// GroqTranscriber implements Transcriber against an OpenAI-compatible
// transcription API (Groq's hosted Whisper, or any service exposing
// POST /audio/transcriptions with multipart form data).
type GroqTranscriber struct {
	apiURL     string // base URL, e.g. "https://api.groq.com/openai/v1"
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGroqTranscriber creates a client for the given endpoint. model is the
// default used when a request carries no Options.Model.
//
// The HTTP client timeout is generous; per-request deadlines come from the
// caller's context, which the orchestrator sets per segment.
func NewGroqTranscriber(apiURL, apiKey, model string) *GroqTranscriber {
	return &GroqTranscriber{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// transcriptionResponse mirrors the verbose_json response body.
type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe sends the blob as multipart/form-data to /audio/transcriptions
// and decodes the verbose_json response.
func (g *GroqTranscriber) Transcribe(ctx context.Context, blob audio.Blob, opts *Options) (*Result, error) {
	if blob.Size() == 0 {
		return nil, fmt.Errorf("empty audio blob")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "segment.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	model := g.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}
	if err := writer.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}

	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}

	if opts != nil && opts.Language != "" {
		if err := writer.WriteField("language", opts.Language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}

	temperature := 0.0
	if opts != nil && opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	if err := writer.WriteField("temperature", fmt.Sprintf("%.1f", temperature)); err != nil {
		return nil, fmt.Errorf("failed to write temperature field: %w", err)
	}

	if opts != nil && opts.Prompt != "" {
		if err := writer.WriteField("prompt", opts.Prompt); err != nil {
			return nil, fmt.Errorf("failed to write prompt field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	if opts == nil || opts.Timeout == 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultTranscribeTimeout)
			defer cancel()
		}
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/audio/transcriptions", g.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	logger.L().Debug("sending transcription request",
		"endpoint", endpoint,
		"model", model,
		"audio_size", audio.FormatFileSize(blob.Size()),
	)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	result := &Result{
		Text:     parsed.Text,
		Language: parsed.Language,
		Duration: parsed.Duration,
	}
	for _, seg := range parsed.Segments {
		result.Segments = append(result.Segments, ResultSegment(seg))
	}
	return result, nil
}

// HealthCheck probes the /models endpoint. A 200 with a valid key means the
// service is reachable and authenticated.
func (g *GroqTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/models", g.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	return false, fmt.Errorf("health check failed: status %d", resp.StatusCode)
}

// Name identifies this implementation in logs and status endpoints.
func (g *GroqTranscriber) Name() string {
	return "groq-whisper"
}
