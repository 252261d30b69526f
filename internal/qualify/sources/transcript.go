package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

// TranscriptClient talks to the transcription HTTP API. The contract is
// strictly best-effort: any failure on any id yields "" for that id and
// never an error, so one broken transcript can never sink a run.

const defaultMaxConcurrent = 5

// TranscriptConfig wires a TranscriptClient.
type TranscriptConfig struct {
	BaseURL       string
	APIKey        string // optional bearer token
	Timeout       time.Duration
	MaxConcurrent int
	Cache         *TranscriptCache // nil disables caching
}

type TranscriptClient struct {
	baseURL       string
	apiKey        string
	http          *http.Client
	maxConcurrent int
	cache         *TranscriptCache
}

func NewTranscriptClient(cfg TranscriptConfig) *TranscriptClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		// Transcription is slow for long videos.
		timeout = 300 * time.Second
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &TranscriptClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		http:          &http.Client{Timeout: timeout},
		maxConcurrent: maxConcurrent,
		cache:         cfg.Cache,
	}
}

type transcribeRequest struct {
	URL string `json:"url"`
}

type transcribeResponse struct {
	Transcription string `json:"transcription"`
}

// Get fetches one transcript, "" on any failure.
func (c *TranscriptClient) Get(ctx context.Context, videoID string) string {
	if cached, ok := c.cache.Get(ctx, videoID); ok {
		return cached
	}

	qualify.IncrTranscriptRequests()
	payload, err := json.Marshal(transcribeRequest{
		URL: "https://www.youtube.com/watch?v=" + videoID,
	})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		qualify.IncrTranscriptErrors()
		slog.Warn("transcript fetch failed",
			slog.String("video_id", videoID),
			slog.Any("error", err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		qualify.IncrTranscriptErrors()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		slog.Warn("transcript API error",
			slog.String("video_id", videoID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return ""
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		qualify.IncrTranscriptErrors()
		slog.Warn("transcript decode failed",
			slog.String("video_id", videoID),
			slog.Any("error", err))
		return ""
	}

	transcript := strings.TrimSpace(out.Transcription)
	c.cache.Set(ctx, videoID, transcript)
	return transcript
}

// GetBatch fetches transcripts for all ids with bounded concurrency.
// Every requested id is present in the result; failures map to "".
func (c *TranscriptClient) GetBatch(ctx context.Context, ids []string) map[string]string {
	results := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return results
	}

	sem := make(chan struct{}, c.maxConcurrent)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(videoID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			t := c.Get(ctx, videoID)
			mu.Lock()
			results[videoID] = t
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	got := 0
	for _, t := range results {
		if t != "" {
			got++
		}
	}
	slog.Info("transcripts fetched",
		slog.Int("requested", len(ids)),
		slog.Int("with_transcript", got))
	return results
}
