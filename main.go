// go_scanner — staged YouTube video qualification service.
//
// For each scanner it loads the channel work queue and project context
// from Postgres, enriches candidates through the YouTube Data API,
// pre-filters them on metadata with a cheap LLM pass, fetches
// transcripts only for survivors, and runs the full LLM judgment.
// Exposes POST /qualify-videos plus health/metrics/runs endpoints.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
	"github.com/anatolykoptev/go_scanner/internal/qualify/sources"
	"github.com/anatolykoptev/go_scanner/internal/server"
)

var (
	version = "dev"
	port    = env.Str("PORT", "8090")
)

func main() {
	slog.Info("starting go_scanner",
		slog.String("port", port),
		slog.String("version", version),
	)

	q, history := initPipeline()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.New(q, history, version).Handler(),
		// Transcript fetching and full judgment make long requests.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func initPipeline() (*qualify.Qualifier, *sources.RunHistory) {
	ctx := context.Background()

	state, err := sources.ConnectStateDB(ctx, env.Str("DATABASE_URL", ""))
	if err != nil {
		slog.Error("state DB init failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("state DB connected")

	catalog := sources.NewCatalog(sources.CatalogConfig{
		APIKey:         env.Str("YOUTUBE_API_KEY", ""),
		APIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		RatePerSecond:  env.Float("YOUTUBE_RATE_PER_SECOND", 5),
		MaxUploads:     env.Int("YOUTUBE_MAX_UPLOADS", 50),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	})

	cache := sources.NewTranscriptCache(
		env.Str("REDIS_URL", ""),
		env.Duration("TRANSCRIPT_CACHE_TTL", 24*time.Hour),
		env.Int("TRANSCRIPT_CACHE_MAX_ENTRIES", 1000),
	)
	transcripts := sources.NewTranscriptClient(sources.TranscriptConfig{
		BaseURL:       env.Str("TRANSCRIPT_API_URL", "http://127.0.0.1:8000"),
		APIKey:        env.Str("TRANSCRIPT_API_KEY", ""),
		Timeout:       env.Duration("TRANSCRIPT_TIMEOUT", 300*time.Second),
		MaxConcurrent: env.Int("MAX_CONCURRENT_TRANSCRIPTS", 5),
		Cache:         cache,
	})

	llmClient := llm.NewClient(
		env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		env.Str("LLM_API_KEY", ""),
		env.Str("LLM_MODEL", "gemini-2.5-flash"),
		llm.WithFallbackKeys(env.List("LLM_API_KEY_FALLBACKS", "")),
		llm.WithMaxTokens(env.Int("LLM_MAX_TOKENS", 8192)),
		llm.WithTemperature(env.Float("LLM_TEMPERATURE", 0.2)),
		llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)
	judge := sources.NewLLMJudge(sources.JudgeConfig{
		Client:               llmClient,
		PreFilterTemperature: env.Float("PREFILTER_TEMPERATURE", 0.1),
		PreFilterMaxTokens:   env.Int("PREFILTER_MAX_TOKENS", 1500),
		JudgeTemperature:     env.Float("JUDGE_TEMPERATURE", 0.2),
		JudgeMaxTokens:       env.Int("JUDGE_MAX_TOKENS", 4000),
		TranscriptMaxChars:   env.Int("TRANSCRIPT_MAX_CHARS", 8000),
	})

	q := qualify.New(state, catalog, transcripts, judge, qualify.Config{
		DiscoveryMode:   env.Str("DISCOVERY_MODE", qualify.DiscoveryQueue),
		JudgmentMode:    env.Str("JUDGMENT_MODE", qualify.JudgmentTwoStage),
		DiscoveryWindow: env.Duration("DISCOVERY_WINDOW", 24*time.Hour),
	})

	history, err := sources.OpenRunHistory(env.Str("HISTORY_DB_PATH", ""))
	if err != nil {
		// History is operational sugar; the pipeline works without it.
		slog.Warn("run history init failed", slog.Any("error", err))
		history = nil
	} else {
		slog.Info("run history initialized")
	}

	return q, history
}
