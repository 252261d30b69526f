package qualify

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the service.
var metrics struct {
	RunsStarted        atomic.Int64
	RunsFailed         atomic.Int64
	CatalogRequests    atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
	JudgeCalls         atomic.Int64
	JudgeErrors        atomic.Int64
	StateQueries       atomic.Int64
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"runs_started":        metrics.RunsStarted.Load(),
		"runs_failed":         metrics.RunsFailed.Load(),
		"catalog_requests":    metrics.CatalogRequests.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_errors":   metrics.TranscriptErrors.Load(),
		"cache_hits":          metrics.CacheHits.Load(),
		"cache_misses":        metrics.CacheMisses.Load(),
		"judge_calls":         metrics.JudgeCalls.Load(),
		"judge_errors":        metrics.JudgeErrors.Load(),
		"state_queries":       metrics.StateQueries.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for the HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"runs_started", "runs_failed",
		"catalog_requests",
		"transcript_requests", "transcript_errors",
		"cache_hits", "cache_misses",
		"judge_calls", "judge_errors",
		"state_queries",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrRunsStarted() { metrics.RunsStarted.Add(1) }
func IncrRunsFailed()  { metrics.RunsFailed.Add(1) }

// Incrementors for the sources/ sub-package.
func IncrCatalogRequests()    { metrics.CatalogRequests.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptErrors()   { metrics.TranscriptErrors.Add(1) }
func IncrCacheHits()          { metrics.CacheHits.Add(1) }
func IncrCacheMisses()        { metrics.CacheMisses.Add(1) }
func IncrJudgeCalls()         { metrics.JudgeCalls.Add(1) }
func IncrJudgeErrors()        { metrics.JudgeErrors.Add(1) }
func IncrStateQueries()       { metrics.StateQueries.Add(1) }
