package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

// LLMJudge runs both judgment passes against an OpenAI-compatible LLM
// API. This adapter is the only place upstream free text is parsed into
// qualify.Verdict values; the pipeline never sees raw model output.

// JudgeConfig wires an LLMJudge. Zero values pick the defaults below.
type JudgeConfig struct {
	Client *llm.Client

	// Cheap settings for the metadata pass.
	PreFilterTemperature float64
	PreFilterMaxTokens   int

	// Expensive settings for the transcript-informed pass.
	JudgeTemperature float64
	JudgeMaxTokens   int

	// Per-video transcript cap inside the prompt.
	TranscriptMaxChars int
}

type LLMJudge struct {
	client             *llm.Client
	preFilterTemp      float64
	preFilterMaxTokens int
	judgeTemp          float64
	judgeMaxTokens     int
	transcriptMaxChars int
}

func NewLLMJudge(cfg JudgeConfig) *LLMJudge {
	j := &LLMJudge{
		client:             cfg.Client,
		preFilterTemp:      cfg.PreFilterTemperature,
		preFilterMaxTokens: cfg.PreFilterMaxTokens,
		judgeTemp:          cfg.JudgeTemperature,
		judgeMaxTokens:     cfg.JudgeMaxTokens,
		transcriptMaxChars: cfg.TranscriptMaxChars,
	}
	if j.preFilterTemp <= 0 {
		j.preFilterTemp = 0.1
	}
	if j.preFilterMaxTokens <= 0 {
		j.preFilterMaxTokens = 1500
	}
	if j.judgeTemp <= 0 {
		j.judgeTemp = 0.2
	}
	if j.judgeMaxTokens <= 0 {
		j.judgeMaxTokens = 4000
	}
	if j.transcriptMaxChars <= 0 {
		j.transcriptMaxChars = 8000
	}
	return j
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func currentDate() string {
	return time.Now().UTC().Format("2006-01-02")
}

// PreFilter runs the cheap metadata-only pass. The response maps video
// id to "PASS" or "PRE_FILTER_REJECT: reason"; a malformed response is
// an error because without it the expensive stage has no gate.
func (j *LLMJudge) PreFilter(ctx context.Context, videos []qualify.Video, project qualify.Project) (map[string]qualify.Verdict, error) {
	qualify.IncrJudgeCalls()
	prompt := fmt.Sprintf(preFilterPrompt,
		currentDate(),
		project.ProductName,
		project.ServiceDescription,
		project.Country,
		j.formatMetadata(videos))

	raw, err := j.client.Complete(ctx, "", prompt,
		llm.WithChatTemperature(j.preFilterTemp),
		llm.WithChatMaxTokens(j.preFilterMaxTokens),
	)
	if err != nil {
		qualify.IncrJudgeErrors()
		return nil, fmt.Errorf("pre-filter call: %w", err)
	}

	var decisions map[string]string
	if err := json.Unmarshal([]byte(stripFences(raw)), &decisions); err != nil {
		qualify.IncrJudgeErrors()
		return nil, fmt.Errorf("pre-filter parse: %w", err)
	}

	verdicts := make(map[string]qualify.Verdict, len(decisions))
	for id, decision := range decisions {
		verdicts[id] = parsePreFilterDecision(decision)
	}
	return verdicts, nil
}

// parsePreFilterDecision tags one stage-1 decision string.
func parsePreFilterDecision(s string) qualify.Verdict {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)
	if !strings.Contains(upper, "REJECT") {
		// The gate is permissive: anything that is not an explicit
		// rejection lets the video through.
		return qualify.Verdict{Status: qualify.StatusPass, Stage: qualify.StagePreFilter}
	}
	reason := trimmed
	for _, prefix := range []string{"PRE_FILTER_REJECT:", "PRE_FILTER_REJECT", "REJECT:", "REJECT"} {
		if strings.HasPrefix(upper, prefix) {
			reason = strings.TrimSpace(trimmed[len(prefix):])
			break
		}
	}
	return qualify.Verdict{
		Status: qualify.StatusRejected,
		Stage:  qualify.StagePreFilter,
		Motivo: qualify.SanitizeReason(reason),
		Reason: qualify.SanitizeReason(reason),
	}
}

// judgeEntry is one per-video object in the full-judgment response.
type judgeEntry struct {
	Status string   `json:"status"`
	Motivo string   `json:"motivo"`
	Reason string   `json:"reason"`
	Score  float64  `json:"score"`
	Tags   []string `json:"tags"`
}

// FullJudge runs the expensive transcript-informed pass. An unparsable
// response is reported as qualify.ErrUnparsableVerdicts so the pipeline
// keeps the pre-filter verdicts instead of failing the run.
func (j *LLMJudge) FullJudge(ctx context.Context, videos []qualify.Video, project qualify.Project) (map[string]qualify.Verdict, error) {
	qualify.IncrJudgeCalls()
	prompt := fmt.Sprintf(fullJudgePrompt,
		currentDate(),
		project.ProductName,
		project.ServiceDescription,
		project.Country,
		j.formatFull(videos))

	raw, err := j.client.Complete(ctx, "", prompt,
		llm.WithChatTemperature(j.judgeTemp),
		llm.WithChatMaxTokens(j.judgeMaxTokens),
	)
	if err != nil {
		qualify.IncrJudgeErrors()
		return nil, fmt.Errorf("full judgment call: %w", err)
	}
	raw = stripFences(raw)

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		qualify.IncrJudgeErrors()
		slog.Error("full judgment response unparsable",
			slog.String("head", qualify.Truncate(raw, 200)),
			slog.Any("error", err))
		return nil, fmt.Errorf("full judgment parse: %w", qualify.ErrUnparsableVerdicts)
	}

	// "result": "NOT" is the model's way of saying nothing was
	// analyzable. Valid response, zero verdicts.
	if sentinel, ok := entries["result"]; ok && len(entries) == 1 {
		var s string
		if json.Unmarshal(sentinel, &s) == nil && strings.EqualFold(s, "NOT") {
			return map[string]qualify.Verdict{}, nil
		}
	}

	verdicts := make(map[string]qualify.Verdict, len(entries))
	for id, rawEntry := range entries {
		v, ok := parseJudgeEntry(rawEntry)
		if !ok {
			slog.Warn("skipping malformed judgment entry", slog.String("video_id", id))
			continue
		}
		verdicts[id] = v
	}
	if len(verdicts) == 0 && len(entries) > 0 {
		qualify.IncrJudgeErrors()
		return nil, fmt.Errorf("no usable judgment entries: %w", qualify.ErrUnparsableVerdicts)
	}
	return verdicts, nil
}

// parseJudgeEntry decodes one stage-2 entry. Accepts both the
// structured object form and the legacy "✅ APPROVED: reason" string
// form for compatibility with older prompt revisions.
func parseJudgeEntry(raw json.RawMessage) (qualify.Verdict, bool) {
	var entry judgeEntry
	if err := json.Unmarshal(raw, &entry); err == nil && entry.Status != "" {
		status, ok := parseStatus(entry.Status)
		if !ok {
			return qualify.Verdict{}, false
		}
		return qualify.Verdict{
			Status: status,
			Stage:  qualify.StageFullJudge,
			Motivo: qualify.SanitizeReason(entry.Motivo),
			Reason: qualify.SanitizeReason(entry.Reason),
			Score:  entry.Score,
			Tags:   entry.Tags,
		}, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return qualify.Verdict{}, false
	}
	status, ok := parseStatus(s)
	if !ok {
		return qualify.Verdict{}, false
	}
	reason := s
	if _, rest, found := strings.Cut(s, ":"); found {
		reason = rest
	}
	return qualify.Verdict{
		Status: status,
		Stage:  qualify.StageFullJudge,
		Motivo: qualify.SanitizeReason(reason),
		Reason: qualify.SanitizeReason(reason),
	}, true
}

func parseStatus(s string) (qualify.Status, bool) {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "APPROVED"), strings.Contains(upper, "APROVADO"):
		return qualify.StatusApproved, true
	case strings.Contains(upper, "REJECT"), strings.Contains(upper, "REJEITADO"):
		return qualify.StatusRejected, true
	case strings.Contains(upper, "SKIP"), strings.Contains(upper, "PULADO"):
		return qualify.StatusSkipped, true
	}
	return "", false
}

// formatMetadata packs metadata-only candidate blocks for the prompt.
func (j *LLMJudge) formatMetadata(videos []qualify.Video) string {
	var sb strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&sb, "\n[%d] id: %s\nTitle: %s\n", i+1, v.ID, v.Title)
		if v.Duration != "" {
			fmt.Fprintf(&sb, "Duration: %s | Views: %d\n", v.Duration, v.ViewCount)
		}
		if len(v.Tags) > 0 {
			fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(v.Tags, ", "))
		}
		if v.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", qualify.TruncateAtWord(v.Description, 500))
		}
	}
	return sb.String()
}

// formatFull packs candidate blocks including capped transcripts.
func (j *LLMJudge) formatFull(videos []qualify.Video) string {
	var sb strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&sb, "\n[%d] id: %s\nTitle: %s\nPublished: %s\n", i+1, v.ID, v.Title, v.PublishedAt)
		if v.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", qualify.TruncateAtWord(v.Description, 500))
		}
		if v.Transcript != "" {
			fmt.Fprintf(&sb, "Transcript: %s\n", qualify.TruncateRunes(v.Transcript, j.transcriptMaxChars, "..."))
		} else {
			sb.WriteString("Transcript: (unavailable)\n")
		}
	}
	return sb.String()
}
