package qualify

import "strings"

// Status is the outcome class of a verdict.
type Status string

const (
	// StatusPass means the video cleared the metadata pre-filter and
	// moves on to full judgment.
	StatusPass Status = "PASS"
	// StatusApproved means the full judgment qualified the video.
	StatusApproved Status = "APPROVED"
	// StatusRejected means a judgment stage ruled the video out.
	StatusRejected Status = "REJECTED"
	// StatusSkipped means the judge could not evaluate the video
	// (typically no transcript) and deferred without rejecting.
	StatusSkipped Status = "SKIPPED"
)

// Stage identifies which judgment pass produced a verdict.
type Stage int

const (
	StagePreFilter Stage = 1
	StageFullJudge Stage = 2
)

// Verdict is the structured outcome for one video. Upstream judges
// answer in free text; parsing that text into this struct happens once,
// at the judge adapter, and the rest of the pipeline only ever handles
// Verdict values.
type Verdict struct {
	Status Status   `json:"status"`
	Stage  Stage    `json:"stage"`
	Motivo string   `json:"motivo,omitempty"` // PT-BR reasoning
	Reason string   `json:"reason,omitempty"` // EN reasoning
	Score  float64  `json:"score,omitempty"`  // 0..1 confidence, optional
	Tags   []string `json:"tags,omitempty"`
}

// Qualified reports whether the verdict counts toward qualifiedIds.
func (v Verdict) Qualified() bool { return v.Status == StatusApproved }

const maxReasonLen = 120

// SanitizeReason makes free-text reasoning safe for the legacy
// comma/colon-delimited serialization: commas and colons become
// semicolons, and the text is capped at 120 runes. Every reason passes
// through here exactly once, when the verdict is built.
func SanitizeReason(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ";")
	s = strings.ReplaceAll(s, ":", ";")
	return TruncateRunes(s, maxReasonLen, "")
}

var statusPrefixes = map[Status]string{
	StatusPass:     "PASS",
	StatusApproved: "✅ APPROVED",
	StatusRejected: "❌ REJECTED",
	StatusSkipped:  "⚠️ SKIPPED",
}

// LegacyEntry renders one `id:STATUS｜reason` cell of the legacy CSV.
// The fullwidth bar separates status from reason because the reason
// itself may no longer contain colons after SanitizeReason.
func LegacyEntry(id string, v Verdict) string {
	prefix := statusPrefixes[v.Status]
	if prefix == "" {
		prefix = string(v.Status)
	}
	reason := v.Motivo
	if reason == "" {
		reason = v.Reason
	}
	if reason == "" {
		return id + ":" + prefix
	}
	return id + ":" + prefix + "｜" + reason
}

// LegacyCSV joins per-video legacy entries in the given id order,
// skipping ids without a verdict.
func LegacyCSV(order []string, verdicts map[string]Verdict) string {
	parts := make([]string, 0, len(order))
	for _, id := range order {
		v, ok := verdicts[id]
		if !ok {
			continue
		}
		parts = append(parts, LegacyEntry(id, v))
	}
	return strings.Join(parts, ",")
}
