package sources

import (
	"encoding/json"
	"testing"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePreFilterDecision(t *testing.T) {
	tests := []struct {
		in         string
		wantStatus qualify.Status
		wantMotivo string
	}{
		{"PASS", qualify.StatusPass, ""},
		{"pass", qualify.StatusPass, ""},
		{"PRE_FILTER_REJECT: clipe musical", qualify.StatusRejected, "clipe musical"},
		{"REJECT: wrong niche, no overlap", qualify.StatusRejected, "wrong niche; no overlap"},
		{"looks fine to me", qualify.StatusPass, ""},
	}
	for _, tt := range tests {
		v := parsePreFilterDecision(tt.in)
		if v.Status != tt.wantStatus {
			t.Errorf("parsePreFilterDecision(%q).Status = %s, want %s", tt.in, v.Status, tt.wantStatus)
		}
		if v.Motivo != tt.wantMotivo {
			t.Errorf("parsePreFilterDecision(%q).Motivo = %q, want %q", tt.in, v.Motivo, tt.wantMotivo)
		}
		if v.Stage != qualify.StagePreFilter {
			t.Errorf("parsePreFilterDecision(%q).Stage = %d", tt.in, v.Stage)
		}
	}
}

func TestParseJudgeEntryStructured(t *testing.T) {
	raw := json.RawMessage(`{"status": "APPROVED", "motivo": "público ideal", "reason": "ideal audience", "score": 0.87, "tags": ["dental", "saas"]}`)
	v, ok := parseJudgeEntry(raw)
	if !ok {
		t.Fatal("structured entry should parse")
	}
	if v.Status != qualify.StatusApproved || v.Stage != qualify.StageFullJudge {
		t.Errorf("wrong tagging: %+v", v)
	}
	if v.Motivo != "público ideal" || v.Reason != "ideal audience" {
		t.Errorf("bilingual reasons lost: %+v", v)
	}
	if v.Score != 0.87 || len(v.Tags) != 2 {
		t.Errorf("score/tags lost: %+v", v)
	}
}

func TestParseJudgeEntryLegacyString(t *testing.T) {
	tests := []struct {
		in   string
		want qualify.Status
	}{
		{`"✅ APPROVED: great audience match"`, qualify.StatusApproved},
		{`"❌ REJECTED: music video"`, qualify.StatusRejected},
		{`"⚠️ SKIPPED: no transcript"`, qualify.StatusSkipped},
	}
	for _, tt := range tests {
		v, ok := parseJudgeEntry(json.RawMessage(tt.in))
		if !ok {
			t.Fatalf("legacy entry %s should parse", tt.in)
		}
		if v.Status != tt.want {
			t.Errorf("parseJudgeEntry(%s).Status = %s, want %s", tt.in, v.Status, tt.want)
		}
		if v.Motivo == "" {
			t.Errorf("parseJudgeEntry(%s) lost the reason", tt.in)
		}
	}
}

func TestParseJudgeEntryGarbage(t *testing.T) {
	for _, raw := range []string{`42`, `"no status here"`, `{"status": "MAYBE"}`, `[1,2]`} {
		if _, ok := parseJudgeEntry(json.RawMessage(raw)); ok {
			t.Errorf("garbage entry %s should not parse", raw)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   qualify.Status
		wantOK bool
	}{
		{"APPROVED", qualify.StatusApproved, true},
		{"✅ APROVADO", qualify.StatusApproved, true},
		{"rejected", qualify.StatusRejected, true},
		{"⚠️ SKIPPED", qualify.StatusSkipped, true},
		{"whatever", "", false},
	}
	for _, tt := range tests {
		got, ok := parseStatus(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseStatus(%q) = (%s, %v), want (%s, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
