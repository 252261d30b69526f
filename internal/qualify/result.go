package qualify

import "time"

// Stats holds the per-run counters. Keys are stable across runs so
// downstream dashboards can diff them.
type Stats struct {
	VideosFound             int `json:"videos_found"`
	VideosWithTranscript    int `json:"videos_with_transcript"`
	VideosWithoutTranscript int `json:"videos_without_transcript"`
	Stage1Rejected          int `json:"stage1_rejected"`
	TranscriptsSkipped      int `json:"transcripts_skipped"`
	VideosAnalyzed          int `json:"videos_analyzed"`
	VideosQualified         int `json:"videos_qualified"`
}

// AnalysisRecord is the structured per-video outcome stored alongside
// the verdict map: insertion-ordered, bilingual, ready for a JSONB
// column downstream.
type AnalysisRecord struct {
	ID         string   `json:"id"`
	Status     Status   `json:"status"`
	Stage      Stage    `json:"stage"`
	Motivo     string   `json:"motivo,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Score      float64  `json:"score,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	AnalyzedAt string   `json:"analyzed_at"`
}

// Result is the single output of a qualification run. Every reachable
// failure mode is represented inside the result (Success=false plus
// Error) so callers always get the stats and warnings accumulated up
// to the point of failure.
type Result struct {
	ScannerID            int64              `json:"scanner_id"`
	QualifiedIDs         []string           `json:"qualified_video_ids"`
	QualifiedCSV         string             `json:"qualified_video_ids_csv"`
	Verdicts             map[string]Verdict `json:"all_verdicts"`
	Records              []AnalysisRecord   `json:"all_results"`
	TotalAnalyzed        int                `json:"total_analyzed"`
	ExecutionTimeSeconds float64            `json:"execution_time_seconds"`
	Success              bool               `json:"success"`
	Error                string             `json:"error,omitempty"`
	Warnings             []string           `json:"warnings"`
	Stats                Stats              `json:"stats"`
}

// BuildRecords converts the verdict map into insertion-ordered
// analysis records, stamping them with the given time.
func BuildRecords(order []string, verdicts map[string]Verdict, at time.Time) []AnalysisRecord {
	ts := at.UTC().Format(time.RFC3339)
	recs := make([]AnalysisRecord, 0, len(order))
	for _, id := range order {
		v, ok := verdicts[id]
		if !ok {
			continue
		}
		recs = append(recs, AnalysisRecord{
			ID:         id,
			Status:     v.Status,
			Stage:      v.Stage,
			Motivo:     v.Motivo,
			Reason:     v.Reason,
			Score:      v.Score,
			Tags:       v.Tags,
			AnalyzedAt: ts,
		})
	}
	return recs
}
