package qualify

// MergeVideos joins discovery partials with detail records and
// transcripts into complete Videos, keyed by video id. Detail records
// are authoritative: a partial without a matching detail is dropped,
// a detail without a partial is ignored. Transcript misses default to
// the empty string. Output order follows the partials slice.
//
// The function is pure and idempotent, so the pipeline calls it twice
// per run: once after the details lookup (nil transcripts) and again
// after transcript fetching, with identical join semantics.
func MergeVideos(partials []PartialVideo, details []DetailedVideo, transcripts map[string]string) []Video {
	byID := make(map[string]DetailedVideo, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	out := make([]Video, 0, len(partials))
	for _, p := range partials {
		d, ok := byID[p.ID]
		if !ok {
			continue
		}
		v := Video{
			ID:           d.ID,
			Title:        d.Title,
			Description:  d.Description,
			PublishedAt:  d.PublishedAt,
			ChannelTitle: d.ChannelTitle,
			Duration:     d.Duration,
			ViewCount:    d.ViewCount,
			LikeCount:    d.LikeCount,
			CommentCount: d.CommentCount,
			Tags:         d.Tags,
			ThumbnailURL: d.ThumbnailURL,
			Transcript:   transcripts[p.ID],
		}
		if v.Title == "" {
			v.Title = p.Title
		}
		if v.Description == "" {
			v.Description = p.Description
		}
		if v.PublishedAt == "" {
			v.PublishedAt = p.PublishedAt
		}
		if v.ThumbnailURL == "" {
			v.ThumbnailURL = p.ThumbnailURL
		}
		out = append(out, v)
	}
	return out
}
