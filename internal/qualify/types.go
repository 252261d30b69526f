package qualify

// Typed video records. Discovery yields PartialVideo (snippet only),
// the follow-up details lookup yields DetailedVideo, and MergeVideos
// joins the two with transcripts into Video, the only shape the
// judgment stages ever see.

// PartialVideo is the snippet-level record returned by discovery.
type PartialVideo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PublishedAt  string `json:"published_at"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// DetailedVideo carries the stats/duration/tags from the batch details
// lookup. The details lookup is authoritative: a partial without a
// matching DetailedVideo never reaches the pipeline.
type DetailedVideo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PublishedAt  string   `json:"published_at"`
	ChannelTitle string   `json:"channel_title,omitempty"`
	Duration     string   `json:"duration,omitempty"` // HH:MM:SS
	ViewCount    int64    `json:"view_count"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	Tags         []string `json:"tags,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

// Video is a fully merged candidate. Transcript is always a string,
// never absent: "" means no transcript could be fetched.
type Video struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PublishedAt  string   `json:"published_at"`
	ChannelTitle string   `json:"channel_title,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	ViewCount    int64    `json:"view_count"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	Tags         []string `json:"tags,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Transcript   string   `json:"transcript"`
}

// Project describes the product/service candidates are matched against.
// Immutable once fetched for a run.
type Project struct {
	ProductName        string `json:"product_name"`
	ServiceDescription string `json:"service_description"`
	Country            string `json:"country"`
}

// ChannelState identifies the channel a scanner watches plus its work
// queue. QueuedIDs is authoritative when discovery runs in queue mode;
// an empty queue is a valid terminal state, not an error. ExcludedIDs
// only matters in the legacy date-window discovery mode.
type ChannelState struct {
	ChannelID   string   `json:"youtube_channel_id"`
	QueuedIDs   []string `json:"queued_video_ids"`
	ExcludedIDs []string `json:"excluded_video_ids,omitempty"`
}
