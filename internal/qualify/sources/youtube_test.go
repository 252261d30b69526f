package sources

import (
	"encoding/json"
	"testing"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PT1H23M45S", "01:23:45"},
		{"PT4M13S", "00:04:13"},
		{"PT58S", "00:00:58"},
		{"PT2H", "02:00:00"},
		{"PT0S", "00:00:00"},
		{"garbage", "garbage"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChunk(t *testing.T) {
	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, "x")
	}
	batches := chunk(ids, 50)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 50 || len(batches[1]) != 50 || len(batches[2]) != 20 {
		t.Errorf("bad batch sizes: %d, %d, %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
	if got := chunk(nil, 50); len(got) != 0 {
		t.Errorf("empty input must produce no batches, got %d", len(got))
	}
}

func TestVideoListDecoding(t *testing.T) {
	// Shape as returned by videos.list with part=snippet,statistics,contentDetails.
	payload := `{
		"items": [{
			"id": "dQw4w9WgXcQ",
			"snippet": {
				"title": "Video title",
				"description": "Video description",
				"publishedAt": "2026-08-01T10:00:00Z",
				"channelTitle": "Some Channel",
				"tags": ["music", "retro"],
				"thumbnails": {"high": {"url": "https://img.example/hq.jpg"}}
			},
			"statistics": {"viewCount": "1234567", "likeCount": "8901", "commentCount": "234"},
			"contentDetails": {"duration": "PT3M33S"}
		}]
	}`

	var resp ytListResp
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.ID != "dQw4w9WgXcQ" || item.Snippet.ChannelTitle != "Some Channel" {
		t.Errorf("snippet fields wrong: %+v", item)
	}
	if parseCount(item.Statistics.ViewCount) != 1234567 {
		t.Errorf("view count parse failed: %q", item.Statistics.ViewCount)
	}
	if FormatDuration(item.ContentDetails.Duration) != "00:03:33" {
		t.Errorf("duration wrong: %q", item.ContentDetails.Duration)
	}
	if thumbnailURL(item.Snippet.Thumbnails) != "https://img.example/hq.jpg" {
		t.Errorf("thumbnail wrong")
	}
}

func TestThumbnailURLFallback(t *testing.T) {
	if got := thumbnailURL(ytThumbnails{Default: &ytThumbnail{URL: "d"}}); got != "d" {
		t.Errorf("default thumbnail fallback broken: %q", got)
	}
	if got := thumbnailURL(ytThumbnails{}); got != "" {
		t.Errorf("no thumbnails must yield empty, got %q", got)
	}
}

func TestParseCount(t *testing.T) {
	if parseCount("42") != 42 {
		t.Error("plain number failed")
	}
	if parseCount("") != 0 || parseCount("n/a") != 0 {
		t.Error("bad input must yield zero")
	}
}
