package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

// YouTube Data API v3 catalog. All quota-bearing calls go through one
// rate limiter, and quota errors (403) rotate to the fallback key.

const (
	ytDataAPIBase     = "https://www.googleapis.com/youtube/v3"
	ytBatchSize       = 50 // hard API limit on id= lists
	userAgent         = "go-scanner/1.0"
	defaultMaxUploads = 50
)

// CatalogConfig wires a Catalog instance.
type CatalogConfig struct {
	APIKey         string
	APIKeyFallback string
	HTTPClient     *http.Client
	RatePerSecond  float64 // quota protection; <=0 means 5 req/s
	MaxUploads     int     // date-mode discovery cap
}

// Catalog is the YouTube Data API v3 client.
type Catalog struct {
	keys       []string
	http       *http.Client
	limiter    *rate.Limiter
	maxUploads int
}

func NewCatalog(cfg CatalogConfig) *Catalog {
	keys := []string{cfg.APIKey}
	if cfg.APIKeyFallback != "" {
		keys = append(keys, cfg.APIKeyFallback)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 5
	}
	maxUploads := cfg.MaxUploads
	if maxUploads <= 0 {
		maxUploads = defaultMaxUploads
	}
	return &Catalog{
		keys:       keys,
		http:       client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxUploads: maxUploads,
	}
}

// --- Data API response types ---

type ytListResp struct {
	Items         []ytVideoItem `json:"items"`
	NextPageToken string        `json:"nextPageToken"`
}

type ytVideoItem struct {
	ID             string            `json:"id"`
	Snippet        ytSnippet         `json:"snippet"`
	Statistics     *ytStatistics     `json:"statistics,omitempty"`
	ContentDetails *ytContentDetails `json:"contentDetails,omitempty"`
}

type ytSnippet struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	PublishedAt  string       `json:"publishedAt"`
	ChannelTitle string       `json:"channelTitle"`
	Tags         []string     `json:"tags,omitempty"`
	Thumbnails   ytThumbnails `json:"thumbnails"`
}

type ytThumbnails struct {
	High    *ytThumbnail `json:"high,omitempty"`
	Default *ytThumbnail `json:"default,omitempty"`
}

type ytThumbnail struct {
	URL string `json:"url"`
}

// Statistics arrive as strings on the wire.
type ytStatistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

type ytContentDetails struct {
	Duration string `json:"duration"` // ISO-8601, e.g. PT1H23M45S
}

type ytChannelResp struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytPlaylistResp struct {
	Items []struct {
		Snippet struct {
			Title       string       `json:"title"`
			Description string       `json:"description"`
			PublishedAt string       `json:"publishedAt"`
			Thumbnails  ytThumbnails `json:"thumbnails"`
			ResourceID  struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// ListByIDs resolves queued ids to snippet records, batching by 50.
// Ids the API does not return are silently absent.
func (c *Catalog) ListByIDs(ctx context.Context, ids []string) ([]qualify.PartialVideo, error) {
	var out []qualify.PartialVideo
	for _, batch := range chunk(ids, ytBatchSize) {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("id", joinIDs(batch))
		params.Set("maxResults", strconv.Itoa(ytBatchSize))

		var result ytListResp
		if err := c.get(ctx, "/videos", params, &result); err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
		for _, item := range result.Items {
			if item.ID == "" {
				continue
			}
			out = append(out, qualify.PartialVideo{
				ID:           item.ID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  item.Snippet.PublishedAt,
				ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
			})
		}
	}
	return out, nil
}

// GetDetails fetches statistics, tags and duration, batching by 50.
func (c *Catalog) GetDetails(ctx context.Context, ids []string) ([]qualify.DetailedVideo, error) {
	var out []qualify.DetailedVideo
	for _, batch := range chunk(ids, ytBatchSize) {
		params := url.Values{}
		params.Set("part", "snippet,statistics,contentDetails")
		params.Set("id", joinIDs(batch))
		params.Set("maxResults", strconv.Itoa(ytBatchSize))

		var result ytListResp
		if err := c.get(ctx, "/videos", params, &result); err != nil {
			return nil, fmt.Errorf("video details: %w", err)
		}
		for _, item := range result.Items {
			if item.ID == "" {
				continue
			}
			d := qualify.DetailedVideo{
				ID:           item.ID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  item.Snippet.PublishedAt,
				ChannelTitle: item.Snippet.ChannelTitle,
				Tags:         item.Snippet.Tags,
				ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
			}
			if item.Statistics != nil {
				d.ViewCount = parseCount(item.Statistics.ViewCount)
				d.LikeCount = parseCount(item.Statistics.LikeCount)
				d.CommentCount = parseCount(item.Statistics.CommentCount)
			}
			if item.ContentDetails != nil {
				d.Duration = FormatDuration(item.ContentDetails.Duration)
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// RecentUploads walks the channel's uploads playlist for videos
// published after the cutoff, minus the excluded ids. Stops as soon as
// an older video appears since the playlist is newest-first.
func (c *Catalog) RecentUploads(ctx context.Context, channelID string, publishedAfter time.Time, exclude []string) ([]qualify.PartialVideo, error) {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", channelID)

	var chResp ytChannelResp
	if err := c.get(ctx, "/channels", params, &chResp); err != nil {
		return nil, fmt.Errorf("channel lookup: %w", err)
	}
	if len(chResp.Items) == 0 {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}
	playlistID := chResp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if playlistID == "" {
		return nil, fmt.Errorf("channel %s has no uploads playlist", channelID)
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []qualify.PartialVideo
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("playlistId", playlistID)
		params.Set("maxResults", strconv.Itoa(ytBatchSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page ytPlaylistResp
		if err := c.get(ctx, "/playlistItems", params, &page); err != nil {
			return nil, fmt.Errorf("uploads playlist: %w", err)
		}
		for _, item := range page.Items {
			published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if err == nil && published.Before(publishedAfter) {
				return out, nil
			}
			id := item.Snippet.ResourceID.VideoID
			if id == "" || excluded[id] {
				continue
			}
			out = append(out, qualify.PartialVideo{
				ID:           id,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  item.Snippet.PublishedAt,
				ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
			})
			if len(out) >= c.maxUploads {
				return out, nil
			}
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// get performs one rate-limited Data API call, rotating to the fallback
// key when the primary hits its quota.
func (c *Catalog) get(ctx context.Context, path string, params url.Values, out any) error {
	qualify.IncrCatalogRequests()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for _, key := range c.keys {
		params.Set("key", key)
		apiURL := ytDataAPIBase + path + "?" + params.Encode()

		resp, err := qualify.RetryHTTP(ctx, qualify.DefaultRetryConfig, func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", userAgent)
			return c.http.Do(req)
		})
		if err != nil {
			lastErr = fmt.Errorf("youtube data API: %w", err)
			continue
		}

		if resp.StatusCode == 403 {
			// Quota exhausted or key disabled; try the next key.
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("youtube data API 403: %s", string(body))
			slog.Debug("youtube data API key failed, trying fallback", slog.Any("err", lastErr))
			continue
		}
		if resp.StatusCode != 200 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("youtube data API %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode youtube data API: %w", err)
		}
		return nil
	}
	return lastErr
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func joinIDs(ids []string) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += id
	}
	return s
}

func thumbnailURL(t ytThumbnails) string {
	if t.High != nil {
		return t.High.URL
	}
	if t.Default != nil {
		return t.Default.URL
	}
	return ""
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

var isoDurationRE = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration converts an ISO-8601 duration (PT1H23M45S) to
// HH:MM:SS. Unparsable input comes back unchanged.
func FormatDuration(iso string) string {
	m := isoDurationRE.FindStringSubmatch(iso)
	if m == nil {
		return iso
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%02d:%02d:%02d", h, min, s)
}
