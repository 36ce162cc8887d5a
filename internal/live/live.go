// Package live searches YouTube for news streams that are on air right now.
package live

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	DefaultQuery = "live news"
	maxResults   = 12
)

var ErrNoAPIKey = errors.New("YouTube API key is not configured")

type Stream struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
	Thumbnail   string `json:"thumbnail"`
	URL         string `json:"url"`
	EmbedURL    string `json:"embed_url"`
}

type Client struct {
	svc *youtube.Service
}

// NewClient builds a search client. An empty key yields a client whose
// searches fail with ErrNoAPIKey, so the server can start without one.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	apiKey = strings.TrimLeft(strings.TrimSpace(apiKey), "=")
	if apiKey == "" {
		return &Client{}, nil
	}
	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Search returns embeddable live videos matching q, or DefaultQuery when q is
// blank. Results without a video id are dropped.
func (c *Client) Search(ctx context.Context, q string) ([]Stream, error) {
	if c.svc == nil {
		return nil, ErrNoAPIKey
	}
	if q = strings.TrimSpace(q); q == "" {
		q = DefaultQuery
	}

	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(q).
		Type("video").
		EventType("live").
		VideoEmbeddable("true").
		MaxResults(maxResults).
		RelevanceLanguage("en").
		RegionCode("US").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	streams := make([]Stream, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		s := Stream{
			VideoID:  item.Id.VideoId,
			URL:      "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			EmbedURL: "https://www.youtube.com/embed/" + item.Id.VideoId,
		}
		if sn := item.Snippet; sn != nil {
			s.Title = sn.Title
			s.Channel = sn.ChannelTitle
			s.Description = sn.Description
			s.PublishedAt = sn.PublishedAt
			s.Thumbnail = thumbnail(sn.Thumbnails)
		}
		streams = append(streams, s)
	}
	return streams, nil
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
