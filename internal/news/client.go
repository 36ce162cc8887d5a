// Package news proxies NewsAPI and article images so browser clients never
// see the API key.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsnotes/pkg/logger"

	"github.com/patrickmn/go-cache"
)

var ErrNoAPIKey = errors.New("news API key is not configured")

// UpstreamError is a non-2xx answer from NewsAPI.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("news upstream returned %d: %s", e.Status, e.Message)
}

// Query selects the NewsAPI endpoint: a search term goes to /everything,
// anything else to /top-headlines.
type Query struct {
	Q        string
	Date     string
	Category string
	Country  string
}

func (q Query) endpoint() (string, url.Values) {
	params := url.Values{}
	if q.Q != "" {
		params.Set("q", q.Q)
		if q.Date != "" {
			params.Set("from", q.Date)
			params.Set("sortBy", "publishedAt")
		}
		return "/everything", params
	}

	country := q.Country
	if country == "" {
		country = "us"
	}
	params.Set("country", country)
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	return "/top-headlines", params
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	cache   *cache.Cache
}

const DefaultCacheTTL = 60 * time.Second

func NewClient(baseURL, apiKey string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache.New(ttl, 2*ttl),
	}
}

// Fetch returns the upstream JSON document verbatim. Successful answers are
// cached per query.
func (c *Client) Fetch(ctx context.Context, q Query) (json.RawMessage, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	path, params := q.endpoint()
	key := path + "?" + params.Encode()
	if cached, ok := c.cache.Get(key); ok {
		if doc, ok := cached.(json.RawMessage); ok {
			logger.Sugar.Debugf("News cache hit for %s", key)
			return doc, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+key, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read news response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "invalid JSON"}
	}

	doc := json.RawMessage(body)
	c.cache.Set(key, doc, cache.DefaultExpiration)
	return doc, nil
}

func upstreamMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(http.StatusBadGateway)
}
