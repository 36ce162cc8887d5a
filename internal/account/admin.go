package account

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
)

// ErrNotConfigured means the server lacks the Supabase URL or service role key.
var ErrNotConfigured = errors.New("server not configured for account deletion")

// AdminClient talks to the Supabase GoTrue admin API with the service role key.
type AdminClient struct {
	BaseURL    string
	ServiceKey string
	HTTP       *http.Client
}

func NewAdminClient(baseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Check reports which setting is missing, if any.
func (c *AdminClient) Check() error {
	u, err := url.Parse(c.BaseURL)
	if c.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w. Missing or invalid: SUPABASE_URL", ErrNotConfigured)
	}
	if c.ServiceKey == "" {
		return fmt.Errorf("%w. Missing: SUPABASE_SERVICE_ROLE_KEY (or SUPABASE_SECRET_KEY / SUPABASE_SERVICE_ROLE)", ErrNotConfigured)
	}
	return nil
}

// DeleteUser removes the auth identity. A non-2xx answer is returned as an
// error carrying the upstream message.
func (c *AdminClient) DeleteUser(ctx context.Context, userID string) error {
	endpoint := c.BaseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return errors.New(upstreamMessage(resp.StatusCode, body))
}

// upstreamMessage pulls the human readable part out of a GoTrue error body.
func upstreamMessage(status int, body []byte) string {
	var e struct {
		Msg         string `json:"msg"`
		Message     string `json:"message"`
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) == nil {
		for _, s := range []string{e.Msg, e.Message, e.Description, e.Error} {
			if s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("unexpected status %d", status)
}
