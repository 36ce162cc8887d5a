package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://newsapi.test/v2"

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(baseURL+"/", "news-key", time.Minute)
	httpmock.ActivateNonDefault(c.HTTP)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestQueryEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		path  string
		enc   string
	}{
		{"search", Query{Q: "climate"}, "/everything", "q=climate"},
		{"search with date", Query{Q: "climate", Date: "2024-05-01"}, "/everything", "from=2024-05-01&q=climate&sortBy=publishedAt"},
		{"headlines default country", Query{}, "/top-headlines", "country=us"},
		{"headlines category", Query{Category: "science", Country: "gb"}, "/top-headlines", "category=science&country=gb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, params := tt.query.endpoint()
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.enc, params.Encode())
		})
	}
}

func TestFetchCachesSuccess(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/everything",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "news-key", req.Header.Get("X-Api-Key"))
			assert.Equal(t, "climate", req.URL.Query().Get("q"))
			return httpmock.NewStringResponse(http.StatusOK, `{"status":"ok","articles":[]}`), nil
		})

	for i := 0; i < 3; i++ {
		doc, err := c.Fetch(context.Background(), Query{Q: "climate"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ok","articles":[]}`, string(doc))
	}
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetchErrors(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/top-headlines",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"status":"error","message":"Your API key is invalid"}`))

	_, err := c.Fetch(context.Background(), Query{})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
	assert.Equal(t, "Your API key is invalid", upstream.Message)

	// failures are not cached
	_, _ = c.Fetch(context.Background(), Query{})
	assert.Equal(t, 2, httpmock.GetTotalCallCount())

	_, err = NewClient(baseURL, "", 0).Fetch(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

type stubFetcher struct {
	doc json.RawMessage
	err error
	got Query
}

func (s *stubFetcher) Fetch(_ context.Context, q Query) (json.RawMessage, error) {
	s.got = q
	return s.doc, s.err
}

func TestGetNews(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"ok", nil, http.StatusOK},
		{"no key", ErrNoAPIKey, http.StatusInternalServerError},
		{"upstream", &UpstreamError{Status: 429, Message: "rate limited"}, http.StatusBadGateway},
		{"transport", errors.New("dial tcp: timeout"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubFetcher{doc: json.RawMessage(`{"articles":[]}`), err: tt.err}
			rec := httptest.NewRecorder()
			NewHandler(stub).GetNews(rec, httptest.NewRequest(http.MethodGet, "/api/news?q=tech&date=2024-01-02", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, Query{Q: "tech", Date: "2024-01-02"}, stub.got)
		})
	}
}

func TestImageProxy(t *testing.T) {
	p := NewImageProxy()
	httpmock.ActivateNonDefault(p.HTTP)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/ok.png",
		func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.Header.Get("Accept"), "image/avif")
			resp := httpmock.NewBytesResponse(http.StatusOK, []byte("PNG"))
			resp.Header.Set("Content-Type", "image/png")
			return resp, nil
		})
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/bare",
		httpmock.NewBytesResponder(http.StatusOK, []byte("JPG")))
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/missing",
		httpmock.NewStringResponder(http.StatusNotFound, "nope"))
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/broken",
		httpmock.NewErrorResponder(errors.New("connection reset")))
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.test/page",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, "<script>alert(1)</script>")
			resp.Header.Set("Content-Type", "text/html; charset=utf-8")
			return resp, nil
		})

	serve := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/image-proxy", nil)
		q := req.URL.Query()
		if target != "" {
			q.Set("url", target)
		}
		req.URL.RawQuery = q.Encode()
		p.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("https://cdn.test/ok.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, defaultCacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "PNG", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve("https://cdn.test/bare")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultContentType, rec.Header().Get("Content-Type"))

	for _, target := range []string{"", "ftp://cdn.test/x.png", "::not a url", "https://cdn.test/missing", "https://cdn.test/broken", "https://cdn.test/page"} {
		rec := serve(target)
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, target)
		assert.Equal(t, FallbackImagePath, rec.Header().Get("Location"), target)
	}
}

func TestPublicOnlyDialGuard(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:80", "[::1]:443", "10.1.2.3:80", "192.168.0.10:80", "172.16.5.4:80", "169.254.169.254:80", "0.0.0.0:80", "[fe80::1]:80"} {
		assert.ErrorIs(t, publicOnly("tcp", addr, nil), errBlockedAddress, addr)
	}
	for _, addr := range []string{"93.184.216.34:443", "[2606:2800:220:1::]:443"} {
		assert.NoError(t, publicOnly("tcp", addr, nil), addr)
	}
}

func TestImageProxyRefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("internal"))
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+url.QueryEscape(srv.URL+"/secret.png"), nil)
	NewImageProxy().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, FallbackImagePath, rec.Header().Get("Location"))
}
