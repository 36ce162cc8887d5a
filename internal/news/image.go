package news

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"newsnotes/pkg/logger"
)

const (
	FallbackImagePath   = "/news.avif"
	defaultContentType  = "image/jpeg"
	defaultCacheControl = "public, max-age=3600, stale-while-revalidate=86400"
	maxImageBytes       = 10 << 20
)

// ImageProxy relays third-party article images. Every failure redirects to
// the bundled placeholder so the page never shows a broken image.
type ImageProxy struct {
	HTTP *http.Client
}

var errBlockedAddress = errors.New("address not allowed")

func NewImageProxy() *ImageProxy {
	dialer := &net.Dialer{Timeout: 5 * time.Second, Control: publicOnly}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &ImageProxy{HTTP: &http.Client{Timeout: 10 * time.Second, Transport: transport}}
}

// publicOnly refuses connections to loopback, private, link-local and
// unspecified addresses. It runs after DNS resolution, so hostnames that
// resolve to internal addresses are refused too.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	return nil
}

func (p *ImageProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target, err := url.Parse(r.URL.Query().Get("url"))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		fallback(w, r)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		fallback(w, r)
		return
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		logger.Sugar.Debugf("Image fetch failed for %s: %v", target.Host, err)
		fallback(w, r)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fallback(w, r)
		return
	}
	contentType := headerOr(resp.Header, "Content-Type", defaultContentType)
	if !isImage(contentType) {
		logger.Sugar.Debugf("Image proxy refused %s content from %s", contentType, target.Host)
		fallback(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", headerOr(resp.Header, "Cache-Control", defaultCacheControl))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		logger.Sugar.Debugf("Image copy aborted for %s: %v", target.Host, err)
	}
}

func fallback(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, FallbackImagePath, http.StatusTemporaryRedirect)
}

func isImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "image/")
}

func headerOr(h http.Header, key, def string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return def
}
