package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/leofalp/aitasks/internal/utils"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent unless Input.UserAgent overrides it. Some news
	// sites refuse requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0 (compatible; aitasks-webfetch/1.0)"
	// MaxBodySize is the maximum response body size (10MB)
	MaxBodySize = 10 * 1024 * 1024
	// MaxRedirects is the number of redirects followed before giving up.
	MaxRedirects = 10

	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 10 * time.Second
)

// ErrEmptyURL is returned when the URL is blank.
var ErrEmptyURL = errors.New("URL cannot be empty")

// Input holds the parameters of one fetch.
type Input struct {
	// URL can be partial ("example.com") or full ("https://example.com").
	URL string
	// TimeoutSeconds overrides DefaultTimeout when positive.
	TimeoutSeconds int
	UserAgent      string
	// IncludeHTML keeps the raw HTML in Output.HTML.
	IncludeHTML bool
}

// Output holds the result produced by [Fetch].
type Output struct {
	// URL is the final URL after following all redirects
	URL      string
	Markdown string
	HTML     string
}

// Fetch retrieves the page at req.URL and returns its content as Markdown.
//
// The response body is capped at [MaxBodySize] bytes. Reading is performed in
// a goroutine so that context cancellation is honoured even during slow reads.
func Fetch(ctx context.Context, req Input) (Output, error) {
	url := NormalizeURL(req.URL)
	if url == "" {
		return Output{}, ErrEmptyURL
	}

	timeout := DefaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, url, nil)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", utils.FirstNonEmpty(req.UserAgent, DefaultUserAgent))

	resp, err := newHTTPClient(timeout).Do(httpReq)
	if err != nil {
		if ctxWithTimeout.Err() != nil {
			return Output{}, fmt.Errorf("request timeout or canceled: %w", err)
		}
		return Output{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", url)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	type readResult struct {
		data []byte
		err  error
	}
	readChan := make(chan readResult, 1)
	go func() {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
		readChan <- readResult{data: data, err: readErr}
	}()

	var htmlBytes []byte
	select {
	case <-ctxWithTimeout.Done():
		return Output{}, fmt.Errorf("timeout while reading response body: %w", ctxWithTimeout.Err())
	case result := <-readChan:
		if result.err != nil {
			return Output{}, fmt.Errorf("failed to read response body: %w", result.err)
		}
		htmlBytes = result.data
	}

	if len(htmlBytes) == MaxBodySize {
		return Output{}, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxBodySize)
	}

	markdown, err := ToMarkdown(string(htmlBytes))
	if err != nil {
		return Output{}, err
	}

	output := Output{URL: resp.Request.URL.String(), Markdown: markdown}
	if req.IncludeHTML {
		output.HTML = string(htmlBytes)
	}
	return output, nil
}

// ToMarkdown converts an HTML document or fragment to Markdown.
func ToMarkdown(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// NormalizeURL trims url and adds an https:// scheme when none is given.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return url
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("too many redirects (>%d)", MaxRedirects)
			}
			return nil
		},
	}
}
