// Package render is a client for the external page-render service, which
// fetches target pages on our behalf and returns their HTML.
package render

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// Config controls render client behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds the plain endpoint; JSTimeout bounds the JS endpoint,
	// which is much slower because the service runs the page's scripts.
	Timeout   time.Duration
	JSTimeout time.Duration
	// WaitTimeout and AdditionalWait are forwarded to the JS endpoint: how
	// long the service waits for page load, and how much longer after that
	// for late script execution. Both are in seconds.
	WaitTimeout    int
	AdditionalWait int
}

// Client fetches page HTML through the render service. The plain endpoint
// returns the document as served; the JS endpoint returns it after script
// execution.
type Client struct {
	cfg           Config
	secret        harvest.SecretProvider
	baseCollector *colly.Collector
}

// New builds a Client authenticated by secret.
func New(cfg Config, secret harvest.SecretProvider) *Client {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Client{cfg: cfg, secret: secret, baseCollector: c}
}

// Fetch returns the HTML of target without JavaScript execution.
func (c *Client) Fetch(ctx context.Context, target string) (string, error) {
	return c.get(ctx, "/scrape", target, c.timeout(), nil)
}

// FetchJS returns the HTML of target after the service has executed the
// page's JavaScript.
func (c *Client) FetchJS(ctx context.Context, target string) (string, error) {
	extra := url.Values{}
	if c.cfg.WaitTimeout > 0 {
		extra.Set("wait_timeout", strconv.Itoa(c.cfg.WaitTimeout))
	}
	if c.cfg.AdditionalWait > 0 {
		extra.Set("additional_wait", strconv.Itoa(c.cfg.AdditionalWait))
	}
	return c.get(ctx, "/scrape-js", target, c.jsTimeout(), extra)
}

func (c *Client) get(ctx context.Context, endpoint, target string, timeout time.Duration, extra url.Values) (string, error) {
	token, err := c.secret.Token()
	if err != nil {
		return "", fmt.Errorf("load render key: %w", err)
	}

	query := url.Values{}
	query.Set("url", target)
	query.Set("key", token)
	for key, values := range extra {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	requestURL := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint + "?" + query.Encode()

	collector := c.baseCollector.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode == http.StatusUnauthorized {
			fetchErr = fmt.Errorf("render service rejected key: %w", err)
			return
		}
		fetchErr = err
	})

	if err := c.runCollector(ctx, collector, requestURL, &fetchErr); err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) runCollector(ctx context.Context, collector *colly.Collector, requestURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(requestURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("render fetch canceled: %w", ctx.Err())
	case err := <-done:
		// OnError carries more context than the bare visit error.
		if *fetchErr != nil {
			return fmt.Errorf("render response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("render visit failed: %w", err)
		}
		return nil
	}
}

func (c *Client) timeout() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return 60 * time.Second
}

func (c *Client) jsTimeout() time.Duration {
	if c.cfg.JSTimeout > 0 {
		return c.cfg.JSTimeout
	}
	return 120 * time.Second
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
