// Package fetch retrieves remote pages with a browser-like identity,
// per-host rate limiting, and anti-automation challenge detection.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gardenshed/seedscout/internal/plant"
)

// Page is the raw result of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Config controls fetcher behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	PerHostRate float64
}

// Client fetches single pages. It is safe for concurrent use; each
// fetch runs on its own cloned collector.
type Client struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
	perHostRate   float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient constructs a configured fetcher.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)
	base.IgnoreRobotsTxt = true

	return &Client{
		baseCollector: base,
		logger:        logger,
		perHostRate:   cfg.PerHostRate,
		limiters:      make(map[string]*rate.Limiter),
	}
}

type fetchResult struct {
	page Page
	err  error
}

// Fetch retrieves one page. Non-2xx statuses whose bodies do not match
// a challenge signature become *plant.HTTPStatusError; a challenge
// body becomes *plant.BotBlockedError regardless of status, since
// blocking often manifests as an error status with a challenge page.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, err
	}
	if err := c.limiter(parsed.Hostname()).Wait(ctx); err != nil {
		return Page{}, classifyErr(err)
	}

	collector := c.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		// Error statuses still carry a body; keep it so the challenge
		// scan below can run.
		var body []byte
		status := 0
		if r != nil {
			body = append([]byte{}, r.Body...)
			status = r.StatusCode
		}
		send(fetchResult{
			page: Page{URL: rawURL, StatusCode: status, Body: body},
			err:  err,
		})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, classifyErr(err)
	}
	collector.Wait()

	var res fetchResult
	select {
	case res = <-resultCh:
	default:
		return Page{}, errors.New("fetch produced no result")
	}

	if IsChallenge(res.page.Body) {
		c.logger.Warn("bot challenge detected",
			zap.String("url", rawURL),
			zap.Int("status_code", res.page.StatusCode),
		)
		return Page{}, &plant.BotBlockedError{Host: parsed.Hostname()}
	}
	if res.err != nil {
		if res.page.StatusCode >= 300 {
			return Page{}, &plant.HTTPStatusError{Status: res.page.StatusCode}
		}
		return Page{}, classifyErr(res.err)
	}
	if res.page.StatusCode < 200 || res.page.StatusCode >= 300 {
		return Page{}, &plant.HTTPStatusError{Status: res.page.StatusCode}
	}
	return res.page, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.perHostRate), 1)
		c.limiters[host] = lim
	}
	return lim
}

// classifyErr folds transport timeouts into the shared timeout
// sentinel so callers never see library-specific error types.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return plant.ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return plant.ErrTimeout
	}
	return err
}

// challengeMarkers are body signatures of known anti-automation
// interstitials. Matching is case-insensitive substring search.
var challengeMarkers = [][]byte{
	[]byte("just a moment"),
	[]byte("checking your browser"),
	[]byte("cf-challenge"),
	[]byte("cf-browser-verification"),
	[]byte("verify you are human"),
	[]byte("please wait while we verify"),
	[]byte("attention required! | cloudflare"),
}

// IsChallenge reports whether a response body matches a known
// anti-automation challenge signature.
func IsChallenge(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, marker := range challengeMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}
