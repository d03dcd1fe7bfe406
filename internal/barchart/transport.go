package barchart

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

// Doer is the part of *http.Client the fetcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RLClient waits on a rate limiter before every request.
type RLClient struct {
	Client      Doer
	Ratelimiter *rate.Limiter
}

func (c *RLClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.Ratelimiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.Client.Do(req)
}

// baseTransportConfig returns the transport shared by vendor clients, with an optional proxy.
func baseTransportConfig(proxyURL string) *http.Transport {
	t := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: defaultTimeout,
		MaxIdleConnsPerHost:   4,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			t.Proxy = http.ProxyURL(u)
		}
	}
	return t
}

// NewHTTPClient creates the client used for history requests. A zero timeout uses the default.
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Transport: baseTransportConfig(proxyURL),
		Timeout:   timeout,
	}
}

// NewLimitedClient wraps c with a limiter allowing perSecond requests (burst 1).
// perSecond <= 0 returns c unchanged.
func NewLimitedClient(c Doer, perSecond float64) Doer {
	if perSecond <= 0 {
		return c
	}
	return &RLClient{
		Client:      c,
		Ratelimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}
