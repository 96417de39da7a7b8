// Package robots answers crawl-permission questions from per-host
// robots.txt policies, cached for the lifetime of one run.
package robots

import (
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// DefaultAgent is the agent token used when the caller doesn't care.
const DefaultAgent = "*"

const fetchTimeout = 5 * time.Second

// Gate caches one robots.txt policy per host. A host whose policy can't be
// fetched (network error, status >= 500) is treated as unrestricted: this
// deliberately fails open, favoring availability over conservatism. The cache
// has no TTL; a run is short-lived. A long-lived service would need one.
type Gate struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewGate creates a Gate. A nil client gets a default with a short timeout.
func NewGate(client *http.Client) *Gate {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Gate{
		client: client,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the agent may fetch rawURL under the host's policy.
// Unparseable URLs are allowed through; the fetch itself will fail loudly.
func (g *Gate) Allowed(rawURL, agent string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	if agent == "" {
		agent = DefaultAgent
	}

	data := g.policyFor(u)
	if data == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, agent)
}

// CrawlDelay returns the host's declared crawl-delay for the agent, if any.
func (g *Gate) CrawlDelay(rawURL, agent string) (time.Duration, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0, false
	}
	if agent == "" {
		agent = DefaultAgent
	}

	data := g.policyFor(u)
	if data == nil {
		return 0, false
	}
	group := data.FindGroup(agent)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return group.CrawlDelay, true
}

// policyFor returns the cached policy for the URL's host, fetching it on
// first use. A nil return means "no policy" (fail-open).
func (g *Gate) policyFor(u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	defer g.mu.Unlock()

	if data, ok := g.cache[key]; ok {
		return data
	}

	data := g.fetch(key)
	g.cache[key] = data
	return data
}

func (g *Gate) fetch(base string) *robotstxt.RobotsData {
	resp, err := g.client.Get(base + "/robots.txt")
	if err != nil {
		zap.L().Debug("robots: fetch failed, treating host as unrestricted",
			zap.String("host", base),
			zap.Error(err),
		)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	// 5xx is ambiguous (the host may be melting down); fail open rather than
	// lose the whole host. 4xx means no policy was published.
	if resp.StatusCode >= 400 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		zap.L().Debug("robots: read failed, treating host as unrestricted",
			zap.String("host", base),
			zap.Error(err),
		)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		zap.L().Debug("robots: parse failed, treating host as unrestricted",
			zap.String("host", base),
			zap.Error(err),
		)
		return nil
	}
	return data
}
