package robots

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed_DisallowRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/robots.txt", r.URL.Path)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\nAllow: /\n"))
	}))
	defer srv.Close()

	g := NewGate(srv.Client())

	assert.True(t, g.Allowed(srv.URL+"/listing/acme", "*"))
	assert.False(t, g.Allowed(srv.URL+"/private/area", "*"))
	assert.True(t, g.Allowed(srv.URL, "*"))
}

func TestAllowed_FailOpenOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGate(srv.Client())
	assert.True(t, g.Allowed(srv.URL+"/anything", "*"))
}

func TestAllowed_FailOpenOnUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // connection refused from here on

	g := NewGate(&http.Client{Timeout: time.Second})
	assert.True(t, g.Allowed(srv.URL+"/path", "*"))
}

func TestAllowed_MissingRobotsIsUnrestricted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	g := NewGate(srv.Client())
	assert.True(t, g.Allowed(srv.URL+"/deep/path", "*"))
}

func TestPolicyFetchedOncePerHost(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /blocked\n"))
	}))
	defer srv.Close()

	g := NewGate(srv.Client())
	for range 5 {
		g.Allowed(srv.URL+"/a", "*")
		g.Allowed(srv.URL+"/blocked", "*")
	}
	assert.Equal(t, int32(1), fetches.Load())
}

func TestCrawlDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nCrawl-delay: 2\nDisallow:\n"))
	}))
	defer srv.Close()

	g := NewGate(srv.Client())
	delay, ok := g.CrawlDelay(srv.URL+"/page", "*")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, delay)
}

func TestCrawlDelay_AbsentPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	g := NewGate(srv.Client())
	_, ok := g.CrawlDelay(srv.URL+"/page", "*")
	assert.False(t, ok)
}

func TestAllowed_BadURL(t *testing.T) {
	g := NewGate(nil)
	assert.True(t, g.Allowed("::not-a-url", "*"))
	assert.True(t, g.Allowed("relative/path", "*"))
}
