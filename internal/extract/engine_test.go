package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/normalize"
	"github.com/sells-group/prospect-cli/internal/robots"
	"github.com/sells-group/prospect-cli/internal/stats"
)

// fakeNav scripts Render responses per call.
type fakeNav struct {
	calls  []string
	render func(url string, call int) (browser.Page, error)
}

func (f *fakeNav) Render(_ context.Context, url string, _ browser.RenderOptions) (browser.Page, error) {
	call := len(f.calls)
	f.calls = append(f.calls, url)
	return f.render(url, call)
}

func newTestEngine(nav Navigator, gate *robots.Gate, c *stats.Collector) *Engine {
	e := New(nav, gate, c)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

const clinicHTML = `<html><body>
	<h1>Acme Dental</h1>
	<span class="phone">(512) 555-0100</span>
	<div class="address">100 Main St, Austin, TX 78701</div>
	<a itemprop="url" href="https://acmedental.com">Website</a>
	<a href="mailto:info@acmedental.com">Email us</a>
</body></html>`

func TestVisit_ExtractsFullRecord(t *testing.T) {
	nav := &fakeNav{render: func(url string, _ int) (browser.Page, error) {
		return browser.Page{URL: url, HTML: clinicHTML}, nil
	}}
	c := stats.NewCollector()
	e := newTestEngine(nav, nil, c)

	p := e.Visit(context.Background(), "https://directory.example/biz/acme", VisitOptions{})

	assert.Equal(t, "Acme Dental", p.ClinicName)
	assert.Equal(t, "(512) 555-0100", p.Phone)
	assert.Equal(t, "+15125550100", p.PhoneE164)
	assert.Equal(t, "info@acmedental.com", p.Email)
	assert.Equal(t, "https://acmedental.com", p.Website)
	assert.Equal(t, "100 Main St", p.Address)
	assert.Equal(t, "Austin", p.City)
	assert.Equal(t, "TX", p.State)
	assert.Equal(t, "78701", p.PostalCode)
	assert.Equal(t, "US", p.Country)
	assert.Equal(t, "America/Chicago", p.Timezone)
	assert.Equal(t, "https://directory.example/biz/acme", p.SourceURL)
	assert.NotEmpty(t, p.ClinicID)
	assert.Empty(t, p.Notes)

	s := c.Snapshot()
	assert.Equal(t, 1, s.Scraped)
	assert.Equal(t, 1, s.EmailsFound)
}

func TestVisit_CaptchaExhaustsRetryBudget(t *testing.T) {
	nav := &fakeNav{render: func(url string, _ int) (browser.Page, error) {
		return browser.Page{URL: url, HTML: "<body>Please verify you are human</body>"}, nil
	}}
	c := stats.NewCollector()
	e := newTestEngine(nav, nil, c)

	p := e.Visit(context.Background(), "https://directory.example/biz/1", VisitOptions{Retries: 2})

	assert.Len(t, nav.calls, 3) // initial attempt + 2 retries
	assert.Contains(t, p.Notes, "captcha-blocked")
	assert.Equal(t, "https://directory.example/biz/1", p.SourceURL)
	assert.Equal(t, 1, c.Snapshot().CaptchaBlocked)
}

func TestVisit_TransportErrorExhaustsRetryBudget(t *testing.T) {
	nav := &fakeNav{render: func(string, int) (browser.Page, error) {
		return browser.Page{}, eris.New("net::ERR_CONNECTION_REFUSED")
	}}
	c := stats.NewCollector()
	e := newTestEngine(nav, nil, c)

	p := e.Visit(context.Background(), "https://directory.example/biz/1", VisitOptions{Retries: 1})

	assert.Len(t, nav.calls, 2)
	require.NotEmpty(t, p.Notes)
	assert.Contains(t, p.Notes[0], "error: ")
	assert.Equal(t, 2, c.Snapshot().TransportErrors)
}

func TestVisit_TransientFailureThenSuccess(t *testing.T) {
	nav := &fakeNav{render: func(url string, call int) (browser.Page, error) {
		if call == 0 {
			return browser.Page{}, eris.New("timeout")
		}
		return browser.Page{URL: url, HTML: clinicHTML}, nil
	}}
	e := newTestEngine(nav, nil, stats.NewCollector())

	p := e.Visit(context.Background(), "https://directory.example/biz/1", VisitOptions{})

	assert.Len(t, nav.calls, 2)
	assert.Equal(t, "Acme Dental", p.ClinicName)
	assert.Empty(t, p.Notes)
}

func TestVisit_RobotsDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer srv.Close()

	nav := &fakeNav{render: func(string, int) (browser.Page, error) {
		t.Fatal("render must not be called for a robots-denied URL")
		return browser.Page{}, nil
	}}
	c := stats.NewCollector()
	e := newTestEngine(nav, robots.NewGate(srv.Client()), c)

	p := e.Visit(context.Background(), srv.URL+"/biz/1", VisitOptions{})

	assert.Empty(t, nav.calls)
	assert.Contains(t, p.Notes, "robots.txt-blocked")
	assert.Equal(t, srv.URL+"/biz/1", p.SourceURL)
	assert.Equal(t, 1, c.Snapshot().Skipped)
}

func TestVisit_EnrichHopFindsEmail(t *testing.T) {
	mainHTML := `<html><body>
		<h1>Quiet Dental</h1>
		<span class="phone">(512) 555-0100</span>
		<a itemprop="url" href="https://quietdental.example">Website</a>
	</body></html>`
	contactHTML := `<html><body><a href="mailto:hello@quietdental.example">write</a></body></html>`

	nav := &fakeNav{render: func(url string, _ int) (browser.Page, error) {
		if url == "https://quietdental.example/contact" {
			return browser.Page{URL: url, HTML: contactHTML}, nil
		}
		return browser.Page{URL: url, HTML: mainHTML}, nil
	}}
	e := newTestEngine(nav, nil, stats.NewCollector())

	p := e.Visit(context.Background(), "https://directory.example/biz/quiet", VisitOptions{Enrich: true})

	assert.Equal(t, "hello@quietdental.example", p.Email)
	require.GreaterOrEqual(t, len(nav.calls), 2)
	assert.Equal(t, "https://quietdental.example/contact", nav.calls[1])
}

func TestVisit_EnrichHopFailuresAreSilent(t *testing.T) {
	nav := &fakeNav{render: func(url string, call int) (browser.Page, error) {
		if call == 0 {
			return browser.Page{URL: url, HTML: `<h1>Quiet Dental</h1><a itemprop="url" href="https://quiet.example">w</a>`}, nil
		}
		return browser.Page{}, eris.New("refused")
	}}
	e := newTestEngine(nav, nil, stats.NewCollector())

	p := e.Visit(context.Background(), "https://directory.example/biz/quiet", VisitOptions{Enrich: true})

	assert.Empty(t, p.Email)
	assert.Equal(t, "Quiet Dental", p.ClinicName)
	// One render per contact path plus the main page.
	assert.Len(t, nav.calls, 1+len(contactPaths))
}

func TestVisit_NoPhoneNote(t *testing.T) {
	nav := &fakeNav{render: func(url string, _ int) (browser.Page, error) {
		return browser.Page{URL: url, HTML: "<h1>Ghost Clinic</h1>"}, nil
	}}
	c := stats.NewCollector()
	e := newTestEngine(nav, nil, c)

	p := e.Visit(context.Background(), "https://directory.example/biz/ghost", VisitOptions{})

	assert.Contains(t, p.Notes, "no phone")
	assert.Empty(t, p.PhoneE164)
	assert.Equal(t, 1, c.Snapshot().NoPhone)
	assert.Equal(t, normalize.DefaultTimezone, p.Timezone)
}
