// Package extract renders third-party pages through the shared browser and
// folds whatever it finds into canonical prospect records. Visit never
// returns an error: every failure mode is encoded in the record's notes so
// one antagonistic URL can't halt a source's stream.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/normalize"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/robots"
	"github.com/sells-group/prospect-cli/internal/stats"
)

// Navigator renders one URL and returns the resulting page. Implemented by
// browser.Browser; tests inject fakes.
type Navigator interface {
	Render(ctx context.Context, url string, opts browser.RenderOptions) (browser.Page, error)
}

// contactPaths are the likely contact pages tried during email enrichment.
// This is a fixed set, not link-graph traversal.
var contactPaths = []string{"/contact", "/contact-us", "/about", "/about-us"}

const (
	defaultNavTimeout  = 30 * time.Second
	contactHopTimeout  = 10 * time.Second
	defaultRetryBudget = 2
)

// VisitOptions controls one Visit call.
type VisitOptions struct {
	Delay         time.Duration // per-page pacing; raised to the host crawl-delay
	Retries       int           // attempts beyond the first; default 2
	Enrich        bool          // hop to contact pages when no email found
	DefaultRegion string        // phone parsing region; default "US"
	Timeout       time.Duration // navigation hard timeout; default 30s
}

// Engine visits business pages and produces canonical prospect records.
type Engine struct {
	nav   Navigator
	gate  *robots.Gate
	stats *stats.Collector
	agent string
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Engine. gate and collector may be nil (no compliance
// checks, no counters) which only tests should do.
func New(nav Navigator, gate *robots.Gate, collector *stats.Collector) *Engine {
	return &Engine{
		nav:   nav,
		gate:  gate,
		stats: collector,
		agent: robots.DefaultAgent,
		sleep: resilience.SleepContext,
	}
}

// SetAgent overrides the agent token presented to robots.txt checks.
func (e *Engine) SetAgent(agent string) {
	if agent != "" {
		e.agent = agent
	}
}

// Visit renders url and extracts one prospect record. It never returns an
// error; robots denials, captcha blocks, and transport failures all degrade
// to stub records with diagnostic notes.
func (e *Engine) Visit(ctx context.Context, url string, opts VisitOptions) model.Prospect {
	p := model.Prospect{
		ClinicID:  uuid.NewString(),
		Country:   "US",
		SourceURL: url,
	}

	if opts.DefaultRegion == "" {
		opts.DefaultRegion = "US"
	}
	if opts.Retries == 0 {
		opts.Retries = defaultRetryBudget
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultNavTimeout
	}

	if e.gate != nil && !e.gate.Allowed(url, e.agent) {
		p.AddNote("robots.txt-blocked")
		if e.stats != nil {
			e.stats.Skipped()
		}
		zap.L().Debug("extract: robots denied", zap.String("url", url))
		return p
	}

	delay := opts.Delay
	if e.gate != nil {
		if cd, ok := e.gate.CrawlDelay(url, e.agent); ok && cd > delay {
			delay = cd
		}
	}

	for attempt := 0; attempt <= opts.Retries; attempt++ {
		page, err := e.nav.Render(ctx, url, browser.RenderOptions{
			Timeout: opts.Timeout,
			Settle:  delay,
		})
		if err != nil {
			if e.stats != nil {
				e.stats.TransportError()
			}
			zap.L().Debug("extract: navigation failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if attempt < opts.Retries {
				// Exponential-ish backoff scaled by the per-page delay.
				if e.sleep(ctx, delay*time.Duration(attempt+1)) != nil {
					break
				}
				continue
			}
			p.AddNote("error: " + err.Error())
			return p
		}

		if blocked, btype := Blocked(page.URL, page.HTML); blocked {
			zap.L().Debug("extract: block detected",
				zap.String("url", url),
				zap.String("type", string(btype)),
				zap.Int("attempt", attempt),
			)
			if attempt < opts.Retries {
				if e.sleep(ctx, delay*2) != nil {
					break
				}
				continue
			}
			p.AddNote("captcha-blocked")
			if e.stats != nil {
				e.stats.CaptchaBlocked()
			}
			return p
		}

		e.populate(ctx, &p, page, opts)
		if e.stats != nil {
			e.stats.Scraped()
		}
		return p
	}

	// Only reachable when the backoff sleep was cancelled mid-loop.
	p.AddNote("error: " + ctx.Err().Error())
	return p
}

// populate fills the record from a rendered page. Parse problems downgrade
// to notes; they never fail the visit.
func (e *Engine) populate(ctx context.Context, p *model.Prospect, page browser.Page, opts VisitOptions) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		p.AddNote("error: " + err.Error())
		return
	}

	f := extractFields(doc)
	text := pageText(doc)

	p.ClinicName = normalize.CleanName(f.Name)
	p.Website = resolveURL(page.URL, f.Website)
	p.Address = strings.TrimSpace(f.Address)
	p.City = strings.TrimSpace(f.City)
	p.State = strings.ToUpper(strings.TrimSpace(f.State))
	p.PostalCode = strings.TrimSpace(f.Zip)

	// mailto links are more reliable than body text; list them first so the
	// blocklist-filtered pick prefers them.
	emailSource := strings.Join(mailtoAddresses(doc), " ") + " " + text
	p.Email = normalize.BestEmail(emailSource)
	if p.Email == "" && opts.Enrich && p.Website != "" {
		p.Email = e.enrichEmail(ctx, p.Website)
	}
	if p.Email != "" && e.stats != nil {
		e.stats.EmailFound()
	}

	// Backfill missing subfields from the combined address string.
	if p.Address != "" && (p.City == "" || p.State == "") {
		street, city, state, zip := normalize.SplitAddress(p.Address)
		if street != "" {
			p.Address = street
		}
		if p.City == "" {
			p.City = city
		}
		if p.State == "" {
			p.State = state
		}
		if p.PostalCode == "" {
			p.PostalCode = zip
		}
	}

	p.Phone = strings.TrimSpace(f.Phone)
	if p.Phone == "" {
		if candidates := normalize.PhoneCandidates(text); len(candidates) > 0 {
			p.Phone = candidates[0]
		}
	}
	switch res := normalize.Phone(p.Phone, opts.DefaultRegion); {
	case p.Phone == "":
		p.AddNote("no phone")
		if e.stats != nil {
			e.stats.NoPhone()
		}
	case !res.Valid:
		p.AddNote("invalid phone")
		if e.stats != nil {
			e.stats.InvalidPhone()
		}
	default:
		p.PhoneE164 = res.E164
	}

	p.Timezone = normalize.TimezoneForState(p.State)
}

// enrichEmail sequentially tries the fixed contact-page paths off the
// extracted website, stopping at the first page that yields an email.
// Failures are silent: enrichment is best-effort.
func (e *Engine) enrichEmail(ctx context.Context, website string) string {
	base := strings.TrimRight(website, "/")
	for _, path := range contactPaths {
		target := base + path
		if e.gate != nil && !e.gate.Allowed(target, e.agent) {
			continue
		}
		page, err := e.nav.Render(ctx, target, browser.RenderOptions{Timeout: contactHopTimeout})
		if err != nil {
			zap.L().Debug("extract: contact hop failed",
				zap.String("url", target),
				zap.Error(err),
			)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			continue
		}
		source := strings.Join(mailtoAddresses(doc), " ") + " " + pageText(doc)
		if email := normalize.BestEmail(source); email != "" {
			return email
		}
	}
	return ""
}
