package source

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/normalize"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/stats"
)

const (
	gmapsFeedSelector = `div[role="feed"]`

	// maxScrollAttempts bounds feed scrolling; the feed loads lazily and can
	// keep growing well past any useful cap.
	maxScrollAttempts = 12
	scrollSettle      = 1500 * time.Millisecond
)

// MapsDriver is the browser-facing surface of the map source. The production
// implementation drives a Chrome tab; tests substitute a fake.
type MapsDriver interface {
	// OpenSearch navigates to the search URL and waits for the results feed.
	OpenSearch(ctx context.Context, searchURL string) error
	// ScrollFeed scrolls the feed once and returns how many entry links are
	// loaded afterwards.
	ScrollFeed(ctx context.Context) (int, error)
	// EntryLinks returns the currently loaded place links.
	EntryLinks(ctx context.Context) ([]string, error)
	// OpenEntry opens one place and returns the detail panel's HTML.
	OpenEntry(ctx context.Context, link string) (string, error)
	Close()
}

// gmapsSource scrapes the map search results feed. Unlike the listing
// sources, contact fields live in the detail panel, so entries don't go
// through the extraction engine.
type gmapsSource struct {
	newDriver func(ctx context.Context) (MapsDriver, error)
	stats     *stats.Collector
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewGMaps creates the map-search source backed by the shared browser.
func NewGMaps(b *browser.Browser, collector *stats.Collector) Source {
	return &gmapsSource{
		newDriver: func(ctx context.Context) (MapsDriver, error) {
			return newChromeMapsDriver(ctx, b)
		},
		stats: collector,
		sleep: resilience.SleepContext,
	}
}

func (s *gmapsSource) Name() string { return "gmaps" }

func (s *gmapsSource) Stream(ctx context.Context, opts Options) (<-chan Item, error) {
	if opts.Location == "" {
		return nil, &ConfigError{Reason: "gmaps: location required"}
	}
	opts = opts.withDefaults(20)

	ch := make(chan Item)
	go func() {
		defer close(ch)

		driver, err := s.newDriver(ctx)
		if err != nil {
			send(ctx, ch, Item{Err: eris.Wrap(err, "gmaps: start driver")})
			return
		}
		defer driver.Close()

		links, err := s.discover(ctx, driver, opts)
		if err != nil {
			send(ctx, ch, Item{Err: err})
			return
		}
		zap.L().Info("gmaps: feed collected", zap.Int("candidates", len(links)))

		seenNames := make(map[string]struct{})
		yielded := 0
		for i, link := range links {
			if i > 0 && opts.Delay > 0 {
				if s.sleep(ctx, opts.Delay) != nil {
					return
				}
			}

			panelHTML, err := driver.OpenEntry(ctx, link)
			if err != nil {
				p := model.Prospect{
					ClinicID:  uuid.NewString(),
					Country:   "US",
					SourceURL: link,
				}
				p.AddNote("error: " + err.Error())
				if s.stats != nil {
					s.stats.TransportError()
				}
				if !send(ctx, ch, Item{Prospect: p}) {
					return
				}
				yielded++
				if yielded >= opts.Max {
					return
				}
				continue
			}

			p, ok := s.panelProspect(panelHTML, link, opts)
			if !ok {
				continue
			}
			key := strings.ToLower(p.ClinicName)
			if key != "" {
				if _, dup := seenNames[key]; dup {
					continue
				}
				seenNames[key] = struct{}{}
			}

			if !send(ctx, ch, Item{Prospect: p}) {
				return
			}
			yielded++
			if yielded >= opts.Max {
				return
			}
		}
	}()
	return ch, nil
}

// discover opens the search feed and scrolls until enough entries are loaded,
// the feed stops growing, or the attempt budget runs out.
func (s *gmapsSource) discover(ctx context.Context, driver MapsDriver, opts Options) ([]string, error) {
	searchURL := gmapsSearchURL(opts.Category, opts.Location)
	if err := driver.OpenSearch(ctx, searchURL); err != nil {
		return nil, eris.Wrap(err, "gmaps: open search")
	}

	prev, stagnant := 0, 0
	for attempt := 0; attempt < maxScrollAttempts; attempt++ {
		count, err := driver.ScrollFeed(ctx)
		if err != nil {
			zap.L().Warn("gmaps: scroll failed", zap.Error(err))
			break
		}
		if count >= opts.Max {
			break
		}
		if count <= prev {
			stagnant++
			if stagnant >= 2 {
				break
			}
		} else {
			stagnant = 0
		}
		prev = count
		if s.sleep(ctx, scrollSettle) != nil {
			break
		}
	}

	links, err := driver.EntryLinks(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: collect entry links")
	}

	seen := make(map[string]struct{})
	var out []string
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out, nil
}

// panelProspect reads contact fields out of a rendered detail panel. Returns
// false when the panel has no recognizable business name.
func (s *gmapsSource) panelProspect(panelHTML, link string, opts Options) (model.Prospect, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(panelHTML))
	if err != nil {
		return model.Prospect{}, false
	}

	name := normalize.CleanName(doc.Find("h1").First().Text())
	if name == "" {
		return model.Prospect{}, false
	}

	p := model.Prospect{
		ClinicID:   uuid.NewString(),
		ClinicName: name,
		Country:    "US",
		SourceURL:  link,
	}

	p.Website = doc.Find(`a[data-item-id="authority"]`).First().AttrOr("href", "")

	if full := trimPanelLabel(doc.Find(`button[data-item-id="address"]`).First().Text()); full != "" {
		street, city, state, zip := normalize.SplitAddress(full)
		if street != "" {
			p.Address = street
		} else {
			p.Address = full
		}
		p.City = city
		p.State = state
		p.PostalCode = zip
	}

	phoneEl := doc.Find(`button[data-item-id^="phone"]`).First()
	p.Phone = trimPanelLabel(strings.TrimPrefix(phoneEl.AttrOr("aria-label", ""), "Phone: "))
	if p.Phone == "" {
		p.Phone = trimPanelLabel(phoneEl.Text())
	}
	switch res := normalize.Phone(p.Phone, opts.Region); {
	case p.Phone == "":
		p.AddNote("no phone")
		if s.stats != nil {
			s.stats.NoPhone()
		}
	case !res.Valid:
		p.AddNote("invalid phone")
		if s.stats != nil {
			s.stats.InvalidPhone()
		}
	default:
		p.PhoneE164 = res.E164
	}

	p.Timezone = normalize.TimezoneForState(p.State)
	if s.stats != nil {
		s.stats.Scraped()
	}
	return p, true
}

// trimPanelLabel strips the icon glyphs and padding the panel prepends to
// field text.
func trimPanelLabel(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '('
	})
}

func gmapsSearchURL(category, location string) string {
	return "https://www.google.com/maps/search/" + url.QueryEscape(category+" in "+location)
}

// chromeMapsDriver drives the map UI in one dedicated tab.
type chromeMapsDriver struct {
	tab    context.Context
	cancel context.CancelFunc
}

func newChromeMapsDriver(ctx context.Context, b *browser.Browser) (MapsDriver, error) {
	tab, cancel, err := b.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	return &chromeMapsDriver{tab: tab, cancel: cancel}, nil
}

func (d *chromeMapsDriver) OpenSearch(_ context.Context, searchURL string) error {
	runCtx, cancel := context.WithTimeout(d.tab, 45*time.Second)
	defer cancel()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible(gmapsFeedSelector, chromedp.ByQuery),
	)
	return eris.Wrap(err, "gmaps: navigate to search")
}

func (d *chromeMapsDriver) ScrollFeed(_ context.Context) (int, error) {
	runCtx, cancel := context.WithTimeout(d.tab, 15*time.Second)
	defer cancel()

	js := `(() => {
		const feed = document.querySelector('div[role="feed"]');
		if (feed) { feed.scrollTo(0, feed.scrollHeight); }
		return document.querySelectorAll('a[href*="/maps/place/"]').length;
	})()`
	var count int
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, &count)); err != nil {
		return 0, eris.Wrap(err, "gmaps: scroll feed")
	}
	return count, nil
}

func (d *chromeMapsDriver) EntryLinks(_ context.Context) ([]string, error) {
	runCtx, cancel := context.WithTimeout(d.tab, 15*time.Second)
	defer cancel()

	js := `Array.from(document.querySelectorAll('a[href*="/maps/place/"]')).map(a => a.href)`
	var links []string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, &links)); err != nil {
		return nil, eris.Wrap(err, "gmaps: read entry links")
	}
	return links, nil
}

func (d *chromeMapsDriver) OpenEntry(_ context.Context, link string) (string, error) {
	runCtx, cancel := context.WithTimeout(d.tab, 30*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(link),
		chromedp.WaitVisible("h1", chromedp.ByQuery),
		chromedp.OuterHTML(`div[role="main"]`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", eris.Wrapf(err, "gmaps: open entry %s", link)
	}
	return html, nil
}

func (d *chromeMapsDriver) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}
