package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/extract"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Visitor extracts one prospect from one business page. Satisfied by
// extract.Engine; tests inject fakes.
type Visitor interface {
	Visit(ctx context.Context, url string, opts extract.VisitOptions) model.Prospect
}

// listingConfig describes one paginated search-result site.
type listingConfig struct {
	name       string
	defaultMax int
	// searchURL builds the result-page URL for a zero-based page index.
	searchURL func(category, location string, page int) string
	// resultSelectors locate business links on a result page, tried in
	// order; the first selector yielding any links wins the page.
	resultSelectors []string
	// resultFilter keeps only business-detail links (e.g. "/biz/" paths).
	resultFilter func(href string) bool
	// nextSelectors detect a "next page" control.
	nextSelectors []string
	// maxPages bounds pagination as a safety net.
	maxPages int

	searchTimeout time.Duration
}

// listingSource renders paginated search results, accumulates distinct
// candidate URLs up to the cap, and delegates each to the extraction engine.
type listingSource struct {
	cfg     listingConfig
	nav     extract.Navigator
	visitor Visitor
	sleep   func(ctx context.Context, d time.Duration) error
}

func newListingSource(cfg listingConfig, nav extract.Navigator, visitor Visitor) *listingSource {
	if cfg.maxPages <= 0 {
		cfg.maxPages = 20
	}
	if cfg.searchTimeout <= 0 {
		cfg.searchTimeout = 30 * time.Second
	}
	return &listingSource{
		cfg:     cfg,
		nav:     nav,
		visitor: visitor,
		sleep:   resilience.SleepContext,
	}
}

func (s *listingSource) Name() string { return s.cfg.name }

func (s *listingSource) Stream(ctx context.Context, opts Options) (<-chan Item, error) {
	if opts.Location == "" {
		return nil, &ConfigError{Reason: s.cfg.name + ": location required"}
	}
	opts = opts.withDefaults(s.cfg.defaultMax)

	ch := make(chan Item)
	go func() {
		defer close(ch)

		urls := s.discover(ctx, opts)
		zap.L().Info("listing: discovery complete",
			zap.String("source", s.cfg.name),
			zap.Int("candidates", len(urls)),
		)

		for i, u := range urls {
			if i > 0 && opts.Delay > 0 {
				if s.sleep(ctx, opts.Delay) != nil {
					return
				}
			}
			p := s.visitor.Visit(ctx, u, extract.VisitOptions{
				Delay:         opts.Delay,
				Retries:       opts.Retries,
				Enrich:        opts.Enrich,
				DefaultRegion: opts.Region,
			})
			if !send(ctx, ch, Item{Prospect: p}) {
				return
			}
		}
	}()
	return ch, nil
}

// discover walks result pages until the cap is reached, a page yields
// nothing, or no next-page control remains. Distinct URLs only, capped at
// opts.Max even mid-page.
func (s *listingSource) discover(ctx context.Context, opts Options) []string {
	seen := make(map[string]struct{})
	var urls []string

	for page := 0; page < s.cfg.maxPages; page++ {
		if page > 0 && opts.Delay > 0 {
			if s.sleep(ctx, opts.Delay) != nil {
				return urls
			}
		}

		searchURL := s.cfg.searchURL(opts.Category, opts.Location, page)
		rendered, err := s.nav.Render(ctx, searchURL, browser.RenderOptions{
			Timeout: s.cfg.searchTimeout,
			Settle:  opts.Delay,
		})
		if err != nil {
			zap.L().Warn("listing: search page failed",
				zap.String("source", s.cfg.name),
				zap.String("url", searchURL),
				zap.Error(err),
			)
			return urls
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered.HTML))
		if err != nil {
			return urls
		}

		pageLinks := s.resultLinks(doc, rendered.URL)
		if len(pageLinks) == 0 {
			zap.L().Debug("listing: page yielded no results",
				zap.String("source", s.cfg.name),
				zap.Int("page", page),
			)
			return urls
		}

		for _, link := range pageLinks {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			urls = append(urls, link)
			if len(urls) >= opts.Max {
				return urls
			}
		}

		if !s.hasNext(doc) {
			return urls
		}
	}
	return urls
}

func (s *listingSource) resultLinks(doc *goquery.Document, baseURL string) []string {
	for _, sel := range s.cfg.resultSelectors {
		var links []string
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			href, ok := el.Attr("href")
			if !ok {
				return
			}
			abs := absoluteURL(baseURL, href)
			if abs == "" {
				return
			}
			if s.cfg.resultFilter != nil && !s.cfg.resultFilter(abs) {
				return
			}
			links = append(links, abs)
		})
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

// absoluteURL resolves href against the page it appeared on and drops
// fragments and anything unparseable.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	h.Fragment = ""
	if h.IsAbs() {
		return h.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}

func (s *listingSource) hasNext(doc *goquery.Document) bool {
	for _, sel := range s.cfg.nextSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}
