package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectorChain is an ordered list of CSS selectors for one logical field.
// Selectors run most- to least-specific; the first non-empty value wins.
// The population of target sites uses wildly inconsistent markup, so the
// chains stay declarative instead of branching per site.
type SelectorChain struct {
	Field     string
	Selectors []string
	Attr      string // extract this attribute instead of text when set
}

// Extract applies the chain to a document and returns the first hit.
func (c SelectorChain) Extract(doc *goquery.Document) string {
	for _, sel := range c.Selectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		var val string
		if c.Attr != "" {
			val, _ = found.Attr(c.Attr)
		} else {
			val = found.Text()
		}
		val = strings.TrimSpace(val)
		if val != "" {
			return val
		}
	}
	return ""
}

// Fields holds the raw values pulled from one rendered page.
type Fields struct {
	Name    string
	Phone   string
	Website string
	Address string
	City    string
	State   string
	Zip     string
}

// defaultChains cover schema.org microdata first, then the class names the
// big directory sites actually use, then bare structural fallbacks.
var defaultChains = map[string]SelectorChain{
	"name": {Field: "name", Selectors: []string{
		`[itemprop="name"]`,
		`h1.business-name`,
		`.biz-page-title`,
		`h1`,
	}},
	"phone": {Field: "phone", Selectors: []string{
		`[itemprop="telephone"]`,
		`.phone.dockable`,
		`.biz-phone`,
		`.phones.phone.primary`,
		`.phone`,
	}},
	"website": {Field: "website", Attr: "href", Selectors: []string{
		`a[itemprop="url"]`,
		`a.website-link`,
		`.biz-website a`,
		`a[href*="biz_redir"]`,
	}},
	"address": {Field: "address", Selectors: []string{
		`[itemprop="address"]`,
		`address`,
		`.street-address`,
		`.address`,
	}},
	"city": {Field: "city", Selectors: []string{
		`[itemprop="addressLocality"]`,
		`.locality`,
		`.city`,
	}},
	"state": {Field: "state", Selectors: []string{
		`[itemprop="addressRegion"]`,
		`.region`,
		`.state`,
	}},
	"zip": {Field: "zip", Selectors: []string{
		`[itemprop="postalCode"]`,
		`.postal-code`,
		`.zip`,
	}},
}

// extractFields applies every default chain plus the structural fallbacks
// (tel: links for phones) to a parsed page.
func extractFields(doc *goquery.Document) Fields {
	f := Fields{
		Name:    defaultChains["name"].Extract(doc),
		Phone:   defaultChains["phone"].Extract(doc),
		Website: defaultChains["website"].Extract(doc),
		Address: defaultChains["address"].Extract(doc),
		City:    defaultChains["city"].Extract(doc),
		State:   defaultChains["state"].Extract(doc),
		Zip:     defaultChains["zip"].Extract(doc),
	}

	if f.Phone == "" {
		if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
			f.Phone = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		}
	}
	return f
}

// mailtoAddresses collects addresses from mailto: links, most reliable first.
func mailtoAddresses(doc *goquery.Document) []string {
	var out []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	})
	return out
}

// pageText returns the rendered text with script/style noise removed and
// whitespace collapsed, suitable for regex candidate extraction.
func pageText(doc *goquery.Document) string {
	clone := doc.Clone()
	clone.Find("script, style, noscript, iframe, svg").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

// resolveURL absolutizes href against the page it was found on.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if h.IsAbs() {
		return h.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
