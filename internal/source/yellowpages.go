package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sells-group/prospect-cli/internal/extract"
)

// NewYellowPages creates the directory-listing source. Same shape as the
// review-site source, different URL scheme and markup.
func NewYellowPages(nav extract.Navigator, visitor Visitor) Source {
	return newListingSource(listingConfig{
		name:       "yellowpages",
		defaultMax: 50,
		searchURL: func(category, location string, page int) string {
			q := url.Values{}
			q.Set("search_terms", category)
			q.Set("geo_location_terms", location)
			if page > 0 {
				q.Set("page", fmt.Sprintf("%d", page+1))
			}
			return "https://www.yellowpages.com/search?" + q.Encode()
		},
		resultSelectors: []string{
			`.result .business-name`,
			`a.business-name`,
			`.info-section a[href*="/mip/"]`,
		},
		resultFilter: func(href string) bool {
			u, err := url.Parse(href)
			if err != nil {
				return false
			}
			return strings.Contains(u.Path, "/mip/") || strings.Contains(u.Path, "-")
		},
		nextSelectors: []string{
			`a.next.ajax-page`,
			`.pagination a.next`,
		},
	}, nav, visitor)
}
