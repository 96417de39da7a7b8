package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sells-group/prospect-cli/internal/extract"
)

// yelpPageSize is how many results Yelp shows per page; the start offset
// advances by it.
const yelpPageSize = 10

// NewYelp creates the review-site source. Discovery renders paginated
// search pages and every business link goes through the extraction engine.
func NewYelp(nav extract.Navigator, visitor Visitor) Source {
	return newListingSource(listingConfig{
		name:       "yelp",
		defaultMax: 40,
		searchURL: func(category, location string, page int) string {
			q := url.Values{}
			q.Set("find_desc", category)
			q.Set("find_loc", location)
			if page > 0 {
				q.Set("start", fmt.Sprintf("%d", page*yelpPageSize))
			}
			return "https://www.yelp.com/search?" + q.Encode()
		},
		resultSelectors: []string{
			`a[href^="/biz/"][name]`,
			`h3 a[href^="/biz/"]`,
			`a[href^="/biz/"]`,
		},
		resultFilter: func(href string) bool {
			u, err := url.Parse(href)
			if err != nil {
				return false
			}
			// Skip ad redirects and non-business links.
			return strings.HasPrefix(u.Path, "/biz/") && u.Query().Get("hrid") == ""
		},
		nextSelectors: []string{
			`a[aria-label="Next"]`,
			`.next-link`,
			`a.u-decoration-none.next`,
		},
	}, nav, visitor)
}
