package normalize

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)

// emailBlocklist filters placeholder addresses and image filenames that the
// email regex picks up from markup (e.g. icon@2x.png srcsets).
var emailBlocklist = []string{
	"example.com",
	"example.org",
	"domain.com",
	"email.com",
	"yourdomain",
	"yoursite",
	"sentry.io",
	"wixpress.com",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".svg",
	".webp",
}

// Emails extracts email candidates from free text, dropping known
// false-positive domains and suffixes. Order is first-seen; duplicates are
// removed case-insensitively.
func Emails(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range emailRe.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		if blockedEmail(lower) {
			continue
		}
		out = append(out, lower)
	}
	return out
}

// BestEmail returns the first surviving candidate, or "".
func BestEmail(text string) string {
	if emails := Emails(text); len(emails) > 0 {
		return emails[0]
	}
	return ""
}

func blockedEmail(lower string) bool {
	for _, pattern := range emailBlocklist {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
