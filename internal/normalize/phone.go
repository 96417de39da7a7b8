// Package normalize converts raw scraped contact data into canonical forms:
// E.164 phone numbers, deduplicated email candidates, and split US addresses.
// Everything here is pure; no network or browser dependencies.
package normalize

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/rotisserie/eris"
)

// PhoneResult is the outcome of normalizing one raw phone string.
type PhoneResult struct {
	Valid  bool
	E164   string // empty unless Valid
	Region string // ISO region of the parsed number, e.g. "US"
	Err    error
}

var (
	extensionRe  = regexp.MustCompile(`(?i)[\s,]*(?:ext\.?|extension|x)\s*\d+\s*$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// Phone parses a raw phone string against defaultRegion and returns its E.164
// form. A number is valid only if it parses and passes the region's validity
// check, not merely "possible". Idempotent: feeding a returned E164 value back
// in yields the same value.
func Phone(raw, defaultRegion string) PhoneResult {
	if defaultRegion == "" {
		defaultRegion = "US"
	}

	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	cleaned = extensionRe.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return PhoneResult{Err: eris.New("no phone")}
	}

	num, err := phonenumbers.Parse(cleaned, defaultRegion)
	if err != nil {
		// Bare 10-digit US numbers sometimes fail to parse when wrapped in
		// unusual punctuation; retry with an explicit +1.
		digits := nonDigitRe.ReplaceAllString(cleaned, "")
		if defaultRegion == "US" && len(digits) == 10 {
			num, err = phonenumbers.Parse("+1"+digits, defaultRegion)
		}
		if err != nil {
			return PhoneResult{Err: eris.Wrap(err, "normalize: parse phone")}
		}
	}

	region := phonenumbers.GetRegionCodeForNumber(num)
	if !phonenumbers.IsValidNumberForRegion(num, region) {
		return PhoneResult{Region: region, Err: eris.Errorf("normalize: invalid number for region %s", region)}
	}

	return PhoneResult{
		Valid:  true,
		E164:   phonenumbers.Format(num, phonenumbers.E164),
		Region: region,
	}
}

// phonePatterns are syntactic candidate shapes only; Phone validates.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+?1[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
	regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
	regexp.MustCompile(`\+\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{2,4}[-.\s]?\d{2,4}[-.\s]?\d{0,4}`),
}

// PhoneCandidates extracts phone-shaped substrings from free text,
// deduplicated in first-seen order. No validation is applied.
func PhoneCandidates(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, re := range phonePatterns {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
