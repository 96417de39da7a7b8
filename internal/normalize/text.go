package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// CleanName collapses whitespace in a scraped business name and title-cases
// names that arrive fully upper-cased (directory sites shout a lot).
func CleanName(s string) string {
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		return ""
	}
	if s == strings.ToUpper(s) && s != strings.ToLower(s) {
		return titleCaser.String(strings.ToLower(s))
	}
	return s
}
