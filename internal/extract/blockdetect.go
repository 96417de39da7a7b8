package extract

import "strings"

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone         BlockType = ""
	BlockChallengeURL BlockType = "challenge_url"
	BlockCaptcha      BlockType = "captcha"
	BlockDenied       BlockType = "denied"
)

// challengeURLMarkers appear in the address bar when a host redirects the
// session to a challenge page instead of the content.
var challengeURLMarkers = []string{
	"/sorry/",
	"captcha",
	"/challenge",
	"cdn-cgi/challenge-platform",
}

// blockPhrases are rendered-content markers for challenge/denial pages.
var blockPhrases = []string{
	"verify you are human",
	"are you a robot",
	"unusual traffic",
	"access denied",
	"attention required",
	"cf-browser-verification",
	"checking your browser",
	"enable javascript and cookies to continue",
	"g-recaptcha",
	"h-captcha",
	"press & hold",
}

// challengeFrames are iframe sources used by hosted challenge widgets.
var challengeFrames = []string{
	"iframe src=\"https://www.google.com/recaptcha",
	"iframe src=\"https://challenges.cloudflare.com",
	"iframe src=\"https://newassets.hcaptcha.com",
}

// Blocked classifies a rendered page as a challenge/block page rather than
// real content. pageURL is the post-navigation location, which catches
// redirect-based challenges even when the body looks ordinary.
func Blocked(pageURL, html string) (bool, BlockType) {
	lowerURL := strings.ToLower(pageURL)
	for _, marker := range challengeURLMarkers {
		if strings.Contains(lowerURL, marker) {
			return true, BlockChallengeURL
		}
	}

	lower := strings.ToLower(html)
	for _, frame := range challengeFrames {
		if strings.Contains(lower, frame) {
			return true, BlockCaptcha
		}
	}
	for _, phrase := range blockPhrases {
		if strings.Contains(lower, phrase) {
			if phrase == "access denied" {
				return true, BlockDenied
			}
			return true, BlockCaptcha
		}
	}

	return false, BlockNone
}
