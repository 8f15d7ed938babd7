// Package browser recognises embedded in-app browsers that cannot grant
// microphone access, so the challenge can refuse them before capture
// starts.
package browser

import (
	"errors"
	"regexp"
)

// ErrUnsupportedEnvironment is returned for user agents that cannot capture
// audio. Its message is shown to the player as-is.
var ErrUnsupportedEnvironment = errors.New("microphone access is blocked in this in-app browser; open this page in Chrome or Safari to take the challenge")

// rule matches one family of in-app browser.
type rule struct {
	name string
	re   *regexp.Regexp
}

var rules = []rule{
	{"instagram", regexp.MustCompile(`(?i)Instagram`)},
	{"facebook", regexp.MustCompile(`(?i)FBAN|FBAV`)},
	{"linkedin", regexp.MustCompile(`(?i)LinkedIn`)},
	// The LINE app identifies itself as "Line/<version>".
	{"line", regexp.MustCompile(`\bLine/`)},
}

// Detect returns the in-app browser family of userAgent, or "" for a
// regular browser.
func Detect(userAgent string) string {
	for _, r := range rules {
		if r.re.MatchString(userAgent) {
			return r.name
		}
	}
	return ""
}

// IsInAppBrowser reports whether userAgent belongs to an in-app browser.
func IsInAppBrowser(userAgent string) bool {
	return Detect(userAgent) != ""
}

// CheckEnvironment returns [ErrUnsupportedEnvironment] for in-app browsers.
func CheckEnvironment(userAgent string) error {
	if IsInAppBrowser(userAgent) {
		return ErrUnsupportedEnvironment
	}
	return nil
}
