package summarizer

import (
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	phonePattern = regexp.MustCompile(`\b\+?\d[\d\-\s()x]{6,}\b`)
)

// Sanitize strips URLs and phone-like digit runs before prompting; both
// tend to leak verbatim into model output and add nothing to a summary.
func Sanitize(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = phonePattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
