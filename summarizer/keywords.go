package summarizer

import (
	"regexp"
	"sort"
)

const maxKeywords = 10

var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

var stopWords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "With": {}, "From": {}, "Have": {},
	"Will": {}, "Are": {}, "For": {}, "And": {}, "But": {}, "Not": {},
	"You": {}, "All": {}, "Any": {}, "Can": {}, "Had": {}, "Her": {},
	"Was": {}, "One": {}, "Our": {}, "Out": {}, "Day": {}, "Get": {},
	"Has": {}, "Him": {}, "His": {}, "How": {}, "Man": {}, "New": {},
	"Now": {}, "Old": {}, "See": {}, "Two": {}, "Way": {}, "Who": {},
	"Boy": {}, "Did": {}, "Its": {}, "Let": {}, "Put": {}, "Say": {},
	"She": {}, "Too": {}, "Use": {},
}

// ExtractKeywords pulls capitalized words out of the text as candidate
// keywords, drops common stop words and anything under four characters, and
// returns up to maxKeywords unique results. Output is sorted so repeated
// runs over the same text agree.
func ExtractKeywords(text string) []string {
	seen := make(map[string]struct{})
	for _, word := range capitalizedWord.FindAllString(text, -1) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		seen[word] = struct{}{}
	}

	keywords := make([]string, 0, len(seen))
	for word := range seen {
		keywords = append(keywords, word)
	}
	sort.Strings(keywords)

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
