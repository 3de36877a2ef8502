package scan

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultLabelLength is the number of digits on a battery label.
const DefaultLabelLength = 10

// Placeholder replaces non-printable characters in feedback text.
const Placeholder = '·'

// Extractor finds a run of exactly N digits bounded by non-digits or the
// ends of the text.
type Extractor struct {
	length int
	re     *regexp.Regexp
}

// NewExtractor builds an extractor for labels of length digits.
func NewExtractor(length int) *Extractor {
	if length < 1 {
		length = DefaultLabelLength
	}
	return &Extractor{
		length: length,
		re:     regexp.MustCompile(fmt.Sprintf(`(?:^|\D)(\d{%d})(?:\D|$)`, length)),
	}
}

// Extract returns the first conforming digit run in text.
func (x *Extractor) Extract(text string) (string, bool) {
	m := x.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Length returns the digit count the extractor looks for.
func (x *Extractor) Length() int {
	return x.length
}

// Sanitize makes recognized text safe to display as live feedback.
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return Placeholder
	}, text)
}
