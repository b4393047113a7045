package prosegen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Render joins the sentence's words with single spaces, capitalizes the first
// letter and appends a period. An empty sentence renders as an empty string.
func (s Sentence) Render() string {
	if len(s) == 0 {
		return ""
	}
	joined := strings.Join(s, " ")
	r, size := utf8.DecodeRuneInString(joined)
	if r == utf8.RuneError && size <= 1 {
		return joined + "."
	}
	return string(unicode.ToUpper(r)) + joined[size:] + "."
}

// Render joins the paragraph's rendered sentences with single spaces,
// skipping empty ones.
func (p Paragraph) Render() string {
	parts := make([]string, 0, len(p))
	for _, sentence := range p {
		if rendered := sentence.Render(); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, " ")
}
