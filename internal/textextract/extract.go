// Package textextract turns markup into plain text for counting and display.
package textextract

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

// maxPasses bounds the fixpoint loop; decoded entities can reveal new markup.
const maxPasses = 16

var (
	wordRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)
	strict = bluemonday.StrictPolicy()
)

// Extract returns the plain text of markup: script and style elements are
// removed with their contents, every other tag becomes a single space,
// entities are decoded, and whitespace is collapsed. Extract(Extract(s)) ==
// Extract(s).
func Extract(markup string) string {
	if markup == "" {
		return ""
	}
	out := markup
	for i := 0; i < maxPasses; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(markup string) string {
	z := xhtml.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return collapse(b.String())
		case xhtml.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			if isRawText(name) {
				skip++
			}
			b.WriteByte(' ')
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			if isRawText(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		default:
			// self-closing tags, comments, and doctypes
			b.WriteByte(' ')
		}
	}
}

func isRawText(name []byte) bool {
	tag := string(name)
	return tag == "script" || tag == "style"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanTitle strips tags from a display title and decodes its entities.
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	stripped := strict.Sanitize(title)
	return collapse(html.UnescapeString(stripped))
}

// WordCount counts word tokens: runs of letters, marks, digits, or underscore.
func WordCount(text string) int {
	return len(wordRe.FindAllStringIndex(text, -1))
}

// CharCount counts the runes of text.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}
