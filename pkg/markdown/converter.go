// Package markdown renders model output as Telegram-compatible HTML.
// Telegram supports only a handful of inline tags, so everything
// blackfriday emits beyond that list is rewritten or stripped.
package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	preCodeRe   = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	anyTagRe    = regexp.MustCompile(`</?([a-zA-Z]+)(?:\s[^>]*)?>`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

var telegramTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true,
}

// ToTelegramHTML converts a markdown reply into HTML Telegram will accept.
func ToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(text), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = preCodeRe.ReplaceAllString(html, "<pre>$1</pre>")

	replacer := strings.NewReplacer(
		"<strong>", "<b>", "</strong>", "</b>",
		"<em>", "<i>", "</em>", "</i>",
		"<ul>", "", "</ul>", "",
		"<ol>", "", "</ol>", "",
		"<li>", "• ", "</li>", "\n",
	)
	html = replacer.Replace(html)

	html = anyTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := anyTagRe.FindStringSubmatch(tag)
		if len(m) > 1 && telegramTags[strings.ToLower(m[1])] {
			return tag
		}
		return ""
	})

	html = blankRunRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
