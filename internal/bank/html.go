package bank

import (
	"strings"

	"golang.org/x/net/html"
)

// textNodes returns every trimmed non-empty text node in the document, in
// order. Tokenizer errors end the walk with whatever was collected.
func textNodes(body string) []string {
	z := html.NewTokenizer(strings.NewReader(body))
	var out []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.TextToken:
			if s := strings.TrimSpace(string(z.Text())); s != "" {
				out = append(out, s)
			}
		}
	}
}

// elementText returns trimmed non-empty text nodes enclosed by tag.
func elementText(body, tag string) []string {
	z := html.NewTokenizer(strings.NewReader(body))
	depth := 0
	var out []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == tag {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == tag && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				if s := strings.TrimSpace(string(z.Text())); s != "" {
					out = append(out, s)
				}
			}
		}
	}
}
