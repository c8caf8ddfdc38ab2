package content

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// IsHTML reports whether a content type denotes an HTML document.
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}

// PlainText returns the text of a fetched item. HTML bodies are reduced to
// their trimmed text nodes joined by newlines; other content is returned as-is
// when it is valid UTF-8.
func PlainText(body []byte, contentType, locator string) string {
	if !IsHTML(contentType) {
		if utf8.Valid(body) {
			return strings.TrimRight(string(body), "\n")
		}
		return ""
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if text := nodeText(findBody(doc)); text != "" {
		return text
	}
	return readabilityText(body, locator)
}

// readabilityText extracts the main article when the body walk finds nothing,
// e.g. for pages that render their content from a template element.
func readabilityText(body []byte, locator string) string {
	pageURL, err := url.Parse(locator)
	if err != nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil || article.Node == nil {
		return ""
	}
	return nodeText(article.Node)
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	return body
}

// nodeText walks n collecting non-blank text nodes outside script and style.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}

	var chunks []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		if node.Type == html.TextNode {
			if chunk := strings.TrimSpace(node.Data); chunk != "" {
				chunks = append(chunks, chunk)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(chunks, "\n")
}
