package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector matches elements that never carry article content.
const boilerplateSelector = "script, style, noscript, template, iframe, object, embed, form, nav, aside"

// Prune removes boilerplate markup and any element whose class or id matches
// one of markers (case-insensitive), returning the body HTML.
func Prune(document string, markers []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", err
	}

	doc.Find(boilerplateSelector).Remove()

	if len(markers) > 0 {
		markerSet := make(map[string]struct{}, len(markers))
		for _, m := range markers {
			markerSet[strings.ToLower(m)] = struct{}{}
		}
		doc.Find("[class], [id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return hasMarker(s, markerSet)
		}).Remove()
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Html()
	}
	return body.Html()
}

func hasMarker(s *goquery.Selection, markers map[string]struct{}) bool {
	if id, ok := s.Attr("id"); ok {
		if _, hit := markers[strings.ToLower(strings.TrimSpace(id))]; hit {
			return true
		}
	}
	if class, ok := s.Attr("class"); ok {
		for _, token := range strings.Fields(strings.ToLower(class)) {
			if _, hit := markers[token]; hit {
				return true
			}
		}
	}
	return false
}
