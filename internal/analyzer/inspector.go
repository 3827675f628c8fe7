package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// InspectRenderBlocking parses the rendered document and scans the head for
// resources that block first paint: every stylesheet link, and every external
// script without an async or defer attribute. Two passes over the head, so
// results list stylesheets first, each group in document order.
func InspectRenderBlocking(html string) ([]RenderBlockingResource, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, newError(CodeInternal, "markup parse failed", err)
	}

	found := []RenderBlockingResource{}
	head := doc.Find("head")

	head.Find("link").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		// Alternate stylesheets are not applied by default and do not block.
		if !hasRelToken(rel, "stylesheet") || hasRelToken(rel, "alternate") {
			return
		}
		href, _ := s.Attr("href")
		found = append(found, RenderBlockingResource{Type: "css", URL: href, Blocking: "render"})
	})

	head.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if _, async := s.Attr("async"); async {
			return
		}
		if _, deferred := s.Attr("defer"); deferred {
			return
		}
		src, _ := s.Attr("src")
		found = append(found, RenderBlockingResource{Type: "js", URL: src, Blocking: "render"})
	})

	return found, nil
}

// hasRelToken reports whether the space-separated rel attribute contains the
// token, compared case-insensitively as HTML requires.
func hasRelToken(rel, token string) bool {
	for _, t := range strings.Fields(rel) {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}
