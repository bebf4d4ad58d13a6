package notify

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders a readable text version of an HTML report: one line per
// block element, table cells separated by " | ", and link targets shown in
// parentheses.
func PlainText(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", err
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" && href != "#" {
			s.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		if s.Next().Length() > 0 {
			s.AppendHtml(" | ")
		}
	})
	doc.Find("h2, h3, p, tr, li, table, ul").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
