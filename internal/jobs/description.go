package jobs

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

// SnippetLen is the rune budget of a result-card description.
const SnippetLen = 200

// descriptionNoise is removed before any rendering.
var descriptionNoise = []string{"script", "style", "noscript", "iframe", "svg", "form"}

// DescriptionMarkdown renders an employer-supplied HTML description as markdown.
// Falls back to plain text if conversion fails.
func DescriptionMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	cleaned := stripNoise(html)
	md, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		return DescriptionText(html)
	}
	return strings.TrimSpace(md)
}

// DescriptionText extracts the visible text of an HTML description.
func DescriptionText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return engine.CleanHTML(html)
	}
	doc.Find(strings.Join(descriptionNoise, ", ")).Remove()
	// Block elements would otherwise glue adjacent words together.
	doc.Find("p, li, div, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return engine.CollapseSpace(doc.Text())
}

// Snippet returns a short plain-text preview of a description.
func Snippet(html string) string {
	return engine.TruncateRunes(DescriptionText(html), SnippetLen, "...")
}

func stripNoise(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find(strings.Join(descriptionNoise, ", ")).Remove()
	out, err := doc.Find("body").Html()
	if err != nil {
		return html
	}
	return out
}
