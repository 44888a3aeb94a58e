package document

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlParser keeps visible text only. Script and style bodies never belong
// in a retrieval corpus.
type htmlParser struct{}

func (htmlParser) Parse(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		if txt := strings.TrimSpace(sel.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	if len(parts) == 0 {
		if txt := strings.TrimSpace(doc.Text()); txt != "" {
			parts = append(parts, txt)
		}
	}
	return collapseWhitespace(strings.Join(parts, "\n")), nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func init() {
	RegisterParser("html", htmlParser{})
	RegisterParser("htm", htmlParser{})
}
