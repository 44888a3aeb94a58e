package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownParser strips markdown syntax by walking the goldmark AST and
// collecting text and code segments in document order.
type markdownParser struct{}

func (markdownParser) Parse(raw []byte) (string, error) {
	md := goldmark.New()
	reader := text.NewReader(raw)
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			var sb strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				sb.Write(line.Value(reader.Source()))
			}
			if code := strings.TrimSpace(sb.String()); code != "" {
				parts = append(parts, code)
			}
		default:
			if txt := extractNodeText(node, reader.Source()); txt != "" {
				parts = append(parts, txt)
			}
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractNodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).SoftLineBreak() || node.(*ast.Text).HardLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func init() {
	RegisterParser("md", markdownParser{})
	RegisterParser("markdown", markdownParser{})
}
