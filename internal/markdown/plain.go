package markdown

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	htmlparser "golang.org/x/net/html"
)

// PlainTextRenderer renders a markdown AST as plain text: formatting markers
// are dropped, lists keep their bullets, tables collapse to "cell | cell"
// rows. The chat surface displays raw text, so anything else would leak
// asterisks and backticks to the user.
type PlainTextRenderer struct {
	listDepth    int
	orderedIndex []int
}

// NewPlainTextRenderer creates a new PlainTextRenderer
func NewPlainTextRenderer() renderer.NodeRenderer {
	return &PlainTextRenderer{}
}

// RegisterFuncs implements renderer.NodeRenderer.RegisterFuncs
func (r *PlainTextRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	// Block nodes
	reg.Register(ast.KindDocument, r.renderNothing)
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindBlockquote, r.renderNothing)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindHTMLBlock, r.renderHTMLBlock)
	reg.Register(ast.KindList, r.renderList)
	reg.Register(ast.KindListItem, r.renderListItem)
	reg.Register(ast.KindParagraph, r.renderParagraph)
	reg.Register(ast.KindTextBlock, r.renderTextBlock)
	reg.Register(ast.KindThematicBreak, r.renderThematicBreak)

	// Inline nodes
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindCodeSpan, r.renderNothing)
	reg.Register(ast.KindEmphasis, r.renderNothing)
	reg.Register(ast.KindImage, r.renderImage)
	reg.Register(ast.KindLink, r.renderNothing)
	reg.Register(ast.KindRawHTML, r.renderRawHTML)
	reg.Register(ast.KindText, r.renderText)
	reg.Register(ast.KindString, r.renderString)

	// GFM extension nodes
	reg.Register(extast.KindStrikethrough, r.renderNothing)
	reg.Register(extast.KindTable, r.renderNothing)
	reg.Register(extast.KindTableHeader, r.renderTableRow)
	reg.Register(extast.KindTableRow, r.renderTableRow)
	reg.Register(extast.KindTableCell, r.renderTableCell)
}

func (r *PlainTextRenderer) renderNothing(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderHeading(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderParagraph(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		if n.Parent() != nil && n.Parent().Kind() == ast.KindListItem {
			_, _ = w.WriteString("\n")
		} else {
			_, _ = w.WriteString("\n\n")
		}
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderTextBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderCodeBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			_, _ = w.Write(line.Value(source))
		}
		_, _ = w.WriteString("\n")
	}
	return ast.WalkSkipChildren, nil
}

func (r *PlainTextRenderer) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*ast.HTMLBlock)
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(source))
		}
		_, _ = w.WriteString(htmlToText(buf.String()))
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderList(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.List)
	if entering {
		r.listDepth++
		start := 0
		if n.IsOrdered() {
			start = n.Start
			if start == 0 {
				start = 1
			}
		}
		r.orderedIndex = append(r.orderedIndex, start)
	} else {
		r.listDepth--
		r.orderedIndex = r.orderedIndex[:len(r.orderedIndex)-1]
		if r.listDepth == 0 {
			_, _ = w.WriteString("\n")
		}
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderListItem(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		if r.listDepth > 1 {
			_, _ = w.WriteString(strings.Repeat("  ", r.listDepth-1))
		}
		idx := len(r.orderedIndex) - 1
		if r.orderedIndex[idx] > 0 {
			_, _ = w.WriteString(itoa(r.orderedIndex[idx]))
			_, _ = w.WriteString(". ")
			r.orderedIndex[idx]++
		} else {
			_, _ = w.WriteString("• ")
		}
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderThematicBreak(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*ast.AutoLink)
		_, _ = w.Write(n.URL(source))
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	// Alt text is the image's children, walk them as regular text
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*ast.RawHTML)
		var buf bytes.Buffer
		for i := 0; i < n.Segments.Len(); i++ {
			segment := n.Segments.At(i)
			buf.Write(segment.Value(source))
		}
		_, _ = w.WriteString(htmlToText(buf.String()))
	}
	return ast.WalkSkipChildren, nil
}

func (r *PlainTextRenderer) renderText(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Text)
	_, _ = w.Write(n.Segment.Value(source))
	if n.HardLineBreak() || n.SoftLineBreak() {
		// Одиночный перенос строки в исходнике сохраняем как есть
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderString(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*ast.String)
		_, _ = w.Write(n.Value)
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderTableRow(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *PlainTextRenderer) renderTableCell(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering && n.NextSibling() != nil {
		_, _ = w.WriteString(" | ")
	}
	return ast.WalkContinue, nil
}

// htmlToText extracts text content from an HTML fragment. On parse errors
// it falls back to a regex tag strip.
func htmlToText(fragment string) string {
	doc, err := htmlparser.Parse(strings.NewReader(fragment))
	if err != nil {
		return tagRegex.ReplaceAllString(fragment, "")
	}

	var buf bytes.Buffer
	var walk func(*htmlparser.Node)
	walk = func(n *htmlparser.Node) {
		if n.Type == htmlparser.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return buf.String()
}

var tagRegex = regexp.MustCompile(`<[^>]*>`)

func itoa(n int) string {
	var b [8]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

// Plain converts markdown to plain text suitable for the chat surface.
// Ответ модели не должен падать из-за кривой разметки: если рендер
// не удался, текст возвращается как есть.
func Plain(md string) string {
	// Renderer is stateful, build a fresh instance per call
	gm := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRenderer(
			renderer.NewRenderer(
				renderer.WithNodeRenderers(
					util.Prioritized(NewPlainTextRenderer(), 1000),
				),
			),
		),
	)

	var buf bytes.Buffer
	doc := gm.Parser().Parse(text.NewReader([]byte(md)))
	if err := gm.Renderer().Render(&buf, []byte(md), doc); err != nil {
		return strings.TrimSpace(md)
	}
	return NormalizeWhitespace(buf.String())
}

var multiNewline = regexp.MustCompile(`\n{3,}`)
var trailingSpaces = regexp.MustCompile(`[ \t]+\n`)

// NormalizeWhitespace collapses runs of blank lines to a single blank line
// and trims trailing spaces on each line.
func NormalizeWhitespace(s string) string {
	s = trailingSpaces.ReplaceAllString(s, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// sentenceEnders terminate a sentence for truncation purposes.
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// TruncateAtBoundary cuts s to at most max runes, preferring the last
// sentence boundary and falling back to the last whitespace. Text at or
// under the limit passes through untouched.
func TruncateAtBoundary(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	window := runes[:max]

	// Last sentence end in the window
	for i := len(window) - 1; i >= 0; i-- {
		if isSentenceEnd(window[i]) {
			return strings.TrimSpace(string(window[:i+1]))
		}
	}

	// Otherwise last whitespace
	for i := len(window) - 1; i >= 0; i-- {
		if unicode.IsSpace(window[i]) {
			return strings.TrimSpace(string(window[:i])) + "…"
		}
	}

	return strings.TrimSpace(string(window)) + "…"
}
