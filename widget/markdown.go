package widget

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown renders markdown source to ANSI-styled lines using goldmark for
// parsing and lipgloss for styling. Paragraphs and list items word-wrap to
// the render width; code blocks keep their layout.
type Markdown struct {
	Source string
	Theme  Theme
}

// Render implements Widget.
func (m Markdown) Render(width int) []string {
	if m.Source == "" {
		return nil
	}
	if width <= 0 {
		width = 80
	}
	r := mdRenderer{
		bold:    lipgloss.NewStyle().Bold(true),
		italic:  lipgloss.NewStyle().Italic(true),
		heading: lipgloss.NewStyle().Foreground(ansiColor(m.Theme.Accent)).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(ansiColor(m.Theme.Muted)).Faint(true),
		link:    lipgloss.NewStyle().Underline(true),
	}
	source := []byte(m.Source)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c, source, width, &buf)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

type mdRenderer struct {
	bold    lipgloss.Style
	italic  lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
}

func (r mdRenderer) block(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.inline(n, source)))
		r.blockGap(n, buf)

	case *ast.Heading:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.heading.Render(r.inline(n, source))))
		r.blockGap(n, buf)

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(r.muted.Render(lang) + "\n")
		}
		r.codeLines(n, source, buf)
		r.siblingGap(n, buf)

	case *ast.CodeBlock:
		r.codeLines(n, source, buf)
		r.siblingGap(n, buf)

	case *ast.List:
		r.list(n, source, width, buf, 0)
		r.siblingGap(n, buf)

	case *ast.ThematicBreak:
		buf.WriteString(r.muted.Render(strings.Repeat("─", min(width, 24))))
		r.blockGap(n, buf)

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c, source, width, buf)
		}
	}
}

// blockGap ends a block's line and inserts a blank line unless it is the
// last of its siblings.
func (r mdRenderer) blockGap(n ast.Node, buf *bytes.Buffer) {
	buf.WriteString("\n")
	r.siblingGap(n, buf)
}

// siblingGap separates a block whose content already ends in a newline from
// the block that follows it.
func (r mdRenderer) siblingGap(n ast.Node, buf *bytes.Buffer) {
	if n.NextSibling() != nil {
		buf.WriteString("\n")
	}
}

func (r mdRenderer) codeLines(n ast.Node, source []byte, buf *bytes.Buffer) {
	gutter := r.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		content := strings.TrimRight(string(seg.Value(source)), "\n")
		buf.WriteString(gutter + content + "\n")
	}
}

func (r mdRenderer) list(node *ast.List, source []byte, width int, buf *bytes.Buffer, depth int) {
	num := 0
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if node.IsOrdered() {
			num++
			marker = fmt.Sprintf("%d. ", node.Start+num-1)
		}
		prefix := strings.Repeat("  ", depth) + marker

		var itemBuf bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				itemBuf.WriteString(r.inline(in, source))
			case *ast.List:
				if itemBuf.Len() > 0 {
					r.listItem(buf, prefix, itemBuf.String(), width)
					itemBuf.Reset()
					prefix = strings.Repeat(" ", len(prefix))
				}
				r.list(in, source, width, buf, depth+1)
			default:
				r.block(ic, source, width, &itemBuf)
			}
		}
		if itemBuf.Len() > 0 {
			r.listItem(buf, prefix, itemBuf.String(), width)
		}
	}
}

// listItem writes one item with continuation-line indentation.
func (r mdRenderer) listItem(buf *bytes.Buffer, prefix, content string, width int) {
	itemWidth := width - len(prefix)
	if itemWidth < 10 {
		itemWidth = 10
	}
	wrapped := lipgloss.NewStyle().Width(itemWidth).Render(content)
	continuation := strings.Repeat(" ", len(prefix))
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
		} else {
			buf.WriteString(continuation + line + "\n")
		}
	}
}

// inline collects the styled inline text of a node's children.
func (r mdRenderer) inline(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.inlineNode(c, source, &buf)
	}
	return buf.String()
}

func (r mdRenderer) inlineNode(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() {
			buf.WriteByte(' ')
		}
		if n.HardLineBreak() {
			buf.WriteByte('\n')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		inner := r.inline(n, source)
		if n.Level == 1 {
			buf.WriteString(r.italic.Render(inner))
		} else {
			buf.WriteString(r.bold.Render(inner))
		}

	case *ast.CodeSpan:
		buf.WriteString(r.bold.Render(r.inline(n, source)))

	case *ast.Link:
		buf.WriteString(r.link.Render(r.inline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.AutoLink:
		buf.WriteString(r.link.Render(string(n.URL(source))))

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.inlineNode(c, source, buf)
		}
	}
}
