// Package markdown renders a Markdown-AST (astree.Node) into CommonMark+GFM
// text, following the fixed output rules in spec §4.5: no configurability
// beyond the bullet and emphasis markers.
//
// Modifications:
//
//	The node-kind dispatch follows the shape of dpotapov/go-pages's
//	chtml/render.go (a switch over node kind, one render function per case,
//	errors wrapped with the offending node's identity) adapted from
//	rendering a CHTML component tree to HTML into rendering a Markdown-AST
//	to CommonMark text.
package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/resoltico/htmlconv/astree"
)

// RenderError is raised when the serializer encounters a node variant it
// does not know how to render (spec §7).
type RenderError struct {
	NodeKind astree.Kind
	Path     string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("markdown: cannot render %s at %s", e.NodeKind, e.Path)
}

// RenderOptions configures the serializer's bullet marker (spec §4.5). The
// emphasis markers are fixed ('*' and '**') and have no option here.
type RenderOptions struct {
	// BulletMarker is the unordered-list item marker: '-', '*', or '+'.
	// Defaults to '-'.
	BulletMarker byte
}

func (o RenderOptions) bullet() string {
	switch o.BulletMarker {
	case '*', '+':
		return string(o.BulletMarker)
	default:
		return "-"
	}
}

// Render serializes root (a Document node) to a CommonMark+GFM string.
func Render(root *astree.Node, opts RenderOptions) (string, error) {
	r := &renderer{opts: opts}
	if err := r.renderBlockChildren(root, "root"); err != nil {
		return "", err
	}
	return strings.TrimRight(r.joinBlocks(), "\n") + "\n", nil
}

type renderer struct {
	opts   RenderOptions
	blocks []string
}

func (r *renderer) joinBlocks() string {
	return strings.Join(r.blocks, "\n\n")
}

// renderBlockChildren renders each of n's children as an independent block,
// appended in order (spec §4.5: "Block separation uses a single blank
// line.").
func (r *renderer) renderBlockChildren(n *astree.Node, path string) error {
	for i, c := range n.Children {
		childPath := fmt.Sprintf("%s/%s[%d]", path, c.Kind, i)
		text, err := r.renderBlock(c, childPath)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		r.blocks = append(r.blocks, applyWrap(c, text))
	}
	return nil
}

func applyWrap(n *astree.Node, text string) string {
	tagVal, ok := n.MetaGet("wrapTag")
	if !ok {
		return text
	}
	tag, _ := tagVal.(string)
	attrs, _ := n.Meta["wrapAttrs"].([]string)
	open := "<" + strings.ToLower(tag)
	for _, a := range attrs {
		open += " " + a
	}
	open += ">"
	close := "</" + strings.ToLower(tag) + ">"
	return open + "\n\n" + text + "\n\n" + close
}

func (r *renderer) renderBlock(n *astree.Node, path string) (string, error) {
	switch n.Kind {
	case astree.KindHeading:
		return r.renderHeading(n, path)
	case astree.KindParagraph:
		inline, err := r.renderInlineChildren(n, path)
		if err != nil {
			return "", err
		}
		return inline, nil
	case astree.KindBlockquote:
		return r.renderBlockquote(n, path)
	case astree.KindList:
		return r.renderList(n, path, 0)
	case astree.KindCodeBlock:
		return r.renderCodeBlock(n), nil
	case astree.KindThematicBreak:
		return "---", nil
	case astree.KindTable:
		return r.renderTable(n, path)
	case astree.KindHTML:
		return n.HTMLValue, nil
	case astree.KindFootnoteDefinition:
		return r.renderFootnoteDefinition(n, path)
	default:
		if n.Kind.IsInline() {
			// An inline node surfacing at block position (e.g. a top-level
			// bare Text/Link produced by a transparent div-walk) renders as
			// its own paragraph.
			return r.renderInline(n, path)
		}
		return "", &RenderError{NodeKind: n.Kind, Path: path}
	}
}

func (r *renderer) renderHeading(n *astree.Node, path string) (string, error) {
	level := n.HeadingLevel
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	inline, err := r.renderInlineChildren(n, path)
	if err != nil {
		return "", err
	}
	line := strings.Repeat("#", level) + " " + inline
	if id, ok := n.MetaGet("id"); ok {
		line += fmt.Sprintf(" {#%v}", id)
	}
	return line, nil
}

func (r *renderer) renderBlockquote(n *astree.Node, path string) (string, error) {
	inner := &renderer{opts: r.opts}
	if err := inner.renderBlockChildren(n, path); err != nil {
		return "", err
	}
	body := inner.joinBlocks()
	var out strings.Builder
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		if line == "" {
			out.WriteString(">")
		} else {
			out.WriteString("> ")
			out.WriteString(line)
		}
	}
	return out.String(), nil
}

func (r *renderer) renderList(n *astree.Node, path string, depth int) (string, error) {
	var lines []string
	start := 1
	if n.ListStart != nil {
		start = *n.ListStart
	}
	indent := strings.Repeat("  ", depth)
	for i, item := range n.Children {
		marker := r.opts.bullet() + " "
		if n.ListOrdered {
			marker = strconv.Itoa(start+i) + ". "
		}
		continuationPad := indent + strings.Repeat(" ", len(marker))
		itemText, err := r.renderListItem(item, path, depth, continuationPad)
		if err != nil {
			return "", err
		}
		lines = append(lines, indent+marker+itemText)
	}
	return strings.Join(lines, "\n"), nil
}

// prefixContinuation indents every line after the first by pad, so that a
// block's own wrapped lines align under the marker that precedes its first
// line.
func prefixContinuation(text, pad string) string {
	parts := strings.Split(text, "\n")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = pad + parts[i]
		}
	}
	return strings.Join(parts, "\n")
}

// padAllLines indents every line of text by pad, including the first —
// used for list-item blocks that follow the item's first block and so have
// no marker of their own to align under.
func padAllLines(text, pad string) string {
	parts := strings.Split(text, "\n")
	for i := range parts {
		if parts[i] != "" {
			parts[i] = pad + parts[i]
		}
	}
	return strings.Join(parts, "\n")
}

func (r *renderer) renderListItem(n *astree.Node, path string, depth int, continuationPad string) (string, error) {
	var prefix string
	if n.ItemChecked != nil {
		if *n.ItemChecked {
			prefix = "[x] "
		} else {
			prefix = "[ ] "
		}
	}
	var blocks []string
	for i, c := range n.Children {
		childPath := fmt.Sprintf("%s/ListItem[%d]", path, i)
		var text string
		var err error
		if c.Kind == astree.KindList {
			// A nested list's own renderList call already bakes in its
			// absolute depth-based indent, so it must not be padded again.
			text, err = r.renderList(c, childPath, depth+1)
		} else {
			text, err = r.renderBlock(c, childPath)
			if err == nil {
				if i == 0 {
					text = prefixContinuation(text, continuationPad)
				} else {
					text = padAllLines(text, continuationPad)
				}
			}
		}
		if err != nil {
			return "", err
		}
		if text != "" {
			blocks = append(blocks, text)
		}
	}
	body := strings.Join(blocks, "\n\n")
	return prefix + body, nil
}

func (r *renderer) renderCodeBlock(n *astree.Node) string {
	lang := ""
	if n.CodeLanguage != nil {
		lang = *n.CodeLanguage
	}
	fence := "```"
	for strings.Contains(n.CodeValue, fence) {
		fence += "`"
	}
	return fence + lang + "\n" + n.CodeValue + "\n" + fence
}

func (r *renderer) renderTable(n *astree.Node, path string) (string, error) {
	var rows [][]string
	for _, row := range n.Children {
		var cells []string
		for _, cell := range row.Children {
			text, err := r.renderInlineChildren(cell, path)
			if err != nil {
				return "", err
			}
			cells = append(cells, strings.ReplaceAll(text, "|", "\\|"))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return "", nil
	}
	var lines []string
	lines = append(lines, "| "+strings.Join(rows[0], " | ")+" |")
	lines = append(lines, "|"+strings.Join(separatorCells(n.TableAlign, len(rows[0])), "|")+"|")
	for _, row := range rows[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n"), nil
}

func separatorCells(align []astree.Align, count int) []string {
	out := make([]string, count)
	for i := range out {
		a := astree.AlignNone
		if i < len(align) {
			a = align[i]
		}
		switch a {
		case astree.AlignLeft:
			out[i] = " :--- "
		case astree.AlignRight:
			out[i] = " ---: "
		case astree.AlignCenter:
			out[i] = " :---: "
		default:
			out[i] = " --- "
		}
	}
	return out
}

func (r *renderer) renderFootnoteDefinition(n *astree.Node, path string) (string, error) {
	inner := &renderer{opts: r.opts}
	if err := inner.renderBlockChildren(n, path); err != nil {
		return "", err
	}
	body := prefixContinuation(inner.joinBlocks(), "    ")
	return fmt.Sprintf("[^%s]: %s", n.FootnoteIdentifier, body), nil
}

func (r *renderer) renderInlineChildren(n *astree.Node, path string) (string, error) {
	var sb strings.Builder
	for i, c := range n.Children {
		text, err := r.renderInline(c, fmt.Sprintf("%s/%s[%d]", path, c.Kind, i))
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (r *renderer) renderInline(n *astree.Node, path string) (string, error) {
	switch n.Kind {
	case astree.KindText:
		return n.TextValue, nil
	case astree.KindEmphasis:
		inner, err := r.renderInlineChildren(n, path)
		if err != nil {
			return "", err
		}
		return "*" + inner + "*", nil
	case astree.KindStrong:
		inner, err := r.renderInlineChildren(n, path)
		if err != nil {
			return "", err
		}
		return "**" + inner + "**", nil
	case astree.KindStrikethrough:
		inner, err := r.renderInlineChildren(n, path)
		if err != nil {
			return "", err
		}
		return "~~" + inner + "~~", nil
	case astree.KindInlineCode:
		return renderInlineCode(n.CodeValue), nil
	case astree.KindBreak:
		if n.BreakHard {
			return "  \n", nil
		}
		return "\n", nil
	case astree.KindLink:
		inner, err := r.renderInlineChildren(n, path)
		if err != nil {
			return "", err
		}
		return renderLinkLike("[", inner, n.LinkURL, n.LinkTitle), nil
	case astree.KindImage:
		return renderLinkLike("![", n.ImageAlt, n.LinkURL, n.LinkTitle), nil
	case astree.KindFootnoteReference:
		return fmt.Sprintf("[^%s]", n.FootnoteIdentifier), nil
	case astree.KindHTML:
		return n.HTMLValue, nil
	default:
		return "", &RenderError{NodeKind: n.Kind, Path: path}
	}
}

// renderInlineCode backtick-wraps value, doubling (tripling, ...) the fence
// when the value itself contains a run of backticks (spec §4.5).
func renderInlineCode(value string) string {
	fence := "`"
	for strings.Contains(value, fence) {
		fence += "`"
	}
	pad := ""
	if strings.HasPrefix(value, "`") || strings.HasSuffix(value, "`") {
		pad = " "
	}
	return fence + pad + value + pad + fence
}

func renderLinkLike(openMarker, text, url string, title *string) string {
	suffix := ""
	if title != nil && *title != "" {
		suffix = fmt.Sprintf(` "%s"`, *title)
	}
	return openMarker + text + "](" + url + suffix + ")"
}
