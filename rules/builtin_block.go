package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/resoltico/htmlconv/astree"
	"github.com/resoltico/htmlconv/dom"
)

// RegisterDefaults registers every built-in block and inline rule described
// in spec §4.3, plus the default pass-through rule.
func RegisterDefaults(r *Registry) {
	registerHeading(r)
	registerParagraphLike(r)
	registerList(r)
	registerListItem(r)
	registerCodeBlock(r)
	registerBlockquote(r)
	registerThematicBreak(r)
	registerDiv(r)
	registerTable(r)
	registerImage(r)
	registerLink(r)
	registerEmphasis(r)
	registerStrong(r)
	registerStrikethrough(r)
	registerInlineCode(r)
	registerBreak(r)
	r.RegisterDefault(func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		return ctx.RenderChildrenAsAst(el), nil
	})
}

func wrapParagraphIfInline(nodes []*astree.Node) []*astree.Node {
	hasBlock := false
	for _, n := range nodes {
		if !n.Kind.IsInline() {
			hasBlock = true
			break
		}
	}
	if hasBlock || len(nodes) == 0 {
		return nodes
	}
	p := astree.NewParagraph()
	for _, n := range nodes {
		p.AppendChild(n)
	}
	return []*astree.Node{p}
}

// registerHeading implements the H pseudo-tag (H1..H6 via synonym
// expansion). Level is parsed from the trailing digit; out-of-range levels
// drop the element (return nil, nil).
func registerHeading(r *Registry) {
	r.Register(Rule{TagName: "H", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		if len(el.TagName) != 2 || el.TagName[0] != 'H' {
			return nil, nil
		}
		level, err := strconv.Atoi(el.TagName[1:])
		if err != nil || level < 1 || level > 6 {
			return nil, nil
		}
		h := astree.NewHeading(level)
		for _, n := range ctx.RenderChildrenAsAst(el) {
			h.AppendChild(n)
		}
		return []*astree.Node{h}, nil
	}})
}

func registerParagraphLike(r *Registry) {
	r.Register(Rule{TagName: "P", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		p := astree.NewParagraph()
		for _, n := range ctx.RenderChildrenAsAst(el) {
			p.AppendChild(n)
		}
		return []*astree.Node{p}, nil
	}})
}

func registerBlockquote(r *Registry) {
	r.Register(Rule{TagName: "BLOCKQUOTE", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		bq := astree.NewBlockquote()
		for _, n := range ctx.RenderChildrenAsAst(el) {
			bq.AppendChild(n)
		}
		return []*astree.Node{bq}, nil
	}})
}

func registerThematicBreak(r *Registry) {
	r.Register(Rule{TagName: "HR", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		return []*astree.Node{astree.NewThematicBreak()}, nil
	}})
}

// tightBreakingTags are the tags whose AST-equivalent variants are
// considered "block" for the UL/OL "tight" determination (spec §4.3).
var tightBreakingTags = map[string]bool{
	"P": true, "BLOCKQUOTE": true, "PRE": true, "UL": true, "OL": true, "DIV": true,
}

func registerList(r *Registry) {
	emit := func(ordered bool) EmitFunc {
		return func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
			var start *int
			if ordered {
				if v, ok := el.GetAttribute("start"); ok && regexp.MustCompile(`^\d+$`).MatchString(v) {
					n, _ := strconv.Atoi(v)
					start = &n
				}
			}
			list := astree.NewList(ordered, start)
			list.ListTight = true
			for _, kid := range el.Children() {
				if kid.Kind != dom.ElementKind || kid.TagName != "LI" {
					continue
				}
				if countBlockChildren(kid) > 1 {
					list.ListTight = false
				}
				for _, n := range walkNode(kid, ctx.withAncestor(el.TagName)) {
					list.AppendChild(n)
				}
			}
			return []*astree.Node{list}, nil
		}
	}
	r.Register(Rule{TagName: "UL", Emit: emit(false)})
	r.Register(Rule{TagName: "OL", Emit: emit(true)})
}

func countBlockChildren(li *dom.Element) int {
	n := 0
	for _, c := range li.Children() {
		if c.Kind == dom.ElementKind && tightBreakingTags[c.TagName] {
			n++
		}
	}
	return n
}

var checkboxInputRe = regexp.MustCompile(`(?i)^checkbox$`)

// registerListItem implements LI, including the task-checkbox and
// not-in-a-list fallback behaviors from spec §4.3.
func registerListItem(r *Registry) {
	r.Register(Rule{TagName: "LI", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		if !ctx.IsInside("UL") && !ctx.IsInside("OL") {
			p := astree.NewParagraph()
			for _, n := range ctx.RenderChildrenAsAst(el) {
				p.AppendChild(n)
			}
			return []*astree.Node{p}, nil
		}

		item := astree.NewListItem()
		var checked *bool
		var kids []*dom.Element
		for _, c := range el.Children() {
			if c.Kind == dom.ElementKind && c.TagName == "INPUT" {
				if t, ok := c.GetAttribute("type"); ok && checkboxInputRe.MatchString(t) {
					b := c.HasAttribute("checked")
					checked = &b
					continue // filtered out of children
				}
			}
			kids = append(kids, c)
		}
		item.ItemChecked = checked

		var nodes []*astree.Node
		for _, kid := range kids {
			nodes = append(nodes, walkNode(kid, ctx)...)
		}
		nodes = wrapParagraphIfInline(nodes)
		for _, n := range nodes {
			item.AppendChild(n)
		}
		return []*astree.Node{item}, nil
	}})
}

var langClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`language-(\w+)`),
	regexp.MustCompile(`lang-(\w+)`),
	regexp.MustCompile(`brush:\s*(\w+)`),
	regexp.MustCompile(`^(\w+)$`),
}

func detectLanguage(class string) *string {
	tokens := strings.Fields(class)
	for _, re := range langClassPatterns {
		for _, tok := range tokens {
			if m := re.FindStringSubmatch(tok); m != nil {
				lang := m[1]
				return &lang
			}
		}
	}
	return nil
}

// registerCodeBlock implements PRE, preferring an inner CODE element for
// content/language extraction (spec §4.3).
func registerCodeBlock(r *Registry) {
	r.Register(Rule{TagName: "PRE", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		source := el
		if code := findFirstChildTag(el, "CODE"); code != nil {
			source = code
		}

		var lang *string
		if class, ok := source.GetAttribute("class"); ok {
			lang = detectLanguage(class)
		}
		if lang == nil {
			if class, ok := el.GetAttribute("class"); ok {
				lang = detectLanguage(class)
			}
		}

		value := normalizeCodeText(source.TextContent())
		return []*astree.Node{astree.NewCodeBlock(value, lang, nil)}, nil
	}})
}

func findFirstChildTag(el *dom.Element, tag string) *dom.Element {
	for _, c := range el.Children() {
		if c.Kind == dom.ElementKind && c.TagName == tag {
			return c
		}
	}
	return nil
}

func normalizeCodeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// registerDiv implements the DIV fallback rule: role=heading promotion,
// empty drop, block-splice, or paragraph wrap (spec §4.3).
func registerDiv(r *Registry) {
	r.Register(Rule{TagName: "DIV", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		if role, ok := el.GetAttribute("role"); ok && role == "heading" {
			level := 2
			if v, ok := el.GetAttribute("aria-level"); ok {
				if n, err := strconv.Atoi(v); err == nil {
					level = n
				}
			}
			if level < 1 || level > 6 {
				return nil, nil
			}
			h := astree.NewHeading(level)
			for _, n := range ctx.RenderChildrenAsAst(el) {
				h.AppendChild(n)
			}
			return []*astree.Node{h}, nil
		}

		if strings.TrimSpace(el.TextContent()) == "" && countElementChildren(el) == 0 {
			return nil, nil
		}

		nodes := ctx.RenderChildrenAsAst(el)
		hasBlock := false
		for _, n := range nodes {
			if !n.Kind.IsInline() {
				hasBlock = true
				break
			}
		}
		if hasBlock {
			return nodes, nil
		}
		if len(nodes) == 0 {
			return nil, nil
		}
		p := astree.NewParagraph()
		for _, n := range nodes {
			p.AppendChild(n)
		}
		return []*astree.Node{p}, nil
	}})
}

func countElementChildren(el *dom.Element) int {
	n := 0
	for _, c := range el.Children() {
		if c.Kind == dom.ElementKind {
			n++
		}
	}
	return n
}

var alignStyleRe = regexp.MustCompile(`text-align:\s*(left|right|center)`)

func cellAlign(el *dom.Element) astree.Align {
	if v, ok := el.GetAttribute("align"); ok {
		switch strings.ToLower(v) {
		case "left":
			return astree.AlignLeft
		case "right":
			return astree.AlignRight
		case "center":
			return astree.AlignCenter
		}
	}
	if v, ok := el.GetAttribute("style"); ok {
		if m := alignStyleRe.FindStringSubmatch(v); m != nil {
			switch m[1] {
			case "left":
				return astree.AlignLeft
			case "right":
				return astree.AlignRight
			case "center":
				return astree.AlignCenter
			}
		}
	}
	return astree.AlignNone
}

// registerTable implements TABLE, extracting rows from THEAD/TBODY (or
// direct TR children as a fallback) and alignment from header cells (spec
// §4.3).
func registerTable(r *Registry) {
	r.Register(Rule{TagName: "TABLE", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		var headerRows, bodyRows []*dom.Element
		var directRows []*dom.Element

		for _, c := range el.Children() {
			switch c.TagName {
			case "THEAD":
				headerRows = append(headerRows, rowsOf(c)...)
			case "TBODY":
				bodyRows = append(bodyRows, rowsOf(c)...)
			case "TR":
				directRows = append(directRows, c)
			}
		}

		if len(headerRows) == 0 && len(bodyRows) == 0 {
			if len(directRows) == 0 {
				return nil, nil
			}
			headerRows = directRows[:1]
			bodyRows = directRows[1:]
		}

		var align []astree.Align
		if len(headerRows) > 0 {
			for _, cell := range cellsOf(headerRows[0]) {
				align = append(align, cellAlign(cell))
			}
		}

		table := astree.NewTable(align)
		for _, hr := range headerRows {
			table.AppendChild(buildRow(hr, true, ctx))
		}
		for _, br := range bodyRows {
			table.AppendChild(buildRow(br, false, ctx))
		}
		return []*astree.Node{table}, nil
	}})
}

func rowsOf(el *dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, c := range el.Children() {
		if c.TagName == "TR" {
			out = append(out, c)
		}
	}
	return out
}

func cellsOf(row *dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, c := range row.Children() {
		if c.TagName == "TH" || c.TagName == "TD" {
			out = append(out, c)
		}
	}
	return out
}

func buildRow(row *dom.Element, isHeader bool, ctx *Context) *astree.Node {
	r := astree.NewTableRow(isHeader)
	for _, cell := range cellsOf(row) {
		tc := astree.NewTableCell()
		for _, n := range ctx.RenderChildrenAsAst(cell) {
			tc.AppendChild(n)
		}
		r.AppendChild(tc)
	}
	return r
}
