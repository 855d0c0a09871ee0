package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resoltico/htmlconv/astree"
	"github.com/resoltico/htmlconv/dom"
)

func parseAndWalk(t *testing.T, htmlSrc string) *astree.Node {
	t.Helper()
	doc, err := dom.Parse(htmlSrc, dom.ParseOptions{Normalize: true})
	require.NoError(t, err)
	reg := NewRegistry()
	RegisterDefaults(reg)
	return Walk(doc, reg)
}

func TestHeadingRule(t *testing.T) {
	doc := parseAndWalk(t, "<h1>Test Heading</h1>")
	require.Len(t, doc.Children, 1)
	h := doc.Children[0]
	assert.Equal(t, astree.KindHeading, h.Kind)
	assert.Equal(t, 1, h.HeadingLevel)
	assert.Equal(t, "Test Heading", h.Children[0].TextValue)
}

func TestUnorderedList(t *testing.T) {
	doc := parseAndWalk(t, "<ul><li>Item 1</li><li>Item 2</li></ul>")
	require.Len(t, doc.Children, 1)
	list := doc.Children[0]
	assert.Equal(t, astree.KindList, list.Kind)
	assert.False(t, list.ListOrdered)
	require.Len(t, list.Children, 2)
	assert.Equal(t, astree.KindListItem, list.Children[0].Kind)
}

func TestOrderedListWithStart(t *testing.T) {
	doc := parseAndWalk(t, `<ol start="3"><li>A</li><li>B</li></ol>`)
	list := doc.Children[0]
	assert.True(t, list.ListOrdered)
	require.NotNil(t, list.ListStart)
	assert.Equal(t, 3, *list.ListStart)
}

func TestNestedList(t *testing.T) {
	doc := parseAndWalk(t, `<ul><li>Item 2<ul><li>Nested 1</li></ul></li></ul>`)
	outer := doc.Children[0]
	item := outer.Children[0]
	// item's children: Text("Item 2") then nested List
	var nestedFound bool
	for _, c := range item.Children {
		if c.Kind == astree.KindList {
			nestedFound = true
			// The nested item's inline text is wrapped in a Paragraph.
			assert.Equal(t, "Nested 1", c.Children[0].Children[0].Children[0].TextValue)
		}
	}
	assert.True(t, nestedFound)
}

func TestImageRequiresSrc(t *testing.T) {
	doc := parseAndWalk(t, `<img src="image.jpg" alt="Alt Text">`)
	require.Len(t, doc.Children, 1)
	img := doc.Children[0]
	assert.Equal(t, astree.KindImage, img.Kind)
	assert.Equal(t, "image.jpg", img.LinkURL)
	assert.Equal(t, "Alt Text", img.ImageAlt)

	dropped := parseAndWalk(t, `<img alt="no src">`)
	assert.Len(t, dropped.Children, 0)
}

func TestCodeBlockLanguageDetection(t *testing.T) {
	doc := parseAndWalk(t, `<pre><code class="language-javascript">function x(){}</code></pre>`)
	cb := doc.Children[0]
	assert.Equal(t, astree.KindCodeBlock, cb.Kind)
	require.NotNil(t, cb.CodeLanguage)
	assert.Equal(t, "javascript", *cb.CodeLanguage)
	assert.Equal(t, "function x(){}", cb.CodeValue)
}

func TestCodeBlockLanguageDetectionPrefersHigherPriorityPatternAcrossTokens(t *testing.T) {
	doc := parseAndWalk(t, `<pre><code class="highlight language-javascript">function x(){}</code></pre>`)
	cb := doc.Children[0]
	require.NotNil(t, cb.CodeLanguage)
	// "language-(\w+)" outranks the catch-all "^(\w+)$" pattern that would
	// otherwise match the "highlight" token first.
	assert.Equal(t, "javascript", *cb.CodeLanguage)
}

func TestNestedBlockquote(t *testing.T) {
	doc := parseAndWalk(t, `<blockquote><p>A</p><blockquote><p>B</p></blockquote></blockquote>`)
	outer := doc.Children[0]
	assert.Equal(t, astree.KindBlockquote, outer.Kind)
	assert.Equal(t, "A", outer.Children[0].Children[0].TextValue)
	inner := outer.Children[1]
	assert.Equal(t, astree.KindBlockquote, inner.Kind)
	assert.Equal(t, "B", inner.Children[0].Children[0].TextValue)
}

func TestTableWithThead(t *testing.T) {
	doc := parseAndWalk(t, `<table>
<thead><tr><th>Header 1</th><th>Header 2</th></tr></thead>
<tbody><tr><td>A</td><td>B</td></tr></tbody>
</table>`)
	table := doc.Children[0]
	assert.Equal(t, astree.KindTable, table.Kind)
	require.Len(t, table.Children, 2)
	assert.True(t, table.Children[0].RowHeader)
	assert.False(t, table.Children[1].RowHeader)
}

func TestListItemTaskCheckbox(t *testing.T) {
	doc := parseAndWalk(t, `<ul><li><input type="checkbox" checked> Done</li></ul>`)
	item := doc.Children[0].Children[0]
	require.NotNil(t, item.ItemChecked)
	assert.True(t, *item.ItemChecked)
}

func TestListItemOutsideListWrapsParagraph(t *testing.T) {
	// A bare <li> with no list ancestor (malformed input) must wrap as a
	// Paragraph per spec §4.3.
	reg := NewRegistry()
	RegisterDefaults(reg)
	doc, err := dom.Parse(`<div><li>orphan</li></div>`, dom.ParseOptions{Normalize: true})
	require.NoError(t, err)
	root := Walk(doc, reg)
	// DIV splices block children in place since Paragraph is a block.
	require.Len(t, root.Children, 1)
	assert.Equal(t, astree.KindParagraph, root.Children[0].Kind)
}

func TestRuleErrorDegradesGracefully(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)
	reg.Register(Rule{TagName: "SPAN", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		panic("boom")
	}})
	doc, err := dom.Parse(`<p><span>x</span></p>`, dom.ParseOptions{Normalize: true})
	require.NoError(t, err)
	root := Walk(doc, reg)
	require.Len(t, root.Children, 1)
	p := root.Children[0]
	require.Len(t, p.Children, 1)
	assert.Equal(t, "", p.Children[0].TextValue)
	require.Len(t, reg.Errors(), 1)
	assert.Equal(t, "SPAN", reg.Errors()[0].TagName)
}
