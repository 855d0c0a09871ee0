package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resoltico/htmlconv/astree"
)

func withSourceTag(n *astree.Node, tag string) *astree.Node {
	n.MetaSet("sourceTag", tag)
	return n
}

func TestRemoveElements(t *testing.T) {
	doc := astree.NewDocument()
	p := astree.NewParagraph()
	doc.AppendChild(withSourceTag(p, "P"))
	script := astree.NewHTML("alert(1)")
	doc.AppendChild(withSourceTag(script, "SCRIPT"))
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{RemoveElements([]string{"script"})})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Children, 1)
	assert.Equal(t, astree.KindParagraph, out[0].Children[0].Kind)
}

func TestCollapseWhitespacePreservesCodeBlock(t *testing.T) {
	doc := astree.NewDocument()
	p := astree.NewParagraph()
	p.AppendChild(astree.NewText("a   b\n\tc"))
	doc.AppendChild(p)
	cb := astree.NewCodeBlock("x   y", nil, nil)
	doc.AppendChild(cb)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{CollapseWhitespace()})
	require.NoError(t, err)
	assert.Equal(t, "a b c", out[0].Children[0].Children[0].TextValue)
	assert.Equal(t, "x   y", out[0].Children[1].CodeValue) // CodeBlock's raw value untouched by this op
}

func TestSanitizeHtmlDropsUnsafeElement(t *testing.T) {
	doc := astree.NewDocument()
	doc.AppendChild(withSourceTag(astree.NewHTML("<script>bad</script>"), "SCRIPT"))
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{SanitizeHtml(SanitizeOptions{})})
	require.NoError(t, err)
	assert.Len(t, out[0].Children, 0)
}

func TestSanitizeHtmlNeutralizesJavascriptScheme(t *testing.T) {
	doc := astree.NewDocument()
	link := astree.NewLink("javascript:alert(1)", nil)
	link.AppendChild(astree.NewText("click"))
	doc.AppendChild(link)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{SanitizeHtml(SanitizeOptions{})})
	require.NoError(t, err)
	assert.Equal(t, "#", out[0].Children[0].LinkURL)
}

func TestSecureExternalLinks(t *testing.T) {
	doc := astree.NewDocument()
	link := astree.NewLink("https://evil.example/page", nil)
	link.AppendChild(astree.NewText("go"))
	doc.AppendChild(link)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{SecureExternalLinks([]string{"trusted.example"})})
	require.NoError(t, err)
	require.Len(t, out[0].Children, 1)
	secured := out[0].Children[0]
	assert.Equal(t, astree.KindHTML, secured.Kind)
	assert.Contains(t, secured.HTMLValue, `target="_blank"`)
	assert.Contains(t, secured.HTMLValue, `rel="noopener noreferrer"`)
}

func TestSecureExternalLinksLeavesInternalDomainAlone(t *testing.T) {
	doc := astree.NewDocument()
	link := astree.NewLink("https://trusted.example/page", nil)
	doc.AppendChild(link)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{SecureExternalLinks([]string{"trusted.example"})})
	require.NoError(t, err)
	assert.Equal(t, astree.KindLink, out[0].Children[0].Kind)
}

func TestAbsoluteUrls(t *testing.T) {
	doc := astree.NewDocument()
	img := astree.NewImage("/images/a.png", nil, "")
	doc.AppendChild(img)
	mailto := astree.NewLink("mailto:a@b.com", nil)
	doc.AppendChild(mailto)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{AbsoluteUrls("https://example.com/dir/", nil)})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/images/a.png", out[0].Children[0].LinkURL)
	assert.Equal(t, "mailto:a@b.com", out[0].Children[1].LinkURL)
}

func TestAddClass(t *testing.T) {
	doc := astree.NewDocument()
	p := astree.NewParagraph()
	p.MetaSet("class", "existing")
	doc.AppendChild(p)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{AddClass("highlight", func(n *astree.Node) bool {
		return n.Kind == astree.KindParagraph
	})})
	require.NoError(t, err)
	assert.Equal(t, "existing highlight", ClassAttr(out[0].Children[0]))
}

func TestWrapElementsSkipsAlreadyWrapped(t *testing.T) {
	doc := astree.NewDocument()
	p := astree.NewParagraph()
	doc.AppendChild(p)
	astree.Establish([]*astree.Node{doc})

	always := func(n *astree.Node) bool { return n.Kind == astree.KindParagraph }
	out, err := Run([]*astree.Node{doc}, Pipeline{
		WrapElements("DIV", map[string]string{"class": "box"}, always),
		WrapElements("SECTION", nil, always),
	})
	require.NoError(t, err)
	tag, _ := out[0].Children[0].MetaGet("wrapTag")
	assert.Equal(t, "DIV", tag) // second WrapElements saw wrapTag already set and skipped
}

func TestUnwrapElementsSplicesAllChildren(t *testing.T) {
	doc := astree.NewDocument()
	wrapper := astree.NewParagraph()
	wrapper.MetaSet("unwrapMe", true)
	wrapper.AppendChild(astree.NewText("one"))
	wrapper.AppendChild(astree.NewEmphasis())
	wrapper.AppendChild(astree.NewText("two"))
	doc.AppendChild(wrapper)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{UnwrapElements(func(n *astree.Node) bool {
		_, ok := n.MetaGet("unwrapMe")
		return ok
	})})
	require.NoError(t, err)
	// All three children must be spliced in, not truncated to the first.
	require.Len(t, out[0].Children, 3)
	assert.Equal(t, "one", out[0].Children[0].TextValue)
	assert.Equal(t, astree.KindEmphasis, out[0].Children[1].Kind)
	assert.Equal(t, "two", out[0].Children[2].TextValue)
	for _, c := range out[0].Children {
		assert.Same(t, out[0], c.Parent)
	}
}

func TestAddHeadingIdsDisambiguates(t *testing.T) {
	doc := astree.NewDocument()
	h1 := astree.NewHeading(1)
	h1.AppendChild(astree.NewText("Intro"))
	doc.AppendChild(h1)
	h2 := astree.NewHeading(2)
	h2.AppendChild(astree.NewText("Intro"))
	doc.AppendChild(h2)
	astree.Establish([]*astree.Node{doc})

	out, err := Run([]*astree.Node{doc}, Pipeline{AddHeadingIds(HeadingIDOptions{})})
	require.NoError(t, err)
	id1, _ := out[0].Children[0].MetaGet("id")
	id2, _ := out[0].Children[1].MetaGet("id")
	assert.Equal(t, "intro", id1)
	assert.Equal(t, "intro-1", id2)
}
