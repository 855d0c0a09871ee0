package rules

import (
	"strings"

	"github.com/resoltico/htmlconv/astree"
	"github.com/resoltico/htmlconv/dom"
)

// Context is the immutable per-call context threaded through a walk: the
// ancestor tag-name stack and a renderChildrenAsAst callback bound to the
// current registry and position in the tree (spec §4.3 "Context object").
type Context struct {
	ancestors []string
	registry  *Registry
}

// IsInside reports whether tagName (case-insensitive) appears anywhere in
// the ancestor path.
func (c *Context) IsInside(tagName string) bool {
	tagName = strings.ToUpper(tagName)
	for _, a := range c.ancestors {
		if a == tagName {
			return true
		}
	}
	return false
}

// Ancestors returns the ancestor tag-name stack, outermost first.
func (c *Context) Ancestors() []string {
	out := make([]string, len(c.ancestors))
	copy(out, c.ancestors)
	return out
}

// RenderChildrenAsAst recursively walks el's children through the registry,
// returning the flattened list of produced Markdown-AST nodes in source
// order.
func (c *Context) RenderChildrenAsAst(el *dom.Element) []*astree.Node {
	var out []*astree.Node
	child := c.withAncestor(el.TagName)
	for _, kid := range el.Children() {
		out = append(out, walkNode(kid, child)...)
	}
	return out
}

func (c *Context) withAncestor(tag string) *Context {
	if tag == "" {
		return c
	}
	next := make([]string, len(c.ancestors)+1)
	copy(next, c.ancestors)
	next[len(c.ancestors)] = strings.ToUpper(tag)
	return &Context{ancestors: next, registry: c.registry}
}

// Walk converts doc into a Markdown-AST, rooted at a Document node, by
// dispatching each element to its registered tag rule (spec §4.3).
//
// Children are processed in source order; results are appended to the
// parent's child list preserving that order (spec §4.3 "Ordering and
// tie-breaks").
func Walk(doc *dom.Document, registry *Registry) *astree.Node {
	registry.errs = nil
	root := astree.NewDocument()
	ctx := &Context{registry: registry}
	for _, child := range bodyChildren(doc.Root()) {
		for _, n := range walkNode(child, ctx) {
			root.AppendChild(n)
		}
	}
	return root
}

// bodyChildren descends into a parsed document's <html><body> (or, for a
// bare fragment root, returns the element's own children) so that Walk
// operates on content elements rather than the synthetic document shell.
func bodyChildren(root *dom.Element) []*dom.Element {
	if root == nil {
		return nil
	}
	if body := firstByTag(root, "BODY"); body != nil {
		return body.Children()
	}
	return root.Children()
}

func firstByTag(el *dom.Element, tag string) *dom.Element {
	if el.Kind == dom.ElementKind && el.TagName == tag {
		return el
	}
	for _, c := range el.Children() {
		if found := firstByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// walkNode dispatches a single HTML-DOM node (element, text, or comment) to
// the appropriate rule, isolating rule panics/errors per spec §4.3's failure
// semantics: a failing rule degrades to an empty Text node and walking
// continues.
func walkNode(el *dom.Element, ctx *Context) (out []*astree.Node) {
	switch el.Kind {
	case dom.TextKind:
		return []*astree.Node{astree.NewText(el.Data)}
	case dom.CommentKind:
		return nil // comment nodes are dropped here and never reach the AST
	}

	defer func() {
		if rec := recover(); rec != nil {
			ctx.registry.recordError(el.TagName, panicToError(rec))
			out = []*astree.Node{astree.NewText("")}
		}
	}()

	rule, ok := ctx.registry.Lookup(el.TagName)
	if !ok {
		return tagSourceElements(applyDefault(el, ctx), el.TagName)
	}

	nodes, err := rule.Emit(el, ctx.withAncestor(el.TagName))
	if err != nil {
		ctx.registry.recordError(el.TagName, err)
		return []*astree.Node{astree.NewText("")}
	}
	return tagSourceElements(nodes, el.TagName)
}

// tagSourceElements stamps each produced node with the originating HTML tag
// name, letting later transformation-pipeline operations (RemoveElements,
// SanitizeHtml, AddClass) match on it without astree needing a generic
// "tag name" field of its own.
func tagSourceElements(nodes []*astree.Node, tagName string) []*astree.Node {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, ok := n.MetaGet("sourceTag"); !ok {
			n.MetaSet("sourceTag", tagName)
		}
	}
	return nodes
}

func applyDefault(el *dom.Element, ctx *Context) []*astree.Node {
	if ctx.registry.def != nil {
		nodes, err := ctx.registry.def.Emit(el, ctx.withAncestor(el.TagName))
		if err != nil {
			ctx.registry.recordError(el.TagName, err)
			return []*astree.Node{astree.NewText("")}
		}
		return nodes
	}
	if ctx.registry.passthru[el.TagName] {
		return []*astree.Node{astree.NewHTML(el.TextContent())}
	}
	// Walk transparently: render children in place, discard the element.
	return ctx.RenderChildrenAsAst(el)
}

func panicToError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &panicError{rec}
}

type panicError struct{ v any }

func (e *panicError) Error() string { return "panic: " + toString(e.v) }

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}
