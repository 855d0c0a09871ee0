// Package dom wraps golang.org/x/net/html to produce the read-only HTML-DOM
// described by the conversion pipeline's data model: element nodes with
// uppercase tag names and ordered attributes, text nodes, and comments.
//
// Modifications:
//
//	Adapted from golang.org/x/net/html.Node traversal helpers in
//	dpotapov/go-pages (chtml/node.go, chtml/html) for a read-only,
//	uppercase-tag-name facade instead of a mutable template tree.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ParseOptions configures Parse.
type ParseOptions struct {
	// Strict disables the single recovery attempt on a parse failure.
	Strict bool

	// Normalize discards whitespace-only text nodes at the adapter boundary.
	Normalize bool

	// PreserveComments keeps comment nodes in the produced tree.
	PreserveComments bool
}

// ParseError is returned by Parse when parsing fails in strict mode, or when
// the non-strict recovery attempt also fails.
type ParseError struct {
	Cause     error
	Recovered bool
}

func (e *ParseError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("dom: parse failed even after recovery attempt: %v", e.Cause)
	}
	return fmt.Sprintf("dom: parse failed: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Document is the root of a parsed HTML-DOM.
type Document struct {
	root *Element
}

// Root returns the document's root: a container element with an empty
// TagName standing for the parsed document node, whose children include the
// HTML element.
func (d *Document) Root() *Element { return d.root }

// NodeKind distinguishes the three HTML-DOM node kinds.
type NodeKind int

const (
	ElementKind NodeKind = iota
	TextKind
	CommentKind
)

// Element is a read-only facade over an *html.Node.
//
// Element names are normalized to uppercase; attribute names retain their
// original case, per spec §4.1.
type Element struct {
	Kind NodeKind

	// TagName is the uppercase element name. Empty for text/comment nodes.
	TagName string

	// Data holds raw text for TextKind/CommentKind nodes.
	Data string

	attrs    []html.Attribute
	children []*Element
	raw      *html.Node
}

// Raw returns the underlying *html.Node, for callers (e.g. mathconv) that
// need direct access to golang.org/x/net/html facilities such as rendering.
func (e *Element) Raw() *html.Node { return e.raw }

// GetAttribute returns the attribute's value and whether it was present.
func (e *Element) GetAttribute(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

// Attributes returns the ordered attribute list as they appeared in source.
func (e *Element) Attributes() []html.Attribute {
	out := make([]html.Attribute, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Children returns the ordered child list.
func (e *Element) Children() []*Element { return e.children }

// GetElementsByTagName returns all descendant elements (self excluded) whose
// TagName matches name (case-insensitive; name is upper-cased internally).
func (e *Element) GetElementsByTagName(name string) []*Element {
	name = strings.ToUpper(name)
	var out []*Element
	var walk func(*Element)
	walk = func(n *Element) {
		for _, c := range n.children {
			if c.Kind == ElementKind && c.TagName == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	var sb strings.Builder
	var walk func(*Element)
	walk = func(n *Element) {
		if n.Kind == TextKind {
			sb.WriteString(n.Data)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(e)
	return sb.String()
}

// Parse converts raw HTML bytes into an HTML-DOM.
func Parse(htmlSrc string, opts ParseOptions) (*Document, error) {
	node, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		if opts.Strict {
			return nil, &ParseError{Cause: err}
		}
		node, err = html.Parse(strings.NewReader("<div>" + htmlSrc + "</div>"))
		if err != nil {
			return nil, &ParseError{Cause: err, Recovered: true}
		}
	}
	root := convert(node, opts)
	return &Document{root: root}, nil
}

// ParseFragment parses an HTML fragment in the context of the given element
// name (e.g. "body"), following golang.org/x/net/html.ParseFragment.
func ParseFragment(htmlSrc, contextTag string, opts ParseOptions) ([]*Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: strings.ToLower(contextTag), DataAtom: html.Atom(0)}
	nodes, err := html.ParseFragment(strings.NewReader(htmlSrc), ctx)
	if err != nil {
		if opts.Strict {
			return nil, &ParseError{Cause: err}
		}
		nodes, err = html.ParseFragment(strings.NewReader("<div>"+htmlSrc+"</div>"), ctx)
		if err != nil {
			return nil, &ParseError{Cause: err, Recovered: true}
		}
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, convert(n, opts))
	}
	return out, nil
}

func convert(n *html.Node, opts ParseOptions) *Element {
	e := &Element{raw: n}
	switch n.Type {
	case html.ElementNode:
		e.Kind = ElementKind
		e.TagName = strings.ToUpper(n.Data)
		e.attrs = n.Attr
	case html.TextNode:
		e.Kind = TextKind
		e.Data = n.Data
	case html.CommentNode:
		e.Kind = CommentKind
		e.Data = n.Data
	default:
		// DocumentNode, DoctypeNode, etc. are walked transparently: treat as
		// a bare container so their children still surface.
		e.Kind = ElementKind
		e.TagName = ""
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && opts.Normalize && strings.TrimSpace(c.Data) == "" {
			continue
		}
		if c.Type == html.CommentNode && !opts.PreserveComments {
			continue
		}
		e.children = append(e.children, convert(c, opts))
	}
	return e
}
