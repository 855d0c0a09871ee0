// Package astree implements the Markdown-AST: the tagged-variant tree
// produced by the tag-rule walker and consumed by the transformation
// pipeline and serializer (spec §3).
//
// Modifications:
//
//	The parent/child bookkeeping (weak back-reference, O(1) attach/detach)
//	is adapted from dpotapov/go-pages's chtml/node.go, which itself carries
//	forward golang.org/x/net/html's node-list invariants. Here the sealed
//	node is a tagged union over the variants in spec §3 instead of a single
//	mutable html.Node struct.
package astree

import "fmt"

// Kind identifies a Markdown-AST node variant.
type Kind int

const (
	KindDocument Kind = iota
	KindHeading
	KindParagraph
	KindBlockquote
	KindList
	KindListItem
	KindCodeBlock
	KindThematicBreak
	KindTable
	KindTableRow
	KindTableCell
	KindHTML
	KindText
	KindEmphasis
	KindStrong
	KindStrikethrough
	KindLink
	KindImage
	KindInlineCode
	KindBreak
	KindFootnoteDefinition
	KindFootnoteReference
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "Document"
	case KindHeading:
		return "Heading"
	case KindParagraph:
		return "Paragraph"
	case KindBlockquote:
		return "Blockquote"
	case KindList:
		return "List"
	case KindListItem:
		return "ListItem"
	case KindCodeBlock:
		return "CodeBlock"
	case KindThematicBreak:
		return "ThematicBreak"
	case KindTable:
		return "Table"
	case KindTableRow:
		return "TableRow"
	case KindTableCell:
		return "TableCell"
	case KindHTML:
		return "HTML"
	case KindText:
		return "Text"
	case KindEmphasis:
		return "Emphasis"
	case KindStrong:
		return "Strong"
	case KindStrikethrough:
		return "Strikethrough"
	case KindLink:
		return "Link"
	case KindImage:
		return "Image"
	case KindInlineCode:
		return "InlineCode"
	case KindBreak:
		return "Break"
	case KindFootnoteDefinition:
		return "FootnoteDefinition"
	case KindFootnoteReference:
		return "FootnoteReference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// inlineKinds never directly contain block variants (invariant I5).
var inlineKinds = map[Kind]bool{
	KindText:              true,
	KindEmphasis:          true,
	KindStrong:            true,
	KindStrikethrough:     true,
	KindLink:               true,
	KindImage:             true,
	KindInlineCode:        true,
	KindBreak:             true,
	KindFootnoteReference: true,
}

// IsInline reports whether k is one of the inline-only variants.
func (k Kind) IsInline() bool { return inlineKinds[k] }

// Position is an optional source position carried by a node.
type Position struct {
	Line, Column int
}

// Align is a table column alignment.
type Align int

const (
	AlignNone Align = iota
	AlignLeft
	AlignRight
	AlignCenter
)

// Node is the sealed tagged-variant Markdown-AST node.
//
// Every node carries a Kind, an optional Position, a Meta bag, and — for
// non-root nodes — a weak Parent back-reference, restored by Establish
// after any structural edit (spec §3 Lifecycle, §9 design note).
type Node struct {
	Kind     Kind
	Position *Position
	Meta     map[string]any
	Parent   *Node
	Children []*Node

	// Variant payloads. Only the fields relevant to Kind are meaningful.
	HeadingLevel int  // Heading
	ListOrdered  bool // List
	ListStart    *int // List
	ListTight    bool // List
	ItemChecked  *bool // ListItem

	CodeValue    string // CodeBlock, InlineCode
	CodeLanguage *string // CodeBlock
	CodeMeta     *string // CodeBlock

	TableAlign []Align // Table
	RowHeader  bool    // TableRow

	HTMLValue string // HTML (raw)
	TextValue string // Text

	LinkURL   string // Link, Image
	LinkTitle *string // Link, Image
	ImageAlt  string  // Image

	BreakHard bool // Break

	FootnoteIdentifier string // FootnoteDefinition, FootnoteReference
	FootnoteLabel      string // FootnoteDefinition, FootnoteReference
}

// NewDocument creates a root Document node (invariant I6: unique, root-only).
func NewDocument() *Node { return &Node{Kind: KindDocument} }

// NewHeading creates a Heading node. Keeping level within [1,6] is the
// caller's job (rules that build headings are responsible for I4 and drop
// out-of-range levels; this constructor does not silently coerce them so
// bugs surface early).
func NewHeading(level int) *Node { return &Node{Kind: KindHeading, HeadingLevel: level} }

func NewParagraph() *Node   { return &Node{Kind: KindParagraph} }
func NewBlockquote() *Node  { return &Node{Kind: KindBlockquote} }

func NewList(ordered bool, start *int) *Node {
	return &Node{Kind: KindList, ListOrdered: ordered, ListStart: start, ListTight: true}
}

func NewListItem() *Node { return &Node{Kind: KindListItem} }

func NewCodeBlock(value string, language, meta *string) *Node {
	return &Node{Kind: KindCodeBlock, CodeValue: value, CodeLanguage: language, CodeMeta: meta}
}

func NewThematicBreak() *Node { return &Node{Kind: KindThematicBreak} }

func NewTable(align []Align) *Node { return &Node{Kind: KindTable, TableAlign: align} }

func NewTableRow(isHeader bool) *Node { return &Node{Kind: KindTableRow, RowHeader: isHeader} }

func NewTableCell() *Node { return &Node{Kind: KindTableCell} }

func NewHTML(value string) *Node { return &Node{Kind: KindHTML, HTMLValue: value} }

func NewText(value string) *Node { return &Node{Kind: KindText, TextValue: value} }

func NewEmphasis() *Node      { return &Node{Kind: KindEmphasis} }
func NewStrong() *Node        { return &Node{Kind: KindStrong} }
func NewStrikethrough() *Node { return &Node{Kind: KindStrikethrough} }

func NewLink(url string, title *string) *Node {
	return &Node{Kind: KindLink, LinkURL: url, LinkTitle: title}
}

func NewImage(url string, title *string, alt string) *Node {
	return &Node{Kind: KindImage, LinkURL: url, LinkTitle: title, ImageAlt: alt}
}

func NewInlineCode(value string) *Node { return &Node{Kind: KindInlineCode, CodeValue: value} }

func NewBreak(hard bool) *Node { return &Node{Kind: KindBreak, BreakHard: hard} }

func NewFootnoteDefinition(id, label string) *Node {
	return &Node{Kind: KindFootnoteDefinition, FootnoteIdentifier: id, FootnoteLabel: label}
}

func NewFootnoteReference(id, label string) *Node {
	return &Node{Kind: KindFootnoteReference, FootnoteIdentifier: id, FootnoteLabel: label}
}

// CanHaveChildren reports whether the variant owns a child list per spec §3's
// "Children" column.
func (n *Node) CanHaveChildren() bool {
	switch n.Kind {
	case KindCodeBlock, KindThematicBreak, KindHTML, KindText, KindImage, KindInlineCode,
		KindBreak, KindFootnoteReference:
		return false
	default:
		return true
	}
}

// AppendChild appends c to n's child list and establishes the back-reference.
// It panics if n cannot own children (see CanHaveChildren).
func (n *Node) AppendChild(c *Node) {
	if !n.CanHaveChildren() {
		panic(fmt.Sprintf("astree: %s cannot have children", n.Kind))
	}
	c.Parent = n
	n.Children = append(n.Children, c)
}

// MetaGet returns a metadata value and whether it was present.
func (n *Node) MetaGet(key string) (any, bool) {
	if n.Meta == nil {
		return nil, false
	}
	v, ok := n.Meta[key]
	return v, ok
}

// MetaSet sets a metadata value, allocating the bag lazily.
func (n *Node) MetaSet(key string, value any) {
	if n.Meta == nil {
		n.Meta = make(map[string]any)
	}
	n.Meta[key] = value
}
