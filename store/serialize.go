package store

import "github.com/resoltico/htmlconv/astree"

// serializedNode is astree.Node's wire shape for persistence: every field
// except the weak Parent back-reference (spec §6: "MUST serialize the AST
// without the parent back-reference and rebuild it on load via
// establish").
type serializedNode struct {
	Kind     astree.Kind      `json:"kind"`
	Position *astree.Position `json:"position,omitempty"`
	Meta     map[string]any   `json:"meta,omitempty"`
	Children []*serializedNode `json:"children,omitempty"`

	HeadingLevel int  `json:"headingLevel,omitempty"`
	ListOrdered  bool `json:"listOrdered,omitempty"`
	ListStart    *int `json:"listStart,omitempty"`
	ListTight    bool `json:"listTight,omitempty"`
	ItemChecked  *bool `json:"itemChecked,omitempty"`

	CodeValue    string  `json:"codeValue,omitempty"`
	CodeLanguage *string `json:"codeLanguage,omitempty"`
	CodeMeta     *string `json:"codeMeta,omitempty"`

	TableAlign []astree.Align `json:"tableAlign,omitempty"`
	RowHeader  bool           `json:"rowHeader,omitempty"`

	HTMLValue string `json:"htmlValue,omitempty"`
	TextValue string `json:"textValue,omitempty"`

	LinkURL   string  `json:"linkUrl,omitempty"`
	LinkTitle *string `json:"linkTitle,omitempty"`
	ImageAlt  string  `json:"imageAlt,omitempty"`

	BreakHard bool `json:"breakHard,omitempty"`

	FootnoteIdentifier string `json:"footnoteIdentifier,omitempty"`
	FootnoteLabel      string `json:"footnoteLabel,omitempty"`
}

func toSerialized(nodes []*astree.Node) []*serializedNode {
	out := make([]*serializedNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toSerializedNode(n))
	}
	return out
}

func toSerializedNode(n *astree.Node) *serializedNode {
	s := &serializedNode{
		Kind: n.Kind, Position: n.Position, Meta: n.Meta,
		HeadingLevel: n.HeadingLevel, ListOrdered: n.ListOrdered, ListStart: n.ListStart, ListTight: n.ListTight,
		ItemChecked: n.ItemChecked, CodeValue: n.CodeValue, CodeLanguage: n.CodeLanguage, CodeMeta: n.CodeMeta,
		TableAlign: n.TableAlign, RowHeader: n.RowHeader, HTMLValue: n.HTMLValue, TextValue: n.TextValue,
		LinkURL: n.LinkURL, LinkTitle: n.LinkTitle, ImageAlt: n.ImageAlt, BreakHard: n.BreakHard,
		FootnoteIdentifier: n.FootnoteIdentifier, FootnoteLabel: n.FootnoteLabel,
	}
	for _, c := range n.Children {
		s.Children = append(s.Children, toSerializedNode(c))
	}
	return s
}

func fromSerialized(nodes []*serializedNode) []*astree.Node {
	out := make([]*astree.Node, 0, len(nodes))
	for _, s := range nodes {
		out = append(out, fromSerializedNode(s))
	}
	return out
}

func fromSerializedNode(s *serializedNode) *astree.Node {
	n := &astree.Node{
		Kind: s.Kind, Position: s.Position, Meta: s.Meta,
		HeadingLevel: s.HeadingLevel, ListOrdered: s.ListOrdered, ListStart: s.ListStart, ListTight: s.ListTight,
		ItemChecked: s.ItemChecked, CodeValue: s.CodeValue, CodeLanguage: s.CodeLanguage, CodeMeta: s.CodeMeta,
		TableAlign: s.TableAlign, RowHeader: s.RowHeader, HTMLValue: s.HTMLValue, TextValue: s.TextValue,
		LinkURL: s.LinkURL, LinkTitle: s.LinkTitle, ImageAlt: s.ImageAlt, BreakHard: s.BreakHard,
		FootnoteIdentifier: s.FootnoteIdentifier, FootnoteLabel: s.FootnoteLabel,
	}
	for _, c := range s.Children {
		n.Children = append(n.Children, fromSerializedNode(c))
	}
	return n
}
