package rules

import (
	"github.com/resoltico/htmlconv/astree"
	"github.com/resoltico/htmlconv/dom"
)

// registerImage implements IMG: requires src, drops silently otherwise, and
// copies alt (default empty)/title (spec §4.3).
func registerImage(r *Registry) {
	r.Register(Rule{TagName: "IMG", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		src, ok := el.GetAttribute("src")
		if !ok || src == "" {
			return nil, nil
		}
		alt, _ := el.GetAttribute("alt")
		var title *string
		if t, ok := el.GetAttribute("title"); ok {
			title = &t
		}
		return []*astree.Node{astree.NewImage(src, title, alt)}, nil
	}})
}

// registerLink implements A: href preserved verbatim, children walked as
// inline content (spec §4.3).
func registerLink(r *Registry) {
	r.Register(Rule{TagName: "A", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		href, _ := el.GetAttribute("href")
		var title *string
		if t, ok := el.GetAttribute("title"); ok {
			title = &t
		}
		link := astree.NewLink(href, title)
		for _, n := range ctx.RenderChildrenAsAst(el) {
			link.AppendChild(n)
		}
		return []*astree.Node{link}, nil
	}})
}

func registerEmphasis(r *Registry) {
	r.Register(Rule{TagName: "EM", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		n := astree.NewEmphasis()
		for _, c := range ctx.RenderChildrenAsAst(el) {
			n.AppendChild(c)
		}
		return []*astree.Node{n}, nil
	}})
}

func registerStrong(r *Registry) {
	r.Register(Rule{TagName: "STRONG", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		n := astree.NewStrong()
		for _, c := range ctx.RenderChildrenAsAst(el) {
			n.AppendChild(c)
		}
		return []*astree.Node{n}, nil
	}})
}

func registerStrikethrough(r *Registry) {
	r.Register(Rule{TagName: "DEL", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		n := astree.NewStrikethrough()
		for _, c := range ctx.RenderChildrenAsAst(el) {
			n.AppendChild(c)
		}
		return []*astree.Node{n}, nil
	}})
}

func registerInlineCode(r *Registry) {
	r.Register(Rule{TagName: "CODE", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		return []*astree.Node{astree.NewInlineCode(el.TextContent())}, nil
	}})
}

func registerBreak(r *Registry) {
	r.Register(Rule{TagName: "BR", Emit: func(el *dom.Element, ctx *Context) ([]*astree.Node, error) {
		return []*astree.Node{astree.NewBreak(true)}, nil
	}})
}
