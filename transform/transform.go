// Package transform implements the tree transformation framework: an
// ordered pipeline of declarative operations applied over a Markdown-AST
// with predicate dispatch (spec §4.4).
//
// Modifications:
//
//	The operation loop is adapted from dpotapov/go-pages's chtml/component.go
//	evalElement/eval pair (conditionals evaluated before descending into
//	children, each node visited exactly once per pass) but generalized from
//	a fixed set of directives (c:if/c:for) to an arbitrary ordered list of
//	caller-supplied Operations, and predicates may optionally be compiled
//	from an expr-lang boolean expression exactly as chtml/component.go
//	compiles c:if.
package transform

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/resoltico/htmlconv/astree"
)

// Context is passed to Operation.Transform, carrying the ancestor chain and
// any shared state an operation needs (e.g. AddHeadingIds' seen-id set).
type Context struct {
	Ancestors []*astree.Node
	shared    map[string]any
}

func newContext() *Context { return &Context{shared: make(map[string]any)} }

// Shared returns the operation-scoped shared value for key, creating it with
// init if absent.
func (c *Context) Shared(key string, init func() any) any {
	if v, ok := c.shared[key]; ok {
		return v
	}
	v := init()
	c.shared[key] = v
	return v
}

// Operation is a single named pipeline step. Transform returns the node(s)
// that should occupy n's position in its parent's child list: zero removes
// n, one (the same pointer) leaves it unchanged, one (a different pointer)
// replaces it, and more than one splices all of them in — this last case is
// what lets UnwrapElements replace a node with its full set of children
// rather than truncating to the first (spec §9 open question).
type Operation struct {
	Name        string
	ShouldApply func(*astree.Node) bool
	Transform   func(*astree.Node, *Context) ([]*astree.Node, error)
}

// Pipeline is a finite, ordered list of operations (spec §4.4: "no
// fixed-point iteration").
type Pipeline []Operation

// Run applies pipeline to roots in registration order, one complete
// depth-first pass per operation.
func Run(roots []*astree.Node, pipeline Pipeline) ([]*astree.Node, error) {
	current := roots
	for _, op := range pipeline {
		next, err := runOne(current, op)
		if err != nil {
			return nil, fmt.Errorf("transform: operation %q: %w", op.Name, err)
		}
		current = next
	}
	return current, nil
}

// runOne performs a single complete pass of op over roots, visiting every
// original node exactly once.
func runOne(roots []*astree.Node, op Operation) ([]*astree.Node, error) {
	ctx := newContext()
	var out []*astree.Node
	for _, r := range roots {
		result, err := applyRec(r, op, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, result...)
	}
	astree.Establish(out)
	return out, nil
}

// applyRec processes n's children first (post-order), so that removal or
// replacement decisions in op.Transform see already-transformed subtrees,
// then evaluates op against n itself.
func applyRec(n *astree.Node, op Operation, ctx *Context) ([]*astree.Node, error) {
	if n == nil {
		return nil, nil
	}

	var kept []*astree.Node
	childCtx := &Context{Ancestors: append(append([]*astree.Node{}, ctx.Ancestors...), n), shared: ctx.shared}
	for _, c := range n.Children {
		result, err := applyRec(c, op, childCtx)
		if err != nil {
			return nil, err
		}
		kept = append(kept, result...)
	}
	n.Children = kept

	if !op.ShouldApply(n) {
		return []*astree.Node{n}, nil
	}
	result, err := op.Transform(n, ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompileExprPredicate compiles an expr-lang boolean expression into a
// ShouldApply predicate. The expression is evaluated with the node's Kind
// (as a string), Meta bag, source HTML tag name, and — for HTML nodes —
// HTMLValue available as env vars "kind", "meta", "tag", and "value".
func CompileExprPredicate(expression string) (func(*astree.Node) bool, error) {
	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("transform: compile predicate %q: %w", expression, err)
	}
	return func(n *astree.Node) bool {
		ok, err := runPredicate(program, n)
		return err == nil && ok
	}, nil
}

func runPredicate(program *vm.Program, n *astree.Node) (bool, error) {
	tag, _ := n.MetaGet("sourceTag")
	value := n.TextValue
	if n.Kind == astree.KindHTML {
		value = n.HTMLValue
	}
	env := map[string]any{
		"kind":  n.Kind.String(),
		"meta":  n.Meta,
		"tag":   tag,
		"value": value,
	}
	res, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, ok := res.(bool)
	return ok && b, nil
}

// SourceTag returns the originating HTML tag name stamped onto n by the
// walker (rules.Walk), uppercase, or "" if absent (e.g. a node synthesized
// by an earlier transformation operation).
func SourceTag(n *astree.Node) string {
	if v, ok := n.MetaGet("sourceTag"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ClassAttr returns the space-separated class list stamped onto n's
// Meta["class"] (by AddClass), or "" if none.
func ClassAttr(n *astree.Node) string {
	if v, ok := n.MetaGet("class"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
