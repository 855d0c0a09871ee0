// Package rules implements the tag-rule walker and registry that converts an
// HTML-DOM into a Markdown-AST by delegating per-element work to registered
// tag rules (spec §4.3).
//
// Modifications:
//
//	The dispatch-table-plus-context shape is adapted from dpotapov/go-pages's
//	chtml/component.go, whose parseElement/evalElement pair walks an etree
//	tree while consulting a per-node metadata map; here a Rule is looked up
//	by uppercase tag name instead of by namespace, and the metadata map is
//	replaced by the returned astree.Node itself.
package rules

import (
	"fmt"
	"strings"

	"github.com/resoltico/htmlconv/astree"
	"github.com/resoltico/htmlconv/dom"
)

// EmitFunc converts a single HTML-DOM element into zero, one, or many
// Markdown-AST nodes. Returning (nil, nil) drops the element; returning
// multiple nodes splices them into the parent's child stream.
type EmitFunc func(el *dom.Element, ctx *Context) ([]*astree.Node, error)

// Rule is a per-tag conversion strategy.
type Rule struct {
	TagName string
	Emit    EmitFunc
}

// synonyms expands a canonical rule registration to the tag names that share
// its behavior (spec §4.3 "Synonym expansion at registration time").
var synonyms = map[string][]string{
	"H":      {"H1", "H2", "H3", "H4", "H5", "H6"},
	"EM":     {"EM", "I", "CITE", "DFN"},
	"STRONG": {"STRONG", "B"},
	"DEL":    {"DEL", "S", "STRIKE"},
}

// RuleError wraps a panic or error raised by a tag rule's Emit function.
// The walker logs it and substitutes an empty Text node, then continues.
type RuleError struct {
	TagName string
	Cause   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rules: rule for <%s> failed: %v", e.TagName, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }

// Registry holds the case-insensitive tag-name → Rule mapping plus an
// optional default rule for unmatched tags.
type Registry struct {
	rules    map[string]Rule
	def      *Rule
	passthru map[string]bool // elements retained as raw HTML when no default rule fires
	errs     []*RuleError
}

// NewRegistry creates an empty registry. Use RegisterDefaults to populate it
// with the built-in rules from spec §4.3.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
		passthru: map[string]bool{
			"SCRIPT": true, "STYLE": true, "NOSCRIPT": true, "SVG": true, "IFRAME": true,
		},
	}
}

// Register adds a rule, expanding synonyms for pseudo-tags like "H".
func (r *Registry) Register(rule Rule) {
	tag := strings.ToUpper(rule.TagName)
	if expanded, ok := synonyms[tag]; ok {
		for _, t := range expanded {
			r.rules[t] = Rule{TagName: t, Emit: rule.Emit}
		}
		return
	}
	r.rules[tag] = rule
}

// RegisterDefault sets the single fallback rule for unmatched tags.
func (r *Registry) RegisterDefault(emit EmitFunc) {
	r.def = &Rule{TagName: "*", Emit: emit}
}

// Lookup resolves a rule for the given (case-insensitive) tag name.
func (r *Registry) Lookup(tagName string) (Rule, bool) {
	rule, ok := r.rules[strings.ToUpper(tagName)]
	return rule, ok
}

// Errors returns the RuleErrors accumulated during the most recent Walk call
// using this registry (cleared at the start of each Walk).
func (r *Registry) Errors() []*RuleError { return r.errs }

func (r *Registry) recordError(tagName string, cause error) {
	r.errs = append(r.errs, &RuleError{TagName: tagName, Cause: cause})
}
