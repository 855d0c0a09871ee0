// Package htmlconv is the library surface of the HTML-to-Markdown
// conversion pipeline: parse, walk, transform, serialize, math round-trip,
// content acquisition, and deobfuscation, each independently callable, plus
// Convert which chains all of them into the end-to-end pipeline.
//
// Modifications:
//
//	The outer error taxonomy (ConversionError) is grounded on
//	chtml/err.go's ComponentError: a wrapping error type that captures a
//	stack trace at construction time and exposes the wrapped cause via
//	Unwrap, generalized here from a template-component call stack to a
//	named pipeline phase.
package htmlconv

import (
	"context"
	"fmt"

	"github.com/resoltico/htmlconv/astree"
	"github.com/resoltico/htmlconv/deobfuscate"
	"github.com/resoltico/htmlconv/dom"
	"github.com/resoltico/htmlconv/fetch"
	"github.com/resoltico/htmlconv/internal/debug"
	"github.com/resoltico/htmlconv/markdown"
	"github.com/resoltico/htmlconv/mathconv"
	"github.com/resoltico/htmlconv/rules"
	"github.com/resoltico/htmlconv/transform"
)

// Parse parses raw HTML into a read-only HTML-DOM (spec §4.1/§6).
func Parse(htmlSrc string, opts dom.ParseOptions) (*dom.Document, error) {
	debug.Tracef(0, "parse: %d bytes", len(htmlSrc))
	return dom.Parse(htmlSrc, opts)
}

// Walk converts a parsed HTML-DOM into Markdown-AST roots by dispatching
// each element through registry's tag rules (spec §4.3/§6). The returned
// slice always holds exactly one Document-kind root.
func Walk(doc *dom.Document, registry *rules.Registry) []*astree.Node {
	root := rules.Walk(doc, registry)
	debug.Tracef(0, "walk: produced %d rule errors", len(registry.Errors()))
	return []*astree.Node{root}
}

// Transform runs an ordered pipeline of AST operations over roots (spec
// §4.4/§6).
func Transform(roots []*astree.Node, pipeline transform.Pipeline) ([]*astree.Node, error) {
	return transform.Run(roots, pipeline)
}

// Serialize renders Markdown-AST roots to CommonMark/GFM text (spec
// §4.5/§6). roots must contain exactly one Document-kind root, the shape
// Walk and Transform both preserve.
func Serialize(roots []*astree.Node, opts markdown.RenderOptions) (string, error) {
	if len(roots) != 1 {
		return "", fmt.Errorf("htmlconv: serialize: expected exactly one root, got %d", len(roots))
	}
	return markdown.Render(roots[0], opts)
}

// ExtractMath pulls math expressions out of raw HTML, replacing each with
// an inert placeholder token, ahead of DOM parsing (spec §4.6/§6).
func ExtractMath(htmlSrc string) (mathconv.ExtractResult, error) {
	return mathconv.Extract(htmlSrc)
}

// RestoreMath substitutes rendered Markdown math back into placeholder
// tokens after serialization (spec §4.6/§6).
func RestoreMath(md string, placeholders map[int]mathconv.ExtractedMath, opts mathconv.RestoreOptions) (string, error) {
	return mathconv.Restore(md, placeholders, opts)
}

// Fetch retrieves a URL's body, decompressing and following the client's
// configured retry/redirect policy (spec §4.7/§6).
func Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.Response, error) {
	client, err := fetch.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return client.Fetch(ctx, rawURL)
}

// Decode decompresses resp's body per its Content-Encoding, detects its
// charset, and decodes it to a UTF-8 string (spec §4.7/§6). ok is false
// when the detected charset is unsupported; the caller should treat the
// returned string as a best-effort passthrough.
func Decode(resp *fetch.Response) (decoded string, ok bool) {
	body := fetch.Decompress(resp.Body, resp.ContentEncoding)
	charset := fetch.DetectCharset(body, resp.ContentType)
	out, ok := fetch.Decode(body, charset)
	return string(out), ok
}

// Deobfuscate reverses common obfuscation/encoding tricks found in scraped
// HTML (spec §4.7/§6).
func Deobfuscate(htmlSrc string, opts deobfuscate.Options) string {
	return deobfuscate.Deobfuscate(htmlSrc, opts)
}

// ConvertOptions bundles every phase's options for the end-to-end Convert
// pipeline. An empty URL skips the fetch phase and treats Source as
// already-fetched HTML.
type ConvertOptions struct {
	// Source is the input: either raw HTML (when URL is empty) or ignored
	// in favor of a freshly fetched body (when URL is set).
	Source      string
	URL         string
	Fetch       fetch.Options
	Deobfuscate deobfuscate.Options
	EnableMath  bool
	MathRestore mathconv.RestoreOptions
	Parse       dom.ParseOptions
	Registry    *rules.Registry
	Pipeline    transform.Pipeline
	Render      markdown.RenderOptions
}

// ConvertResult is Convert's output: the rendered markdown plus the
// intermediate artifacts a caller may want to inspect or persist.
type ConvertResult struct {
	Markdown string
	AST      []*astree.Node
}

// Convert runs the full pipeline end to end: optional fetch, optional
// deobfuscation, optional math extraction, parse, walk, transform,
// serialize, optional math restoration. Any phase's failure is wrapped in a
// ConversionError identifying which phase failed (spec §7).
func Convert(ctx context.Context, opts ConvertOptions) (*ConvertResult, error) {
	htmlSrc := opts.Source

	if opts.URL != "" {
		resp, err := Fetch(ctx, opts.URL, opts.Fetch)
		if err != nil {
			return nil, newConversionError(PhaseFetch, err)
		}
		decoded, ok := Decode(resp)
		if !ok {
			debug.Tracef(0, "convert: unsupported charset for %s, using best-effort decode", opts.URL)
		}
		htmlSrc = decoded
	}

	htmlSrc = Deobfuscate(htmlSrc, opts.Deobfuscate)

	var placeholders map[int]mathconv.ExtractedMath
	if opts.EnableMath {
		result, err := ExtractMath(htmlSrc)
		if err != nil {
			return nil, newConversionError(PhaseExtractMath, err)
		}
		htmlSrc = result.HTML
		placeholders = result.Placeholders
	}

	doc, err := Parse(htmlSrc, opts.Parse)
	if err != nil {
		return nil, newConversionError(PhaseParse, err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = rules.NewRegistry()
		rules.RegisterDefaults(registry)
	}
	roots := Walk(doc, registry)

	if len(opts.Pipeline) > 0 {
		roots, err = Transform(roots, opts.Pipeline)
		if err != nil {
			return nil, newConversionError(PhaseTransform, err)
		}
	}

	rendered, err := Serialize(roots, opts.Render)
	if err != nil {
		return nil, newConversionError(PhaseSerialize, err)
	}

	if opts.EnableMath && len(placeholders) > 0 {
		rendered, err = RestoreMath(rendered, placeholders, opts.MathRestore)
		if err != nil {
			return nil, newConversionError(PhaseRestoreMath, err)
		}
	}

	return &ConvertResult{Markdown: rendered, AST: roots}, nil
}
