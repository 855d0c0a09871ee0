// Package mathconv implements the math round-trip described in spec §4.6:
// locate math-bearing elements in raw HTML, replace them with inert
// placeholders so Markdown escaping cannot corrupt them, convert their
// content to LaTeX, and restore it into the final Markdown string.
//
// Modifications:
//
//	The extractor walks the HTML tree with goquery/cascadia selectors (the
//	pattern other_examples/rohmanhakim-docs-crawler's internal/sanitizer/html.go
//	and other_examples/jemyzhang-confluence-md's
//	internal/converter/plugin_confluence.go use for CSS-selector-based DOM
//	querying) instead of the teacher's own x/net/html-only traversal, since
//	the spec's selector set (tag name, attribute presence, class name) maps
//	directly onto CSS selectors. The MathML-to-LaTeX converter walks a
//	beevik/etree tree exactly as dpotapov/go-pages's chtml/component.go
//	walks its own etree-parsed template — repurposed here from CHTML
//	directive parsing to MathML structural translation.
package mathconv

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ExtractedMath is the remembered (content, display, format) tuple for one
// placeholder (spec §4.6 step 4).
type ExtractedMath struct {
	Content   string
	IsDisplay bool
	Format    string
}

// ExtractResult is the output of Extract: the HTML with math replaced by
// inert placeholder spans, plus the placeholder table needed to restore it.
type ExtractResult struct {
	HTML         string
	Placeholders map[int]ExtractedMath
}

const placeholderSelector = "math, script[type*=math], [data-math], [data-latex], [data-mathml], [data-asciimath], " +
	".math, .tex, .latex, .katex, .mathjax, .asciimath"

var mathLikeRe = regexp.MustCompile(`\\[a-zA-Z]+|\$[^$]+\$|[=+\-*/^_]`)

// Extract locates math content in htmlSrc and substitutes placeholders
// (spec §4.6, Extractor phase).
func Extract(htmlSrc string) (ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return ExtractResult{}, fmt.Errorf("mathconv: parse: %w", err)
	}

	placeholders := make(map[int]ExtractedMath)
	id := 0

	doc.Find(placeholderSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.Closest("head").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		tagName := goquery.NodeName(sel)
		if tagName == "script" && !mathLikeRe.MatchString(text) {
			return
		}

		format := detectFormat(sel, tagName, text)
		display := detectDisplay(sel, tagName, text)
		content := text
		if format == "mathml" {
			if markup, err := goquery.OuterHtml(sel); err == nil {
				content = strings.TrimSpace(markup)
			}
		}

		id++
		placeholders[id] = ExtractedMath{Content: content, IsDisplay: display, Format: format}

		replacement := fmt.Sprintf(
			`<span data-math-placeholder="true" data-math-format="%s" data-math-display="%t">%%%%MATH_PLACEHOLDER_%d%%%%</span>`,
			format, display, id,
		)
		sel.ReplaceWithHtml(replacement)
	})

	out, err := doc.Html()
	if err != nil {
		return ExtractResult{}, fmt.Errorf("mathconv: render: %w", err)
	}
	return ExtractResult{HTML: out, Placeholders: placeholders}, nil
}

var (
	latexHintRe  = regexp.MustCompile(`\\begin\{|\\frac|\\alpha|\\beta|\\gamma|\$\$?[^$]+\$\$?`)
	asciiFnRe    = regexp.MustCompile(`\b(sqrt|sin|cos|tan|log)\s*\(`)
	asciiFracRe  = regexp.MustCompile(`[a-zA-Z0-9_]+\s*/\s*[a-zA-Z0-9_]+`)
	punctRe      = regexp.MustCompile(`[=+\-*^_{}]`)
	scriptTypeRe = regexp.MustCompile(`math/(tex|asciimath)`)
)

// detectFormat implements spec §4.6 step 2's priority order: explicit
// attribute > element type > content heuristics.
func detectFormat(sel *goquery.Selection, tagName, content string) string {
	for _, attr := range []string{"data-math-format", "data-latex", "data-mathml", "data-asciimath"} {
		if v, ok := sel.Attr(attr); ok && attr == "data-math-format" && v != "" {
			return v
		}
	}
	if _, ok := sel.Attr("data-mathml"); ok {
		return "mathml"
	}
	if _, ok := sel.Attr("data-latex"); ok {
		return "latex"
	}
	if _, ok := sel.Attr("data-asciimath"); ok {
		return "ascii"
	}
	if tagName == "math" {
		return "mathml"
	}
	if tagName == "script" {
		if t, _ := sel.Attr("type"); scriptTypeRe.MatchString(t) {
			if strings.Contains(t, "asciimath") {
				return "ascii"
			}
			return "latex"
		}
	}
	if strings.Contains(content, "<math") {
		return "mathml"
	}
	if latexHintRe.MatchString(content) {
		return "latex"
	}
	if asciiFnRe.MatchString(content) || asciiFracRe.MatchString(content) {
		return "ascii"
	}
	if len(punctRe.FindAllString(content, -1)) > 3 {
		return "latex"
	}
	return "latex"
}

var (
	displayClassRe = regexp.MustCompile(`\b(display-math|math-display|block|equation)\b`)
	complexRe      = regexp.MustCompile(`\\begin\{(align|equation|gather|multline)|\\frac|\\sum|\\int|\\prod`)
)

// detectDisplay implements spec §4.6 step 3.
func detectDisplay(sel *goquery.Selection, tagName, content string) bool {
	if v, ok := sel.Attr("display"); ok && v == "block" {
		return true
	}
	if v, ok := sel.Attr("mode"); ok && v == "display" {
		return true
	}
	if v, ok := sel.Attr("data-math-display"); ok && v == "block" {
		return true
	}
	if class, ok := sel.Attr("class"); ok && displayClassRe.MatchString(class) {
		return true
	}
	if tagName == "script" {
		if t, _ := sel.Attr("type"); strings.Contains(t, "mode=display") {
			return true
		}
		if strings.Contains(content, `\displaystyle`) {
			return true
		}
	}
	if insideInlineContext(sel) {
		return false
	}
	if isOnlySignificantChild(sel) {
		return true
	}
	if complexRe.MatchString(content) || (len(content) > 30 && strings.ContainsAny(content, `\_^`)) {
		return true
	}
	return false
}

func insideInlineContext(sel *goquery.Selection) bool {
	return sel.Closest("h1,h2,h3,h4,h5,h6,li,a").Length() > 0
}

func isOnlySignificantChild(sel *goquery.Selection) bool {
	parent := sel.Parent()
	if parent.Length() == 0 {
		return false
	}
	var node *html.Node
	parent.Each(func(_ int, p *goquery.Selection) { node = p.Get(0) })
	if node == nil {
		return false
	}
	count := 0
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		count++
	}
	return count == 1 && isBlockTag(node.Data)
}

func isBlockTag(tag string) bool {
	switch tag {
	case "div", "p", "section", "article", "body", "td", "th":
		return true
	}
	return false
}
