package mathconv

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// Converter translates math source text in one notation into LaTeX.
type Converter func(content string, isDisplay bool) (string, error)

// registry maps the format names spec §4.6 names to their converter.
var registry = map[string]Converter{
	"latex":     convertLatex,
	"tex":       convertLatex,
	"mathml":    convertMathML,
	"mml":       convertMathML,
	"ascii":     convertASCIIMath,
	"asciimath": convertASCIIMath,
}

// Convert dispatches content of the given format to its converter, falling
// back to the identity transform for an unregistered format.
func Convert(format, content string, isDisplay bool) (string, error) {
	conv, ok := registry[strings.ToLower(format)]
	if !ok {
		return content, nil
	}
	return conv(content, isDisplay)
}

var (
	strayBraceRe  = regexp.MustCompile(`\{\s*\}`)
	subSupSpaceRe = regexp.MustCompile(`([_^])\s+`)
)

// convertLatex normalizes already-LaTeX content: collapses stray empty
// braces and tightens sub/superscript spacing (spec §4.6).
func convertLatex(content string, isDisplay bool) (string, error) {
	out := strayBraceRe.ReplaceAllString(content, "")
	out = subSupSpaceRe.ReplaceAllString(out, "$1")
	return postProcess(out), nil
}

var greekNames = map[string]string{
	"alpha": `\alpha`, "beta": `\beta`, "gamma": `\gamma`, "delta": `\delta`,
	"epsilon": `\epsilon`, "theta": `\theta`, "lambda": `\lambda`, "mu": `\mu`,
	"pi": `\pi`, "sigma": `\sigma`, "phi": `\phi`, "omega": `\omega`,
	"Gamma": `\Gamma`, "Delta": `\Delta`, "Theta": `\Theta`, "Lambda": `\Lambda`,
	"Sigma": `\Sigma`, "Phi": `\Phi`, "Omega": `\Omega`,
}

var functionNames = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"log": true, "ln": true, "exp": true, "lim": true, "min": true, "max": true,
	"det": true, "gcd": true,
}

var operatorMap = map[string]string{
	"×": `\cdot`, "·": `\cdot`, "≤": `\leq`, "≥": `\geq`, "±": `\pm`,
	"∑": `\sum`, "∫": `\int`, "∏": `\prod`, "→": `\rightarrow`, "←": `\leftarrow`,
	"≠": `\neq`, "≈": `\approx`, "∞": `\infty`, "∂": `\partial`, "∇": `\nabla`,
	"∈": `\in`, "∉": `\notin`, "⊂": `\subset`, "⊆": `\subseteq`, "∪": `\cup`,
	"∩": `\cap`, "√": `\sqrt`, "°": `^\circ`,
}

var stretchyOperators = map[string]bool{
	"(": true, ")": true, "[": true, "]": true, "{": true, "}": true, "|": true,
}

// convertMathML walks a MathML element tree and emits LaTeX per the
// element table in spec §4.6. On parse failure it falls back to a
// regex-based textual rewrite of the outer <math>...</math> body.
func convertMathML(content string, isDisplay bool) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil || doc.Root() == nil {
		return postProcess(fallbackMathMLRewrite(content)), nil
	}
	return postProcess(renderMathMLElement(doc.Root())), nil
}

func renderMathMLElement(el *etree.Element) string {
	tag := localName(el.Tag)
	switch tag {
	case "math", "mrow":
		return renderChildren(el)
	case "mi":
		return renderIdentifier(strings.TrimSpace(el.Text()))
	case "mn":
		return strings.TrimSpace(el.Text())
	case "mo":
		return renderOperator(el)
	case "mfrac":
		children := el.ChildElements()
		if len(children) >= 2 {
			return fmt.Sprintf(`\frac{%s}{%s}`, renderMathMLElement(children[0]), renderMathMLElement(children[1]))
		}
		return renderChildren(el)
	case "msup":
		return renderScript(el, "^")
	case "msub":
		return renderScript(el, "_")
	case "msubsup":
		children := el.ChildElements()
		if len(children) >= 3 {
			base := renderMathMLElement(children[0])
			sub := renderMathMLElement(children[1])
			sup := renderMathMLElement(children[2])
			return fmt.Sprintf(`%s_{%s}^{%s}`, base, sub, sup)
		}
		return renderChildren(el)
	case "msqrt":
		return fmt.Sprintf(`\sqrt{%s}`, renderChildren(el))
	case "mroot":
		children := el.ChildElements()
		if len(children) >= 2 {
			return fmt.Sprintf(`\sqrt[%s]{%s}`, renderMathMLElement(children[1]), renderMathMLElement(children[0]))
		}
		return renderChildren(el)
	case "mfenced":
		return renderFenced(el)
	case "mtable":
		return renderTable(el)
	case "mover", "munder", "munderover":
		return renderAccentOrLimits(el, tag)
	case "mtext":
		return fmt.Sprintf(`\text{%s}`, strings.TrimSpace(el.Text()))
	default:
		return renderChildren(el)
	}
}

func renderChildren(el *etree.Element) string {
	var sb strings.Builder
	for _, c := range el.ChildElements() {
		sb.WriteString(renderMathMLElement(c))
	}
	return sb.String()
}

func renderIdentifier(name string) string {
	if g, ok := greekNames[name]; ok {
		return g
	}
	if functionNames[name] {
		return `\` + name
	}
	if len([]rune(name)) > 1 {
		return fmt.Sprintf(`\text{%s}`, name)
	}
	return name
}

func renderOperator(el *etree.Element) string {
	text := strings.TrimSpace(el.Text())
	mapped, known := operatorMap[text]
	if !known {
		mapped = text
	}
	if stretchyOperators[text] {
		if text == "(" || text == "[" || text == "{" || text == "|" {
			return `\left` + mapped
		}
		return `\right` + mapped
	}
	return mapped
}

func renderScript(el *etree.Element, op string) string {
	children := el.ChildElements()
	if len(children) < 2 {
		return renderChildren(el)
	}
	base := renderMathMLElement(children[0])
	script := renderMathMLElement(children[1])
	if len([]rune(script)) > 1 {
		return fmt.Sprintf("%s%s{%s}", base, op, script)
	}
	return fmt.Sprintf("%s%s%s", base, op, script)
}

func renderFenced(el *etree.Element) string {
	open := el.SelectAttrValue("open", "(")
	closeSym := el.SelectAttrValue("close", ")")
	inner := renderChildren(el)
	if open == "{" && closeSym == "}" && strings.Contains(inner, "|") {
		return fmt.Sprintf(`\{%s\}`, inner)
	}
	return fmt.Sprintf(`\left%s%s\right%s`, open, inner, closeSym)
}

var matrixKinds = map[string]string{"(": "pmatrix", "[": "bmatrix", "{": "Bmatrix", "|": "vmatrix", "‖": "Vmatrix"}

func renderTable(el *etree.Element) string {
	kind := "matrix"
	if parent := el.Parent(); parent != nil && localName(parent.Tag) == "mfenced" {
		open := parent.SelectAttrValue("open", "")
		if k, ok := matrixKinds[open]; ok {
			kind = k
		}
	}
	var rows []string
	for _, row := range el.ChildElements() {
		if localName(row.Tag) != "mtr" {
			continue
		}
		var cells []string
		for _, cell := range row.ChildElements() {
			if localName(cell.Tag) != "mtd" {
				continue
			}
			cells = append(cells, renderChildren(cell))
		}
		rows = append(rows, strings.Join(cells, " & "))
	}
	body := strings.Join(rows, ` \\ `)
	if el.SelectAttrValue("frame", "") == "solid" {
		cols := 1
		if len(rows) > 0 {
			cols = len(strings.Split(rows[0], "&"))
		}
		colSpec := strings.Repeat("c", cols)
		return fmt.Sprintf(`\left(\begin{array}{%s}%s\end{array}\right)`, colSpec, body)
	}
	return fmt.Sprintf(`\begin{%s}%s\end{%s}`, kind, body, kind)
}

var largeOperators = map[string]string{
	`\sum`: `\sum`, `\prod`: `\prod`, `\int`: `\int`, `\bigcup`: `\bigcup`, `\bigcap`: `\bigcap`,
}

func renderAccentOrLimits(el *etree.Element, tag string) string {
	children := el.ChildElements()
	if len(children) == 0 {
		return ""
	}
	base := renderMathMLElement(children[0])
	if largeOperators[base] != "" {
		switch {
		case tag == "munderover" && len(children) >= 3:
			return fmt.Sprintf(`%s\limits_{%s}^{%s}`, base, renderMathMLElement(children[1]), renderMathMLElement(children[2]))
		case len(children) >= 2:
			return fmt.Sprintf(`%s\limits_{%s}`, base, renderMathMLElement(children[1]))
		}
	}
	if len(children) < 2 {
		return base
	}
	accent := accentFor(renderMathMLElement(children[1]))
	return fmt.Sprintf(`%s{%s}`, accent, base)
}

func accentFor(symbol string) string {
	switch symbol {
	case "^":
		return `\hat`
	case "¯", "-":
		return `\bar`
	case "~":
		return `\tilde`
	case "→":
		return `\vec`
	case "˙", ".":
		return `\dot`
	case "¨":
		return `\ddot`
	default:
		return `\hat`
	}
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

var fallbackMathRe = regexp.MustCompile(`(?s)<math[^>]*>(.*)</math>`)

// fallbackMathMLRewrite is the textual-regex fallback spec §4.6 names for
// when MathML parsing fails: extract the outer body and rewrite a fixed
// table of constructs.
func fallbackMathMLRewrite(content string) string {
	m := fallbackMathRe.FindStringSubmatch(content)
	body := content
	if len(m) == 2 {
		body = m[1]
	}
	body = regexp.MustCompile(`<mfrac>\s*<[^>]+>([^<]*)</[^>]+>\s*<[^>]+>([^<]*)</[^>]+>\s*</mfrac>`).
		ReplaceAllString(body, `\frac{$1}{$2}`)
	body = regexp.MustCompile(`<msup>\s*<[^>]+>([^<]*)</[^>]+>\s*<[^>]+>([^<]*)</[^>]+>\s*</msup>`).
		ReplaceAllString(body, `$1^{$2}`)
	body = regexp.MustCompile(`<msub>\s*<[^>]+>([^<]*)</[^>]+>\s*<[^>]+>([^<]*)</[^>]+>\s*</msub>`).
		ReplaceAllString(body, `$1_{$2}`)
	body = regexp.MustCompile(`<msqrt>(.*?)</msqrt>`).ReplaceAllString(body, `\sqrt{$1}`)
	body = regexp.MustCompile(`<[^>]+>`).ReplaceAllString(body, "")
	for sym, latex := range operatorMap {
		body = strings.ReplaceAll(body, sym, latex)
	}
	return body
}

var (
	doubleBackslashRe = regexp.MustCompile(`\\\\+`)
	braceWhitespaceRe = regexp.MustCompile(`\{\s+|\s+\}`)
	binaryOpSpaceRe   = regexp.MustCompile(`\s*([+\-=])\s*`)
)

// postProcess normalizes operator spacing, collapses doubled backslashes,
// and trims stray whitespace inside braces (spec §4.6).
func postProcess(s string) string {
	s = doubleBackslashRe.ReplaceAllString(s, `\`)
	s = braceWhitespaceRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.TrimSpace(m)
	})
	s = binaryOpSpaceRe.ReplaceAllString(s, ` $1 `)
	return strings.TrimSpace(s)
}

var (
	asciiFracRewriteRe = regexp.MustCompile(`([a-zA-Z0-9_]+)\s*/\s*([a-zA-Z0-9_]+)`)
	asciiSqrtRe        = regexp.MustCompile(`sqrt\(([^)]*)\)`)
)

// convertASCIIMath performs the light rewrite spec §4.6 describes.
func convertASCIIMath(content string, isDisplay bool) (string, error) {
	out := asciiSqrtRe.ReplaceAllString(content, `\sqrt{$1}`)
	out = asciiFracRewriteRe.ReplaceAllString(out, `\frac{$1}{$2}`)
	for name, latex := range greekNames {
		out = regexp.MustCompile(`\b`+name+`\b`).ReplaceAllString(out, latex)
	}
	for name := range functionNames {
		out = regexp.MustCompile(`\b`+name+`\b`).ReplaceAllString(out, `\`+name)
	}
	return postProcess(out), nil
}
