package mathconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInlineLatex(t *testing.T) {
	res, err := Extract(`<p>Einstein: <span class="math">E = mc^2</span> is famous.</p>`)
	require.NoError(t, err)
	require.Len(t, res.Placeholders, 1)
	math := res.Placeholders[1]
	assert.Equal(t, "latex", math.Format)
	assert.Contains(t, res.HTML, "MATH_PLACEHOLDER_1")
}

func TestExtractDisplayMathML(t *testing.T) {
	res, err := Extract(`<div><math display="block"><mi>x</mi></math></div>`)
	require.NoError(t, err)
	require.Len(t, res.Placeholders, 1)
	assert.Equal(t, "mathml", res.Placeholders[1].Format)
	assert.True(t, res.Placeholders[1].IsDisplay)
}

func TestExtractCapturesMathMLMarkupForConversion(t *testing.T) {
	res, err := Extract(`<p><math><mfrac><mi>a</mi><mi>b</mi></mfrac></math></p>`)
	require.NoError(t, err)
	require.Len(t, res.Placeholders, 1)
	math := res.Placeholders[1]
	require.Equal(t, "mathml", math.Format)

	out, err := Convert(math.Format, math.Content, math.IsDisplay)
	require.NoError(t, err)
	assert.Equal(t, `\frac{a}{b}`, out)
}

func TestExtractSkipsHeadAndEmpty(t *testing.T) {
	res, err := Extract(`<html><head><script type="math/tex"> </script></head><body><p>no math here</p></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, res.Placeholders)
}

func TestConvertMathMLFraction(t *testing.T) {
	out, err := Convert("mathml", `<math><mfrac><mn>1</mn><mn>2</mn></mfrac></math>`, false)
	require.NoError(t, err)
	assert.Equal(t, `\frac{1}{2}`, out)
}

func TestConvertMathMLGreekAndOperator(t *testing.T) {
	out, err := Convert("mathml", `<math><mi>alpha</mi><mo>&#215;</mo><mi>beta</mi></math>`, false)
	require.NoError(t, err)
	assert.Contains(t, out, `\alpha`)
	assert.Contains(t, out, `\beta`)
}

func TestConvertASCIIMathFraction(t *testing.T) {
	out, err := Convert("ascii", "a/b", false)
	require.NoError(t, err)
	assert.Equal(t, `\frac{a}{b}`, out)
}

func TestConvertLatexPassthroughCollapsesStrayBraces(t *testing.T) {
	out, err := Convert("latex", `\frac{1}{2}{}`, false)
	require.NoError(t, err)
	assert.Equal(t, `\frac{1}{2}`, out)
}

func TestRestoreWrapsInlineAndDisplay(t *testing.T) {
	placeholders := map[int]ExtractedMath{
		1: {Content: "x", Format: "latex", IsDisplay: false},
		2: {Content: "y", Format: "latex", IsDisplay: true},
	}
	md := "Inline %%MATH_PLACEHOLDER_1%% end.\n\n%%MATH_PLACEHOLDER_2%%\n"
	out, err := Restore(md, placeholders, RestoreOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "$x$")
	assert.Contains(t, out, "$$y$$")
}

func TestRestoreIsIdempotentWithNoPlaceholders(t *testing.T) {
	md := "Just plain text, no math."
	out, err := Restore(md, map[int]ExtractedMath{}, RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, md, out)
}

func TestRestoreWarnsOnUnbalancedDelimiters(t *testing.T) {
	var warning string
	placeholders := map[int]ExtractedMath{1: {Content: "x", Format: "latex"}}
	md := "$stray %%MATH_PLACEHOLDER_1%%"
	_, err := Restore(md, placeholders, RestoreOptions{OnWarning: func(msg string) { warning = msg }})
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
}
