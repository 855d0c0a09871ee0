package deobfuscate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeCfEmail mirrors Cloudflare's own encoder, for test fixture
// construction: a random key XORed into every byte, key stored first.
func encodeCfEmail(email string, key byte) string {
	out := []byte{key}
	for _, b := range []byte(email) {
		out = append(out, b^key)
	}
	hexOut := ""
	for _, b := range out {
		hexOut += hexByte(b)
	}
	return hexOut
}

func hexByte(b byte) string {
	const hexDigits = "0123456789abcdef"
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}

func TestDecodeCloudflareEmail(t *testing.T) {
	encoded := encodeCfEmail("user@example.com", 0x42)
	html := `<a data-cfemail="` + encoded + `">[email protected]</a>`

	out := Deobfuscate(html, Options{})
	assert.Contains(t, out, "user@example.com")
}

func TestDecodeBase64TextPayload(t *testing.T) {
	html := `<img src="data:text/plain;base64,aGVsbG8gd29ybGQ=">`
	out := Deobfuscate(html, Options{})
	assert.Contains(t, out, "hello world")
}

func TestDecodeBase64BinaryPayloadPreservedAsDataURL(t *testing.T) {
	html := `<img src="data:image/png;base64,aGVsbG8=">`
	out := Deobfuscate(html, Options{})
	assert.Contains(t, out, "data:image/png;base64,aGVsbG8=")
}

func TestDecodeROT13(t *testing.T) {
	html := `<span data-rot13="uryyb">`
	out := Deobfuscate(html, Options{})
	assert.Contains(t, out, "hello")
}

func TestDisabledDecoderSkipsMatch(t *testing.T) {
	html := `<span data-rot13="uryyb">`
	out := Deobfuscate(html, Options{Enabled: []MatchType{TypeBase64}})
	assert.Contains(t, out, "uryyb") // rot13 decoder not enabled, left untouched
}

func TestPreserveRawLinksPrependsComment(t *testing.T) {
	html := `<span data-rot13="uryyb">`
	out := Deobfuscate(html, Options{PreserveRawLinks: true})
	assert.Contains(t, out, "<!--")
	assert.Contains(t, out, "hello")
}

func TestDecoderFailureIsolated(t *testing.T) {
	html := `<img src="data:text/plain;base64,!!!not-valid!!!"><span data-rot13="uryyb">`
	var errs int
	out := Deobfuscate(html, Options{OnDecodeError: func(m Match, err error) { errs++ }})
	require.Equal(t, 1, errs)
	assert.Contains(t, out, "hello") // the valid match still decoded despite the bad one
}

func TestCleanScriptsRemovesCloudflareScript(t *testing.T) {
	html := `<script data-cfasync="false">var x=1;</script><p>keep</p>`
	out := Deobfuscate(html, Options{CleanScripts: true})
	assert.NotContains(t, out, "data-cfasync")
	assert.Contains(t, out, "<p>keep</p>")
}
