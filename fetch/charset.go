package fetch

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

var charsetAttrRe = regexp.MustCompile(`(?i)charset\s*=\s*['"]?([\w.\-]+)`)

// DetectCharset implements spec §4.7's preference order: Content-Type
// charset, then BOM, then multi-byte UTF-8 content sniffing, defaulting to
// UTF-8.
func DetectCharset(body []byte, contentType string) string {
	if m := charsetAttrRe.FindStringSubmatch(contentType); m != nil {
		return strings.ToLower(m[1])
	}
	switch {
	case bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}):
		return "utf-8"
	case bytes.HasPrefix(body, []byte{0xFE, 0xFF}):
		return "utf-16be"
	case bytes.HasPrefix(body, []byte{0xFF, 0xFE}):
		return "utf-16le"
	}
	if looksLikeMultibyteUTF8(body) {
		return "utf-8"
	}
	return "utf-8"
}

func looksLikeMultibyteUTF8(body []byte) bool {
	for i := 0; i < len(body); i++ {
		if body[i] >= 0xC2 && body[i] <= 0xF4 {
			return true
		}
	}
	return false
}

// Decode converts body from the named charset to UTF-8 (spec §4.7). Only
// UTF-8 and ISO-8859-1/Latin-1 are guaranteed; other charsets are decoded
// when golang.org/x/text's htmlindex knows them, and any charset it does not
// know is returned unchanged alongside ok=false so the caller can log a
// warning.
func Decode(body []byte, charset string) (decoded []byte, ok bool) {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return body, true
	case "iso-8859-1", "latin1", "windows-1252", "cp1252":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
		if err != nil {
			return body, false
		}
		return out, true
	}
	if enc, err := htmlindex.Get(name); err == nil {
		if out, err := enc.NewDecoder().Bytes(body); err == nil {
			return out, true
		}
	}
	return body, false
}
