// Package deobfuscate reverses common obfuscation techniques encountered in
// scraped HTML (spec §4.7 step 5: Cloudflare email hex-XOR encoding,
// base64-encoded payloads, ROT13 text).
//
// Modifications:
//
//	The decoder dispatch follows dpotapov/go-pages's chtml/component.go
//	registry-by-type pattern (here: match type, not tag name) and
//	errhandler.go's per-item error isolation (one bad match never aborts
//	the whole pass).
package deobfuscate

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MatchType identifies which decoder a Match should be dispatched to.
type MatchType string

const (
	TypeCloudflareEmail MatchType = "cloudflare"
	TypeBase64          MatchType = "base64"
	TypeROT13           MatchType = "rot13"
)

// Match is one obfuscation-pattern hit in the source HTML (spec §4.7,
// GLOSSARY "Deobfuscation pattern").
type Match struct {
	Type     MatchType
	Start    int
	End      int
	Content  string
	Metadata map[string]string
}

// Options configures Deobfuscate.
type Options struct {
	// Enabled lists the decoder types to run. Nil means all three.
	Enabled []MatchType
	// CleanScripts removes <script> tags carrying data-cfasync or
	// referencing Cloudflare email decoding before pattern detection.
	CleanScripts bool
	// PreserveRawLinks prepends an HTML comment with the original content
	// before each decoded replacement.
	PreserveRawLinks bool
	// OnDecodeError, if set, is called for each decoder failure instead of
	// silently skipping the match (spec §4.7: "Decoder failures are
	// isolated").
	OnDecodeError func(Match, error)
}

func (o Options) enabledSet() map[MatchType]bool {
	types := o.Enabled
	if types == nil {
		types = []MatchType{TypeCloudflareEmail, TypeBase64, TypeROT13}
	}
	set := make(map[MatchType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

var cfScriptRe = regexp.MustCompile(`(?is)<script[^>]*(data-cfasync|cloudflare[-_]?static/email-decode)[^>]*>.*?</script>`)

// Deobfuscate runs the pipeline spec §4.7 describes: optional script
// cleanup, pattern detection, highest-to-lowest-offset decoding.
func Deobfuscate(htmlSrc string, opts Options) string {
	if opts.CleanScripts {
		htmlSrc = cfScriptRe.ReplaceAllString(htmlSrc, "")
	}

	matches := detect(htmlSrc)
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start > matches[j].Start })

	enabled := opts.enabledSet()
	out := htmlSrc
	for _, m := range matches {
		if !enabled[m.Type] {
			continue
		}
		decoded, err := decode(m)
		if err != nil {
			if opts.OnDecodeError != nil {
				opts.OnDecodeError(m, err)
			}
			continue
		}
		replacement := decoded
		if opts.PreserveRawLinks {
			replacement = fmt.Sprintf("<!--%s-->%s", escapeComment(out[m.Start:m.End]), decoded)
		}
		out = out[:m.Start] + replacement + out[m.End:]
	}
	return out
}

func escapeComment(s string) string {
	return strings.ReplaceAll(s, "--", "-‑")
}

var (
	cfEmailRe = regexp.MustCompile(`data-cfemail="([0-9a-fA-F]+)"`)
	base64Re  = regexp.MustCompile(`data:([\w/+.\-]+);base64,([^\s"'<>)]+)`)
	rot13Re   = regexp.MustCompile(`data-rot13="([^"]*)"`)
)

// detect yields matches sorted by start offset (spec §4.7 step 2).
func detect(htmlSrc string) []Match {
	var matches []Match
	for _, m := range cfEmailRe.FindAllStringSubmatchIndex(htmlSrc, -1) {
		matches = append(matches, Match{
			Type: TypeCloudflareEmail, Start: m[0], End: m[1],
			Content: htmlSrc[m[2]:m[3]],
		})
	}
	for _, m := range base64Re.FindAllStringSubmatchIndex(htmlSrc, -1) {
		matches = append(matches, Match{
			Type: TypeBase64, Start: m[0], End: m[1],
			Content:  htmlSrc[m[4]:m[5]],
			Metadata: map[string]string{"mime": htmlSrc[m[2]:m[3]]},
		})
	}
	for _, m := range rot13Re.FindAllStringSubmatchIndex(htmlSrc, -1) {
		matches = append(matches, Match{
			Type: TypeROT13, Start: m[0], End: m[1],
			Content: htmlSrc[m[2]:m[3]],
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

func decode(m Match) (string, error) {
	switch m.Type {
	case TypeCloudflareEmail:
		return decodeCloudflareEmail(m.Content)
	case TypeBase64:
		return decodeBase64(m)
	case TypeROT13:
		return decodeROT13(m.Content), nil
	default:
		return "", fmt.Errorf("deobfuscate: unknown match type %q", m.Type)
	}
}

// decodeCloudflareEmail reverses Cloudflare's hex-XOR `cfemail` encoding:
// the first byte is the XOR key, applied to every subsequent byte.
func decodeCloudflareEmail(hexStr string) (string, error) {
	raw, err := hexDecode(hexStr)
	if err != nil {
		return "", fmt.Errorf("deobfuscate: cloudflare email: %w", err)
	}
	if len(raw) < 1 {
		return "", fmt.Errorf("deobfuscate: cloudflare email: empty payload")
	}
	key := raw[0]
	out := make([]byte, len(raw)-1)
	for i, b := range raw[1:] {
		out[i] = b ^ key
	}
	return string(out), nil
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}
	return out, nil
}

// decodeBase64 decodes a data:<mime>;base64,<payload> URL, preserving
// binary payloads as a re-encoded data URL (spec §4.7 step 4).
func decodeBase64(m Match) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Content)
	if err != nil {
		return "", fmt.Errorf("deobfuscate: base64: %w", err)
	}
	mime := m.Metadata["mime"]
	if strings.HasPrefix(mime, "text/") {
		return string(raw), nil
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, m.Content), nil
}

func decodeROT13(s string) string {
	return strings.Map(rot13Rune, s)
}

func rot13Rune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return 'a' + (r-'a'+13)%26
	case r >= 'A' && r <= 'Z':
		return 'A' + (r-'A'+13)%26
	default:
		return r
	}
}
