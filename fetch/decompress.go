package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Decompress inspects contentEncoding and decompresses body accordingly
// (spec §4.7). On failure, or for an unrecognized encoding, the original
// body is returned unchanged.
func Decompress(body []byte, contentEncoding string) []byte {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))
	switch encoding {
	case "gzip":
		return decompressWithHeuristic(body, decompressGzip)
	case "deflate":
		return decompressWithHeuristic(body, decompressDeflate)
	case "br":
		return decompressWithHeuristic(body, decompressBrotli)
	case "zstd":
		if out, err := decompressZstd(body); err == nil {
			return out
		}
		return body
	default:
		return body
	}
}

// decompressWithHeuristic applies spec §4.7's "for non-zstd, confirm the
// body looks binary (>=10% non-printable) before attempting decompression"
// rule.
func decompressWithHeuristic(body []byte, fn func([]byte) ([]byte, error)) []byte {
	if !looksBinary(body) {
		return body
	}
	out, err := fn(body)
	if err != nil {
		return body
	}
	return out
}

func looksBinary(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	nonPrintable := 0
	for _, b := range body {
		if b < 0x09 || (b > 0x0D && b < 0x20) || b == 0x7F {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(body)) >= 0.10
}

func decompressGzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func decompressDeflate(body []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	return io.ReadAll(r)
}

func decompressBrotli(body []byte) ([]byte, error) {
	return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
}

func decompressZstd(body []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
