package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	client, err := NewClient(Options{Timeout: 2 * time.Second})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html></html>", string(resp.Body))
}

func TestFetchRetriesOnServerErrorThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Options{Timeout: 2 * time.Second, RetryLimit: 2})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTP5xx, fe.Kind)
	assert.Equal(t, 3, calls) // initial + 2 retries
}

func TestFetchClassifies4xxWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(Options{Timeout: 2 * time.Second, RetryLimit: 3})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTP4xx, fe.Kind)
	assert.Equal(t, 1, calls) // 4xx is not in the retryable status set
}

func TestDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("hello world, this is compressed content"))
	gz.Close()

	out := Decompress(buf.Bytes(), "gzip")
	assert.Equal(t, "hello world, this is compressed content", string(out))
}

func TestDecompressUnknownEncodingReturnsUnchanged(t *testing.T) {
	body := []byte("plain text")
	out := Decompress(body, "identity")
	assert.Equal(t, body, out)
}

func TestDetectCharsetFromContentType(t *testing.T) {
	cs := DetectCharset([]byte("body"), `text/html; charset=ISO-8859-1`)
	assert.Equal(t, "iso-8859-1", cs)
}

func TestDetectCharsetFromBOM(t *testing.T) {
	cs := DetectCharset([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, "text/plain")
	assert.Equal(t, "utf-8", cs)
}

func TestDecodeLatin1(t *testing.T) {
	// 0xE9 is "é" in ISO-8859-1.
	out, ok := Decode([]byte{0xE9}, "iso-8859-1")
	require.True(t, ok)
	assert.Equal(t, "é", string(out))
}

func TestDecodeUnsupportedCharsetReturnsUnchangedWithWarning(t *testing.T) {
	body := []byte("data")
	out, ok := Decode(body, "x-made-up-charset")
	assert.False(t, ok)
	assert.Equal(t, body, out)
}
