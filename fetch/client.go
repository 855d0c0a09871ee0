// Package fetch implements content acquisition (spec §4.7): a thin HTTP
// client wrapper, response decompression, charset detection/decoding, and
// the FetchError taxonomy mapped from transport conditions (spec §7).
//
// Modifications:
//
//	Grounded on dpotapov/go-pages's httpcall.go (request construction: query
//	encoding, basic auth, cookies, header passthrough) and httpresp.go
//	(status-code-driven response classification), generalized from a CHTML
//	component bound to an in-process router to a standalone client bound to
//	the real network, with retry/redirect/compression/charset handling added
//	per spec §4.7.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures a Client (spec §4.7).
type Options struct {
	UserAgent string
	// DisableCompression turns off the transport's request for compressed
	// responses. Compression is on by default.
	DisableCompression bool
	Timeout             time.Duration // default 30s
	RetryLimit          int           // default 3
	MaxRedirects        int           // default 10
	CookieJar           http.CookieJar
	ProxyURL            string
	ProxyUsername       string
	ProxyPassword       string
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RetryLimit == 0 {
		o.RetryLimit = 3
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = 10
	}
	if o.UserAgent == "" {
		o.UserAgent = "htmlconv/1.0"
	}
	return o
}

var retryableStatuses = map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true}

// Response is the normalized result of a fetch (spec §6).
type Response struct {
	StatusCode      int
	Headers         http.Header
	Body            []byte
	ContentType     string
	ContentEncoding string
}

// Client wraps net/http.Client with the retry/redirect/proxy policy spec
// §4.7 describes.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// NewClient builds a Client from opts, applying defaults.
func NewClient(opts Options) (*Client, error) {
	opts = opts.withDefaults()

	transport := &http.Transport{DisableCompression: opts.DisableCompression}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("fetch: parse proxy url: %w", err)
		}
		if opts.ProxyUsername != "" {
			proxyURL.User = url.UserPassword(opts.ProxyUsername, opts.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	hc := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		Jar:       opts.CookieJar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= opts.MaxRedirects {
				return &FetchError{Kind: KindRedirectLoop, URL: req.URL.String()}
			}
			return nil
		},
	}
	return &Client{opts: opts, httpClient: hc}, nil
}

// Fetch issues a GET request against rawURL, retrying per the configured
// policy on retryable statuses (GET only, spec §4.7).
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryLimit; attempt++ {
		resp, err := c.do(ctx, rawURL)
		if err == nil {
			if !retryableStatuses[resp.StatusCode] {
				return resp, classifyStatus(rawURL, resp.StatusCode)
			}
			lastErr = classifyStatus(rawURL, resp.StatusCode)
			if attempt == c.opts.RetryLimit {
				return resp, lastErr
			}
			continue
		}
		lastErr = err
		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == KindRedirectLoop {
			return nil, err
		}
		if attempt == c.opts.RetryLimit {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindDNS, URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(rawURL, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindHTTP5xx, URL: rawURL, Cause: err}
	}

	return &Response{
		StatusCode:      res.StatusCode,
		Headers:         res.Header,
		Body:            body,
		ContentType:     res.Header.Get("Content-Type"),
		ContentEncoding: res.Header.Get("Content-Encoding"),
	}, nil
}

func classifyStatus(rawURL string, status int) error {
	switch {
	case status >= 400 && status < 500:
		return &FetchError{Kind: KindHTTP4xx, URL: rawURL, StatusCode: status}
	case status >= 500:
		return &FetchError{Kind: KindHTTP5xx, URL: rawURL, StatusCode: status}
	default:
		return nil
	}
}

func classifyTransportErr(rawURL string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: rawURL, Cause: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{Kind: KindDNS, URL: rawURL, Cause: err}
	}
	if strings.Contains(err.Error(), "connection refused") {
		return &FetchError{Kind: KindRefused, URL: rawURL, Cause: err}
	}
	return &FetchError{Kind: KindRefused, URL: rawURL, Cause: err}
}
