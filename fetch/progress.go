package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
)

// progressUpgrader is a Gorilla WebSocket instance used to turn an incoming
// HTTP request into a duplex progress-notification channel, mirroring
// go-pages's own wsUpgrader (pages.go) used there to push component
// re-renders instead of fetch progress.
var progressUpgrader = websocket.Upgrader{}

// ProgressMessage is one frame pushed to a subscriber while a streaming
// fetch is in flight.
type ProgressMessage struct {
	BytesRead  int64  `json:"bytesRead"`
	TotalBytes int64  `json:"totalBytes,omitempty"`
	Done       bool   `json:"done,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProgressConn is a websocket connection subscribed to a single fetch's
// progress, and able to request its cancellation.
type ProgressConn struct {
	ws *websocket.Conn
}

// UpgradeProgress upgrades an incoming HTTP request to a websocket
// connection for FetchWithProgress to push ProgressMessage frames over.
func UpgradeProgress(w http.ResponseWriter, r *http.Request) (*ProgressConn, error) {
	ws, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: upgrade progress connection: %w", err)
	}
	return &ProgressConn{ws: ws}, nil
}

func (p *ProgressConn) notify(msg ProgressMessage) error {
	return p.ws.WriteJSON(msg)
}

// Close closes the underlying websocket connection.
func (p *ProgressConn) Close() error { return p.ws.Close() }

// watchCancel mirrors go-pages's pages.go read loop: a goroutine that reads
// incoming JSON messages and signals cancel when the subscriber sends
// {"cancel": true} or closes the connection, generalized here from
// "re-render on every incoming message" to "cancel the in-flight fetch".
func (p *ProgressConn) watchCancel(cancel context.CancelFunc) {
	go func() {
		for {
			var msg struct {
				Cancel bool `json:"cancel"`
			}
			if err := p.ws.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Cancel {
				cancel()
				return
			}
		}
	}()
}

// FetchWithProgress behaves like Fetch but streams BytesRead/TotalBytes
// updates to pc as the body downloads, and cancels the request if pc
// receives a {"cancel": true} message. No retry: a cancelled or broken
// streaming fetch is surfaced directly rather than replayed from the start.
func (c *Client) FetchWithProgress(ctx context.Context, rawURL string, pc *ProgressConn) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if pc != nil {
		pc.watchCancel(cancel)
	}

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

	total := res.ContentLength
	var body []byte
	buf := make([]byte, 32*1024)
	for {
		n, readErr := res.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
			if pc != nil {
				_ = pc.notify(ProgressMessage{BytesRead: int64(len(body)), TotalBytes: total})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if pc != nil {
				_ = pc.notify(ProgressMessage{BytesRead: int64(len(body)), TotalBytes: total, Error: readErr.Error()})
			}
			return nil, &FetchError{Kind: KindHTTP5xx, URL: rawURL, Cause: readErr}
		}
	}
	if pc != nil {
		_ = pc.notify(ProgressMessage{BytesRead: int64(len(body)), TotalBytes: total, Done: true})
	}

	return &Response{
		StatusCode:      res.StatusCode,
		Headers:         res.Header,
		Body:            body,
		ContentType:     res.Header.Get("Content-Type"),
		ContentEncoding: res.Header.Get("Content-Encoding"),
	}, nil
}
