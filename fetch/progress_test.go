package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestFetchWithProgressStreamsFrames(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer origin.Close()

	var received []ProgressMessage
	wsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pc, err := UpgradeProgress(w, r)
		require.NoError(t, err)
		defer pc.Close()

		client, err := NewClient(Options{})
		require.NoError(t, err)
		_, err = client.FetchWithProgress(context.Background(), origin.URL, pc)
		require.NoError(t, err)
	}))
	defer wsServer.Close()

	wsURL := "ws" + wsServer.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg ProgressMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		received = append(received, msg)
		if msg.Done {
			break
		}
	}

	require.NotEmpty(t, received)
	last := received[len(received)-1]
	require.True(t, last.Done)
	require.EqualValues(t, len("hello world"), last.BytesRead)
}
