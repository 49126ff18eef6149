package transport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDisconnectReasonRoundTrip(t *testing.T) {
	tests := []struct {
		text string
		want DisconnectReason
	}{
		{"ServerFull;12/12 players", DisconnectReason{ServerFull, "12/12 players"}},
		{"EventSyncError;", DisconnectReason{EventSyncError, ""}},
		{"Kicked;spamming; again", DisconnectReason{Kicked, "spamming; again"}},
		{"no separator", DisconnectReason{Generic, "no separator"}},
		{"Unknown;x", DisconnectReason{Generic, "Unknown;x"}},
	}

	for _, tc := range tests {
		got := ParseDisconnectReason(tc.text)
		if got != tc.want {
			t.Errorf("ParseDisconnectReason(%q) = %+v, want %+v", tc.text, got, tc.want)
		}
		if tc.want.Category != Generic && ParseDisconnectReason(got.Encode()) != got {
			t.Errorf("Encode/Parse of %+v is not stable", got)
		}
	}
}

func TestReconnectable(t *testing.T) {
	for c := Generic; c <= ServerCrashed; c++ {
		want := c == Timeout || c == EventSyncError || c == ServerCrashed
		if got := (DisconnectReason{Category: c}).Reconnectable(); got != want {
			t.Errorf("%v.Reconnectable() = %v, want %v", c, got, want)
		}
	}
}

func TestPipeBacklogAndOrder(t *testing.T) {
	client, server := Pipe()

	// Sent before the handler exists: held, then flushed in order.
	server.Send([]byte{1}, Reliable)
	server.Send([]byte{2}, Unreliable)

	var got [][]byte
	client.OnMessage(func(data []byte) { got = append(got, data) })
	server.Send([]byte{3}, Reliable)

	if len(got) != 3 {
		t.Fatalf("received %d messages, want 3", len(got))
	}
	for i, msg := range got {
		if msg[0] != byte(i+1) {
			t.Errorf("message %d = %v", i, msg)
		}
	}
	if sent := server.Sent(); len(sent) != 3 || sent[1].Mode != Unreliable {
		t.Errorf("Sent() = %+v", sent)
	}
}

func TestPipeCloseNotifiesRemoteOnly(t *testing.T) {
	client, server := Pipe()

	var clientReason, serverReason *DisconnectReason
	client.OnClose(func(r DisconnectReason) { clientReason = &r })
	server.OnClose(func(r DisconnectReason) { serverReason = &r })

	server.Close(Reason(ServerFull, "full"))

	if clientReason == nil || clientReason.Category != ServerFull {
		t.Fatalf("client OnClose reason = %v, want ServerFull", clientReason)
	}
	if serverReason != nil {
		t.Errorf("local Close fired the local OnClose")
	}
	if err := client.Send([]byte{1}, Reliable); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}

	// A second close is a no-op.
	client.Close(Reason(Generic, ""))
	if serverReason != nil {
		t.Errorf("closing an already closed pipe notified the remote")
	}
}

func TestOnCloseRegisteredLate(t *testing.T) {
	client, server := Pipe()
	server.Close(Reason(Kicked, "bye"))

	calls := 0
	client.OnClose(func(r DisconnectReason) {
		calls++
		if r.Category != Kicked {
			t.Errorf("reason = %v", r)
		}
	})
	client.OnClose(func(DisconnectReason) { calls++ })
	if calls != 1 {
		t.Errorf("OnClose fired %d times, want 1", calls)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newWSServer starts a server that echoes binary messages and closes the
// connection with the given reason when it receives "bye".
func newWSServer(t *testing.T, reason DisconnectReason) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason.Encode())
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			conn.WriteMessage(typ, data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSPeerEchoAndRemoteClose(t *testing.T) {
	srv := newWSServer(t, Reason(ServerFull, "queue position 3"))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peer, err := DialWS(ctx, url)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}

	msgs := make(chan []byte, 1)
	closed := make(chan DisconnectReason, 1)
	peer.OnMessage(func(data []byte) { msgs <- data })
	peer.OnClose(func(r DisconnectReason) { closed <- r })

	if err := peer.Send([]byte("ping"), Unreliable); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-msgs:
		if !bytes.Equal(got, []byte("ping")) {
			t.Errorf("echo = %q", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for echo")
	}

	peer.Send([]byte("bye"), Reliable)
	select {
	case r := <-closed:
		if r.Category != ServerFull || r.Message != "queue position 3" {
			t.Errorf("reason = %+v", r)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for close")
	}
}

func TestWSPeerLocalCloseIsSilent(t *testing.T) {
	srv := newWSServer(t, Reason(Generic, ""))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	peer, err := DialWS(context.Background(), url)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	fired := make(chan struct{}, 1)
	peer.OnClose(func(DisconnectReason) { fired <- struct{}{} })

	if err := peer.Close(Reason(Generic, "leaving")); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := peer.Send([]byte("x"), Reliable); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}

	select {
	case <-fired:
		t.Error("local Close fired OnClose")
	case <-time.After(100 * time.Millisecond):
	}
}
