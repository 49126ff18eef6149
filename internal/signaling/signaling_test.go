package signaling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/roundlink/internal/transport"
)

func TestEstablishAsClientRejected(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		reason := transport.Reason(transport.ServerFull, "try again later")
		conn.WriteJSON(message{Type: msgTypeReject, Reason: reason.Encode()})
		// Hold the socket open until the client gives up.
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := EstablishAsClient(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *RejectedError", err)
	}
	if rejected.Reason.Category != transport.ServerFull {
		t.Errorf("reason = %v, want ServerFull", rejected.Reason)
	}
}

func TestEstablishAsClientDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := EstablishAsClient(ctx, "ws://127.0.0.1:1/ws", nil); err == nil {
		t.Fatal("expected an error dialing a closed port")
	}
}
