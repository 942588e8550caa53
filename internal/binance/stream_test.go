package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStream_DeliversTickerEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		events := []string{
			`{"stream":"btcusdt@miniTicker","data":{"e":"24hrMiniTicker","E":1700000000000,"s":"BTCUSDT","c":"64000.00","o":"63000.00","h":"64500.00","l":"62800.00","v":"1000","q":"64000000"}}`,
			`{"stream":"ethusdt@miniTicker","data":{"e":"24hrMiniTicker","E":1700000000001,"s":"ETHUSDT","c":"3200.00","o":"3100.00","h":"3250.00","l":"3090.00","v":"5000","q":"16000000"}}`,
		}
		for _, ev := range events {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(ev)); err != nil {
				return
			}
		}
		// Hold the connection open until the client disconnects.
		conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream := NewStream(wsURL, []string{"BTCUSDT", "ETHUSDT"}, nil)

	if err := stream.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer stream.Close()

	if gotPath != "/stream?streams=btcusdt@miniTicker/ethusdt@miniTicker" {
		t.Errorf("stream path = %s", gotPath)
	}

	want := []string{"BTCUSDT", "ETHUSDT"}
	for i := range want {
		select {
		case tick := <-stream.Events():
			if tick.Symbol != want[i] {
				t.Errorf("event %d symbol = %s, want %s", i, tick.Symbol, want[i])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestStream_ConnectRequiresSymbols(t *testing.T) {
	stream := NewStream("", nil, nil)
	if err := stream.Connect(context.Background()); err == nil {
		t.Fatal("expected error for empty symbol list")
	}
}

func TestStream_CloseEndsEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream := NewStream(wsURL, []string{"BTCUSDT"}, nil)
	if err := stream.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Logf("close: %v", err)
	}

	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Error("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
