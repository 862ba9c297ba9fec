package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// priceServer upgrades one connection, verifies the subscribe request and
// streams the given ticks.
func priceServer(t *testing.T, ticks []wsPriceMessage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsSubscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe: %v", err)
			return
		}
		if req.Op != "subscribe" {
			t.Errorf("op = %s, want subscribe", req.Op)
		}

		for _, tick := range ticks {
			if err := conn.WriteJSON(tick); err != nil {
				return
			}
		}

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSPriceSource_BuffersSubscribedTicks(t *testing.T) {
	server := priceServer(t, []wsPriceMessage{
		{Mint: "mint1", Price: 1.0, Volume: 10, TimestampMs: 1000},
		{Mint: "mint1", Price: 1.1, Volume: 20, TimestampMs: 2000},
		{Mint: "other", Price: 9.9, Volume: 5, TimestampMs: 1500},
	})
	defer server.Close()

	source, err := NewWSPriceSource(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSPriceSource: %v", err)
	}
	defer source.Close()

	if err := source.Subscribe("mint1"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Wait for the read loop to consume the stream.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := source.Fetch(context.Background(), "mint1", 0, 10_000)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) == 2 {
			if got[0].TimestampMs != 1000 || got[1].TimestampMs != 2000 {
				t.Fatalf("unexpected order: %+v", got)
			}
			if got[1].Price != 1.1 {
				t.Errorf("price = %v, want 1.1", got[1].Price)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for buffered ticks")
}

func TestWSPriceSource_DropsTicksBeforeSubscription(t *testing.T) {
	server := priceServer(t, []wsPriceMessage{
		{Mint: "other", Price: 9.9, Volume: 5, TimestampMs: 1500},
	})
	defer server.Close()

	source, err := NewWSPriceSource(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSPriceSource: %v", err)
	}
	defer source.Close()

	if err := source.Subscribe("mint1"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The tick for "other" streams before anyone asks for that mint and
	// must not be buffered retroactively.
	time.Sleep(100 * time.Millisecond)
	got, err := source.Fetch(context.Background(), "other", 0, 10_000)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("pre-subscription tick buffered %d samples", len(got))
	}
}

// Fetch alone must start the stream: callers that only hold the
// PriceSource interface never call Subscribe themselves.
func TestWSPriceSource_FetchAutoSubscribes(t *testing.T) {
	server := priceServer(t, []wsPriceMessage{
		{Mint: "mint1", Price: 1.0, Volume: 10, TimestampMs: 1000},
		{Mint: "mint1", Price: 1.1, Volume: 20, TimestampMs: 2000},
	})
	defer server.Close()

	source, err := NewWSPriceSource(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSPriceSource: %v", err)
	}
	defer source.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := source.Fetch(context.Background(), "mint1", 0, 10_000)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("fetch never subscribed the mint: buffer stayed empty")
}

func TestWSPriceSource_FetchWindow(t *testing.T) {
	server := priceServer(t, []wsPriceMessage{
		{Mint: "mint1", Price: 1.0, TimestampMs: 1000},
		{Mint: "mint1", Price: 1.1, TimestampMs: 2000},
		{Mint: "mint1", Price: 1.2, TimestampMs: 3000},
	})
	defer server.Close()

	source, err := NewWSPriceSource(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSPriceSource: %v", err)
	}
	defer source.Close()

	if err := source.Subscribe("mint1"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		all, _ := source.Fetch(context.Background(), "mint1", 0, 10_000)
		if len(all) == 3 {
			window, err := source.Fetch(context.Background(), "mint1", 1500, 2500)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(window) != 1 || window[0].TimestampMs != 2000 {
				t.Fatalf("window = %+v, want single sample at 2000", window)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for buffered ticks")
}

func TestWSPriceSource_SubscribeAfterClose(t *testing.T) {
	server := priceServer(t, nil)
	defer server.Close()

	source, err := NewWSPriceSource(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSPriceSource: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := source.Subscribe("mint1"); err == nil {
		t.Error("subscribe on a closed source must fail")
	}
}
