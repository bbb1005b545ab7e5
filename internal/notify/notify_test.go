package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWebhookSinkPostsActorMessage(t *testing.T) {
	var mu sync.Mutex
	var received []Message

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}

		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decoding message failed: %v", err)
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, 5*time.Second)
	ctx := context.Background()

	if err := sink.NotifyActor(ctx, "actor-1", "hello"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := sink.Broadcast(ctx, "chan-1", "world tick"); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(received))
	}
	if received[0].Kind != "actor" || received[0].Target != "actor-1" || received[0].Message != "hello" {
		t.Fatalf("unexpected actor message: %+v", received[0])
	}
	if received[1].Kind != "channel" || received[1].Target != "chan-1" {
		t.Fatalf("unexpected broadcast message: %+v", received[1])
	}
}

func TestWebhookSinkReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, 5*time.Second)

	if err := sink.NotifyActor(context.Background(), "actor-1", "hello"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNopSinkDiscards(t *testing.T) {
	sink := NopSink{}
	ctx := context.Background()

	if err := sink.NotifyActor(ctx, "actor-1", "hello"); err != nil {
		t.Fatalf("nop notify returned error: %v", err)
	}
	if err := sink.Broadcast(ctx, "chan-1", "hello"); err != nil {
		t.Fatalf("nop broadcast returned error: %v", err)
	}
}
