package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)
}

func TestNotifyReachesOnlyOwner(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))

	owner1 := mockClient(hub, 1)
	owner2 := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(owner1)
	hub.Register(owner2)
	hub.Register(other)

	hub.Notify(1, "ingest_status", map[string]any{"stage": "complete"})

	for _, c := range []*Client{owner1, owner2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "ingest_status" {
				t.Errorf("type = %q", got.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-other.send:
		t.Fatal("another user's client received the message")
	default:
	}
}

func TestNotifyNoConnections(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	// Should not panic
	hub.Notify(42, "sync_status", nil)
}

func TestNotifyFullBufferDrops(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Notify(1, "sync_status", i)
	}

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			if count != sendBufferSize {
				t.Errorf("expected %d buffered messages, got %d", sendBufferSize, count)
			}
			return
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			c := mockClient(hub, userID)
			hub.Register(c)
			hub.Notify(userID, "ingest_status", nil)
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
