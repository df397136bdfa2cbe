package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/petpals/internal/engine"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")

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
	hub := NewHub(slog.Default())
	c := mockClient(hub, "u1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestNotifyReachesOnlyOwner(t *testing.T) {
	hub := NewHub(slog.Default())

	mine1 := mockClient(hub, "u1")
	mine2 := mockClient(hub, "u1")
	other := mockClient(hub, "u2")
	for _, c := range []*Client{mine1, mine2, other} {
		hub.Register(c)
	}

	hub.Notify(engine.Event{
		Type:   engine.EventFellAsleep,
		UserID: "u1",
		PetID:  "p1",
		Data:   map[string]any{"until": float64(42)},
	})

	for _, c := range []*Client{mine1, mine2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "fell_asleep" {
				t.Errorf("type = %s, want fell_asleep", got.Type)
			}
			if got.PetID != "p1" {
				t.Errorf("pet_id = %s, want p1", got.PetID)
			}
			if got.Data["until"] != float64(42) {
				t.Errorf("data = %v", got.Data)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-other.send:
		t.Error("another user's client received the event")
	default:
	}
}

func TestPublishNoClients(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Publish("nobody", Message{Type: "streak"})
}

func TestPublishFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "u1")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Publish("u1", Message{Type: "fill"})
	}

	// This should drop the message, not block
	hub.Publish("u1", Message{Type: "dropped"})

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "u1")
			hub.Register(c)
			hub.Publish("u1", Message{Type: "concurrent"})
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
