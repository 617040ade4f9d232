package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "scan.completed", Data: map[string]string{"discovered": "3"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: scan.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"discovered":"3"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_UsageThrottle(t *testing.T) {
	b := NewBroker(500*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First document event should trigger usage.updated.
	b.PublishChange("created", "a.md")
	// Second event immediately should NOT trigger another usage.updated.
	b.PublishChange("updated", "b.md")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	usageCount := 0
	docCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "usage.updated") {
				usageCount++
			} else {
				docCount++
			}
		default:
			break loop
		}
	}

	if docCount != 2 {
		t.Errorf("document events = %d, want 2", docCount)
	}
	if usageCount != 1 {
		t.Errorf("usage events = %d, want 1 (throttled)", usageCount)
	}
}

func TestPublishChange_Kinds(t *testing.T) {
	b := NewBroker(time.Second, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("library", "photos/new.png")
	b.PublishChange("vocabulary.updated", "sunset")
	b.PublishChange("note.created", "Image Library/new.md")

	want := map[string]string{
		"event: library.changed":    `"path":"photos/new.png"`,
		"event: vocabulary.updated": `"ref":"sunset"`,
		"event: note.created":       `"path":"Image Library/new.md"`,
	}
	deadline := time.After(time.Second)
	for len(want) > 0 {
		select {
		case msg := <-ch:
			s := string(msg)
			for evt, data := range want {
				if strings.Contains(s, evt) {
					if !strings.Contains(s, data) {
						t.Errorf("event %q missing data %q in %q", evt, data, s)
					}
					delete(want, evt)
				}
			}
		case <-deadline:
			t.Fatalf("timeout, still waiting for %v", want)
		}
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("vocabulary.updated", "travel")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: vocabulary.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestHeartbeat(t *testing.T) {
	b := NewBroker(time.Second, 20*time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if !strings.HasPrefix(string(msg), ":") {
			t.Errorf("expected comment frame, got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat within deadline")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "usage.updated", Data: map[string]string{}})
	b.PublishChange("updated", "x.md")
}
