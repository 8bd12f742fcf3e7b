package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Message, 1)

	sub, err := bus.Subscribe(ctx, "manus.session.abc", func(msg *Message) {
		received <- msg
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	err = bus.Publish(ctx, "manus.session.abc", []byte(`{"seq":1}`))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != `{"seq":1}` {
			t.Errorf("Expected payload %q, got %q", `{"seq":1}`, string(msg.Data))
		}
		if msg.Subject != "manus.session.abc" {
			t.Errorf("Expected subject 'manus.session.abc', got %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestMemoryBus_Wildcard(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32

	sub, err := bus.Subscribe(ctx, "manus.session.*", func(msg *Message) {
		received.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	for _, subject := range []string{"manus.session.a", "manus.session.b"} {
		if err := bus.Publish(ctx, subject, []byte("x")); err != nil {
			t.Fatalf("Publish %s failed: %v", subject, err)
		}
	}
	// Two tokens past the prefix; "*" must not match it.
	if err := bus.Publish(ctx, "manus.session.a.extra", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(time.Second)
	for received.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected 2 messages, got %d", received.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	time.Sleep(50 * time.Millisecond)
	if got := received.Load(); got != 2 {
		t.Errorf("Expected exactly 2 messages, got %d", got)
	}
}

func TestMemoryBus_MultiTokenWildcard(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Message, 4)

	sub, err := bus.Subscribe(ctx, "manus.>", func(msg *Message) {
		received <- msg
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := bus.Publish(ctx, "manus.session.a.events", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for '>' wildcard delivery")
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int32

	sub, err := bus.Subscribe(ctx, "manus.session.x", func(msg *Message) {
		received.Add(1)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, "manus.session.x", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := received.Load(); got != 0 {
		t.Errorf("Expected no messages after unsubscribe, got %d", got)
	}
}

func TestMemoryBus_ClosedRejectsOperations(t *testing.T) {
	bus := NewMemoryBus()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := bus.Publish(context.Background(), "manus.session.a", nil); err != ErrClosed {
		t.Errorf("Publish on closed bus: expected ErrClosed, got %v", err)
	}
	if _, err := bus.Subscribe(context.Background(), "manus.session.a", func(*Message) {}); err != ErrClosed {
		t.Errorf("Subscribe on closed bus: expected ErrClosed, got %v", err)
	}
	if err := bus.Close(); err != ErrClosed {
		t.Errorf("Second Close: expected ErrClosed, got %v", err)
	}
}

func TestMatchSubject(t *testing.T) {
	cases := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"manus.session.a", "manus.session.a", true},
		{"manus.session.a", "manus.session.b", false},
		{"manus.session.*", "manus.session.a", true},
		{"manus.session.*", "manus.session.a.events", false},
		{"manus.>", "manus.session.a.events", true},
		{"manus.>", "other.session.a", false},
		{"manus.session.*", "manus.session", false},
	}

	for _, tc := range cases {
		if got := matchSubject(tc.pattern, tc.subject); got != tc.want {
			t.Errorf("matchSubject(%q, %q) = %v, want %v", tc.pattern, tc.subject, got, tc.want)
		}
	}
}
