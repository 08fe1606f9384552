package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestBasicPubSub tests basic publish/subscribe functionality
func TestBasicPubSub(t *testing.T) {
	ps := NewPubSub[string]()
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(), "session")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ps.Publish("session", "mode changed")

	select {
	case msg := <-sub.Channel():
		if msg != "mode changed" {
			t.Errorf("Expected 'mode changed', got %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// TestMultipleSubscribers tests multiple subscribers to the same topic
func TestMultipleSubscribers(t *testing.T) {
	ps := NewPubSub[int]()
	defer ps.Shutdown()

	const numSubscribers = 5
	subs := make([]*Subscription[int], numSubscribers)
	for i := range subs {
		sub, err := ps.Subscribe(context.Background(), "broadcast")
		if err != nil {
			t.Fatalf("Failed to subscribe %d: %v", i, err)
		}
		subs[i] = sub
	}
	if got := ps.GetSubscriberCount("broadcast"); got != numSubscribers {
		t.Fatalf("subscriber count = %d, want %d", got, numSubscribers)
	}

	ps.Publish("broadcast", 42)

	for i, sub := range subs {
		select {
		case msg := <-sub.Channel():
			if msg != 42 {
				t.Errorf("Subscriber %d: expected 42, got %v", i, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i)
		}
	}
}

// TestTopicIsolation tests that messages are isolated by topic
func TestTopicIsolation(t *testing.T) {
	ps := NewPubSub[string]()
	defer ps.Shutdown()

	sub1, _ := ps.Subscribe(context.Background(), "topic-1")
	sub2, _ := ps.Subscribe(context.Background(), "topic-2")

	ps.Publish("topic-1", "only for one")

	select {
	case msg := <-sub1.Channel():
		if msg != "only for one" {
			t.Errorf("unexpected message %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("topic-1 did not receive its message")
	}

	select {
	case msg := <-sub2.Channel():
		t.Errorf("topic-2 received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestContextCancellationUnsubscribes tests cleanup on context cancel
func TestContextCancellationUnsubscribes(t *testing.T) {
	ps := NewPubSub[string]()
	defer ps.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := ps.Subscribe(ctx, "session")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancel")
	}
	if got := ps.GetSubscriberCount("session"); got != 0 {
		t.Errorf("subscriber count = %d, want 0", got)
	}
}

// TestFullBufferDoesNotBlock tests that slow subscribers are skipped
func TestFullBufferDoesNotBlock(t *testing.T) {
	ps := NewPubSubWithBuffer[int](1)
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), "t")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ps.Publish("t", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if msg := <-sub.Channel(); msg != 0 {
		t.Errorf("first buffered message = %d, want 0", msg)
	}
}

// TestShutdown tests shutdown closes subscriptions and rejects new ones
func TestShutdown(t *testing.T) {
	ps := NewPubSub[string]()
	sub, _ := ps.Subscribe(context.Background(), "session")

	ps.Shutdown()
	ps.Shutdown()

	if _, ok := <-sub.Channel(); ok {
		t.Error("expected closed channel after shutdown")
	}
	if _, err := ps.Subscribe(context.Background(), "session"); !errors.Is(err, ErrShutdown) {
		t.Errorf("Subscribe after shutdown err = %v, want ErrShutdown", err)
	}
	ps.Publish("session", "ignored")
	sub.Unsubscribe()
}

// TestConcurrentPublishUnsubscribe exercises publish racing unsubscribe
func TestConcurrentPublishUnsubscribe(t *testing.T) {
	ps := NewPubSub[int]()
	defer ps.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub, err := ps.Subscribe(context.Background(), "race")
		if err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ps.Publish("race", j)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
}
