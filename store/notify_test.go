package store

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/mcpgate/observe"
)

func TestBroadcaster_Delivers(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, id := b.Subscribe(ctx, DefaultCounter)
	require.NotEmpty(t, id)

	assert.Equal(t, 1, b.Publish(DefaultCounter, 7))

	select {
	case u := <-ch:
		assert.Equal(t, Update{Name: DefaultCounter, Value: 7}, u)
	case <-time.After(time.Second):
		t.Fatal("update not delivered")
	}
}

func TestBroadcaster_NoSubscribers(t *testing.T) {
	b := NewBroadcaster()
	assert.Equal(t, 0, b.Publish(DefaultCounter, 1))
	assert.Equal(t, int64(0), b.Dropped())
}

func TestBroadcaster_NamesAreIsolated(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := b.Subscribe(ctx, "visits")
	b.Publish(DefaultCounter, 1)

	select {
	case u := <-ch:
		t.Fatalf("unexpected update %+v", u)
	default:
	}
}

func TestBroadcaster_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	var logs bytes.Buffer
	b := NewBroadcaster(BroadcasterConfig{Buffer: 1, Logger: observe.NewLoggerWithWriter("debug", &logs)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow, _ := b.Subscribe(ctx, DefaultCounter)
	fast, _ := b.Subscribe(ctx, DefaultCounter)

	assert.Equal(t, 2, b.Publish(DefaultCounter, 1))
	<-fast

	done := make(chan int)
	go func() { done <- b.Publish(DefaultCounter, 2) }()
	select {
	case delivered := <-done:
		assert.Equal(t, 1, delivered)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	assert.Equal(t, int64(1), b.Dropped())
	assert.Equal(t, Update{Name: DefaultCounter, Value: 1}, <-slow)
	assert.Equal(t, Update{Name: DefaultCounter, Value: 2}, <-fast)
	assert.Contains(t, logs.String(), "update dropped")
}

func TestBroadcaster_DefaultBuffer(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := b.Subscribe(ctx, DefaultCounter)
	for i := range 64 {
		b.Publish(DefaultCounter, int64(i))
	}
	assert.Equal(t, 64, len(ch))
	assert.Equal(t, 0, b.Publish(DefaultCounter, 64))
}

func TestBroadcaster_ContextCancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := b.Subscribe(ctx, DefaultCounter)
	require.Equal(t, 1, b.Subscribers(DefaultCounter))

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers(DefaultCounter) == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-ch
	assert.False(t, open, "channel should be closed after cancellation")
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch, id := b.Subscribe(context.Background(), DefaultCounter)

	b.Unsubscribe(id)
	b.Unsubscribe(id)
	b.Unsubscribe("not-a-subscription")

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Publish(DefaultCounter, 1))
}

func TestBroadcaster_UnsubscribeReleasesWatcher(t *testing.T) {
	b := NewBroadcaster()
	before := runtime.NumGoroutine()

	for range 100 {
		_, id := b.Subscribe(context.Background(), DefaultCounter)
		b.Unsubscribe(id)
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+5
	}, 2*time.Second, 10*time.Millisecond, "watcher goroutines outlive their subscriptions")
	assert.Equal(t, 0, b.Subscribers(DefaultCounter))
}

func TestBroadcaster_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := NewBroadcaster(BroadcasterConfig{Buffer: 4})
	var wg sync.WaitGroup

	for range 20 {
		ctx, cancel := context.WithCancel(context.Background())
		ch, _ := b.Subscribe(ctx, DefaultCounter)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			for i := range 50 {
				b.Publish(DefaultCounter, int64(i))
				if i == 25 {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.Subscribers(DefaultCounter))
}
