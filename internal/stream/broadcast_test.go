package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDeliversInOrder(t *testing.T) {
	t.Parallel()

	b := NewBroadcast[int](8)
	defer b.Close()

	_, ch := b.Subscribe()
	for i := 0; i < 5; i++ {
		b.Publish(i)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, <-ch)
	}
}

func TestBroadcastDropsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	b := NewBroadcast[int](4)
	defer b.Close()

	_, ch := b.Subscribe()
	for i := 0; i < 6; i++ {
		b.Publish(i)
	}

	// 0 and 1 were evicted; the four newest survive.
	got := []int{<-ch, <-ch, <-ch, <-ch}
	assert.Equal(t, []int{2, 3, 4, 5}, got)
	assert.Equal(t, uint64(2), b.Dropped())
}

func TestBroadcastIndependentSubscribers(t *testing.T) {
	t.Parallel()

	b := NewBroadcast[string](4)
	defer b.Close()

	slowID, slow := b.Subscribe()
	_, fast := b.Subscribe()

	b.Publish("a")
	assert.Equal(t, "a", <-fast)

	b.Unsubscribe(slowID)
	_, open := <-slow
	assert.False(t, open, "unsubscribed channel should be closed")

	// Remaining subscriber still receives.
	b.Publish("b")
	assert.Equal(t, "b", <-fast)
}

func TestBroadcastClose(t *testing.T) {
	t.Parallel()

	b := NewBroadcast[int](4)
	_, ch := b.Subscribe()

	b.Close()
	_, open := <-ch
	require.False(t, open)

	// Publish and a second Close after closing must not panic.
	b.Publish(1)
	b.Close()

	_, late := b.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscription after close should yield a closed channel")
}
