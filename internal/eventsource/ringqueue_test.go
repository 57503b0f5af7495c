package eventsource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/sniper/internal/domain"
)

func TestRingQueue_PushPopFIFO(t *testing.T) {
	q := NewRingQueue(2, time.Microsecond, time.Millisecond)

	first := domain.RawEvent{Kind: domain.EventKindCreate, Create: &domain.CreateEvent{Name: "first"}}
	second := domain.RawEvent{Kind: domain.EventKindCreate, Create: &domain.CreateEvent{Name: "second"}}

	require.True(t, q.Push(first))
	require.True(t, q.Push(second))

	ev, ok := q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, "first", ev.Create.Name)

	ev, ok = q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, "second", ev.Create.Name)
}

func TestRingQueue_DropsWhenFull(t *testing.T) {
	q := NewRingQueue(1, time.Microsecond, time.Millisecond)

	assert.True(t, q.Push(domain.RawEvent{Kind: domain.EventKindCreate}))
	assert.False(t, q.Push(domain.RawEvent{Kind: domain.EventKindCreate}))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 1, q.Len())
}

func TestRingQueue_LastPush_ZeroUntilFirstPush(t *testing.T) {
	q := NewRingQueue(4, time.Microsecond, time.Millisecond)
	assert.True(t, q.LastPush().IsZero())

	before := time.Now()
	q.Push(domain.RawEvent{Kind: domain.EventKindCreate})
	assert.False(t, q.LastPush().Before(before))
}

func TestRingQueue_Pop_UnblocksOnContextCancel(t *testing.T) {
	q := NewRingQueue(4, time.Millisecond, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_, ok := q.Pop(ctx)
		assert.False(t, ok)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after context cancellation")
	}
}
