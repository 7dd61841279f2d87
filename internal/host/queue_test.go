package host

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(idx int) DownloadRequest {
	return DownloadRequest{
		Index:          idx,
		URL:            fmt.Sprintf("https://example.com/%d", idx),
		OutputLocation: "/tmp",
		Settings:       DefaultSettings(),
	}
}

func TestQueueEnqueueAndStart(t *testing.T) {
	q := NewQueue(2)

	require.NoError(t, q.Enqueue(testRequest(1)))
	require.NoError(t, q.Enqueue(testRequest(2)))
	assert.Equal(t, 2, q.Stats().Queued)

	req, ok := q.NextToStart()
	require.True(t, ok)
	assert.Equal(t, 1, req.Index)
	assert.Equal(t, 1, q.Stats().Active)
	assert.Equal(t, 1, q.Stats().Queued)
}

func TestQueueMaxConcurrentLimit(t *testing.T) {
	q := NewQueue(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Enqueue(testRequest(i)))
	}

	_, ok := q.NextToStart()
	require.True(t, ok)
	_, ok = q.NextToStart()
	require.True(t, ok)

	_, ok = q.NextToStart()
	assert.False(t, ok)
	assert.Equal(t, 2, q.Stats().Active)
	assert.Equal(t, 1, q.Stats().Queued)
}

func TestQueueCompleteFreesSlot(t *testing.T) {
	q := NewQueue(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Enqueue(testRequest(i)))
	}
	q.NextToStart()
	q.NextToStart()

	q.Complete(1)
	assert.Equal(t, 1, q.Stats().Active)

	req, ok := q.NextToStart()
	require.True(t, ok)
	assert.Equal(t, 3, req.Index)
}

func TestQueueCancelQueuedAndActive(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Enqueue(testRequest(1)))
	require.NoError(t, q.Enqueue(testRequest(2)))
	q.NextToStart()

	assert.True(t, q.Cancel(2))
	assert.Equal(t, 0, q.Stats().Queued)

	assert.True(t, q.Cancel(1))
	assert.False(t, q.IsActive(1))

	assert.False(t, q.Cancel(7))
}

func TestQueueCancelAll(t *testing.T) {
	q := NewQueue(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Enqueue(testRequest(i)))
	}
	q.NextToStart()
	q.NextToStart()

	cancelled := q.CancelAll()
	assert.Len(t, cancelled, 3)
	stats := q.Stats()
	assert.Equal(t, 0, stats.Queued)
	assert.Equal(t, 0, stats.Active)
}

func TestQueueRejectsDuplicateIndex(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.Enqueue(testRequest(1)))
	assert.Error(t, q.Enqueue(testRequest(1)))

	q.NextToStart()
	assert.Error(t, q.Enqueue(testRequest(1)))
}

func TestQueueStats(t *testing.T) {
	q := NewQueue(2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Enqueue(testRequest(i)))
	}
	q.NextToStart()

	stats := q.Stats()
	assert.Equal(t, QueueStats{Queued: 2, Active: 1, MaxConcurrent: 2}, stats)
}

func TestQueueMinimumConcurrency(t *testing.T) {
	q := NewQueue(0)
	assert.Equal(t, 1, q.Stats().MaxConcurrent)
	q.SetMaxConcurrent(-3)
	assert.Equal(t, 1, q.Stats().MaxConcurrent)
}
