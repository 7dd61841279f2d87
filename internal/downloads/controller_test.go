package downloads

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedia-app/remedia/internal/media"
)

func newTestController(dirs *fakeDirs) (*Controller, *media.List, *atomic.Int32, *atomic.Int32) {
	list := media.NewList()
	var starts, cancels atomic.Int32
	start := func(ctx context.Context) error {
		starts.Add(1)
		return nil
	}
	cancel := func(ctx context.Context) {
		cancels.Add(1)
	}
	c := NewController(list, nil, start, cancel, dirs, testLogger())
	return c, list, &starts, &cancels
}

func TestHandleAddURLRejectsEmpty(t *testing.T) {
	c, list, starts, _ := newTestController(&fakeDirs{})

	require.Error(t, c.HandleAddURL(""))
	require.Error(t, c.HandleAddURL("   "))

	assert.Zero(t, list.Len())
	assert.Equal(t, int32(0), starts.Load())
	assert.Equal(t, StateIdle, c.State())
}

func TestHandleAddURLDispatchesExactlyOnce(t *testing.T) {
	c, list, starts, _ := newTestController(&fakeDirs{})

	require.NoError(t, c.HandleAddURL("https://example.com/v"))
	assert.Equal(t, 1, list.Len())

	require.Eventually(t, func() bool {
		return starts.Load() == 1 && c.State() == StateIdle
	}, time.Second, 5*time.Millisecond)

	// Later list growth must not re-fire the consumed start.
	c.ListChanged(2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), starts.Load())
}

func TestHandleAddURLDuplicateStillArmsStart(t *testing.T) {
	c, list, starts, _ := newTestController(&fakeDirs{})

	_, err := list.Add("https://example.com/v")
	require.NoError(t, err)

	require.NoError(t, c.HandleAddURL("https://example.com/v"))
	assert.Equal(t, 1, list.Len())

	require.Eventually(t, func() bool {
		return starts.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHandleStartWaitsForListItems(t *testing.T) {
	c, list, starts, _ := newTestController(&fakeDirs{})

	c.HandleStart()
	assert.Equal(t, StateAwaitingList, c.State())
	assert.Equal(t, int32(0), starts.Load())

	_, err := list.Add("https://example.com/v")
	require.NoError(t, err)
	c.ListChanged(list.Len())

	require.Eventually(t, func() bool {
		return starts.Load() == 1 && c.State() == StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestHandleClearDisarmsPendingStart(t *testing.T) {
	c, list, starts, _ := newTestController(&fakeDirs{})

	c.HandleStart()
	require.Equal(t, StateAwaitingList, c.State())

	c.HandleClear()
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, list.Len())

	// A list change after the clear must not dispatch the stale start.
	_, err := list.Add("https://example.com/v")
	require.NoError(t, err)
	c.ListChanged(list.Len())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), starts.Load())
}

func TestHandleCancelDelegates(t *testing.T) {
	c, _, _, cancels := newTestController(&fakeDirs{})

	c.HandleStart()
	c.HandleCancel(context.Background())

	assert.Equal(t, int32(1), cancels.Load())
	// Cancel leaves the pending start armed; only clear disarms.
	assert.Equal(t, StateAwaitingList, c.State())
}

func TestHandleSetDirectory(t *testing.T) {
	dirs := &fakeDirs{}
	c, _, _, _ := newTestController(dirs)

	require.NoError(t, c.HandleSetDirectory("/mnt/media"))
	assert.Equal(t, "/mnt/media", dirs.OutputDir())

	require.Error(t, c.HandleSetDirectory("  "))
	assert.Equal(t, "/mnt/media", dirs.OutputDir())
}
