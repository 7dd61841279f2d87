package downloads

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedia-app/remedia/internal/errlog"
	"github.com/remedia-app/remedia/internal/host"
	"github.com/remedia-app/remedia/internal/media"
)

type fakeEngine struct {
	mu            sync.Mutex
	downloads     []host.DownloadRequest
	downloadErr   error
	started       chan struct{}
	block         chan struct{}
	dirQueries    int
	downloadDir   string
	statusQueries int
	stats         host.QueueStats
	statusErr     error
	cancelCalls   int
}

func (f *fakeEngine) GetMediaInfo(ctx context.Context, index int, url string) error { return nil }

func (f *fakeEngine) ExpandPlaylist(ctx context.Context, url string) (host.PlaylistExpansion, error) {
	return host.PlaylistExpansion{}, nil
}

func (f *fakeEngine) DownloadMedia(ctx context.Context, req host.DownloadRequest) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, req)
	err := f.downloadErr
	started := f.started
	block := f.block
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeEngine) CancelAllDownloads(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeEngine) SetMaxConcurrentDownloads(ctx context.Context, n int) error { return nil }

func (f *fakeEngine) GetQueueStatus(ctx context.Context) (host.QueueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusQueries++
	return f.stats, f.statusErr
}

func (f *fakeEngine) GetDownloadDir(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirQueries++
	return f.downloadDir, nil
}

func (f *fakeEngine) ReadClipboardText(ctx context.Context) (string, error) { return "", nil }

func (f *fakeEngine) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

type fakeDirs struct {
	mu  sync.Mutex
	dir string
}

func (d *fakeDirs) OutputDir() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dir
}

func (d *fakeDirs) SetOutputDir(dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dir = dir
}

type captureNotifier struct {
	mu    sync.Mutex
	notes []errlog.Notification
}

func (c *captureNotifier) Notify(n errlog.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

func (c *captureNotifier) all() []errlog.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]errlog.Notification(nil), c.notes...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, engine *fakeEngine, dirs *fakeDirs, notifier errlog.Notifier) (*Orchestrator, *media.List, *int) {
	t.Helper()
	list := media.NewList()
	logger := testLogger()
	settingsCalls := 0
	settings := func() host.DownloadSettings {
		settingsCalls++
		return host.DefaultSettings()
	}
	reporter := errlog.NewReporter(logger, notifier)
	o := NewOrchestrator(list, engine, settings, dirs, reporter, logger)
	o.SetRetryPolicy(RetryPolicy{Attempts: 2, Delay: time.Millisecond})
	return o, list, &settingsCalls
}

func TestStartDownloadDispatchesPendingItems(t *testing.T) {
	engine := &fakeEngine{}
	dirs := &fakeDirs{dir: "/out"}
	o, list, settingsCalls := newTestOrchestrator(t, engine, dirs, nil)

	_, err := list.Add("https://example.com/a")
	require.NoError(t, err)
	_, err = list.Add("https://example.com/b")
	require.NoError(t, err)

	require.NoError(t, o.StartDownload(context.Background()))

	require.Len(t, engine.downloads, 2)
	urls := map[int]string{}
	for _, req := range engine.downloads {
		urls[req.Index] = req.URL
		assert.Equal(t, "/out", req.OutputLocation)
	}
	assert.Equal(t, "https://example.com/a", urls[0])
	assert.Equal(t, "https://example.com/b", urls[1])

	// One settings snapshot per batch, not one per item.
	assert.Equal(t, 1, *settingsCalls)
	assert.False(t, o.Downloading())
}

func TestStartDownloadOverlappingCallIsNoOp(t *testing.T) {
	engine := &fakeEngine{
		downloadDir: "/fallback",
		started:     make(chan struct{}, 1),
		block:       make(chan struct{}),
	}
	dirs := &fakeDirs{}
	o, list, _ := newTestOrchestrator(t, engine, dirs, nil)

	_, err := list.Add("https://example.com/a")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- o.StartDownload(context.Background()) }()

	<-engine.started
	assert.True(t, o.Downloading())

	// Second call while the batch is in flight must return without
	// touching the engine again.
	require.NoError(t, o.StartDownload(context.Background()))

	close(engine.block)
	require.NoError(t, <-done)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, 1, engine.dirQueries)
	assert.Len(t, engine.downloads, 1)
}

func TestStartDownloadGivesUpOnEmptyList(t *testing.T) {
	engine := &fakeEngine{}
	dirs := &fakeDirs{dir: "/out"}
	o, _, _ := newTestOrchestrator(t, engine, dirs, nil)

	sleeps := 0
	o.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	require.NoError(t, o.StartDownload(context.Background()))

	assert.Equal(t, 2, sleeps)
	assert.Zero(t, engine.downloadCount())
	assert.False(t, o.Downloading())
}

func TestStartDownloadSkipsCompletedItems(t *testing.T) {
	engine := &fakeEngine{}
	dirs := &fakeDirs{dir: "/out"}
	o, list, _ := newTestOrchestrator(t, engine, dirs, nil)

	_, err := list.Add("https://example.com/done")
	require.NoError(t, err)
	_, err = list.Add("https://example.com/pending")
	require.NoError(t, err)
	list.SetStatus(0, media.StatusDone)

	require.NoError(t, o.StartDownload(context.Background()))

	require.Len(t, engine.downloads, 1)
	assert.Equal(t, 1, engine.downloads[0].Index)
	assert.Equal(t, "https://example.com/pending", engine.downloads[0].URL)
}

func TestStartDownloadDispatchErrorNotifiesWithRetry(t *testing.T) {
	engine := &fakeEngine{downloadErr: errors.New("yt-dlp exited with status 1")}
	dirs := &fakeDirs{dir: "/out"}
	notifier := &captureNotifier{}
	o, list, _ := newTestOrchestrator(t, engine, dirs, notifier)

	_, err := list.Add("https://example.com/a")
	require.NoError(t, err)

	err = o.StartDownload(context.Background())
	require.Error(t, err)

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "failed to start downloads", notes[0].Message)
	assert.Equal(t, errlog.CategoryDownload, notes[0].Category)
	assert.NotNil(t, notes[0].Retry)
}

func TestResolveOutputDirFallbackPersists(t *testing.T) {
	engine := &fakeEngine{downloadDir: "/home/user/Downloads"}
	dirs := &fakeDirs{}
	o, list, _ := newTestOrchestrator(t, engine, dirs, nil)

	_, err := list.Add("https://example.com/a")
	require.NoError(t, err)

	require.NoError(t, o.StartDownload(context.Background()))

	assert.Equal(t, "/home/user/Downloads", dirs.OutputDir())
	require.Len(t, engine.downloads, 1)
	assert.Equal(t, "/home/user/Downloads", engine.downloads[0].OutputLocation)

	// A second run uses the persisted directory without another query.
	list.SetStatus(0, media.StatusPending)
	require.NoError(t, o.StartDownload(context.Background()))
	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, 1, engine.dirQueries)
}

func TestCancelAllForwardsToEngine(t *testing.T) {
	engine := &fakeEngine{}
	dirs := &fakeDirs{dir: "/out"}
	o, _, _ := newTestOrchestrator(t, engine, dirs, nil)

	o.CancelAll(context.Background())

	assert.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return engine.cancelCalls == 1
	}, time.Second, 5*time.Millisecond)
}
