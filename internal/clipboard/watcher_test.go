package clipboard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watcherFixture struct {
	w       *Watcher
	clock   time.Time
	text    string
	readErr error
	reads   int
	added   []string
}

func newWatcherFixture(enabled bool) *watcherFixture {
	f := &watcherFixture{clock: time.Unix(1000, 0)}
	f.w = NewWatcher(
		func(ctx context.Context) (string, error) {
			f.reads++
			return f.text, f.readErr
		},
		func(url string) error {
			f.added = append(f.added, url)
			return nil
		},
		func() bool { return enabled },
		testLogger(),
	)
	f.w.now = func() time.Time { return f.clock }
	return f
}

func (f *watcherFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func TestWatcherImportsHTTPURL(t *testing.T) {
	f := newWatcherFixture(true)
	f.text = "https://example.com/video"

	require.True(t, f.w.CheckOnFocus(context.Background()))
	assert.Equal(t, []string{"https://example.com/video"}, f.added)
}

func TestWatcherDropCooldownSuppressesRead(t *testing.T) {
	f := newWatcherFixture(true)
	f.text = "https://example.com/video"

	f.w.MarkDropOccurred()
	f.advance(100 * time.Millisecond)
	assert.False(t, f.w.CheckOnFocus(context.Background()))
	assert.Zero(t, f.reads, "cooldown must skip the clipboard read entirely")

	f.advance(500 * time.Millisecond)
	assert.True(t, f.w.CheckOnFocus(context.Background()))
	assert.Equal(t, 1, f.reads)
}

func TestWatcherResetDropTimestampLiftsSuppression(t *testing.T) {
	f := newWatcherFixture(true)
	f.text = "https://example.com/video"

	f.w.MarkDropOccurred()
	f.w.ResetDropTimestamp()
	assert.True(t, f.w.CheckOnFocus(context.Background()))
}

func TestWatcherDisabledSkipsRead(t *testing.T) {
	f := newWatcherFixture(false)
	f.text = "https://example.com/video"

	assert.False(t, f.w.CheckOnFocus(context.Background()))
	assert.Zero(t, f.reads)
}

func TestWatcherIgnoresNonURLText(t *testing.T) {
	f := newWatcherFixture(true)

	for _, text := range []string{"hello world", "ftp://example.com/file", "https://", ""} {
		f.text = text
		assert.False(t, f.w.CheckOnFocus(context.Background()), "text %q", text)
	}
	assert.Empty(t, f.added)
}

func TestWatcherSkipsRepeatedText(t *testing.T) {
	f := newWatcherFixture(true)
	f.text = "https://example.com/video"

	require.True(t, f.w.CheckOnFocus(context.Background()))
	assert.False(t, f.w.CheckOnFocus(context.Background()))
	require.Len(t, f.added, 1)

	f.text = "https://example.com/other"
	assert.True(t, f.w.CheckOnFocus(context.Background()))
	assert.Len(t, f.added, 2)
}

func TestWatcherReadErrorIsNonFatal(t *testing.T) {
	f := newWatcherFixture(true)
	f.readErr = errors.New("no clipboard tool")

	var observed []error
	f.w.SetOnReadError(func(err error) { observed = append(observed, err) })

	assert.False(t, f.w.CheckOnFocus(context.Background()))
	assert.Empty(t, f.added)
	require.Len(t, observed, 1)
	assert.ErrorContains(t, observed[0], "no clipboard tool")
}

func TestWatcherLogsReadFailureAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	w := NewWatcher(
		func(ctx context.Context) (string, error) { return "", errors.New("no clipboard tool") },
		func(url string) error { return nil },
		nil,
		slog.New(slog.NewTextHandler(&buf, nil)),
	)

	assert.False(t, w.CheckOnFocus(context.Background()))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "clipboard read failed")
}
