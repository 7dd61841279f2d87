package downloads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/remedia-app/remedia/internal/media"
)

// ControllerState tracks where a remote-initiated start is in its
// lifecycle. A remote add or start cannot dispatch immediately because
// list population is asynchronous; the controller waits for the list to
// become non-empty and dispatches exactly once.
type ControllerState int

const (
	// StateIdle means no remote start is pending.
	StateIdle ControllerState = iota
	// StateAwaitingList means a start was requested and the controller
	// is waiting for the list to have items.
	StateAwaitingList
	// StateDispatching means a batch start is in flight.
	StateDispatching
)

func (s ControllerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingList:
		return "awaiting-list"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// StartFunc dispatches a download batch.
type StartFunc func(ctx context.Context) error

// CancelFunc cancels all running downloads.
type CancelFunc func(ctx context.Context)

// AddFunc imports a URL into the list, typically kicking off metadata
// resolution as a side effect.
type AddFunc func(url string) error

// Controller translates remote commands into list mutations and batch
// dispatches. It owns the pending-start state machine: a start request
// parks in StateAwaitingList until a list change reports items, then
// dispatches exactly once.
type Controller struct {
	list   *media.List
	add    AddFunc
	start  StartFunc
	cancel CancelFunc
	dirs   OutputDirStore
	logger *slog.Logger

	mu    sync.Mutex
	state ControllerState
}

// NewController wires a controller in StateIdle. A nil add falls back to
// a plain list insert.
func NewController(list *media.List, add AddFunc, start StartFunc, cancel CancelFunc, dirs OutputDirStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if add == nil {
		add = func(url string) error {
			_, err := list.Add(url)
			return err
		}
	}
	return &Controller{
		list:   list,
		add:    add,
		start:  start,
		cancel: cancel,
		dirs:   dirs,
		logger: logger.With("component", "remote-controller"),
	}
}

// State returns the current pending-start state.
func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleAddURL adds a remotely submitted URL and arms a start. The add
// kicks off asynchronous metadata resolution, so dispatch waits for the
// list change instead of firing here.
func (c *Controller) HandleAddURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("remote add: empty url")
	}
	if err := c.add(url); err != nil {
		// Duplicates are not fatal for the remote flow; the item is
		// already listed and an armed start can still use it.
		c.logger.Warn("remote url not added", "url", url, "error", err)
	} else {
		c.logger.Info("remote url added", "url", url)
	}

	c.mu.Lock()
	if c.state == StateIdle {
		c.state = StateAwaitingList
	}
	c.mu.Unlock()

	// The list already has items when the URL was a duplicate or the
	// add landed synchronously; let the state machine observe that now.
	c.ListChanged(c.list.Len())
	return nil
}

// HandleStart arms a start for whenever the list has items.
func (c *Controller) HandleStart() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.state = StateAwaitingList
	}
	c.mu.Unlock()

	c.ListChanged(c.list.Len())
}

// ListChanged is the list's change hook. It dispatches a pending start
// once the list is non-empty, at most once per armed start.
func (c *Controller) ListChanged(length int) {
	c.mu.Lock()
	if c.state != StateAwaitingList || length == 0 {
		c.mu.Unlock()
		return
	}
	c.state = StateDispatching
	c.mu.Unlock()

	go func() {
		if err := c.start(context.Background()); err != nil {
			c.logger.Error("remote start failed", "error", err)
		}
		c.mu.Lock()
		// A clear during dispatch already reset the machine; do not
		// clobber that.
		if c.state == StateDispatching {
			c.state = StateIdle
		}
		c.mu.Unlock()
	}()
}

// HandleCancel forwards cancellation. Pending-start state is untouched;
// a clear is the only thing that disarms it.
func (c *Controller) HandleCancel(ctx context.Context) {
	c.cancel(ctx)
}

// HandleClear empties the list and unconditionally resets the state
// machine, disarming any parked start.
func (c *Controller) HandleClear() {
	c.list.Clear()
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.logger.Info("remote clear")
}

// HandleSetDirectory persists a remotely supplied output directory.
func (c *Controller) HandleSetDirectory(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("remote set directory: empty path")
	}
	c.dirs.SetOutputDir(dir)
	c.logger.Info("remote output directory set", "dir", dir)
	return nil
}
