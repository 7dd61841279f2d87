package host

import (
	"fmt"
	"sync"
)

// Queue limits concurrent downloads and holds the overflow. Entries are
// keyed by their list index; a given index can be queued or active at
// most once.
type Queue struct {
	mu            sync.Mutex
	maxConcurrent int
	waiting       []DownloadRequest
	active        map[int]DownloadRequest
}

// NewQueue creates a queue allowing max concurrent downloads (minimum 1).
func NewQueue(max int) *Queue {
	if max < 1 {
		max = 1
	}
	return &Queue{
		maxConcurrent: max,
		active:        make(map[int]DownloadRequest),
	}
}

// Enqueue appends a request, rejecting indexes already queued or active.
func (q *Queue) Enqueue(req DownloadRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, w := range q.waiting {
		if w.Index == req.Index {
			return fmt.Errorf("download %d already queued", req.Index)
		}
	}
	if _, ok := q.active[req.Index]; ok {
		return fmt.Errorf("download %d already active", req.Index)
	}

	q.waiting = append(q.waiting, req)
	return nil
}

// NextToStart pops the next waiting request if a slot is free, marking it
// active. It returns false when nothing can start.
func (q *Queue) NextToStart() (DownloadRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.active) >= q.maxConcurrent || len(q.waiting) == 0 {
		return DownloadRequest{}, false
	}
	req := q.waiting[0]
	q.waiting = q.waiting[1:]
	q.active[req.Index] = req
	return req, true
}

// Complete releases the slot held by index after a successful download.
func (q *Queue) Complete(index int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, index)
}

// Fail releases the slot held by index after a failed download.
func (q *Queue) Fail(index int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, index)
}

// Cancel removes index wherever it is and reports whether anything was
// removed.
func (q *Queue) Cancel(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiting {
		if w.Index == index {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	if _, ok := q.active[index]; ok {
		delete(q.active, index)
		return true
	}
	return false
}

// CancelAll drains the queue and active set, returning every removed
// index.
func (q *Queue) CancelAll() []int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var cancelled []int
	for _, w := range q.waiting {
		cancelled = append(cancelled, w.Index)
	}
	q.waiting = nil
	for idx := range q.active {
		cancelled = append(cancelled, idx)
	}
	q.active = make(map[int]DownloadRequest)
	return cancelled
}

// IsActive reports whether index currently holds a download slot.
func (q *Queue) IsActive(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.active[index]
	return ok
}

// SetMaxConcurrent updates the concurrency limit (minimum 1). Running
// downloads are unaffected; the new limit applies to future starts.
func (q *Queue) SetMaxConcurrent(max int) {
	if max < 1 {
		max = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maxConcurrent = max
}

// Stats summarizes the queue for status reporting.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Queued:        len(q.waiting),
		Active:        len(q.active),
		MaxConcurrent: q.maxConcurrent,
	}
}
