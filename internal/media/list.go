package media

import (
	"fmt"
	"sync"
)

// List is the single authoritative store for the active download list.
// All mutations go through it; readers get copies so a snapshot taken
// before an await cannot be torn by later writes.
type List struct {
	mu      sync.RWMutex
	records []MediaRecord

	// onChange, if set, observes the list length after every mutation.
	// Invoked outside the lock.
	onChange func(length int)
}

// NewList creates an empty list store.
func NewList() *List {
	return &List{}
}

// SetOnChange installs the length observer. Must be called before the
// list is shared across goroutines.
func (l *List) SetOnChange(fn func(length int)) {
	l.onChange = fn
}

func (l *List) notify() {
	if l.onChange != nil {
		l.onChange(l.Len())
	}
}

// Add appends a pending record for url, deduplicating against existing
// URLs (case-sensitive). It returns the record's index, or an error for
// an empty or duplicate URL.
func (l *List) Add(url string) (int, error) {
	if url == "" {
		return -1, fmt.Errorf("url cannot be empty")
	}

	l.mu.Lock()
	for _, r := range l.records {
		if r.URL == url {
			l.mu.Unlock()
			return -1, fmt.Errorf("url already in list: %s", url)
		}
	}
	idx := len(l.records)
	l.records = append(l.records, MediaRecord{
		ID:     url,
		URL:    url,
		Title:  url,
		Status: StatusPending,
	})
	l.mu.Unlock()

	l.notify()
	return idx, nil
}

// Clear removes every record. Records are only ever removed by explicit
// clearing, never collected implicitly.
func (l *List) Clear() {
	l.mu.Lock()
	l.records = nil
	l.mu.Unlock()
	l.notify()
}

// Len reports the number of records.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Snapshot returns a copy of the current records.
func (l *List) Snapshot() []MediaRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]MediaRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Get returns a copy of the record at idx.
func (l *List) Get(idx int) (MediaRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx < 0 || idx >= len(l.records) {
		return MediaRecord{}, false
	}
	return l.records[idx], true
}

// Update applies fn to the record at idx. Out-of-range indexes are
// ignored; a progress or completion event can outlive a cleared list.
func (l *List) Update(idx int, fn func(*MediaRecord)) {
	l.mu.Lock()
	if idx < 0 || idx >= len(l.records) {
		l.mu.Unlock()
		return
	}
	fn(&l.records[idx])
	l.records[idx].Progress = ClampProgress(l.records[idx].Progress)
	l.mu.Unlock()
	l.notify()
}

// SetStatus transitions the record at idx to status. Terminal completion
// pins progress to 100.
func (l *List) SetStatus(idx int, status Status) {
	l.Update(idx, func(r *MediaRecord) {
		r.Status = status
		if status == StatusDone {
			r.Progress = 100
		}
	})
}

// Pending returns copies of all records not yet done. This is the set the
// orchestrator dispatches.
func (l *List) Pending() []MediaRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []MediaRecord
	for _, r := range l.records {
		if r.Status != StatusDone {
			out = append(out, r)
		}
	}
	return out
}

// IndexByURL returns the index of the record with url, or -1.
func (l *List) IndexByURL(url string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, r := range l.records {
		if r.URL == url {
			return i
		}
	}
	return -1
}

// Collections returns the distinct collections referenced by the list,
// deduplicated by collection id, in first-seen order.
func (l *List) Collections() []Collection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]bool)
	var out []Collection
	for _, r := range l.records {
		if r.CollectionID == "" || seen[r.CollectionID] {
			continue
		}
		seen[r.CollectionID] = true
		out = append(out, Collection{
			ID:   r.CollectionID,
			Kind: r.CollectionType,
			Name: r.CollectionName,
			Slug: r.FolderSlug,
		})
	}
	return out
}
