package scheduler

import "sync"

// historyCap bounds the in-memory execution history. Oldest records are
// evicted first.
const historyCap = 100

type history struct {
	mu    sync.Mutex
	items []HistoryRecord
}

func (h *history) append(rec HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, rec)
	if len(h.items) > historyCap {
		h.items = h.items[len(h.items)-historyCap:]
	}
}

// recent returns up to limit records, newest first. limit <= 0 (or larger
// than the stored count) returns everything. Newest-first is the one and
// only ordering this package exposes.
func (h *history) recent(limit int) []HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]HistoryRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = h.items[n-1-i]
	}
	return out
}

func (h *history) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}
