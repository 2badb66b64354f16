package offlinequeue

import (
	"sync"
	"time"
)

// historyCapacity bounds the in-memory history ring buffer; the admin
// review UI (out of scope here) only ever needs recent outcomes.
const historyCapacity = 200

// HistoryEntry records one terminal or admin-initiated transition of an
// operation, for the admin review surface and audit trail.
type HistoryEntry struct {
	OperationID string
	Status      OperationStatus
	Note        string
	ActorID     *int64
	At          time.Time
}

// History is a capped ring buffer of HistoryEntry, newest last.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

// NewHistory constructs an empty History.
func NewHistory() *History {
	return &History{entries: make([]HistoryEntry, 0, historyCapacity)}
}

// Record appends e, evicting the oldest entry once at capacity.
func (h *History) Record(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) >= historyCapacity {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, e)
}

// Entries returns a snapshot of the recorded history, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
