// Package engine drives a single quiz attempt: per-question timing, answer
// locking, partial-submission policy and score reconciliation.
package engine

import "sync"

// EntryKind classifies one slot of the answer ledger.
type EntryKind int

const (
	// EntryUnset means the question has not been attempted.
	EntryUnset EntryKind = iota
	// EntrySelected means an option was locked in.
	EntrySelected
	// EntryTimedOut means the question clock expired before a selection.
	EntryTimedOut
)

// Ledger maps question indexes to locked answers. A slot never transitions
// away from a set value: select once, then locked.
type Ledger struct {
	mu      sync.RWMutex
	kinds   []EntryKind
	options []string
}

// NewLedger returns a ledger of n unset entries.
func NewLedger(n int) *Ledger {
	return &Ledger{
		kinds:   make([]EntryKind, n),
		options: make([]string, n),
	}
}

// Set locks optionID into slot index. It reports false, changing nothing,
// when the index is out of range or the slot is already set.
func (l *Ledger) Set(index int, optionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.kinds) || l.kinds[index] != EntryUnset {
		return false
	}
	l.kinds[index] = EntrySelected
	l.options[index] = optionID
	return true
}

// MarkTimedOut locks slot index as timed out. No-op if already set; a lock-in
// therefore always wins over the timeout for the same index.
func (l *Ledger) MarkTimedOut(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.kinds) || l.kinds[index] != EntryUnset {
		return false
	}
	l.kinds[index] = EntryTimedOut
	return true
}

// Entry returns the kind of slot index and, for selected entries, the locked
// option id.
func (l *Ledger) Entry(index int) (EntryKind, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.kinds) {
		return EntryUnset, ""
	}
	return l.kinds[index], l.options[index]
}

// CountAnswered returns the number of non-unset entries.
func (l *Ledger) CountAnswered() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, k := range l.kinds {
		if k != EntryUnset {
			n++
		}
	}
	return n
}

// CountRemaining returns the number of unset entries.
func (l *Ledger) CountRemaining() int {
	return l.Len() - l.CountAnswered()
}

// IsComplete reports whether every entry is set.
func (l *Ledger) IsComplete() bool {
	return l.CountRemaining() == 0
}

// Len returns the number of slots.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.kinds)
}
