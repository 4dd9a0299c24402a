package engine

import "testing"

func TestLedgerLocksFirstSelection(t *testing.T) {
	l := NewLedger(3)

	if !l.Set(0, "o1") {
		t.Fatalf("first set should succeed")
	}
	if l.Set(0, "o2") {
		t.Fatalf("second set on same index should be a no-op")
	}
	kind, opt := l.Entry(0)
	if kind != EntrySelected || opt != "o1" {
		t.Fatalf("expected first value kept, got kind=%v opt=%q", kind, opt)
	}
}

func TestLedgerTimeoutDoesNotOverrideSelection(t *testing.T) {
	l := NewLedger(2)

	l.Set(0, "o1")
	if l.MarkTimedOut(0) {
		t.Fatalf("timeout on a set entry should be a no-op")
	}
	if kind, opt := l.Entry(0); kind != EntrySelected || opt != "o1" {
		t.Fatalf("expected selection preserved, got kind=%v opt=%q", kind, opt)
	}

	if !l.MarkTimedOut(1) {
		t.Fatalf("timeout on unset entry should succeed")
	}
	if l.Set(1, "o2") {
		t.Fatalf("selection after timeout should be a no-op")
	}
}

func TestLedgerCounts(t *testing.T) {
	l := NewLedger(4)

	if l.CountAnswered() != 0 || l.CountRemaining() != 4 || l.IsComplete() {
		t.Fatalf("fresh ledger should be all unset")
	}

	l.Set(0, "o1")
	l.MarkTimedOut(2)
	if got := l.CountAnswered(); got != 2 {
		t.Fatalf("expected 2 answered, got %d", got)
	}
	if got := l.CountRemaining(); got != 2 {
		t.Fatalf("expected 2 remaining, got %d", got)
	}

	l.Set(1, "o1")
	l.Set(3, "o2")
	if !l.IsComplete() {
		t.Fatalf("expected complete ledger")
	}
}

func TestLedgerOutOfRange(t *testing.T) {
	l := NewLedger(1)
	if l.Set(-1, "o1") || l.Set(1, "o1") || l.MarkTimedOut(5) {
		t.Fatalf("out of range writes must fail")
	}
}
