package observability

import (
	"context"
	"errors"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════
// Observability Tests
// ═══════════════════════════════════════════════════════════════════════════

// ─── Journal ────────────────────────────────────────────────────────────────

func TestJournal_BeginEnd_RecordsEntry(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())
	ctx := context.Background()

	e := j.Begin(ctx, "gacha.pull", map[string]string{"banner": "b_standard"})
	j.End(e, nil)

	if j.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", j.Len())
	}
	got := j.Recent(1)[0]
	if got.Operation != "gacha.pull" {
		t.Errorf("Operation = %q, want %q", got.Operation, "gacha.pull")
	}
	if got.Status != EntryOK {
		t.Errorf("Status = %d, want EntryOK", got.Status)
	}
	if got.Attrs["banner"] != "b_standard" {
		t.Errorf("Attrs[banner] = %q", got.Attrs["banner"])
	}
}

func TestJournal_End_RecordsError(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())
	e := j.Begin(context.Background(), "gacha.level_up", nil)
	j.End(e, errors.New("not enough coins"))

	got := j.Recent(1)[0]
	if got.Status != EntryError {
		t.Errorf("Status = %d, want EntryError", got.Status)
	}
	if got.Attrs["error"] != "not enough coins" {
		t.Errorf("error attr = %q", got.Attrs["error"])
	}
}

func TestJournal_Disabled(t *testing.T) {
	j := NewJournal(JournalConfig{Enabled: false, MaxEntries: 10})
	j.End(j.Begin(context.Background(), "noop", nil), nil)
	if j.Len() != 0 {
		t.Errorf("disabled journal Len() = %d, want 0", j.Len())
	}
}

func TestJournal_RingBuffer_Overflow(t *testing.T) {
	j := NewJournal(JournalConfig{Enabled: true, MaxEntries: 3})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		j.End(j.Begin(ctx, "op", nil), nil)
	}
	if j.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (ring buffer overflow)", j.Len())
	}
}

func TestJournal_Recent_Limit(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		j.End(j.Begin(ctx, "op", nil), nil)
	}
	if got := len(j.Recent(3)); got != 3 {
		t.Errorf("Recent(3) returned %d, want 3", got)
	}
	if got := len(j.Recent(0)); got != 10 {
		t.Errorf("Recent(0) returned %d, want all 10", got)
	}
}

func TestJournal_Reset(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())
	j.End(j.Begin(context.Background(), "op", nil), nil)
	j.Reset()
	if j.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", j.Len())
	}
}

func TestJournal_RequestIDPropagation(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())
	ctx := WithRequestID(context.Background(), "req-123")
	j.End(j.Begin(ctx, "op", nil), nil)

	if got := j.Recent(1)[0].RequestID; got != "req-123" {
		t.Errorf("RequestID = %q, want %q", got, "req-123")
	}
}

func TestJournal_NilSafe(t *testing.T) {
	var j *Journal
	e := j.Begin(context.Background(), "op", nil)
	j.End(e, nil)
	if e.Operation != "op" {
		t.Errorf("Operation = %q", e.Operation)
	}
}

// ─── Logger ─────────────────────────────────────────────────────────────────

func TestNewLogger_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := NewLogger(mode, "info")
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", mode, err)
		}
		l.Named("test").With("k", "v").Debug("hidden at info level")
	}
	if _, err := NewLogger("dev", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogger_NilNamed(t *testing.T) {
	var l *Logger
	l.Named("x").Info("does not panic")
}
