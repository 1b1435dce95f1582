package observability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Activity Journal — a ring buffer of recent game operations
// ═══════════════════════════════════════════════════════════════════════════

// EntryStatus indicates success or failure of an operation.
type EntryStatus int

const (
	EntryOK EntryStatus = iota
	EntryError
)

// Entry is one recorded game operation.
type Entry struct {
	ID        string            `json:"id"`
	RequestID string            `json:"request_id,omitempty"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
	Status    EntryStatus       `json:"status"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Journal keeps the most recent operations in memory for the dev view.
type Journal struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	enabled    bool
}

// JournalConfig configures the journal.
type JournalConfig struct {
	Enabled    bool
	MaxEntries int // ring buffer size (default 500)
}

// DefaultJournalConfig returns production defaults.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Enabled:    true,
		MaxEntries: 500,
	}
}

// NewJournal creates a new journal.
func NewJournal(cfg JournalConfig) *Journal {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultJournalConfig().MaxEntries
	}
	return &Journal{
		entries:    make([]Entry, 0, cfg.MaxEntries),
		maxEntries: cfg.MaxEntries,
		enabled:    cfg.Enabled,
	}
}

// Begin starts an entry. The caller must pass it to End.
func (j *Journal) Begin(ctx context.Context, operation string, attrs map[string]string) *Entry {
	if j == nil || !j.enabled {
		return &Entry{Operation: operation}
	}
	return &Entry{
		ID:        nextEntryID(),
		RequestID: RequestIDFromContext(ctx),
		Operation: operation,
		StartTime: time.Now(),
		Status:    EntryOK,
		Attrs:     attrs,
	}
}

// End completes an entry and records it.
func (j *Journal) End(e *Entry, err error) {
	if j == nil || !j.enabled || e == nil || e.ID == "" {
		return
	}

	e.Duration = time.Since(e.StartTime)
	if err != nil {
		e.Status = EntryError
		if e.Attrs == nil {
			e.Attrs = make(map[string]string)
		}
		e.Attrs["error"] = err.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	// Ring buffer: drop oldest if at capacity
	if len(j.entries) >= j.maxEntries {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, *e)
}

// Recent returns a copy of the most recent entries, oldest first.
func (j *Journal) Recent(limit int) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 || limit > len(j.entries) {
		limit = len(j.entries)
	}
	start := len(j.entries) - limit
	out := make([]Entry, limit)
	copy(out, j.entries[start:])
	return out
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Reset clears all recorded entries.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = j.entries[:0]
}

// ─── Context Helpers ────────────────────────────────────────────────────────

type contextKey string

const requestIDKey contextKey = "bst-request-id"

// WithRequestID returns a context carrying the HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

var entryCounter atomic.Int64

func nextEntryID() string {
	n := entryCounter.Add(1)
	return fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), n)
}
