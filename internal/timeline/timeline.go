package timeline

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDuplicateEntry is returned when an entry with the same dedup key
	// already exists. Duplicates are rejected, not merged, because a silent
	// merge could hide a protocol-level replay.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrNotFound is returned when an operation references a missing key.
	ErrNotFound = errors.New("entry not found")
)

// Timeline is the append-only, time-ordered log of chat/voice entries for a
// profile. Radio delivery reorders within a short window, so Append inserts
// at the timestamp position rather than at the end. One in-memory instance
// owns the entries; mutation is serialized by a writer lock.
type Timeline struct {
	mu      sync.RWMutex
	entries []*Entry // ascending timestamp, ties in arrival order
	byKey   map[string]*Entry
	byMsgID map[string]*Entry
}

// New creates an empty timeline.
func New() *Timeline {
	return &Timeline{
		byKey:   make(map[string]*Entry),
		byMsgID: make(map[string]*Entry),
	}
}

// Append inserts an entry preserving timestamp order. Entries default to
// visible and auth-unknown. Returns ErrDuplicateEntry when the dedup key is
// already present.
func (t *Timeline) Append(e Entry) error {
	if e.Auth == "" {
		e.Auth = AuthUnknown
	}
	e.Visible = true

	t.mu.Lock()
	defer t.mu.Unlock()

	key := e.DedupKey()
	if _, ok := t.byKey[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, key)
	}

	// First position whose timestamp is strictly later; equal timestamps
	// keep arrival order.
	pos := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Timestamp.After(e.Timestamp)
	})

	ent := &e
	t.entries = append(t.entries, nil)
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = ent

	t.byKey[key] = ent
	if e.MessageID != "" {
		t.byMsgID[e.MessageID] = ent
	}
	return nil
}

// ApplyVerdict stamps the auth state of the entry owning messageID.
// Verified and Failed are terminal: re-applying a verdict to a terminal
// entry is a no-op, so stale or duplicate verdicts are harmless. Returns
// ErrNotFound when the entry has not arrived yet; the caller may retry.
func (t *Timeline) ApplyVerdict(messageID string, state AuthState) error {
	if state != AuthVerified && state != AuthFailed {
		return fmt.Errorf("invalid verdict state %q", state)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	ent, ok := t.byMsgID[messageID]
	if !ok {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	if ent.Auth != AuthUnknown {
		return nil
	}
	ent.Auth = state
	return nil
}

// SetVisible toggles the display filter flag for the entry with the given
// dedup key. Filtering never removes data and is reversible.
func (t *Timeline) SetVisible(key string, visible bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ent, ok := t.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	ent.Visible = visible
	return nil
}

// Clear empties the timeline. Irreversible; only invoked by an explicit
// user action.
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.byKey = make(map[string]*Entry)
	t.byMsgID = make(map[string]*Entry)
}

// Filter selects entries for Snapshot. Zero time bounds are unbounded.
type Filter struct {
	From, To      time.Time
	IncludeHidden bool
}

// Snapshot returns a restartable sequence of entries matching the filter in
// ascending timestamp order, ties broken by arrival order. The sequence
// iterates over a copy taken at call time, so readers never wait on writers.
func (t *Timeline) Snapshot(f Filter) iter.Seq[Entry] {
	t.mu.RLock()
	matched := make([]Entry, 0, len(t.entries))
	for _, ent := range t.entries {
		if !f.IncludeHidden && !ent.Visible {
			continue
		}
		if !f.From.IsZero() && ent.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && ent.Timestamp.After(f.To) {
			continue
		}
		matched = append(matched, *ent)
	}
	t.mu.RUnlock()

	return func(yield func(Entry) bool) {
		for _, e := range matched {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries, hidden ones included.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
