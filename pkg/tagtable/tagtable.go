// Package tagtable implements the case-insensitive name -> Tag map shared
// between the client's declare/remove API and the polling engine's scan.
package tagtable

import (
	"strings"
	"sync"

	"github.com/s7gopher/s7/pkg/address"
	"github.com/s7gopher/s7/pkg/s7type"
)

// Tag is the canonical entity the table manages: a name bound to a PLC
// address and a declared type, plus the most recently decoded value and any
// value pending write.
type Tag struct {
	Name        string
	Address     address.Address
	Kind        s7type.Kind
	ArrayLength int
	DoNotPoll   bool

	mu           sync.Mutex
	value        any
	hasValue     bool
	pendingValue any
	hasPending   bool
}

// WidthBytes returns sizeof(element) * ArrayLength, with Bool treated as
// one bit within a shared byte (still reported as 1 byte of wire traffic
// per element).
func (t *Tag) WidthBytes() int {
	if t.Kind == s7type.KindS7String {
		return 2 + t.ArrayLength // ArrayLength doubles as declared max length for strings
	}
	w, err := s7type.ElementWidth(t.Kind)
	if err != nil {
		return 0
	}
	n := t.ArrayLength
	if n < 1 {
		n = 1
	}
	return w * n
}

// Value returns the most recently decoded value and whether one has ever
// been set.
func (t *Tag) Value() (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.hasValue
}

// SetValue records a freshly decoded value. Called only by the poller or a
// synchronous read, and only when the decoded type matches the tag's
// declared Kind.
func (t *Tag) SetValue(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = v
	t.hasValue = true
}

// SetPending stages a value to write on the next Write dispatch.
func (t *Tag) SetPending(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingValue = v
	t.hasPending = true
}

// TakePending consumes and clears the pending value, if any.
func (t *Tag) TakePending() (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasPending {
		return nil, false
	}
	v := t.pendingValue
	t.pendingValue = nil
	t.hasPending = false
	return v, true
}

// Table is a thread-safe, case-insensitive name -> *Tag map. Insertion order
// is preserved so snapshots scan in the order tags were first declared.
type Table struct {
	mu    sync.RWMutex
	tags  map[string]*Tag
	order []string
}

// New returns an empty Table.
func New() *Table {
	return &Table{tags: make(map[string]*Tag)}
}

func key(name string) string { return strings.ToUpper(name) }

// InsertOrUpdate registers a new tag or replaces an existing one under the
// same case-insensitive name. It does not preserve the previous tag's value.
// Replacing an existing tag keeps its original position in snapshot order.
func (tb *Table) InsertOrUpdate(tag *Tag) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	k := key(tag.Name)
	if _, exists := tb.tags[k]; !exists {
		tb.order = append(tb.order, k)
	}
	tb.tags[k] = tag
}

// Remove deletes the named tag, if present.
func (tb *Table) Remove(name string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	k := key(name)
	if _, exists := tb.tags[k]; !exists {
		return
	}
	delete(tb.tags, k)
	for i, o := range tb.order {
		if o == k {
			tb.order = append(tb.order[:i], tb.order[i+1:]...)
			break
		}
	}
}

// Get looks up a tag by case-insensitive name.
func (tb *Table) Get(name string) (*Tag, bool) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	t, ok := tb.tags[key(name)]
	return t, ok
}

// SnapshotPollable returns a consistent list of references, in insertion
// order, to tags whose DoNotPoll is false at call time. The slice is a
// fresh copy of references; tag bodies are not copied, so the lock is not
// held across later I/O, and concurrent inserts made after this call are
// not reflected in the returned slice.
func (tb *Table) SnapshotPollable() []*Tag {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	out := make([]*Tag, 0, len(tb.tags))
	for _, k := range tb.order {
		t := tb.tags[k]
		if t != nil && !t.DoNotPoll {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of tags currently registered.
func (tb *Table) Len() int {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return len(tb.tags)
}
