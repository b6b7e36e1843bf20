package object

import "iter"

const (
	// DefaultTableCap is the capacity a table allocates on its first insertion.
	DefaultTableCap = 8

	// load factor 3/4, counted over live entries plus tombstones
	maxLoadNum = 3
	maxLoadDen = 4
)

// Entry is one slot of a Table.
// An empty slot has NoHandle as key and an undefined value; a tombstone has
// NoHandle as key and a non-null sentinel value so probe chains stay intact.
type Entry struct {
	Key   Handle
	Hash  uint32
	Tag   Tag
	Value Value
}

func (e *Entry) isTombstone() bool {
	return e.Key == NoHandle && e.Value.Kind == VKBool
}

// Table is an open-addressing hash map from interned string handles to tagged values.
// It backs globals name resolution, class/instance attributes and the intern set.
type Table struct {
	entries []Entry
	count   int // live entries + tombstones
	live    int
}

// NewTable returns an empty table. Storage is allocated lazily.
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.live }

// Count returns occupied slots including tombstones.
func (t *Table) Count() int { return t.count }

// Cap returns the slot capacity.
func (t *Table) Cap() int { return len(t.entries) }

// probe walks the triangular probe sequence idx_k = h + k(k+1)/2 (mod cap).
// On a power-of-two capacity it visits every slot, so it always finds either the key
// or an empty slot. The first tombstone seen is returned for insertion reuse.
func (t *Table) probe(entries []Entry, key Handle, hash uint32) int {
	mask := uint32(len(entries) - 1)
	idx := hash & mask
	tomb := -1
	for k := uint32(1); ; k++ {
		e := &entries[idx]
		switch {
		case e.Key == key && key != NoHandle:
			return int(idx)
		case e.Key == NoHandle && !e.isTombstone():
			if tomb >= 0 {
				return tomb
			}
			return int(idx)
		case e.isTombstone() && tomb < 0:
			tomb = int(idx)
		}
		idx = (idx + k) & mask
	}
}

// Get returns the entry stored under key.
func (t *Table) Get(key Handle, hash uint32) (Entry, bool) {
	if t.live == 0 {
		return Entry{}, false
	}
	e := t.entries[t.probe(t.entries, key, hash)]
	if e.Key == NoHandle {
		return Entry{}, false
	}
	return e, true
}

// Set inserts or overwrites key. It reports whether the key was newly added.
func (t *Table) Set(key Handle, hash uint32, tag Tag, v Value) bool {
	if (t.count+1)*maxLoadDen > len(t.entries)*maxLoadNum {
		newCap := len(t.entries) * 2
		if newCap < DefaultTableCap {
			newCap = DefaultTableCap
		}
		t.resize(newCap)
	}
	idx := t.probe(t.entries, key, hash)
	e := &t.entries[idx]
	isNew := e.Key == NoHandle
	if isNew {
		if !e.isTombstone() {
			t.count++
		}
		t.live++
	}
	*e = Entry{Key: key, Hash: hash, Tag: tag, Value: v}
	return isNew
}

// Update overwrites the value of an existing key, keeping its tag.
func (t *Table) Update(key Handle, hash uint32, v Value) bool {
	if t.live == 0 {
		return false
	}
	e := &t.entries[t.probe(t.entries, key, hash)]
	if e.Key == NoHandle {
		return false
	}
	e.Value = v
	return true
}

// Delete removes key, leaving a tombstone.
func (t *Table) Delete(key Handle, hash uint32) bool {
	if t.live == 0 {
		return false
	}
	e := &t.entries[t.probe(t.entries, key, hash)]
	if e.Key == NoHandle {
		return false
	}
	*e = Entry{Value: Bool(true)}
	t.live--
	return true
}

// resize rehashes every live entry into a fresh slot array; tombstones are dropped.
func (t *Table) resize(capacity int) {
	entries := make([]Entry, capacity)
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key == NoHandle {
			continue
		}
		entries[t.probe(entries, e.Key, e.Hash)] = *e
		t.count++
	}
	t.entries = entries
	t.live = t.count
}

// FindString looks a key up by content rather than identity; used by interning.
// content resolves a key handle to its bytes.
func (t *Table) FindString(s string, hash uint32, content func(Handle) string) Handle {
	if t.live == 0 {
		return NoHandle
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for k := uint32(1); ; k++ {
		e := &t.entries[idx]
		if e.Key == NoHandle {
			if !e.isTombstone() {
				return NoHandle
			}
		} else if e.Hash == hash && content(e.Key) == s {
			return e.Key
		}
		idx = (idx + k) & mask
	}
}

// AddAll copies every live entry of t into dst.
func (t *Table) AddAll(dst *Table) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != NoHandle {
			dst.Set(e.Key, e.Hash, e.Tag, e.Value)
		}
	}
}

// Clone returns a snapshot copy of t.
func (t *Table) Clone() *Table {
	out := NewTable()
	t.AddAll(out)
	return out
}

// RemoveIf deletes every live entry matching pred and returns how many were removed.
func (t *Table) RemoveIf(pred func(Entry) bool) int {
	removed := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != NoHandle && pred(*e) {
			*e = Entry{Value: Bool(true)}
			t.live--
			removed++
		}
	}
	return removed
}

// All iterates live entries in slot order.
func (t *Table) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := range t.entries {
			if t.entries[i].Key == NoHandle {
				continue
			}
			if !yield(t.entries[i]) {
				return
			}
		}
	}
}
