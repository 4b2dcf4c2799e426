package streams

import (
	"errors"
	"sort"
	"sync"
)

// ErrIDTooSmall is returned by Stream.Append when the resolved id is not
// strictly greater than the stream's last_id (spec §4.2, §7).
var ErrIDTooSmall = errors.New("Stream ID must be greater than last ID")

// Stream is the ordered, append-only index of Entries described in spec
// §3. entries is kept sorted ascending by EntryID; because every
// successful Append inserts an id strictly greater than every id seen
// so far, appends always land at the tail and the slice never needs
// re-sorting.
type Stream struct {
	entriesMu sync.RWMutex
	entries   []Entry
	lastID    EntryID

	groupsMu sync.RWMutex
	groups   map[string]*ConsumerGroup
}

// NewStream returns an empty stream with last_id == MinID.
func NewStream() *Stream {
	return &Stream{groups: make(map[string]*ConsumerGroup)}
}

// Append resolves parsed against the stream's current last_id per the
// auto-generation and monotonicity rules of spec §4.2, inserts the
// resulting Entry, and returns its id.
func (s *Stream) Append(parsed ParsedID, fields []FieldPair) (EntryID, error) {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	var actual EntryID

	switch parsed.Kind {
	case KindFullAuto:
		actual = GenerateNow()
		if !actual.Greater(s.lastID) {
			actual = EntryID{Ms: s.lastID.Ms, Seq: s.lastID.Seq + 1}
		}
	case KindAutoSeq:
		ms := parsed.ID.Ms
		switch {
		case ms == s.lastID.Ms:
			actual = EntryID{Ms: ms, Seq: s.lastID.Seq + 1}
		case ms > s.lastID.Ms:
			actual = EntryID{Ms: ms, Seq: 0}
		default:
			return EntryID{}, ErrIDTooSmall
		}
	default: // KindExplicit
		if !parsed.ID.Greater(s.lastID) {
			return EntryID{}, ErrIDTooSmall
		}
		actual = parsed.ID
	}

	s.entries = append(s.entries, Entry{ID: actual, Fields: fields})
	s.lastID = actual

	return actual, nil
}

// boundsLocked returns the half-open [lo, hi) slice indices covering
// [start, end] inclusive, using binary search over the sorted entries.
// Callers must hold entriesMu.
func (s *Stream) boundsLocked(start, end EntryID) (int, int) {
	lo := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].ID.GreaterEqual(start)
	})
	hi := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].ID.Greater(end)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func cloneEntries(slice []Entry, count int) []Entry {
	if count >= 0 && len(slice) > count {
		slice = slice[:count]
	}
	out := make([]Entry, len(slice))
	copy(out, slice)
	return out
}

// Range returns up to count entries with start <= id <= end, ascending.
// count < 0 means unlimited. Copies are made under the lock so callers
// see a consistent snapshot (spec §5).
func (s *Stream) Range(start, end EntryID, count int) []Entry {
	s.entriesMu.RLock()
	defer s.entriesMu.RUnlock()

	lo, hi := s.boundsLocked(start, end)
	return cloneEntries(s.entries[lo:hi], count)
}

// After returns up to count entries with id > cursor, ascending;
// equivalent to Range(cursor_exclusive, MaxID, count) implemented via
// upper_bound(cursor) (spec §4.2).
func (s *Stream) After(cursor EntryID, count int) []Entry {
	s.entriesMu.RLock()
	defer s.entriesMu.RUnlock()

	idx := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].ID.Greater(cursor)
	})
	return cloneEntries(s.entries[idx:], count)
}

// Delete removes each id present in the stream and returns how many
// were actually removed. last_id is never rolled back (spec §4.2).
func (s *Stream) Delete(ids []EntryID) int {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	removed := 0
	for _, id := range ids {
		idx := sort.Search(len(s.entries), func(i int) bool {
			return s.entries[i].ID.GreaterEqual(id)
		})
		if idx < len(s.entries) && s.entries[idx].ID == id {
			s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
			removed++
		}
	}
	return removed
}

// Length returns the number of entries currently in the stream.
func (s *Stream) Length() int {
	s.entriesMu.RLock()
	defer s.entriesMu.RUnlock()
	return len(s.entries)
}

// LastID returns the highest id ever appended to the stream, whether or
// not that entry has since been deleted.
func (s *Stream) LastID() EntryID {
	s.entriesMu.RLock()
	defer s.entriesMu.RUnlock()
	return s.lastID
}

// CreateGroup creates a consumer group starting at startToken, which may
// be a literal "<ms>-<seq>" id or "$" for the stream's current last_id
// (spec §4.2). It returns false, with no error, if the group already
// exists.
func (s *Stream) CreateGroup(name, startToken string) (bool, error) {
	var start EntryID
	if startToken == "$" {
		start = s.LastID()
	} else {
		var err error
		start, err = ParseID(startToken)
		if err != nil {
			return false, err
		}
	}

	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	if _, exists := s.groups[name]; exists {
		return false, nil
	}
	s.groups[name] = newConsumerGroup(name, start)
	return true, nil
}

// GetGroup returns the named consumer group, if it exists.
func (s *Stream) GetGroup(name string) (*ConsumerGroup, bool) {
	s.groupsMu.RLock()
	defer s.groupsMu.RUnlock()
	g, ok := s.groups[name]
	return g, ok
}

// DropGroup removes a consumer group and its PEL entirely.
func (s *Stream) DropGroup(name string) bool {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	if _, ok := s.groups[name]; !ok {
		return false
	}
	delete(s.groups, name)
	return true
}
