package streams

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFields(t *testing.T, flat ...string) []FieldPair {
	t.Helper()
	fields, err := NewFields(flat)
	require.NoError(t, err)
	return fields
}

func TestStream_AppendExplicit(t *testing.T) {
	s := NewStream()

	id, err := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 1, Seq: 0}}, mustFields(t, "a", "1"))
	require.NoError(t, err)
	assert.Equal(t, EntryID{Ms: 1, Seq: 0}, id)
	assert.Equal(t, id, s.LastID())

	t.Run("rejects id not greater than last", func(t *testing.T) {
		_, err := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 1, Seq: 0}}, nil)
		assert.ErrorIs(t, err, ErrIDTooSmall)

		_, err = s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 0, Seq: 5}}, nil)
		assert.ErrorIs(t, err, ErrIDTooSmall)
	})

	t.Run("accepts strictly greater id", func(t *testing.T) {
		id, err := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 2, Seq: 0}}, mustFields(t, "a", "2"))
		require.NoError(t, err)
		assert.Equal(t, EntryID{Ms: 2, Seq: 0}, id)
	})
}

func TestStream_AppendAutoSeq(t *testing.T) {
	s := NewStream()
	_, err := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 5, Seq: 3}}, nil)
	require.NoError(t, err)

	t.Run("same ms bumps sequence", func(t *testing.T) {
		id, err := s.Append(ParsedID{Kind: KindAutoSeq, ID: EntryID{Ms: 5}}, nil)
		require.NoError(t, err)
		assert.Equal(t, EntryID{Ms: 5, Seq: 4}, id)
	})

	t.Run("newer ms starts at sequence zero", func(t *testing.T) {
		id, err := s.Append(ParsedID{Kind: KindAutoSeq, ID: EntryID{Ms: 6}}, nil)
		require.NoError(t, err)
		assert.Equal(t, EntryID{Ms: 6, Seq: 0}, id)
	})

	t.Run("older ms is rejected", func(t *testing.T) {
		_, err := s.Append(ParsedID{Kind: KindAutoSeq, ID: EntryID{Ms: 1}}, nil)
		assert.ErrorIs(t, err, ErrIDTooSmall)
	})
}

func TestStream_AppendFullAuto(t *testing.T) {
	s := NewStream()

	_, err := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 1<<62, Seq: 5}}, nil)
	require.NoError(t, err)

	// A fully-automatic id generated "now" would be far smaller than the
	// artificial last_id above, so it must fall back to (last.Ms, last.Seq+1)
	// rather than violate monotonicity.
	id, err := s.Append(ParsedID{Kind: KindFullAuto}, nil)
	require.NoError(t, err)
	assert.True(t, id.Greater(EntryID{Ms: 1 << 62, Seq: 5}))
}

func TestStream_RangeAndAfter(t *testing.T) {
	s := NewStream()
	var ids []EntryID
	for i := uint64(1); i <= 5; i++ {
		id, err := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: i, Seq: 0}}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("Range is inclusive on both ends", func(t *testing.T) {
		entries := s.Range(ids[1], ids[3], -1)
		require.Len(t, entries, 3)
		assert.Equal(t, ids[1], entries[0].ID)
		assert.Equal(t, ids[3], entries[2].ID)
	})

	t.Run("Range respects count", func(t *testing.T) {
		entries := s.Range(MinID, MaxID, 2)
		require.Len(t, entries, 2)
		assert.Equal(t, ids[0], entries[0].ID)
	})

	t.Run("After is exclusive of the cursor", func(t *testing.T) {
		entries := s.After(ids[2], -1)
		require.Len(t, entries, 2)
		assert.Equal(t, ids[3], entries[0].ID)
	})

	t.Run("Range with nothing in bounds is empty, not an error", func(t *testing.T) {
		entries := s.Range(EntryID{Ms: 100}, EntryID{Ms: 200}, -1)
		assert.Empty(t, entries)
	})
}

func TestStream_Delete(t *testing.T) {
	s := NewStream()
	id1, _ := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 1, Seq: 0}}, nil)
	id2, _ := s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 2, Seq: 0}}, nil)

	removed := s.Delete([]EntryID{id1, {Ms: 99, Seq: 0}})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Length())

	t.Run("last id is not rolled back", func(t *testing.T) {
		assert.Equal(t, id2, s.LastID())
	})
}

func TestStream_Groups(t *testing.T) {
	s := NewStream()
	s.Append(ParsedID{Kind: KindExplicit, ID: EntryID{Ms: 1, Seq: 0}}, nil)

	t.Run("CreateGroup at literal id", func(t *testing.T) {
		created, err := s.CreateGroup("g1", "0-0")
		require.NoError(t, err)
		assert.True(t, created)

		g, ok := s.GetGroup("g1")
		require.True(t, ok)
		assert.Equal(t, EntryID{}, g.LastDelivered())
	})

	t.Run("CreateGroup at $ resolves to current last id", func(t *testing.T) {
		created, err := s.CreateGroup("g2", "$")
		require.NoError(t, err)
		assert.True(t, created)

		g, ok := s.GetGroup("g2")
		require.True(t, ok)
		assert.Equal(t, s.LastID(), g.LastDelivered())
	})

	t.Run("duplicate group name fails without error", func(t *testing.T) {
		created, err := s.CreateGroup("g1", "0-0")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("DropGroup removes it", func(t *testing.T) {
		assert.True(t, s.DropGroup("g1"))
		_, ok := s.GetGroup("g1")
		assert.False(t, ok)
		assert.False(t, s.DropGroup("g1"))
	})
}

func TestStream_ConcurrentAppendsStayMonotonic(t *testing.T) {
	s := NewStream()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(ParsedID{Kind: KindFullAuto}, nil)
		}()
	}
	wg.Wait()

	entries := s.Range(MinID, MaxID, -1)
	require.Len(t, entries, 50)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].ID.Less(entries[i].ID))
	}
}
