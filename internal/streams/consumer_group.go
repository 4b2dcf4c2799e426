package streams

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// PendingRecord is one entry of a ConsumerGroup's pending entries list
// (PEL): an EntryID that has been delivered but not yet acknowledged,
// plus its owner and delivery accounting (spec §3 "ConsumerGroup").
type PendingRecord struct {
	ID            EntryID
	Owner         string
	DeliveredMs   int64
	DeliveryCount uint32
}

// ConsumerGroup is a named cursor over a Stream plus its PEL and the
// consumers that share it. Locks follow spec §5's ordering: consumers
// before pel; last_delivered is mutated only under the pel lock.
type ConsumerGroup struct {
	name string

	consumersMu sync.RWMutex
	consumers   map[string]*Consumer

	pelMu         sync.Mutex
	pel           map[EntryID]*PendingRecord
	lastDelivered EntryID
}

func newConsumerGroup(name string, start EntryID) *ConsumerGroup {
	return &ConsumerGroup{
		name:          name,
		consumers:     make(map[string]*Consumer),
		pel:           make(map[EntryID]*PendingRecord),
		lastDelivered: start,
	}
}

// Name returns the group's name.
func (g *ConsumerGroup) Name() string {
	return g.name
}

// LastDelivered returns the highest EntryID this group has ever handed
// out. It only ever increases.
func (g *ConsumerGroup) LastDelivered() EntryID {
	g.pelMu.Lock()
	defer g.pelMu.Unlock()
	return g.lastDelivered
}

// GetOrCreateConsumer returns the named consumer, registering it
// lazily on first reference.
func (g *ConsumerGroup) GetOrCreateConsumer(name string) *Consumer {
	g.consumersMu.Lock()
	defer g.consumersMu.Unlock()

	if c, ok := g.consumers[name]; ok {
		return c
	}
	c := newConsumer(name)
	g.consumers[name] = c
	return c
}

// DeleteConsumer removes a consumer from the group. It does not
// reassign or remove that consumer's pending entries: their PEL records
// keep the deleted consumer's name as owner.
func (g *ConsumerGroup) DeleteConsumer(name string) bool {
	g.consumersMu.Lock()
	defer g.consumersMu.Unlock()

	if _, ok := g.consumers[name]; !ok {
		return false
	}
	delete(g.consumers, name)
	return true
}

// ConsumerNames returns a snapshot of registered consumer names.
func (g *ConsumerGroup) ConsumerNames() []string {
	g.consumersMu.RLock()
	defer g.consumersMu.RUnlock()

	names := make([]string, 0, len(g.consumers))
	for name := range g.consumers {
		names = append(names, name)
	}
	return names
}

// Deliver hands out unseen entries from candidates (a pre-filtered,
// ascending list the caller obtained from Stream.After) to consumerName,
// per spec §4.3. Each candidate is claimed atomically under the pel
// lock so that two concurrent Deliver calls in the same group can never
// hand the same ID to two different consumers.
func (g *ConsumerGroup) Deliver(consumerName string, candidates []Entry, count int) []Entry {
	consumer := g.GetOrCreateConsumer(consumerName)
	consumer.touch()

	result := make([]Entry, 0, len(candidates))
	delivered := 0

	for _, e := range candidates {
		if count >= 0 && delivered == count {
			break
		}

		g.pelMu.Lock()
		if !e.ID.Greater(g.lastDelivered) {
			// Already claimed by a racing delivery in this group.
			g.pelMu.Unlock()
			continue
		}
		g.pel[e.ID] = &PendingRecord{
			ID:            e.ID,
			Owner:         consumerName,
			DeliveredMs:   time.Now().UnixMilli(),
			DeliveryCount: 1,
		}
		g.lastDelivered = e.ID
		g.pelMu.Unlock()

		consumer.addPending(e.ID)
		result = append(result, e)
		delivered++
	}

	return result
}

// Ack acknowledges ids on behalf of consumerName. Only ids whose PEL
// record is owned by consumerName are counted; ownership-mismatched or
// unknown ids are silently skipped (spec §4.3, and §9's corrected,
// per-owner-only semantics).
func (g *ConsumerGroup) Ack(consumerName string, ids []EntryID) int {
	consumer := g.GetOrCreateConsumer(consumerName)

	acked := 0
	for _, id := range ids {
		g.pelMu.Lock()
		rec, ok := g.pel[id]
		owns := ok && rec.Owner == consumerName
		if owns {
			delete(g.pel, id)
		}
		g.pelMu.Unlock()

		if owns {
			consumer.removePending(id)
			acked++
		}
	}
	return acked
}

// SetLastDelivered administratively overrides the group's cursor. The
// caller is responsible for choosing a sensible value; this rejects any
// decrease to keep last_delivered monotonically non-decreasing.
func (g *ConsumerGroup) SetLastDelivered(id EntryID) error {
	g.pelMu.Lock()
	defer g.pelMu.Unlock()

	if id.Less(g.lastDelivered) {
		return fmt.Errorf("last delivered id must not decrease")
	}
	g.lastDelivered = id
	return nil
}

// PendingEntries enumerates the PEL, optionally filtered to one
// consumer's records (empty name means the whole group). Entry field
// payloads are not carried — the PEL stores only IDs, per spec §9;
// callers that need payloads join against the owning Stream.
func (g *ConsumerGroup) PendingEntries(consumerName string) []PendingRecord {
	g.pelMu.Lock()
	defer g.pelMu.Unlock()

	result := make([]PendingRecord, 0, len(g.pel))
	for _, rec := range g.pel {
		if consumerName == "" || rec.Owner == consumerName {
			result = append(result, *rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.Less(result[j].ID)
	})
	return result
}
