package streams

import (
	"sync"
	"time"
)

// Consumer is per-consumer state inside a group: its name, the wall
// clock of its most recent interaction, and the set of IDs currently
// pending against it (spec §3 "Consumer"). It is created lazily by
// ConsumerGroup.GetOrCreateConsumer and destroyed only by explicit
// removal.
type Consumer struct {
	name string

	mu      sync.Mutex
	seenMs  int64
	pending map[EntryID]struct{}
}

func newConsumer(name string) *Consumer {
	return &Consumer{
		name:    name,
		seenMs:  time.Now().UnixMilli(),
		pending: make(map[EntryID]struct{}),
	}
}

// Name returns the consumer's name.
func (c *Consumer) Name() string {
	return c.name
}

// touch updates seen_ms to the current wall clock, marking this
// consumer as having just interacted with the group.
func (c *Consumer) touch() {
	c.mu.Lock()
	c.seenMs = time.Now().UnixMilli()
	c.mu.Unlock()
}

// SeenMs returns the wall clock of the consumer's last interaction.
func (c *Consumer) SeenMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seenMs
}

func (c *Consumer) addPending(id EntryID) {
	c.mu.Lock()
	c.pending[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Consumer) removePending(id EntryID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// PendingCount returns the number of IDs currently pending against this
// consumer.
func (c *Consumer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// PendingIDs returns a snapshot of the IDs pending against this
// consumer. The order is not contractual.
func (c *Consumer) PendingIDs() []EntryID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]EntryID, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	return ids
}
