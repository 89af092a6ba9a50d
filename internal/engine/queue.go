package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cchan/xlsynth/internal/ir"
)

// ChannelQueue holds the values in flight on one channel.
//
// Streaming channels are unbounded FIFOs: every value written is read exactly
// once, in order. Single-value channels hold at most one value: a write
// replaces it and a read returns it without consuming it.
//
// Thread-safety is provided so a caller can inspect queue sizes while a
// simulation runs; the runtimes themselves are single-threaded.
type ChannelQueue struct {
	mu      sync.Mutex
	channel *ir.Channel
	values  []ir.Value
}

// NewChannelQueue creates an empty queue for ch.
func NewChannelQueue(ch *ir.Channel) *ChannelQueue {
	return &ChannelQueue{
		channel: ch,
		values:  make([]ir.Value, 0, 16),
	}
}

// Channel returns the channel this queue carries.
func (q *ChannelQueue) Channel() *ir.Channel { return q.channel }

// Write appends v, or replaces the held value on a single-value channel.
// Returns an error if v does not have the channel's type.
func (q *ChannelQueue) Write(v ir.Value) error {
	if !v.Type().Equal(q.channel.Type) {
		return &SimError{
			Code:    ErrCodeMalformedInput,
			Message: fmt.Sprintf("value %s has type %s, want %s", v, v.Type(), q.channel.Type),
			Channel: q.channel.Name,
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel.Kind == ir.SingleValue {
		q.values = append(q.values[:0], v)
		return nil
	}
	q.values = append(q.values, v)
	return nil
}

// Read removes and returns the front value. On a single-value channel the
// value stays in place. Returns (ir.Value{}, false) if the queue is empty.
func (q *ChannelQueue) Read() (ir.Value, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.values) == 0 {
		return ir.Value{}, false
	}
	v := q.values[0]
	if q.channel.Kind == ir.SingleValue {
		return v, true
	}

	// Nil out the slot so the backing array does not pin tuple elements.
	q.values[0] = ir.Value{}
	if len(q.values) == 1 {
		q.values = q.values[:0]
	} else {
		q.values = q.values[1:]
	}
	return v, true
}

// Peek returns the i-th value without consuming it.
func (q *ChannelQueue) Peek(i int) (ir.Value, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel.Kind == ir.SingleValue {
		i = 0
	}
	if i < 0 || i >= len(q.values) {
		return ir.Value{}, false
	}
	return q.values[i], true
}

// Len returns the number of values held.
func (q *ChannelQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.values)
}

// IsEmpty reports whether no value is held.
func (q *ChannelQueue) IsEmpty() bool { return q.Len() == 0 }

// Snapshot returns a copy of the held values, front first.
func (q *ChannelQueue) Snapshot() []ir.Value {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ir.Value(nil), q.values...)
}

// Clear drops every held value.
func (q *ChannelQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.values = q.values[:0]
}

// QueueManager owns one ChannelQueue per channel of a package.
type QueueManager struct {
	queues map[string]*ChannelQueue
	names  []string
}

// NewQueueManager creates empty queues for every channel in pkg.
func NewQueueManager(pkg *ir.Package) *QueueManager {
	m := &QueueManager{queues: map[string]*ChannelQueue{}}
	for _, ch := range pkg.Channels() {
		m.queues[ch.Name] = NewChannelQueue(ch)
		m.names = append(m.names, ch.Name)
	}
	sort.Strings(m.names)
	return m
}

// Get returns the queue for a channel.
func (m *QueueManager) Get(name string) (*ChannelQueue, error) {
	q, ok := m.queues[name]
	if !ok {
		return nil, &SimError{
			Code:    ErrCodeMalformedInput,
			Message: "no such channel",
			Channel: name,
		}
	}
	return q, nil
}

// Names returns the channel names in sorted order.
func (m *QueueManager) Names() []string { return m.names }

// Sizes returns the current length of every queue, for diagnostics.
func (m *QueueManager) Sizes() map[string]int {
	out := make(map[string]int, len(m.queues))
	for name, q := range m.queues {
		out[name] = q.Len()
	}
	return out
}
