package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/ir"
)

func streamingChannel(name string, width int) *ir.Channel {
	return &ir.Channel{Name: name, Type: ir.BitsType(width), Kind: ir.Streaming, Ops: ir.ReceiveOnly}
}

func TestChannelQueue_FIFO(t *testing.T) {
	q := NewChannelQueue(streamingChannel("in", 8))

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, q.Write(ir.UValue(i, 8)))
	}
	assert.Equal(t, 3, q.Len())

	for i := uint64(1); i <= 3; i++ {
		v, ok := q.Read()
		require.True(t, ok)
		assert.True(t, v.Equal(ir.UValue(i, 8)), "got %s", v)
	}
	assert.True(t, q.IsEmpty())

	_, ok := q.Read()
	assert.False(t, ok, "read from empty queue should return false")
}

func TestChannelQueue_Peek(t *testing.T) {
	q := NewChannelQueue(streamingChannel("in", 8))
	require.NoError(t, q.Write(ir.UValue(1, 8)))
	require.NoError(t, q.Write(ir.UValue(2, 8)))

	v, ok := q.Peek(1)
	require.True(t, ok)
	assert.Equal(t, "bits[8]:2", v.String())

	_, ok = q.Peek(2)
	assert.False(t, ok)
	assert.Equal(t, 2, q.Len(), "peek must not consume")
}

func TestChannelQueue_SingleValue(t *testing.T) {
	ch := &ir.Channel{Name: "cfg", Type: ir.BitsType(4), Kind: ir.SingleValue, Ops: ir.ReceiveOnly}
	q := NewChannelQueue(ch)

	require.NoError(t, q.Write(ir.UValue(3, 4)))
	require.NoError(t, q.Write(ir.UValue(5, 4)))
	assert.Equal(t, 1, q.Len(), "write replaces the held value")

	for i := 0; i < 3; i++ {
		v, ok := q.Read()
		require.True(t, ok)
		assert.Equal(t, "bits[4]:5", v.String())
	}

	v, ok := q.Peek(7)
	require.True(t, ok, "peek ignores the index on single-value channels")
	assert.Equal(t, "bits[4]:5", v.String())
}

func TestChannelQueue_WrongType(t *testing.T) {
	q := NewChannelQueue(streamingChannel("in", 8))

	err := q.Write(ir.UValue(1, 4))
	require.Error(t, err)
	assert.True(t, IsMalformedInputError(err))
	assert.Contains(t, err.Error(), "channel=in")
	assert.True(t, q.IsEmpty())
}

func TestChannelQueue_SnapshotAndClear(t *testing.T) {
	q := NewChannelQueue(streamingChannel("in", 8))
	require.NoError(t, q.Write(ir.UValue(9, 8)))

	snap := q.Snapshot()
	q.Clear()
	assert.Len(t, snap, 1)
	assert.True(t, q.IsEmpty())
}

func TestQueueManager(t *testing.T) {
	pkg := ir.NewPackage("p")
	require.NoError(t, pkg.AddChannel(streamingChannel("b", 8)))
	require.NoError(t, pkg.AddChannel(streamingChannel("a", 8)))

	m := NewQueueManager(pkg)
	assert.Equal(t, []string{"a", "b"}, m.Names())

	q, err := m.Get("b")
	require.NoError(t, err)
	require.NoError(t, q.Write(ir.UValue(1, 8)))
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, m.Sizes())

	_, err = m.Get("c")
	assert.True(t, IsMalformedInputError(err))
}
