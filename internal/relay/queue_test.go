package relay

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/tcpreflector/internal/protocol"
)

// mustPacket builds a valid packet for stream with the given payload.
func mustPacket(t testing.TB, stream string, payload string) *protocol.Packet {
	t.Helper()
	pkt, err := protocol.NewPacket(protocol.Header{
		Version:   protocol.Version,
		Stream:    stream,
		Reserved1: "0",
		Reserved2: "0",
	}, []byte(payload))
	require.NoError(t, err)
	return pkt
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 4; i++ {
		require.True(t, q.Push(mustPacket(t, "s", fmt.Sprint(i))))
	}

	for i := 0; i < 4; i++ {
		pkt, ok := q.Pop(time.Second)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), string(pkt.Payload))
	}
}

// TestQueueDropsWhenFull verifies Push never blocks and discards the excess.
func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(DefaultQueueDepth)

	accepted := 0
	for i := 0; i < 25; i++ {
		if q.Push(mustPacket(t, "s", fmt.Sprint(i))) {
			accepted++
		}
	}

	assert.Equal(t, DefaultQueueDepth, accepted)
	assert.Equal(t, DefaultQueueDepth, q.Len())
	assert.Equal(t, DefaultQueueDepth, q.Cap())

	// The survivors are the oldest packets.
	pkt, ok := q.Pop(time.Second)
	require.True(t, ok)
	assert.Equal(t, "0", string(pkt.Payload))

	// One slot freed, one more push fits.
	assert.True(t, q.Push(mustPacket(t, "s", "late")))
	assert.False(t, q.Push(mustPacket(t, "s", "too late")))
}

func TestQueuePopTimeout(t *testing.T) {
	q := NewQueue(1)

	start := time.Now()
	pkt, ok := q.Pop(50 * time.Millisecond)
	assert.False(t, ok)
	assert.Nil(t, pkt)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := NewQueue(1)
	want := mustPacket(t, "s", "x")

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push(want)
	}()

	pkt, ok := q.Pop(5 * time.Second)
	require.True(t, ok)
	assert.Same(t, want, pkt)
}
