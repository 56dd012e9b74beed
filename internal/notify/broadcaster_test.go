package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	t.Run("Publish", func(t *testing.T) {
		b := NewBroadcaster[int](4)
		first := b.Subscribe()
		second := b.Subscribe()

		b.Publish(7)

		assert.Equal(t, 7, <-first)
		assert.Equal(t, 7, <-second)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		b := NewBroadcaster[string](1)
		ch := b.Subscribe()
		b.Unsubscribe(ch)

		_, open := <-ch
		assert.False(t, open, "channel should be closed after unsubscribe")
		assert.Equal(t, 0, b.Len())

		b.Publish("ignored")
	})

	t.Run("SlowConsumerDropped", func(t *testing.T) {
		b := NewBroadcaster[int](1)
		slow := b.Subscribe()

		b.Publish(1)
		b.Publish(2)

		require.Equal(t, 0, b.Len())
		assert.Equal(t, 1, <-slow)
		_, open := <-slow
		assert.False(t, open)
	})
}
