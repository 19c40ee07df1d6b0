package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	first, cancelFirst := hub.Subscribe("1")
	second, cancelSecond := hub.Subscribe("1")
	other, cancelOther := hub.Subscribe("2")
	defer cancelOther()

	assert.Equal(t, 2, hub.Subscribers("1"))

	n := domain.Entity{ID: "7", Type: "notification"}
	assert.Equal(t, 2, hub.Publish("1", n))
	assert.Equal(t, n, <-first)
	assert.Equal(t, n, <-second)
	assert.Empty(t, other)

	cancelFirst()
	cancelFirst()
	_, ok := <-first
	assert.False(t, ok)
	assert.Equal(t, 1, hub.Publish("1", n))

	cancelSecond()
	assert.Equal(t, 0, hub.Subscribers("1"))
	assert.Equal(t, 0, hub.Publish("1", n))
}

func TestHub_SlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("1")
	defer cancel()

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, hub.Publish("1", domain.Entity{}))
	}
	assert.Equal(t, 0, hub.Publish("1", domain.Entity{}))
	assert.Len(t, ch, subscriberBuffer)
}
