package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/logger"
)

func TestHubDeliverToAttachedStreams(t *testing.T) {
	hub := NewHub(logger.NopLogger())

	id1, ch1 := hub.attach("bob")
	defer hub.detach("bob", id1)
	id2, ch2 := hub.attach("bob")
	defer hub.detach("bob", id2)

	delivered := hub.TryDeliver("bob", `{"message":"hi"}`)
	assert.Equal(t, 2, delivered)

	assert.Equal(t, `{"message":"hi"}`, <-ch1)
	assert.Equal(t, `{"message":"hi"}`, <-ch2)
}

func TestHubDeliverNoStreams(t *testing.T) {
	hub := NewHub(logger.NopLogger())
	assert.Zero(t, hub.TryDeliver("nobody", "x"))
}

func TestHubDeliverIsolatedPerUser(t *testing.T) {
	hub := NewHub(logger.NopLogger())

	idBob, chBob := hub.attach("bob")
	defer hub.detach("bob", idBob)
	idAlice, chAlice := hub.attach("alice")
	defer hub.detach("alice", idAlice)

	assert.Equal(t, 1, hub.TryDeliver("bob", "for bob"))

	assert.Equal(t, "for bob", <-chBob)
	select {
	case <-chAlice:
		t.Fatal("alice received bob's notification")
	default:
	}
}

func TestHubFullStreamMissesEvent(t *testing.T) {
	hub := NewHub(logger.NopLogger())

	id, ch := hub.attach("bob")
	defer hub.detach("bob", id)

	for i := 0; i < cap(ch); i++ {
		require.Equal(t, 1, hub.TryDeliver("bob", "fill"))
	}

	// Stream buffer is full; delivery does not block, the event is lost.
	assert.Zero(t, hub.TryDeliver("bob", "overflow"))
}

func TestHubDetach(t *testing.T) {
	hub := NewHub(logger.NopLogger())

	id, _ := hub.attach("bob")
	assert.Equal(t, 1, hub.StreamCount())

	hub.detach("bob", id)
	assert.Zero(t, hub.StreamCount())
	assert.Zero(t, hub.TryDeliver("bob", "x"))
}
