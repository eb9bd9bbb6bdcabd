package topics_test

import (
	"testing"

	"github.com/maxogod/session-relay/src/relay/internal/sessions/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicNaming(t *testing.T) {
	assert.Equal(t, "disconnect:a1", topics.Topic(topics.Disconnect, "a1"))
	assert.Equal(t, "disconnect-force:a1", topics.Topic(topics.DisconnectForce, "a1"))
	assert.Equal(t, "heartbeat-clear:a1", topics.Topic(topics.HeartbeatClear, "a1"))
	assert.Equal(t, "message:a1", topics.Topic(topics.Message, "a1"))
}

func TestParse(t *testing.T) {
	kind, id, err := topics.Parse("disconnect-force:a1")
	require.NoError(t, err)
	assert.Equal(t, topics.DisconnectForce, kind)
	assert.Equal(t, "a1", id)

	for _, bad := range []string{"", "message", "message:", ":a1"} {
		_, _, err = topics.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestKnownKinds(t *testing.T) {
	for _, kind := range []topics.Kind{topics.Disconnect, topics.DisconnectForce, topics.HeartbeatClear, topics.Message} {
		assert.True(t, kind.Known(), kind)
	}

	kind, _, err := topics.Parse("room:lobby")
	require.NoError(t, err)
	assert.False(t, kind.Known())
}
