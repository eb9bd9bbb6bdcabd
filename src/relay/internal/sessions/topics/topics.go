package topics

import (
	"fmt"
	"strings"
)

// Kind names the purpose of a relay notification.
type Kind string

const (
	Disconnect      Kind = "disconnect"
	DisconnectForce Kind = "disconnect-force"
	HeartbeatClear  Kind = "heartbeat-clear"
	Message         Kind = "message"
)

const separator = ":"

// Known reports whether kind is one of the relay's own notification kinds.
func (k Kind) Known() bool {
	switch k {
	case Disconnect, DisconnectForce, HeartbeatClear, Message:
		return true
	default:
		return false
	}
}

// Topic scopes a notification kind to a connection id: "{kind}:{id}".
func Topic(kind Kind, id string) string {
	return string(kind) + separator + id
}

// Parse splits a topic built by Topic back into its kind and id.
func Parse(topic string) (Kind, string, error) {
	kind, id, ok := strings.Cut(topic, separator)
	if !ok || kind == "" || id == "" {
		return "", "", fmt.Errorf("malformed topic %q", topic)
	}
	return Kind(kind), id, nil
}
