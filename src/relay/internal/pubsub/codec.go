package pubsub

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	topicField   = "topic"
	payloadField = "payload"
)

// encodeNotification wraps topic and payload in a protobuf Struct.
// Payloads must be representable as JSON-like values; []byte is carried as text.
func encodeNotification(topic string, payload any) ([]byte, error) {
	value, err := structpb.NewValue(normalizePayload(payload))
	if err != nil {
		return nil, fmt.Errorf("unsupported payload for topic %s: %w", topic, err)
	}

	envelope := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			topicField:   structpb.NewStringValue(topic),
			payloadField: value,
		},
	}
	return proto.Marshal(envelope)
}

func decodeNotification(data []byte) (string, any, error) {
	envelope := &structpb.Struct{}
	if err := proto.Unmarshal(data, envelope); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	topic := envelope.GetFields()[topicField].GetStringValue()
	payload := envelope.GetFields()[payloadField].AsInterface()
	return topic, payload, nil
}

func normalizePayload(payload any) any {
	switch p := payload.(type) {
	case []byte:
		return string(p)
	case []string:
		out := make([]any, len(p))
		for i, s := range p {
			out[i] = s
		}
		return out
	default:
		return payload
	}
}
