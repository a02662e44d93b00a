package protocol

import "encoding/json"

// Message is the envelope carried on the events websocket.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MustRaw marshals v, falling back to an empty object on failure. Event
// payloads are advisory; a marshal failure must never break the sender.
func MustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(b)
}
