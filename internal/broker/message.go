package broker

import "encoding/json"

// Message types exchanged with broker clients.
const (
	TypeRegister   = "register"
	TypeRegistered = "registered"
	TypeSignal     = "signal"
	TypePeerLeft   = "peer_left"
	TypeError      = "error"
)

// Message is the JSON envelope for everything sent over a broker
// websocket, in both directions.
type Message struct {
	Type    string          `json:"type"`
	PeerID  string          `json:"peer_id,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the sender. It is set by the read pump and never encoded.
	client *Client `json:"-"`
}

// ErrorPayload is the payload of an error message.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Error reasons sent to clients.
const (
	ReasonPeerUnavailable     = "peer unavailable"
	ReasonPeerIDTaken         = "peer id taken"
	ReasonInvalidPeerID       = "invalid peer id"
	ReasonAlreadyRegistered   = "already registered"
	ReasonNotRegistered       = "register first"
	ReasonRegistryUnavailable = "registry unavailable"
	ReasonUnknownType         = "unknown message type"
)

func errorMessage(to, reason string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: reason})
	return &Message{Type: TypeError, To: to, Payload: payload}
}
