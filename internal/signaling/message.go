package signaling

import "encoding/json"

// Message is the broker envelope. Payload stays raw until a handler knows
// what it carries.
type Message struct {
	Type    string          `json:"type"`
	PeerID  string          `json:"peer_id,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeRegister = "register"
	MessageTypeSignal   = "signal"

	MessageTypeRegistered = "registered"
	MessageTypePeerLeft   = "peer_left"
	MessageTypeError      = "error"
)

// Signal payload types.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// SignalPayload carries WebRTC negotiation data: an SDP offer or answer,
// or a trickled ICE candidate.
type SignalPayload struct {
	Type         string          `json:"type"`
	SDP          string          `json:"sdp,omitempty"`
	ICECandidate json.RawMessage `json:"ice_candidate,omitempty"`
}

// ErrorPayload is the payload of an error from the broker.
type ErrorPayload struct {
	Error string `json:"error"`
}
