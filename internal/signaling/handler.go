package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Signal is a negotiation message from another peer.
type Signal struct {
	From    string
	Payload SignalPayload
}

// BrokerError is an error reported by the broker. To names the peer a
// failed signal was addressed to, if any.
type BrokerError struct {
	To     string
	Reason string
}

func (e *BrokerError) Error() string {
	if e.To != "" {
		return fmt.Sprintf("broker: %s: %s", e.Reason, e.To)
	}
	return "broker: " + e.Reason
}

// Handler routes incoming broker messages to typed channels.
type Handler struct {
	client *Client
	log    *slog.Logger

	Registered chan string
	Signal     chan *Signal
	PeerLeft   chan string
	Error      chan *BrokerError

	// Done is closed when the broker connection ends.
	Done chan struct{}

	once sync.Once
}

func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		log:        client.log,
		Registered: make(chan string, 1),
		Signal:     make(chan *Signal, 64),
		PeerLeft:   make(chan string, 8),
		Error:      make(chan *BrokerError, 8),
		Done:       make(chan struct{}),
	}
}

// Start routes messages until the client's incoming channel closes.
func (h *Handler) Start() {
	defer h.once.Do(func() { close(h.Done) })

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case MessageTypeRegistered:
			h.Registered <- msg.PeerID

		case MessageTypeSignal:
			h.handleSignal(msg)

		case MessageTypePeerLeft:
			h.PeerLeft <- msg.PeerID

		case MessageTypeError:
			h.handleError(msg)

		default:
			h.log.Debug("ignoring broker message", "type", msg.Type)
		}
	}
}

func (h *Handler) handleSignal(msg *Message) {
	var payload SignalPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.log.Warn("bad signal payload", "from", msg.From, "error", err)
		return
	}
	h.Signal <- &Signal{From: msg.From, Payload: payload}
}

func (h *Handler) handleError(msg *Message) {
	reason := "unknown error from server"
	var payload ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err == nil && payload.Error != "" {
		reason = payload.Error
	}
	h.Error <- &BrokerError{To: msg.To, Reason: reason}
}

// Register asks the broker for an identity, or for requested if not empty.
// Broker errors received while waiting fail the registration.
func (h *Handler) Register(ctx context.Context, requested string) (string, error) {
	if err := h.client.SendMessage(&Message{Type: MessageTypeRegister, PeerID: requested}); err != nil {
		return "", err
	}

	select {
	case id := <-h.Registered:
		return id, nil
	case err := <-h.Error:
		return "", fmt.Errorf("register: %w", err)
	case <-h.Done:
		return "", fmt.Errorf("register: %w", ErrClientClosed)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
