package broker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	registryTimeout = 3 * time.Second
	refreshInterval = 20 * time.Second
)

// Hub is the central brain of the broker. A single goroutine running Run
// owns every client, peer ID and link; everything else talks to it through
// the channels below.
type Hub struct {
	// Register announces a newly upgraded connection.
	Register chan *Client

	// Unregister removes a client whose connection is gone.
	Unregister chan *Client

	// Broadcast carries every message read from any client.
	Broadcast chan *Message

	registry Registry
	log      *slog.Logger
	done     chan struct{}

	clients map[*Client]struct{}
	peers   map[string]*Client

	// links records which peers have signaled each other, so a departure
	// can be reported to the other side.
	links map[string]map[string]struct{}
}

func NewHub(registry Registry, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message),
		registry:   registry,
		log:        log.With("component", "hub"),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		peers:      make(map[string]*Client),
		links:      make(map[string]map[string]struct{}),
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes hub events until ctx is done, then disconnects every
// client and releases their IDs.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.clients[client] = struct{}{}
			h.log.Debug("client connected", "remote", client.remote)

		case client := <-h.Unregister:
			h.remove(client)

		case message := <-h.Broadcast:
			h.handle(ctx, message)

		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}

func (h *Hub) handle(ctx context.Context, message *Message) {
	client := message.client
	if _, ok := h.clients[client]; !ok {
		return
	}

	h.log.Debug("message received", "type", message.Type, "peer", client.PeerID, "remote", client.remote)

	switch message.Type {
	case TypeRegister:
		h.register(ctx, client, message.PeerID)

	case TypeSignal:
		h.relay(client, message)

	default:
		h.log.Warn("unknown message type", "type", message.Type, "remote", client.remote)
		h.send(client, errorMessage("", ReasonUnknownType))
	}
}

func (h *Hub) register(ctx context.Context, client *Client, requested string) {
	if client.PeerID != "" {
		h.send(client, errorMessage("", ReasonAlreadyRegistered))
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, registryTimeout)
	defer cancel()

	id := requested
	var err error
	if id == "" {
		id, err = generatePeerID(opCtx, h.registry)
	} else if !ValidPeerID(id) {
		h.send(client, errorMessage("", ReasonInvalidPeerID))
		return
	} else {
		err = h.registry.Reserve(opCtx, id)
	}

	switch {
	case errors.Is(err, ErrPeerIDTaken):
		h.log.Info("peer id refused", "peer", id, "remote", client.remote)
		h.send(client, errorMessage("", ReasonPeerIDTaken))
		return
	case err != nil:
		h.log.Error("peer id reservation failed", "error", err)
		h.send(client, errorMessage("", ReasonRegistryUnavailable))
		return
	}

	client.PeerID = id
	h.peers[id] = client
	h.log.Info("peer registered", "peer", id, "remote", client.remote)

	h.send(client, &Message{Type: TypeRegistered, PeerID: id})
}

func (h *Hub) relay(client *Client, message *Message) {
	if client.PeerID == "" {
		h.send(client, errorMessage(message.To, ReasonNotRegistered))
		return
	}

	target, ok := h.peers[message.To]
	if !ok || target == client {
		h.log.Info("signal target unavailable", "from", client.PeerID, "to", message.To)
		h.send(client, errorMessage(message.To, ReasonPeerUnavailable))
		return
	}

	h.link(client.PeerID, target.PeerID)
	h.send(target, &Message{
		Type:    TypeSignal,
		From:    client.PeerID,
		To:      target.PeerID,
		Payload: message.Payload,
	})
}

func (h *Hub) link(a, b string) {
	for _, pair := range [2][2]string{{a, b}, {b, a}} {
		set, ok := h.links[pair[0]]
		if !ok {
			set = make(map[string]struct{})
			h.links[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	if id := client.PeerID; id != "" {
		delete(h.peers, id)
		h.release(id)

		for other := range h.links[id] {
			delete(h.links[other], id)
			if len(h.links[other]) == 0 {
				delete(h.links, other)
			}
			if peer, ok := h.peers[other]; ok {
				h.send(peer, &Message{Type: TypePeerLeft, PeerID: id})
			}
		}
		delete(h.links, id)
		h.log.Info("peer left", "peer", id)
	}

	close(client.Send)
}

func (h *Hub) release(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	if err := h.registry.Release(ctx, id); err != nil {
		h.log.Warn("peer id release failed", "peer", id, "error", err)
	}
}

func (h *Hub) refresh(ctx context.Context) {
	if len(h.peers) == 0 {
		return
	}
	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}

	opCtx, cancel := context.WithTimeout(ctx, registryTimeout)
	defer cancel()
	if err := h.registry.Refresh(opCtx, ids); err != nil {
		h.log.Warn("peer id refresh failed", "count", len(ids), "error", err)
	}
}

// send queues message for client without blocking the hub. A client too
// slow to drain its queue loses the message.
func (h *Hub) send(client *Client, message *Message) {
	select {
	case client.Send <- message:
	default:
		h.log.Warn("client queue full, message dropped", "peer", client.PeerID, "type", message.Type)
	}
}

func (h *Hub) shutdown() {
	h.log.Info("hub stopping", "clients", len(h.clients))
	for client := range h.clients {
		h.remove(client)
	}
}

// connect, unregister and broadcast are used outside the hub goroutine.
// They give up once the hub has stopped.
func (h *Hub) connect(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) broadcast(message *Message) bool {
	select {
	case h.Broadcast <- message:
		return true
	case <-h.done:
		return false
	}
}
