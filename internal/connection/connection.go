// Package connection keeps exactly one peer channel open and gives callers
// a uniform way to address messages to themselves or to that peer.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BioHazard786/Shroud/internal/protocol"
	"github.com/BioHazard786/Shroud/internal/transport"
)

// Policy decides what happens when a second channel opens while a peer is
// already attached.
type Policy int

const (
	// Replace closes the current channel and adopts the new one.
	Replace Policy = iota
	// Reject keeps the current channel and refuses the new one.
	Reject
)

func (p Policy) String() string {
	if p == Reject {
		return "reject"
	}
	return "replace"
}

// ParsePolicy reads a policy name as used in configuration.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return Replace, nil
	case "reject":
		return Reject, nil
	}
	return Replace, fmt.Errorf("unknown channel policy %q", s)
}

// Inbound is a message delivered from the peer or looped back from self.
type Inbound struct {
	From    string
	Message protocol.Message
}

type PeerEventKind int

const (
	Attached PeerEventKind = iota
	Detached
)

func (k PeerEventKind) String() string {
	if k == Detached {
		return "detached"
	}
	return "attached"
}

// PeerEvent reports a change of the attached peer.
type PeerEvent struct {
	PeerID string
	Kind   PeerEventKind
}

type Option func(*Connection)

func WithPolicy(p Policy) Option {
	return func(c *Connection) { c.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) { c.log = l }
}

// Connection wraps a transport with single-peer addressing.
type Connection struct {
	transport transport.Transport
	policy    Policy
	log       *slog.Logger

	mu      sync.Mutex
	selfID  string
	peer    transport.Channel
	dialing transport.Channel
	closed  bool

	ready     chan struct{}
	readyOnce sync.Once
	inbox     *mailbox[Inbound]
	events    *mailbox[PeerEvent]
}

// New wraps t. Inbound channels are accepted from this point on; call Open
// to obtain the self identity.
func New(t transport.Transport, opts ...Option) *Connection {
	c := &Connection{
		transport: t,
		policy:    Replace,
		log:       slog.Default(),
		ready:     make(chan struct{}),
		inbox:     newMailbox[Inbound](),
		events:    newMailbox[PeerEvent](),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "connection")

	t.OnChannel(c.accept)
	return c
}

// Open requests a self identity from the transport and fires Ready.
func (c *Connection) Open(ctx context.Context) error {
	id, err := c.transport.Open(ctx)
	if err != nil {
		return newError("open", "", err)
	}

	c.mu.Lock()
	c.selfID = id
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
	c.log.Debug("identity assigned", "self", id)
	return nil
}

// Ready is closed once the self identity is known.
func (c *Connection) Ready() <-chan struct{} {
	return c.ready
}

func (c *Connection) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

// PeerID returns the attached peer, or "" when there is none.
func (c *Connection) PeerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peer == nil {
		return ""
	}
	return c.peer.RemoteID()
}

// Messages delivers every inbound message in arrival order.
func (c *Connection) Messages() <-chan Inbound {
	return c.inbox.out
}

// PeerEvents reports peers attaching and detaching.
func (c *Connection) PeerEvents() <-chan PeerEvent {
	return c.events.out
}

// Connect opens a channel to peerID and blocks until it is open, the
// transport reports an error, or ctx is done.
func (c *Connection) Connect(ctx context.Context, peerID string) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return newError("connect", peerID, ErrClosed)
	case c.selfID == "":
		c.mu.Unlock()
		return newError("connect", peerID, ErrNotReady)
	case peerID == c.selfID:
		c.mu.Unlock()
		return newError("connect", peerID, ErrAddressing)
	case c.peer != nil && c.policy == Reject:
		c.mu.Unlock()
		return newError("connect", peerID, ErrPeerBusy)
	}
	c.mu.Unlock()

	ch, err := c.transport.Dial(ctx, peerID)
	if err != nil {
		return newError("connect", peerID, fmt.Errorf("%w: %w", ErrConnectFailed, err))
	}

	c.mu.Lock()
	c.dialing = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.dialing == ch {
			c.dialing = nil
		}
		c.mu.Unlock()
	}()

	opened := make(chan struct{})
	failed := make(chan error, 1)
	fail := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}

	ch.OnMessage(func(data []byte) { c.receive(ch, data) })
	ch.OnOpen(func() { close(opened) })
	ch.OnError(fail)
	ch.OnClose(func() {
		c.detach(ch)
		fail(transport.ErrChannelNotOpen)
	})

	select {
	case <-opened:
	case err := <-failed:
		return newError("connect", peerID, fmt.Errorf("%w: %w", ErrConnectFailed, err))
	case <-ctx.Done():
		_ = ch.Close()
		return newError("connect", peerID, ctx.Err())
	}

	if err := c.attach(ch); err != nil {
		_ = ch.Close()
		return newError("connect", peerID, err)
	}
	return nil
}

// Send delivers m to target, which must be self or the attached peer.
// Self-addressed messages are queued locally without serialization.
func (c *Connection) Send(target string, m protocol.Message) error {
	c.mu.Lock()
	closed, self, peer := c.closed, c.selfID, c.peer
	c.mu.Unlock()

	switch {
	case closed:
		return newError("send", target, ErrClosed)
	case self == "":
		return newError("send", target, ErrNotReady)
	case target == self:
		c.inbox.put(Inbound{From: self, Message: m})
		return nil
	case peer == nil:
		return newError("send", target, ErrNoPeer)
	case target != peer.RemoteID():
		return newError("send", target, ErrAddressing)
	}

	data, err := protocol.Marshal(m)
	if err != nil {
		return newError("send", target, err)
	}
	if err := peer.Send(data); err != nil {
		return newError("send", target, err)
	}
	return nil
}

// Broadcast sends m to self first, then to the peer.
func (c *Connection) Broadcast(m protocol.Message) error {
	if err := c.Send(c.SelfID(), m); err != nil {
		return err
	}
	peer := c.PeerID()
	if peer == "" {
		return newError("broadcast", "", ErrNoPeer)
	}
	return c.Send(peer, m)
}

// Close drops the peer channel, stops delivery and closes the transport.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	peer := c.peer
	c.peer = nil
	c.mu.Unlock()

	if peer != nil {
		_ = peer.Close()
	}
	c.inbox.close()
	c.events.close()
	return c.transport.Close()
}

// accept handles a channel opened by a remote peer.
func (c *Connection) accept(ch transport.Channel) {
	c.mu.Lock()
	busy := c.closed || (c.peer != nil && c.policy == Reject)
	c.mu.Unlock()

	if busy {
		c.log.Warn("refusing inbound channel", "remote", ch.RemoteID(), "policy", c.policy)
		_ = ch.Close()
		return
	}

	ch.OnMessage(func(data []byte) { c.receive(ch, data) })
	ch.OnClose(func() { c.detach(ch) })
	ch.OnOpen(func() {
		if err := c.attach(ch); err != nil {
			c.log.Warn("dropping inbound channel", "remote", ch.RemoteID(), "error", err)
			_ = ch.Close()
		}
	})
}

func (c *Connection) attach(ch transport.Channel) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	old := c.peer
	if old != nil && old != ch && c.policy == Reject {
		c.mu.Unlock()
		return ErrPeerBusy
	}
	c.peer = ch
	c.mu.Unlock()

	if old != nil && old != ch {
		c.log.Info("replacing peer channel", "old", old.RemoteID(), "new", ch.RemoteID())
		_ = old.Close()
	}
	c.log.Info("peer attached", "peer", ch.RemoteID())
	c.events.put(PeerEvent{PeerID: ch.RemoteID(), Kind: Attached})
	return nil
}

func (c *Connection) detach(ch transport.Channel) {
	c.mu.Lock()
	if c.peer != ch {
		c.mu.Unlock()
		return
	}
	c.peer = nil
	closed := c.closed
	c.mu.Unlock()

	if !closed {
		c.log.Info("peer detached", "peer", ch.RemoteID())
		c.events.put(PeerEvent{PeerID: ch.RemoteID(), Kind: Detached})
	}
}

func (c *Connection) receive(ch transport.Channel, data []byte) {
	c.mu.Lock()
	current := c.peer == ch || c.dialing == ch
	c.mu.Unlock()
	if !current {
		return
	}

	m, err := protocol.Unmarshal(data)
	if err != nil {
		c.log.Warn("dropping undecodable message", "from", ch.RemoteID(), "error", err)
		return
	}
	c.inbox.put(Inbound{From: ch.RemoteID(), Message: m})
}
