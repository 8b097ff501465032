package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Network is an in-process registry connecting Memory transports by ID.
type Network struct {
	mu    sync.Mutex
	peers map[string]*Memory
}

func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Memory)}
}

func (n *Network) register(m *Memory) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := uuid.NewString()
	n.peers[id] = m
	return id
}

func (n *Network) lookup(id string) (*Memory, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.peers[id]
	return m, ok
}

func (n *Network) unregister(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, id)
}

// Memory is a Transport whose channels never leave the process.
type Memory struct {
	network *Network

	mu        sync.Mutex
	id        string
	onChannel func(Channel)
	backlog   []Channel
	channels  []*memChannel
	closed    bool
}

// NewMemory creates a transport attached to network. Call Open to join it.
func NewMemory(network *Network) *Memory {
	return &Memory{network: network}
}

func (m *Memory) Open(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	if m.id == "" {
		m.id = m.network.register(m)
	}
	return m.id, nil
}

func (m *Memory) Dial(ctx context.Context, remoteID string) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.id == "" {
		m.mu.Unlock()
		return nil, ErrNotOpen
	}
	selfID := m.id
	local := newMemChannel(remoteID)
	m.channels = append(m.channels, local)
	m.mu.Unlock()

	remote, ok := m.network.lookup(remoteID)
	if !ok || remote == m {
		go local.FireError(ErrPeerUnavailable)
		return local, nil
	}

	accepted := newMemChannel(selfID)
	local.peer, accepted.peer = accepted, local
	if !remote.accept(accepted) {
		go local.FireError(ErrPeerUnavailable)
		return local, nil
	}

	go func() {
		accepted.FireOpen()
		local.FireOpen()
	}()

	return local, nil
}

func (m *Memory) OnChannel(fn func(Channel)) {
	m.mu.Lock()
	m.onChannel = fn
	backlog := m.backlog
	m.backlog = nil
	m.mu.Unlock()

	for _, ch := range backlog {
		fn(ch)
	}
}

func (m *Memory) accept(ch *memChannel) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.channels = append(m.channels, ch)
	fn := m.onChannel
	if fn == nil {
		m.backlog = append(m.backlog, ch)
	}
	m.mu.Unlock()

	if fn != nil {
		fn(ch)
	}
	return true
}

func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	channels := m.channels
	m.channels = nil
	id := m.id
	m.mu.Unlock()

	if id != "" {
		m.network.unregister(id)
	}
	for _, ch := range channels {
		_ = ch.Close()
	}
	return nil
}

type memChannel struct {
	Events

	remoteID string
	peer     *memChannel
	inbox    chan []byte
	done     chan struct{}
	once     sync.Once
}

func newMemChannel(remoteID string) *memChannel {
	ch := &memChannel{
		remoteID: remoteID,
		inbox:    make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	go ch.deliver()
	return ch
}

func (c *memChannel) RemoteID() string {
	return c.remoteID
}

func (c *memChannel) Send(data []byte) error {
	if !c.IsOpen() || c.peer == nil {
		return ErrChannelNotOpen
	}
	buf := append([]byte(nil), data...)
	select {
	case c.peer.inbox <- buf:
		return nil
	case <-c.peer.done:
		return ErrChannelNotOpen
	}
}

func (c *memChannel) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.FireClose()
		if c.peer != nil {
			_ = c.peer.Close()
		}
	})
	return nil
}

// deliver preserves send order by handing messages over from one goroutine.
func (c *memChannel) deliver() {
	for {
		select {
		case data := <-c.inbox:
			c.FireMessage(data)
		case <-c.done:
			return
		}
	}
}
