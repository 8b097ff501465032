package webrtc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Shroud/internal/config"
	"github.com/BioHazard786/Shroud/internal/dns"
	"github.com/BioHazard786/Shroud/internal/signaling"
	"github.com/BioHazard786/Shroud/internal/transport"
)

var _ transport.Transport = (*Transport)(nil)

type Option func(*Transport)

func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithSettingEngine replaces the pion setting engine, e.g. to allow
// loopback candidates.
func WithSettingEngine(se pion.SettingEngine) Option {
	return func(t *Transport) { t.api = pion.NewAPI(pion.WithSettingEngine(se)) }
}

// WithResolver sets the resolver used to reach the broker.
func WithResolver(r *dns.Resolver) Option {
	return func(t *Transport) { t.resolver = r }
}

// Transport opens pion data channels to peers found through the broker.
type Transport struct {
	cfg      *config.Config
	resolver *dns.Resolver
	api      *pion.API
	log      *slog.Logger

	mu        sync.Mutex
	client    *signaling.Client
	handler   *signaling.Handler
	selfID    string
	peers     map[string]*peer
	onChannel func(transport.Channel)
	backlog   []transport.Channel
	closed    bool
	done      chan struct{}
}

func NewTransport(cfg *config.Config, opts ...Option) *Transport {
	t := &Transport{
		cfg:      cfg,
		resolver: dns.NewResolver(),
		api:      pion.NewAPI(),
		log:      slog.Default(),
		peers:    make(map[string]*peer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "webrtc")
	return t
}

// Open connects to the broker and registers for a peer ID.
func (t *Transport) Open(ctx context.Context) (string, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", transport.ErrClosed
	}
	t.mu.Unlock()

	client := signaling.NewClient(t.cfg.Server, t.resolver)
	if err := client.Connect(ctx); err != nil {
		return "", err
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	id, err := handler.Register(ctx, "")
	if err != nil {
		client.Close()
		return "", err
	}

	t.mu.Lock()
	t.client, t.handler, t.selfID = client, handler, id
	t.mu.Unlock()

	t.log.Debug("registered with broker", "self", id)
	go t.route(handler)
	return id, nil
}

// Dial offers a data channel to remoteID. The channel fails with
// transport.ErrPeerUnavailable if the broker does not know remoteID.
func (t *Transport) Dial(ctx context.Context, remoteID string) (transport.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	client := t.client
	closed := t.closed
	t.mu.Unlock()

	switch {
	case closed:
		return nil, transport.ErrClosed
	case client == nil:
		return nil, transport.ErrNotOpen
	}

	p, err := t.addPeer(client, remoteID)
	if err != nil {
		return nil, err
	}

	if err := p.offer(); err != nil {
		p.ch.FireError(err)
		return nil, err
	}
	t.log.Debug("offer sent", "remote", remoteID)
	return p.ch, nil
}

func (t *Transport) OnChannel(fn func(transport.Channel)) {
	t.mu.Lock()
	t.onChannel = fn
	backlog := t.backlog
	t.backlog = nil
	t.mu.Unlock()

	for _, ch := range backlog {
		fn(ch)
	}
}

// Close drops every peer connection and leaves the broker.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	client := t.client
	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()

	for _, p := range peers {
		_ = p.ch.Close()
	}
	if client != nil {
		client.Close()
	}
	return nil
}

// addPeer creates negotiation state for remote, replacing any older one.
func (t *Transport) addPeer(client *signaling.Client, remote string) (*peer, error) {
	p, err := newPeer(t.api, t.cfg, client, remote)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	old := t.peers[remote]
	t.peers[remote] = p
	p.ch.mu.Lock()
	p.ch.onClosed = func() { t.removePeer(p) }
	p.ch.mu.Unlock()
	t.mu.Unlock()

	if old != nil {
		_ = old.ch.Close()
	}
	return p, nil
}

func (t *Transport) removePeer(p *peer) {
	t.mu.Lock()
	if t.peers[p.remote] == p {
		delete(t.peers, p.remote)
	}
	t.mu.Unlock()
}

func (t *Transport) lookup(remote string) *peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers[remote]
}

// route handles broker traffic until the broker connection or the
// transport goes away.
func (t *Transport) route(h *signaling.Handler) {
	for {
		select {
		case sig := <-h.Signal:
			if err := t.handleSignal(sig); err != nil {
				t.log.Warn("signal failed", "from", sig.From, "type", sig.Payload.Type, "error", err)
			}

		case id := <-h.PeerLeft:
			if p := t.lookup(id); p != nil && !p.ch.IsOpen() {
				p.ch.FireError(fmt.Errorf("%w: %s left the broker", transport.ErrPeerUnavailable, id))
			}

		case e := <-h.Error:
			if e.To == "" {
				t.log.Warn("broker error", "error", e)
				continue
			}
			if p := t.lookup(e.To); p != nil {
				p.ch.FireError(fmt.Errorf("%w: %w", transport.ErrPeerUnavailable, e))
			}

		case <-h.Done:
			t.log.Debug("broker connection closed")
			t.failPending()
			return

		case <-t.done:
			return
		}
	}
}

func (t *Transport) handleSignal(sig *signaling.Signal) error {
	switch sig.Payload.Type {
	case signaling.SignalOffer:
		return t.acceptOffer(sig.From, sig.Payload.SDP)

	case signaling.SignalAnswer:
		p := t.lookup(sig.From)
		if p == nil {
			return fmt.Errorf("answer from unknown peer")
		}
		if err := p.acceptAnswer(sig.Payload.SDP); err != nil {
			p.ch.FireError(err)
			return err
		}
		return nil

	case signaling.SignalCandidate:
		p := t.lookup(sig.From)
		if p == nil {
			return nil
		}
		return p.addCandidate(sig.Payload.ICECandidate)
	}
	return fmt.Errorf("unexpected signal type %q", sig.Payload.Type)
}

func (t *Transport) acceptOffer(remote, sdp string) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	p, err := t.addPeer(client, remote)
	if err != nil {
		return err
	}

	p.pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != channelLabel {
			_ = dc.Close()
			return
		}
		p.ch.bind(dc)
		t.deliver(p.ch)
	})

	if err := p.answer(sdp); err != nil {
		p.ch.FireError(err)
		return err
	}
	t.log.Debug("answer sent", "remote", remote)
	return nil
}

func (t *Transport) deliver(ch transport.Channel) {
	t.mu.Lock()
	fn := t.onChannel
	if fn == nil {
		t.backlog = append(t.backlog, ch)
	}
	t.mu.Unlock()

	if fn != nil {
		fn(ch)
	}
}

// failPending fails channels still negotiating when the broker goes away.
// Open channels keep running without it.
func (t *Transport) failPending() {
	t.mu.Lock()
	var pending []*peer
	for _, p := range t.peers {
		if !p.ch.IsOpen() {
			pending = append(pending, p)
		}
	}
	t.mu.Unlock()

	for _, p := range pending {
		p.ch.FireError(fmt.Errorf("%w: broker connection lost", transport.ErrPeerUnavailable))
	}
}
