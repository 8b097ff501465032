// Package transport defines the peer-discovery and data-channel contract the
// connection layer is built on, plus an in-process implementation.
package transport

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrPeerUnavailable = errors.New("peer unavailable")
	ErrClosed          = errors.New("transport closed")
	ErrNotOpen         = errors.New("transport not open")
	ErrChannelNotOpen  = errors.New("channel not open")
)

// Channel is a single bidirectional, ordered link to a remote peer.
//
// Handlers registered after the corresponding event has fired run
// immediately for OnOpen, OnError and OnClose.
type Channel interface {
	RemoteID() string
	OnOpen(func())
	OnMessage(func([]byte))
	OnError(func(error))
	OnClose(func())
	Send(data []byte) error
	Close() error
}

// Transport assigns the local identity and opens channels to other peers.
type Transport interface {
	// Open requests a self identity and returns it once assigned.
	Open(ctx context.Context) (string, error)

	// Dial starts opening a channel to remoteID. The returned channel is
	// not open yet; watch OnOpen and OnError.
	Dial(ctx context.Context, remoteID string) (Channel, error)

	// OnChannel registers the handler for channels opened by remote peers.
	OnChannel(func(Channel))

	Close() error
}

type chanState int

const (
	statePending chanState = iota
	stateOpen
	stateFailed
	stateClosed
)

// Events holds the callback bookkeeping shared by Channel implementations.
// The zero value is ready to use.
type Events struct {
	mu      sync.Mutex
	state   chanState
	err     error
	onOpen  []func()
	onMsg   func([]byte)
	onError []func(error)
	onClose []func()
}

func (e *Events) OnOpen(fn func()) {
	e.mu.Lock()
	if e.state == statePending {
		e.onOpen = append(e.onOpen, fn)
		e.mu.Unlock()
		return
	}
	open := e.state == stateOpen
	e.mu.Unlock()
	if open {
		fn()
	}
}

func (e *Events) OnMessage(fn func([]byte)) {
	e.mu.Lock()
	e.onMsg = fn
	e.mu.Unlock()
}

func (e *Events) OnError(fn func(error)) {
	e.mu.Lock()
	if e.state != stateFailed {
		e.onError = append(e.onError, fn)
		e.mu.Unlock()
		return
	}
	err := e.err
	e.mu.Unlock()
	fn(err)
}

func (e *Events) OnClose(fn func()) {
	e.mu.Lock()
	if e.state != stateClosed && e.state != stateFailed {
		e.onClose = append(e.onClose, fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}

// IsOpen reports whether the channel has opened and not yet closed.
func (e *Events) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateOpen
}

// FireOpen moves a pending channel to open. Later calls are ignored.
func (e *Events) FireOpen() {
	e.mu.Lock()
	if e.state != statePending {
		e.mu.Unlock()
		return
	}
	e.state = stateOpen
	handlers := e.onOpen
	e.onOpen = nil
	e.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

// FireMessage hands data to the message handler, if any. Data arriving
// after close or failure is dropped.
func (e *Events) FireMessage(data []byte) {
	e.mu.Lock()
	fn := e.onMsg
	live := e.state == stateOpen || e.state == statePending
	e.mu.Unlock()

	if fn != nil && live {
		fn(data)
	}
}

// FireError fails a channel that has not opened yet. Errors after open are
// reported as a close.
func (e *Events) FireError(err error) {
	e.mu.Lock()
	switch e.state {
	case statePending:
		e.state = stateFailed
		e.err = err
		handlers := e.onError
		closers := e.onClose
		e.onError, e.onClose, e.onOpen = nil, nil, nil
		e.mu.Unlock()
		for _, fn := range handlers {
			fn(err)
		}
		for _, fn := range closers {
			fn()
		}
	case stateOpen:
		e.mu.Unlock()
		e.FireClose()
	default:
		e.mu.Unlock()
	}
}

// FireClose marks the channel closed and runs close handlers once.
func (e *Events) FireClose() {
	e.mu.Lock()
	if e.state == stateClosed || e.state == stateFailed {
		e.mu.Unlock()
		return
	}
	e.state = stateClosed
	handlers := e.onClose
	e.onClose, e.onOpen, e.onError = nil, nil, nil
	e.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}
