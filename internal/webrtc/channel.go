package webrtc

import (
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Shroud/internal/transport"
)

// dataChannel adapts a pion data channel to transport.Channel. Closing it
// tears down the whole peer connection.
type dataChannel struct {
	transport.Events

	remote string
	pc     *pion.PeerConnection

	mu       sync.Mutex
	dc       *pion.DataChannel
	once     sync.Once
	onClosed func()
}

func newDataChannel(remote string, pc *pion.PeerConnection) *dataChannel {
	c := &dataChannel{remote: remote, pc: pc}
	c.Events.OnClose(c.teardown)
	return c
}

func (c *dataChannel) bind(dc *pion.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(c.FireOpen)
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		c.FireMessage(msg.Data)
	})
	dc.OnError(c.FireError)
	dc.OnClose(c.FireClose)
}

func (c *dataChannel) RemoteID() string {
	return c.remote
}

func (c *dataChannel) Send(data []byte) error {
	if !c.IsOpen() {
		return transport.ErrChannelNotOpen
	}
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()
	return dc.Send(data)
}

func (c *dataChannel) Close() error {
	c.FireClose()
	return nil
}

// teardown runs once when the channel fails or closes.
func (c *dataChannel) teardown() {
	c.once.Do(func() {
		c.mu.Lock()
		dc, onClosed := c.dc, c.onClosed
		c.mu.Unlock()

		if dc != nil {
			_ = dc.Close()
		}
		go func() { _ = c.pc.Close() }()
		if onClosed != nil {
			onClosed()
		}
	})
}
