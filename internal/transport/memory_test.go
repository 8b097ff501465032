package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func openPair(t *testing.T) (*Memory, string, *Memory, string) {
	t.Helper()
	ctx := context.Background()
	network := NewNetwork()

	a := NewMemory(network)
	b := NewMemory(network)
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	aID, err := a.Open(ctx)
	require.NoError(t, err)
	bID, err := b.Open(ctx)
	require.NoError(t, err)
	require.NotEqual(t, aID, bID)

	return a, aID, b, bID
}

func TestMemory_DialDeliversInOrder(t *testing.T) {
	a, aID, b, bID := openPair(t)

	// Given: b accepts inbound channels and records what arrives
	inbound := make(chan Channel, 1)
	received := make(chan []byte, 16)
	b.OnChannel(func(ch Channel) {
		ch.OnMessage(func(data []byte) { received <- data })
		inbound <- ch
	})

	// When: a dials b and sends three payloads once open
	ch, err := a.Dial(context.Background(), bID)
	require.NoError(t, err)
	opened := make(chan struct{})
	ch.OnOpen(func() { close(opened) })

	select {
	case <-opened:
	case <-time.After(waitFor):
		t.Fatal("channel did not open")
	}
	for _, p := range []string{"one", "two", "three"} {
		require.NoError(t, ch.Send([]byte(p)))
	}

	// Then: b sees a's identity and the payloads in send order
	select {
	case in := <-inbound:
		assert.Equal(t, aID, in.RemoteID())
	case <-time.After(waitFor):
		t.Fatal("no inbound channel")
	}
	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-received:
			assert.Equal(t, want, string(got))
		case <-time.After(waitFor):
			t.Fatalf("missing %q", want)
		}
	}
}

func TestMemory_DialUnknownPeerFails(t *testing.T) {
	a, _, _, _ := openPair(t)

	// Given: a channel dialed to an ID nobody holds
	ch, err := a.Dial(context.Background(), "nobody")
	require.NoError(t, err)

	// When: the error handler is registered
	errs := make(chan error, 1)
	ch.OnError(func(err error) { errs <- err })

	// Then: the channel fails with ErrPeerUnavailable
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrPeerUnavailable)
	case <-time.After(waitFor):
		t.Fatal("no error reported")
	}
}

func TestMemory_CloseReachesRemote(t *testing.T) {
	a, _, b, bID := openPair(t)

	closed := make(chan struct{})
	b.OnChannel(func(ch Channel) {
		ch.OnClose(func() { close(closed) })
	})

	ch, err := a.Dial(context.Background(), bID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ch.(*memChannel).IsOpen() }, waitFor, 10*time.Millisecond)

	require.NoError(t, ch.Close())

	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("remote side not closed")
	}
	assert.ErrorIs(t, ch.Send([]byte("late")), ErrChannelNotOpen)
}

func TestMemory_DialBeforeOpen(t *testing.T) {
	m := NewMemory(NewNetwork())

	_, err := m.Dial(context.Background(), "x")

	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestEvents_LateRegistration(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		var e Events
		e.FireOpen()

		called := false
		e.OnOpen(func() { called = true })

		assert.True(t, called)
	})

	t.Run("error", func(t *testing.T) {
		var e Events
		e.FireError(ErrPeerUnavailable)

		var got error
		e.OnError(func(err error) { got = err })

		assert.ErrorIs(t, got, ErrPeerUnavailable)
	})

	t.Run("error after open is a close", func(t *testing.T) {
		var e Events
		closed := false
		errored := false
		e.OnClose(func() { closed = true })
		e.OnError(func(error) { errored = true })
		e.FireOpen()

		e.FireError(ErrPeerUnavailable)

		assert.True(t, closed)
		assert.False(t, errored)
	})
}
