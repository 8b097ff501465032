package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Name selects how a message's args are interpreted.
type Name string

// Message names. The first six form the game broadcast/unicast protocol;
// tile_place_request carries input from the mirror side to the authority.
const (
	NameGameStart          Name = "game_start"
	NameGameUpdate         Name = "game_update"
	NameNextTurn           Name = "next_turn"
	NameUncoveredTilePlace Name = "uncovered_tile_place"
	NameCoveredTilePlace   Name = "covered_tile_place"
	NameGameEnd            Name = "game_end"
	NamePlaceRequest       Name = "tile_place_request"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrMalformed      = errors.New("malformed message")
)

// Message is the unit exchanged over a Connection.
type Message struct {
	Name Name  `msgpack:"name"`
	Args []any `msgpack:"args"`
}

// Marshal encodes a message for the wire.
func Marshal(m Message) ([]byte, error) {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.Name, err)
	}
	return data, nil
}

// Unmarshal decodes a message read from the wire. Args are left in their
// generic msgpack form until Decode is called.
func Unmarshal(data []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Name == "" {
		return Message{}, fmt.Errorf("%w: missing name", ErrMalformed)
	}
	return m, nil
}

// decodeArg re-marshals args[i] into v. Loopback args hold native Go values
// while wire args hold generic msgpack values; going through the codec makes
// both produce the same result and leaves v sharing nothing with args.
func decodeArg(m Message, i int, v any) error {
	if i >= len(m.Args) {
		return fmt.Errorf("%w: %s: missing arg %d", ErrMalformed, m.Name, i)
	}
	b, err := msgpack.Marshal(m.Args[i])
	if err != nil {
		return fmt.Errorf("%w: %s: arg %d: %v", ErrMalformed, m.Name, i, err)
	}
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: arg %d: %v", ErrMalformed, m.Name, i, err)
	}
	return nil
}
