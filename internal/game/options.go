package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	DefaultBoardSize           = 5
	DefaultLineLength          = 3
	DefaultCoverProbability    = 0.3
	DefaultMaxCoverProbability = 0.6
)

var ErrInvalidOptions = errors.New("invalid game options")

// Options configures a match. Zero fields take the defaults above.
type Options struct {
	BoardSize  int
	LineLength int

	// CoverProbability is the chance a tile is covered on the first turn.
	// CoverRamp is added for every completed turn, up to MaxCoverProbability.
	CoverProbability    float64
	CoverRamp           float64
	MaxCoverProbability float64

	// Rand drives player order, cover masks and pan offsets.
	Rand *rand.Rand
}

// NewRand returns a generator for seed, or a time-seeded one for seed 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (o Options) withDefaults() Options {
	if o.BoardSize == 0 {
		o.BoardSize = DefaultBoardSize
	}
	if o.LineLength == 0 {
		o.LineLength = DefaultLineLength
	}
	if o.CoverProbability == 0 {
		o.CoverProbability = DefaultCoverProbability
	}
	if o.MaxCoverProbability == 0 {
		o.MaxCoverProbability = max(DefaultMaxCoverProbability, o.CoverProbability)
	}
	if o.Rand == nil {
		o.Rand = NewRand(0)
	}
	return o
}

func (o Options) validate() error {
	switch {
	case o.BoardSize < 1:
		return fmt.Errorf("%w: board size %d", ErrInvalidOptions, o.BoardSize)
	case o.LineLength < 1 || o.LineLength > o.BoardSize:
		return fmt.Errorf("%w: line length %d on a %d board", ErrInvalidOptions, o.LineLength, o.BoardSize)
	case o.CoverProbability < 0 || o.CoverProbability > 1:
		return fmt.Errorf("%w: cover probability %v", ErrInvalidOptions, o.CoverProbability)
	case o.MaxCoverProbability < 0 || o.MaxCoverProbability > 1:
		return fmt.Errorf("%w: max cover probability %v", ErrInvalidOptions, o.MaxCoverProbability)
	case o.CoverRamp < 0:
		return fmt.Errorf("%w: negative cover ramp", ErrInvalidOptions)
	}
	return nil
}

// coverProbability is the cover chance for the given turn.
func (o Options) coverProbability(turn int) float64 {
	return min(o.CoverProbability+float64(turn)*o.CoverRamp, o.MaxCoverProbability)
}
