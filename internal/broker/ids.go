package broker

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const maxIDAttempts = 16

var peerIDPattern = regexp.MustCompile(`^[a-z0-9-]{3,64}$`)

// ValidPeerID reports whether id may be requested by a client.
func ValidPeerID(id string) bool {
	return peerIDPattern.MatchString(id)
}

// newPeerID returns a memorable ID such as "sleepy-otter-waffle": an
// adjective followed by nouns from two different lists.
func newPeerID() string {
	first := randomIndex(len(nounLists))
	second := randomIndex(len(nounLists) - 1)
	if second >= first {
		second++
	}

	words := []string{
		pick(adjectives),
		pick(nounLists[first]),
		pick(nounLists[second]),
	}
	return strings.Join(words, "-")
}

// generatePeerID draws IDs until the registry accepts one.
func generatePeerID(ctx context.Context, reg Registry) (string, error) {
	for range maxIDAttempts {
		id := newPeerID()
		err := reg.Reserve(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrPeerIDTaken) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free peer id after %d attempts", maxIDAttempts)
}

func pick(words []string) string {
	return words[randomIndex(len(words))]
}

// randomIndex returns a uniform index in [0, n).
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return int(v.Int64())
}
