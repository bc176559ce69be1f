// Package rand generates correlation ids for websocket requests.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var source = newSource()

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSource() *lockedSource {
	seed := make([]byte, 16)
	if _, err := cryptorand.Read(seed); err != nil {
		panic("rand: no entropy: " + err.Error())
	}
	return &lockedSource{
		//nolint:gosec // ids only need to be unique per connection
		rng: rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)),
	}
}

// fill writes random bytes over all of buf.
func (s *lockedSource) fill(buf []byte) {
	var word [8]byte
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < len(buf); i += len(word) {
		binary.LittleEndian.PutUint64(word[:], s.rng.Uint64())
		copy(buf[i:], word[:])
	}
}

// NewRequestID returns length characters from the base62 alphabet. The
// distribution is slightly biased, which is fine for request correlation.
func NewRequestID(length int) string {
	buf := make([]byte, length)
	source.fill(buf)
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf)
}
