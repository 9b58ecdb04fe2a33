package audio

import (
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"
)

// MaxPickAttempts bounds the retries spent avoiding an immediate repeat.
const MaxPickAttempts = 10

// Player plays a resolved handle. Implementations may fail; the Selector
// swallows every error.
type Player interface {
	Play(h Handle) error
}

// NoopPlayer discards every playback request.
type NoopPlayer struct{}

func (NoopPlayer) Play(Handle) error { return nil }

// Pick chooses a uniformly random index in [0,n), retrying up to attempts times
// to avoid last when n > 1. It returns -1 when n is zero.
func Pick(intN func(int) int, n, last, attempts int) int {
	if n <= 0 {
		return -1
	}
	idx := intN(n)
	for tries := 1; n > 1 && idx == last && tries < attempts; tries++ {
		idx = intN(n)
	}
	return idx
}

// Selector resolves playback requests to concrete handles, remembering the last
// index played per pool so the same sound is not repeated back to back.
type Selector struct {
	mu     sync.Mutex
	src    Source
	player Player
	intN   func(int) int
	last   map[PoolKind]int
}

// NewSelector builds a Selector reading pools from src and playing through p.
// A nil rng uses the auto-seeded global source.
func NewSelector(src Source, p Player, rng *rand.Rand) *Selector {
	if p == nil {
		p = NoopPlayer{}
	}
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	return &Selector{src: src, player: p, intN: intN, last: make(map[PoolKind]int)}
}

// RequestPlayback picks a sound from the kind's pool and plays it. An empty
// pool is a no-op. Playback failures are logged and dropped.
func (s *Selector) RequestPlayback(kind PoolKind) {
	h, ok := s.Next(kind)
	if !ok {
		log.Debug().Str("pool", string(kind)).Msg("empty sound pool")
		return
	}
	if err := s.player.Play(h); err != nil {
		log.Debug().Err(err).Str("pool", string(kind)).Str("src", h.Name).Msg("playback failed")
	}
}

// Next picks the next handle for kind and records it as last played.
func (s *Selector) Next(kind PoolKind) (Handle, bool) {
	pool := s.src.Pool(kind)

	s.mu.Lock()
	defer s.mu.Unlock()
	last, seen := s.last[kind]
	if !seen {
		last = -1
	}
	idx := Pick(s.intN, len(pool), last, MaxPickAttempts)
	if idx < 0 {
		return Handle{}, false
	}
	s.last[kind] = idx
	return pool[idx], true
}

// Last returns the index last played from kind, or -1.
func (s *Selector) Last(kind PoolKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.last[kind]; ok {
		return idx
	}
	return -1
}
